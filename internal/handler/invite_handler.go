package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/haven-service/internal/dto"
	"github.com/prperemyshlev/haven-service/internal/service"
)

// InviteHandler handles personal invite requests
type InviteHandler struct {
	inviteService service.InviteService
}

// NewInviteHandler creates a new invite handler
func NewInviteHandler(inviteService service.InviteService) *InviteHandler {
	return &InviteHandler{inviteService: inviteService}
}

// IssuePersonalInvite issues a single-use invite to one email
// @Summary Issue personal invite
// @Tags invite
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.PersonalInviteRequest true "Recipient"
// @Success 200 {object} dto.PersonalInviteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /user/invite/personal [post]
func (h *InviteHandler) IssuePersonalInvite(c *gin.Context) {
	var req dto.PersonalInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	issued, err := h.inviteService.IssuePersonalInvite(c.Request.Context(), callerID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	if issued.AlreadyOnHaven {
		c.JSON(http.StatusOK, dto.PersonalInviteResponse{
			OK:      false,
			Reason:  "already_on_haven",
			Message: "This email already has an account. They were added to your contacts.",
		})
		return
	}

	invite := dto.NewInviteResponse(issued.Invite, true)
	c.JSON(http.StatusOK, dto.PersonalInviteResponse{
		OK:     true,
		Reused: issued.Reused,
		Invite: &invite,
		Link:   issued.Link,
		Path:   issued.Path,
	})
}

// ListInvites returns the caller's personal invites, newest first
func (h *InviteHandler) ListInvites(c *gin.Context) {
	invites, err := h.inviteService.ListInvites(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.InviteListResponse{Invites: dto.NewInviteList(invites)})
}

// TrackInviteClick records a visit of an invite link. It always answers 200.
func (h *InviteHandler) TrackInviteClick(c *gin.Context) {
	var req dto.TrackInviteRequest
	// malformed bodies are treated like an empty token
	_ = c.ShouldBindJSON(&req)
	if req.InviteToken == "" {
		req.InviteToken = c.Query("invite")
	}

	click := h.inviteService.TrackInviteClick(c.Request.Context(), req.InviteToken)

	c.JSON(http.StatusOK, dto.TrackInviteResponse{
		OK:     click.OK,
		Status: string(click.Status),
	})
}
