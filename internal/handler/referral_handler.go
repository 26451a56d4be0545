package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/haven-service/internal/dto"
	"github.com/prperemyshlev/haven-service/internal/service"
)

// ReferralHandler handles referral code and invite claims
type ReferralHandler struct {
	referralService service.ReferralService
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(referralService service.ReferralService) *ReferralHandler {
	return &ReferralHandler{referralService: referralService}
}

// ClaimReferral links the caller to the owner of a referral code
// @Summary Claim referral code
// @Tags referral
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ClaimReferralRequest true "Referral code"
// @Success 200 {object} dto.ClaimReferralResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /user/referral/claim [post]
func (h *ReferralHandler) ClaimReferral(c *gin.Context) {
	var req dto.ClaimReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	claim, err := h.referralService.ClaimReferral(c.Request.Context(), callerID(c), req.ReferralCode)
	if err != nil {
		respondError(c, err)
		return
	}

	if claim.AlreadyReferred {
		c.JSON(http.StatusOK, dto.ClaimReferralResponse{
			OK:      true,
			Reason:  "already_referred",
			Message: "Referral already set for this account",
		})
		return
	}

	c.JSON(http.StatusOK, dto.ClaimReferralResponse{
		OK:      true,
		Inviter: dto.NewReferralInviter(claim.Inviter),
	})
}

// ClaimInvite redeems a personal invite token
// @Summary Claim personal invite
// @Tags referral
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ClaimInviteRequest true "Invite token"
// @Success 200 {object} dto.ClaimInviteResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /user/invite/claim [post]
func (h *ReferralHandler) ClaimInvite(c *gin.Context) {
	var req dto.ClaimInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	claim, err := h.referralService.ClaimInvite(c.Request.Context(), callerID(c), req.InviteToken)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ClaimInviteResponse{
		OK:            true,
		AlreadyLinked: claim.AlreadyLinked,
		Inviter:       dto.NewInviteInviter(claim.Inviter),
		Invite:        dto.NewInviteResponse(claim.Invite, true),
	})
}
