package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/haven-service/internal/dto"
	"github.com/prperemyshlev/haven-service/internal/service"
)

// ContactHandler handles the caller's contact directory
type ContactHandler struct {
	contactService service.ContactService
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contactService service.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

func (h *ContactHandler) List(c *gin.Context) {
	contacts, err := h.contactService.List(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ContactListResponse{OK: true, Contacts: dto.NewContactList(contacts)})
}

func (h *ContactHandler) Upsert(c *gin.Context) {
	var req dto.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	contacts, err := h.contactService.Upsert(c.Request.Context(), callerID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ContactListResponse{OK: true, Contacts: dto.NewContactList(contacts)})
}

func (h *ContactHandler) Remove(c *gin.Context) {
	var req dto.RemoveContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	contacts, err := h.contactService.Remove(c.Request.Context(), callerID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ContactListResponse{OK: true, Contacts: dto.NewContactList(contacts)})
}

// Resolve looks up where to send value for ?email=
func (h *ContactHandler) Resolve(c *gin.Context) {
	resolved, err := h.contactService.Resolve(c.Request.Context(), callerID(c), c.Query("email"))
	if err != nil {
		respondError(c, err)
		return
	}

	var name, image *string
	if resolved.Name != "" {
		name = &resolved.Name
	}
	if resolved.ProfileImageURL != "" {
		image = &resolved.ProfileImageURL
	}

	c.JSON(http.StatusOK, dto.ResolvedContactResponse{
		Email:           resolved.Email,
		Name:            name,
		WalletAddress:   resolved.WalletAddress,
		Status:          string(resolved.Status),
		ProfileImageURL: image,
	})
}
