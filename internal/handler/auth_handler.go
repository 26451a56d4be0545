package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/haven-service/internal/dto"
	"github.com/prperemyshlev/haven-service/internal/service"
)

// AuthHandler handles session and profile requests
type AuthHandler struct {
	sessionService service.SessionService
	userService    service.UserService
	secureCookies  bool
}

// NewAuthHandler creates a new auth handler. secureCookies marks the session
// cookie Secure and should be set outside local development.
func NewAuthHandler(sessionService service.SessionService, userService service.UserService, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		sessionService: sessionService,
		userService:    userService,
		secureCookies:  secureCookies,
	}
}

// CreateSession exchanges an identity provider token for a session
// @Summary Create session
// @Description Verify the identity provider access token, create the user on first login and issue a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.SessionRequest false "Session request"
// @Success 200 {object} dto.SessionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /auth/session [post]
func (h *AuthHandler) CreateSession(c *gin.Context) {
	var req dto.SessionRequest
	// the body is optional when the token comes as a Bearer header
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondValidation(c, err)
		return
	}

	if req.AccessToken == "" {
		token, ok := bearerToken(c)
		if !ok {
			respondError(c, service.ErrUnauthorized)
			return
		}
		req.AccessToken = token
	}

	result, err := h.sessionService.CreateSession(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, result.Token, result.ExpiresIn, "/", "", h.secureCookies, true)

	c.JSON(http.StatusOK, dto.SessionResponse{
		OK:        true,
		IsNewUser: result.IsNewUser,
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresIn: result.ExpiresIn,
		User:      dto.NewUserResponse(result.User),
	})
}

// Logout handles user logout
// @Summary Logout user
// @Description Revoke the current session token
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessionService.Logout(c.Request.Context(), c.GetString(ContextToken)); err != nil {
		respondError(c, err)
		return
	}

	// Clear session cookie
	c.SetCookie(SessionCookieName, "", -1, "/", "", h.secureCookies, true)

	c.JSON(http.StatusOK, dto.SuccessResponse{
		OK:      true,
		Message: "Logged out successfully",
	})
}

// GetMe handles getting current user profile
// @Summary Get current user profile
// @Description Get the caller with contacts, invites and referred users
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.MeResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	profile, err := h.userService.GetMe(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	referrals := make([]dto.ReferralUser, 0, len(profile.Referrals))
	for _, u := range profile.Referrals {
		referrals = append(referrals, dto.NewReferralUser(u))
	}

	c.JSON(http.StatusOK, dto.MeResponse{
		User:      dto.NewUserResponse(profile.User),
		Contacts:  dto.NewContactList(profile.User.Contacts),
		Invites:   dto.NewInviteList(profile.User.PersonalInvites()),
		Referrals: referrals,
	})
}

// Onboard completes the caller's profile
// @Summary Complete onboarding
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.OnboardRequest true "Onboarding answers"
// @Success 200 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/onboard [post]
func (h *AuthHandler) Onboard(c *gin.Context) {
	var req dto.OnboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	user, err := h.userService.Onboard(c.Request.Context(), callerID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}
