package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/haven-service/internal/dto"
	"github.com/prperemyshlev/haven-service/internal/service"
)

// Context keys set by AuthMiddleware
const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextClaims = "claims"
	ContextToken  = "session_token"
)

// SessionCookieName carries the session token for browser clients
const SessionCookieName = "haven_session"

// bearerToken extracts the token from "Authorization: Bearer <token>".
// ok is false when the header is present but malformed.
func bearerToken(c *gin.Context) (token string, ok bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", true
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware validates the session token and adds user info to context.
// The token is read from the Authorization header, then the session cookie.
func AuthMiddleware(sessionService service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Reason:  "unauthorized",
				Error:   "Unauthorized",
				Message: "Invalid authorization header format",
			})
			return
		}
		if token == "" {
			token, _ = c.Cookie(SessionCookieName)
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Reason:  "unauthorized",
				Error:   "Unauthorized",
				Message: "Authorization header is required",
			})
			return
		}

		claims, err := sessionService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Reason:  "unauthorized",
				Error:   "Unauthorized",
				Message: "Invalid or expired token",
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextClaims, claims)
		c.Set(ContextToken, token)

		c.Next()
	}
}
