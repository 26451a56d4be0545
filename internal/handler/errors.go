package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/haven-service/internal/dto"
	"github.com/prperemyshlev/haven-service/internal/service"
)

var reasonStatus = map[string]int{
	"unauthorized":     http.StatusUnauthorized,
	"not_found":        http.StatusNotFound,
	"invalid_input":    http.StatusBadRequest,
	"invalid_code":     http.StatusNotFound,
	"self_referral":    http.StatusBadRequest,
	"already_referred": http.StatusConflict,
	"wrong_recipient":  http.StatusForbidden,
	"already_used":     http.StatusConflict,
	"account_conflict": http.StatusConflict,
}

// StatusFor returns the HTTP status of a service error reason
func StatusFor(reason string) int {
	if status, ok := reasonStatus[reason]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError writes err as {ok:false, reason, message}. Internal errors are
// attached to the context for the request logger and not exposed.
func respondError(c *gin.Context, err error) {
	reason := service.Reason(err)
	status := StatusFor(reason)

	message := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		message = "Internal server error"
	}

	c.JSON(status, dto.ErrorResponse{
		OK:      false,
		Reason:  reason,
		Error:   http.StatusText(status),
		Message: message,
	})
}

// respondValidation writes a binding failure as invalid_input
func respondValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		OK:      false,
		Reason:  "invalid_input",
		Error:   "Validation failed",
		Message: err.Error(),
	})
}

// callerID returns the user id set by AuthMiddleware
func callerID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
