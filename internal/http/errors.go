package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vidtube-auth/internal/domain"
)

// statusFor maps a domain error onto a status code and a message that is
// safe to show to an untrusted caller.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return http.StatusConflict, "user with this username or email already exists"
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrNotFound):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrExpiredToken):
		return http.StatusUnauthorized, "token expired"
	case domain.IsAuthFailure(err):
		return http.StatusUnauthorized, "unauthorized request"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, msg := statusFor(err)
	h.abort(c, status, msg, err)
}

func (h *Handler) abort(c *gin.Context, status int, msg string, err error) {
	entry := h.logger.WithError(err).WithFields(map[string]any{
		"kind":   domain.KindOf(err),
		"method": c.Request.Method,
		"path":   c.FullPath(),
	})
	if u, ok := CurrentUser(c); ok {
		entry = entry.WithField("user_id", u.ID)
	}
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}

	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
