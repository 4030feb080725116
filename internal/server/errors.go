package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"linvo/catalog"
	"linvo/internal/auth"
	"linvo/internal/services"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrKidNotFound),
		errors.Is(err, services.ErrChannelNotFound),
		errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, auth.ErrInvalidPIN), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Errorw("msg", "request failed", "path", c.FullPath(), "status", status, "err", err)
	}
	body := gin.H{"error": err.Error()}
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		body["field"] = verr.Field
	}
	c.JSON(status, body)
}
