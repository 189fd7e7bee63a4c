// Package v1 provides the HTTP command surface for voice sessions.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/solace/internal/domain"
	"github.com/xiaot623/solace/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the session and record routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Session commands
	e.POST("/v1/sessions", h.StartSession)
	e.GET("/v1/sessions/:session_id", h.GetSession)
	e.POST("/v1/sessions/:session_id/messages", h.SubmitMessage)
	e.POST("/v1/sessions/:session_id/audio", h.SubmitAudio)
	e.POST("/v1/sessions/:session_id/end", h.EndSession)

	// Persisted records
	e.GET("/v1/records/:record_id", h.GetRecord)
	e.GET("/v1/users/:owner_id/sessions", h.ListRecords)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"sessions": h.service.LiveSessions(),
	})
}

// errorResponse writes err with the status matching its kind.
func errorResponse(c echo.Context, err error) error {
	return c.JSON(statusFor(err), map[string]string{
		"error": err.Error(),
		"code":  domain.ErrorCode(err),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
