package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/solace/internal/domain"
)

// StartSession creates a session.
// POST /v1/sessions
func (h *Handler) StartSession(c echo.Context) error {
	var req domain.StartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body", "code": "validation_error"})
	}

	resp, err := h.service.Start(c.Request().Context(), &req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// GetSession returns the status of a live or finalized session.
// GET /v1/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	resp, err := h.service.Status(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// SubmitMessage sends a text message and waits for the reply.
// POST /v1/sessions/:session_id/messages
func (h *Handler) SubmitMessage(c echo.Context) error {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body", "code": "validation_error"})
	}

	resp, err := h.service.Submit(c.Request().Context(), c.Param("session_id"), &domain.SubmitRequest{Text: body.Text})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// SubmitAudio sends a base64 audio chunk and waits for the reply.
// POST /v1/sessions/:session_id/audio
func (h *Handler) SubmitAudio(c echo.Context) error {
	var body struct {
		AudioData string `json:"audioData"`
		MimeType  string `json:"mimeType"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body", "code": "validation_error"})
	}

	req := &domain.SubmitRequest{AudioData: body.AudioData, MimeType: body.MimeType}
	resp, err := h.service.Submit(c.Request().Context(), c.Param("session_id"), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// EndSession finalizes a session. A failed save still ends the session and is reported
// in the body rather than the status code.
// POST /v1/sessions/:session_id/end
func (h *Handler) EndSession(c echo.Context) error {
	resp, err := h.service.End(c.Request().Context(), c.Param("session_id"))
	if err != nil && !(errors.Is(err, domain.ErrPersistenceFailure) && resp != nil) {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
