// Package ws serves the live session stream over WebSocket.
package ws

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/solace/internal/config"
	"github.com/xiaot623/solace/internal/domain"
	"github.com/xiaot623/solace/internal/service"
)

// Handler upgrades live stream requests and hands the connection to the session relay.
type Handler struct {
	service  *service.Service
	cfg      config.WebSocket
	upgrader websocket.Upgrader
}

func NewHandler(svc *service.Service, cfg config.WebSocket) *Handler {
	return &Handler{
		service: svc,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/sessions/:session_id/live", h.Live)
}

// Live serves one client stream for the lifetime of the session.
// GET /v1/sessions/:session_id/live
func (h *Handler) Live(c echo.Context) error {
	sessionID := c.Param("session_id")

	sess, err := h.service.CheckConnectable(sessionID)
	if err != nil {
		status := http.StatusConflict
		switch {
		case errors.Is(err, domain.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domain.ErrServiceUnavailable):
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, map[string]string{"error": err.Error(), "code": domain.ErrorCode(err)})
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to upgrade websocket")
		return nil
	}

	p := newPeer(conn, sessionID, h.cfg)
	go p.keepAlive()
	defer p.Close()

	log.Info().Str("session_id", sessionID).Str("remote", c.RealIP()).Msg("client connected")
	if err := h.service.Serve(c.Request().Context(), sess, p); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("live connection rejected")
	}
	return nil
}
