// Package http provides the HTTP server for the session relay.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/solace/internal/config"
	"github.com/xiaot623/solace/internal/service"
	v1 "github.com/xiaot623/solace/internal/transport/http/v1"
	"github.com/xiaot623/solace/internal/transport/ws"
)

// NewServer creates the HTTP server serving the session API and the live stream.
func NewServer(svc *service.Service, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc)
	wsHandler := ws.NewHandler(svc, cfg.WebSocket)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	wsHandler.RegisterRoutes(e)

	return e
}
