package server

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clementcyberknight/simple-websocket-sol-price/internal/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	// No external dependencies to probe; readiness reports relay state.
	return c.JSON(200, map[string]any{
		"status":      "ready",
		"connections": s.registry.ConnCount(),
		"feeds":       s.dispatcher.FeedCount(),
	})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(200, version.Get())
}
