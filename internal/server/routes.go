package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API routes
	s.echo.POST("/api/messages", s.handleRecordMessage)
	s.echo.GET("/api/history/:user", s.handleHistory)
	s.echo.GET("/api/patterns/:user", s.handlePatterns)
}
