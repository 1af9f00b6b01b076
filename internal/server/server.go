// Package server exposes the memory manager over HTTP. It is a thin JSON
// surface: validation beyond routing lives in the manager and the domain
// types, not here.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/emberline/empath/internal/domain"
	"github.com/emberline/empath/internal/memory"
	"github.com/emberline/empath/internal/platform/config"
)

// EmotionMemory is the slice of the manager the HTTP surface needs.
type EmotionMemory interface {
	Record(ctx context.Context, userID, text string) (domain.FusedAssessment, error)
	RecordInSession(ctx context.Context, userID, sessionID, text string) (domain.FusedAssessment, error)
	Recent(ctx context.Context, userID string, limit int) (memory.History, error)
	Range(ctx context.Context, userID string, from, to time.Time) (memory.History, error)
	Patterns(ctx context.Context, userID string, window time.Duration) (domain.EmotionPattern, error)
	HealthCheck(ctx context.Context) error
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	manager   EmotionMemory
	startTime time.Time
}

func NewServer(cfg *config.Config, manager EmotionMemory) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:      e,
		config:    cfg,
		manager:   manager,
		startTime: time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
