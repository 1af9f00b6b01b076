package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/emberline/empath/internal/domain"
)

const (
	defaultHistoryLimit  = 20
	defaultPatternWindow = 24 * time.Hour
)

type recordMessageRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

func (s *Server) handleRecordMessage(c echo.Context) error {
	var req recordMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	assessment, err := s.manager.RecordInSession(ctx, req.UserID, req.SessionID, req.Text)
	if err != nil {
		if errors.Is(err, domain.ErrDegradedStorage) {
			// The assessment is valid; persistence is deferred to the
			// fallback buffer until the backend recovers.
			return c.JSON(http.StatusAccepted, map[string]any{
				"assessment": assessment,
				"degraded":   true,
			})
		}
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"assessment": assessment})
}

func (s *Server) handleHistory(c echo.Context) error {
	userID := c.Param("user")
	ctx := c.Request().Context()

	// A from/to pair selects a range read; otherwise the newest entries.
	fromStr, toStr := c.QueryParam("from"), c.QueryParam("to")
	if fromStr != "" || toStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid 'from' timestamp"})
		}
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid 'to' timestamp"})
		}

		history, err := s.manager.Range(ctx, userID, from, to)
		if err != nil {
			return jsonError(c, err)
		}
		return c.JSON(http.StatusOK, history)
	}

	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid 'limit' parameter"})
		}
	}

	history, err := s.manager.Recent(ctx, userID, limit)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, history)
}

func (s *Server) handlePatterns(c echo.Context) error {
	userID := c.Param("user")

	window := defaultPatternWindow
	if raw := c.QueryParam("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid 'window' parameter"})
		}
		window = parsed
	}

	pattern, err := s.manager.Patterns(c.Request().Context(), userID, window)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, pattern)
}

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := s.manager.HealthCheck(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// jsonError translates the domain error taxonomy into HTTP statuses.
func jsonError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRecord):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrMalformedOutput):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
