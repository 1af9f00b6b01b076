// Package sheet implements the remote history store variant on top of a
// tabular row client (a spreadsheet-style backend owned by a collaborator).
package sheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/emberline/empath/internal/domain"
	"github.com/emberline/empath/internal/metrics"
	"github.com/emberline/empath/internal/platform/retry"
)

// RowClient is the external tabular store contract. Authentication and
// session handling are entirely the client's responsibility.
type RowClient interface {
	AppendRow(ctx context.Context, sheetID string, row []string) error
	ReadRows(ctx context.Context, sheetID string) ([][]string, error)
}

// ErrRateLimited should be returned (or wrapped) by RowClient implementations
// when the backend pushes back; the retry policy then jumps to its backoff cap.
var ErrRateLimited = errors.New("remote store rate limited")

// Options bound the remote store's network behaviour. Zero values fall back
// to conservative defaults.
type Options struct {
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 4
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 250 * time.Millisecond
	}
	if o.MaxBackoff < o.InitialBackoff {
		o.MaxBackoff = 5 * time.Second
	}
	return o
}

// HistoryStore implements domain.HistoryStore against a remote sheet.
// Appends carry a client-generated record id, so a retry after an ambiguous
// failure first checks whether the row already landed - the same record is
// never written twice.
type HistoryStore struct {
	client  RowClient
	sheetID string
	opts    Options
	breaker *gobreaker.CircuitBreaker
}

var _ domain.HistoryStore = (*HistoryStore)(nil)

func NewHistoryStore(client RowClient, sheetID string, opts Options) *HistoryStore {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "sheet",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && counts.TotalFailures*10 >= counts.Requests*6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})

	return &HistoryStore{
		client:  client,
		sheetID: sheetID,
		opts:    opts.withDefaults(),
		breaker: breaker,
	}
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func (s *HistoryStore) policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    s.opts.MaxAttempts,
		InitialBackoff: s.opts.InitialBackoff,
		MaxBackoff:     s.opts.MaxBackoff,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			metrics.StoreRetriesTotal.WithLabelValues("sheet").Inc()
			slog.Debug("Retrying sheet operation", "attempt", attempt, "backoff", backoff, "error", err)
		},
	}
}

func classifyRemote(err error) retry.Action {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return retry.Stop
	case errors.Is(err, ErrRateLimited):
		return retry.RateLimited
	default:
		return retry.Retry
	}
}

func (s *HistoryStore) Append(ctx context.Context, record domain.EmotionRecord) (uuid.UUID, error) {
	if err := record.Validate(); err != nil {
		return uuid.Nil, err
	}

	row := encodeRow(record)
	timer := time.Now()
	attempted := false

	err := retry.DoVoid(ctx, s.policy(), classifyRemote, func() error {
		// After a failed attempt the append is ambiguous: the row may have
		// landed even though the response was lost. Check before re-writing.
		if attempted {
			exists, err := s.rowExists(ctx, record.ID)
			if err != nil {
				// Without the verification there is no way to tell
				// whether the previous write landed. Retry the check
				// rather than risk a duplicate row.
				return err
			}
			if exists {
				return nil
			}
		}
		attempted = true

		opCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
		_, err := s.breaker.Execute(func() (any, error) {
			return nil, s.client.AppendRow(opCtx, s.sheetID, row)
		})
		return err
	})
	if err != nil {
		metrics.StoreOpsTotal.WithLabelValues("sheet", "append", "error").Inc()
		return uuid.Nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	metrics.StoreOpsTotal.WithLabelValues("sheet", "append", "ok").Inc()
	metrics.StoreOpDuration.WithLabelValues("sheet", "append").Observe(time.Since(timer).Seconds())
	return record.ID, nil
}

func (s *HistoryStore) rowExists(ctx context.Context, id uuid.UUID) (bool, error) {
	rows, err := s.readAll(ctx)
	if err != nil {
		return false, err
	}
	want := id.String()
	for _, row := range rows {
		if len(row) > 0 && row[0] == want {
			return true, nil
		}
	}
	return false, nil
}

func (s *HistoryStore) ReadRecent(ctx context.Context, userID string, limit int) ([]domain.EmotionRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", domain.ErrInvalidRecord)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidRecord, limit)
	}

	records, err := s.readUser(ctx, userID)
	if err != nil {
		metrics.StoreOpsTotal.WithLabelValues("sheet", "read_recent", "error").Inc()
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	if len(records) > limit {
		records = records[:limit]
	}

	metrics.StoreOpsTotal.WithLabelValues("sheet", "read_recent", "ok").Inc()
	return records, nil
}

func (s *HistoryStore) ReadRange(ctx context.Context, userID string, from, to time.Time) ([]domain.EmotionRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", domain.ErrInvalidRecord)
	}

	all, err := s.readUser(ctx, userID)
	if err != nil {
		metrics.StoreOpsTotal.WithLabelValues("sheet", "read_range", "error").Inc()
		return nil, err
	}

	var records []domain.EmotionRecord
	for _, r := range all {
		if r.Timestamp.Before(from) || r.Timestamp.After(to) {
			continue
		}
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	metrics.StoreOpsTotal.WithLabelValues("sheet", "read_range", "ok").Inc()
	return records, nil
}

func (s *HistoryStore) HealthCheck(ctx context.Context) error {
	_, err := s.readAll(ctx)
	return err
}

func (s *HistoryStore) readUser(ctx context.Context, userID string) ([]domain.EmotionRecord, error) {
	rows, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}

	var records []domain.EmotionRecord
	for _, row := range rows {
		record, err := decodeRow(row)
		if err != nil {
			// A single damaged row must not take the whole history down.
			slog.Warn("Skipping malformed sheet row", "error", err)
			continue
		}
		if record.UserID == userID {
			records = append(records, record)
		}
	}
	return records, nil
}

func (s *HistoryStore) readAll(ctx context.Context) ([][]string, error) {
	rows, err := retry.Do(ctx, s.policy(), classifyRemote, func() ([][]string, error) {
		opCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
		result, err := s.breaker.Execute(func() (any, error) {
			return s.client.ReadRows(opCtx, s.sheetID)
		})
		if err != nil {
			return nil, err
		}
		return result.([][]string), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return rows, nil
}

func encodeRow(record domain.EmotionRecord) []string {
	return []string{
		record.ID.String(),
		record.UserID,
		record.SessionID,
		record.CompositeLabel,
		strconv.FormatFloat(record.Confidence, 'f', -1, 64),
		record.SourceText,
		record.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func decodeRow(row []string) (domain.EmotionRecord, error) {
	if len(row) < 7 {
		return domain.EmotionRecord{}, fmt.Errorf("row has %d columns, want 7", len(row))
	}

	id, err := uuid.Parse(row[0])
	if err != nil {
		return domain.EmotionRecord{}, fmt.Errorf("record id %q is not a uuid: %w", row[0], err)
	}
	confidence, err := strconv.ParseFloat(row[4], 64)
	if err != nil {
		return domain.EmotionRecord{}, fmt.Errorf("confidence %q is not a float: %w", row[4], err)
	}
	timestamp, err := time.Parse(time.RFC3339Nano, row[6])
	if err != nil {
		return domain.EmotionRecord{}, fmt.Errorf("timestamp %q is not RFC3339: %w", row[6], err)
	}

	return domain.EmotionRecord{
		ID:             id,
		UserID:         row[1],
		SessionID:      row[2],
		CompositeLabel: row[3],
		Confidence:     confidence,
		SourceText:     row[5],
		Timestamp:      timestamp,
	}, nil
}
