// Package memory orchestrates classification, fusion and persistence of
// per-user emotional history.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/emberline/empath/internal/domain"
	"github.com/emberline/empath/internal/fusion"
	"github.com/emberline/empath/internal/metrics"
	"github.com/emberline/empath/internal/signal"
)

// Classifier is the external model contract: an unordered set of
// (label, score) pairs for one input text. Failures are treated by the
// caller as malformed output (non-retryable).
type Classifier interface {
	Classify(ctx context.Context, text string) ([]signal.Score, error)
}

// History is the result of a read. Stale marks results served from the
// fallback buffer because the backend was unreachable.
type History struct {
	Records []domain.EmotionRecord `json:"records"`
	Stale   bool                   `json:"stale"`
}

const defaultBufferCapacity = 100

// Manager runs the adapter/fusion pipeline and delegates persistence to the
// configured HistoryStore. The store is passed in explicitly; there is no
// ambient backend selection here.
//
// Appends for one user are serialized through a keyed mutex so that a user's
// history is always observed append-ordered; different users never contend.
type Manager struct {
	emotion   Classifier
	sentiment Classifier
	store     domain.HistoryStore
	buffer    *fallbackBuffer
	locks     *keyedMutex
	clock     clockwork.Clock
}

type Option func(*Manager)

// WithBufferCapacity bounds the per-user fallback buffer.
func WithBufferCapacity(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.buffer = newFallbackBuffer(n)
		}
	}
}

func NewManager(emotion, sentiment Classifier, store domain.HistoryStore, clock clockwork.Clock, opts ...Option) *Manager {
	m := &Manager{
		emotion:   emotion,
		sentiment: sentiment,
		store:     store,
		buffer:    newFallbackBuffer(defaultBufferCapacity),
		locks:     newKeyedMutex(),
		clock:     clock,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Record classifies text, fuses the signals and persists the result for
// userID. When the backend is unreachable the assessment is kept in the
// fallback buffer and the returned error wraps domain.ErrDegradedStorage;
// the assessment itself is still valid.
func (m *Manager) Record(ctx context.Context, userID, text string) (domain.FusedAssessment, error) {
	return m.RecordInSession(ctx, userID, "", text)
}

// RecordInSession is Record with an explicit session id attached to the
// persisted record.
func (m *Manager) RecordInSession(ctx context.Context, userID, sessionID, text string) (domain.FusedAssessment, error) {
	if userID == "" {
		return domain.FusedAssessment{}, fmt.Errorf("%w: missing user id", domain.ErrInvalidRecord)
	}

	emotionSig, sentimentSig, err := m.classify(ctx, text)
	if err != nil {
		return domain.FusedAssessment{}, err
	}

	unlock := m.locks.Lock(userID)
	defer unlock()

	// The timestamp must be read under the lock: a goroutine preempted
	// between its clock read and the append could otherwise land a record
	// behind a later-timestamped one, and readers order by timestamp.
	assessment := fusion.Fuse(emotionSig, sentimentSig, text, m.clock.Now().UTC())
	metrics.AssessmentsTotal.Inc()
	metrics.AssessmentConfidence.Observe(assessment.Confidence)

	record := domain.EmotionRecord{
		ID:             uuid.New(),
		UserID:         userID,
		SessionID:      sessionID,
		CompositeLabel: assessment.CompositeLabel,
		Confidence:     assessment.Confidence,
		SourceText:     assessment.SourceText,
		Timestamp:      assessment.Timestamp,
	}

	// Older buffered records go first so the stored history stays
	// append-ordered even across an outage.
	if !m.drainLocked(ctx, userID) {
		m.bufferRecord(record, domain.ErrStorageUnavailable)
		return assessment, fmt.Errorf("%w: backend still unreachable", domain.ErrDegradedStorage)
	}

	if _, err := m.store.Append(ctx, record); err != nil {
		switch {
		case errors.Is(err, domain.ErrStorageUnavailable):
			m.bufferRecord(record, err)
			return assessment, fmt.Errorf("%w: %v", domain.ErrDegradedStorage, err)
		default:
			// Validation and corruption surface unchanged.
			return domain.FusedAssessment{}, err
		}
	}

	return assessment, nil
}

// classify runs both model calls concurrently and joins before fusion.
// The two computations share no mutable state.
func (m *Manager) classify(ctx context.Context, text string) (domain.EmotionSignal, domain.SentimentSignal, error) {
	var (
		emotionSig   domain.EmotionSignal
		sentimentSig domain.SentimentSignal
		emotionErr   error
		sentimentErr error
	)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		raw, err := m.emotion.Classify(ctx, text)
		if err != nil {
			emotionErr = fmt.Errorf("%w: emotion classifier: %v", domain.ErrMalformedOutput, err)
			return
		}
		emotionSig, emotionErr = signal.NormalizeEmotion(raw)
	}()

	go func() {
		defer wg.Done()
		raw, err := m.sentiment.Classify(ctx, text)
		if err != nil {
			sentimentErr = fmt.Errorf("%w: sentiment classifier: %v", domain.ErrMalformedOutput, err)
			return
		}
		sentimentSig, sentimentErr = signal.NormalizeSentiment(raw)
	}()

	wg.Wait()

	if emotionErr != nil {
		return domain.EmotionSignal{}, domain.SentimentSignal{}, emotionErr
	}
	if sentimentErr != nil {
		return domain.EmotionSignal{}, domain.SentimentSignal{}, sentimentErr
	}
	return emotionSig, sentimentSig, nil
}

func (m *Manager) bufferRecord(record domain.EmotionRecord, cause error) {
	m.buffer.Add(record)
	metrics.FallbackBufferedTotal.Inc()
	slog.Warn("History backend unreachable, assessment buffered",
		"user_id", record.UserID, "buffered", m.buffer.Len(record.UserID), "error", cause)
}

// drainLocked flushes buffered records for userID back to the backend.
// Must be called with the user's lock held. Returns false when the backend
// is still unreachable.
func (m *Manager) drainLocked(ctx context.Context, userID string) bool {
	buffered := m.buffer.TakeAll(userID)
	for i, record := range buffered {
		if _, err := m.store.Append(ctx, record); err != nil {
			if errors.Is(err, domain.ErrStorageUnavailable) {
				m.buffer.Requeue(buffered[i:])
				return false
			}
			// A non-transient failure must not wedge the buffer forever:
			// drop the poisoned record and keep draining.
			slog.Error("Dropping unpersistable buffered record", "user_id", userID, "record_id", record.ID, "error", err)
			continue
		}
		metrics.FallbackDrainedTotal.Inc()
	}
	return true
}

// Recent reads the most recent limit records for userID, newest first.
// When the backend is unreachable the fallback buffer is served instead and
// the result is marked stale.
func (m *Manager) Recent(ctx context.Context, userID string, limit int) (History, error) {
	if userID == "" {
		return History{}, fmt.Errorf("%w: missing user id", domain.ErrInvalidRecord)
	}
	if limit <= 0 {
		return History{}, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidRecord, limit)
	}

	records, err := m.store.ReadRecent(ctx, userID, limit)
	if err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			metrics.FallbackServedTotal.Inc()
			return History{Records: m.buffer.Recent(userID, limit), Stale: true}, nil
		}
		return History{}, err
	}
	return History{Records: records}, nil
}

// Range reads records inside [from, to], oldest first, with the same
// degradation behaviour as Recent.
func (m *Manager) Range(ctx context.Context, userID string, from, to time.Time) (History, error) {
	if userID == "" {
		return History{}, fmt.Errorf("%w: missing user id", domain.ErrInvalidRecord)
	}

	records, err := m.store.ReadRange(ctx, userID, from, to)
	if err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			metrics.FallbackServedTotal.Inc()
			return History{Records: m.buffer.InRange(userID, from, to), Stale: true}, nil
		}
		return History{}, err
	}
	return History{Records: records}, nil
}

// Patterns aggregates the user's history over the trailing window.
func (m *Manager) Patterns(ctx context.Context, userID string, window time.Duration) (domain.EmotionPattern, error) {
	to := m.clock.Now().UTC()
	from := to.Add(-window)

	history, err := m.Range(ctx, userID, from, to)
	if err != nil {
		return domain.EmotionPattern{}, err
	}

	pattern := aggregatePattern(history.Records, from, to)
	pattern.Stale = history.Stale
	return pattern, nil
}

// HealthCheck reports backend reachability.
func (m *Manager) HealthCheck(ctx context.Context) error {
	return m.store.HealthCheck(ctx)
}
