package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// --- Model types ---

// EmotionLabel is a discrete emotion category assigned by the classifier.
type EmotionLabel string

const (
	EmotionJoy      EmotionLabel = "joy"
	EmotionSadness  EmotionLabel = "sadness"
	EmotionAnger    EmotionLabel = "anger"
	EmotionFear     EmotionLabel = "fear"
	EmotionSurprise EmotionLabel = "surprise"
	EmotionDisgust  EmotionLabel = "disgust"
	EmotionNeutral  EmotionLabel = "neutral"
	EmotionUnknown  EmotionLabel = "unknown"
)

// Polarity is the 3-way sentiment category.
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
	PolarityNeutral  Polarity = "neutral"
)

// EmotionSignal is the normalized output of the emotion classifier.
// Immutable once produced.
type EmotionSignal struct {
	Label      EmotionLabel
	Confidence float64
}

// SentimentSignal is the normalized output of the sentiment classifier.
// Immutable once produced.
type SentimentSignal struct {
	Polarity   Polarity
	Confidence float64
}

// FusedAssessment is the composite result of fusing an emotion signal with a
// sentiment signal. The composite label is fully determined by the two input
// signals; only the timestamp depends on the clock.
type FusedAssessment struct {
	CompositeLabel string    `json:"composite_label"`
	Confidence     float64   `json:"confidence"`
	SourceText     string    `json:"source_text"`
	Timestamp      time.Time `json:"timestamp"`
}

// EmotionRecord is the persisted form of a FusedAssessment. The ID is
// generated client-side so that a retried remote append stays idempotent.
type EmotionRecord struct {
	ID             uuid.UUID `json:"id"`
	UserID         string    `json:"user_id"`
	SessionID      string    `json:"session_id,omitempty"`
	CompositeLabel string    `json:"composite_label"`
	Confidence     float64   `json:"confidence"`
	SourceText     string    `json:"source_text"`
	Timestamp      time.Time `json:"timestamp"`
}

// LabelStat describes how often one composite label occurred in a window.
type LabelStat struct {
	Count          int     `json:"count"`
	Share          float64 `json:"share"`
	MeanConfidence float64 `json:"mean_confidence"`
}

// EmotionPattern aggregates a user's history over a time window.
type EmotionPattern struct {
	TotalEntries   int                  `json:"total_entries"`
	MeanConfidence float64              `json:"mean_confidence"`
	Labels         map[string]LabelStat `json:"labels"`
	From           time.Time            `json:"from"`
	To             time.Time            `json:"to"`

	// Stale is set when the aggregation was computed from the in-process
	// fallback buffer rather than the durable backend.
	Stale bool `json:"stale,omitempty"`
}

// --- Interfaces ---

// HistoryStore abstracts durable per-user emotion history. Both variants
// (embedded SQLite, remote sheet) satisfy the same contract; callers never
// branch on the concrete type.
//
// Append must be durable before returning. ReadRecent returns records most
// recent first; ReadRange returns records inside [from, to] ascending.
// Implementations validate records before any write is attempted.
type HistoryStore interface {
	Append(ctx context.Context, record EmotionRecord) (uuid.UUID, error)
	ReadRecent(ctx context.Context, userID string, limit int) ([]EmotionRecord, error)
	ReadRange(ctx context.Context, userID string, from, to time.Time) ([]EmotionRecord, error)
	HealthCheck(ctx context.Context) error
}
