package fusion_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberline/empath/internal/domain"
	"github.com/emberline/empath/internal/fusion"
	"github.com/emberline/empath/internal/signal"
)

var fuseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestFuse_PositiveJoy(t *testing.T) {
	e, err := signal.NormalizeEmotion([]signal.Score{
		{Label: "joy", Score: 0.89},
		{Label: "sadness", Score: 0.05},
	})
	require.NoError(t, err)
	s, err := signal.NormalizeSentiment([]signal.Score{{Label: "positive", Score: 0.95}})
	require.NoError(t, err)

	got := fusion.Fuse(e, s, "best day ever", fuseTime)
	assert.Equal(t, "positive-joy", got.CompositeLabel)
	assert.InDelta(t, 0.92, got.Confidence, 1e-9)
	assert.Equal(t, "best day ever", got.SourceText)
	assert.Equal(t, fuseTime, got.Timestamp)
}

func TestFuse_NeutralEmotionDropsSuffix(t *testing.T) {
	e, err := signal.NormalizeEmotion([]signal.Score{
		{Label: "sadness", Score: 0.2},
		{Label: "joy", Score: 0.1},
	})
	require.NoError(t, err)
	s, err := signal.NormalizeSentiment([]signal.Score{{Label: "negative", Score: 0.7}})
	require.NoError(t, err)

	got := fusion.Fuse(e, s, "hm", fuseTime)
	// Polarity alone, never "negative-neutral".
	assert.Equal(t, "negative", got.CompositeLabel)
	assert.InDelta(t, 0.45, got.Confidence, 1e-9)
}

func TestFuse_ContradictionPreserved(t *testing.T) {
	e := domain.EmotionSignal{Label: domain.EmotionJoy, Confidence: 0.8}
	s := domain.SentimentSignal{Polarity: domain.PolarityNegative, Confidence: 0.9}

	got := fusion.Fuse(e, s, "", fuseTime)
	assert.Equal(t, "negative-joy", got.CompositeLabel)
}

func TestFuse_Pure(t *testing.T) {
	e := domain.EmotionSignal{Label: domain.EmotionFear, Confidence: 0.55}
	s := domain.SentimentSignal{Polarity: domain.PolarityNegative, Confidence: 0.65}

	first := fusion.Fuse(e, s, "same input", fuseTime)
	second := fusion.Fuse(e, s, "same input", fuseTime)
	assert.Equal(t, first, second)
}

func TestFuse_ConfidenceStaysInRange(t *testing.T) {
	cases := []struct{ ec, sc float64 }{
		{0, 0}, {1, 1}, {0, 1}, {0.33, 0.67},
	}
	for _, c := range cases {
		got := fusion.Fuse(
			domain.EmotionSignal{Label: domain.EmotionAnger, Confidence: c.ec},
			domain.SentimentSignal{Polarity: domain.PolarityNegative, Confidence: c.sc},
			"", fuseTime,
		)
		assert.GreaterOrEqual(t, got.Confidence, 0.0)
		assert.LessOrEqual(t, got.Confidence, 1.0)
	}
}
