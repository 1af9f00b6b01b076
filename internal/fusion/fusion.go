// Package fusion merges an emotion signal and a sentiment signal into one
// composite assessment.
package fusion

import (
	"time"

	"github.com/emberline/empath/internal/domain"
)

// Fuse combines the two signals deterministically:
//
//   - neutral emotion: the composite label is the polarity alone
//   - otherwise: "<polarity>-<emotion>"
//   - confidence: arithmetic mean of both confidences, clamped to [0,1]
//
// Contradictory pairs (say, negative polarity with joy) are preserved
// verbatim; resolving them is a presentation concern. Fuse is a total
// function over well-formed signals and never errors.
func Fuse(e domain.EmotionSignal, s domain.SentimentSignal, sourceText string, now time.Time) domain.FusedAssessment {
	label := string(s.Polarity)
	if e.Label != domain.EmotionNeutral {
		label = label + "-" + string(e.Label)
	}

	return domain.FusedAssessment{
		CompositeLabel: label,
		Confidence:     clamp((e.Confidence+s.Confidence)/2, 0, 1),
		SourceText:     sourceText,
		Timestamp:      now,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
