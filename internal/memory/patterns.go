package memory

import (
	"time"

	"github.com/emberline/empath/internal/domain"
)

// aggregatePattern computes per-label frequency, share and mean confidence
// over one user's records.
func aggregatePattern(records []domain.EmotionRecord, from, to time.Time) domain.EmotionPattern {
	pattern := domain.EmotionPattern{
		TotalEntries: len(records),
		Labels:       make(map[string]domain.LabelStat),
		From:         from,
		To:           to,
	}
	if len(records) == 0 {
		return pattern
	}

	type bucket struct {
		count      int
		confidence float64
	}
	buckets := make(map[string]*bucket)
	var totalConfidence float64

	for _, r := range records {
		b, ok := buckets[r.CompositeLabel]
		if !ok {
			b = &bucket{}
			buckets[r.CompositeLabel] = b
		}
		b.count++
		b.confidence += r.Confidence
		totalConfidence += r.Confidence
	}

	for label, b := range buckets {
		pattern.Labels[label] = domain.LabelStat{
			Count:          b.count,
			Share:          float64(b.count) / float64(len(records)),
			MeanConfidence: b.confidence / float64(b.count),
		}
	}
	pattern.MeanConfidence = totalConfidence / float64(len(records))

	return pattern
}
