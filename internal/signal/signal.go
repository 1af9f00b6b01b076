// Package signal normalizes raw classifier output into canonical signals.
//
// Both classifiers return an unordered list of (label, score) pairs. The
// adapters here pick the winning label, apply the low-confidence policy, and
// reject anything malformed before it reaches the fusion engine.
package signal

import (
	"fmt"
	"math"
	"strings"

	"github.com/emberline/empath/internal/domain"
)

// LowConfidenceThreshold is the score below which an emotion classification
// collapses to neutral. The original confidence is preserved either way.
const LowConfidenceThreshold = 0.30

// Score is one raw (label, score) pair as returned by a classifier service.
type Score struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

var emotionLabels = map[string]domain.EmotionLabel{
	"joy":      domain.EmotionJoy,
	"sadness":  domain.EmotionSadness,
	"anger":    domain.EmotionAnger,
	"fear":     domain.EmotionFear,
	"surprise": domain.EmotionSurprise,
	"disgust":  domain.EmotionDisgust,
	"neutral":  domain.EmotionNeutral,
}

// polarityLabels includes the LABEL_n aliases emitted by the cardiffnlp
// sentiment model alongside the canonical names.
var polarityLabels = map[string]domain.Polarity{
	"positive": domain.PolarityPositive,
	"negative": domain.PolarityNegative,
	"neutral":  domain.PolarityNeutral,
	"label_0":  domain.PolarityNegative,
	"label_1":  domain.PolarityNeutral,
	"label_2":  domain.PolarityPositive,
}

// NormalizeEmotion selects the maximum-score label from raw classifier
// output. A winning score below LowConfidenceThreshold collapses the label
// to neutral while keeping the original confidence. Empty or malformed
// output fails with domain.ErrMalformedOutput.
func NormalizeEmotion(raw []Score) (domain.EmotionSignal, error) {
	top, err := maxScore(raw)
	if err != nil {
		return domain.EmotionSignal{}, err
	}

	label, ok := emotionLabels[strings.ToLower(top.Label)]
	if !ok {
		label = domain.EmotionUnknown
	}
	if top.Score < LowConfidenceThreshold {
		label = domain.EmotionNeutral
	}

	return domain.EmotionSignal{Label: label, Confidence: top.Score}, nil
}

// NormalizeSentiment selects the maximum-score polarity from raw classifier
// output. No threshold is applied; the polarity is taken as-is with its
// confidence. Unknown polarity labels are malformed output.
func NormalizeSentiment(raw []Score) (domain.SentimentSignal, error) {
	top, err := maxScore(raw)
	if err != nil {
		return domain.SentimentSignal{}, err
	}

	polarity, ok := polarityLabels[strings.ToLower(top.Label)]
	if !ok {
		return domain.SentimentSignal{}, fmt.Errorf("%w: unknown polarity %q", domain.ErrMalformedOutput, top.Label)
	}

	return domain.SentimentSignal{Polarity: polarity, Confidence: top.Score}, nil
}

func maxScore(raw []Score) (Score, error) {
	if len(raw) == 0 {
		return Score{}, fmt.Errorf("%w: empty score list", domain.ErrMalformedOutput)
	}

	top := Score{Score: -1}
	for _, s := range raw {
		if s.Label == "" {
			return Score{}, fmt.Errorf("%w: score without label", domain.ErrMalformedOutput)
		}
		if math.IsNaN(s.Score) || math.IsInf(s.Score, 0) || s.Score < 0 || s.Score > 1 {
			return Score{}, fmt.Errorf("%w: score %v for label %q outside [0,1]", domain.ErrMalformedOutput, s.Score, s.Label)
		}
		if s.Score > top.Score {
			top = s
		}
	}
	return top, nil
}
