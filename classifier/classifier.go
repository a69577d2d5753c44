package classifier

import (
	"context"
	"fmt"
	"strings"

	"csatguardian/models"
)

// Result is one classification outcome. Score is on [-1, 1].
type Result struct {
	Label models.SentimentLabel
	Score float64
}

// Classifier maps a text entry to a (label, score) pair. Implementations may
// block up to the context deadline; a failed classification is reported via
// *ClassificationError and is never fatal to the calling evaluation.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
	ModelVersion() string
}

// ClassificationError wraps a classifier failure for a single entry
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// NormalizeLabel maps whatever raw label a classifier vendor returns onto the
// closed label set the core operates on. Unknown labels degrade to neutral so
// a vendor vocabulary change cannot leak new states into the engine.
func NormalizeLabel(raw string) models.SentimentLabel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive", "very_positive", "satisfied", "happy":
		return models.LabelPositive
	case "neutral", "mixed":
		return models.LabelNeutral
	case "negative", "dissatisfied", "unhappy":
		return models.LabelNegative
	case "frustrated", "escalated", "frustrated_escalated", "angry", "very_negative":
		return models.LabelFrustratedEscalated
	default:
		return models.LabelNeutral
	}
}

// ClampScore forces a score onto the documented [-1, 1] range
func ClampScore(score float64) float64 {
	if score < -1 {
		return -1
	}
	if score > 1 {
		return 1
	}
	return score
}
