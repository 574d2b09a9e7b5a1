package pipeline

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Gate names.
const (
	GateExpectedScore = "expected_score"
	GateOverfitting   = "overfitting"
)

var (
	// ErrModelNotGoodEnough is returned when the test F1 score is below the
	// expected score.
	ErrModelNotGoodEnough = eris.New("model not good enough")

	// ErrOverfitting is returned when the gap between train and test F1
	// exceeds the overfitting threshold.
	ErrOverfitting = eris.New("model is overfitting")
)

// GateError reports a model-quality gate failure. It unwraps to
// ErrModelNotGoodEnough or ErrOverfitting.
type GateError struct {
	Gate      string
	Score     float64
	Threshold float64
	Err       error
}

func (e *GateError) Error() string {
	switch e.Gate {
	case GateExpectedScore:
		return fmt.Sprintf("%v: test f1 %.4f is below expected score %.4f", e.Err, e.Score, e.Threshold)
	case GateOverfitting:
		return fmt.Sprintf("%v: train/test f1 gap %.4f exceeds threshold %.4f", e.Err, e.Score, e.Threshold)
	default:
		return fmt.Sprintf("%v: gate %s score %.4f threshold %.4f", e.Err, e.Gate, e.Score, e.Threshold)
	}
}

func (e *GateError) Unwrap() error {
	return e.Err
}
