package learn

import (
	"sort"

	"github.com/rotisserie/eris"
)

// logLossEps bounds probabilities away from zero in log-loss.
const logLossEps = 1e-16

// F1Weighted is the support-weighted mean of per-class F1 scores over the
// labels present in either yTrue or yPred. A class with no true and no
// predicted samples scores 0.
func F1Weighted(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) != len(yPred) {
		return 0, eris.Errorf("f1: %d true labels but %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return 0, eris.New("f1: no samples")
	}

	tp := make(map[float64]int)
	predicted := make(map[float64]int)
	support := make(map[float64]int)
	for i := range yTrue {
		support[yTrue[i]]++
		predicted[yPred[i]]++
		if yTrue[i] == yPred[i] {
			tp[yTrue[i]]++
		}
	}

	labels := make([]float64, 0, len(support))
	for l := range support {
		labels = append(labels, l)
	}
	for l := range predicted {
		if _, ok := support[l]; !ok {
			labels = append(labels, l)
		}
	}
	sort.Float64s(labels)

	var weighted float64
	var total int
	for _, l := range labels {
		s := support[l]
		total += s
		denom := s + predicted[l]
		if denom == 0 || s == 0 {
			continue
		}
		f1 := 2 * float64(tp[l]) / float64(denom)
		weighted += f1 * float64(s)
	}
	if total == 0 {
		return 0, nil
	}
	return weighted / float64(total), nil
}

// ErrorRate is the share of mismatched predictions.
func ErrorRate(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) != len(yPred) {
		return 0, eris.Errorf("error rate: %d true labels but %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return 0, eris.New("error rate: no samples")
	}
	var wrong int
	for i := range yTrue {
		if yTrue[i] != yPred[i] {
			wrong++
		}
	}
	return float64(wrong) / float64(len(yTrue)), nil
}
