package learn

import (
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
)

// RandomOverSampler balances classes by drawing rows of every non-majority
// class with replacement until each class matches the majority count.
type RandomOverSampler struct {
	Seed uint64
}

// FitResample returns x and y with the sampled rows appended after the
// original rows. Classes are processed in ascending label order.
func (s RandomOverSampler) FitResample(x *mat.Dense, y []float64) (*mat.Dense, []float64, error) {
	rows, cols := x.Dims()
	if rows != len(y) {
		return nil, nil, eris.Errorf("oversample: %d rows but %d labels", rows, len(y))
	}
	if rows == 0 {
		return nil, nil, eris.New("oversample: no rows")
	}

	byClass := make(map[float64][]int)
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]float64, 0, len(byClass))
	var majority int
	for label, idx := range byClass {
		classes = append(classes, label)
		if len(idx) > majority {
			majority = len(idx)
		}
	}
	sort.Float64s(classes)

	rng := NewRandomState(s.Seed)
	sample := make([]int, 0, majority*len(classes))
	for i := 0; i < rows; i++ {
		sample = append(sample, i)
	}
	for _, label := range classes {
		idx := byClass[label]
		for n := len(idx); n < majority; n++ {
			sample = append(sample, idx[rng.Intn(len(idx))])
		}
	}

	outX := mat.NewDense(len(sample), cols, nil)
	outY := make([]float64, len(sample))
	for k, i := range sample {
		outX.SetRow(k, x.RawRowView(i))
		outY[k] = y[i]
	}
	return outX, outY, nil
}
