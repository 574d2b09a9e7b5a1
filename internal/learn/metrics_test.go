package learn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestF1Weighted(t *testing.T) {
	f1, err := F1Weighted([]float64{0, 1, 2, 0, 1, 2}, []float64{0, 2, 1, 0, 0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.26666666666666666, f1, 1e-12)
}

func TestF1Weighted_Perfect(t *testing.T) {
	y := []float64{3, 1, 1, 0, 2}
	f1, err := F1Weighted(y, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, f1)
}

func TestF1Weighted_PredictedOnlyLabel(t *testing.T) {
	// label 2 is only predicted: it lowers class 0's precision but carries no weight
	f1, err := F1Weighted([]float64{0, 0, 1, 1}, []float64{0, 2, 1, 1})
	require.NoError(t, err)
	// class 0: p=1 r=0.5 f1=2/3; class 1: f1=1
	assert.InDelta(t, (2.0/3.0*2+1*2)/4, f1, 1e-12)
}

func TestF1Weighted_Errors(t *testing.T) {
	_, err := F1Weighted([]float64{0}, []float64{0, 1})
	assert.Error(t, err)
	_, err = F1Weighted(nil, nil)
	assert.Error(t, err)
}

func TestErrorRate(t *testing.T) {
	rate, err := ErrorRate([]float64{0, 1, 2, 3}, []float64{0, 1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.5, rate)
}

func TestKS2Samp_SameSample(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	d, p, err := KS2Samp(a, a)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d)
	assert.Equal(t, 1.0, p)
}

func TestKS2Samp_Disjoint(t *testing.T) {
	a := make([]float64, 50)
	b := make([]float64, 50)
	for i := range a {
		a[i] = float64(i)
		b[i] = float64(i) + 1000
	}
	d, p, err := KS2Samp(a, b)
	require.NoError(t, err)
	assert.Equal(t, 1.0, d)
	assert.Less(t, p, 0.05)
}

func TestKS2Samp_IgnoresNaN(t *testing.T) {
	nan := math.NaN()
	a := []float64{nan, 3, 1, 2, nan}
	b := []float64{2, 1, 3}
	d, p, err := KS2Samp(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d)
	assert.Equal(t, 1.0, p)

	_, _, err = KS2Samp([]float64{nan}, b)
	assert.Error(t, err)
}

func TestKS2Samp_ExactSmallSample(t *testing.T) {
	// D = 0.5 for two shifted samples of four.
	d, p, err := KS2Samp([]float64{1, 2, 3, 4}, []float64{3, 4, 5, 6})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, d, 1e-12)
	assert.InDelta(t, 27.0/35.0, p, 1e-9)
}

func TestKSExactPValue(t *testing.T) {
	tests := []struct {
		name string
		m, n int
		d    float64
		want float64
	}{
		{"zero statistic", 5, 5, 0, 1},
		{"four by four", 4, 4, 0.5, 0.7714285714285714},
		{"ten by ten near cutoff", 10, 10, 0.6, 0.05244755244755244},
		{"unequal sizes", 3, 5, 0.6, 0.4642857142857143},
		{"fully separated", 50, 50, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ksExactPValue(tt.m, tt.n, tt.d), 1e-9)
		})
	}
}

func TestKS2Samp_LargeSampleUsesAsymptotic(t *testing.T) {
	a := make([]float64, exactKSMaxN+1)
	b := make([]float64, exactKSMaxN+1)
	for i := range a {
		a[i] = float64(i)
		b[i] = float64(i) + 0.5
	}
	d, p, err := KS2Samp(a, b)
	require.NoError(t, err)
	assert.LessOrEqual(t, d, 1.0)
	assert.Greater(t, p, 0.99)
}

func TestKolmogorovQ(t *testing.T) {
	assert.Equal(t, 1.0, kolmogorovQ(0))
	// Q(1) = 0.26999967...
	assert.InDelta(t, 0.2699996716773546, kolmogorovQ(1), 1e-6)
	assert.Less(t, kolmogorovQ(3), 1e-6)
}
