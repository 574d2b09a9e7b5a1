package learn

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"
)

// exactKSMaxN is the largest sample size for which the two-sided p-value is
// computed exactly; larger samples use the asymptotic distribution.
const exactKSMaxN = 10000

// KS2Samp runs a two-sided two-sample Kolmogorov-Smirnov test. NaN values are
// dropped first. The p-value is exact when both samples have at most
// exactKSMaxN values and asymptotic otherwise.
func KS2Samp(a, b []float64) (statistic, pvalue float64, err error) {
	x := sortedFinite(a)
	y := sortedFinite(b)
	if len(x) == 0 || len(y) == 0 {
		return 0, 0, eris.Errorf("ks test: empty sample (%d, %d values)", len(x), len(y))
	}

	d := clamp01(stat.KolmogorovSmirnov(x, nil, y, nil))
	if max(len(x), len(y)) <= exactKSMaxN {
		return d, ksExactPValue(len(x), len(y), d), nil
	}
	n1, n2 := float64(len(x)), float64(len(y))
	en := math.Sqrt(n1 * n2 / (n1 + n2))
	return d, clamp01(kolmogorovQ((en + 0.12 + 0.11/en) * d)), nil
}

// ksExactPValue returns P(D >= d) for samples of size m and n under the null
// hypothesis. It counts the monotone lattice paths from (0,0) to (m,n) that
// stay strictly inside |i/m - j/n| < d, each count normalised by C(i+j, j)
// so the recurrence stays in [0, 1].
func ksExactPValue(m, n int, d float64) float64 {
	if d <= 0 {
		return 1
	}
	// d is a multiple of 1/(m*n), so the boundary test runs on integers.
	h := int64(math.Round(d * float64(m) * float64(n)))
	u := make([]float64, n+1)
	for i := 0; i <= m; i++ {
		for j := 0; j <= n; j++ {
			diff := int64(i)*int64(n) - int64(j)*int64(m)
			if diff < 0 {
				diff = -diff
			}
			switch {
			case diff >= h:
				u[j] = 0
			case i == 0 && j == 0:
				u[j] = 1
			default:
				var v float64
				if i > 0 {
					v += u[j] * float64(i) / float64(i+j)
				}
				if j > 0 {
					v += u[j-1] * float64(j) / float64(i+j)
				}
				u[j] = v
			}
		}
	}
	return clamp01(1 - u[n])
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func sortedFinite(v []float64) []float64 {
	out := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	sort.Float64s(out)
	return out
}

// kolmogorovQ is the survival function of the Kolmogorov distribution,
// Q(λ) = 2 Σ (-1)^(j-1) exp(-2 j² λ²). It returns 1 when the series does
// not converge.
func kolmogorovQ(lambda float64) float64 {
	const (
		eps1 = 1e-3
		eps2 = 1e-8
	)
	a2 := -2 * lambda * lambda
	fac := 2.0
	var sum, prev float64
	for j := 1; j <= 100; j++ {
		term := fac * math.Exp(a2*float64(j*j))
		sum += term
		if math.Abs(term) <= eps1*prev || math.Abs(term) <= eps2*sum {
			return sum
		}
		fac = -fac
		prev = math.Abs(term)
	}
	return 1
}
