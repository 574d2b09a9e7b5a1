package learn

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// KNNImputer fills NaN cells with the uniform mean of the K nearest donor
// rows that have the cell present. Distances are nan-euclidean over the
// coordinates both rows have present, scaled up by the share of missing
// coordinates. A row with no comparable donor gets the column mean; a
// column with no values at all is filled with zero.
type KNNImputer struct {
	K int
}

type donor struct {
	row  int
	dist float64
}

// FitTransform returns an imputed copy of x. Distances and donor values
// always come from the original, unimputed x.
func (imp KNNImputer) FitTransform(x *mat.Dense) *mat.Dense {
	k := imp.K
	if k <= 0 {
		k = 5
	}
	rows, cols := x.Dims()
	out := mat.DenseCopyOf(x)

	means := make([]float64, cols)
	for j := 0; j < cols; j++ {
		var sum float64
		var n int
		for i := 0; i < rows; i++ {
			if v := x.At(i, j); !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			means[j] = math.NaN()
		} else {
			means[j] = sum / float64(n)
		}
	}

	dist := make([]float64, rows)
	candidates := make([]donor, 0, rows)
	for r := 0; r < rows; r++ {
		var missing []int
		for j := 0; j < cols; j++ {
			if math.IsNaN(x.At(r, j)) {
				missing = append(missing, j)
			}
		}
		if len(missing) == 0 {
			continue
		}

		for i := 0; i < rows; i++ {
			dist[i] = nanEuclidean(x, r, i, cols)
		}

		for _, j := range missing {
			if math.IsNaN(means[j]) {
				out.Set(r, j, 0)
				continue
			}

			candidates = candidates[:0]
			allNaN := true
			for i := 0; i < rows; i++ {
				if i == r || math.IsNaN(x.At(i, j)) {
					continue
				}
				if !math.IsNaN(dist[i]) {
					allNaN = false
				}
				candidates = append(candidates, donor{row: i, dist: dist[i]})
			}
			if allNaN {
				out.Set(r, j, means[j])
				continue
			}

			sort.SliceStable(candidates, func(a, b int) bool {
				da, db := candidates[a].dist, candidates[b].dist
				if math.IsNaN(da) {
					return false
				}
				if math.IsNaN(db) {
					return true
				}
				return da < db
			})

			n := k
			if n > len(candidates) {
				n = len(candidates)
			}
			var sum, weight float64
			for _, d := range candidates[:n] {
				if math.IsNaN(d.dist) {
					continue
				}
				sum += x.At(d.row, j)
				weight++
			}
			out.Set(r, j, sum/weight)
		}
	}
	return out
}

// nanEuclidean is the euclidean distance between rows a and b over the
// coordinates present in both, scaled by cols/present. It is NaN when no
// coordinate is present in both.
func nanEuclidean(x *mat.Dense, a, b, cols int) float64 {
	var sq float64
	var present int
	for j := 0; j < cols; j++ {
		va, vb := x.At(a, j), x.At(b, j)
		if math.IsNaN(va) || math.IsNaN(vb) {
			continue
		}
		d := va - vb
		sq += d * d
		present++
	}
	if present == 0 {
		return math.NaN()
	}
	return math.Sqrt(float64(cols) / float64(present) * sq)
}
