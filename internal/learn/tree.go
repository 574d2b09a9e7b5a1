package learn

import (
	"math"
	"sort"
)

// minSplitGain is the smallest loss reduction accepted for a split.
const minSplitGain = 1e-6

// Node is one node of a regression tree. Leaves have Left == -1.
type Node struct {
	Feature     int     `json:"feature"`
	Threshold   float64 `json:"threshold"`
	DefaultLeft bool    `json:"default_left"`
	Left        int     `json:"left"`
	Right       int     `json:"right"`
	Leaf        float64 `json:"leaf"`
}

// Tree is a binary regression tree over dense rows. A row goes left when
// its feature value is below the threshold; NaN follows DefaultLeft.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict returns the leaf value reached by row.
func (t Tree) Predict(row []float64) float64 {
	id := 0
	for {
		nd := t.Nodes[id]
		if nd.Left < 0 {
			return nd.Leaf
		}
		v := row[nd.Feature]
		switch {
		case math.IsNaN(v):
			if nd.DefaultLeft {
				id = nd.Left
			} else {
				id = nd.Right
			}
		case v < nd.Threshold:
			id = nd.Left
		default:
			id = nd.Right
		}
	}
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t Tree) Depth() int {
	var walk func(id int) int
	walk = func(id int) int {
		nd := t.Nodes[id]
		if nd.Left < 0 {
			return 0
		}
		l, r := walk(nd.Left), walk(nd.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return walk(0)
}

// treeBuilder grows trees with exact greedy split finding. Feature values
// are pre-sorted once and shared by every tree of a boosting run.
type treeBuilder struct {
	cols           [][]float64
	sorted         [][]int
	maxDepth       int
	lambda         float64
	minChildWeight float64
	eta            float64
}

func newTreeBuilder(cols [][]float64, maxDepth int, lambda, minChildWeight, eta float64) *treeBuilder {
	sorted := make([][]int, len(cols))
	for f, col := range cols {
		idx := make([]int, 0, len(col))
		for i, v := range col {
			if !math.IsNaN(v) {
				idx = append(idx, i)
			}
		}
		sort.SliceStable(idx, func(a, b int) bool { return col[idx[a]] < col[idx[b]] })
		sorted[f] = idx
	}
	return &treeBuilder{
		cols:           cols,
		sorted:         sorted,
		maxDepth:       maxDepth,
		lambda:         lambda,
		minChildWeight: minChildWeight,
		eta:            eta,
	}
}

type nodeStats struct {
	g, h float64
	n    int
}

type split struct {
	ok          bool
	gain        float64
	feature     int
	threshold   float64
	defaultLeft bool
	left, right nodeStats
}

func (b *treeBuilder) score(g, h float64) float64 {
	return g * g / (h + b.lambda)
}

func (b *treeBuilder) weight(s nodeStats) float64 {
	if s.h < b.minChildWeight || s.h <= 0 {
		return 0
	}
	return -s.g / (s.h + b.lambda) * b.eta
}

// build grows one tree level by level for the given gradient pairs.
func (b *treeBuilder) build(grad, hess []float64) Tree {
	n := len(grad)
	rowNode := make([]int, n)
	root := nodeStats{n: n}
	for i := range grad {
		root.g += grad[i]
		root.h += hess[i]
	}

	t := Tree{Nodes: []Node{{Left: -1, Right: -1}}}
	stats := []nodeStats{root}
	frontier := []int{0}

	for depth := 0; len(frontier) > 0; depth++ {
		var best map[int]split
		if depth < b.maxDepth {
			best = b.findSplits(frontier, rowNode, grad, hess, stats)
		}

		var next []int
		for _, id := range frontier {
			s, ok := best[id]
			if !ok || !s.ok {
				t.Nodes[id].Leaf = b.weight(stats[id])
				continue
			}
			left := len(t.Nodes)
			t.Nodes = append(t.Nodes, Node{Left: -1, Right: -1}, Node{Left: -1, Right: -1})
			stats = append(stats, s.left, s.right)
			t.Nodes[id].Feature = s.feature
			t.Nodes[id].Threshold = s.threshold
			t.Nodes[id].DefaultLeft = s.defaultLeft
			t.Nodes[id].Left = left
			t.Nodes[id].Right = left + 1
			next = append(next, left, left+1)
		}

		for i, id := range rowNode {
			if id < 0 {
				continue
			}
			nd := t.Nodes[id]
			if nd.Left < 0 {
				rowNode[i] = -1
				continue
			}
			v := b.cols[nd.Feature][i]
			switch {
			case math.IsNaN(v):
				if nd.DefaultLeft {
					rowNode[i] = nd.Left
				} else {
					rowNode[i] = nd.Right
				}
			case v < nd.Threshold:
				rowNode[i] = nd.Left
			default:
				rowNode[i] = nd.Right
			}
		}
		frontier = next
	}
	return t
}

// findSplits returns the best split of every frontier node. Candidate
// thresholds sit halfway between consecutive distinct values. Missing values
// are tried on the left first, so the left wins ties.
func (b *treeBuilder) findSplits(frontier, rowNode []int, grad, hess []float64, stats []nodeStats) map[int]split {
	slot := make([]int, len(stats))
	for i := range slot {
		slot[i] = -1
	}
	for k, id := range frontier {
		slot[id] = k
	}
	m := len(frontier)
	best := make([]split, m)
	present := make([]nodeStats, m)
	acc := make([]nodeStats, m)
	last := make([]float64, m)
	seen := make([]bool, m)

	slotOf := func(row int) int {
		if id := rowNode[row]; id >= 0 {
			return slot[id]
		}
		return -1
	}

	for f, order := range b.sorted {
		col := b.cols[f]
		for k := range present {
			present[k] = nodeStats{}
			acc[k] = nodeStats{}
			seen[k] = false
		}
		for _, r := range order {
			if k := slotOf(r); k >= 0 {
				present[k].g += grad[r]
				present[k].h += hess[r]
				present[k].n++
			}
		}

		for _, r := range order {
			k := slotOf(r)
			if k < 0 {
				continue
			}
			v := col[r]
			if !seen[k] {
				// all present values right, missing left
				b.evaluate(&best[k], f, v, stats[frontier[k]], present[k], nodeStats{})
			}
			if seen[k] && v > last[k] {
				threshold := (last[k] + v) / 2
				if threshold <= last[k] {
					threshold = v
				}
				b.evaluate(&best[k], f, threshold, stats[frontier[k]], present[k], acc[k])
			}
			acc[k].g += grad[r]
			acc[k].h += hess[r]
			acc[k].n++
			last[k] = v
			seen[k] = true
		}

		// all present values left, missing right
		for k := range present {
			if seen[k] {
				b.evaluate(&best[k], f, math.Nextafter(last[k], math.Inf(1)), stats[frontier[k]], present[k], present[k])
			}
		}
	}

	out := make(map[int]split, m)
	for k, id := range frontier {
		out[id] = best[k]
	}
	return out
}

func (b *treeBuilder) evaluate(best *split, feature int, threshold float64, node, present, acc nodeStats) {
	var missing nodeStats
	if node.n > present.n {
		missing = nodeStats{g: node.g - present.g, h: node.h - present.h, n: node.n - present.n}
	}
	parent := b.score(node.g, node.h)

	try := func(left, right nodeStats, defaultLeft bool) {
		if left.h < b.minChildWeight || right.h < b.minChildWeight {
			return
		}
		gain := b.score(left.g, left.h) + b.score(right.g, right.h) - parent
		if gain <= minSplitGain || gain <= best.gain {
			return
		}
		*best = split{
			ok:          true,
			gain:        gain,
			feature:     feature,
			threshold:   threshold,
			defaultLeft: defaultLeft,
			left:        left,
			right:       right,
		}
	}

	rest := nodeStats{g: present.g - acc.g, h: present.h - acc.h, n: present.n - acc.n}
	try(nodeStats{g: acc.g + missing.g, h: acc.h + missing.h, n: acc.n + missing.n}, rest, true)
	if missing.n > 0 {
		try(acc, nodeStats{g: rest.g + missing.g, h: rest.h + missing.h, n: rest.n + missing.n}, false)
	}
}
