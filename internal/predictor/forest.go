package predictor

import (
	"math/rand/v2"
	"sort"
)

const defaultTrees = 200

// Forest is a bagged ensemble of CART regression trees. Every random choice
// (bootstrap rows, feature subsets) comes from a PCG stream seeded by
// Options.Seed, so fitting is reproducible.
type Forest struct {
	opts  Options
	trees []*node
	width int
}

type node struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *node
	right     *node
}

// NewForest returns an unfitted forest. Zero Trees or MinSamplesLeaf take
// the defaults of 200 trees and 1 sample per leaf.
func NewForest(opts Options) *Forest {
	if opts.Trees <= 0 {
		opts.Trees = defaultTrees
	}
	if opts.MinSamplesLeaf <= 0 {
		opts.MinSamplesLeaf = 1
	}
	return &Forest{opts: opts}
}

// Name identifies the backend in logs and reports.
func (f *Forest) Name() string { return KindRandomForest.String() }

// Fit grows Options.Trees trees, each on a bootstrap sample of the rows.
func (f *Forest) Fit(X [][]float64, y []float64) error {
	n, p, err := shape("predictor.forest", X, y)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(f.opts.Seed, f.opts.Seed^0x9e3779b97f4a7c15))
	g := &grower{X: X, y: y, width: p, opts: f.opts, rng: rng}

	f.trees = make([]*node, f.opts.Trees)
	sample := make([]int, n)
	for t := range f.trees {
		for i := range sample {
			sample[i] = rng.IntN(n)
		}
		f.trees[t] = g.grow(append([]int(nil), sample...), 0)
	}
	f.width = p
	return nil
}

// Predict averages the trees' predictions for each row of X.
func (f *Forest) Predict(X [][]float64) ([]float64, error) {
	if err := checkPredict("predictor.forest", len(f.trees) > 0, f.width, X); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		sum := 0.0
		for _, t := range f.trees {
			sum += t.predict(row)
		}
		out[i] = sum / float64(len(f.trees))
	}
	return out, nil
}

func (n *node) predict(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// grower builds one tree at a time from shared training data.
type grower struct {
	X     [][]float64
	y     []float64
	width int
	opts  Options
	rng   *rand.Rand
}

func (g *grower) grow(idx []int, depth int) *node {
	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		sum += g.y[i]
		sumSq += g.y[i] * g.y[i]
	}
	cnt := float64(len(idx))
	leaf := &node{leaf: true, value: sum / cnt}

	if len(idx) < 2*g.opts.MinSamplesLeaf || (g.opts.MaxDepth > 0 && depth >= g.opts.MaxDepth) {
		return leaf
	}
	parentSSE := sumSq - sum*sum/cnt
	if parentSSE <= 1e-12 {
		return leaf
	}

	feature, threshold, ok := g.bestSplit(idx, parentSSE)
	if !ok {
		return leaf
	}
	var left, right []int
	for _, i := range idx {
		if g.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return leaf
	}
	return &node{
		feature:   feature,
		threshold: threshold,
		left:      g.grow(left, depth+1),
		right:     g.grow(right, depth+1),
	}
}

// bestSplit scans candidate thresholds on each considered feature and keeps
// the one with the lowest summed squared error of the two children.
func (g *grower) bestSplit(idx []int, parentSSE float64) (feature int, threshold float64, ok bool) {
	best := parentSSE
	minLeaf := g.opts.MinSamplesLeaf
	sorted := make([]int, len(idx))

	for _, j := range g.features() {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool { return g.X[sorted[a]][j] < g.X[sorted[b]][j] })

		var totSum, totSq float64
		for _, i := range sorted {
			totSum += g.y[i]
			totSq += g.y[i] * g.y[i]
		}
		var lSum, lSq float64
		for k := 0; k < len(sorted)-1; k++ {
			yi := g.y[sorted[k]]
			lSum += yi
			lSq += yi * yi
			lo, hi := g.X[sorted[k]][j], g.X[sorted[k+1]][j]
			nl, nr := k+1, len(sorted)-k-1
			if lo == hi || nl < minLeaf || nr < minLeaf {
				continue
			}
			rSum, rSq := totSum-lSum, totSq-lSq
			sse := (lSq - lSum*lSum/float64(nl)) + (rSq - rSum*rSum/float64(nr))
			if sse < best-1e-12 {
				mid := lo + (hi-lo)/2
				if mid >= hi {
					mid = lo
				}
				best, feature, threshold, ok = sse, j, mid, true
			}
		}
	}
	return feature, threshold, ok
}

func (g *grower) features() []int {
	if g.opts.MaxFeatures <= 0 || g.opts.MaxFeatures >= g.width {
		all := make([]int, g.width)
		for j := range all {
			all[j] = j
		}
		return all
	}
	return g.rng.Perm(g.width)[:g.opts.MaxFeatures]
}

var (
	_ Regressor = (*Linear)(nil)
	_ Regressor = (*Forest)(nil)
)
