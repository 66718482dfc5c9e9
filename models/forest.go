package models

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ForestOptions are the quantile regression forest hyperparameters.
type ForestOptions struct {
	NTrees      int
	MaxDepth    int
	MinLeaf     int
	MaxFeatures float64 // fraction of features considered per split, (0, 1]
	Seed        uint64
}

// NewDefaultForestOptions returns the default forest settings.
func NewDefaultForestOptions() *ForestOptions {
	return &ForestOptions{
		NTrees:      100,
		MaxDepth:    8,
		MinLeaf:     3,
		MaxFeatures: 1.0,
	}
}

// Apply overlays a flat parameter assignment onto the options. Unknown
// parameter names are an error so a mistyped search space fails fast.
func (o *ForestOptions) Apply(p Params) error {
	for name, v := range p {
		switch name {
		case "n_trees":
			o.NTrees = int(v)
		case "max_depth":
			o.MaxDepth = int(v)
		case "min_leaf":
			o.MinLeaf = int(v)
		case "max_features":
			o.MaxFeatures = v
		case "seed":
			o.Seed = uint64(v)
		default:
			return errors.Wrapf(ErrUnknownParam, "parameter %q", name)
		}
	}
	return nil
}

// QuantileForest is a quantile regression forest: an ensemble of
// bootstrapped regression trees whose leaves retain the training targets
// that reached them. Prediction pools the leaf targets of all trees for an
// observation and reads empirical quantiles off the pooled distribution.
type QuantileForest struct {
	opt       *ForestOptions
	quantiles []float64

	trees    []*treeNode
	trainY   []float64
	features int
}

type treeNode struct {
	feature int
	thresh  float64
	left    *treeNode
	right   *treeNode
	samples []int // indices into trainY, leaves only
}

// NewQuantileForest creates an unfitted forest for the given quantile set.
func NewQuantileForest(quantiles []float64, opt *ForestOptions) (*QuantileForest, error) {
	if err := validQuantiles(quantiles); err != nil {
		return nil, err
	}
	if opt == nil {
		opt = NewDefaultForestOptions()
	}
	if opt.NTrees < 1 {
		return nil, errors.Newf("n_trees must be positive, got %d", opt.NTrees)
	}
	if opt.MaxDepth < 1 {
		return nil, errors.Newf("max_depth must be positive, got %d", opt.MaxDepth)
	}
	if opt.MinLeaf < 1 {
		return nil, errors.Newf("min_leaf must be positive, got %d", opt.MinLeaf)
	}
	if opt.MaxFeatures < 0 || opt.MaxFeatures > 1 {
		return nil, errors.Newf("max_features must be in (0, 1], got %f", opt.MaxFeatures)
	}
	qs := make([]float64, len(quantiles))
	copy(qs, quantiles)
	return &QuantileForest{
		opt:       opt,
		quantiles: qs,
	}, nil
}

// NewQuantileForestFromParams is the Factory for the built-in backend.
func NewQuantileForestFromParams(quantiles []float64, p Params) (Model, error) {
	opt := NewDefaultForestOptions()
	if err := opt.Apply(p); err != nil {
		return nil, err
	}
	return NewQuantileForest(quantiles, opt)
}

// Quantiles returns the configured quantile set.
func (qf *QuantileForest) Quantiles() []float64 {
	out := make([]float64, len(qf.quantiles))
	copy(out, qf.quantiles)
	return out
}

// Fit trains the forest on the feature matrix and target.
func (qf *QuantileForest) Fit(x *mat.Dense, y []float64) error {
	if x == nil {
		return ErrNoTrainingMatrix
	}
	m, n := x.Dims()
	if m == 0 {
		return ErrNoTrainingMatrix
	}
	if len(y) != m {
		return errors.Wrapf(ErrTargetLenMismatch, "matrix has %d rows, target has %d", m, len(y))
	}

	qf.trainY = make([]float64, m)
	copy(qf.trainY, y)
	qf.features = n
	qf.trees = make([]*treeNode, qf.opt.NTrees)

	nSplitFeatures := int(math.Round(qf.opt.MaxFeatures * float64(n)))
	if nSplitFeatures < 1 || nSplitFeatures > n {
		nSplitFeatures = n
	}

	rng := rand.New(rand.NewPCG(qf.opt.Seed, qf.opt.Seed+1))
	for t := range qf.trees {
		boot := make([]int, m)
		for i := range boot {
			boot[i] = rng.IntN(m)
		}
		qf.trees[t] = qf.grow(x, boot, 0, nSplitFeatures, rng)
	}
	return nil
}

func (qf *QuantileForest) grow(x *mat.Dense, samples []int, depth, nSplitFeatures int, rng *rand.Rand) *treeNode {
	if depth >= qf.opt.MaxDepth || len(samples) < 2*qf.opt.MinLeaf || constantTarget(qf.trainY, samples) {
		return &treeNode{feature: -1, samples: samples}
	}

	featIdx := rng.Perm(qf.features)[:nSplitFeatures]
	bestFeat, bestThresh, bestGain := -1, 0.0, 0.0
	for _, j := range featIdx {
		thresh, gain, ok := qf.bestSplit(x, samples, j)
		if ok && gain > bestGain {
			bestFeat, bestThresh, bestGain = j, thresh, gain
		}
	}
	if bestFeat < 0 {
		return &treeNode{feature: -1, samples: samples}
	}

	var left, right []int
	for _, i := range samples {
		if x.At(i, bestFeat) <= bestThresh {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < qf.opt.MinLeaf || len(right) < qf.opt.MinLeaf {
		return &treeNode{feature: -1, samples: samples}
	}
	return &treeNode{
		feature: bestFeat,
		thresh:  bestThresh,
		left:    qf.grow(x, left, depth+1, nSplitFeatures, rng),
		right:   qf.grow(x, right, depth+1, nSplitFeatures, rng),
	}
}

// bestSplit scans the sorted values of feature j for the threshold with the
// largest sum-of-squares reduction that respects the minimum leaf size.
func (qf *QuantileForest) bestSplit(x *mat.Dense, samples []int, j int) (float64, float64, bool) {
	type obs struct {
		v float64
		y float64
	}
	ordered := make([]obs, len(samples))
	for i, s := range samples {
		ordered[i] = obs{v: x.At(s, j), y: qf.trainY[s]}
	}
	sort.Slice(ordered, func(a, b int) bool { return ordered[a].v < ordered[b].v })

	n := len(ordered)
	var total, totalSq float64
	for _, o := range ordered {
		total += o.y
		totalSq += o.y * o.y
	}
	parentSSE := totalSq - total*total/float64(n)

	var leftSum, leftSq float64
	bestGain, bestThresh := 0.0, 0.0
	found := false
	for i := 0; i < n-1; i++ {
		leftSum += ordered[i].y
		leftSq += ordered[i].y * ordered[i].y
		if ordered[i].v == ordered[i+1].v {
			continue
		}
		nl, nr := i+1, n-i-1
		if nl < qf.opt.MinLeaf || nr < qf.opt.MinLeaf {
			continue
		}
		rightSum := total - leftSum
		rightSq := totalSq - leftSq
		sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
		if gain := parentSSE - sse; gain > bestGain {
			bestGain = gain
			bestThresh = (ordered[i].v + ordered[i+1].v) / 2
			found = true
		}
	}
	return bestThresh, bestGain, found
}

func constantTarget(y []float64, samples []int) bool {
	first := y[samples[0]]
	for _, i := range samples[1:] {
		if y[i] != first {
			return false
		}
	}
	return true
}

// PredictQuantiles returns the conditional quantile estimates for each row,
// one column per configured quantile.
func (qf *QuantileForest) PredictQuantiles(x *mat.Dense) (*mat.Dense, error) {
	if qf.trees == nil {
		return nil, ErrNotFitted
	}
	if x == nil {
		return nil, ErrNoTrainingMatrix
	}
	m, n := x.Dims()
	if n != qf.features {
		return nil, errors.Wrapf(ErrFeatureMismatch, "fitted on %d features, got %d", qf.features, n)
	}

	out := mat.NewDense(m, len(qf.quantiles), nil)
	row := make([]float64, qf.features)
	for i := 0; i < m; i++ {
		mat.Row(row, i, x)
		var pooled []float64
		for _, tree := range qf.trees {
			leaf := tree.locate(row)
			for _, s := range leaf.samples {
				pooled = append(pooled, qf.trainY[s])
			}
		}
		sort.Float64s(pooled)
		for q, p := range qf.quantiles {
			out.Set(i, q, stat.Quantile(p, stat.Empirical, pooled, nil))
		}
	}
	return out, nil
}

func (t *treeNode) locate(row []float64) *treeNode {
	cur := t
	for cur.feature >= 0 {
		if row[cur.feature] <= cur.thresh {
			cur = cur.left
		} else {
			cur = cur.right
		}
	}
	return cur
}
