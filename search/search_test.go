package search

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/panelcp/lpci/models"
	"github.com/panelcp/lpci/split"
)

// biasModel predicts a constant taken from its parameters for every
// quantile, so the candidate whose constant matches the target wins.
type biasModel struct {
	c  float64
	nq int
}

func (m *biasModel) Fit(x *mat.Dense, y []float64) error { return nil }

func (m *biasModel) PredictQuantiles(x *mat.Dense) (*mat.Dense, error) {
	rows, _ := x.Dims()
	out := mat.NewDense(rows, m.nq, nil)
	for i := 0; i < rows; i++ {
		for q := 0; q < m.nq; q++ {
			out.Set(i, q, m.c)
		}
	}
	return out, nil
}

func biasFactory(quantiles []float64, p models.Params) (models.Model, error) {
	return &biasModel{c: p["bias"], nq: len(quantiles)}, nil
}

func searchInputs(n int) (*mat.Dense, []float64, []int) {
	x := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	periods := make([]int, n)
	for i := 0; i < n; i++ {
		x.Set(i, 0, float64(i))
		periods[i] = i
	}
	return x, y, periods
}

func TestGridPicksMinimumPinball(t *testing.T) {
	x, y, periods := searchInputs(20)
	quantiles := []float64{0.25, 0.75}
	space := Space{"bias": {-2, 0, 3}}

	res, err := Grid(context.Background(), biasFactory, quantiles, space, x, y, periods, split.NewDefaultKFold(), 1)
	require.NoError(t, err)

	// target is identically zero, so zero bias scores a zero loss
	assert.Equal(t, 0.0, res.Params["bias"])
	assert.Equal(t, 0.0, res.Score)
}

func TestGridEnumeratesFullProduct(t *testing.T) {
	x, y, periods := searchInputs(20)
	quantiles := []float64{0.5}

	var mu sync.Mutex
	var seen []models.Params
	factory := func(qs []float64, p models.Params) (models.Model, error) {
		mu.Lock()
		seen = append(seen, p.Copy())
		mu.Unlock()
		return &biasModel{c: p["bias"], nq: len(qs)}, nil
	}

	space := Space{"bias": {0, 1}, "scale": {1, 2, 3}}
	_, err := Grid(context.Background(), factory, quantiles, space, x, y, periods, &split.KFold{NSplits: 2}, 1)
	require.NoError(t, err)

	combos := make(map[[2]float64]int)
	for _, p := range seen {
		combos[[2]float64{p["bias"], p["scale"]}]++
	}
	require.Len(t, combos, 6)
	for combo, n := range combos {
		// one factory call per fold
		assert.Equal(t, 2, n, "combo %v", combo)
	}
}

func TestGridTieBreaksDeterministically(t *testing.T) {
	x, y, periods := searchInputs(20)
	quantiles := []float64{0.5}

	// every candidate scores identically
	factory := func(qs []float64, p models.Params) (models.Model, error) {
		return &biasModel{c: 0, nq: len(qs)}, nil
	}
	space := Space{"bias": {5, 1, 3}}

	for _, nJobs := range []int{1, 3} {
		res, err := Grid(context.Background(), factory, quantiles, space, x, y, periods, &split.KFold{NSplits: 2}, nJobs)
		require.NoError(t, err)
		// first listed candidate wins the tie regardless of worker count
		assert.Equal(t, 5.0, res.Params["bias"], "nJobs=%d", nJobs)
	}
}

func TestRandomDeterministicForSeed(t *testing.T) {
	x, y, periods := searchInputs(30)
	quantiles := []float64{0.25, 0.75}
	space := Space{"bias": {-3, -1, 0, 2, 4}}

	a, err := Random(context.Background(), biasFactory, quantiles, space, x, y, periods, split.NewDefaultKFold(), 8, 42, 2)
	require.NoError(t, err)
	b, err := Random(context.Background(), biasFactory, quantiles, space, x, y, periods, split.NewDefaultKFold(), 8, 42, 2)
	require.NoError(t, err)

	assert.Equal(t, a.Params, b.Params)
	assert.Equal(t, a.Score, b.Score)
}

func TestSearchErrors(t *testing.T) {
	x, y, periods := searchInputs(10)
	quantiles := []float64{0.5}
	ctx := context.Background()

	_, err := Grid(ctx, biasFactory, quantiles, Space{}, x, y, periods, split.NewDefaultKFold(), 1)
	assert.ErrorIs(t, err, ErrEmptySpace)

	_, err = Grid(ctx, biasFactory, quantiles, Space{"bias": {}}, x, y, periods, split.NewDefaultKFold(), 1)
	assert.ErrorIs(t, err, ErrEmptySpace)

	_, err = Random(ctx, biasFactory, quantiles, Space{"bias": {1}}, x, y, periods, split.NewDefaultKFold(), 0, 1, 1)
	assert.ErrorIs(t, err, ErrNoIterations)

	_, err = Grid(ctx, biasFactory, quantiles, Space{"bias": {1}}, x, y[:5], periods, split.NewDefaultKFold(), 1)
	assert.ErrorIs(t, err, ErrLenMismatch)

	// infeasible folds surface unchanged
	_, err = Grid(ctx, biasFactory, quantiles, Space{"bias": {1}}, x, y, periods, &split.PanelSplit{NSplits: 20, TestSize: 1}, 1)
	assert.ErrorIs(t, err, split.ErrInfeasible)
}

func TestMeanPinball(t *testing.T) {
	preds := mat.NewDense(2, 2, []float64{
		0, 0,
		1, 1,
	})
	y := []float64{2, 1}
	quantiles := []float64{0.25, 0.75}

	// row 0: u=2 for both quantiles: 0.25*2 + 0.75*2 = 2
	// row 1: u=0: 0
	got := meanPinball(preds, y, quantiles)
	assert.InDelta(t, 0.5, got, 1e-12)
}
