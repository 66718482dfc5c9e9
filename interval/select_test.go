package interval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSelectNarrowestPair(t *testing.T) {
	qs, err := Quantiles(0.1, 2)
	require.NoError(t, err)

	// outer pair width 8, inner pair width 2
	preds := mat.NewDense(1, 4, []float64{-4, -1, 1, 4})
	recs, err := Select(preds, qs)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.Equal(t, -1.0, recs[0].Lower)
	assert.Equal(t, 1.0, recs[0].Upper)
	assert.Equal(t, 1, recs[0].Pair)
	assert.InDelta(t, 0.075, recs[0].LowerProb, 1e-12)
	assert.InDelta(t, 0.925, recs[0].UpperProb, 1e-12)
}

func TestSelectTieTakesWidestCoverage(t *testing.T) {
	qs, err := Quantiles(0.1, 2)
	require.NoError(t, err)

	// both pairs have width 4
	preds := mat.NewDense(1, 4, []float64{-2, -2, 2, 2})
	recs, err := Select(preds, qs)
	require.NoError(t, err)

	assert.Equal(t, 0, recs[0].Pair)
	assert.InDelta(t, 0.025, recs[0].LowerProb, 1e-12)
	assert.InDelta(t, 0.975, recs[0].UpperProb, 1e-12)
}

func TestSelectCrossingQuantiles(t *testing.T) {
	qs, err := Quantiles(0.1, 3)
	require.NoError(t, err)

	// model emitted quantile estimates out of order
	preds := mat.NewDense(2, 6, []float64{
		3, 1, -2, 2, -1, -3,
		0.5, -0.5, 0.2, -0.2, 1, -1,
	})
	recs, err := Select(preds, qs)
	require.NoError(t, err)

	for i, rec := range recs {
		assert.GreaterOrEqual(t, rec.Upper, rec.Lower, "row %d", i)
	}
	// row 0 sorted is [-3 -2 -1 1 2 3]; innermost pair is narrowest
	assert.Equal(t, -1.0, recs[0].Lower)
	assert.Equal(t, 1.0, recs[0].Upper)
	assert.Equal(t, 2, recs[0].Pair)
}

func TestSelectExhaustiveMinimum(t *testing.T) {
	qs, err := Quantiles(0.2, 4)
	require.NoError(t, err)

	preds := mat.NewDense(1, 8, []float64{-10, -3, -2.5, -1, 1.5, 2, 8, 10})
	recs, err := Select(preds, qs)
	require.NoError(t, err)

	// widths by pair: 20, 11, 4.5, 2.5
	assert.Equal(t, 3, recs[0].Pair)
	assert.Equal(t, -1.0, recs[0].Lower)
	assert.Equal(t, 1.5, recs[0].Upper)
}

func TestSelectShapeMismatch(t *testing.T) {
	qs, err := Quantiles(0.1, 2)
	require.NoError(t, err)

	_, err = Select(mat.NewDense(1, 3, nil), qs)
	assert.ErrorIs(t, err, ErrPredShapeMismatch)

	_, err = Select(mat.NewDense(1, 4, nil), []float64{0.1, 0.2, 0.3})
	assert.ErrorIs(t, err, ErrBadQuantileCount)
}
