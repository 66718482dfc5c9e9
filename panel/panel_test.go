package panel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSortsByUnitAndPeriod(t *testing.T) {
	f, err := New(
		[]string{"wa", "ca", "wa", "ca"},
		[]int{2001, 2002, 2000, 2001},
		[]float64{1, 2, 3, 4},
		[]float64{1.5, 2.5, 3.5, 4.5},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"ca", "ca", "wa", "wa"}, f.Unit)
	assert.Equal(t, []int{2001, 2002, 2000, 2001}, f.Period)
	assert.Equal(t, []float64{4, 2, 3, 1}, f.Pred)
}

func TestNewErrors(t *testing.T) {
	testData := map[string]struct {
		units   []string
		periods []int
		preds   []float64
		actuals []float64
		err     error
	}{
		"empty": {
			err: ErrNoRows,
		},
		"length mismatch": {
			units:   []string{"ca", "wa"},
			periods: []int{2000},
			preds:   []float64{1, 2},
			actuals: []float64{1, 2},
			err:     ErrLenMismatch,
		},
		"duplicate key": {
			units:   []string{"ca", "ca"},
			periods: []int{2000, 2000},
			preds:   []float64{1, 2},
			actuals: []float64{1, 2},
			err:     ErrDuplicateRow,
		},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := New(td.units, td.periods, td.preds, td.actuals)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestScore(t *testing.T) {
	f, err := New(
		[]string{"ca", "ca", "ca"},
		[]int{2000, 2001, 2002},
		[]float64{10, 10, 10},
		[]float64{12, 7, math.NaN()},
	)
	require.NoError(t, err)

	signed, err := f.Score(ScoreSigned)
	require.NoError(t, err)
	assert.Equal(t, 2.0, signed.Residual[0])
	assert.Equal(t, -3.0, signed.Residual[1])
	assert.True(t, math.IsNaN(signed.Residual[2]))

	abs, err := f.Score(ScoreAbsolute)
	require.NoError(t, err)
	assert.Equal(t, 2.0, abs.Residual[0])
	assert.Equal(t, 3.0, abs.Residual[1])

	// the source frame is untouched
	assert.True(t, math.IsNaN(f.Residual[0]))

	_, err = f.Score(ScoreKind(99))
	assert.ErrorIs(t, err, ErrUnknownScore)
}

func TestConcatRejectsDuplicateKeys(t *testing.T) {
	calib, err := New([]string{"ca"}, []int{2000}, []float64{1}, []float64{1})
	require.NoError(t, err)
	test, err := New([]string{"ca"}, []int{2000}, []float64{2}, []float64{math.NaN()})
	require.NoError(t, err)

	_, err = Concat(calib, test)
	assert.ErrorIs(t, err, ErrDuplicateRow)
}

func TestWithColumn(t *testing.T) {
	f, err := New([]string{"ca", "ca"}, []int{2000, 2001}, []float64{1, 2}, []float64{1, 2})
	require.NoError(t, err)

	g, err := f.WithColumn("lagged", []float64{0.1, 0.2})
	require.NoError(t, err)

	vals, ok := g.Values("lagged")
	require.True(t, ok)
	assert.Equal(t, []float64{0.1, 0.2}, vals)
	assert.Equal(t, []string{"lagged"}, g.Columns())

	// original frame has no derived column
	_, ok = f.Values("lagged")
	assert.False(t, ok)

	_, err = g.WithColumn("lagged", []float64{0, 0})
	assert.ErrorIs(t, err, ErrColumnExists)

	_, err = g.WithColumn("short", []float64{0})
	assert.ErrorIs(t, err, ErrLenMismatch)
}

func TestUnitSpansAndUniquePeriods(t *testing.T) {
	f, err := New(
		[]string{"wa", "ca", "wa", "ca", "or"},
		[]int{2000, 2001, 2001, 2000, 2000},
		make([]float64, 5),
		make([]float64, 5),
	)
	require.NoError(t, err)

	spans := f.UnitSpans()
	require.Len(t, spans, 3)
	assert.Equal(t, Span{Unit: "ca", Start: 0, End: 2}, spans[0])
	assert.Equal(t, Span{Unit: "or", Start: 2, End: 3}, spans[1])
	assert.Equal(t, Span{Unit: "wa", Start: 3, End: 5}, spans[2])

	assert.Equal(t, []int{2000, 2001}, f.UniquePeriods())
}

func TestSelect(t *testing.T) {
	f, err := New(
		[]string{"ca", "ca", "wa"},
		[]int{2000, 2001, 2000},
		[]float64{1, 2, 3},
		[]float64{4, 5, 6},
	)
	require.NoError(t, err)
	f, err = f.WithColumn("extra", []float64{7, 8, 9})
	require.NoError(t, err)

	sub := f.Select([]int{0, 2})
	assert.Equal(t, []string{"ca", "wa"}, sub.Unit)
	assert.Equal(t, []float64{1, 3}, sub.Pred)
	vals, ok := sub.Values("extra")
	require.True(t, ok)
	assert.Equal(t, []float64{7, 9}, vals)
}

func TestFilterOutliers(t *testing.T) {
	units := make([]string, 21)
	periods := make([]int, 21)
	preds := make([]float64, 21)
	actuals := make([]float64, 21)
	for i := range units {
		units[i] = "ca"
		periods[i] = 2000 + i
		actuals[i] = float64(i % 5)
	}
	// one wild residual
	actuals[10] = 500

	f, err := New(units, periods, preds, actuals)
	require.NoError(t, err)
	scored, err := f.Score(ScoreSigned)
	require.NoError(t, err)

	filtered := scored.FilterOutliers(NewDefaultOutlierOptions())
	assert.True(t, math.IsNaN(filtered.Residual[10]))

	var n int
	for _, r := range filtered.Residual {
		if !math.IsNaN(r) {
			n++
		}
	}
	assert.Greater(t, n, 10)
}
