package interval

import (
	"sort"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
)

var ErrPredShapeMismatch = errors.New("prediction columns do not match quantile set")

// Record is the selected interval for one observation: the chosen residual
// bounds and the symmetric quantile pair that produced them.
type Record struct {
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
	LowerProb float64 `json:"lower_prob"`
	UpperProb float64 `json:"upper_prob"`
	Pair      int     `json:"pair"`
}

// Select converts raw quantile predictions of shape (rows, len(qs)) into
// one Record per row. Quantile index i pairs with index len-1-i; per row
// the pair with minimum width wins, ties broken by the first (widest
// coverage) pair. Predicted quantiles are sorted per row before pairing so
// crossing quantile estimates, a known quantile regression pathology,
// cannot produce an interval with upper below lower.
func Select(preds *mat.Dense, qs []float64) ([]Record, error) {
	if err := ValidateSet(qs); err != nil {
		return nil, err
	}
	rows, cols := preds.Dims()
	if cols != len(qs) {
		return nil, errors.Wrapf(ErrPredShapeMismatch, "have %d columns, quantile set has %d", cols, len(qs))
	}

	half := len(qs) / 2
	out := make([]Record, rows)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, preds)
		sort.Float64s(row)

		best := 0
		bestWidth := row[cols-1] - row[0]
		for p := 1; p < half; p++ {
			if w := row[cols-1-p] - row[p]; w < bestWidth {
				best = p
				bestWidth = w
			}
		}
		out[i] = Record{
			Lower:     row[best],
			Upper:     row[cols-1-best],
			LowerProb: qs[best],
			UpperProb: qs[cols-1-best],
			Pair:      best,
		}
	}
	return out, nil
}
