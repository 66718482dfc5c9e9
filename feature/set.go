package feature

import (
	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/panelcp/lpci/panel"
)

var ErrNoFeatures = errors.New("no feature columns")

// Matrix assembles the named feature columns of the frame into a dense
// matrix with one row per frame row and one column per feature, in the
// given feature order. rows selects a subset of frame rows; nil takes all.
func Matrix(f *panel.Frame, features []string, rows []int) (*mat.Dense, error) {
	if len(features) == 0 {
		return nil, ErrNoFeatures
	}
	if rows == nil {
		rows = make([]int, f.Len())
		for i := range rows {
			rows[i] = i
		}
	}

	m := len(rows)
	n := len(features)
	obs := make([]float64, m*n)
	for j, name := range features {
		vals, ok := f.Values(name)
		if !ok {
			return nil, errors.Wrapf(panel.ErrUnknownColumn, "feature %q", name)
		}
		for i, r := range rows {
			obs[i*n+j] = vals[r]
		}
	}
	return mat.NewDense(m, n, obs), nil
}

// Target extracts the target column for the given frame rows; nil rows
// takes all.
func Target(f *panel.Frame, target string, rows []int) ([]float64, error) {
	vals, ok := f.Values(target)
	if !ok {
		return nil, errors.Wrapf(panel.ErrUnknownColumn, "target %q", target)
	}
	if rows == nil {
		out := make([]float64, len(vals))
		copy(out, vals)
		return out, nil
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = vals[r]
	}
	return out, nil
}
