// Package models defines the quantile model capability consumed by the
// interval engine and provides a built-in quantile regression forest
// backend. Alternative quantile estimators plug in through the Model and
// Factory contracts without touching the engine.
package models

import (
	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoTrainingMatrix  = errors.New("no training matrix")
	ErrTargetLenMismatch = errors.New("target length does not match training rows")
	ErrNotFitted         = errors.New("model is not fitted")
	ErrNoQuantiles       = errors.New("no quantiles configured")
	ErrBadQuantile       = errors.New("quantiles must be strictly increasing in (0, 1)")
	ErrFeatureMismatch   = errors.New("number of features does not match the fitted model")
	ErrUnknownParam      = errors.New("unknown model parameter")
)

// Model is a conditional quantile estimator. Fit trains on a feature matrix
// and target; PredictQuantiles returns one row per input row and one column
// per configured quantile, in the order the quantile set was supplied.
type Model interface {
	Fit(x *mat.Dense, y []float64) error
	PredictQuantiles(x *mat.Dense) (*mat.Dense, error)
}

// Params is a flat hyperparameter assignment as produced by the search
// capability.
type Params map[string]float64

// Copy returns an independent copy of the parameter set.
func (p Params) Copy() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Factory constructs a fresh, unfitted model for the given quantile set and
// hyperparameters. The engine calls it once per panel split so fitted
// models never share state.
type Factory func(quantiles []float64, p Params) (Model, error)

func validQuantiles(qs []float64) error {
	if len(qs) == 0 {
		return ErrNoQuantiles
	}
	prev := 0.0
	for _, q := range qs {
		if q <= prev || q >= 1 {
			return errors.Wrapf(ErrBadQuantile, "quantile %f", q)
		}
		prev = q
	}
	return nil
}
