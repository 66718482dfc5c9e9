// Package search implements the hyperparameter search capability: given a
// model factory, a parameter space, and a cross-validation splitter, find
// the parameter set minimizing mean pinball loss across the configured
// quantiles.
package search

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/panelcp/lpci/models"
	"github.com/panelcp/lpci/split"
)

var (
	ErrEmptySpace   = errors.New("empty parameter space")
	ErrNoCandidates = errors.New("no parameter candidates")
	ErrNoIterations = errors.New("number of iterations must be positive")
	ErrLenMismatch  = errors.New("target length does not match matrix rows")
)

// Space maps a parameter name to its candidate values.
type Space map[string][]float64

func (s Space) names() ([]string, error) {
	if len(s) == 0 {
		return nil, ErrEmptySpace
	}
	names := make([]string, 0, len(s))
	for name, vals := range s {
		if len(vals) == 0 {
			return nil, errors.Wrapf(ErrEmptySpace, "parameter %q has no candidate values", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Result is the outcome of a search: the best parameter assignment and its
// cross-validated mean pinball loss.
type Result struct {
	Params models.Params
	Score  float64
}

// evaluate scores one candidate across all folds.
func evaluate(ctx context.Context, factory models.Factory, quantiles []float64, p models.Params,
	x *mat.Dense, y []float64, folds []split.Fold,
) (float64, error) {
	var total float64
	for i, fold := range folds {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		m, err := factory(quantiles, p)
		if err != nil {
			return 0, err
		}
		trainX := subMatrix(x, fold.Train)
		trainY := subTarget(y, fold.Train)
		if err := m.Fit(trainX, trainY); err != nil {
			return 0, errors.Wrapf(err, "fitting fold %d", i)
		}
		preds, err := m.PredictQuantiles(subMatrix(x, fold.Test))
		if err != nil {
			return 0, errors.Wrapf(err, "predicting fold %d", i)
		}
		total += meanPinball(preds, subTarget(y, fold.Test), quantiles)
	}
	return total / float64(len(folds)), nil
}

// searchCandidates scores every candidate, bounded by the advisory worker
// count, and returns the first candidate achieving the minimum score.
func searchCandidates(ctx context.Context, factory models.Factory, quantiles []float64,
	candidates []models.Params, x *mat.Dense, y []float64, periods []int, cv split.Splitter, nJobs int,
) (Result, error) {
	if len(candidates) == 0 {
		return Result{}, ErrNoCandidates
	}
	m, _ := x.Dims()
	if len(y) != m {
		return Result{}, errors.Wrapf(ErrLenMismatch, "matrix has %d rows, target has %d", m, len(y))
	}
	folds, err := cv.Folds(periods)
	if err != nil {
		return Result{}, err
	}

	if nJobs < 1 {
		nJobs = 1
	}
	scores := make([]float64, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nJobs)
	for c, p := range candidates {
		g.Go(func() error {
			score, err := evaluate(gctx, factory, quantiles, p, x, y, folds)
			if err != nil {
				return err
			}
			scores[c] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	best := 0
	for c := 1; c < len(scores); c++ {
		if scores[c] < scores[best] {
			best = c
		}
	}
	return Result{Params: candidates[best].Copy(), Score: scores[best]}, nil
}

// meanPinball is the pinball (quantile) loss averaged over rows and
// quantiles, the multi-output scoring default for quantile regression.
func meanPinball(preds *mat.Dense, y []float64, quantiles []float64) float64 {
	rows, _ := preds.Dims()
	var total float64
	for i := 0; i < rows; i++ {
		for q, p := range quantiles {
			u := y[i] - preds.At(i, q)
			if u >= 0 {
				total += p * u
			} else {
				total += (p - 1) * u
			}
		}
	}
	return total / float64(rows*len(quantiles))
}

func subMatrix(x *mat.Dense, rows []int) *mat.Dense {
	_, n := x.Dims()
	out := mat.NewDense(len(rows), n, nil)
	for i, r := range rows {
		for j := 0; j < n; j++ {
			out.Set(i, j, x.At(r, j))
		}
	}
	return out
}

func subTarget(y []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = y[r]
	}
	return out
}
