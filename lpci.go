// Package lpci builds distribution-free prediction intervals for point
// forecasts on panel data. Non-conformity scores (residuals) are modeled
// as a function of their own lagged history by a quantile regression
// model, one model per walk-forward panel split, and the calibrated
// quantile predictions are converted into the narrowest valid interval per
// observation.
package lpci

import (
	"context"
	"math"
	"runtime"
	"sort"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/panelcp/lpci/feature"
	"github.com/panelcp/lpci/interval"
	"github.com/panelcp/lpci/models"
	"github.com/panelcp/lpci/panel"
	"github.com/panelcp/lpci/search"
	"github.com/panelcp/lpci/split"
)

var (
	ErrInvalidNJobs        = errors.New("n_jobs must be -1 or a positive integer")
	ErrUnknownSearchMethod = errors.New("unknown search method")
	ErrBadCV               = errors.New("cv must be a panel splitter, a k-fold splitter, or a fold count")
	ErrNotFit              = errors.New("no fit results; call FitPredict first")
)

// LPCI orchestrates the interval pipeline over a concatenated calibration
// and test panel: feature assembly at construction, optional tuning, and a
// per-split fit with parallel prediction.
type LPCI struct {
	opt *Options

	frame    *panel.Frame
	features []string
	target   string

	// testStart is the earliest period of the test frame; rows from that
	// period on are never visible to tuning.
	testStart int

	bestParams models.Params
	fitted     []models.Model
	folds      []split.Fold
	results    *Results
}

// New concatenates the calibration and test frames and runs the feature
// pipeline: residual scoring, optional outlier filtering, delay-aware lag
// construction, and categorical encoding. The frames must share no
// (unit, period) key; the test frame's earliest period marks the boundary
// tuning may never cross.
func New(calib, test *panel.Frame, opt *Options) (*LPCI, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if opt.Factory == nil {
		opt.Factory = models.NewQuantileForestFromParams
	}
	if opt.SplitOptions == nil {
		opt.SplitOptions = split.NewDefaultPanelSplit()
	}

	full, err := panel.Concat(calib, test)
	if err != nil {
		return nil, errors.Wrap(err, "building panel")
	}
	testStart := test.Period[0]
	for _, p := range test.Period[1:] {
		if p < testStart {
			testStart = p
		}
	}

	assembled, features, target, err := feature.Assemble(full, &feature.AssembleOptions{
		WindowSize: opt.WindowSize,
		EvalDelay:  opt.EvalDelay,
		Decay:      opt.Decay,
		Adjust:     opt.Adjust,
		FillNA:     opt.FillNA,
		Score:      opt.Score,
		Outliers:   opt.Outliers,
		Encodings:  opt.Encodings,
		Logger:     opt.Logger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "assembling features")
	}

	return &LPCI{
		opt:       opt,
		frame:     assembled,
		features:  features,
		target:    target,
		testStart: testStart,
	}, nil
}

// Frame returns the assembled feature frame.
func (l *LPCI) Frame() *panel.Frame {
	return l.frame
}

// Features returns the model feature column names.
func (l *LPCI) Features() []string {
	return append([]string{}, l.features...)
}

// Models returns the fitted per-split models from the last FitPredict.
func (l *LPCI) Models() []models.Model {
	return append([]models.Model{}, l.fitted...)
}

// TuneConfig configures hyperparameter search over the calibration rows.
type TuneConfig struct {
	// Method selects the search capability: "grid" (default) or "random".
	Method string
	Space  search.Space

	// CV is either a *split.PanelSplit for leakage-free temporal folds or
	// a plain int fold count for conventional k-fold partitioning. The
	// panel-aware form needs at least NSplits*TestSize+Gap+1 distinct
	// calibration periods after feature construction; the k-fold form
	// trades temporal safety for feasibility with short calibration
	// windows. Nil defaults to five-fold.
	CV any

	// NIter and Seed apply to randomized search only.
	NIter int
	Seed  uint64

	NJobs int

	// Refit trains a model with the best parameters on every calibration
	// row and returns it in the result.
	Refit bool
}

// TuneResult is the outcome of hyperparameter search.
type TuneResult struct {
	Params    models.Params
	Score     float64
	Quantiles []float64
	Best      models.Model // set when Refit was requested
}

// Tune searches the parameter space restricted to calibration rows; test
// period rows never enter the search. The winning parameters are retained
// and used by the next FitPredict.
func (l *LPCI) Tune(ctx context.Context, cfg *TuneConfig) (*TuneResult, error) {
	if cfg == nil {
		return nil, errors.New("no tune config")
	}

	qs, err := interval.Quantiles(l.opt.Alpha, l.opt.NQuantiles)
	if err != nil {
		return nil, err
	}

	var calibRows []int
	for i := 0; i < l.frame.Len(); i++ {
		if l.frame.Period[i] < l.testStart && !math.IsNaN(l.frame.Residual[i]) {
			calibRows = append(calibRows, i)
		}
	}
	if len(calibRows) == 0 {
		return nil, errors.New("no calibration rows with observed residuals")
	}
	calib := l.frame.Select(calibRows)

	x, err := feature.Matrix(calib, l.features, nil)
	if err != nil {
		return nil, err
	}
	y, err := feature.Target(calib, l.target, nil)
	if err != nil {
		return nil, err
	}

	cv, err := resolveCV(cfg.CV)
	if err != nil {
		return nil, err
	}

	var res search.Result
	switch cfg.Method {
	case "", "grid":
		res, err = search.Grid(ctx, l.opt.Factory, qs, cfg.Space, x, y, calib.Period, cv, cfg.NJobs)
	case "random":
		res, err = search.Random(ctx, l.opt.Factory, qs, cfg.Space, x, y, calib.Period, cv, cfg.NIter, cfg.Seed, cfg.NJobs)
	default:
		err = errors.Wrapf(ErrUnknownSearchMethod, "method %q", cfg.Method)
	}
	if err != nil {
		return nil, err
	}

	out := &TuneResult{
		Params:    res.Params,
		Score:     res.Score,
		Quantiles: qs,
	}
	if cfg.Refit {
		best, err := l.opt.Factory(qs, res.Params)
		if err != nil {
			return nil, err
		}
		if err := best.Fit(x, y); err != nil {
			return nil, errors.Wrap(err, "refitting best parameters")
		}
		out.Best = best
	}

	l.bestParams = res.Params
	return out, nil
}

func resolveCV(cv any) (split.Splitter, error) {
	switch v := cv.(type) {
	case nil:
		return split.NewDefaultKFold(), nil
	case *split.PanelSplit:
		return v, nil
	case *split.KFold:
		return v, nil
	case int:
		return &split.KFold{NSplits: v}, nil
	}
	return nil, errors.Wrapf(ErrBadCV, "cv type %T", cv)
}

// FitPredict fits one quantile model per walk-forward split, predicts each
// split's test rows across a bounded worker pool, and assembles the
// selected intervals merged back against the original point predictions.
func (l *LPCI) FitPredict(ctx context.Context) (*Results, error) {
	qs, err := interval.Quantiles(l.opt.Alpha, l.opt.NQuantiles)
	if err != nil {
		return nil, err
	}
	workers, err := workerCount(l.opt.NJobs)
	if err != nil {
		return nil, err
	}

	ps := &split.PanelSplit{
		Gap:      l.opt.SplitOptions.Gap,
		TestSize: l.opt.SplitOptions.TestSize,
	}
	nSplits, err := ps.FeasibleSplits(l.frame.Period, l.testStart)
	if err != nil {
		return nil, err
	}
	ps.NSplits = nSplits

	folds, err := ps.Folds(l.frame.Period)
	if err != nil {
		return nil, err
	}

	params := l.bestParams
	fitted, err := split.CrossValFit(folds, func(s int, fold split.Fold) (models.Model, error) {
		m, err := l.opt.Factory(qs, l.fitParams(params))
		if err != nil {
			return nil, err
		}
		train := observedRows(l.frame, fold.Train)
		if len(train) == 0 {
			return nil, errors.Newf("split %d has no train rows with observed residuals", s)
		}
		x, err := feature.Matrix(l.frame, l.features, train)
		if err != nil {
			return nil, err
		}
		y, err := feature.Target(l.frame, l.target, train)
		if err != nil {
			return nil, err
		}
		if err := m.Fit(x, y); err != nil {
			return nil, err
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	l.fitted = fitted
	l.folds = folds

	// Each prediction task owns its split's fitted model, feature slice,
	// and split index; results are keyed by split index so reassembly is
	// independent of completion order. The first failure cancels the
	// whole batch.
	type splitResult struct {
		preds   [][]float64
		records []interval.Record
	}
	results := make([]splitResult, len(folds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for s, fold := range folds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			x, err := feature.Matrix(l.frame, l.features, fold.Test)
			if err != nil {
				return err
			}
			preds, err := l.fitted[s].PredictQuantiles(x)
			if err != nil {
				return errors.Wrapf(err, "predicting split %d", s)
			}
			records, err := interval.Select(preds, qs)
			if err != nil {
				return errors.Wrapf(err, "selecting intervals for split %d", s)
			}
			rows, cols := preds.Dims()
			raw := make([][]float64, rows)
			for i := 0; i < rows; i++ {
				raw[i] = make([]float64, cols)
				copy(raw[i], preds.RawRowView(i))
			}
			results[s] = splitResult{preds: raw, records: records}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Results{
		Alpha:     l.opt.Alpha,
		Quantiles: qs,
	}
	for s, fold := range folds {
		for j, r := range fold.Test {
			rec := results[s].records[j]
			out.Rows = append(out.Rows, Row{
				Unit:          l.frame.Unit[r],
				Period:        l.frame.Period[r],
				Split:         s,
				Pred:          l.frame.Pred[r],
				Actual:        l.frame.Actual[r],
				QuantilePreds: results[s].preds[j],
				LowerResidual: rec.Lower,
				UpperResidual: rec.Upper,
				LowerProb:     rec.LowerProb,
				UpperProb:     rec.UpperProb,
				Lower:         l.frame.Pred[r] + rec.Lower,
				Upper:         l.frame.Pred[r] + rec.Upper,
			})
		}
	}
	sort.SliceStable(out.Rows, func(a, b int) bool {
		if out.Rows[a].Unit != out.Rows[b].Unit {
			return out.Rows[a].Unit < out.Rows[b].Unit
		}
		return out.Rows[a].Period < out.Rows[b].Period
	})

	l.results = out
	return out, nil
}

// Results returns the interval table from the last FitPredict.
func (l *LPCI) Results() (*Results, error) {
	if l.results == nil {
		return nil, ErrNotFit
	}
	return l.results, nil
}

func (l *LPCI) fitParams(p models.Params) models.Params {
	if p != nil {
		return p
	}
	if l.opt.ForestOptions == nil {
		return nil
	}
	// Express the configured forest options as flat parameters so any
	// factory honoring the built-in names can consume them.
	return models.Params{
		"n_trees":      float64(l.opt.ForestOptions.NTrees),
		"max_depth":    float64(l.opt.ForestOptions.MaxDepth),
		"min_leaf":     float64(l.opt.ForestOptions.MinLeaf),
		"max_features": l.opt.ForestOptions.MaxFeatures,
		"seed":         float64(l.opt.ForestOptions.Seed),
	}
}

// workerCount validates n_jobs before any pool is created.
func workerCount(nJobs int) (int, error) {
	switch {
	case nJobs == -1:
		return runtime.NumCPU(), nil
	case nJobs >= 1:
		return nJobs, nil
	}
	return 0, errors.Wrapf(ErrInvalidNJobs, "n_jobs %d", nJobs)
}

func observedRows(f *panel.Frame, rows []int) []int {
	var out []int
	for _, r := range rows {
		if !math.IsNaN(f.Residual[r]) {
			out = append(out, r)
		}
	}
	return out
}
