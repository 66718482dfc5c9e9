package feature

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/panelcp/lpci/panel"
)

var ErrNoWindow = errors.New("window size must be positive")

// AssembleOptions configures the residual-to-features pipeline.
type AssembleOptions struct {
	WindowSize int
	EvalDelay  int
	Decay      float64
	Adjust     bool
	FillNA     *float64

	Score    panel.ScoreKind
	Outliers *panel.OutlierOptions

	// Encodings defaults to one-hot encoding the unit column.
	Encodings map[string]Encoding

	Logger *zerolog.Logger
}

// NewDefaultAssembleOptions returns the default pipeline settings: signed
// residuals, a four-lag window with a one-period delay, no smoothing, and
// the unit column one-hot encoded.
func NewDefaultAssembleOptions() *AssembleOptions {
	return &AssembleOptions{
		WindowSize: 4,
		EvalDelay:  1,
		Score:      panel.ScoreSigned,
		Encodings:  map[string]Encoding{panel.ColUnit: EncodingOneHot},
	}
}

// Assemble runs the full feature pipeline over a concatenated panel:
// compute residuals, build lag features for every step in the window, drop
// rows missing any lag feature, and encode categoricals. It returns the
// assembled frame, the model feature column names, and the target column
// name. A warning is logged when the surviving distinct periods are few
// relative to the window, since that constrains split feasibility
// downstream.
func Assemble(f *panel.Frame, opt *AssembleOptions) (*panel.Frame, []string, string, error) {
	if opt == nil {
		opt = NewDefaultAssembleOptions()
	}
	if opt.WindowSize < 1 {
		return nil, nil, "", errors.Wrapf(ErrNoWindow, "window %d", opt.WindowSize)
	}
	logger := opt.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	scored, err := f.Score(opt.Score)
	if err != nil {
		return nil, nil, "", err
	}
	if opt.Outliers != nil {
		scored = scored.FilterOutliers(opt.Outliers)
	}

	lagSteps := make([]int, opt.WindowSize)
	for i := range lagSteps {
		lagSteps[i] = i + 1
	}
	lagOpt := &LagOptions{
		EvalDelay: opt.EvalDelay,
		Decay:     opt.Decay,
		Adjust:    opt.Adjust,
		FillNA:    opt.FillNA,
	}
	lagged, lagCols, err := Lag(scored, panel.ColResidual, lagSteps, lagOpt)
	if err != nil {
		return nil, nil, "", err
	}

	// Zero surviving rows is only a warning here; the splitter is where an
	// empty training range becomes fatal.
	keep := completeRows(lagged, lagCols)
	if len(keep) == 0 {
		logger.Warn().
			Int("window", opt.WindowSize).
			Int("delay", opt.EvalDelay).
			Msg("no rows with complete lag history; split construction will fail")
	}
	trimmed := lagged.Select(keep)

	encodings := opt.Encodings
	if encodings == nil {
		encodings = map[string]Encoding{panel.ColUnit: EncodingOneHot}
	}
	encoded, indCols, err := Encode(trimmed, encodings)
	if err != nil {
		return nil, nil, "", err
	}

	if remaining := len(encoded.UniquePeriods()); remaining < 2*opt.WindowSize {
		logger.Warn().
			Int("periods", remaining).
			Int("window", opt.WindowSize).
			Int("delay", opt.EvalDelay).
			Msg("few periods remain after dropping rows with incomplete lag history; panel-aware splits may be infeasible")
	}

	features := append(append([]string{}, lagCols...), indCols...)
	return encoded, features, panel.ColResidual, nil
}

// completeRows returns the indices of rows with no NaN in any of the given
// columns.
func completeRows(f *panel.Frame, cols []string) []int {
	var keep []int
	for i := 0; i < f.Len(); i++ {
		ok := true
		for _, name := range cols {
			vals, _ := f.Values(name)
			if math.IsNaN(vals[i]) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, i)
		}
	}
	return keep
}
