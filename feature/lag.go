// Package feature derives model-ready features from a panel frame: lagged
// and exponentially smoothed residual history per unit, one-hot encoded
// categoricals, and the dense matrix handed to a quantile model.
package feature

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"

	"github.com/panelcp/lpci/panel"
)

var (
	ErrNonPositiveLag  = errors.New("lag steps must be positive")
	ErrNoLagSteps      = errors.New("no lag steps requested")
	ErrNegativeDelay   = errors.New("evaluation delay must be non-negative")
	ErrBadDecay        = errors.New("decay must be in (0, 1]")
	ErrUnknownEncoding = errors.New("unknown encoding strategy")
)

// LagOptions controls how lagged history is aligned and smoothed.
//
// EvalDelay is the number of periods between a prediction being made and
// its residual becoming observable. A residual for period t is usable as a
// feature no earlier than period t+EvalDelay, so the most recent lag a row
// may legally use sits EvalDelay periods behind it rather than one.
type LagOptions struct {
	EvalDelay int
	Decay     float64
	Adjust    bool
	FillNA    *float64
}

// NewDefaultLagOptions returns lag options with a one-period delay and no
// smoothing.
func NewDefaultLagOptions() *LagOptions {
	return &LagOptions{
		EvalDelay: 1,
	}
}

// Lag returns a copy of the frame with one derived column per requested lag
// step of valueCol, computed per unit with no history crossing units. Lag k
// shifts by k+EvalDelay-1 positions so that a row only ever sees residuals
// already observable at its own period. With Decay set, each lag column is
// instead an exponentially weighted moving average over the same legally
// shifted history. Rows with insufficient history hold NaN unless FillNA is
// supplied. The derived column names are returned alongside the new frame.
func Lag(f *panel.Frame, valueCol string, lagSteps []int, opt *LagOptions) (*panel.Frame, []string, error) {
	if opt == nil {
		opt = NewDefaultLagOptions()
	}
	if len(lagSteps) == 0 {
		return nil, nil, ErrNoLagSteps
	}
	for _, k := range lagSteps {
		if k < 1 {
			return nil, nil, errors.Wrapf(ErrNonPositiveLag, "lag %d", k)
		}
	}
	if opt.EvalDelay < 0 {
		return nil, nil, errors.Wrapf(ErrNegativeDelay, "delay %d", opt.EvalDelay)
	}
	if opt.Decay != 0 && (opt.Decay <= 0 || opt.Decay > 1) {
		return nil, nil, errors.Wrapf(ErrBadDecay, "decay %f", opt.Decay)
	}

	vals, ok := f.Values(valueCol)
	if !ok {
		return nil, nil, errors.Wrapf(panel.ErrUnknownColumn, "column %q", valueCol)
	}

	smoothed := opt.Decay > 0
	spans := f.UnitSpans()

	out := f
	names := make([]string, 0, len(lagSteps))
	for _, k := range lagSteps {
		shift := k + opt.EvalDelay - 1
		col := shiftPerUnit(vals, spans, shift)
		name := fmt.Sprintf("%s_lag_%d", valueCol, k)
		if smoothed {
			col = ewmaPerUnit(col, spans, opt.Decay, opt.Adjust)
			name = fmt.Sprintf("%s_ewm_%d", valueCol, k)
		}
		if opt.FillNA != nil {
			for i, v := range col {
				if math.IsNaN(v) {
					col[i] = *opt.FillNA
				}
			}
		}

		next, err := out.WithColumn(name, col)
		if err != nil {
			return nil, nil, err
		}
		out = next
		names = append(names, name)
	}
	return out, names, nil
}

// shiftPerUnit shifts values forward by shift positions within each unit
// span, yielding NaN where the unit's history is too short.
func shiftPerUnit(vals []float64, spans []panel.Span, shift int) []float64 {
	out := make([]float64, len(vals))
	for i := range out {
		out[i] = math.NaN()
	}
	for _, s := range spans {
		for i := s.Start; i < s.End; i++ {
			src := i - shift
			if src < s.Start {
				continue
			}
			out[i] = vals[src]
		}
	}
	return out
}

// ewmaPerUnit computes an exponentially weighted moving average over each
// unit span. Weights decay geometrically backward from the most recent
// observation; adjust normalizes by the cumulative weight of the available
// window, while adjust=false applies the recursive unnormalized update.
// NaN observations are skipped without resetting the accumulated history.
func ewmaPerUnit(vals []float64, spans []panel.Span, decay float64, adjust bool) []float64 {
	out := make([]float64, len(vals))
	for i := range out {
		out[i] = math.NaN()
	}
	for _, s := range spans {
		if adjust {
			var num, den float64
			for i := s.Start; i < s.End; i++ {
				num *= 1 - decay
				den *= 1 - decay
				if !math.IsNaN(vals[i]) {
					num += vals[i]
					den += 1
				}
				if den > 0 {
					out[i] = num / den
				}
			}
			continue
		}
		cur := math.NaN()
		for i := s.Start; i < s.End; i++ {
			if !math.IsNaN(vals[i]) {
				if math.IsNaN(cur) {
					cur = vals[i]
				} else {
					cur = (1-decay)*cur + decay*vals[i]
				}
			}
			out[i] = cur
		}
	}
	return out
}
