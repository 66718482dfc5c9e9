// Package panel stores calibration and test panel rows keyed by
// (unit, period) and computes non-conformity scores from point predictions
// and observed outcomes.
package panel

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"
)

var (
	ErrNoRows        = errors.New("no panel rows")
	ErrLenMismatch   = errors.New("panel columns have different lengths")
	ErrDuplicateRow  = errors.New("duplicate (unit, period) row")
	ErrUnknownColumn = errors.New("unknown column")
	ErrColumnExists  = errors.New("column already exists")
	ErrUnknownScore  = errors.New("unknown score kind")
)

// Reserved names resolving to the frame's fixed columns.
const (
	ColUnit     = "unit"
	ColPeriod   = "period"
	ColPred     = "pred"
	ColActual   = "actual"
	ColResidual = "residual"
)

// ScoreKind selects how the non-conformity score is computed from a point
// prediction and an observed outcome.
type ScoreKind int

const (
	// ScoreSigned is the signed difference actual - pred.
	ScoreSigned ScoreKind = iota
	// ScoreAbsolute is |actual - pred|.
	ScoreAbsolute
)

// Frame is a column-oriented panel of rows keyed by (unit, period), sorted
// by (unit, period) and unique on that key. Missing values are NaN.
// Fixed columns are never mutated after construction; derived columns are
// appended through WithColumn which returns a new frame.
type Frame struct {
	Unit     []string
	Period   []int
	Pred     []float64
	Actual   []float64
	Residual []float64

	cols     map[string][]float64
	colOrder []string

	strs     map[string][]string
	strOrder []string
}

// New validates, sorts, and wraps the given panel columns into a Frame.
// actuals may contain NaN for rows whose outcome is not yet observed.
func New(units []string, periods []int, preds, actuals []float64) (*Frame, error) {
	n := len(units)
	if n == 0 {
		return nil, ErrNoRows
	}
	if len(periods) != n || len(preds) != n || len(actuals) != n {
		return nil, errors.Wrapf(ErrLenMismatch,
			"units=%d periods=%d preds=%d actuals=%d", n, len(periods), len(preds), len(actuals))
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if units[idx[a]] != units[idx[b]] {
			return units[idx[a]] < units[idx[b]]
		}
		return periods[idx[a]] < periods[idx[b]]
	})

	f := &Frame{
		Unit:     make([]string, n),
		Period:   make([]int, n),
		Pred:     make([]float64, n),
		Actual:   make([]float64, n),
		Residual: make([]float64, n),
		cols:     make(map[string][]float64),
		strs:     make(map[string][]string),
	}
	for i, j := range idx {
		f.Unit[i] = units[j]
		f.Period[i] = periods[j]
		f.Pred[i] = preds[j]
		f.Actual[i] = actuals[j]
		f.Residual[i] = math.NaN()
	}
	for i := 1; i < n; i++ {
		if f.Unit[i] == f.Unit[i-1] && f.Period[i] == f.Period[i-1] {
			return nil, errors.Wrapf(ErrDuplicateRow, "unit=%q period=%d", f.Unit[i], f.Period[i])
		}
	}
	return f, nil
}

// Concat merges the calibration and test frames into a single panel,
// revalidating (unit, period) uniqueness across the two.
func Concat(calib, test *Frame) (*Frame, error) {
	if calib == nil || calib.Len() == 0 {
		return nil, errors.Wrap(ErrNoRows, "calibration frame")
	}
	if test == nil || test.Len() == 0 {
		return nil, errors.Wrap(ErrNoRows, "test frame")
	}
	units := append(append([]string{}, calib.Unit...), test.Unit...)
	periods := append(append([]int{}, calib.Period...), test.Period...)
	preds := append(append([]float64{}, calib.Pred...), test.Pred...)
	actuals := append(append([]float64{}, calib.Actual...), test.Actual...)
	return New(units, periods, preds, actuals)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Unit)
}

// Copy returns a deep copy of the frame including derived columns.
func (f *Frame) Copy() *Frame {
	n := f.Len()
	out := &Frame{
		Unit:     append([]string{}, f.Unit...),
		Period:   append([]int{}, f.Period...),
		Pred:     append([]float64{}, f.Pred...),
		Actual:   append([]float64{}, f.Actual...),
		Residual: append([]float64{}, f.Residual...),
		cols:     make(map[string][]float64, len(f.cols)),
		colOrder: append([]string{}, f.colOrder...),
		strs:     make(map[string][]string, len(f.strs)),
		strOrder: append([]string{}, f.strOrder...),
	}
	for name, vals := range f.cols {
		c := make([]float64, n)
		copy(c, vals)
		out.cols[name] = c
	}
	for name, vals := range f.strs {
		c := make([]string, n)
		copy(c, vals)
		out.strs[name] = c
	}
	return out
}

// WithColumn returns a copy of the frame with an added derived float column.
func (f *Frame) WithColumn(name string, vals []float64) (*Frame, error) {
	if len(vals) != f.Len() {
		return nil, errors.Wrapf(ErrLenMismatch, "column %q has %d values, frame has %d rows", name, len(vals), f.Len())
	}
	if _, exists := f.Values(name); exists {
		return nil, errors.Wrapf(ErrColumnExists, "column %q", name)
	}
	out := f.Copy()
	out.cols[name] = append([]float64{}, vals...)
	out.colOrder = append(out.colOrder, name)
	return out, nil
}

// WithStringColumn returns a copy of the frame with an added categorical
// string column.
func (f *Frame) WithStringColumn(name string, vals []string) (*Frame, error) {
	if len(vals) != f.Len() {
		return nil, errors.Wrapf(ErrLenMismatch, "column %q has %d values, frame has %d rows", name, len(vals), f.Len())
	}
	if _, exists := f.Values(name); exists {
		return nil, errors.Wrapf(ErrColumnExists, "column %q", name)
	}
	if _, exists := f.StringValues(name); exists {
		return nil, errors.Wrapf(ErrColumnExists, "column %q", name)
	}
	out := f.Copy()
	out.strs[name] = append([]string{}, vals...)
	out.strOrder = append(out.strOrder, name)
	return out, nil
}

// Values resolves a float column by name, either one of the fixed columns
// pred/actual/residual or a derived column.
func (f *Frame) Values(name string) ([]float64, bool) {
	switch name {
	case ColPred:
		return f.Pred, true
	case ColActual:
		return f.Actual, true
	case ColResidual:
		return f.Residual, true
	}
	vals, ok := f.cols[name]
	return vals, ok
}

// StringValues resolves a categorical column by name. The unit key is
// always available as a categorical column.
func (f *Frame) StringValues(name string) ([]string, bool) {
	if name == ColUnit {
		return f.Unit, true
	}
	vals, ok := f.strs[name]
	return vals, ok
}

// Columns returns derived float column names in insertion order.
func (f *Frame) Columns() []string {
	return append([]string{}, f.colOrder...)
}

// Select returns a new frame restricted to the given row indices, keeping
// their order. Indices must already be sorted by (unit, period) if the
// resulting frame's ordering invariant is to hold; fold indices produced by
// the splitters are.
func (f *Frame) Select(rows []int) *Frame {
	out := &Frame{
		Unit:     make([]string, len(rows)),
		Period:   make([]int, len(rows)),
		Pred:     make([]float64, len(rows)),
		Actual:   make([]float64, len(rows)),
		Residual: make([]float64, len(rows)),
		cols:     make(map[string][]float64, len(f.cols)),
		colOrder: append([]string{}, f.colOrder...),
		strs:     make(map[string][]string, len(f.strs)),
		strOrder: append([]string{}, f.strOrder...),
	}
	for i, r := range rows {
		out.Unit[i] = f.Unit[r]
		out.Period[i] = f.Period[r]
		out.Pred[i] = f.Pred[r]
		out.Actual[i] = f.Actual[r]
		out.Residual[i] = f.Residual[r]
	}
	for name, vals := range f.cols {
		c := make([]float64, len(rows))
		for i, r := range rows {
			c[i] = vals[r]
		}
		out.cols[name] = c
	}
	for name, vals := range f.strs {
		c := make([]string, len(rows))
		for i, r := range rows {
			c[i] = vals[r]
		}
		out.strs[name] = c
	}
	return out
}

// Score returns a copy of the frame with the residual column computed for
// every row whose outcome is observed. Rows without an observed outcome
// keep a NaN residual.
func (f *Frame) Score(kind ScoreKind) (*Frame, error) {
	if f.Len() == 0 {
		return nil, ErrNoRows
	}
	out := f.Copy()
	for i := 0; i < out.Len(); i++ {
		if math.IsNaN(out.Actual[i]) {
			out.Residual[i] = math.NaN()
			continue
		}
		switch kind {
		case ScoreSigned:
			out.Residual[i] = out.Actual[i] - out.Pred[i]
		case ScoreAbsolute:
			out.Residual[i] = math.Abs(out.Actual[i] - out.Pred[i])
		default:
			return nil, errors.Wrapf(ErrUnknownScore, "kind=%d", kind)
		}
	}
	return out, nil
}

// Span is a contiguous half-open row range [Start, End) belonging to a
// single unit.
type Span struct {
	Unit  string
	Start int
	End   int
}

// UnitSpans returns the contiguous per-unit row ranges of the sorted frame.
func (f *Frame) UnitSpans() []Span {
	var spans []Span
	n := f.Len()
	for start := 0; start < n; {
		end := start + 1
		for end < n && f.Unit[end] == f.Unit[start] {
			end++
		}
		spans = append(spans, Span{Unit: f.Unit[start], Start: start, End: end})
		start = end
	}
	return spans
}

// UniquePeriods returns the sorted distinct period values in the frame.
func (f *Frame) UniquePeriods() []int {
	seen := make(map[int]struct{}, f.Len())
	var periods []int
	for _, p := range f.Period {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		periods = append(periods, p)
	}
	sort.Ints(periods)
	return periods
}
