package lpci

import (
	"io"
	"math"

	"github.com/goccy/go-json"
)

// Row is the terminal interval record for one test observation: the raw
// per-quantile residual predictions, the selected residual bounds with
// their quantile pair, and the final interval around the point prediction.
type Row struct {
	Unit   string `json:"unit"`
	Period int    `json:"period"`
	Split  int    `json:"split"`

	Pred   float64 `json:"pred"`
	Actual float64 `json:"actual"`

	QuantilePreds []float64 `json:"quantile_preds"`

	LowerResidual float64 `json:"lower_residual"`
	UpperResidual float64 `json:"upper_residual"`
	LowerProb     float64 `json:"lower_prob"`
	UpperProb     float64 `json:"upper_prob"`

	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Observed reports whether the row's outcome is known.
func (r *Row) Observed() bool {
	return !math.IsNaN(r.Actual)
}

// Covered reports whether the observed outcome falls inside the interval.
// Unobserved rows are never covered.
func (r *Row) Covered() bool {
	return r.Observed() && r.Actual >= r.Lower && r.Actual <= r.Upper
}

// Width returns the interval width.
func (r *Row) Width() float64 {
	return r.Upper - r.Lower
}

// Results is the assembled interval table, one row per test observation,
// sorted by (unit, period).
type Results struct {
	Alpha     float64   `json:"alpha"`
	Quantiles []float64 `json:"quantiles"`
	Rows      []Row     `json:"rows"`
}

// WriteJSON serializes the observed rows of the table. Rows whose outcome
// is still unknown hold NaN actuals, which JSON cannot carry, so they are
// written with the actual field replaced by null via a shadow encoding.
func (r *Results) WriteJSON(w io.Writer) error {
	type jsonRow struct {
		Row
		Actual *float64 `json:"actual"`
	}
	type jsonResults struct {
		Alpha     float64   `json:"alpha"`
		Quantiles []float64 `json:"quantiles"`
		Rows      []jsonRow `json:"rows"`
	}
	out := jsonResults{
		Alpha:     r.Alpha,
		Quantiles: r.Quantiles,
		Rows:      make([]jsonRow, len(r.Rows)),
	}
	for i, row := range r.Rows {
		jr := jsonRow{Row: row}
		if row.Observed() {
			a := row.Actual
			jr.Actual = &a
		}
		out.Rows[i] = jr
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
