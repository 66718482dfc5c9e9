package lpci

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"
)

var (
	ErrNoObservedRows = errors.New("no rows with observed outcomes")
	ErrBadBins        = errors.New("bin labels must number one fewer than bin edges")
)

// Coverage summarizes how a slice of interval rows performed against the
// observed outcomes.
type Coverage struct {
	N         int     `json:"n"`
	Covered   int     `json:"covered"`
	Rate      float64 `json:"rate"`
	MeanWidth float64 `json:"mean_width"`
}

func coverageOf(rows []Row) Coverage {
	var c Coverage
	var width float64
	for i := range rows {
		if !rows[i].Observed() {
			continue
		}
		c.N++
		width += rows[i].Width()
		if rows[i].Covered() {
			c.Covered++
		}
	}
	if c.N > 0 {
		c.Rate = float64(c.Covered) / float64(c.N)
		c.MeanWidth = width / float64(c.N)
	}
	return c
}

// Coverage returns overall coverage across every observed test row.
func (r *Results) Coverage() (Coverage, error) {
	c := coverageOf(r.Rows)
	if c.N == 0 {
		return Coverage{}, ErrNoObservedRows
	}
	return c, nil
}

// PeriodCoverage is the coverage within one period.
type PeriodCoverage struct {
	Period int `json:"period"`
	Coverage
}

// CoverageByPeriod slices coverage by period, ascending.
func (r *Results) CoverageByPeriod() []PeriodCoverage {
	groups := make(map[int][]Row)
	for _, row := range r.Rows {
		groups[row.Period] = append(groups[row.Period], row)
	}
	periods := make([]int, 0, len(groups))
	for p := range groups {
		periods = append(periods, p)
	}
	sort.Ints(periods)

	out := make([]PeriodCoverage, 0, len(periods))
	for _, p := range periods {
		out = append(out, PeriodCoverage{Period: p, Coverage: coverageOf(groups[p])})
	}
	return out
}

// UnitCoverage is the coverage within one unit.
type UnitCoverage struct {
	Unit string `json:"unit"`
	Coverage
}

// CoverageByUnit slices coverage by unit, lexicographic.
func (r *Results) CoverageByUnit() []UnitCoverage {
	groups := make(map[string][]Row)
	for _, row := range r.Rows {
		groups[row.Unit] = append(groups[row.Unit], row)
	}
	units := make([]string, 0, len(groups))
	for u := range groups {
		units = append(units, u)
	}
	sort.Strings(units)

	out := make([]UnitCoverage, 0, len(units))
	for _, u := range units {
		out = append(out, UnitCoverage{Unit: u, Coverage: coverageOf(groups[u])})
	}
	return out
}

// BucketCoverage is the coverage within one point-prediction magnitude
// bucket.
type BucketCoverage struct {
	Label string `json:"label"`
	Coverage
}

// CoverageByMagnitude slices coverage by point-prediction magnitude using
// the caller's bin edges and labels. Bins are half-open [edge[i], edge[i+1])
// with the last bin closed; rows outside every bin are skipped.
func (r *Results) CoverageByMagnitude(edges []float64, labels []string) ([]BucketCoverage, error) {
	if len(labels) != len(edges)-1 {
		return nil, errors.Wrapf(ErrBadBins, "%d labels for %d edges", len(labels), len(edges))
	}
	groups := make([][]Row, len(labels))
	for _, row := range r.Rows {
		v := math.Abs(row.Pred)
		for b := 0; b < len(labels); b++ {
			if v >= edges[b] && (v < edges[b+1] || (b == len(labels)-1 && v == edges[b+1])) {
				groups[b] = append(groups[b], row)
				break
			}
		}
	}
	out := make([]BucketCoverage, len(labels))
	for b, label := range labels {
		out[b] = BucketCoverage{Label: label, Coverage: coverageOf(groups[b])}
	}
	return out, nil
}
