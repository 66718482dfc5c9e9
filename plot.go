package lpci

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// LineIntervals generates an echart line chart for one unit plotting the
// observed outcomes against the point predictions and the selected
// interval bounds over the test periods.
func LineIntervals(res *Results, unit string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: fmt.Sprintf("Prediction Intervals: %s", unit),
			},
		),
	)

	var periods []string
	var actual, pred, upper, lower []opts.LineData
	for _, row := range res.Rows {
		if row.Unit != unit {
			continue
		}
		periods = append(periods, strconv.Itoa(row.Period))
		if row.Observed() {
			actual = append(actual, opts.LineData{Value: row.Actual})
		} else {
			actual = append(actual, opts.LineData{Value: nil})
		}
		pred = append(pred, opts.LineData{Value: row.Pred})
		upper = append(upper, opts.LineData{Value: row.Upper})
		lower = append(lower, opts.LineData{Value: row.Lower})
	}

	line.SetXAxis(periods).
		AddSeries("Actual", actual).
		AddSeries("Pred", pred).
		AddSeries("Upper", upper).
		AddSeries("Lower", lower)
	return line
}

// LineCoverage generates an echart line chart of per-period empirical
// coverage against the nominal 1-alpha target.
func LineCoverage(res *Results) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: "Coverage by Period",
			},
		),
	)

	byPeriod := res.CoverageByPeriod()
	var periods []string
	var rate, nominal []opts.LineData
	for _, pc := range byPeriod {
		if pc.N == 0 {
			continue
		}
		periods = append(periods, strconv.Itoa(pc.Period))
		rate = append(rate, opts.LineData{Value: pc.Rate})
		nominal = append(nominal, opts.LineData{Value: 1 - res.Alpha})
	}

	line.SetXAxis(periods).
		AddSeries("Coverage", rate).
		AddSeries("Nominal", nominal)
	return line
}

// PlotResults uses the Apache Echarts library to generate an html file
// showing per-period coverage and the interval bands for the given units.
// With no units given, every unit in the table is plotted.
func (r *Results) PlotResults(path string, units ...string) error {
	if len(units) == 0 {
		seen := make(map[string]struct{})
		for _, row := range r.Rows {
			if _, ok := seen[row.Unit]; ok {
				continue
			}
			seen[row.Unit] = struct{}{}
			units = append(units, row.Unit)
		}
	}

	page := components.NewPage()
	page.AddCharts(LineCoverage(r))
	for _, unit := range units {
		page.AddCharts(LineIntervals(r, unit))
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return page.Render(io.MultiWriter(file))
}
