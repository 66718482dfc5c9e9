package panel

import (
	"math"
	"sort"
)

// OutlierOptions controls iterative Tukey-fence removal of extreme
// calibration residuals before any residual features are built.
type OutlierOptions struct {
	NumPasses       int
	UpperPercentile float64
	LowerPercentile float64
	TukeyFactor     float64
}

// NewDefaultOutlierOptions returns the default outlier removal settings.
func NewDefaultOutlierOptions() *OutlierOptions {
	return &OutlierOptions{
		NumPasses:       3,
		UpperPercentile: 0.9,
		LowerPercentile: 0.1,
		TukeyFactor:     1.0,
	}
}

// FilterOutliers returns a copy of the frame with residuals outside the
// Tukey fences set to NaN. Fences are recomputed each pass from the
// surviving residuals; passes stop early once no new outliers are found.
func (f *Frame) FilterOutliers(opt *OutlierOptions) *Frame {
	if opt == nil {
		opt = NewDefaultOutlierOptions()
	}
	out := f.Copy()
	for pass := 0; pass < opt.NumPasses; pass++ {
		idxs := detectOutliers(out.Residual, opt.LowerPercentile, opt.UpperPercentile, opt.TukeyFactor)
		if len(idxs) == 0 {
			break
		}
		for _, i := range idxs {
			out.Residual[i] = math.NaN()
		}
	}
	return out
}

func detectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	lowerPerc = math.Max(lowerPerc, 0.0)
	upperPerc = math.Min(upperPerc, 1.0)
	tukeyFactor = math.Max(tukeyFactor, 0.0)

	var observed []float64
	for _, v := range y {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}
	if len(observed) == 0 {
		return nil
	}
	sort.Float64s(observed)
	lowerIdx := int(math.Floor(float64(len(observed)) * lowerPerc))
	upperIdx := int(math.Ceil(float64(len(observed)) * upperPerc))
	if upperIdx >= len(observed) {
		upperIdx = len(observed) - 1
	}

	lower := observed[lowerIdx]
	upper := observed[upperIdx]
	innerRange := upper - lower
	lower -= innerRange * tukeyFactor
	upper += innerRange * tukeyFactor

	var outlierIdx []int
	for i := 0; i < len(y); i++ {
		if math.IsNaN(y[i]) {
			continue
		}
		if y[i] >= upper || y[i] <= lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}
