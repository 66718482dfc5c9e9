package lpci

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/panelcp/lpci/feature"
	"github.com/panelcp/lpci/models"
	"github.com/panelcp/lpci/panel"
	"github.com/panelcp/lpci/split"
)

// Options configures interval construction end to end: the nominal
// miscoverage level, the residual feature window, the walk-forward split
// geometry, and the quantile model backend.
type Options struct {
	// Alpha is the nominal miscoverage level; intervals target 1-Alpha
	// coverage.
	Alpha float64
	// NQuantiles is the number of quantiles below the median; the full
	// symmetric set has twice as many.
	NQuantiles int

	// Residual feature construction.
	WindowSize int
	EvalDelay  int
	Decay      float64
	Adjust     bool
	FillNA     *float64

	Score     panel.ScoreKind
	Outliers  *panel.OutlierOptions
	Encodings map[string]feature.Encoding

	// SplitOptions sets the gap and test window size of the walk-forward
	// splitter; the number of splits is sized at fit time so the first
	// test fold starts at or after the earliest test period.
	SplitOptions *split.PanelSplit

	// ForestOptions configures the built-in quantile forest backend when
	// no tuned parameters are supplied.
	ForestOptions *models.ForestOptions

	// Factory builds the quantile model; defaults to the built-in
	// quantile regression forest.
	Factory models.Factory

	// NJobs bounds the prediction worker pool: -1 uses every available
	// processing unit, a positive value uses exactly that many.
	NJobs int

	Logger *zerolog.Logger
}

// NewDefaultOptions returns the default interval construction settings.
func NewDefaultOptions() *Options {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	return &Options{
		Alpha:        0.1,
		NQuantiles:   4,
		WindowSize:   4,
		EvalDelay:    1,
		Score:        panel.ScoreSigned,
		SplitOptions: split.NewDefaultPanelSplit(),
		Factory:      models.NewQuantileForestFromParams,
		NJobs:        -1,
		Logger:       &logger,
	}
}
