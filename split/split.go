// Package split produces leakage-free train/test index partitions over
// panel time, plus a conventional k-fold partitioner for calibration
// windows too short to support panel-aware folds.
package split

import "github.com/cockroachdb/errors"

var (
	ErrInfeasible    = errors.New("not enough distinct periods for the requested splits")
	ErrEmptyTrain    = errors.New("first split has an empty train set")
	ErrNoPeriods     = errors.New("no periods")
	ErrBadSplitCount = errors.New("invalid number of splits")
	ErrBadTestSize   = errors.New("test window size must be positive")
	ErrBadGap        = errors.New("gap must be non-negative")
	ErrNoTestStart   = errors.New("no period at or after the requested test start")
	ErrTooFewRows    = errors.New("fewer rows than requested folds")
)

// Fold is one train/test partition of row indices.
type Fold struct {
	Train []int
	Test  []int
}

// Splitter generates train/test folds from the per-row period values of a
// frame. Implementations must be deterministic given their configuration.
type Splitter interface {
	Folds(periods []int) ([]Fold, error)
}
