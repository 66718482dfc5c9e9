package split

import (
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/panelcp/lpci/models"
	"github.com/panelcp/lpci/panel"
)

// PanelSplit partitions rows chronologically into walk-forward folds over
// the sorted unique period values. Each fold's test set is a window of
// TestSize consecutive periods; its train set is every row strictly before
// the window minus a Gap of excluded periods. Test windows across folds are
// disjoint and strictly increasing, anchored so the last window ends at the
// latest period. Splits are fully determined by the period values and the
// three parameters.
type PanelSplit struct {
	NSplits  int
	Gap      int
	TestSize int
}

// NewDefaultPanelSplit returns a single-fold splitter with a one-period
// test window and no gap.
func NewDefaultPanelSplit() *PanelSplit {
	return &PanelSplit{
		NSplits:  1,
		TestSize: 1,
	}
}

func (ps *PanelSplit) validate() error {
	if ps.NSplits < 1 {
		return errors.Wrapf(ErrBadSplitCount, "n_splits %d", ps.NSplits)
	}
	if ps.TestSize < 1 {
		return errors.Wrapf(ErrBadTestSize, "test_size %d", ps.TestSize)
	}
	if ps.Gap < 0 {
		return errors.Wrapf(ErrBadGap, "gap %d", ps.Gap)
	}
	return nil
}

// Folds generates the walk-forward train/test partitions over the given
// per-row period values. Too few distinct periods for the requested number
// of splits is a hard feasibility error, never a silent reduction.
func (ps *PanelSplit) Folds(periods []int) ([]Fold, error) {
	if err := ps.validate(); err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, ErrNoPeriods
	}

	uniq := uniqueSorted(periods)
	need := ps.NSplits*ps.TestSize + ps.Gap + 1
	if len(uniq) < need {
		return nil, errors.Wrapf(ErrInfeasible,
			"have %d distinct periods, need at least %d for %d splits (test_size=%d, gap=%d)",
			len(uniq), need, ps.NSplits, ps.TestSize, ps.Gap)
	}

	folds := make([]Fold, ps.NSplits)
	for s := 0; s < ps.NSplits; s++ {
		testStartIdx := len(uniq) - (ps.NSplits-s)*ps.TestSize
		trainEndIdx := testStartIdx - ps.Gap

		testStart := uniq[testStartIdx]
		testEnd := uniq[testStartIdx+ps.TestSize-1]
		trainBound := uniq[trainEndIdx]

		var fold Fold
		for i, p := range periods {
			switch {
			case p < trainBound:
				fold.Train = append(fold.Train, i)
			case p >= testStart && p <= testEnd:
				fold.Test = append(fold.Test, i)
			}
		}
		if s == 0 && len(fold.Train) == 0 {
			return nil, errors.Wrapf(ErrEmptyTrain,
				"no rows before period %d", trainBound)
		}
		folds[s] = fold
	}
	return folds, nil
}

// FeasibleSplits returns the largest number of walk-forward splits whose
// first test window starts at or after minTestStart while leaving at least
// one training period before the first window minus the gap. Zero feasible
// splits is an error.
func (ps *PanelSplit) FeasibleSplits(periods []int, minTestStart int) (int, error) {
	if err := ps.validate(); err != nil {
		return 0, err
	}
	if len(periods) == 0 {
		return 0, ErrNoPeriods
	}

	uniq := uniqueSorted(periods)
	startIdx := sort.SearchInts(uniq, minTestStart)
	if startIdx == len(uniq) {
		return 0, errors.Wrapf(ErrNoTestStart, "min test start %d, last period %d", minTestStart, uniq[len(uniq)-1])
	}

	n := (len(uniq) - startIdx) / ps.TestSize
	if trainCap := (len(uniq) - ps.Gap - 1) / ps.TestSize; trainCap < n {
		n = trainCap
	}
	if n < 1 {
		return 0, errors.Wrapf(ErrInfeasible,
			"no feasible splits with %d distinct periods, test start %d, test_size %d, gap %d",
			len(uniq), minTestStart, ps.TestSize, ps.Gap)
	}
	return n, nil
}

// TestLabels returns one held-out label frame per fold, aligned to the
// fold's test indices.
func TestLabels(f *panel.Frame, folds []Fold) []*panel.Frame {
	out := make([]*panel.Frame, len(folds))
	for i, fold := range folds {
		out[i] = f.Select(fold.Test)
	}
	return out
}

// CrossValFit runs the fit routine once per fold, sequentially, and
// returns one fitted model per fold. Models are independent; any fold
// failure aborts the whole fit.
func CrossValFit(folds []Fold, fit func(split int, fold Fold) (models.Model, error)) ([]models.Model, error) {
	fitted := make([]models.Model, len(folds))
	for i, fold := range folds {
		m, err := fit(i, fold)
		if err != nil {
			return nil, errors.Wrapf(err, "fitting split %d", i)
		}
		fitted[i] = m
	}
	return fitted, nil
}

func uniqueSorted(periods []int) []int {
	seen := make(map[int]struct{}, len(periods))
	var uniq []int
	for _, p := range periods {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		uniq = append(uniq, p)
	}
	sort.Ints(uniq)
	return uniq
}
