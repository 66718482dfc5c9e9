package split

import (
	"math/rand/v2"

	"github.com/cockroachdb/errors"
)

// KFold partitions rows into NSplits contiguous (or shuffled) folds with no
// regard for time ordering. It trades the temporal safety of PanelSplit for
// feasibility when the calibration window has too few distinct periods to
// support panel-aware folds.
type KFold struct {
	NSplits int
	Shuffle bool
	Seed    uint64
}

// NewDefaultKFold returns an unshuffled five-fold partitioner.
func NewDefaultKFold() *KFold {
	return &KFold{NSplits: 5}
}

// Folds partitions the rows into train/test folds. Only the length of
// periods is consulted; the values play no role.
func (kf *KFold) Folds(periods []int) ([]Fold, error) {
	if kf.NSplits < 2 {
		return nil, errors.Wrapf(ErrBadSplitCount, "n_splits %d", kf.NSplits)
	}
	n := len(periods)
	if n < kf.NSplits {
		return nil, errors.Wrapf(ErrTooFewRows, "%d rows for %d folds", n, kf.NSplits)
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(kf.Seed, kf.Seed))
		r.Shuffle(n, func(i, j int) {
			idx[i], idx[j] = idx[j], idx[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := n / kf.NSplits
	remainder := n % kf.NSplits

	cur := 0
	for s := 0; s < kf.NSplits; s++ {
		testSize := foldSize
		if s < remainder {
			testSize++
		}
		test := make([]int, testSize)
		copy(test, idx[cur:cur+testSize])

		inTest := make(map[int]struct{}, testSize)
		for _, t := range test {
			inTest[t] = struct{}{}
		}
		train := make([]int, 0, n-testSize)
		for _, i := range idx {
			if _, ok := inTest[i]; !ok {
				train = append(train, i)
			}
		}
		folds[s] = Fold{Train: train, Test: test}
		cur += testSize
	}
	return folds, nil
}
