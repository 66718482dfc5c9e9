// Package interval generates the symmetric quantile set used by the
// quantile model and converts its raw per-quantile predictions into the
// narrowest valid interval per observation.
package interval

import (
	"math"

	"github.com/cockroachdb/errors"
)

var (
	ErrBadAlpha          = errors.New("alpha must be in (0, 1)")
	ErrBadQuantileCount  = errors.New("number of quantiles must be positive")
	ErrQuantileCollision = errors.New("adjacent quantile probabilities collide")
)

// Quantiles returns the ordered symmetric quantile set for the given
// miscoverage level: n probabilities below 0.5 at the midpoints
// alpha*(2i+1)/(2n) and their mirror images above 0.5. The set has even
// length 2n and satisfies qs[i] + qs[len-1-i] == 1 for all i. Adjacent
// probabilities collapsing onto each other (n too large for alpha at float
// resolution) is rejected rather than silently deduplicated.
func Quantiles(alpha float64, n int) ([]float64, error) {
	if alpha <= 0 || alpha >= 1 {
		return nil, errors.Wrapf(ErrBadAlpha, "alpha %f", alpha)
	}
	if n < 1 {
		return nil, errors.Wrapf(ErrBadQuantileCount, "n %d", n)
	}

	qs := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		lower := alpha * float64(2*i+1) / float64(2*n)
		qs[i] = lower
		qs[2*n-1-i] = 1 - lower
	}
	for i := 1; i < len(qs); i++ {
		if qs[i] <= qs[i-1] {
			return nil, errors.Wrapf(ErrQuantileCollision, "q[%d]=%v q[%d]=%v", i-1, qs[i-1], i, qs[i])
		}
	}
	return qs, nil
}

// ValidateSet checks the parity and symmetric pairing invariants of a
// quantile set produced by Quantiles.
func ValidateSet(qs []float64) error {
	if len(qs) == 0 || len(qs)%2 != 0 {
		return errors.Wrapf(ErrBadQuantileCount, "set length %d must be even and positive", len(qs))
	}
	for i := 0; i < len(qs)/2; i++ {
		if math.Abs(qs[i]+qs[len(qs)-1-i]-1) > 1e-9 {
			return errors.Newf("quantile pair (%v, %v) does not sum to 1", qs[i], qs[len(qs)-1-i])
		}
	}
	for i := 1; i < len(qs); i++ {
		if qs[i] <= qs[i-1] {
			return errors.Wrapf(ErrQuantileCollision, "q[%d]=%v q[%d]=%v", i-1, qs[i-1], i, qs[i])
		}
	}
	return nil
}
