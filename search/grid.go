package search

import (
	"context"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/panelcp/lpci/models"
	"github.com/panelcp/lpci/split"
)

// Grid exhaustively scores every combination in the parameter space.
// Candidates are enumerated in lexicographic parameter order so ties
// resolve deterministically. nJobs is an advisory bound on concurrent
// candidate evaluations.
func Grid(ctx context.Context, factory models.Factory, quantiles []float64, space Space,
	x *mat.Dense, y []float64, periods []int, cv split.Splitter, nJobs int,
) (Result, error) {
	names, err := space.names()
	if err != nil {
		return Result{}, err
	}

	candidates := []models.Params{{}}
	for _, name := range names {
		var next []models.Params
		for _, base := range candidates {
			for _, v := range space[name] {
				p := base.Copy()
				p[name] = v
				next = append(next, p)
			}
		}
		candidates = next
	}
	return searchCandidates(ctx, factory, quantiles, candidates, x, y, periods, cv, nJobs)
}

// Random scores nIter uniformly sampled combinations from the parameter
// space. Sampling is deterministic for a given seed.
func Random(ctx context.Context, factory models.Factory, quantiles []float64, space Space,
	x *mat.Dense, y []float64, periods []int, cv split.Splitter, nIter int, seed uint64, nJobs int,
) (Result, error) {
	names, err := space.names()
	if err != nil {
		return Result{}, err
	}
	if nIter < 1 {
		return Result{}, ErrNoIterations
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	candidates := make([]models.Params, nIter)
	for i := range candidates {
		p := make(models.Params, len(names))
		for _, name := range names {
			vals := space[name]
			p[name] = vals[rng.IntN(len(vals))]
		}
		candidates[i] = p
	}
	return searchCandidates(ctx, factory, quantiles, candidates, x, y, periods, cv, nJobs)
}
