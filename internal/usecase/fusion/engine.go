package fusion

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/lanefuse/internal/domain"
	"github.com/kailas-cloud/lanefuse/internal/domain/document"
	"github.com/kailas-cloud/lanefuse/internal/domain/lane"
	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
	"github.com/kailas-cloud/lanefuse/internal/domain/run"
)

// Compute fuses lane runs under a recipe. It is pure: identical inputs give an
// identical result. Documents missing from docs contribute no codes or text
// and degrade to zero code and facet scores.
func Compute(lanes []lane.Run, docs map[string]document.Document, rcp recipe.Recipe) (run.Result, error) {
	if len(lanes) == 0 {
		return run.Result{}, domain.ErrEmptyLaneSet
	}
	if err := rcp.Validate(); err != nil {
		return run.Result{}, err
	}
	if err := checkEffectiveWeights(lanes, &rcp); err != nil {
		return run.Result{}, err
	}

	merged := accumulateRRF(lanes, &rcp)
	booster := NewBooster(rcp.TargetProfile, rcp.SecondaryFactor)
	facets := NewFacetMatcher(&rcp)

	entries := make([]run.Entry, 0, len(merged))
	total := 0.0
	for id, s := range merged {
		d, ok := docs[id]
		if !ok {
			d = document.Document{ID: id}
		}
		pi := Pi(
			booster.Score(&d),
			facets.Score(&d),
			LaneConsistency(s.lanesPresent, len(lanes)),
			rcp.PiWeights,
		)
		score := s.rrf * (1 + rcp.BetaFuse*pi)
		if math.IsInf(score, 0) || math.IsNaN(score) {
			return run.Result{}, domain.NewRecipeError("beta_fuse", fmt.Sprintf("fused score of %s is not finite", id))
		}
		total += score
		entries = append(entries, run.Entry{
			DocID:         id,
			FamilyID:      d.Family(),
			Score:         score,
			RRFScore:      s.rrf,
			Pi:            pi,
			Contributions: s.contrib,
		})
	}

	// Score sums bound every aggregate computed below.
	if math.IsInf(total, 0) {
		return run.Result{}, domain.NewRecipeError("weights", "sum of fused scores is not finite")
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].DocID < entries[j].DocID
	})

	entries = FoldFamilies(entries)
	for i := range entries {
		entries[i].Rank = i + 1
	}

	laneShares := laneContributions(entries)
	for i := range entries {
		entries[i].Contributions = normalizeShares(entries[i].Contributions)
	}

	pis := make([]float64, len(entries))
	for i, e := range entries {
		pis[i] = e.Pi
	}

	return run.Result{
		Docs:              entries,
		Metrics:           structuralMetrics(lanes, entries, docs, rcp.KEval, rcp.Lambda, rcp.ClassTaxonomy),
		Frontier:          Frontier(pis, rcp.KGrid, rcp.FrontierBeta()),
		LaneContributions: laneShares,
	}, nil
}

// laneContributions sums raw per-type contributions over the folded ranking
// and reports each lane type's share of the total, sorted by type.
func laneContributions(entries []run.Entry) []run.LaneContribution {
	sums := make(map[lane.Type]float64)
	counts := make(map[lane.Type]int)
	for _, e := range entries {
		for _, t := range sortedTypes(e.Contributions) {
			sums[t] += e.Contributions[t]
			counts[t]++
		}
	}

	types := sortedTypes(sums)
	total := 0.0
	for _, t := range types {
		total += sums[t]
	}

	out := make([]run.LaneContribution, 0, len(types))
	for _, t := range types {
		lc := run.LaneContribution{Type: t, Docs: counts[t]}
		if total > 0 {
			lc.Share = sums[t] / total
		}
		out = append(out, lc)
	}
	return out
}

func sortedTypes(m map[lane.Type]float64) []lane.Type {
	types := make([]lane.Type, 0, len(m))
	for t := range m {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
