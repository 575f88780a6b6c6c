package fusion

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/lanefuse/internal/domain"
	"github.com/kailas-cloud/lanefuse/internal/domain/lane"
	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
)

// scored accumulates one document's reciprocal-rank evidence across lanes.
type scored struct {
	rrf          float64
	contrib      map[lane.Type]float64
	lanesPresent int
}

// accumulateRRF sums weighted reciprocal-rank scores per document:
// rrf(d) = sum over lanes containing d of w_lane / (rrfK + rank_lane(d)),
// with w_lane = lane weight x recipe weight for the lane type. Absence
// contributes nothing. Each lane type's additive share is tracked for audit.
func accumulateRRF(lanes []lane.Run, rcp *recipe.Recipe) map[string]*scored {
	size := 0
	for i := range lanes {
		size += lanes[i].Len()
	}
	merged := make(map[string]*scored, size)

	for i := range lanes {
		l := &lanes[i]
		w := l.Weight() * rcp.LaneWeight(l.Type())
		for _, d := range l.Docs() {
			s, ok := merged[d.DocID]
			if !ok {
				s = &scored{contrib: make(map[lane.Type]float64, 2)}
				merged[d.DocID] = s
			}
			part := lane.Score(w, rcp.RRFK, d.Rank)
			s.rrf += part
			s.contrib[l.Type()] += part
			s.lanesPresent++
		}
	}
	return merged
}

// checkEffectiveWeights rejects a recipe whose weight for a lane type,
// multiplied by a lane's own weight, leaves the float64 range.
func checkEffectiveWeights(lanes []lane.Run, rcp *recipe.Recipe) error {
	for i := range lanes {
		l := &lanes[i]
		w := l.Weight() * rcp.LaneWeight(l.Type())
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return domain.NewRecipeError("weights."+string(l.Type()), fmt.Sprintf(
				"lane %s weight %v x recipe weight %v is not finite", l.ID(), l.Weight(), rcp.LaneWeight(l.Type()),
			))
		}
	}
	return nil
}

// normalizeShares turns additive contributions into shares summing to 1.
// A zero total yields an empty map: nothing contributed.
func normalizeShares(contrib map[lane.Type]float64) map[lane.Type]float64 {
	total := 0.0
	for _, t := range sortedTypes(contrib) {
		total += contrib[t]
	}
	out := make(map[lane.Type]float64, len(contrib))
	if total <= 0 {
		return out
	}
	for t, v := range contrib {
		out[t] = v / total
	}
	return out
}
