package run

import (
	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
	domrun "github.com/kailas-cloud/lanefuse/internal/domain/run"
)

// record is the stored form of a fusion run: recipe, ranking and metrics in
// one value so a run becomes visible all at once.
type record struct {
	ID                string                    `json:"id" cbor:"id"`
	ParentID          string                    `json:"parent_run_id,omitempty" cbor:"parent_run_id,omitempty"`
	Recipe            recipe.Recipe             `json:"recipe" cbor:"recipe"`
	LaneIDs           []string                  `json:"lane_run_ids" cbor:"lane_run_ids"`
	OverrideFields    []string                  `json:"override_fields,omitempty" cbor:"override_fields,omitempty"`
	Docs              []domrun.Entry            `json:"ranked_docs" cbor:"ranked_docs"`
	Metrics           domrun.Metrics            `json:"metrics" cbor:"metrics"`
	Frontier          []domrun.FrontierPoint    `json:"frontier" cbor:"frontier"`
	LaneContributions []domrun.LaneContribution `json:"lane_contributions" cbor:"lane_contributions"`
	CreatedAt         int64                     `json:"created_at" cbor:"created_at"`
}

func toRecord(r *domrun.Run) record {
	res := r.Result()
	return record{
		ID:                r.ID(),
		ParentID:          r.ParentID(),
		Recipe:            r.Recipe(),
		LaneIDs:           r.LaneIDs(),
		OverrideFields:    r.OverrideFields(),
		Docs:              res.Docs,
		Metrics:           res.Metrics,
		Frontier:          res.Frontier,
		LaneContributions: res.LaneContributions,
		CreatedAt:         r.CreatedAt(),
	}
}

func (rec *record) toDomain() domrun.Run {
	return domrun.Reconstruct(
		rec.ID, rec.ParentID, rec.Recipe, rec.LaneIDs, rec.OverrideFields,
		domrun.Result{
			Docs:              rec.Docs,
			Metrics:           rec.Metrics,
			Frontier:          rec.Frontier,
			LaneContributions: rec.LaneContributions,
		},
		rec.CreatedAt,
	)
}
