// Package run holds the immutable fusion run aggregate and its lineage.
package run

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/lanefuse/internal/domain/lane"
	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
)

// Entry is one document of a fused, family-folded ranking.
type Entry struct {
	DocID    string  `json:"doc_id" cbor:"doc_id"`
	FamilyID string  `json:"family_id" cbor:"family_id"`
	Rank     int     `json:"rank" cbor:"rank"`
	Score    float64 `json:"score" cbor:"score"`
	RRFScore float64 `json:"rrf_score" cbor:"rrf_score"`
	Pi       float64 `json:"pi" cbor:"pi"`
	// Contributions are per-lane-type shares of RRFScore, summing to 1.
	Contributions map[lane.Type]float64 `json:"contributions" cbor:"contributions"`
}

// Metrics are the label-free structural quality signals of a run.
type Metrics struct {
	LAS     float64 `json:"las" cbor:"las"`
	CCW     float64 `json:"ccw" cbor:"ccw"`
	SShape  float64 `json:"s_shape" cbor:"s_shape"`
	FStruct float64 `json:"f_struct" cbor:"f_struct"`
	FProxy  float64 `json:"fproxy" cbor:"fproxy"`
}

// FrontierPoint is one cutoff of the precision/recall proxy sweep.
type FrontierPoint struct {
	K     int     `json:"k" cbor:"k"`
	PStar float64 `json:"p_star" cbor:"p_star"`
	RStar float64 `json:"r_star" cbor:"r_star"`
	FBeta float64 `json:"f_beta_star" cbor:"f_beta_star"`
}

// LaneContribution is the run-level share of one lane type in the fused scores.
type LaneContribution struct {
	Type  lane.Type `json:"lane_type" cbor:"lane_type"`
	Docs  int       `json:"docs" cbor:"docs"`
	Share float64   `json:"share" cbor:"share"`
}

// Result is the computed part of a fusion, before identity and lineage are assigned.
type Result struct {
	Docs              []Entry
	Metrics           Metrics
	Frontier          []FrontierPoint
	LaneContributions []LaneContribution
}

// Run is an immutable fusion run.
type Run struct {
	id             string
	parentID       string
	recipe         recipe.Recipe
	laneIDs        []string
	overrideFields []string
	result         Result
	createdAt      int64
}

// New creates a run from a computed result. parentID is empty for root runs;
// overrideFields names the recipe fields replaced relative to the parent.
func New(
	id, parentID string, rcp recipe.Recipe, laneIDs, overrideFields []string, res Result, createdAt int64,
) (Run, error) {
	if id == "" {
		return Run{}, fmt.Errorf("run ID is required")
	}
	if id == parentID {
		return Run{}, fmt.Errorf("run %q cannot be its own parent", id)
	}
	if len(laneIDs) == 0 {
		return Run{}, fmt.Errorf("run %q has no lanes", id)
	}
	return Run{
		id:             id,
		parentID:       parentID,
		recipe:         rcp.Clone(),
		laneIDs:        append([]string(nil), laneIDs...),
		overrideFields: append([]string(nil), overrideFields...),
		result:         res,
		createdAt:      createdAt,
	}, nil
}

// Reconstruct creates a Run without validation (storage hydration).
func Reconstruct(
	id, parentID string, rcp recipe.Recipe, laneIDs, overrideFields []string, res Result, createdAt int64,
) Run {
	return Run{
		id: id, parentID: parentID, recipe: rcp, laneIDs: laneIDs,
		overrideFields: overrideFields, result: res, createdAt: createdAt,
	}
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.id }

// ParentID returns the run this one was derived from, or "".
func (r *Run) ParentID() string { return r.parentID }

// IsRoot reports whether the run has no parent.
func (r *Run) IsRoot() bool { return r.parentID == "" }

// Recipe returns a copy of the recipe that produced the run.
func (r *Run) Recipe() recipe.Recipe { return r.recipe.Clone() }

// LaneIDs returns the lane runs the run was built from.
func (r *Run) LaneIDs() []string { return append([]string(nil), r.laneIDs...) }

// OverrideFields returns the recipe fields replaced relative to the parent.
func (r *Run) OverrideFields() []string { return r.overrideFields }

// Docs returns the fused ranking.
func (r *Run) Docs() []Entry { return r.result.Docs }

// Metrics returns the structural metrics.
func (r *Run) Metrics() Metrics { return r.result.Metrics }

// Frontier returns the frontier sweep.
func (r *Run) Frontier() []FrontierPoint { return r.result.Frontier }

// LaneContributions returns run-level lane type shares.
func (r *Run) LaneContributions() []LaneContribution { return r.result.LaneContributions }

// Result returns the computed part of the run.
func (r *Run) Result() Result { return r.result }

// CreatedAt returns the creation time in unix millis.
func (r *Run) CreatedAt() int64 { return r.createdAt }

// Label grades a representative document.
type Label string

// Representative labels, from most to least relevant.
const (
	LabelA Label = "A"
	LabelB Label = "B"
	LabelC Label = "C"
)

// IsValid checks if the label is A, B or C.
func (l Label) IsValid() bool {
	return l == LabelA || l == LabelB || l == LabelC
}

// Strength maps a label to the weight it lends facet steering.
func (l Label) Strength() float64 {
	switch l {
	case LabelA:
		return 1.0
	case LabelB:
		return 0.5
	default:
		return 0
	}
}

// Representative annotates a document of a run.
type Representative struct {
	DocID  string `json:"doc_id" cbor:"doc_id"`
	Label  Label  `json:"label" cbor:"label"`
	Reason string `json:"reason,omitempty" cbor:"reason,omitempty"`
}

// ValidateRepresentatives checks entries against the run they annotate.
func ValidateRepresentatives(r *Run, entries []Representative) error {
	if len(entries) == 0 {
		return fmt.Errorf("at least one representative is required")
	}
	inRun := make(map[string]struct{}, len(r.result.Docs))
	for _, d := range r.result.Docs {
		inRun[d.DocID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(entries))
	for i := range entries {
		e := &entries[i]
		e.Label = Label(strings.ToUpper(string(e.Label)))
		if !e.Label.IsValid() {
			return fmt.Errorf("representative %q: label must be A, B or C, got %q", e.DocID, e.Label)
		}
		if _, ok := inRun[e.DocID]; !ok {
			return fmt.Errorf("representative %q is not in run %q", e.DocID, r.id)
		}
		if _, dup := seen[e.DocID]; dup {
			return fmt.Errorf("representative %q listed twice", e.DocID)
		}
		seen[e.DocID] = struct{}{}
	}
	return nil
}
