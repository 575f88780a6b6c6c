package chi

import (
	"github.com/kailas-cloud/lanefuse/internal/domain/document"
	"github.com/kailas-cloud/lanefuse/internal/domain/lane"
	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
	domrun "github.com/kailas-cloud/lanefuse/internal/domain/run"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest            ErrorCode = "bad_request"
	ErrorCodeNotFound              ErrorCode = "not_found"
	ErrorCodeMethodNotAllowed      ErrorCode = "method_not_allowed"
	ErrorCodeUnauthorized          ErrorCode = "unauthorized"
	ErrorCodeRunNotFound           ErrorCode = "run_not_found"
	ErrorCodeLaneNotFound          ErrorCode = "lane_not_found"
	ErrorCodeInvalidRecipe         ErrorCode = "invalid_recipe"
	ErrorCodeEmptyLaneSet          ErrorCode = "empty_lane_set"
	ErrorCodeInvalidLane           ErrorCode = "invalid_lane"
	ErrorCodeInvalidRepresentative ErrorCode = "invalid_representative"
	ErrorCodeDuplicateRegistration ErrorCode = "duplicate_registration"
	ErrorCodeInternalError         ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// Field names the offending recipe field for invalid_recipe.
	Field string `json:"field,omitempty"`
}

// LaneRequest is the body of POST /lanes and one item of POST /lanes/batch.
type LaneRequest struct {
	LaneType    lane.Type           `json:"lane_type"`
	Weight      *float64            `json:"weight,omitempty"`
	Docs        []lane.RankedDoc    `json:"docs"`
	CodeSummary lane.CodeSummary    `json:"code_summary,omitempty"`
	Documents   []document.Document `json:"documents,omitempty"`
}

// LaneBatchRequest is the body of POST /lanes/batch.
type LaneBatchRequest struct {
	Lanes []LaneRequest `json:"lanes"`
}

// LaneResponse reports an ingested lane.
type LaneResponse struct {
	LaneID string `json:"lane_id"`
}

// LaneBatchResponse reports ingested lanes in request order.
type LaneBatchResponse struct {
	LaneIDs []string `json:"lane_ids"`
}

// ProfileSource derives the recipe target profile from a stored lane.
type ProfileSource struct {
	LaneID string `json:"lane_id"`
	TopN   int    `json:"top_n,omitempty"`
}

// FuseRequest is the body of POST /runs. Recipe fields left out take the
// server defaults.
type FuseRequest struct {
	LaneIDs           []string         `json:"lane_ids"`
	Recipe            *recipe.Override `json:"recipe,omitempty"`
	TargetProfileFrom *ProfileSource   `json:"target_profile_from_lane,omitempty"`
}

// RunResponse is a full fusion run. Lineage lists ancestor run IDs, parent
// first; it stops at the first expired ancestor.
type RunResponse struct {
	RunID             string                    `json:"run_id"`
	ParentRunID       string                    `json:"parent_run_id,omitempty"`
	Lineage           []string                  `json:"lineage"`
	LaneRunIDs        []string                  `json:"lane_run_ids"`
	Recipe            recipe.Recipe             `json:"recipe"`
	OverrideFields    []string                  `json:"override_fields,omitempty"`
	RankedDocs        []domrun.Entry            `json:"ranked_docs"`
	Metrics           domrun.Metrics            `json:"metrics"`
	Frontier          []domrun.FrontierPoint    `json:"frontier"`
	LaneContributions []domrun.LaneContribution `json:"lane_contributions"`
	CreatedAt         int64                     `json:"created_at"`
}

// RunSummary is one step of a run's lineage.
type RunSummary struct {
	RunID          string         `json:"run_id"`
	ParentRunID    string         `json:"parent_run_id,omitempty"`
	OverrideFields []string       `json:"override_fields,omitempty"`
	Metrics        domrun.Metrics `json:"metrics"`
	CreatedAt      int64          `json:"created_at"`
}

// HistoryResponse lists a run and its ancestors, oldest last.
type HistoryResponse struct {
	Runs []RunSummary `json:"runs"`
}

// RepresentativesRequest is the body of POST /runs/{id}/representatives.
type RepresentativesRequest struct {
	Entries []domrun.Representative `json:"entries"`
}

// RepresentativesResponse lists the registered set of a run.
type RepresentativesResponse struct {
	RunID   string                  `json:"run_id"`
	Entries []domrun.Representative `json:"entries"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// runToResponse renders chain[0] with chain[1:] as its lineage.
func runToResponse(chain []domrun.Run) RunResponse {
	r := &chain[0]
	lineage := make([]string, 0, len(chain)-1)
	for i := 1; i < len(chain); i++ {
		lineage = append(lineage, chain[i].ID())
	}
	return RunResponse{
		RunID:             r.ID(),
		ParentRunID:       r.ParentID(),
		Lineage:           lineage,
		LaneRunIDs:        r.LaneIDs(),
		Recipe:            r.Recipe(),
		OverrideFields:    r.OverrideFields(),
		RankedDocs:        nonNil(r.Docs()),
		Metrics:           r.Metrics(),
		Frontier:          nonNil(r.Frontier()),
		LaneContributions: nonNil(r.LaneContributions()),
		CreatedAt:         r.CreatedAt(),
	}
}

func runToSummary(r *domrun.Run) RunSummary {
	return RunSummary{
		RunID:          r.ID(),
		ParentRunID:    r.ParentID(),
		OverrideFields: r.OverrideFields(),
		Metrics:        r.Metrics(),
		CreatedAt:      r.CreatedAt(),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
