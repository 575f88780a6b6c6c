// Package lane holds the lane run aggregate: one executed retrieval strategy
// and its ranked output.
package lane

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/kailas-cloud/lanefuse/internal/domain/taxonomy"
)

// Type is the retrieval strategy of a lane.
type Type string

// Lane type constants.
const (
	Lexical  Type = "lexical"
	Semantic Type = "semantic"
	// CodeOnly lanes retrieve by classification code without query text.
	CodeOnly Type = "code_only"
	Citation Type = "citation"
	Hybrid   Type = "hybrid"
)

// IsValid checks if the lane type is one of the supported values.
func (t Type) IsValid() bool {
	switch t {
	case Lexical, Semantic, CodeOnly, Citation, Hybrid:
		return true
	}
	return false
}

// UnmarshalText rejects unknown lane types at the decoding boundary.
func (t *Type) UnmarshalText(b []byte) error {
	v := Type(strings.ToLower(strings.TrimSpace(string(b))))
	if !v.IsValid() {
		return fmt.Errorf("unknown lane type %q", string(b))
	}
	*t = v
	return nil
}

// DefaultWeight is applied when the caller does not assign a lane weight.
const DefaultWeight = 1.0

// RankedDoc is one entry of a lane's ranked list.
type RankedDoc struct {
	DocID string `json:"doc_id" cbor:"doc_id" yaml:"doc_id"`
	Rank  int    `json:"rank" cbor:"rank" yaml:"rank"`
}

// CodeSummary counts code occurrences per taxonomy over a lane's results.
type CodeSummary map[taxonomy.Name]map[string]int

// Run is an immutable executed lane.
type Run struct {
	id          string
	laneType    Type
	weight      float64
	docs        []RankedDoc
	codeSummary CodeSummary
	createdAt   int64
}

// New validates and creates a lane run. Docs are re-ordered by rank; rank gaps
// are tolerated, duplicates are not.
func New(id string, laneType Type, weight float64, docs []RankedDoc, summary CodeSummary) (Run, error) {
	if id == "" {
		return Run{}, fmt.Errorf("lane ID is required")
	}
	if !laneType.IsValid() {
		return Run{}, fmt.Errorf("unknown lane type %q", laneType)
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
		return Run{}, fmt.Errorf("lane weight must be finite and non-negative, got %v", weight)
	}

	seenDoc := make(map[string]struct{}, len(docs))
	seenRank := make(map[int]struct{}, len(docs))
	sorted := make([]RankedDoc, len(docs))
	copy(sorted, docs)
	for _, d := range sorted {
		if d.DocID == "" {
			return Run{}, fmt.Errorf("doc_id is required")
		}
		if d.Rank < 1 {
			return Run{}, fmt.Errorf("doc %q: rank must be >= 1, got %d", d.DocID, d.Rank)
		}
		if _, dup := seenDoc[d.DocID]; dup {
			return Run{}, fmt.Errorf("duplicate doc_id %q", d.DocID)
		}
		if _, dup := seenRank[d.Rank]; dup {
			return Run{}, fmt.Errorf("duplicate rank %d", d.Rank)
		}
		seenDoc[d.DocID] = struct{}{}
		seenRank[d.Rank] = struct{}{}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })

	return Run{
		id:          id,
		laneType:    laneType,
		weight:      weight,
		docs:        sorted,
		codeSummary: cloneSummary(summary),
		createdAt:   time.Now().UnixMilli(),
	}, nil
}

// Reconstruct creates a Run without validation (storage hydration).
func Reconstruct(
	id string, laneType Type, weight float64, docs []RankedDoc, summary CodeSummary, createdAt int64,
) Run {
	return Run{
		id: id, laneType: laneType, weight: weight,
		docs: docs, codeSummary: summary, createdAt: createdAt,
	}
}

// ID returns the lane run identifier.
func (r *Run) ID() string { return r.id }

// Type returns the retrieval strategy.
func (r *Run) Type() Type { return r.laneType }

// Weight returns the caller-assigned lane weight.
func (r *Run) Weight() float64 { return r.weight }

// Docs returns the ranked documents ordered by rank.
func (r *Run) Docs() []RankedDoc { return r.docs }

// CodeSummary returns the per-taxonomy code frequencies.
func (r *Run) CodeSummary() CodeSummary { return r.codeSummary }

// CreatedAt returns the creation time in unix millis.
func (r *Run) CreatedAt() int64 { return r.createdAt }

// Len returns the number of ranked documents.
func (r *Run) Len() int { return len(r.docs) }

// Top returns the ids of the first k documents by rank.
func (r *Run) Top(k int) []string {
	if k > len(r.docs) || k < 0 {
		k = len(r.docs)
	}
	ids := make([]string, k)
	for i := 0; i < k; i++ {
		ids[i] = r.docs[i].DocID
	}
	return ids
}

// Score is the reciprocal-rank score of a document at rank in a lane with
// the given weight. rrfK is supplied per fusion, not stored with the lane.
func Score(weight float64, rrfK, rank int) float64 {
	return weight / (float64(rrfK) + float64(rank))
}

func cloneSummary(s CodeSummary) CodeSummary {
	if s == nil {
		return nil
	}
	out := make(CodeSummary, len(s))
	for tax, codes := range s {
		m := make(map[string]int, len(codes))
		for code, n := range codes {
			m[code] = n
		}
		out[tax] = m
	}
	return out
}
