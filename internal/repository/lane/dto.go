package lane

import (
	domlane "github.com/kailas-cloud/lanefuse/internal/domain/lane"
)

// record is the stored form of a lane run.
type record struct {
	ID          string              `json:"id" cbor:"id"`
	Type        domlane.Type        `json:"lane_type" cbor:"lane_type"`
	Weight      float64             `json:"weight" cbor:"weight"`
	Docs        []domlane.RankedDoc `json:"docs" cbor:"docs"`
	CodeSummary domlane.CodeSummary `json:"code_summary,omitempty" cbor:"code_summary,omitempty"`
	CreatedAt   int64               `json:"created_at" cbor:"created_at"`
}

func toRecord(l *domlane.Run) record {
	return record{
		ID:          l.ID(),
		Type:        l.Type(),
		Weight:      l.Weight(),
		Docs:        l.Docs(),
		CodeSummary: l.CodeSummary(),
		CreatedAt:   l.CreatedAt(),
	}
}

func (r *record) toDomain() domlane.Run {
	return domlane.Reconstruct(r.ID, r.Type, r.Weight, r.Docs, r.CodeSummary, r.CreatedAt)
}
