// Package document stores the document metadata each lane run was ingested
// with. Every lane owns one bundle; bundles of different lanes never share a
// key, so a later ingest cannot change what an existing run was scored on.
package document

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	domdoc "github.com/kailas-cloud/lanefuse/internal/domain/document"
	"github.com/kailas-cloud/lanefuse/internal/repository/codec"
)

const missKind = "document"

// store is the consumer interface for document bundles (ISP).
type store interface {
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// bundle is the stored form of one lane's documents.
type bundle struct {
	LaneID    string            `json:"lane_id" cbor:"lane_id"`
	Documents []domdoc.Document `json:"documents" cbor:"documents"`
}

// Repo implements usecase/lane.DocumentWriter and usecase/fusion.DocumentReader.
type Repo struct {
	store  store
	codec  codec.Codec
	prefix string
	ttl    time.Duration
	misses *prometheus.CounterVec
}

// New creates a document repository. misses has label "kind" and may be nil.
// ttl must not be shorter than the lane TTL, or a visible lane could lose
// its metadata.
func New(s store, c codec.Codec, prefix string, ttl time.Duration, misses *prometheus.CounterVec) *Repo {
	return &Repo{store: s, codec: c, prefix: prefix, ttl: ttl, misses: misses}
}

// PutLane stores the documents supplied with laneID, possibly none. It is
// written before the lane itself becomes visible.
func (r *Repo) PutLane(ctx context.Context, laneID string, docs []domdoc.Document) error {
	data, err := r.codec.Marshal(bundle{LaneID: laneID, Documents: docs})
	if err != nil {
		return fmt.Errorf("marshal documents of lane %q: %w", laneID, err)
	}
	if err := r.store.SetWithTTL(ctx, r.key(laneID), data, r.ttl); err != nil {
		return fmt.Errorf("store documents of lane %q: %w", laneID, err)
	}
	return nil
}

// ForLanes merges the bundles of laneIDs into one map by doc id. When several
// lanes carry the same document, the earliest lane in laneIDs wins, so the
// result depends only on the lane list. A missing bundle contributes nothing.
func (r *Repo) ForLanes(ctx context.Context, laneIDs []string) (map[string]domdoc.Document, error) {
	out := make(map[string]domdoc.Document)
	if len(laneIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(laneIDs))
	for i, id := range laneIDs {
		keys[i] = r.key(id)
	}
	raw, err := r.store.MGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get documents: %w", err)
	}

	missing := 0
	for i, id := range laneIDs {
		if i >= len(raw) || raw[i] == nil {
			missing++
			continue
		}
		var b bundle
		if err := r.codec.Unmarshal(raw[i], &b); err != nil {
			return nil, fmt.Errorf("unmarshal documents of lane %q: %w", id, err)
		}
		for _, d := range b.Documents {
			if _, seen := out[d.ID]; !seen {
				out[d.ID] = d
			}
		}
	}
	if missing > 0 && r.misses != nil {
		r.misses.WithLabelValues(missKind).Add(float64(missing))
	}
	return out, nil
}

func (r *Repo) key(laneID string) string {
	return r.prefix + "docs:" + laneID
}
