// Package representative persists the labelled representative set of a run.
package representative

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/lanefuse/internal/db"
	"github.com/kailas-cloud/lanefuse/internal/domain"
	domrun "github.com/kailas-cloud/lanefuse/internal/domain/run"
	"github.com/kailas-cloud/lanefuse/internal/repository/codec"
)

// store is the consumer interface for representative sets (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type record struct {
	RunID     string                  `json:"run_id" cbor:"run_id"`
	Entries   []domrun.Representative `json:"entries" cbor:"entries"`
	CreatedAt int64                   `json:"created_at" cbor:"created_at"`
}

// Repo stores at most one representative set per run.
type Repo struct {
	store  store
	codec  codec.Codec
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// New creates a representative repository. Sets expire with ttl, normally the run TTL.
func New(s store, c codec.Codec, prefix string, ttl time.Duration) *Repo {
	return &Repo{store: s, codec: c, prefix: prefix, ttl: ttl, now: time.Now}
}

// Register stores the set for runID. A second call for the same run fails
// with domain.ErrDuplicateRegistration.
func (r *Repo) Register(ctx context.Context, runID string, entries []domrun.Representative) error {
	data, err := r.codec.Marshal(record{RunID: runID, Entries: entries, CreatedAt: r.now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("marshal representatives: %w", err)
	}
	if err := r.store.SetNX(ctx, r.key(runID), data, r.ttl); err != nil {
		if errors.Is(err, db.ErrKeyExists) {
			return fmt.Errorf("run %q: %w", runID, domain.ErrDuplicateRegistration)
		}
		return fmt.Errorf("store representatives: %w", err)
	}
	return nil
}

// Get returns the registered set for runID, or nil when none was registered.
func (r *Repo) Get(ctx context.Context, runID string) ([]domrun.Representative, error) {
	data, err := r.store.Get(ctx, r.key(runID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get representatives: %w", err)
	}
	var rec record
	if err := r.codec.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal representatives for %q: %w", runID, err)
	}
	return rec.Entries, nil
}

func (r *Repo) key(runID string) string {
	return r.prefix + "run:" + runID + ":representatives"
}
