// Package run persists immutable fusion runs.
package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/lanefuse/internal/db"
	"github.com/kailas-cloud/lanefuse/internal/domain"
	domrun "github.com/kailas-cloud/lanefuse/internal/domain/run"
	"github.com/kailas-cloud/lanefuse/internal/repository/codec"
)

// store is the consumer interface for fusion runs (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Repo implements usecase/run.Repository and usecase/fusion.RunWriter.
type Repo struct {
	store  store
	codec  codec.Codec
	prefix string
	ttl    time.Duration
	misses *prometheus.CounterVec
}

// New creates a run repository. misses has label "kind" and may be nil.
func New(s store, c codec.Codec, prefix string, ttl time.Duration, misses *prometheus.CounterVec) *Repo {
	return &Repo{store: s, codec: c, prefix: prefix, ttl: ttl, misses: misses}
}

// Create persists a run in a single SET NX EX. Runs are never updated.
func (r *Repo) Create(ctx context.Context, run domrun.Run) error {
	data, err := r.codec.Marshal(toRecord(&run))
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if err := r.store.SetNX(ctx, r.key(run.ID()), data, r.ttl); err != nil {
		if errors.Is(err, db.ErrKeyExists) {
			return fmt.Errorf("run %q already exists: %w", run.ID(), err)
		}
		return fmt.Errorf("store run: %w", err)
	}
	return nil
}

// Get loads a run. Unknown and expired runs are both reported as not found.
func (r *Repo) Get(ctx context.Context, id string) (domrun.Run, error) {
	data, err := r.store.Get(ctx, r.key(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			if r.misses != nil {
				r.misses.WithLabelValues(domain.KindRun).Inc()
			}
			return domrun.Run{}, domain.NewRunNotFound(id)
		}
		return domrun.Run{}, fmt.Errorf("get run: %w", err)
	}

	var rec record
	if err := r.codec.Unmarshal(data, &rec); err != nil {
		return domrun.Run{}, fmt.Errorf("unmarshal run %q: %w", id, err)
	}
	return rec.toDomain(), nil
}

func (r *Repo) key(id string) string {
	return r.prefix + "run:" + id
}
