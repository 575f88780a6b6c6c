// Package lane persists lane runs as single TTL'd records.
package lane

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/lanefuse/internal/db"
	"github.com/kailas-cloud/lanefuse/internal/domain"
	domlane "github.com/kailas-cloud/lanefuse/internal/domain/lane"
	"github.com/kailas-cloud/lanefuse/internal/repository/codec"
)

// store is the consumer interface for lane runs (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Repo implements usecase/lane.Repository and usecase/fusion.LaneReader.
type Repo struct {
	store  store
	codec  codec.Codec
	prefix string
	ttl    time.Duration
	misses *prometheus.CounterVec
}

// New creates a lane repository. misses has label "kind" and may be nil.
func New(s store, c codec.Codec, prefix string, ttl time.Duration, misses *prometheus.CounterVec) *Repo {
	return &Repo{store: s, codec: c, prefix: prefix, ttl: ttl, misses: misses}
}

// Create stores a new lane run. An existing id is never overwritten.
func (r *Repo) Create(ctx context.Context, l domlane.Run) error {
	data, err := r.codec.Marshal(toRecord(&l))
	if err != nil {
		return fmt.Errorf("marshal lane: %w", err)
	}
	if err := r.store.SetNX(ctx, r.key(l.ID()), data, r.ttl); err != nil {
		if errors.Is(err, db.ErrKeyExists) {
			return fmt.Errorf("lane %q already exists: %w", l.ID(), err)
		}
		return fmt.Errorf("store lane: %w", err)
	}
	return nil
}

// Get loads one lane run.
func (r *Repo) Get(ctx context.Context, id string) (domlane.Run, error) {
	data, err := r.store.Get(ctx, r.key(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			r.miss()
			return domlane.Run{}, domain.NewLaneNotFound(id)
		}
		return domlane.Run{}, fmt.Errorf("get lane: %w", err)
	}
	return r.decode(id, data)
}

// GetMany loads lane runs in the order of ids. The first missing or expired
// lane fails the whole call.
func (r *Repo) GetMany(ctx context.Context, ids []string) ([]domlane.Run, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	raw, err := r.store.MGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get lanes: %w", err)
	}

	out := make([]domlane.Run, len(ids))
	for i, id := range ids {
		if i >= len(raw) || raw[i] == nil {
			r.miss()
			return nil, domain.NewLaneNotFound(id)
		}
		if out[i], err = r.decode(id, raw[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) decode(id string, data []byte) (domlane.Run, error) {
	var rec record
	if err := r.codec.Unmarshal(data, &rec); err != nil {
		return domlane.Run{}, fmt.Errorf("unmarshal lane %q: %w", id, err)
	}
	return rec.toDomain(), nil
}

func (r *Repo) miss() {
	if r.misses != nil {
		r.misses.WithLabelValues(domain.KindLane).Inc()
	}
}

func (r *Repo) key(id string) string {
	return r.prefix + "lane:" + id
}
