// Package memory implements db.Store in process on go-cache. It backs tests,
// the offline CLI and single-node deployments without Redis.
package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/kailas-cloud/lanefuse/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

const cleanupInterval = time.Minute

// Store keeps values in a TTL map. Values are copied on the way in and out.
type Store struct {
	cache *gocache.Cache
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{cache: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close drops every key.
func (s *Store) Close() { s.cache.Flush() }

// WaitForReady returns immediately.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return clone(v.([]byte)), nil
}

// MGet returns one slot per key; missing keys yield nil.
func (s *Store) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, &db.Error{Op: db.OpMGet, Err: err}
	}
	out := make([][]byte, len(keys))
	for i, key := range keys {
		if v, ok := s.cache.Get(key); ok {
			out[i] = clone(v.([]byte))
		}
	}
	return out, nil
}

// SetWithTTL stores a value with an expiration. A non-positive ttl never expires.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	s.cache.Set(key, clone(value), expiration(ttl))
	return nil
}

// SetNX stores a value only if the key is absent or expired.
func (s *Store) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	if err := s.cache.Add(key, clone(value), expiration(ttl)); err != nil {
		return db.ErrKeyExists
	}
	return nil
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
