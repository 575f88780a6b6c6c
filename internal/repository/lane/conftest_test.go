package lane

import (
	"context"
	"time"

	"github.com/kailas-cloud/lanefuse/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn   func(ctx context.Context, key string) ([]byte, error)
	mgetFn  func(ctx context.Context, keys []string) ([][]byte, error)
	setNXFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if m.mgetFn != nil {
		return m.mgetFn(ctx, keys)
	}
	return make([][]byte, len(keys)), nil
}

func (m *mockStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setNXFn != nil {
		return m.setNXFn(ctx, key, value, ttl)
	}
	return nil
}
