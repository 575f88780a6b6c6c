package lane

import (
	"context"
	"sync"

	"github.com/kailas-cloud/lanefuse/internal/domain/document"
	domlane "github.com/kailas-cloud/lanefuse/internal/domain/lane"
)

type mockRepo struct {
	mu       sync.Mutex
	created  []domlane.Run
	err      error
	createFn func(ctx context.Context, l domlane.Run) error
}

func (m *mockRepo) Create(ctx context.Context, l domlane.Run) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, l); err != nil {
			return err
		}
	}
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, l)
	return nil
}

type mockDocs struct {
	mu     sync.Mutex
	put    []document.Document
	byLane map[string][]document.Document
	err    error
}

func (m *mockDocs) PutLane(_ context.Context, laneID string, docs []document.Document) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byLane == nil {
		m.byLane = make(map[string][]document.Document)
	}
	m.byLane[laneID] = docs
	m.put = append(m.put, docs...)
	return nil
}

func seqIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + string(rune('0'+n))
	}
}
