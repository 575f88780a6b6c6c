package fusion

import (
	"context"
	"testing"

	"github.com/kailas-cloud/lanefuse/internal/domain"
	"github.com/kailas-cloud/lanefuse/internal/domain/document"
	"github.com/kailas-cloud/lanefuse/internal/domain/lane"
	"github.com/kailas-cloud/lanefuse/internal/domain/run"
)

type mockLanes struct {
	lanes map[string]lane.Run
	calls int
}

func (m *mockLanes) GetMany(_ context.Context, ids []string) ([]lane.Run, error) {
	m.calls++
	out := make([]lane.Run, 0, len(ids))
	for _, id := range ids {
		l, ok := m.lanes[id]
		if !ok {
			return nil, domain.NewLaneNotFound(id)
		}
		out = append(out, l)
	}
	return out, nil
}

type mockDocs struct {
	docs  map[string]document.Document
	lanes []string
	calls int
}

func (m *mockDocs) ForLanes(_ context.Context, laneIDs []string) (map[string]document.Document, error) {
	m.calls++
	m.lanes = append([]string(nil), laneIDs...)
	out := make(map[string]document.Document, len(m.docs))
	for id, d := range m.docs {
		out[id] = d
	}
	return out, nil
}

type mockRuns struct {
	created []run.Run
	err     error
}

func (m *mockRuns) Create(_ context.Context, r run.Run) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, r)
	return nil
}

func laneSet(t *testing.T, lanes ...lane.Run) *mockLanes {
	t.Helper()
	m := &mockLanes{lanes: make(map[string]lane.Run, len(lanes))}
	for _, l := range lanes {
		m.lanes[l.ID()] = l
	}
	return m
}
