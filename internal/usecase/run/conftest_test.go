package run

import (
	"context"
	"fmt"
	"testing"

	"github.com/kailas-cloud/lanefuse/internal/domain"
	"github.com/kailas-cloud/lanefuse/internal/domain/document"
	"github.com/kailas-cloud/lanefuse/internal/domain/lane"
	domrun "github.com/kailas-cloud/lanefuse/internal/domain/run"
	"github.com/kailas-cloud/lanefuse/internal/usecase/fusion"
)

type mockRuns struct {
	runs   map[string]domrun.Run
	getErr error
}

func (m *mockRuns) Get(_ context.Context, id string) (domrun.Run, error) {
	if m.getErr != nil {
		return domrun.Run{}, m.getErr
	}
	r, ok := m.runs[id]
	if !ok {
		return domrun.Run{}, domain.NewRunNotFound(id)
	}
	return r, nil
}

func (m *mockRuns) Create(_ context.Context, r domrun.Run) error {
	if _, ok := m.runs[r.ID()]; ok {
		return fmt.Errorf("run %q already exists", r.ID())
	}
	m.runs[r.ID()] = r
	return nil
}

type mockReps struct {
	sets map[string][]domrun.Representative
}

func (m *mockReps) Register(_ context.Context, runID string, entries []domrun.Representative) error {
	if _, ok := m.sets[runID]; ok {
		return domain.ErrDuplicateRegistration
	}
	m.sets[runID] = entries
	return nil
}

func (m *mockReps) Get(_ context.Context, runID string) ([]domrun.Representative, error) {
	return m.sets[runID], nil
}

type mockLanes map[string]lane.Run

func (m mockLanes) GetMany(_ context.Context, ids []string) ([]lane.Run, error) {
	out := make([]lane.Run, 0, len(ids))
	for _, id := range ids {
		l, ok := m[id]
		if !ok {
			return nil, domain.NewLaneNotFound(id)
		}
		out = append(out, l)
	}
	return out, nil
}

type mockDocs map[string]document.Document

func (m mockDocs) ForLanes(_ context.Context, _ []string) (map[string]document.Document, error) {
	out := make(map[string]document.Document, len(m))
	for id, d := range m {
		out[id] = d
	}
	return out, nil
}

type fixture struct {
	runs   *mockRuns
	reps   *mockReps
	fusion *fusion.Service
	svc    *Service
}

func newFixture(t *testing.T, lanes mockLanes, docs mockDocs) *fixture {
	t.Helper()
	runs := &mockRuns{runs: make(map[string]domrun.Run)}
	reps := &mockReps{sets: make(map[string][]domrun.Representative)}
	n := 0
	fu := fusion.New(lanes, docs, runs, nil, fusion.WithIDGenerator(func() string {
		n++
		return "run-" + string(rune('0'+n))
	}))
	return &fixture{
		runs:   runs,
		reps:   reps,
		fusion: fu,
		svc:    New(runs, reps, docs, fu, nil),
	}
}

func mustLane(t *testing.T, id string, typ lane.Type, docIDs ...string) lane.Run {
	t.Helper()
	docs := make([]lane.RankedDoc, len(docIDs))
	for i, d := range docIDs {
		docs[i] = lane.RankedDoc{DocID: d, Rank: i + 1}
	}
	l, err := lane.New(id, typ, 1, docs, nil)
	if err != nil {
		t.Fatalf("lane.New(%s): %v", id, err)
	}
	return l
}

// putRun stores a hand-built run, for lineage shapes fusion never produces.
func putRun(t *testing.T, m *mockRuns, id, parent string) {
	t.Helper()
	r := domrun.Reconstruct(id, parent, defaultRecipe(), []string{"a"}, nil, domrun.Result{}, 0)
	m.runs[id] = r
}
