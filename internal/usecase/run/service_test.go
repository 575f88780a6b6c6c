package run

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/lanefuse/internal/domain"
	"github.com/kailas-cloud/lanefuse/internal/domain/lane"
	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
	domrun "github.com/kailas-cloud/lanefuse/internal/domain/run"
	"github.com/kailas-cloud/lanefuse/internal/domain/taxonomy"
)

func defaultRecipe() recipe.Recipe { return recipe.Default() }

func twoLanes(t *testing.T) mockLanes {
	return mockLanes{
		"a": mustLane(t, "a", lane.Lexical, "d1", "d2", "d3"),
		"b": mustLane(t, "b", lane.Semantic, "d3", "d4", "d1"),
	}
}

func rootRun(t *testing.T, f *fixture, rcp recipe.Recipe) domrun.Run {
	t.Helper()
	r, err := f.fusion.Fuse(context.Background(), []string{"a", "b"}, rcp)
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	return r
}

func TestMutate_EmptyOverrideReproduces(t *testing.T) {
	f := newFixture(t, twoLanes(t), nil)
	root := rootRun(t, f, recipe.Default())

	child, err := f.svc.Mutate(context.Background(), root.ID(), &recipe.Override{})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if child.ID() == root.ID() || child.ParentID() != root.ID() {
		t.Errorf("child %q parent %q", child.ID(), child.ParentID())
	}
	if !reflect.DeepEqual(child.Docs(), root.Docs()) {
		t.Errorf("docs differ:\n%v\n%v", child.Docs(), root.Docs())
	}
	if child.Metrics() != root.Metrics() {
		t.Errorf("metrics differ: %+v vs %+v", child.Metrics(), root.Metrics())
	}
	if len(child.OverrideFields()) != 0 {
		t.Errorf("override fields = %v", child.OverrideFields())
	}
}

func TestMutate_RRFKInheritsTheRest(t *testing.T) {
	f := newFixture(t, twoLanes(t), nil)
	rcp := recipe.Default()
	rcp.TargetProfile = recipe.TargetProfile{Primary: recipe.CodeWeights{taxonomy.CPC: {"H04L9/32": 1}}}
	root := rootRun(t, f, rcp)

	k := 30
	child, err := f.svc.Mutate(context.Background(), root.ID(), &recipe.Override{RRFK: &k})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	got := child.Recipe()
	if got.RRFK != 30 {
		t.Errorf("rrf_k = %d", got.RRFK)
	}
	if !reflect.DeepEqual(got.TargetProfile, rcp.TargetProfile) {
		t.Errorf("target profile not inherited: %+v", got.TargetProfile)
	}
	if !reflect.DeepEqual(child.LaneIDs(), root.LaneIDs()) {
		t.Errorf("lane ids = %v", child.LaneIDs())
	}
	if !reflect.DeepEqual(child.OverrideFields(), []string{"rrf_k"}) {
		t.Errorf("override fields = %v", child.OverrideFields())
	}
	stored := f.runs.runs[root.ID()]
	if base := stored.Recipe(); base.RRFK != recipe.DefaultRRFK {
		t.Errorf("base run modified: rrf_k = %d", base.RRFK)
	}
}

func TestMutate_InvalidRecipe(t *testing.T) {
	f := newFixture(t, twoLanes(t), nil)
	root := rootRun(t, f, recipe.Default())

	beta := -1.0
	_, err := f.svc.Mutate(context.Background(), root.ID(), &recipe.Override{BetaFuse: &beta})
	if !errors.Is(err, domain.ErrInvalidRecipe) {
		t.Fatalf("expected ErrInvalidRecipe, got %v", err)
	}
	if len(f.runs.runs) != 1 {
		t.Errorf("invalid mutation stored a run; %d runs", len(f.runs.runs))
	}
}

func TestMutate_UnknownRun(t *testing.T) {
	f := newFixture(t, twoLanes(t), nil)
	_, err := f.svc.Mutate(context.Background(), "nope", &recipe.Override{})
	if !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestMutate_ExpiredLane(t *testing.T) {
	lanes := twoLanes(t)
	f := newFixture(t, lanes, nil)
	root := rootRun(t, f, recipe.Default())
	delete(lanes, "b")

	_, err := f.svc.Mutate(context.Background(), root.ID(), &recipe.Override{})
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || nf.Kind != domain.KindLane {
		t.Fatalf("expected lane NotFoundError, got %v", err)
	}
}

func TestMutate_SteerFromRepresentatives(t *testing.T) {
	docs := mockDocs{
		"d1": {ID: "d1", Abstract: "block cipher key schedule"},
		"d3": {ID: "d3", Abstract: "packet routing"},
	}
	f := newFixture(t, twoLanes(t), docs)
	rcp := recipe.Default()
	rcp.FacetTerms = map[string][]string{"crypto": {"cipher", "key"}, "net": {"packet", "routing"}}
	root := rootRun(t, f, rcp)

	ov := &recipe.Override{SteerFromRepresentatives: true}
	if _, err := f.svc.Mutate(context.Background(), root.ID(), ov); !errors.Is(err, domain.ErrInvalidRecipe) {
		t.Fatalf("steering without representatives: got %v", err)
	}

	reps := []domrun.Representative{{DocID: "d1", Label: "a"}, {DocID: "d3", Label: "C"}}
	if err := f.svc.RegisterRepresentatives(context.Background(), root.ID(), reps); err != nil {
		t.Fatalf("RegisterRepresentatives: %v", err)
	}

	child, err := f.svc.Mutate(context.Background(), root.ID(), ov)
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	got := child.Recipe().FacetWeights
	want := map[string]float64{"crypto": 0.5, "net": 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("facet weights = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(child.OverrideFields(), []string{"facet_weights"}) {
		t.Errorf("override fields = %v", child.OverrideFields())
	}
}

func TestRegisterRepresentatives(t *testing.T) {
	f := newFixture(t, twoLanes(t), nil)
	root := rootRun(t, f, recipe.Default())
	ctx := context.Background()

	tests := []struct {
		name    string
		entries []domrun.Representative
		wantErr error
	}{
		{"empty", nil, domain.ErrInvalidRepresentative},
		{"bad label", []domrun.Representative{{DocID: "d1", Label: "D"}}, domain.ErrInvalidRepresentative},
		{"not in run", []domrun.Representative{{DocID: "zz", Label: "A"}}, domain.ErrInvalidRepresentative},
		{"valid", []domrun.Representative{{DocID: "d1", Label: "A", Reason: "core"}}, nil},
		{"second registration", []domrun.Representative{{DocID: "d2", Label: "B"}}, domain.ErrDuplicateRegistration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.RegisterRepresentatives(ctx, root.ID(), tt.entries)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	got, err := f.svc.Representatives(ctx, root.ID())
	if err != nil || len(got) != 1 || got[0].DocID != "d1" {
		t.Errorf("Representatives = %v, %v", got, err)
	}
	if err := f.svc.RegisterRepresentatives(ctx, "missing", nil); !errors.Is(err, domain.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t, nil, nil)
	putRun(t, f.runs, "r1", "")
	putRun(t, f.runs, "r2", "r1")
	putRun(t, f.runs, "r3", "r2")

	chain, err := f.svc.History(context.Background(), "r3")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if got := runIDs(chain); !reflect.DeepEqual(got, []string{"r3", "r2", "r1"}) {
		t.Errorf("chain = %v", got)
	}
}

func TestHistory_StopsAtExpiredAncestor(t *testing.T) {
	f := newFixture(t, nil, nil)
	putRun(t, f.runs, "r2", "expired")
	putRun(t, f.runs, "r3", "r2")

	chain, err := f.svc.History(context.Background(), "r3")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if got := runIDs(chain); !reflect.DeepEqual(got, []string{"r3", "r2"}) {
		t.Errorf("chain = %v", got)
	}
}

func TestHistory_Cycle(t *testing.T) {
	f := newFixture(t, nil, nil)
	putRun(t, f.runs, "x", "y")
	putRun(t, f.runs, "y", "x")

	chain, err := f.svc.History(context.Background(), "x")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if got := runIDs(chain); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("chain = %v", got)
	}
}

func TestHistory_Errors(t *testing.T) {
	f := newFixture(t, nil, nil)
	if _, err := f.svc.History(context.Background(), "nope"); !errors.Is(err, domain.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}

	f.runs.getErr = errors.New("store down")
	if _, err := f.svc.History(context.Background(), "nope"); err == nil || errors.Is(err, domain.ErrRunNotFound) {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestGet(t *testing.T) {
	f := newFixture(t, nil, nil)
	putRun(t, f.runs, "r1", "")

	r, err := f.svc.Get(context.Background(), "r1")
	if err != nil || r.ID() != "r1" {
		t.Fatalf("Get = %v, %v", r.ID(), err)
	}
	if _, err := f.svc.Get(context.Background(), "r2"); !errors.Is(err, domain.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func runIDs(rs []domrun.Run) []string {
	out := make([]string, len(rs))
	for i := range rs {
		out[i] = rs[i].ID()
	}
	return out
}
