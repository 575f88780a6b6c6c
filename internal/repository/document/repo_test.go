package document

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/lanefuse/internal/db/memory"
	domdoc "github.com/kailas-cloud/lanefuse/internal/domain/document"
	"github.com/kailas-cloud/lanefuse/internal/domain/taxonomy"
	"github.com/kailas-cloud/lanefuse/internal/repository/codec"
)

func newMisses() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "misses"}, []string{"kind"})
}

func TestRepo_PutLaneForLanes(t *testing.T) {
	for _, name := range []string{codec.NameJSON, codec.NameCBOR} {
		t.Run(name, func(t *testing.T) {
			c, err := codec.New(name)
			if err != nil {
				t.Fatal(err)
			}
			misses := newMisses()
			repo := New(memory.NewStore(), c, "t:", time.Hour, misses)
			ctx := context.Background()

			docs := []domdoc.Document{
				{
					ID: "d1", FamilyID: "f1", Title: "Battery",
					Codes: map[taxonomy.Name][]taxonomy.Code{
						taxonomy.CPC: {taxonomy.NewCode("H01M10/05A", "")},
					},
				},
				{ID: "d2"},
			}
			if err := repo.PutLane(ctx, "lane-a", docs); err != nil {
				t.Fatalf("PutLane: %v", err)
			}

			got, err := repo.ForLanes(ctx, []string{"lane-a", "lane-gone"})
			if err != nil {
				t.Fatalf("ForLanes: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("expected 2 documents, got %d", len(got))
			}
			d1 := got["d1"]
			if d1.FamilyID != "f1" || d1.Title != "Battery" {
				t.Errorf("d1 = %+v", d1)
			}
			if code, ok := d1.PrimaryCode(taxonomy.CPC); !ok || code != "H01M10/05" {
				t.Errorf("d1 primary code = %q, %v", code, ok)
			}
			if v := testutil.ToFloat64(misses.WithLabelValues("document")); v != 1 {
				t.Errorf("misses = %v, want 1", v)
			}
		})
	}
}

func TestRepo_ForLanes_EarliestLaneWins(t *testing.T) {
	repo := New(memory.NewStore(), codec.JSON{}, "t:", time.Hour, nil)
	ctx := context.Background()

	_ = repo.PutLane(ctx, "a", []domdoc.Document{{ID: "d1", Title: "from a"}})
	_ = repo.PutLane(ctx, "b", []domdoc.Document{{ID: "d1", Title: "from b"}, {ID: "d2", Title: "only b"}})

	tests := []struct {
		lanes     []string
		wantTitle string
	}{
		{[]string{"a", "b"}, "from a"},
		{[]string{"b", "a"}, "from b"},
	}
	for _, tt := range tests {
		got, err := repo.ForLanes(ctx, tt.lanes)
		if err != nil {
			t.Fatal(err)
		}
		if got["d1"].Title != tt.wantTitle || got["d2"].Title != "only b" {
			t.Errorf("lanes %v: d1=%q d2=%q", tt.lanes, got["d1"].Title, got["d2"].Title)
		}
	}
}

func TestRepo_ForLanes_IgnoresOtherLanes(t *testing.T) {
	repo := New(memory.NewStore(), codec.JSON{}, "t:", time.Hour, nil)
	ctx := context.Background()

	_ = repo.PutLane(ctx, "a", []domdoc.Document{{ID: "d1", Title: "gear widget"}})
	// A later lane re-supplying d1 must not affect lookups scoped to "a".
	_ = repo.PutLane(ctx, "z", []domdoc.Document{{ID: "d1"}})

	got, err := repo.ForLanes(ctx, []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if got["d1"].Title != "gear widget" {
		t.Errorf("d1 title = %q", got["d1"].Title)
	}
}

func TestRepo_Keys(t *testing.T) {
	var setKey string
	var setTTL time.Duration
	ms := &mockStore{
		setWithTTLFn: func(_ context.Context, key string, _ []byte, ttl time.Duration) error {
			setKey, setTTL = key, ttl
			return nil
		},
	}
	repo := New(ms, codec.JSON{}, "lanefuse:", 2*time.Hour, nil)
	if err := repo.PutLane(context.Background(), "L1", []domdoc.Document{{ID: "US1"}}); err != nil {
		t.Fatal(err)
	}
	if setKey != "lanefuse:docs:L1" || setTTL != 2*time.Hour {
		t.Errorf("key = %q ttl = %v", setKey, setTTL)
	}
}

func TestRepo_ForLanes_StoreError(t *testing.T) {
	ms := &mockStore{
		mgetFn: func(context.Context, []string) ([][]byte, error) {
			return nil, errors.New("connection reset")
		},
	}
	repo := New(ms, codec.JSON{}, "t:", time.Hour, nil)
	if _, err := repo.ForLanes(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRepo_ForLanes_Empty(t *testing.T) {
	repo := New(&mockStore{
		mgetFn: func(context.Context, []string) ([][]byte, error) {
			t.Fatal("store should not be called")
			return nil, nil
		},
	}, codec.JSON{}, "t:", time.Hour, nil)
	got, err := repo.ForLanes(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}
