package lanefuse

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
	domrun "github.com/kailas-cloud/lanefuse/internal/domain/run"
	laneuc "github.com/kailas-cloud/lanefuse/internal/usecase/lane"
)

func TestNew_NoAddress(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no address provided")
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown", addrs: []string{"localhost:1234"}}
	_, err := createStore(cfg)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestNew_InvalidDefaultRecipe(t *testing.T) {
	bad := recipe.Default()
	bad.RRFK = 0
	_, err := New(context.Background(), WithMemory(), WithDefaultRecipe(bad))
	if !errors.Is(err, ErrInvalidRecipe) {
		t.Fatalf("expected ErrInvalidRecipe, got %v", err)
	}
}

func TestNew_UnknownCodec(t *testing.T) {
	if _, err := New(context.Background(), WithMemory(), WithCodec("xml")); err == nil {
		t.Fatal("expected codec error")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithValkey("localhost:6379", "secret").apply(cfg)
	if cfg.driver != "valkey" {
		t.Errorf("driver = %q, want valkey", cfg.driver)
	}
	if cfg.addrs[0] != "localhost:6379" {
		t.Errorf("addr = %q, want localhost:6379", cfg.addrs[0])
	}
	if cfg.password != "secret" {
		t.Errorf("password = %q, want secret", cfg.password)
	}

	cfg2 := &clientConfig{}
	WithRedis("localhost:6380", "pass").apply(cfg2)
	if cfg2.driver != "redis" {
		t.Errorf("driver = %q, want redis", cfg2.driver)
	}
	WithGoRedis("localhost:6381", "").apply(cfg2)
	if cfg2.driver != "goredis" || cfg2.addrs[0] != "localhost:6381" {
		t.Errorf("goredis = (%q, %v)", cfg2.driver, cfg2.addrs)
	}
	WithMemory().apply(cfg2)
	if cfg2.driver != "memory" || cfg2.addrs != nil {
		t.Errorf("memory = (%q, %v)", cfg2.driver, cfg2.addrs)
	}

	WithValkey("n1:6379", "").apply(cfg2)
	WithSeeds("n1:6379", "n2:6379", "n3:6379").apply(cfg2)
	WithUsername("fuser").apply(cfg2)
	if len(cfg2.addrs) != 3 || cfg2.username != "fuser" {
		t.Errorf("cluster = (%v, %q)", cfg2.addrs, cfg2.username)
	}

	cfg3 := &clientConfig{}
	WithCodec("cbor").apply(cfg3)
	WithKeyPrefix("x:").apply(cfg3)
	WithTTL(time.Minute, time.Hour, 2*time.Minute).apply(cfg3)
	WithIngestLimits(4, time.Second).apply(cfg3)
	WithDB(3).apply(cfg3)
	if cfg3.codec != "cbor" || cfg3.keyPrefix != "x:" || cfg3.db != 3 {
		t.Errorf("codec/prefix/db = %q/%q/%d", cfg3.codec, cfg3.keyPrefix, cfg3.db)
	}
	if cfg3.laneTTL != time.Minute || cfg3.runTTL != time.Hour || cfg3.documentTTL != 2*time.Minute {
		t.Errorf("ttls = %v/%v/%v", cfg3.laneTTL, cfg3.runTTL, cfg3.documentTTL)
	}
	if cfg3.maxParallel != 4 || cfg3.laneTimeout != time.Second {
		t.Errorf("limits = %d/%v", cfg3.maxParallel, cfg3.laneTimeout)
	}

	cfg4 := &clientConfig{}
	logger := slog.Default()
	WithLogger(logger).apply(cfg4)
	if cfg4.logger != logger {
		t.Error("expected logger to be set")
	}

	cfg5 := &clientConfig{}
	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg5)
	if cfg5.metricsReg != reg {
		t.Error("expected metricsReg to be set")
	}
}

func TestClient_Close_NilStore(t *testing.T) {
	c := &Client{store: nil}
	c.Close()
}

func TestFuse_NilRecipeUsesDefault(t *testing.T) {
	var got recipe.Recipe
	c := testClient(nil, &mockFusionUC{
		fuseFn: func(_ context.Context, _ []string, rcp recipe.Recipe) (domrun.Run, error) {
			got = rcp
			return domrun.Run{}, nil
		},
	}, nil)
	c.defaults.RRFK = 42

	if _, err := c.Fuse(context.Background(), []string{"l1"}, nil); err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	if got.RRFK != 42 {
		t.Errorf("rrf_k = %d, want client default 42", got.RRFK)
	}

	explicit := recipe.Default()
	explicit.RRFK = 7
	if _, err := c.Fuse(context.Background(), []string{"l1"}, &explicit); err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	if got.RRFK != 7 {
		t.Errorf("rrf_k = %d, want explicit 7", got.RRFK)
	}
}

func TestClient_WrapsErrors(t *testing.T) {
	boom := errors.New("boom")
	c := testClient(
		&mockLaneUC{
			ingestFn: func(context.Context, *laneuc.IngestRequest) (string, error) { return "", boom },
			batchFn:  func(context.Context, []laneuc.IngestRequest) ([]string, error) { return nil, boom },
		},
		&mockFusionUC{
			fuseFn: func(context.Context, []string, recipe.Recipe) (domrun.Run, error) { return domrun.Run{}, boom },
			profileFn: func(context.Context, string, int) (recipe.TargetProfile, error) {
				return recipe.TargetProfile{}, boom
			},
		},
		&mockRunUC{
			getFn:      func(context.Context, string) (domrun.Run, error) { return domrun.Run{}, boom },
			historyFn:  func(context.Context, string) ([]domrun.Run, error) { return nil, boom },
			mutateFn:   func(context.Context, string, *recipe.Override) (domrun.Run, error) { return domrun.Run{}, boom },
			registerFn: func(context.Context, string, []domrun.Representative) error { return boom },
			repsFn:     func(context.Context, string) ([]domrun.Representative, error) { return nil, boom },
		},
	)
	ctx := context.Background()

	calls := map[string]func() error{
		"IngestLane":  func() error { _, err := c.IngestLane(ctx, &Lane{}); return err },
		"IngestLanes": func() error { _, err := c.IngestLanes(ctx, []Lane{{}}); return err },
		"Fuse":        func() error { _, err := c.Fuse(ctx, []string{"l"}, nil); return err },
		"Profile":     func() error { _, err := c.ProfileFromLane(ctx, "l", 3); return err },
		"GetRun":      func() error { _, err := c.GetRun(ctx, "r"); return err },
		"History":     func() error { _, err := c.History(ctx, "r"); return err },
		"Mutate":      func() error { _, err := c.Mutate(ctx, "r", &Override{}); return err },
		"Register":    func() error { return c.RegisterRepresentatives(ctx, "r", nil) },
		"Reps":        func() error { _, err := c.Representatives(ctx, "r"); return err },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if err := call(); !errors.Is(err, boom) {
				t.Errorf("expected wrapped boom, got %v", err)
			}
		})
	}
}

func TestIngestLanes_ForwardsRequests(t *testing.T) {
	w := 2.5
	var got []laneuc.IngestRequest
	c := testClient(&mockLaneUC{
		batchFn: func(_ context.Context, reqs []laneuc.IngestRequest) ([]string, error) {
			got = reqs
			return []string{"a", "b"}, nil
		},
	}, nil, nil)

	ids, err := c.IngestLanes(context.Background(), []Lane{
		{Type: Lexical, Weight: &w, Docs: []RankedDoc{{DocID: "d1", Rank: 1}}},
		{Type: Semantic, Docs: []RankedDoc{{DocID: "d2", Rank: 1}}},
	})
	if err != nil {
		t.Fatalf("IngestLanes: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" {
		t.Errorf("ids = %v", ids)
	}
	if len(got) != 2 || got[0].Type != Lexical || *got[0].Weight != 2.5 || got[1].Weight != nil {
		t.Errorf("forwarded requests = %+v", got)
	}
}

// Runs every client operation against the in-process store.
func TestClient_Memory(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	c, err := New(ctx, WithMemory(), WithCodec("cbor"), WithPrometheus(reg))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if h := c.Health(ctx); !h.OK() || h.Checks["database"] != "ok" || len(h.Failing()) != 0 {
		t.Errorf("health = %+v", h)
	}

	ids, err := c.IngestLanes(ctx, []Lane{
		{
			Type: Lexical,
			Docs: []RankedDoc{{DocID: "d1", Rank: 1}, {DocID: "d2", Rank: 2}},
			Documents: []Document{
				{ID: "d1", Title: "crypto", Codes: map[Taxonomy][]Code{CPC: {NewCode("H04L9/32A")}}},
				{ID: "d2", Title: "network"},
			},
		},
		{Type: Semantic, Docs: []RankedDoc{{DocID: "d2", Rank: 1}, {DocID: "d3", Rank: 2}}},
	})
	if err != nil {
		t.Fatalf("IngestLanes: %v", err)
	}

	profile, err := c.ProfileFromLane(ctx, ids[0], 5)
	if err != nil {
		t.Fatalf("ProfileFromLane: %v", err)
	}
	if len(profile.Primary[CPC]) == 0 {
		t.Errorf("profile has no cpc codes: %+v", profile)
	}

	root, err := c.Fuse(ctx, ids, nil)
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	if len(root.Docs()) != 3 {
		t.Fatalf("docs = %d, want 3", len(root.Docs()))
	}
	got, err := c.GetRun(ctx, root.ID())
	if err != nil || got.ID() != root.ID() {
		t.Fatalf("GetRun = %q, %v", got.ID(), err)
	}

	if err := c.RegisterRepresentatives(ctx, root.ID(), []Representative{{DocID: "d1", Label: LabelA}}); err != nil {
		t.Fatalf("RegisterRepresentatives: %v", err)
	}
	err = c.RegisterRepresentatives(ctx, root.ID(), []Representative{{DocID: "d2", Label: LabelB}})
	if !errors.Is(err, ErrDuplicateRegistration) {
		t.Errorf("second registration: expected ErrDuplicateRegistration, got %v", err)
	}
	reps, err := c.Representatives(ctx, root.ID())
	if err != nil || len(reps) != 1 {
		t.Fatalf("Representatives = %v, %v", reps, err)
	}

	k := 30
	child, err := c.Mutate(ctx, root.ID(), &Override{RRFK: &k})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if child.ParentID() != root.ID() {
		t.Errorf("parent = %q, want %q", child.ParentID(), root.ID())
	}
	chain, err := c.History(ctx, child.ID())
	if err != nil || len(chain) != 2 {
		t.Fatalf("History = %d, %v", len(chain), err)
	}

	_, err = c.GetRun(ctx, "missing")
	var nf *NotFoundError
	if !errors.As(err, &nf) || !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected NotFoundError, got %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "lanefuse_sdk_operations_total" {
			found = true
		}
	}
	if !found {
		t.Error("lanefuse_sdk_operations_total not found")
	}
}

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	obs.begin("test").end(nil)
	err := errors.New("err")
	obs.begin("test").end(&err)
	if obs.missCounter() != nil {
		t.Error("nil observer should have no miss counter")
	}
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.record("run.get", 10*time.Millisecond, nil)
	obs.record("run.get", time.Millisecond, errors.New("fail"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "lanefuse_sdk_operations_total" {
			found = true
			if len(f.GetMetric()) != 2 {
				t.Errorf("expected 2 metric samples, got %d", len(f.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("lanefuse_sdk_operations_total not found")
	}

	// A second client on the same registry reuses the collectors.
	if _, err := newObserver(nil, reg); err != nil {
		t.Errorf("re-register: %v", err)
	}
}

func TestObserver_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs, err := newObserver(logger, nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	func() {
		var opErr error
		defer obs.begin("run.get", slog.String("run_id", "r1")).end(&opErr)
	}()
	func() {
		opErr := errors.New("test error")
		defer obs.begin("run.get").end(&opErr)
	}()

	out := buf.String()
	for _, want := range []string{
		"lanefuse operation completed",
		"run_id=r1",
		"op=run.get",
		"lanefuse operation failed",
		`error="test error"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestHealthStatus_Failing(t *testing.T) {
	h := HealthStatus{Status: "error", Checks: map[string]string{"database": "error", "cache": "ok", "auth": "error"}}
	if h.OK() {
		t.Error("expected not OK")
	}
	got := h.Failing()
	if len(got) != 2 || got[0] != "auth" || got[1] != "database" {
		t.Errorf("Failing() = %v", got)
	}
}
