package lanefuse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lanefuse/internal/app"
	"github.com/kailas-cloud/lanefuse/internal/db"
	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
	domrun "github.com/kailas-cloud/lanefuse/internal/domain/run"
	laneuc "github.com/kailas-cloud/lanefuse/internal/usecase/lane"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "lanefuse:"
	defaultCodec            = "json"
	defaultLaneTTL          = 24 * time.Hour
	defaultRunTTL           = 7 * 24 * time.Hour
	defaultDocumentTTL      = 24 * time.Hour
)

// Internal interfaces so tests can swap the use cases.
type laneUseCase interface {
	Ingest(ctx context.Context, req *laneuc.IngestRequest) (string, error)
	IngestBatch(ctx context.Context, reqs []laneuc.IngestRequest) ([]string, error)
}

type fusionUseCase interface {
	Fuse(ctx context.Context, laneIDs []string, rcp recipe.Recipe) (domrun.Run, error)
	ProfileFromLane(ctx context.Context, laneID string, topN int) (recipe.TargetProfile, error)
}

type runUseCase interface {
	Get(ctx context.Context, id string) (domrun.Run, error)
	History(ctx context.Context, id string) ([]domrun.Run, error)
	Mutate(ctx context.Context, runID string, ov *recipe.Override) (domrun.Run, error)
	RegisterRepresentatives(ctx context.Context, runID string, entries []domrun.Representative) error
	Representatives(ctx context.Context, runID string) ([]domrun.Representative, error)
}

// Client is the lanefuse SDK entry point.
type Client struct {
	store     db.Store
	laneSvc   laneUseCase
	fusionSvc fusionUseCase
	runSvc    runUseCase
	healthSvc healthUseCase
	defaults  Recipe
	obs       *observer
}

// New creates a lanefuse Client and connects to the store.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver != app.DriverMemory && len(cfg.addrs) == 0 {
		return nil, errors.New("lanefuse: store address required (use WithValkey, WithRedis, WithGoRedis or WithMemory)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("lanefuse: store not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	c, err := wireClient(store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	s, err := app.OpenStore(app.StoreConfig{
		Driver:   cfg.driver,
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
		DB:       cfg.db,
	})
	if err != nil {
		return nil, fmt.Errorf("lanefuse: %w", err)
	}
	return s, nil
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	defaults := recipe.Default()
	if cfg.defaultRecipe != nil {
		if err := cfg.defaultRecipe.Validate(); err != nil {
			return nil, fmt.Errorf("lanefuse: default recipe: %w", err)
		}
		defaults = cfg.defaultRecipe.Clone()
	}

	svcs, err := app.Build(store, app.Options{
		Codec:       orString(cfg.codec, defaultCodec),
		KeyPrefix:   orString(cfg.keyPrefix, defaultKeyPrefix),
		LaneTTL:     orDuration(cfg.laneTTL, defaultLaneTTL),
		RunTTL:      orDuration(cfg.runTTL, defaultRunTTL),
		DocumentTTL: orDuration(cfg.documentTTL, defaultDocumentTTL),
		MaxParallel: cfg.maxParallel,
		LaneTimeout: cfg.laneTimeout,
		Misses:      obs.missCounter(),
	}, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("lanefuse: %w", err)
	}

	return &Client{
		store:     store,
		laneSvc:   svcs.Lanes,
		fusionSvc: svcs.Fusion,
		runSvc:    svcs.Runs,
		healthSvc: svcs.Health,
		defaults:  defaults,
		obs:       obs,
	}, nil
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	defer c.obs.begin("ping").end(&err)

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// DefaultRecipe returns the recipe Fuse applies when none is given.
func (c *Client) DefaultRecipe() Recipe { return c.defaults.Clone() }

// IngestLane validates and stores one lane, returning its id.
func (c *Client) IngestLane(ctx context.Context, l *Lane) (id string, err error) {
	defer c.obs.begin("lane.ingest", slog.String("lane_type", string(l.Type))).end(&err)

	req := l.toRequest()
	id, err = c.laneSvc.Ingest(ctx, &req)
	if err != nil {
		return "", fmt.Errorf("ingest lane: %w", err)
	}
	return id, nil
}

// IngestLanes stores lanes concurrently. Ids come back in input order; the
// first failure aborts the batch.
func (c *Client) IngestLanes(ctx context.Context, lanes []Lane) (ids []string, err error) {
	defer c.obs.begin("lane.ingest_batch", slog.Int("lanes", len(lanes))).end(&err)

	reqs := make([]laneuc.IngestRequest, len(lanes))
	for i := range lanes {
		reqs[i] = lanes[i].toRequest()
	}
	ids, err = c.laneSvc.IngestBatch(ctx, reqs)
	if err != nil {
		return nil, fmt.Errorf("ingest lanes: %w", err)
	}
	return ids, nil
}

// Fuse combines stored lanes into a new root run. A nil recipe selects the
// client's default recipe.
func (c *Client) Fuse(ctx context.Context, laneIDs []string, rcp *Recipe) (r Run, err error) {
	defer c.obs.begin("run.fuse", slog.Int("lanes", len(laneIDs))).end(&err)

	use := c.defaults
	if rcp != nil {
		use = *rcp
	}
	r, err = c.fusionSvc.Fuse(ctx, laneIDs, use)
	if err != nil {
		return Run{}, fmt.Errorf("fuse: %w", err)
	}
	return r, nil
}

// ProfileFromLane builds a target profile from the topN codes of a stored
// lane's summary.
func (c *Client) ProfileFromLane(ctx context.Context, laneID string, topN int) (p TargetProfile, err error) {
	defer c.obs.begin("lane.profile", slog.String("lane_id", laneID)).end(&err)

	p, err = c.fusionSvc.ProfileFromLane(ctx, laneID, topN)
	if err != nil {
		return TargetProfile{}, fmt.Errorf("profile from lane: %w", err)
	}
	return p, nil
}

// GetRun loads a stored run.
func (c *Client) GetRun(ctx context.Context, id string) (r Run, err error) {
	defer c.obs.begin("run.get", slog.String("run_id", id)).end(&err)

	r, err = c.runSvc.Get(ctx, id)
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// Mutate derives a child run from runID with ov applied to its recipe.
// The parent is left unchanged.
func (c *Client) Mutate(ctx context.Context, runID string, ov *Override) (r Run, err error) {
	defer c.obs.begin("run.mutate", slog.String("run_id", runID)).end(&err)

	r, err = c.runSvc.Mutate(ctx, runID, ov)
	if err != nil {
		return Run{}, fmt.Errorf("mutate run: %w", err)
	}
	return r, nil
}

// History returns the run followed by its ancestors, nearest first.
func (c *Client) History(ctx context.Context, runID string) (chain []Run, err error) {
	defer c.obs.begin("run.history", slog.String("run_id", runID)).end(&err)

	chain, err = c.runSvc.History(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("run history: %w", err)
	}
	return chain, nil
}

// RegisterRepresentatives labels documents of a run. A run accepts one
// registration.
func (c *Client) RegisterRepresentatives(ctx context.Context, runID string, reps []Representative) (err error) {
	defer c.obs.begin("run.register_representatives", slog.String("run_id", runID)).end(&err)

	if err = c.runSvc.RegisterRepresentatives(ctx, runID, reps); err != nil {
		return fmt.Errorf("register representatives: %w", err)
	}
	return nil
}

// Representatives returns the labels registered for a run.
func (c *Client) Representatives(ctx context.Context, runID string) (reps []Representative, err error) {
	defer c.obs.begin("run.representatives", slog.String("run_id", runID)).end(&err)

	reps, err = c.runSvc.Representatives(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("representatives: %w", err)
	}
	return reps, nil
}
