package lanefuse

import (
	"context"

	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
	domrun "github.com/kailas-cloud/lanefuse/internal/domain/run"
	laneuc "github.com/kailas-cloud/lanefuse/internal/usecase/lane"
)

// --- laneUseCase mock ---

type mockLaneUC struct {
	ingestFn func(ctx context.Context, req *laneuc.IngestRequest) (string, error)
	batchFn  func(ctx context.Context, reqs []laneuc.IngestRequest) ([]string, error)
}

func (m *mockLaneUC) Ingest(ctx context.Context, req *laneuc.IngestRequest) (string, error) {
	return m.ingestFn(ctx, req)
}

func (m *mockLaneUC) IngestBatch(ctx context.Context, reqs []laneuc.IngestRequest) ([]string, error) {
	return m.batchFn(ctx, reqs)
}

// --- fusionUseCase mock ---

type mockFusionUC struct {
	fuseFn    func(ctx context.Context, laneIDs []string, rcp recipe.Recipe) (domrun.Run, error)
	profileFn func(ctx context.Context, laneID string, topN int) (recipe.TargetProfile, error)
}

func (m *mockFusionUC) Fuse(ctx context.Context, laneIDs []string, rcp recipe.Recipe) (domrun.Run, error) {
	return m.fuseFn(ctx, laneIDs, rcp)
}

func (m *mockFusionUC) ProfileFromLane(ctx context.Context, laneID string, topN int) (recipe.TargetProfile, error) {
	return m.profileFn(ctx, laneID, topN)
}

// --- runUseCase mock ---

type mockRunUC struct {
	getFn      func(ctx context.Context, id string) (domrun.Run, error)
	historyFn  func(ctx context.Context, id string) ([]domrun.Run, error)
	mutateFn   func(ctx context.Context, runID string, ov *recipe.Override) (domrun.Run, error)
	registerFn func(ctx context.Context, runID string, entries []domrun.Representative) error
	repsFn     func(ctx context.Context, runID string) ([]domrun.Representative, error)
}

func (m *mockRunUC) Get(ctx context.Context, id string) (domrun.Run, error) {
	return m.getFn(ctx, id)
}

func (m *mockRunUC) History(ctx context.Context, id string) ([]domrun.Run, error) {
	return m.historyFn(ctx, id)
}

func (m *mockRunUC) Mutate(ctx context.Context, runID string, ov *recipe.Override) (domrun.Run, error) {
	return m.mutateFn(ctx, runID, ov)
}

func (m *mockRunUC) RegisterRepresentatives(
	ctx context.Context, runID string, entries []domrun.Representative,
) error {
	return m.registerFn(ctx, runID, entries)
}

func (m *mockRunUC) Representatives(ctx context.Context, runID string) ([]domrun.Representative, error) {
	return m.repsFn(ctx, runID)
}

// --- helpers ---

func testClient(lanes laneUseCase, fusion fusionUseCase, runs runUseCase) *Client {
	return &Client{
		laneSvc:   lanes,
		fusionSvc: fusion,
		runSvc:    runs,
		defaults:  recipe.Default(),
	}
}
