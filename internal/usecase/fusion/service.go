// Package fusion merges lane runs into one reproducible, auditable ranking.
package fusion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lanefuse/internal/domain"
	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
	"github.com/kailas-cloud/lanefuse/internal/domain/run"
	"github.com/kailas-cloud/lanefuse/internal/metrics"
)

// Metric op labels.
const (
	OpFuse   = "fuse"
	OpMutate = "mutate"
)

// Service computes and persists fusion runs.
type Service struct {
	lanes  LaneReader
	docs   DocumentReader
	runs   RunWriter
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// New creates a fusion service.
func New(lanes LaneReader, docs DocumentReader, runs RunWriter, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		lanes:  lanes,
		docs:   docs,
		runs:   runs,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fuse creates a root run from lane ids and a recipe.
func (s *Service) Fuse(ctx context.Context, laneIDs []string, rcp recipe.Recipe) (run.Run, error) {
	return s.fuse(ctx, OpFuse, "", laneIDs, rcp, nil)
}

// Derive creates a child run of parent with a replacement recipe, reusing the
// parent's lanes. overrideFields records which recipe fields changed.
func (s *Service) Derive(
	ctx context.Context, parent *run.Run, rcp recipe.Recipe, overrideFields []string,
) (run.Run, error) {
	return s.fuse(ctx, OpMutate, parent.ID(), parent.LaneIDs(), rcp, overrideFields)
}

// ProfileFromLane builds a target profile from a stored lane's code summary,
// keeping the topN codes per taxonomy.
func (s *Service) ProfileFromLane(ctx context.Context, laneID string, topN int) (recipe.TargetProfile, error) {
	lanes, err := s.lanes.GetMany(ctx, []string{laneID})
	if err != nil {
		return recipe.TargetProfile{}, fmt.Errorf("load lane: %w", err)
	}
	if len(lanes) == 0 {
		return recipe.TargetProfile{}, domain.NewLaneNotFound(laneID)
	}
	return recipe.ProfileFromSummary(lanes[0].CodeSummary(), topN), nil
}

func (s *Service) fuse(
	ctx context.Context, op, parentID string, laneIDs []string, rcp recipe.Recipe, overrideFields []string,
) (res run.Run, err error) {
	start := time.Now()
	defer func() {
		metrics.FusionsTotal.WithLabelValues(op, metrics.Status(err)).Inc()
		metrics.FusionDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	laneIDs = dedupe(laneIDs)
	if len(laneIDs) == 0 {
		return run.Run{}, domain.ErrEmptyLaneSet
	}
	if err = rcp.Validate(); err != nil {
		return run.Run{}, err
	}

	lanes, err := s.lanes.GetMany(ctx, laneIDs)
	if err != nil {
		return run.Run{}, fmt.Errorf("load lanes: %w", err)
	}

	// Only the run's own lanes supply metadata, so re-fusing the same lanes
	// sees the same documents whatever was ingested since.
	docs, err := s.docs.ForLanes(ctx, laneIDs)
	if err != nil {
		return run.Run{}, fmt.Errorf("load documents: %w", err)
	}

	result, err := Compute(lanes, docs, rcp)
	if err != nil {
		return run.Run{}, err
	}

	// An abandoned request must not leave a visible run behind.
	if err = ctx.Err(); err != nil {
		return run.Run{}, fmt.Errorf("fusion aborted: %w", err)
	}

	r, err := run.New(s.newID(), parentID, rcp, laneIDs, overrideFields, result, s.now().UnixMilli())
	if err != nil {
		return run.Run{}, fmt.Errorf("build run: %w", err)
	}
	if err = s.runs.Create(ctx, r); err != nil {
		return run.Run{}, fmt.Errorf("persist run: %w", err)
	}

	metrics.FusionFProxy.Observe(result.Metrics.FProxy)
	s.logger.Info("Fusion run created",
		zap.String("op", op),
		zap.String("run_id", r.ID()),
		zap.String("parent_run_id", parentID),
		zap.Int("lanes", len(lanes)),
		zap.Int("docs", len(result.Docs)),
		zap.Float64("fproxy", result.Metrics.FProxy),
		zap.Duration("duration", time.Since(start)),
	)
	return r, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
