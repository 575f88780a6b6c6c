// Package run reads fusion runs, walks their lineage and derives mutated runs.
package run

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lanefuse/internal/domain"
	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
	domrun "github.com/kailas-cloud/lanefuse/internal/domain/run"
	"github.com/kailas-cloud/lanefuse/internal/usecase/fusion"
)

// MaxHistoryDepth bounds a lineage walk.
const MaxHistoryDepth = 1000

// Service provides run lookup, lineage and mutation.
type Service struct {
	runs    Repository
	reps    RepresentativeRepository
	docs    DocumentReader
	deriver Deriver
	logger  *zap.Logger
}

// New creates a run service.
func New(
	runs Repository, reps RepresentativeRepository, docs DocumentReader, deriver Deriver, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{runs: runs, reps: reps, docs: docs, deriver: deriver, logger: logger}
}

// Get returns a run by id.
func (s *Service) Get(ctx context.Context, id string) (domrun.Run, error) {
	r, err := s.runs.Get(ctx, id)
	if err != nil {
		return domrun.Run{}, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// History returns the run followed by its ancestors, the root or the oldest
// still-stored ancestor last. Only the requested run must exist.
func (s *Service) History(ctx context.Context, id string) ([]domrun.Run, error) {
	cur, err := s.runs.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	chain := []domrun.Run{cur}
	seen := map[string]struct{}{cur.ID(): {}}
	for !cur.IsRoot() && len(chain) < MaxHistoryDepth {
		parentID := cur.ParentID()
		if _, loop := seen[parentID]; loop {
			s.logger.Warn("Lineage cycle detected",
				zap.String("run_id", id), zap.String("parent_run_id", parentID))
			break
		}
		parent, err := s.runs.Get(ctx, parentID)
		if err != nil {
			if errors.Is(err, domain.ErrRunNotFound) {
				break
			}
			return nil, fmt.Errorf("get ancestor %q: %w", parentID, err)
		}
		seen[parentID] = struct{}{}
		chain = append(chain, parent)
		cur = parent
	}
	return chain, nil
}

// Mutate derives a child run whose recipe is the parent's with the override
// applied. The parent run is never modified.
func (s *Service) Mutate(ctx context.Context, runID string, ov *recipe.Override) (domrun.Run, error) {
	parent, err := s.runs.Get(ctx, runID)
	if err != nil {
		return domrun.Run{}, fmt.Errorf("get run: %w", err)
	}

	rcp := ov.Apply(parent.Recipe())
	if ov != nil && ov.SteerFromRepresentatives {
		if err := s.steer(ctx, &parent, &rcp); err != nil {
			return domrun.Run{}, err
		}
	}
	if err := rcp.Validate(); err != nil {
		return domrun.Run{}, err
	}

	var fields []string
	if ov != nil {
		fields = ov.Fields()
	}
	child, err := s.deriver.Derive(ctx, &parent, rcp, fields)
	if err != nil {
		return domrun.Run{}, err
	}

	s.logger.Info("Run mutated",
		zap.String("run_id", child.ID()),
		zap.String("parent_run_id", runID),
		zap.Strings("override_fields", fields),
	)
	return child, nil
}

func (s *Service) steer(ctx context.Context, parent *domrun.Run, rcp *recipe.Recipe) error {
	runID := parent.ID()
	reps, err := s.reps.Get(ctx, runID)
	if err != nil {
		return fmt.Errorf("load representatives: %w", err)
	}
	if len(reps) == 0 {
		return domain.NewRecipeError("steer_from_representatives",
			fmt.Sprintf("run %q has no registered representatives", runID))
	}

	docs, err := s.docs.ForLanes(ctx, parent.LaneIDs())
	if err != nil {
		return fmt.Errorf("load representative documents: %w", err)
	}
	rcp.FacetWeights = fusion.SteerFacetWeights(rcp, reps, docs)
	return nil
}

// RegisterRepresentatives labels documents of a run. A run accepts one
// registration.
func (s *Service) RegisterRepresentatives(ctx context.Context, runID string, entries []domrun.Representative) error {
	r, err := s.runs.Get(ctx, runID)
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	if err := domrun.ValidateRepresentatives(&r, entries); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRepresentative, err)
	}
	if err := s.reps.Register(ctx, runID, entries); err != nil {
		return err
	}
	s.logger.Info("Representatives registered",
		zap.String("run_id", runID), zap.Int("count", len(entries)))
	return nil
}

// Representatives returns the registered set of a run, or nil.
func (s *Service) Representatives(ctx context.Context, runID string) ([]domrun.Representative, error) {
	if _, err := s.runs.Get(ctx, runID); err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return s.reps.Get(ctx, runID)
}
