package run

import (
	"context"

	"github.com/kailas-cloud/lanefuse/internal/domain/document"
	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
	domrun "github.com/kailas-cloud/lanefuse/internal/domain/run"
)

// Repository loads persisted runs. A missing or expired run is reported as a
// *domain.NotFoundError.
type Repository interface {
	Get(ctx context.Context, id string) (domrun.Run, error)
}

// RepresentativeRepository stores one labelled representative set per run.
type RepresentativeRepository interface {
	Register(ctx context.Context, runID string, entries []domrun.Representative) error
	Get(ctx context.Context, runID string) ([]domrun.Representative, error)
}

// DocumentReader loads the documents ingested with a run's lanes.
type DocumentReader interface {
	ForLanes(ctx context.Context, laneIDs []string) (map[string]document.Document, error)
}

// Deriver fuses a child run from a parent's lanes and a new recipe.
type Deriver interface {
	Derive(ctx context.Context, parent *domrun.Run, rcp recipe.Recipe, overrideFields []string) (domrun.Run, error)
}
