package fusion

import (
	"context"

	"github.com/kailas-cloud/lanefuse/internal/domain/document"
	"github.com/kailas-cloud/lanefuse/internal/domain/lane"
	"github.com/kailas-cloud/lanefuse/internal/domain/run"
)

// LaneReader loads persisted lane runs. A missing or expired lane is reported
// as a *domain.NotFoundError.
type LaneReader interface {
	GetMany(ctx context.Context, ids []string) ([]lane.Run, error)
}

// DocumentReader loads the documents ingested with the given lanes, merged by
// doc id with the earliest lane winning. Documents without metadata are
// simply absent from the result.
type DocumentReader interface {
	ForLanes(ctx context.Context, laneIDs []string) (map[string]document.Document, error)
}

// RunWriter persists a new run atomically, failing if the id is taken.
type RunWriter interface {
	Create(ctx context.Context, r run.Run) error
}
