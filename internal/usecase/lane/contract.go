package lane

import (
	"context"

	"github.com/kailas-cloud/lanefuse/internal/domain/document"
	domlane "github.com/kailas-cloud/lanefuse/internal/domain/lane"
)

// Repository persists lane runs. Create must never overwrite an existing id.
type Repository interface {
	Create(ctx context.Context, l domlane.Run) error
}

// DocumentWriter stores the documents supplied with one lane, scoped to it.
type DocumentWriter interface {
	PutLane(ctx context.Context, laneID string, docs []document.Document) error
}
