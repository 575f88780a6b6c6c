package lanefuse

import "github.com/kailas-cloud/lanefuse/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrRunNotFound           = domain.ErrRunNotFound
	ErrInvalidRecipe         = domain.ErrInvalidRecipe
	ErrEmptyLaneSet          = domain.ErrEmptyLaneSet
	ErrDuplicateRegistration = domain.ErrDuplicateRegistration
	ErrInvalidLane           = domain.ErrInvalidLane
	ErrInvalidRepresentative = domain.ErrInvalidRepresentative
)

// NotFoundError and RecipeError carry the offending id or recipe field.
// Use errors.As() to inspect them.
type (
	NotFoundError = domain.NotFoundError
	RecipeError   = domain.RecipeError
)
