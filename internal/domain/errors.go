package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRunNotFound signals an unknown or expired run or lane.
	ErrRunNotFound = errors.New("run not found")
	// ErrInvalidRecipe signals a recipe that fails validation.
	ErrInvalidRecipe = errors.New("invalid recipe")
	// ErrEmptyLaneSet signals a fusion request without lanes.
	ErrEmptyLaneSet = errors.New("empty lane set")
	// ErrDuplicateRegistration signals a second representative registration for a run.
	ErrDuplicateRegistration = errors.New("duplicate registration")
	// ErrInvalidLane signals a malformed lane ingest request.
	ErrInvalidLane = errors.New("invalid lane")
	// ErrInvalidRepresentative signals a malformed representative set.
	ErrInvalidRepresentative = errors.New("invalid representative")
)

// Resource kinds reported by NotFoundError.
const (
	KindRun  = "run"
	KindLane = "lane"
)

// NotFoundError wraps ErrRunNotFound with the offending identifier.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Kind, e.ID, ErrRunNotFound.Error())
}

func (e *NotFoundError) Unwrap() error { return ErrRunNotFound }

// NewRunNotFound creates a not-found error for a fusion run.
func NewRunNotFound(id string) error {
	return &NotFoundError{Kind: KindRun, ID: id}
}

// NewLaneNotFound creates a not-found error for a lane run.
func NewLaneNotFound(id string) error {
	return &NotFoundError{Kind: KindLane, ID: id}
}

// RecipeError wraps ErrInvalidRecipe with the offending recipe field.
type RecipeError struct {
	Field  string
	Reason string
}

func (e *RecipeError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidRecipe.Error(), e.Field, e.Reason)
}

func (e *RecipeError) Unwrap() error { return ErrInvalidRecipe }

// NewRecipeError creates an invalid-recipe error for a single field.
func NewRecipeError(field, reason string) error {
	return &RecipeError{Field: field, Reason: reason}
}
