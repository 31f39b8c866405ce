package document

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrUnknownComponentType indicates a type outside the closed component set.
	ErrUnknownComponentType = errors.New("unknown component type")
	// ErrDuplicateComponentID indicates two components in a page share an id.
	ErrDuplicateComponentID = errors.New("duplicate component id")
	// ErrComponentCycle indicates a component appears among its own ancestors.
	ErrComponentCycle = errors.New("component is its own ancestor")
	// ErrDuplicateSlug indicates a slug already used by a sibling page.
	ErrDuplicateSlug = errors.New("slug already used in project")
	// ErrInvalidSlug indicates a slug that is not URL-safe.
	ErrInvalidSlug = errors.New("slug is not url-safe")
	// ErrComponentNotFound indicates a component id absent from the page tree.
	ErrComponentNotFound = errors.New("component not found")
	// ErrNotSerializable indicates a value that cannot survive a JSON round trip.
	ErrNotSerializable = errors.New("value is not serializable")
	// ErrInvalidInput indicates a missing or malformed field.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError describes a rejected mutation.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Field, e.Err, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is reports ErrValidation for every validation error.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError for field.
func Invalid(field string, err error, format string, args ...any) error {
	return &ValidationError{Field: field, Err: err, Reason: fmt.Sprintf(format, args...)}
}
