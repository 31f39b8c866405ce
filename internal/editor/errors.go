package editor

import (
	"errors"
	"fmt"

	"github.com/rpggio/pagesmith/internal/repository"
)

var (
	// ErrUnauthenticated is returned when an operation needs a signed-in user.
	ErrUnauthenticated = errors.New("not signed in")
	// ErrNotFound is returned when the target entity does not exist, or is
	// not owned by the current user.
	ErrNotFound = errors.New("not found")
	// ErrPersistence is matched by every PersistenceError.
	ErrPersistence = errors.New("persistence failed")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("editor closed")
)

// PersistenceError reports a durable read or write that failed. Local state
// is kept; Retry re-issues failed writes.
type PersistenceError struct {
	Op   string
	Kind repository.Kind
	ID   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Op, e.Kind, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is reports ErrPersistence for every persistence error.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Retryable reports whether re-issuing the operation may succeed.
func (e *PersistenceError) Retryable() bool {
	return !errors.Is(e.Err, repository.ErrInvalidInput)
}

// storeError classifies an adapter error. Missing records become ErrNotFound;
// everything else is a PersistenceError.
func storeError(op string, kind repository.Kind, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return &PersistenceError{Op: op, Kind: kind, ID: id, Err: err}
}

func notFound(kind repository.Kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}
