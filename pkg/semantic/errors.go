package semantic

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrNotConnected is returned for operations on a disconnected store.
	ErrNotConnected = errors.New("graph store not connected")

	// ErrConceptNotFound is returned when a concept id is not in the graph.
	ErrConceptNotFound = errors.New("concept not found")
)

// ConceptNotFoundError reports a lookup for an unknown concept id.
type ConceptNotFoundError struct {
	// ConceptID is the id that was requested.
	ConceptID string
}

// Error returns the error message.
func (e *ConceptNotFoundError) Error() string {
	return fmt.Sprintf("concept not found: %s", e.ConceptID)
}

// Unwrap returns the underlying sentinel.
func (e *ConceptNotFoundError) Unwrap() error {
	return ErrConceptNotFound
}

// NewConceptNotFoundError creates a ConceptNotFoundError for the given id.
func NewConceptNotFoundError(id string) *ConceptNotFoundError {
	return &ConceptNotFoundError{ConceptID: id}
}

// IsConceptNotFound checks if an error is a concept lookup failure.
func IsConceptNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrConceptNotFound)
}
