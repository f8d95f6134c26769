package store

import (
	"errors"
	"fmt"

	"github.com/forgo/admin-e2e/internal/model"
)

// Standard errors for store operations.
// Use errors.Is() to check these error types in calling code.
var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrValidation indicates the store rejected the written data.
	ErrValidation = errors.New("validation failed")

	// ErrConnection indicates a failure to reach the store.
	ErrConnection = errors.New("store connection error")

	// ErrServer indicates the store failed while handling a valid request.
	ErrServer = errors.New("store server error")

	// ErrUnauthorized indicates the store refused the client's credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError carries the field errors of a rejected write
type ValidationError struct {
	Collection string
	Errors     []model.FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Collection)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Collection, model.JoinFieldErrors(e.Errors))
}

// Unwrap lets errors.Is match ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFound wraps ErrNotFound with the collection and id
func NotFound(collection, id string) error {
	return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
}

// ValidateName rejects empty collection or global names
func ValidateName(kind, name string) error {
	if name == "" {
		return &ValidationError{Errors: []model.FieldError{{Field: kind, Message: "is required"}}}
	}
	return nil
}
