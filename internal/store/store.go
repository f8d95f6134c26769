package store

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/forgo/admin-e2e/internal/model"
)

// Client is a generic CRUD client over named document collections
type Client interface {
	// Create inserts a document and returns it with its assigned identity
	Create(ctx context.Context, collection string, data model.Fields) (*model.Document, error)

	// Find returns one page of documents matching opts
	Find(ctx context.Context, collection string, opts model.FindOptions) (*model.FindResult, error)

	// FindByID returns a single document or ErrNotFound
	FindByID(ctx context.Context, collection, id string) (*model.Document, error)

	// Update merges data into an existing document
	Update(ctx context.Context, collection, id string, data model.Fields) (*model.Document, error)

	// Delete removes a document or returns ErrNotFound
	Delete(ctx context.Context, collection, id string) error

	// FindGlobal returns the singleton document of a global. A global that
	// was never saved is returned empty, not as ErrNotFound.
	FindGlobal(ctx context.Context, slug string) (*model.Document, error)

	// UpdateGlobal merges data into the singleton document of a global
	UpdateGlobal(ctx context.Context, slug string, data model.Fields) (*model.Document, error)
}

// Closer is implemented by clients holding connections
type Closer interface {
	Close() error
}

// NewDocumentID returns a fresh document identity. IDs are time-ordered
// (UUIDv7, dashes removed), so sorting by id matches creation order.
func NewDocumentID() string {
	return strings.ReplaceAll(uuid.Must(uuid.NewV7()).String(), "-", "")
}
