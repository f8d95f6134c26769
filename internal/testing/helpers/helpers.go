package helpers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/forgo/admin-e2e/internal/model"
	"github.com/forgo/admin-e2e/internal/store"
)

func ctx(t testing.TB) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

// ============================================================================
// Document Assertion Helpers
// ============================================================================

// AssertDocumentExists checks that a document exists and returns it
func AssertDocumentExists(t testing.TB, client store.Client, collection, id string) *model.Document {
	t.Helper()

	doc, err := client.FindByID(ctx(t), collection, id)
	if err != nil {
		t.Fatalf("expected %s/%s to exist: %v", collection, id, err)
	}
	return doc
}

// AssertDocumentNotExists checks that looking a document up reports
// store.ErrNotFound
func AssertDocumentNotExists(t testing.TB, client store.Client, collection, id string) {
	t.Helper()

	doc, err := client.FindByID(ctx(t), collection, id)
	if err == nil {
		t.Errorf("expected %s/%s to not exist, found %v", collection, id, doc.Fields)
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for %s/%s, got %v", collection, id, err)
	}
}

// AssertCollectionCount checks the total number of documents in a collection
func AssertCollectionCount(t testing.TB, client store.Client, collection string, want int) {
	t.Helper()

	res, err := client.Find(ctx(t), collection, model.FindOptions{Limit: 1})
	if err != nil {
		t.Fatalf("count %s: %v", collection, err)
	}
	if res.TotalDocs != want {
		t.Errorf("expected %d documents in %s, got %d", want, collection, res.TotalDocs)
	}
}

// AssertFields checks that doc carries at least the given field values
func AssertFields(t testing.TB, doc *model.Document, want model.Fields) {
	t.Helper()

	got := model.Fields{}
	for k := range want {
		if v, ok := doc.Fields[k]; ok {
			got[k] = v
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("document %s fields mismatch (-want +got):\n%s", doc.ID, diff)
	}
}

// ============================================================================
// Utility Functions
// ============================================================================

// IDs returns the identities of docs in order
func IDs(docs []*model.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}
