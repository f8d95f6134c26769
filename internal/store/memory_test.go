package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/admin-e2e/internal/model"
)

func sequentialIDs() MemoryOption {
	var mu sync.Mutex
	n := 0
	return WithIDFunc(func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("doc%02d", n)
	})
}

// ============================================================================
// Create / FindByID / Delete
// ============================================================================

func TestMemory_CreateAssignsIdentityAndTimestamps(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	doc, err := m.Create(ctx, "posts", model.Fields{"title": "post1", "description": "description"})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.False(t, doc.CreatedAt.IsZero())
	assert.Equal(t, doc.CreatedAt, doc.UpdatedAt)
	assert.Equal(t, "post1", doc.Title())

	got, err := m.FindByID(ctx, "posts", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestMemory_CreateDoesNotAliasInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	data := model.Fields{"title": "original"}
	doc, err := m.Create(ctx, "posts", data)
	require.NoError(t, err)

	data["title"] = "mutated"
	doc.Fields["title"] = "mutated too"

	got, err := m.FindByID(ctx, "posts", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Title())
}

func TestMemory_CreateWithExplicitID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	doc, err := m.Create(ctx, "users", model.Fields{"id": "dev", "email": "dev@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "dev", doc.ID)
	assert.NotContains(t, doc.Fields, "id")

	_, err = m.Create(ctx, "users", model.Fields{"id": "dev"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMemory_DeleteThenNotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	doc, err := m.Create(ctx, "posts", model.Fields{"title": "gone"})
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, "posts", doc.ID))

	_, err = m.FindByID(ctx, "posts", doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Delete(ctx, "posts", doc.ID), ErrNotFound)
}

func TestMemory_RequiredFields(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory(WithRequiredFields("posts", "title"))

	_, err := m.Create(ctx, "posts", model.Fields{"description": "no title"})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "posts", verr.Collection)
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "title", verr.Errors[0].Field)
	assert.Equal(t, 0, m.Count("posts"))

	doc, err := m.Create(ctx, "posts", model.Fields{"title": "ok"})
	require.NoError(t, err)

	// partial updates may omit required fields but not blank them
	_, err = m.Update(ctx, "posts", doc.ID, model.Fields{"description": "d"})
	require.NoError(t, err)
	_, err = m.Update(ctx, "posts", doc.ID, model.Fields{"title": ""})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMemory_EmptyCollectionName(t *testing.T) {
	t.Parallel()
	_, err := NewMemory().Create(context.Background(), "", model.Fields{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMemory_CanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory().Find(ctx, "posts", model.FindOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

// ============================================================================
// Update
// ============================================================================

func TestMemory_UpdateReplacesValuesWithoutMixing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	m := NewMemory(WithClock(func() time.Time { return now }))

	doc, err := m.Create(ctx, "posts", model.Fields{"title": "title", "description": "description"})
	require.NoError(t, err)

	now = start.Add(time.Minute)
	updated, err := m.Update(ctx, "posts", doc.ID, model.Fields{"title": "new title", "description": "new description"})
	require.NoError(t, err)
	assert.Equal(t, "new title", updated.Title())
	assert.Equal(t, "new description", updated.Description())
	assert.Equal(t, start, updated.CreatedAt)
	assert.Equal(t, now, updated.UpdatedAt)

	got, err := m.FindByID(ctx, "posts", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestMemory_UpdateMissing(t *testing.T) {
	t.Parallel()
	_, err := NewMemory().Update(context.Background(), "posts", "nope", model.Fields{"title": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================================================
// Find
// ============================================================================

func seedPosts(t *testing.T, m *Memory, n int) []*model.Document {
	t.Helper()
	docs := make([]*model.Document, 0, n)
	for i := 0; i < n; i++ {
		doc, err := m.Create(context.Background(), "posts", model.Fields{
			"title":       fmt.Sprintf("post%d", i+1),
			"description": "description",
		})
		require.NoError(t, err)
		docs = append(docs, doc)
	}
	return docs
}

func TestMemory_FindPaginates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory(sequentialIDs())
	seedPosts(t, m, 11)

	first, err := m.Find(ctx, "posts", model.FindOptions{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, first.Docs, 10)
	assert.Equal(t, 11, first.TotalDocs)
	assert.Equal(t, 2, first.TotalPages)
	assert.True(t, first.HasNextPage)
	assert.Equal(t, "1-10 of 11", first.PageInfo())

	second, err := m.Find(ctx, "posts", model.FindOptions{Limit: 10, Page: 2})
	require.NoError(t, err)
	assert.Len(t, second.Docs, 1)
	assert.True(t, second.HasPrevPage)
	assert.False(t, second.HasNextPage)
	assert.Equal(t, "11-11 of 11", second.PageInfo())

	// newest first by default
	assert.Equal(t, "doc11", first.Docs[0].ID)
	assert.Equal(t, "doc01", second.Docs[0].ID)

	beyond, err := m.Find(ctx, "posts", model.FindOptions{Limit: 10, Page: 5})
	require.NoError(t, err)
	assert.Empty(t, beyond.Docs)
}

func TestMemory_FindSorts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory(sequentialIDs())
	seedPosts(t, m, 3)

	asc, err := m.Find(ctx, "posts", model.FindOptions{Sort: "id"})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc01", "doc02", "doc03"}, asc.IDs())

	desc, err := m.Find(ctx, "posts", model.FindOptions{Sort: "-id"})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc03", "doc02", "doc01"}, desc.IDs())

	byTitle, err := m.Find(ctx, "posts", model.FindOptions{Sort: "-title"})
	require.NoError(t, err)
	assert.Equal(t, "post3", byTitle.Docs[0].Title())
}

func TestMemory_FindWhere(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory(sequentialIDs())
	docs := seedPosts(t, m, 5)

	res, err := m.Find(ctx, "posts", model.FindOptions{Where: []model.Where{
		{Field: "id", Operator: model.OpEquals, Value: docs[2].ID},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{docs[2].ID}, res.IDs())
	assert.Equal(t, 1, res.TotalDocs)

	res, err = m.Find(ctx, "posts", model.FindOptions{Where: []model.Where{
		{Field: "title", Operator: model.OpLike, Value: "POST"},
		{Field: "id", Operator: model.OpNotEquals, Value: docs[0].ID},
	}})
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalDocs)
}

func TestMemory_FindEmptyCollection(t *testing.T) {
	t.Parallel()
	res, err := NewMemory().Find(context.Background(), "posts", model.FindOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Docs)
	assert.Equal(t, "0 of 0", res.PageInfo())
}

// ============================================================================
// Globals
// ============================================================================

func TestMemory_Globals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	empty, err := m.FindGlobal(ctx, "global")
	require.NoError(t, err)
	assert.Empty(t, empty.Fields)

	_, err = m.UpdateGlobal(ctx, "global", model.Fields{"title": "first"})
	require.NoError(t, err)
	saved, err := m.UpdateGlobal(ctx, "global", model.Fields{"title": "second"})
	require.NoError(t, err)
	assert.Equal(t, "second", saved.Title())

	got, err := m.FindGlobal(ctx, "global")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Title())
	assert.Empty(t, got.ID)
}

// ============================================================================
// Concurrency
// ============================================================================

func TestMemory_ConcurrentCreates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Create(ctx, "posts", model.Fields{"title": "t"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, m.Count("posts"))
}

// ============================================================================
// Identity
// ============================================================================

func TestNewDocumentID_TimeOrdered(t *testing.T) {
	t.Parallel()

	prev := NewDocumentID()
	assert.Len(t, prev, 32)
	for i := 0; i < 100; i++ {
		next := NewDocumentID()
		assert.Less(t, prev, next)
		prev = next
	}
}
