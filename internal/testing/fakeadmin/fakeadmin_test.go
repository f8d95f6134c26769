package fakeadmin

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/forgo/admin-e2e/internal/adminurl"
	"github.com/forgo/admin-e2e/internal/browser"
	"github.com/forgo/admin-e2e/internal/model"
	"github.com/forgo/admin-e2e/internal/store"
	"github.com/forgo/admin-e2e/internal/testing/helpers"
)

const server = "http://localhost:3000"

func newSession(t *testing.T, opts ...Option) (*Session, *store.Memory, *adminurl.Builder) {
	t.Helper()
	mem := store.NewMemory(store.WithRequiredFields("posts", model.FieldTitle))
	urls, err := adminurl.New(server, "posts")
	require.NoError(t, err)
	s := New(mem, urls, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s, mem, urls
}

func seed(t *testing.T, mem *store.Memory, n int) []*model.Document {
	t.Helper()
	docs := make([]*model.Document, n)
	for i := range docs {
		doc, err := mem.Create(context.Background(), "posts", model.Fields{
			model.FieldTitle:       fmt.Sprintf("post%d", i+1),
			model.FieldDescription: "description",
		})
		require.NoError(t, err)
		docs[i] = doc
	}
	return docs
}

func count(t *testing.T, s *Session, sel string) int {
	t.Helper()
	n, err := s.Count(context.Background(), browser.Parse(sel))
	require.NoError(t, err)
	return n
}

func text(t *testing.T, s *Session, sel string) string {
	t.Helper()
	v, err := s.Text(context.Background(), browser.Parse(sel))
	require.NoError(t, err)
	return v
}

func value(t *testing.T, s *Session, sel string) string {
	t.Helper()
	v, err := s.Value(context.Background(), browser.Parse(sel))
	require.NoError(t, err)
	return v
}

func currentURL(t *testing.T, s *Session) string {
	t.Helper()
	u, err := s.URL(context.Background())
	require.NoError(t, err)
	return u
}

// ============================================================================
// Navigation
// ============================================================================

func TestSession_Navigation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mem, urls := newSession(t)

	assert.Equal(t, "about:blank", currentURL(t, s))

	require.NoError(t, s.Goto(ctx, urls.Admin()))
	require.NoError(t, s.Click(ctx, browser.CSS("#nav-posts")))
	assert.Equal(t, urls.List(), currentURL(t, s))

	require.NoError(t, s.Goto(ctx, urls.Admin()))
	require.NoError(t, s.Click(ctx, browser.CSS("#nav-global-global")))
	assert.Equal(t, urls.Global("global"), currentURL(t, s))

	require.NoError(t, s.Goto(ctx, urls.Admin()))
	require.NoError(t, s.Click(ctx, browser.CSS("#card-posts")))
	assert.Equal(t, urls.List(), currentURL(t, s))

	require.NoError(t, s.Click(ctx, browser.Parse(`.step-nav a[href="/admin"]`)))
	assert.Equal(t, urls.Admin(), currentURL(t, s))

	doc := seed(t, mem, 1)[0]
	require.NoError(t, s.Goto(ctx, urls.Edit(doc.ID)))
	require.NoError(t, s.Click(ctx, browser.Parse(".step-nav >> text=posts")))
	assert.Equal(t, urls.List(), currentURL(t, s))
}

func TestSession_NotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, urls := newSession(t)

	require.NoError(t, s.Goto(ctx, urls.Edit("missing")))
	assert.Equal(t, 1, count(t, s, ".not-found"))

	require.NoError(t, s.Goto(ctx, server+"/admin/collections/users"))
	assert.Equal(t, 1, count(t, s, ".not-found"))
}

// ============================================================================
// Documents
// ============================================================================

func TestSession_CreateUpdateDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mem, urls := newSession(t)

	require.NoError(t, s.Goto(ctx, urls.Create()))
	assert.Equal(t, 0, count(t, s, "#action-delete"))
	require.NoError(t, s.Fill(ctx, browser.CSS("#field-title"), "title"))
	require.NoError(t, s.Fill(ctx, browser.CSS("#field-description"), "description"))
	require.NoError(t, s.Click(ctx, browser.CSS("#action-save")))

	assert.Contains(t, text(t, s, ".Toastify"), "successfully")
	assert.NotContains(t, currentURL(t, s), "/create")
	assert.Equal(t, "title", value(t, s, "#field-title"))
	assert.Equal(t, "description", value(t, s, "#field-description"))
	require.Equal(t, 1, mem.Count("posts"))

	res, err := mem.Find(ctx, "posts", model.FindOptions{})
	require.NoError(t, err)
	id := res.Docs[0].ID
	assert.Equal(t, urls.Edit(id), currentURL(t, s))

	require.NoError(t, s.Fill(ctx, browser.CSS("#field-title"), "new title"))
	require.NoError(t, s.Click(ctx, browser.CSS("#action-save")))
	stored := helpers.AssertDocumentExists(t, mem, "posts", id)
	helpers.AssertFields(t, stored, model.Fields{"title": "new title", "description": "description"})
	assert.Equal(t, 2, count(t, s, ".Toastify__toast--success"))

	require.NoError(t, s.Click(ctx, browser.CSS("#action-delete")))
	require.NoError(t, s.Click(ctx, browser.CSS("#confirm-delete")))

	visible, err := s.Visible(ctx, browser.Text(fmt.Sprintf("Post %q successfully deleted.", id)))
	require.NoError(t, err)
	assert.True(t, visible)
	assert.Equal(t, urls.List(), currentURL(t, s))
	helpers.AssertDocumentNotExists(t, mem, "posts", id)
}

func TestSession_ValidationToast(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mem, urls := newSession(t)

	require.NoError(t, s.Goto(ctx, urls.Create()))
	require.NoError(t, s.Click(ctx, browser.CSS("#action-save")))

	assert.Equal(t, 1, count(t, s, ".Toastify__toast--error"))
	assert.Contains(t, text(t, s, ".Toastify__toast--error"), "title")
	assert.Contains(t, currentURL(t, s), "/create")
	assert.Equal(t, 0, mem.Count("posts"))
}

func TestSession_Global(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mem, urls := newSession(t)

	require.NoError(t, s.Goto(ctx, urls.Global("global")))
	assert.Equal(t, "", value(t, s, "#field-title"))
	require.NoError(t, s.Fill(ctx, browser.CSS("#field-title"), "title"))
	require.NoError(t, s.Click(ctx, browser.CSS("#action-save")))

	assert.Equal(t, 1, count(t, s, ".Toastify__toast--success"))
	assert.Equal(t, "title", value(t, s, "#field-title"))

	g, err := mem.FindGlobal(ctx, "global")
	require.NoError(t, err)
	assert.Equal(t, "title", g.Title())

	// a fresh load drops the toast but keeps the saved value
	require.NoError(t, s.Goto(ctx, urls.Global("global")))
	assert.Equal(t, 0, count(t, s, ".Toastify__toast"))
	assert.Equal(t, "title", value(t, s, "#field-title"))
}

// ============================================================================
// List view
// ============================================================================

func TestSession_SearchAndColumns(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mem, urls := newSession(t)
	docs := seed(t, mem, 3)

	require.NoError(t, s.Goto(ctx, urls.List()))
	assert.Equal(t, 3, count(t, s, "table >> tbody >> tr"))

	require.NoError(t, s.Fill(ctx, browser.CSS(".search-filter__input"), docs[1].ID))
	assert.Equal(t, 1, count(t, s, "table >> tbody >> tr"))
	assert.Equal(t, docs[1].ID, text(t, s, "table >> tbody >> tr >> nth=0 >> td >> nth=0"))

	require.NoError(t, s.Fill(ctx, browser.CSS(".search-filter__input"), ""))
	columns := count(t, s, "table >> thead >> tr >> th")
	assert.Equal(t, 4, columns)

	assert.Equal(t, 0, count(t, s, ".column-selector"))
	require.NoError(t, s.Click(ctx, browser.CSS(".list-controls__toggle-columns")))
	require.NoError(t, s.Click(ctx, browser.Parse(".column-selector >> text=ID")))
	assert.Equal(t, columns-1, count(t, s, "table >> thead >> tr >> th"))
	assert.Equal(t, 0, count(t, s, "#heading-id"))
	require.NoError(t, s.Click(ctx, browser.Parse(".column-selector >> text=ID")))
	assert.Equal(t, columns, count(t, s, "table >> thead >> tr >> th"))
}

func TestSession_WhereBuilder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mem, urls := newSession(t)
	docs := seed(t, mem, 2)
	rows := "table >> tbody >> tr"

	require.NoError(t, s.Goto(ctx, urls.List()))
	assert.Equal(t, 2, count(t, s, rows))

	require.NoError(t, s.Click(ctx, browser.CSS(".list-controls__toggle-where")))
	require.NoError(t, s.Click(ctx, browser.CSS(".where-builder__add-first-filter")))
	require.NoError(t, s.Click(ctx, browser.CSS(".condition__operator")))
	assert.Equal(t, 4, count(t, s, ".rs__option"))
	require.NoError(t, s.Click(ctx, browser.Parse(".condition__operator >> .rs__option >> text=equals")))
	assert.Equal(t, 0, count(t, s, ".rs__option"))
	assert.Equal(t, "equals", text(t, s, ".rs__single-value"))

	// an operator without a value does not filter
	assert.Equal(t, 2, count(t, s, rows))

	require.NoError(t, s.Fill(ctx, browser.Parse(".condition__value >> input"), docs[0].ID))
	assert.Equal(t, 1, count(t, s, rows))
	assert.Equal(t, docs[0].ID, text(t, s, "table >> tbody >> tr >> nth=0 >> td >> nth=0"))

	require.NoError(t, s.Click(ctx, browser.CSS(".condition__actions-remove")))
	assert.Equal(t, 2, count(t, s, rows))
	assert.Equal(t, 1, count(t, s, ".where-builder__add-first-filter"))
}

func TestSession_Pagination(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mem, urls := newSession(t)
	seed(t, mem, 11)
	rows := "table >> tbody >> tr"

	require.NoError(t, s.Goto(ctx, urls.List()))
	assert.Equal(t, 10, count(t, s, rows))
	assert.Equal(t, "1-10 of 11", text(t, s, ".collection-list__page-info"))
	assert.Equal(t, "Per Page: 10", text(t, s, ".per-page"))

	require.NoError(t, s.Click(ctx, browser.Parse(".paginator >> button >> nth=1")))
	assert.Contains(t, currentURL(t, s), "?page=2")
	assert.Equal(t, 1, count(t, s, rows))
	assert.Equal(t, "11-11 of 11", text(t, s, ".collection-list__page-info"))

	require.NoError(t, s.Click(ctx, browser.Parse(".paginator >> button >> nth=0")))
	assert.Contains(t, currentURL(t, s), "?page=1")
	assert.Equal(t, 10, count(t, s, rows))

	require.NoError(t, s.Goto(ctx, urls.ListPage(2)))
	assert.Equal(t, 1, count(t, s, rows))
}

func TestSession_Sort(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mem, urls := newSession(t)
	docs := seed(t, mem, 2)

	require.NoError(t, s.Goto(ctx, urls.List()))
	assert.Equal(t, docs[1].ID, text(t, s, ".row-1 .cell-id"))
	assert.Equal(t, docs[0].ID, text(t, s, ".row-2 .cell-id"))

	require.NoError(t, s.Click(ctx, browser.CSS("#heading-id .sort-column__asc")))
	assert.Equal(t, docs[0].ID, text(t, s, ".row-1 .cell-id"))
	assert.Equal(t, docs[1].ID, text(t, s, ".row-2 .cell-id"))
	assert.Contains(t, currentURL(t, s), "sort=id")

	require.NoError(t, s.Click(ctx, browser.CSS("#heading-id .sort-column__desc")))
	assert.Equal(t, docs[1].ID, text(t, s, ".row-1 .cell-id"))
	assert.Equal(t, docs[0].ID, text(t, s, ".row-2 .cell-id"))
}

// ============================================================================
// Login
// ============================================================================

func TestSession_Login(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mem, urls := newSession(t, WithAuth("users"))

	hash, err := bcrypt.GenerateFromPassword([]byte("test"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = mem.Create(ctx, "users", model.Fields{"email": "dev@example.com", "hash": string(hash)})
	require.NoError(t, err)

	require.NoError(t, s.Goto(ctx, urls.List()))
	assert.Contains(t, currentURL(t, s), "/admin/login?redirect=")
	assert.Equal(t, 0, count(t, s, "table"))

	require.NoError(t, s.Fill(ctx, browser.CSS("#field-email"), "dev@example.com"))
	require.NoError(t, s.Fill(ctx, browser.CSS("#field-password"), "wrong"))
	require.NoError(t, s.Click(ctx, browser.CSS("[type=submit]")))
	assert.Equal(t, 1, count(t, s, ".Toastify__toast--error"))
	assert.Contains(t, currentURL(t, s), "/admin/login")

	require.NoError(t, s.Fill(ctx, browser.CSS("#field-password"), "test"))
	require.NoError(t, s.Click(ctx, browser.CSS("[type=submit]")))
	assert.Equal(t, urls.List(), currentURL(t, s))

	require.NoError(t, s.Goto(ctx, urls.Admin()))
	assert.Equal(t, urls.Admin(), currentURL(t, s))
}

// ============================================================================
// Session behavior
// ============================================================================

func TestSession_AwaitAndErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, urls := newSession(t)

	require.NoError(t, s.Goto(ctx, urls.Admin()))

	_, err := s.Await(ctx, browser.CSS("#card-posts"), browser.Count(1))
	assert.NoError(t, err)
	_, err = s.Await(ctx, browser.CSS("#card-posts"), browser.Count(2))
	assert.ErrorIs(t, err, browser.ErrConditionNotMet)
	_, err = s.AwaitURL(ctx, browser.URLContains("/admin"))
	assert.NoError(t, err)

	assert.ErrorIs(t, s.Click(ctx, browser.CSS("#missing")), browser.ErrNoElement)
	assert.Error(t, s.Fill(ctx, browser.CSS("#card-posts"), "x"))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, urls.Admin(), snap.URL)
	assert.Contains(t, snap.HTML, `id="card-posts"`)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Goto(ctx, urls.Admin()), browser.ErrClosed)
}
