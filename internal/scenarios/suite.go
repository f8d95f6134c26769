package scenarios

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/require"

	"github.com/forgo/admin-e2e/internal/browser"
	"github.com/forgo/admin-e2e/internal/harness"
	"github.com/forgo/admin-e2e/internal/model"
	"github.com/forgo/admin-e2e/internal/store"
	"github.com/forgo/admin-e2e/internal/testing/fixtures"
)

// Selectors shared by several scenarios
var (
	tableRows    = browser.Parse("table >> tbody >> tr")
	tableColumns = browser.Parse("table >> thead >> tr >> th")
	fieldTitle   = browser.CSS("#field-title")
	fieldDesc    = browser.CSS("#field-description")
	saveButton   = browser.CSS("#action-save")
)

const (
	title       = "title"
	description = "description"
)

type suite struct {
	env *Env
}

// Suite returns the root action for harness.Run
func Suite(env *Env) func(*harness.Context) {
	s := &suite{env: env}
	return func(c *harness.Context) {
		c.Attach(env.Session)
		c.Run("admin", s.admin)
	}
}

func (s *suite) admin(c *harness.Context) {
	if !c.Setup("clear", s.env.Clear) {
		return
	}
	if !c.Setup("login", s.env.Login) {
		return
	}

	s.group(c, "Nav", s.nav)
	s.group(c, "CRUD", s.crud)
	c.Run("list view", func(c *harness.Context) {
		s.group(c, "filtering", s.filtering)
		s.group(c, "pagination", s.pagination)
		s.group(c, "sorting", s.sorting)
	})
}

// group runs body as a scenario group whose every scenario is followed by
// clearing the collection
func (s *suite) group(c *harness.Context, name string, body func(*harness.Context)) {
	c.Run(name, func(c *harness.Context) {
		c.AfterEach(func(c *harness.Context) error {
			return s.env.Clear(c.Context())
		})
		body(c)
	})
}

func (s *suite) ctx(c *harness.Context) context.Context {
	return c.Context()
}

func (s *suite) createPost(c *harness.Context, overrides model.Fields) *model.Document {
	doc, err := s.env.Fixtures.CreateDocument(s.ctx(c), s.env.URLs.Slug(), fixtures.PostDefaults, overrides)
	require.NoError(c, err, "create post")
	c.Debug("created post %s", doc.ID)
	return doc
}

func (s *suite) goTo(c *harness.Context, url string) {
	require.NoError(c, s.env.Session.Goto(s.ctx(c), url), "goto %s", url)
}

func (s *suite) click(c *harness.Context, sel browser.Selector) {
	require.NoError(c, s.env.Session.Click(s.ctx(c), sel), "click %s", sel)
}

func (s *suite) fill(c *harness.Context, sel browser.Selector, value string) {
	require.NoError(c, s.env.Session.Fill(s.ctx(c), sel, value), "fill %s", sel)
}

func (s *suite) expect(sel browser.Selector) *harness.Expectation {
	return harness.Expect(s.env.Session, sel).WithTimeout(s.env.timeout())
}

func (s *suite) expectURL() *harness.URLExpectation {
	return harness.ExpectURL(s.env.Session).WithTimeout(s.env.timeout())
}

// saveDocAndAssert saves the open document and waits for the success toast
// and for the URL to leave the create view
func (s *suite) saveDocAndAssert(c *harness.Context) {
	s.click(c, saveButton)
	require.NoError(c, s.expect(browser.CSS(".Toastify")).ToContainText(s.ctx(c), "successfully"))
	require.NoError(c, s.expectURL().NotToContain(s.ctx(c), "create"))
}

// ============================================================================
// Nav
// ============================================================================

func (s *suite) nav(c *harness.Context) {
	urls := s.env.URLs

	c.Run("should nav to collection - sidebar", func(c *harness.Context) {
		s.goTo(c, urls.Admin())
		s.click(c, browser.CSS("#nav-"+urls.Slug()))
		require.NoError(c, s.expectURL().ToContain(s.ctx(c), urls.List()))
	})

	c.Run("should nav to a global - sidebar", func(c *harness.Context) {
		s.goTo(c, urls.Admin())
		s.click(c, browser.CSS("#nav-global-"+s.env.Global))
		require.NoError(c, s.expectURL().ToContain(s.ctx(c), urls.Global(s.env.Global)))
	})

	c.Run("should navigate to collection - card", func(c *harness.Context) {
		s.goTo(c, urls.Admin())
		s.click(c, browser.CSS("#card-"+urls.Slug()))
		require.NoError(c, s.expectURL().ToContain(s.ctx(c), urls.List()))
	})

	c.Run("breadcrumbs - from list to dashboard", func(c *harness.Context) {
		s.goTo(c, urls.List())
		s.click(c, browser.CSS(`.step-nav a[href="/admin"]`))
		require.NoError(c, s.expectURL().ToContain(s.ctx(c), urls.Admin()))
	})

	c.Run("breadcrumbs - from document to collection", func(c *harness.Context) {
		doc := s.createPost(c, nil)
		s.goTo(c, urls.Edit(doc.ID))
		s.click(c, browser.CSS(".step-nav").Text(urls.Slug()))
		require.NoError(c, s.expectURL().ToContain(s.ctx(c), urls.List()))
	})
}

// ============================================================================
// CRUD
// ============================================================================

func (s *suite) crud(c *harness.Context) {
	urls := s.env.URLs
	client := s.env.Fixtures.Client()

	c.Run("should create", func(c *harness.Context) {
		s.goTo(c, urls.Create())
		s.fill(c, fieldTitle, title)
		s.fill(c, fieldDesc, description)

		s.saveDocAndAssert(c)

		require.NoError(c, s.expect(fieldTitle).ToHaveValue(s.ctx(c), title))
		require.NoError(c, s.expect(fieldDesc).ToHaveValue(s.ctx(c), description))
	})

	c.Run("should read existing", func(c *harness.Context) {
		doc := s.createPost(c, nil)

		s.goTo(c, urls.Edit(doc.ID))

		require.NoError(c, s.expect(fieldTitle).ToHaveValue(s.ctx(c), title))
		require.NoError(c, s.expect(fieldDesc).ToHaveValue(s.ctx(c), description))
	})

	c.Run("should update existing", func(c *harness.Context) {
		doc := s.createPost(c, nil)

		s.goTo(c, urls.Edit(doc.ID))

		const newTitle = "new title"
		const newDesc = "new description"
		s.fill(c, fieldTitle, newTitle)
		s.fill(c, fieldDesc, newDesc)

		s.saveDocAndAssert(c)

		require.NoError(c, s.expect(fieldTitle).ToHaveValue(s.ctx(c), newTitle))
		require.NoError(c, s.expect(fieldDesc).ToHaveValue(s.ctx(c), newDesc))

		stored, err := client.FindByID(s.ctx(c), urls.Slug(), doc.ID)
		require.NoError(c, err)
		require.Equal(c, newTitle, stored.Title())
		require.Equal(c, newDesc, stored.Description())
	})

	c.Run("should delete existing", func(c *harness.Context) {
		doc := s.createPost(c, nil)

		s.goTo(c, urls.Edit(doc.ID))
		s.click(c, browser.CSS("#action-delete"))
		s.click(c, browser.CSS("#confirm-delete"))

		msg := fmt.Sprintf(`%s "%s" successfully deleted.`, singularLabel(urls.Slug()), doc.ID)
		require.NoError(c, s.expect(browser.Text(msg)).ToBeVisible(s.ctx(c)))
		require.NoError(c, s.expectURL().ToContain(s.ctx(c), urls.List()))

		_, err := client.FindByID(s.ctx(c), urls.Slug(), doc.ID)
		require.ErrorIs(c, err, store.ErrNotFound)
	})

	c.Run("should save globals", func(c *harness.Context) {
		s.goTo(c, urls.Global(s.env.Global))

		s.fill(c, fieldTitle, title)
		s.click(c, saveButton)

		require.NoError(c, s.expect(browser.CSS(".Toastify__toast--success")).ToHaveCount(s.ctx(c), 1))
		require.NoError(c, s.expect(fieldTitle).ToHaveValue(s.ctx(c), title))
	})
}

// ============================================================================
// List view
// ============================================================================

func (s *suite) openList(c *harness.Context) {
	s.goTo(c, s.env.URLs.List())
}

func (s *suite) filtering(c *harness.Context) {
	c.Run("search by id", func(c *harness.Context) {
		doc := s.createPost(c, nil)
		s.openList(c)

		s.fill(c, browser.CSS(".search-filter__input"), doc.ID)
		require.NoError(c, s.expect(tableRows).ToHaveCount(s.ctx(c), 1))
	})

	c.Run("toggle columns", func(c *harness.Context) {
		s.createPost(c, nil)
		s.openList(c)

		s.click(c, browser.CSS(".list-controls__toggle-columns"))
		idButton := browser.CSS(".column-selector").Text("ID")
		require.NoError(c, s.expect(idButton).ToBeVisible(s.ctx(c)))

		columns, err := s.env.Session.Count(s.ctx(c), tableColumns)
		require.NoError(c, err)
		c.Debug("%d columns before toggling", columns)

		// remove ID column
		s.click(c, idButton)
		require.NoError(c, s.expect(tableColumns).ToHaveCount(s.ctx(c), columns-1))

		// add it back
		s.click(c, idButton)
		require.NoError(c, s.expect(tableColumns).ToHaveCount(s.ctx(c), columns))
	})

	c.Run("filter rows", func(c *harness.Context) {
		doc := s.createPost(c, model.Fields{model.FieldTitle: "post1"})
		s.createPost(c, model.Fields{model.FieldTitle: "post2"})
		s.openList(c)

		require.NoError(c, s.expect(tableRows).ToHaveCount(s.ctx(c), 2))

		s.click(c, browser.CSS(".list-controls__toggle-where"))
		addFilter := browser.CSS(".where-builder__add-first-filter")
		require.NoError(c, s.expect(addFilter).ToBeVisible(s.ctx(c)))
		s.click(c, addFilter)

		operatorField := browser.CSS(".condition__operator")
		valueField := browser.Parse(".condition__value >> input")

		s.click(c, operatorField)
		s.click(c, operatorField.CSS(".rs__option").Text("equals"))

		s.fill(c, valueField, doc.ID)

		require.NoError(c, s.expect(tableRows).ToHaveCount(s.ctx(c), 1))
		firstCell := tableRows.First().CSS("td").First()
		require.NoError(c, s.expect(firstCell).ToHaveText(s.ctx(c), doc.ID))

		// remove the filter
		s.click(c, browser.CSS(".condition__actions-remove"))
		require.NoError(c, s.expect(tableRows).ToHaveCount(s.ctx(c), 2))
	})
}

func (s *suite) pagination(c *harness.Context) {
	c.Run("should paginate", func(c *harness.Context) {
		_, err := s.env.Fixtures.CreateDocuments(s.ctx(c), s.env.URLs.Slug(), 11, fixtures.PostDefaults)
		require.NoError(c, err, "seed posts")
		s.openList(c)

		pageInfo := browser.CSS(".collection-list__page-info")
		perPage := browser.CSS(".per-page")
		paginator := browser.CSS(".paginator")

		require.NoError(c, s.expect(tableRows).ToHaveCount(s.ctx(c), 10))
		require.NoError(c, s.expect(pageInfo).ToHaveText(s.ctx(c), "1-10 of 11"))
		require.NoError(c, s.expect(perPage).ToContainText(s.ctx(c), "Per Page: 10"))

		// forward one page and back using numbers
		s.click(c, paginator.CSS("button").Nth(1))
		require.NoError(c, s.expectURL().ToContain(s.ctx(c), "?page=2"))
		require.NoError(c, s.expect(tableRows).ToHaveCount(s.ctx(c), 1))
		s.click(c, paginator.CSS("button").Nth(0))
		require.NoError(c, s.expectURL().ToContain(s.ctx(c), "?page=1"))
		require.NoError(c, s.expect(tableRows).ToHaveCount(s.ctx(c), 10))
	})
}

func (s *suite) sorting(c *harness.Context) {
	c.Run("should sort", func(c *harness.Context) {
		s.createPost(c, nil)
		s.createPost(c, nil)
		s.openList(c)

		upChevron := browser.CSS("#heading-id .sort-column__asc")
		downChevron := browser.CSS("#heading-id .sort-column__desc")
		firstCell := browser.CSS(".row-1 .cell-id")
		secondCell := browser.CSS(".row-2 .cell-id")

		require.NoError(c, s.expect(tableRows).ToHaveCount(s.ctx(c), 2))
		firstID, err := s.env.Session.Text(s.ctx(c), firstCell)
		require.NoError(c, err)
		secondID, err := s.env.Session.Text(s.ctx(c), secondCell)
		require.NoError(c, err)

		s.click(c, upChevron)

		// order should have swapped
		require.NoError(c, s.expect(firstCell).ToHaveText(s.ctx(c), secondID))
		require.NoError(c, s.expect(secondCell).ToHaveText(s.ctx(c), firstID))

		s.click(c, downChevron)

		// swap back
		require.NoError(c, s.expect(firstCell).ToHaveText(s.ctx(c), firstID))
		require.NoError(c, s.expect(secondCell).ToHaveText(s.ctx(c), secondID))
	})
}
