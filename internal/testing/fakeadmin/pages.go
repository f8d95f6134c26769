package fakeadmin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/forgo/admin-e2e/internal/adminurl"
	"github.com/forgo/admin-e2e/internal/model"
	"github.com/forgo/admin-e2e/internal/store"
)

type pageKind string

const (
	pageLogin     pageKind = "login"
	pageDashboard pageKind = "dashboard"
	pageList      pageKind = "list"
	pageEdit      pageKind = "edit"
	pageGlobal    pageKind = "global"
	pageNotFound  pageKind = "not-found"
)

// condition is one row of the where builder
type condition struct {
	operator model.Operator
	value    string
	open     bool
}

// operators offered by the where builder, in menu order
var operators = []operatorOption{
	{Value: string(model.OpEquals), Label: "equals"},
	{Value: string(model.OpNotEquals), Label: "is not equal to"},
	{Value: string(model.OpLike), Label: "is like"},
	{Value: string(model.OpContains), Label: "contains"},
}

func operatorLabel(op model.Operator) string {
	for _, o := range operators {
		if o.Value == string(op) {
			return o.Label
		}
	}
	return "Select a value"
}

// pageState is what the current page shows beyond the store's data
type pageState struct {
	kind pageKind

	// edit and global
	docID      string
	form       map[string]string
	confirming bool

	// list
	page        int
	pageInURL   bool
	sort        string
	search      string
	hidden      map[string]bool
	columnsOpen bool
	whereOpen   bool
	conditions  []condition

	// login
	email    string
	password string
	redirect string
}

func (p *pageState) fill(field, value string) error {
	switch {
	case p.kind == pageList && field == "search":
		p.search = value
		p.page = 1
	case p.kind == pageList && strings.HasPrefix(field, "where-value:"):
		i, err := p.conditionIndex(strings.TrimPrefix(field, "where-value:"))
		if err != nil {
			return err
		}
		p.conditions[i].value = value
		p.page = 1
	case p.kind == pageLogin && field == "email":
		p.email = value
	case p.kind == pageLogin && field == "password":
		p.password = value
	case p.kind == pageEdit || p.kind == pageGlobal:
		p.form[field] = value
	default:
		return fmt.Errorf("fakeadmin: no field %q on the %s page", field, p.kind)
	}
	return nil
}

func (p *pageState) conditionIndex(raw string) (int, error) {
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 || i >= len(p.conditions) {
		return 0, fmt.Errorf("fakeadmin: no condition %q", raw)
	}
	return i, nil
}

// where is the list query the search box and where builder describe
func (p *pageState) where() []model.Where {
	var where []model.Where
	if p.search != "" {
		where = append(where, model.Where{Field: model.FieldID, Operator: model.OpLike, Value: p.search})
	}
	for _, c := range p.conditions {
		if c.operator != "" && c.value != "" {
			where = append(where, model.Where{Field: model.FieldID, Operator: c.operator, Value: c.value})
		}
	}
	return where
}

// navigate resolves href against the current page and shows it, keeping
// toasts the way in-app navigation does
func (s *Session) navigate(ctx context.Context, href string) error {
	base, err := url.Parse(s.urls.Server())
	if err != nil {
		return err
	}
	if s.url != nil {
		base = s.url
	}
	ref, err := url.Parse(href)
	if err != nil {
		return fmt.Errorf("fakeadmin: invalid url %q: %w", href, err)
	}
	u := base.ResolveReference(ref)

	state, err := s.route(ctx, u)
	if err != nil {
		return err
	}
	if s.users != "" && !s.authed && state.kind != pageLogin {
		login, err := url.Parse(s.urls.Login())
		if err != nil {
			return err
		}
		redirect := adminurl.PagePath(u.String())
		login.RawQuery = url.Values{"redirect": {redirect}}.Encode()
		u = login
		state = pageState{kind: pageLogin, redirect: redirect}
	}

	s.url = u
	s.state = state
	s.logger.Debug("page loaded", "url", u.String(), "page", string(state.kind))
	return s.refresh(ctx)
}

// route maps an admin URL to the page it shows and loads that page's
// document
func (s *Session) route(ctx context.Context, u *url.URL) (pageState, error) {
	adminPath := "/admin"
	if a, err := url.Parse(s.urls.Admin()); err == nil {
		adminPath = a.Path
	}
	rest, ok := strings.CutPrefix(strings.TrimSuffix(u.EscapedPath(), "/"), adminPath)
	if !ok {
		return pageState{kind: pageNotFound}, nil
	}

	var parts []string
	for _, p := range strings.Split(strings.TrimPrefix(rest, "/"), "/") {
		if p == "" {
			continue
		}
		unescaped, err := url.PathUnescape(p)
		if err != nil {
			return pageState{kind: pageNotFound}, nil
		}
		parts = append(parts, unescaped)
	}

	collection := s.urls.Slug()
	switch {
	case len(parts) == 0:
		return pageState{kind: pageDashboard}, nil
	case len(parts) == 1 && parts[0] == "login":
		return pageState{kind: pageLogin, redirect: u.Query().Get("redirect")}, nil
	case len(parts) == 2 && parts[0] == "collections" && parts[1] == collection:
		st := pageState{kind: pageList, page: 1, sort: u.Query().Get("sort"), hidden: map[string]bool{}}
		if n, err := strconv.Atoi(u.Query().Get("page")); err == nil && n > 0 {
			st.page, st.pageInURL = n, true
		}
		return st, nil
	case len(parts) == 3 && parts[0] == "collections" && parts[1] == collection && parts[2] == "create":
		return pageState{kind: pageEdit, form: s.blankForm(s.fields)}, nil
	case len(parts) == 3 && parts[0] == "collections" && parts[1] == collection:
		doc, err := s.client.FindByID(ctx, collection, parts[2])
		if errors.Is(err, store.ErrNotFound) {
			return pageState{kind: pageNotFound}, nil
		}
		if err != nil {
			return pageState{}, fmt.Errorf("fakeadmin: load %s/%s: %w", collection, parts[2], err)
		}
		return pageState{kind: pageEdit, docID: doc.ID, form: formOf(doc, s.fields)}, nil
	case len(parts) == 2 && parts[0] == "globals" && parts[1] == s.global:
		doc, err := s.client.FindGlobal(ctx, s.global)
		if err != nil {
			return pageState{}, fmt.Errorf("fakeadmin: load global %s: %w", s.global, err)
		}
		return pageState{kind: pageGlobal, form: formOf(doc, s.globalFields)}, nil
	default:
		return pageState{kind: pageNotFound}, nil
	}
}

func (s *Session) blankForm(fields []string) map[string]string {
	form := make(map[string]string, len(fields))
	for _, f := range fields {
		form[f] = ""
	}
	return form
}

func formOf(doc *model.Document, fields []string) map[string]string {
	form := make(map[string]string, len(fields))
	for _, f := range fields {
		form[f] = doc.Get(f)
	}
	return form
}

func (p *pageState) data(fields []string) model.Fields {
	data := make(model.Fields, len(fields))
	for _, f := range fields {
		data[f] = p.form[f]
	}
	return data
}

// syncListURL writes the list's page and sort into the address bar
func (s *Session) syncListURL() {
	q := url.Values{}
	if s.state.pageInURL {
		q.Set("page", strconv.Itoa(s.state.page))
	}
	if s.state.sort != "" {
		q.Set("sort", s.state.sort)
	}
	u := *s.url
	u.RawQuery = q.Encode()
	s.url = &u
}

// dispatch runs a data-handler
func (s *Session) dispatch(ctx context.Context, action string) error {
	name, arg, _ := strings.Cut(action, ":")
	st := &s.state

	switch name {
	case "login":
		return s.login(ctx)
	case "save":
		return s.save(ctx)
	case "delete":
		st.confirming = true
	case "cancel-delete":
		st.confirming = false
	case "confirm-delete":
		return s.confirmDelete(ctx)
	case "toggle-columns":
		st.columnsOpen = !st.columnsOpen
	case "toggle-column":
		st.hidden[arg] = !st.hidden[arg]
	case "toggle-where":
		st.whereOpen = !st.whereOpen
	case "add-filter":
		st.conditions = append(st.conditions, condition{})
	case "open-operator":
		i, err := st.conditionIndex(arg)
		if err != nil {
			return err
		}
		st.conditions[i].open = !st.conditions[i].open
	case "choose-operator":
		idx, op, _ := strings.Cut(arg, ":")
		i, err := st.conditionIndex(idx)
		if err != nil {
			return err
		}
		st.conditions[i].operator = model.Operator(op)
		st.conditions[i].open = false
		st.page = 1
	case "remove-condition":
		i, err := st.conditionIndex(arg)
		if err != nil {
			return err
		}
		st.conditions = append(st.conditions[:i], st.conditions[i+1:]...)
		st.page = 1
	case "page":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return fmt.Errorf("fakeadmin: bad page %q", arg)
		}
		st.page, st.pageInURL = n, true
		s.syncListURL()
	case "sort":
		st.sort = arg
		s.syncListURL()
	default:
		return fmt.Errorf("fakeadmin: unknown action %q", action)
	}
	return s.refresh(ctx)
}

func (s *Session) login(ctx context.Context) error {
	st := s.state
	res, err := s.client.Find(ctx, s.users, model.FindOptions{
		Limit: 1,
		Where: []model.Where{{Field: "email", Operator: model.OpEquals, Value: st.email}},
	})
	if err != nil {
		return fmt.Errorf("fakeadmin: look up user: %w", err)
	}
	if len(res.Docs) == 0 || bcrypt.CompareHashAndPassword([]byte(res.Docs[0].Get("hash")), []byte(st.password)) != nil {
		s.toast("error", "The email or password provided is incorrect.")
		return s.refresh(ctx)
	}

	s.authed = true
	s.logger.Debug("signed in", "email", st.email)
	target := st.redirect
	if target == "" {
		target = s.urls.Admin()
	}
	return s.navigate(ctx, target)
}

func (s *Session) save(ctx context.Context) error {
	st := &s.state
	collection := s.urls.Slug()

	switch {
	case st.kind == pageGlobal:
		doc, err := s.client.UpdateGlobal(ctx, s.global, st.data(s.globalFields))
		if err != nil {
			return s.failed(ctx, err)
		}
		st.form = formOf(doc, s.globalFields)
		s.toast("success", "Updated successfully.")
	case st.kind == pageEdit && st.docID == "":
		doc, err := s.client.Create(ctx, collection, st.data(s.fields))
		if err != nil {
			return s.failed(ctx, err)
		}
		s.toast("success", "%s successfully created.", singular(collection))
		return s.navigate(ctx, s.urls.Edit(doc.ID))
	case st.kind == pageEdit:
		doc, err := s.client.Update(ctx, collection, st.docID, st.data(s.fields))
		if err != nil {
			return s.failed(ctx, err)
		}
		st.form = formOf(doc, s.fields)
		s.toast("success", "Updated successfully.")
	default:
		return fmt.Errorf("fakeadmin: nothing to save on the %s page", st.kind)
	}
	return s.refresh(ctx)
}

// failed shows store rejections as an error toast; anything else is a
// broken store and ends the action
func (s *Session) failed(ctx context.Context, err error) error {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		fields := make([]string, 0, len(verr.Errors))
		for _, fe := range verr.Errors {
			fields = append(fields, fe.Field)
		}
		s.toast("error", "The following field is invalid: %s", strings.Join(fields, ", "))
	case errors.Is(err, store.ErrNotFound):
		s.toast("error", "The requested resource was not found.")
	default:
		return err
	}
	return s.refresh(ctx)
}

func (s *Session) confirmDelete(ctx context.Context) error {
	collection := s.urls.Slug()
	id := s.state.docID
	if err := s.client.Delete(ctx, collection, id); err != nil {
		s.state.confirming = false
		return s.failed(ctx, err)
	}
	s.toast("success", "%s %q successfully deleted.", singular(collection), id)
	return s.navigate(ctx, s.urls.List())
}

// refresh renders the current state
func (s *Session) refresh(ctx context.Context) error {
	v, err := s.view(ctx)
	if err != nil {
		return err
	}
	doc, html, err := render(v)
	if err != nil {
		return err
	}
	s.doc, s.html = doc, html
	return nil
}

func (s *Session) view(ctx context.Context) (*view, error) {
	st := &s.state
	collection := s.urls.Slug()
	v := &view{
		Page:   string(st.kind),
		Title:  "Admin",
		Toasts: s.toasts,
	}
	if st.kind != pageLogin {
		v.Nav = []navLink{
			{ID: "nav-" + collection, Href: adminurl.PagePath(s.urls.List()), Label: label(collection)},
			{ID: "nav-global-" + s.global, Href: adminurl.PagePath(s.urls.Global(s.global)), Label: label(s.global)},
		}
	}
	dashboard := navLink{Href: adminurl.PagePath(s.urls.Admin()), Label: "Dashboard"}
	list := navLink{Href: adminurl.PagePath(s.urls.List()), Label: label(collection)}

	switch st.kind {
	case pageLogin:
		v.Title = "Login"
		v.Email, v.Password = st.email, st.password
	case pageDashboard:
		v.Title = "Dashboard"
		v.Cards = []navLink{{ID: "card-" + collection, Href: list.Href, Label: list.Label}}
	case pageList:
		v.Title = label(collection)
		v.Crumbs, v.Crumb = []navLink{dashboard}, label(collection)
		if err := s.listView(ctx, v); err != nil {
			return nil, err
		}
	case pageEdit:
		v.Crumbs = []navLink{dashboard, list}
		v.DocID, v.Creating, v.Confirming = st.docID, st.docID == "", st.confirming
		v.Crumb = st.docID
		if v.Creating {
			v.Crumb = "Create New"
		}
		v.Title = v.Crumb
		v.Fields = fieldViews(st.form, s.fields)
	case pageGlobal:
		v.Title = label(s.global)
		v.Crumbs, v.Crumb = []navLink{dashboard}, label(s.global)
		v.Fields = fieldViews(st.form, s.globalFields)
	default:
		v.Title = "Not Found"
	}
	return v, nil
}

func fieldViews(form map[string]string, fields []string) []fieldView {
	out := make([]fieldView, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldView{Name: f, Label: fieldLabel(f), Value: form[f]})
	}
	return out
}

func (s *Session) listView(ctx context.Context, v *view) error {
	st := &s.state
	collection := s.urls.Slug()

	res, err := s.client.Find(ctx, collection, model.FindOptions{
		Limit: s.perPage,
		Page:  st.page,
		Sort:  st.sort,
		Where: st.where(),
	})
	if err != nil {
		return fmt.Errorf("fakeadmin: list %s: %w", collection, err)
	}

	keys := append(append([]string{model.FieldID}, s.fields...), "createdAt")
	for _, k := range keys {
		c := column{Key: k, Label: fieldLabel(k), Hidden: st.hidden[k]}
		v.Columns = append(v.Columns, c)
		if !c.Hidden {
			v.Visible = append(v.Visible, c)
		}
	}

	for i, doc := range res.Docs {
		r := row{Index: i + 1}
		for _, c := range v.Visible {
			cl := cell{Key: c.Key}
			switch c.Key {
			case model.FieldID:
				cl.Text, cl.Href = doc.ID, adminurl.PagePath(s.urls.Edit(doc.ID))
			case "createdAt":
				cl.Text = doc.CreatedAt.Format("January 2, 2006 3:04 PM")
			default:
				cl.Text = doc.Get(c.Key)
			}
			r.Cells = append(r.Cells, cl)
		}
		v.Rows = append(v.Rows, r)
	}

	for p := 1; p <= res.TotalPages; p++ {
		v.Pages = append(v.Pages, p)
	}
	v.CurrentPage = res.Page
	v.PageInfo = res.PageInfo()
	v.PerPage = res.Limit
	v.Search = st.search
	v.ColumnsOpen, v.WhereOpen = st.columnsOpen, st.whereOpen
	v.Operators = operators
	for i, c := range st.conditions {
		v.Conditions = append(v.Conditions, conditionView{
			Index:         i,
			FieldLabel:    fieldLabel(model.FieldID),
			OperatorLabel: operatorLabel(c.operator),
			Open:          c.open,
			Value:         c.value,
		})
	}
	return nil
}
