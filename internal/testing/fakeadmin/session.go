package fakeadmin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/forgo/admin-e2e/internal/adminurl"
	"github.com/forgo/admin-e2e/internal/browser"
	"github.com/forgo/admin-e2e/internal/browser/htmldriver"
	"github.com/forgo/admin-e2e/internal/model"
	"github.com/forgo/admin-e2e/internal/store"
)

// Defaults for a Session
const (
	DefaultServerURL = "http://localhost:3000"
	DefaultGlobal    = "global"
	DefaultPerPage   = model.DefaultLimit
)

// Session is an admin UI for one collection and one global, rendered from a
// store. It is safe for use from one scenario at a time.
type Session struct {
	client       store.Client
	urls         *adminurl.Builder
	global       string
	fields       []string
	globalFields []string
	users        string
	perPage      int
	logger       *slog.Logger

	mu     sync.Mutex
	url    *url.URL
	state  pageState
	toasts []toastView
	authed bool
	doc    *goquery.Document
	html   string
	closed bool
}

// Option configures a Session
type Option func(*Session)

// WithGlobal sets the global slug linked from the sidebar
func WithGlobal(slug string) Option {
	return func(s *Session) { s.global = slug }
}

// WithFields sets the collection's editable text fields
func WithFields(fields ...string) Option {
	return func(s *Session) { s.fields = fields }
}

// WithGlobalFields sets the global's editable text fields
func WithGlobalFields(fields ...string) Option {
	return func(s *Session) { s.globalFields = fields }
}

// WithAuth requires signing in with a user from collection before any
// other page is shown. Users carry an email and a bcrypt hash field.
func WithAuth(collection string) Option {
	return func(s *Session) { s.users = collection }
}

// WithPerPage sets the list page size
func WithPerPage(n int) Option {
	return func(s *Session) { s.perPage = n }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// New creates a session on about:blank for the collection behind urls
func New(client store.Client, urls *adminurl.Builder, opts ...Option) *Session {
	s := &Session{
		client:       client,
		urls:         urls,
		global:       DefaultGlobal,
		fields:       []string{model.FieldTitle, model.FieldDescription},
		globalFields: []string{model.FieldTitle},
		perPage:      DefaultPerPage,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ browser.Session = (*Session)(nil)

func (s *Session) check(ctx context.Context) error {
	if s.closed {
		return browser.ErrClosed
	}
	return ctx.Err()
}

// Goto loads a page as a fresh document: toasts and list controls reset
func (s *Session) Goto(ctx context.Context, rawURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.toasts = nil
	return s.navigate(ctx, rawURL)
}

func (s *Session) URL(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", browser.ErrClosed
	}
	if s.url == nil {
		return "about:blank", nil
	}
	return s.url.String(), nil
}

func (s *Session) find(sel browser.Selector) *goquery.Selection {
	if s.doc == nil {
		return &goquery.Selection{}
	}
	return htmldriver.Find(s.doc.Selection, sel)
}

// Click dispatches the nearest data-handler of the first match, or follows
// the link it sits in
func (s *Session) Click(ctx context.Context, sel browser.Selector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	el := s.find(sel).First()
	if el.Length() == 0 {
		return browser.NoElement(sel)
	}
	if target := el.Closest("[data-handler]"); target.Length() > 0 {
		action := target.AttrOr("data-handler", "")
		s.logger.Debug("click", "selector", sel.String(), "action", action)
		return s.dispatch(ctx, action)
	}
	if link := el.Closest("a[href]"); link.Length() > 0 {
		href := link.AttrOr("href", "")
		s.logger.Debug("click", "selector", sel.String(), "href", href)
		return s.navigate(ctx, href)
	}
	s.logger.Debug("click on inert element", "selector", sel.String())
	return nil
}

// Fill writes the value of a data-field input and re-renders the page
func (s *Session) Fill(ctx context.Context, sel browser.Selector, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	el := s.find(sel).First()
	if el.Length() == 0 {
		return browser.NoElement(sel)
	}
	field, ok := el.Attr("data-field")
	if !ok {
		return fmt.Errorf("fakeadmin: %s is not an input", sel)
	}
	if err := s.state.fill(field, value); err != nil {
		return err
	}
	return s.refresh(ctx)
}

func (s *Session) Count(_ context.Context, sel browser.Selector) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(sel).Length(), nil
}

func (s *Session) Text(_ context.Context, sel browser.Selector) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el := s.find(sel).First()
	if el.Length() == 0 {
		return "", browser.NoElement(sel)
	}
	return browser.NormalizeText(el.Text()), nil
}

func (s *Session) Value(_ context.Context, sel browser.Selector) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el := s.find(sel).First()
	if el.Length() == 0 {
		return "", browser.NoElement(sel)
	}
	return htmldriver.FieldValue(el), nil
}

func (s *Session) Visible(_ context.Context, sel browser.Selector) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el := s.find(sel).First()
	return el.Length() > 0 && htmldriver.IsVisible(el), nil
}

// Await checks once: the page only changes when the scenario acts on it
func (s *Session) Await(ctx context.Context, sel browser.Selector, cond browser.Condition) (browser.Observation, error) {
	return browser.Poll(ctx, s, sel, cond, 0)
}

func (s *Session) AwaitURL(ctx context.Context, cond browser.Condition) (string, error) {
	obs, err := browser.Poll(ctx, s, browser.Selector{}, cond, 0)
	return obs.URL, err
}

func (s *Session) Snapshot(context.Context) (*browser.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &browser.Snapshot{HTML: s.html, TakenAt: time.Now()}
	if s.url != nil {
		snap.URL = s.url.String()
	}
	return snap, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Session) toast(kind, format string, args ...any) {
	s.toasts = append(s.toasts, toastView{Kind: kind, Text: fmt.Sprintf(format, args...)})
}

// label turns a slug into its plural display label
func label(slug string) string {
	if slug == "" {
		return ""
	}
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// singular is the label used in messages about one document
func singular(slug string) string {
	l := label(slug)
	if strings.HasSuffix(l, "s") && len(l) > 1 {
		return l[:len(l)-1]
	}
	return l
}

// fieldLabel turns a field name into a column or input label
func fieldLabel(name string) string {
	switch name {
	case "id":
		return "ID"
	case "createdAt":
		return "Created At"
	case "updatedAt":
		return "Updated At"
	}
	return label(name)
}
