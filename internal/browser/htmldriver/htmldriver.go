package htmldriver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/forgo/admin-e2e/internal/browser"
)

// MaxPageSize bounds how much of a response body is parsed
const MaxPageSize = 4 * 1024 * 1024

// Session is a static HTML browser session
type Session struct {
	client *http.Client

	mu     sync.Mutex
	url    *url.URL
	doc    *goquery.Document
	closed bool
}

// Option configures a Session
type Option func(*Session)

// WithHTTPClient sets the client used for page loads. Its Jar keeps the
// login cookie between pages.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Session) { s.client = hc }
}

// New creates a session with an empty page
func New(opts ...Option) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("htmldriver: cookie jar: %w", err)
	}
	s := &Session{
		client: &http.Client{Jar: jar, Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Goto loads url
func (s *Session) Goto(ctx context.Context, rawURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, http.MethodGet, rawURL, nil)
}

func (s *Session) load(ctx context.Context, method, rawURL string, form url.Values) error {
	if s.closed {
		return browser.ErrClosed
	}
	target, err := s.resolve(rawURL)
	if err != nil {
		return err
	}

	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(form.Encode())
	} else if form != nil {
		target.RawQuery = form.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return fmt.Errorf("htmldriver: build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("htmldriver: %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("htmldriver: %s %s: unexpected status code: %d", method, target, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, MaxPageSize))
	if err != nil {
		return fmt.Errorf("htmldriver: failed to parse HTML: %w", err)
	}
	s.url = resp.Request.URL
	s.doc = doc
	return nil
}

func (s *Session) resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("htmldriver: invalid url %q: %w", ref, err)
	}
	if s.url != nil {
		u = s.url.ResolveReference(u)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("htmldriver: relative url %q with no page loaded", ref)
	}
	return u, nil
}

// URL returns the current page URL
func (s *Session) URL(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.url == nil {
		return "about:blank", nil
	}
	return s.url.String(), nil
}

// find evaluates the selector chain against the current page
func (s *Session) find(sel browser.Selector) *goquery.Selection {
	if s.doc == nil {
		return &goquery.Selection{}
	}
	return Find(s.doc.Selection, sel)
}

// Find evaluates a selector chain below root
func Find(root *goquery.Selection, sel browser.Selector) *goquery.Selection {
	cur := root
	for _, step := range sel.Steps() {
		switch step.Kind {
		case browser.StepCSS:
			cur = cur.Find(step.Value)
		case browser.StepText:
			cur = findText(cur, step.Value)
		case browser.StepNth:
			cur = cur.Eq(step.Index)
		}
	}
	return cur
}

// findText returns the innermost descendants whose text matches value
func findText(roots *goquery.Selection, value string) *goquery.Selection {
	candidates := roots.Find("*").FilterFunction(func(_ int, el *goquery.Selection) bool {
		return browser.TextMatches(el.Text(), value)
	})
	return candidates.FilterFunction(func(_ int, el *goquery.Selection) bool {
		return el.Find("*").FilterFunction(func(_ int, child *goquery.Selection) bool {
			return browser.TextMatches(child.Text(), value)
		}).Length() == 0
	})
}

// Click follows the link or submits the form the first match belongs to
func (s *Session) Click(ctx context.Context, sel browser.Selector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	el := s.find(sel).First()
	if el.Length() == 0 {
		return browser.NoElement(sel)
	}

	if link := el.Closest("a[href]"); link.Length() > 0 {
		href, _ := link.Attr("href")
		return s.load(ctx, http.MethodGet, href, nil)
	}

	if button := el.Closest("button, input[type=submit]"); button.Length() > 0 {
		if t, ok := button.Attr("type"); !ok || t == "submit" {
			if form := button.Closest("form"); form.Length() > 0 {
				return s.submit(ctx, form, button)
			}
		}
	}

	return fmt.Errorf("htmldriver: clicking %s needs JavaScript", sel)
}

func (s *Session) submit(ctx context.Context, form, submitter *goquery.Selection) error {
	values := url.Values{}
	form.Find("input[name], textarea[name], select[name]").Each(func(_ int, field *goquery.Selection) {
		name, _ := field.Attr("name")
		if _, disabled := field.Attr("disabled"); disabled {
			return
		}
		switch {
		case field.Is("input[type=submit], input[type=button], input[type=image]"):
			return
		case field.Is("input[type=checkbox], input[type=radio]"):
			if _, checked := field.Attr("checked"); !checked {
				return
			}
		}
		values.Add(name, FieldValue(field))
	})
	if name, ok := submitter.Attr("name"); ok && name != "" {
		values.Add(name, submitter.AttrOr("value", ""))
	}

	method := strings.ToUpper(form.AttrOr("method", http.MethodGet))
	if method != http.MethodPost {
		method = http.MethodGet
	}
	action := form.AttrOr("action", "")
	if action == "" {
		action = s.url.String()
	}
	return s.load(ctx, method, action, values)
}

// FieldValue is the value a form field submits
func FieldValue(field *goquery.Selection) string {
	switch {
	case field.Is("textarea"):
		return field.Text()
	case field.Is("select"):
		opt := field.Find("option[selected]").First()
		if opt.Length() == 0 {
			opt = field.Find("option").First()
		}
		return opt.AttrOr("value", strings.TrimSpace(opt.Text()))
	default:
		return field.AttrOr("value", "")
	}
}

// Fill sets the value of the first matching input or textarea
func (s *Session) Fill(_ context.Context, sel browser.Selector, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	el := s.find(sel).First()
	if el.Length() == 0 {
		return browser.NoElement(sel)
	}
	switch {
	case el.Is("textarea"):
		el.SetText(value)
	case el.Is("input"):
		el.SetAttr("value", value)
	default:
		return fmt.Errorf("htmldriver: %s is not an input", sel)
	}
	return nil
}

// Count returns the number of matches
func (s *Session) Count(_ context.Context, sel browser.Selector) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(sel).Length(), nil
}

// Text returns the text of the first match
func (s *Session) Text(_ context.Context, sel browser.Selector) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el := s.find(sel).First()
	if el.Length() == 0 {
		return "", browser.NoElement(sel)
	}
	return browser.NormalizeText(el.Text()), nil
}

// Value returns the form value of the first match
func (s *Session) Value(_ context.Context, sel browser.Selector) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el := s.find(sel).First()
	if el.Length() == 0 {
		return "", browser.NoElement(sel)
	}
	return FieldValue(el), nil
}

// Visible reports whether the first match is rendered
func (s *Session) Visible(_ context.Context, sel browser.Selector) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el := s.find(sel).First()
	if el.Length() == 0 {
		return false, nil
	}
	return IsVisible(el), nil
}

// IsVisible reports whether el would be rendered, judging by hidden
// attributes and inline styles only
func IsVisible(el *goquery.Selection) bool {
	if el.Is("input[type=hidden], script, style, template") {
		return false
	}
	for n := el; n.Length() > 0; n = n.Parent() {
		if _, hidden := n.Attr("hidden"); hidden {
			return false
		}
		style := strings.ReplaceAll(strings.ToLower(n.AttrOr("style", "")), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}

// Await checks cond once; a static page only changes on actions
func (s *Session) Await(ctx context.Context, sel browser.Selector, cond browser.Condition) (browser.Observation, error) {
	return browser.Poll(ctx, s, sel, cond, 0)
}

// AwaitURL checks the URL condition once
func (s *Session) AwaitURL(ctx context.Context, cond browser.Condition) (string, error) {
	obs, err := browser.Poll(ctx, s, browser.Selector{}, cond, 0)
	return obs.URL, err
}

// Snapshot returns the current URL and HTML
func (s *Session) Snapshot(context.Context) (*browser.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &browser.Snapshot{TakenAt: time.Now()}
	if s.url != nil {
		snap.URL = s.url.String()
	}
	if s.doc != nil {
		html, err := s.doc.Html()
		if err != nil {
			return nil, fmt.Errorf("htmldriver: render html: %w", err)
		}
		snap.HTML = html
	}
	return snap, nil
}

// Close releases idle connections
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.client.CloseIdleConnections()
	return nil
}
