package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/forgo/admin-e2e/internal/model"
	"github.com/forgo/admin-e2e/internal/store"
)

// DefaultTimeout bounds a single request when no http.Client is supplied
const DefaultTimeout = 30 * time.Second

// Client talks to the admin REST API
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithToken presets the auth token
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the admin served at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q: scheme and host are required", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Token returns the current auth token, empty when not logged in
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type loginResponse struct {
	Token string         `json:"token"`
	User  map[string]any `json:"user"`
}

// Login authenticates against the auth collection and stores the token for
// subsequent requests
func (c *Client) Login(ctx context.Context, collection, email, password string) error {
	var resp loginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, collection, c.path(collection, "login"), nil, body, &resp); err != nil {
		return fmt.Errorf("login %s: %w", email, err)
	}
	if resp.Token == "" {
		return fmt.Errorf("login %s: %w: no token in response", email, store.ErrUnauthorized)
	}
	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	return nil
}

// docEnvelope covers the shapes write endpoints respond with: the document
// itself, or a message plus the document under "doc" or "result"
type docEnvelope struct {
	Doc    *model.Document `json:"doc"`
	Result *model.Document `json:"result"`
}

func decodeDocument(raw json.RawMessage) (*model.Document, error) {
	var env docEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	switch {
	case env.Doc != nil:
		return env.Doc, nil
	case env.Result != nil:
		return env.Result, nil
	}
	var doc model.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	delete(doc.Fields, "message")
	return &doc, nil
}

// Create inserts a document
func (c *Client) Create(ctx context.Context, collection string, data model.Fields) (*model.Document, error) {
	if err := store.ValidateName("collection", collection); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, collection, c.path(collection), nil, data, &raw); err != nil {
		return nil, fmt.Errorf("create %s: %w", collection, err)
	}
	return decodeDocument(raw)
}

// Find lists one page of a collection
func (c *Client) Find(ctx context.Context, collection string, opts model.FindOptions) (*model.FindResult, error) {
	var res model.FindResult
	if err := c.do(ctx, http.MethodGet, collection, c.path(collection), findQuery(opts), nil, &res); err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	return &res, nil
}

// findQuery encodes options in the qs form the API parses, e.g.
// where[id][equals]=abc or where[and][0][id][equals]=abc
func findQuery(opts model.FindOptions) url.Values {
	opts = opts.Normalize()
	q := url.Values{}
	q.Set("limit", strconv.Itoa(opts.Limit))
	q.Set("page", strconv.Itoa(opts.Page))
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	switch len(opts.Where) {
	case 0:
	case 1:
		w := opts.Where[0]
		q.Set(fmt.Sprintf("where[%s][%s]", w.Field, w.Operator), w.Value)
	default:
		for i, w := range opts.Where {
			q.Set(fmt.Sprintf("where[and][%d][%s][%s]", i, w.Field, w.Operator), w.Value)
		}
	}
	return q
}

// FindByID returns one document
func (c *Client) FindByID(ctx context.Context, collection, id string) (*model.Document, error) {
	var doc model.Document
	if err := c.do(ctx, http.MethodGet, collection, c.path(collection, id), nil, nil, &doc); err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", collection, id, err)
	}
	return &doc, nil
}

// Update patches a document
func (c *Client) Update(ctx context.Context, collection, id string, data model.Fields) (*model.Document, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPatch, collection, c.path(collection, id), nil, data, &raw); err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return decodeDocument(raw)
}

// Delete removes a document
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	if err := c.do(ctx, http.MethodDelete, collection, c.path(collection, id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// FindGlobal returns the singleton document for slug
func (c *Client) FindGlobal(ctx context.Context, slug string) (*model.Document, error) {
	var doc model.Document
	if err := c.do(ctx, http.MethodGet, slug, c.path("globals", slug), nil, nil, &doc); err != nil {
		return nil, fmt.Errorf("find global %s: %w", slug, err)
	}
	if doc.Fields == nil {
		doc.Fields = model.Fields{}
	}
	return &doc, nil
}

// UpdateGlobal saves the singleton document for slug
func (c *Client) UpdateGlobal(ctx context.Context, slug string, data model.Fields) (*model.Document, error) {
	if err := store.ValidateName("global", slug); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, slug, c.path("globals", slug), nil, data, &raw); err != nil {
		return nil, fmt.Errorf("update global %s: %w", slug, err)
	}
	return decodeDocument(raw)
}

func (c *Client) path(segments ...string) string {
	escaped := make([]string, 0, len(segments)+1)
	escaped = append(escaped, "api")
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	return "/" + strings.Join(escaped, "/")
}

func (c *Client) do(ctx context.Context, method, collection, path string, query url.Values, in, out any) error {
	u := *c.baseURL
	u.RawPath = strings.TrimRight(u.EscapedPath(), "/") + path
	if unescaped, err := url.PathUnescape(u.RawPath); err == nil {
		u.Path = unescaped
	}
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "JWT "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", store.ErrConnection, method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", store.ErrConnection, err)
	}

	c.logger.Debug("api request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= 300 {
		return classify(resp.StatusCode, collection, payload)
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiErrors is the error body the admin API responds with
type apiErrors struct {
	Errors []struct {
		Name    string             `json:"name"`
		Message string             `json:"message"`
		Field   string             `json:"field"`
		Data    []model.FieldError `json:"data"`
	} `json:"errors"`
}

func (e apiErrors) fieldErrors() []model.FieldError {
	var out []model.FieldError
	for _, item := range e.Errors {
		if len(item.Data) > 0 {
			out = append(out, item.Data...)
			continue
		}
		out = append(out, model.FieldError{Field: item.Field, Message: item.Message})
	}
	return out
}

func (e apiErrors) message() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		if item.Message != "" {
			msgs = append(msgs, item.Message)
		}
	}
	return strings.Join(msgs, "; ")
}

// classify maps an error response onto the store sentinels
func classify(status int, collection string, payload []byte) error {
	var body apiErrors
	var problem model.ProblemDetails
	_ = json.Unmarshal(payload, &body)
	if len(body.Errors) == 0 && json.Unmarshal(payload, &problem) == nil && problem.Title != "" {
		return classifyProblem(status, collection, &problem)
	}

	msg := body.message()
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", store.ErrNotFound, msg)
	case status == http.StatusBadRequest:
		return &store.ValidationError{Collection: collection, Errors: body.fieldErrors()}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", store.ErrUnauthorized, msg)
	case status >= 500:
		return fmt.Errorf("%w: status %d: %s", store.ErrServer, status, msg)
	default:
		return fmt.Errorf("unexpected status %d: %s", status, msg)
	}
}

func classifyProblem(status int, collection string, p *model.ProblemDetails) error {
	if p.Status == 0 {
		p.Status = status
	}
	switch {
	case status == http.StatusNotFound:
		return errors.Join(store.ErrNotFound, p)
	case status == http.StatusBadRequest:
		errs := p.Errors
		if len(errs) == 0 {
			errs = []model.FieldError{{Message: p.Detail}}
		}
		return &store.ValidationError{Collection: collection, Errors: errs}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.Join(store.ErrUnauthorized, p)
	case status >= 500:
		return errors.Join(store.ErrServer, p)
	default:
		return p
	}
}
