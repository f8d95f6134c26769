package fixtures

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/forgo/admin-e2e/internal/model"
	"github.com/forgo/admin-e2e/internal/store"
)

// Fixture defaults
const (
	PostsCollection = "posts"
	UsersCollection = "users"

	// DefaultPageSize is how many documents one ClearCollection pass fetches
	DefaultPageSize = 100

	// HashField holds the bcrypt hash of a seeded user's password
	HashField = "hash"
)

// PostDefaults are the field values every seeded post starts from
var PostDefaults = model.Fields{
	model.FieldTitle:       "title",
	model.FieldDescription: "description",
}

// Controller creates and clears documents through a store client
type Controller struct {
	client      store.Client
	logger      *slog.Logger
	concurrency int
	hashCost    int
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithConcurrency bounds the number of in-flight store calls per batch.
// Zero or less means unbounded.
func WithConcurrency(n int) Option {
	return func(c *Controller) { c.concurrency = n }
}

// WithHashCost sets the bcrypt cost used by SeedUser
func WithHashCost(cost int) Option {
	return func(c *Controller) { c.hashCost = cost }
}

// New creates a fixture controller
func New(client store.Client, opts ...Option) *Controller {
	c := &Controller{
		client:   client,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Client returns the underlying store client
func (c *Controller) Client() store.Client {
	return c.client
}

// CreateDocument inserts fields merged with overrides and returns the stored
// document with its assigned identity
func (c *Controller) CreateDocument(ctx context.Context, collection string, fields, overrides model.Fields) (*model.Document, error) {
	doc, err := c.client.Create(ctx, collection, fields.Merge(overrides))
	if err != nil {
		return nil, fmt.Errorf("fixtures: create %s: %w", collection, err)
	}
	c.logger.Debug("created document",
		slog.String("collection", collection),
		slog.String("id", doc.ID),
	)
	return doc, nil
}

// CreateDocuments creates n documents from fields concurrently. Results are
// in slot order, so docs[i] is the i-th create.
func (c *Controller) CreateDocuments(ctx context.Context, collection string, n int, fields model.Fields) ([]*model.Document, error) {
	if n <= 0 {
		return nil, nil
	}

	docs := make([]*model.Document, n)
	errs := make([]error, n)

	g := c.group()
	for i := 0; i < n; i++ {
		g.Go(func() error {
			docs[i], errs[i] = c.CreateDocument(ctx, collection, fields, nil)
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return docs, nil
}

// ClearCollection fetches up to pageSize documents and deletes each of them
// concurrently, returning once every delete has finished. It reports how
// many were deleted; an empty collection is a no-op.
func (c *Controller) ClearCollection(ctx context.Context, collection string, pageSize int) (int, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	res, err := c.client.Find(ctx, collection, model.FindOptions{Limit: pageSize})
	if err != nil {
		return 0, fmt.Errorf("fixtures: list %s: %w", collection, err)
	}
	if len(res.Docs) == 0 {
		return 0, nil
	}

	var deleted atomic.Int64
	errs := make([]error, len(res.Docs))

	g := c.group()
	for i, doc := range res.Docs {
		g.Go(func() error {
			if err := c.client.Delete(ctx, collection, doc.ID); err != nil {
				errs[i] = fmt.Errorf("fixtures: delete %s/%s: %w", collection, doc.ID, err)
				return nil
			}
			deleted.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	n := int(deleted.Load())
	c.logger.Debug("cleared collection",
		slog.String("collection", collection),
		slog.Int("deleted", n),
		slog.Int("total", res.TotalDocs),
	)
	return n, errors.Join(errs...)
}

// DrainCollection repeats ClearCollection until a pass deletes nothing,
// leaving the collection empty however many pages it held
func (c *Controller) DrainCollection(ctx context.Context, collection string, pageSize int) (int, error) {
	total := 0
	for {
		n, err := c.ClearCollection(ctx, collection, pageSize)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
}

// SeedUser stores a user document carrying a bcrypt hash of password
func (c *Controller) SeedUser(ctx context.Context, collection, email, password string) (*model.Document, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.hashCost)
	if err != nil {
		return nil, fmt.Errorf("fixtures: hash password: %w", err)
	}
	return c.CreateDocument(ctx, collection, model.Fields{
		"email":   email,
		HashField: string(hash),
	}, nil)
}

func (c *Controller) group() *errgroup.Group {
	g := &errgroup.Group{}
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	return g
}

// ============================================================================
// Test Helpers
// ============================================================================

// ctx returns a context with timeout bound to the test
func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

// MustCreatePost creates a post from PostDefaults and overrides
func (c *Controller) MustCreatePost(t *testing.T, overrides model.Fields) *model.Document {
	t.Helper()
	doc, err := c.CreateDocument(ctx(t), PostsCollection, PostDefaults, overrides)
	if err != nil {
		t.Fatalf("fixtures: failed to create post: %v", err)
	}
	return doc
}

// MustCreatePosts creates n posts from PostDefaults
func (c *Controller) MustCreatePosts(t *testing.T, n int) []*model.Document {
	t.Helper()
	docs, err := c.CreateDocuments(ctx(t), PostsCollection, n, PostDefaults)
	if err != nil {
		t.Fatalf("fixtures: failed to create %d posts: %v", n, err)
	}
	return docs
}

// MustDrain empties collection
func (c *Controller) MustDrain(t *testing.T, collection string) {
	t.Helper()
	if _, err := c.DrainCollection(ctx(t), collection, DefaultPageSize); err != nil {
		t.Fatalf("fixtures: failed to drain %s: %v", collection, err)
	}
}
