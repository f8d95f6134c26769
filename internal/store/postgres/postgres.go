// Package postgres implements store.Client on PostgreSQL, holding each
// document as a jsonb row keyed by collection and id.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgo/admin-e2e/internal/model"
	"github.com/forgo/admin-e2e/internal/store"
)

// Store persists documents in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Postgres-backed store over an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects to databaseURL and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrConnection, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", store.ErrConnection, err)
	}
	return New(pool), nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// EnsureSchema creates the document tables when they do not already exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	schema := []string{`
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`, `
CREATE TABLE IF NOT EXISTS globals (
	slug       TEXT PRIMARY KEY,
	data       JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`}
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return classify(err)
		}
	}
	return nil
}

const documentColumns = `id, data, created_at, updated_at`

// Create inserts a document
func (s *Store) Create(ctx context.Context, collection string, data model.Fields) (*model.Document, error) {
	if err := store.ValidateName("collection", collection); err != nil {
		return nil, err
	}
	fields := data.Clone()
	id := fields.String(model.FieldID)
	if id == "" {
		id = store.NewDocumentID()
	}
	delete(fields, model.FieldID)

	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	const query = `
INSERT INTO documents (collection, id, data)
VALUES ($1, $2, $3::jsonb)
RETURNING ` + documentColumns

	doc, err := scanDocument(s.pool.QueryRow(ctx, query, collection, id, payload))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &store.ValidationError{Collection: collection, Errors: []model.FieldError{{Field: model.FieldID, Message: "already exists"}}}
		}
		return nil, fmt.Errorf("create %s: %w", collection, classify(err))
	}
	return doc, nil
}

// Find returns one page of matching documents, newest first unless
// opts.Sort says otherwise
func (s *Store) Find(ctx context.Context, collection string, opts model.FindOptions) (*model.FindResult, error) {
	opts = opts.Normalize()

	where, args, err := buildWhere(collection, opts.Where)
	if err != nil {
		return nil, err
	}
	order, err := buildOrder(opts.Sort)
	if err != nil {
		return nil, err
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM documents WHERE `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count %s: %w", collection, classify(err))
	}

	query := fmt.Sprintf(`SELECT %s FROM documents WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		documentColumns, where, order, opts.Limit, opts.Offset())
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, classify(err))
	}
	defer rows.Close()

	docs := make([]*model.Document, 0, opts.Limit)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", collection, classify(err))
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, classify(err))
	}
	return model.NewFindResult(docs, total, opts), nil
}

// FindByID returns a single document
func (s *Store) FindByID(ctx context.Context, collection, id string) (*model.Document, error) {
	const query = `SELECT ` + documentColumns + ` FROM documents WHERE collection = $1 AND id = $2`
	doc, err := scanDocument(s.pool.QueryRow(ctx, query, collection, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.NotFound(collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", collection, id, classify(err))
	}
	return doc, nil
}

// Update merges data into an existing document
func (s *Store) Update(ctx context.Context, collection, id string, data model.Fields) (*model.Document, error) {
	fields := data.Clone()
	delete(fields, model.FieldID)
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	const query = `
UPDATE documents
SET data = data || $3::jsonb, updated_at = now()
WHERE collection = $1 AND id = $2
RETURNING ` + documentColumns

	doc, err := scanDocument(s.pool.QueryRow(ctx, query, collection, id, payload))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.NotFound(collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, classify(err))
	}
	return doc, nil
}

// Delete removes a document
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, classify(err))
	}
	if tag.RowsAffected() == 0 {
		return store.NotFound(collection, id)
	}
	return nil
}

// FindGlobal returns the singleton document for slug
func (s *Store) FindGlobal(ctx context.Context, slug string) (*model.Document, error) {
	const query = `SELECT slug, data, created_at, updated_at FROM globals WHERE slug = $1`
	doc, err := scanDocument(s.pool.QueryRow(ctx, query, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return &model.Document{Fields: model.Fields{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find global %s: %w", slug, classify(err))
	}
	doc.ID = ""
	return doc, nil
}

// UpdateGlobal merges data into the singleton document for slug
func (s *Store) UpdateGlobal(ctx context.Context, slug string, data model.Fields) (*model.Document, error) {
	if err := store.ValidateName("global", slug); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode global: %w", err)
	}

	const query = `
INSERT INTO globals (slug, data)
VALUES ($1, $2::jsonb)
ON CONFLICT (slug) DO UPDATE
SET data = globals.data || EXCLUDED.data, updated_at = now()
RETURNING slug, data, created_at, updated_at`

	doc, err := scanDocument(s.pool.QueryRow(ctx, query, slug, payload))
	if err != nil {
		return nil, fmt.Errorf("update global %s: %w", slug, classify(err))
	}
	doc.ID = ""
	return doc, nil
}

func scanDocument(row pgx.Row) (*model.Document, error) {
	var (
		id        string
		raw       []byte
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &raw, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	fields := model.Fields{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", id, err)
		}
	}
	return &model.Document{ID: id, Fields: fields, CreatedAt: createdAt, UpdatedAt: updatedAt}, nil
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// column returns the SQL expression for a document field. Values are
// compared as text.
func column(field string) (string, error) {
	switch field {
	case model.FieldID:
		return "id", nil
	case model.FieldCreatedAt:
		return "created_at", nil
	case model.FieldUpdatedAt:
		return "updated_at", nil
	}
	if !fieldName.MatchString(field) {
		return "", &store.ValidationError{Errors: []model.FieldError{{Field: field, Message: "invalid field name"}}}
	}
	return "data->>'" + field + "'", nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildWhere renders the filter conditions as a parameterized clause. $1 is
// always the collection.
func buildWhere(collection string, conds []model.Where) (string, []any, error) {
	clauses := []string{"collection = $1"}
	args := []any{collection}
	for _, w := range conds {
		col, err := column(w.Field)
		if err != nil {
			return "", nil, err
		}
		if w.Field == model.FieldCreatedAt || w.Field == model.FieldUpdatedAt {
			col += "::text"
		}
		n := len(args) + 1
		switch w.Operator {
		case model.OpEquals:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", col, n))
			args = append(args, w.Value)
		case model.OpNotEquals:
			clauses = append(clauses, fmt.Sprintf("%s IS DISTINCT FROM $%d", col, n))
			args = append(args, w.Value)
		case model.OpContains, model.OpLike:
			clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", col, n))
			args = append(args, "%"+likeEscaper.Replace(w.Value)+"%")
		default:
			return "", nil, &store.ValidationError{Errors: []model.FieldError{{Field: w.Field, Message: fmt.Sprintf("unsupported operator %q", w.Operator)}}}
		}
	}
	return strings.Join(clauses, " AND "), args, nil
}

func buildOrder(sort string) (string, error) {
	if sort == "" {
		return "created_at DESC, id DESC", nil
	}
	field, desc := model.FindOptions{Sort: sort}.SortField()
	col, err := column(field)
	if err != nil {
		return "", err
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	if col == "id" {
		return "id " + dir, nil
	}
	return fmt.Sprintf("%s %s, id %s", col, dir, dir), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// classify marks failures that never reached the server as connection errors
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%w: %s", store.ErrServer, pgErr.Message)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", store.ErrConnection, err)
	}
	return err
}
