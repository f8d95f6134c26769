package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/forgo/admin-e2e/internal/database"
	"github.com/forgo/admin-e2e/internal/model"
	"github.com/forgo/admin-e2e/internal/store"
)

// GlobalsTable holds one record per global slug
const GlobalsTable = "globals"

// DocumentRepository handles document data access
type DocumentRepository struct {
	db  database.Database
	now func() time.Time
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db database.Database) *DocumentRepository {
	return &DocumentRepository{db: db, now: time.Now}
}

func (r *DocumentRepository) timestamp() models.CustomDateTime {
	return models.CustomDateTime{Time: r.now().UTC()}
}

// Create creates a new document
func (r *DocumentRepository) Create(ctx context.Context, collection string, data model.Fields) (*model.Document, error) {
	if err := store.ValidateName("collection", collection); err != nil {
		return nil, err
	}

	id := data.String(model.FieldID)
	if id == "" {
		id = store.NewDocumentID()
	}
	content := map[string]interface{}(writableFields(data))
	now := r.timestamp()
	content[model.FieldCreatedAt] = now
	content[model.FieldUpdatedAt] = now

	query := `CREATE type::thing($collection, $id) CONTENT $data`
	vars := map[string]interface{}{
		"collection": collection,
		"id":         id,
		"data":       content,
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, &store.ValidationError{Collection: collection, Errors: []model.FieldError{{Field: model.FieldID, Message: "already exists"}}}
		}
		return nil, fmt.Errorf("create %s: %w", collection, translate(err))
	}

	records := database.Records(result, 0)
	if len(records) == 0 {
		return nil, fmt.Errorf("create %s: %w: no record returned", collection, store.ErrServer)
	}
	return parseDocument(records[0]), nil
}

// Find lists one page of a collection
func (r *DocumentRepository) Find(ctx context.Context, collection string, opts model.FindOptions) (*model.FindResult, error) {
	opts = opts.Normalize()

	where, vars, err := buildWhere(opts.Where)
	if err != nil {
		return nil, err
	}
	order, err := buildOrder(opts.Sort)
	if err != nil {
		return nil, err
	}
	vars["collection"] = collection

	query := fmt.Sprintf(`
		SELECT * FROM type::table($collection)%s ORDER BY %s LIMIT %d START %d;
		SELECT count() FROM type::table($collection)%s GROUP ALL;
	`, where, order, opts.Limit, opts.Offset(), where)

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, translate(err))
	}

	records := database.Records(result, 0)
	docs := make([]*model.Document, 0, len(records))
	for _, rec := range records {
		docs = append(docs, parseDocument(rec))
	}
	total := extractCount(database.Records(result, 1))
	return model.NewFindResult(docs, total, opts), nil
}

// FindByID retrieves a document by its id
func (r *DocumentRepository) FindByID(ctx context.Context, collection, id string) (*model.Document, error) {
	query := `SELECT * FROM type::thing($collection, $id)`
	vars := map[string]interface{}{"collection": collection, "id": id}

	result, err := r.db.QueryOne(ctx, query, vars)
	if errors.Is(err, database.ErrNotFound) {
		return nil, store.NotFound(collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", collection, id, translate(err))
	}

	rec, ok := result.(map[string]interface{})
	if !ok {
		return nil, store.NotFound(collection, id)
	}
	return parseDocument(rec), nil
}

// Update merges data into a document
func (r *DocumentRepository) Update(ctx context.Context, collection, id string, data model.Fields) (*model.Document, error) {
	content := map[string]interface{}(writableFields(data))
	content[model.FieldUpdatedAt] = r.timestamp()

	query := `UPDATE type::thing($collection, $id) MERGE $data`
	vars := map[string]interface{}{
		"collection": collection,
		"id":         id,
		"data":       content,
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, translate(err))
	}
	records := database.Records(result, 0)
	if len(records) == 0 {
		return nil, store.NotFound(collection, id)
	}
	return parseDocument(records[0]), nil
}

// Delete deletes a document
func (r *DocumentRepository) Delete(ctx context.Context, collection, id string) error {
	query := `DELETE type::thing($collection, $id) RETURN BEFORE`
	vars := map[string]interface{}{"collection": collection, "id": id}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, translate(err))
	}
	if len(database.Records(result, 0)) == 0 {
		return store.NotFound(collection, id)
	}
	return nil
}

// FindGlobal retrieves the singleton document for slug
func (r *DocumentRepository) FindGlobal(ctx context.Context, slug string) (*model.Document, error) {
	query := `SELECT * FROM type::thing($table, $slug)`
	vars := map[string]interface{}{"table": GlobalsTable, "slug": slug}

	result, err := r.db.QueryOne(ctx, query, vars)
	if errors.Is(err, database.ErrNotFound) {
		return &model.Document{Fields: model.Fields{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find global %s: %w", slug, translate(err))
	}

	rec, ok := result.(map[string]interface{})
	if !ok {
		return &model.Document{Fields: model.Fields{}}, nil
	}
	doc := parseDocument(rec)
	doc.ID = ""
	return doc, nil
}

// UpdateGlobal merges data into the singleton document for slug
func (r *DocumentRepository) UpdateGlobal(ctx context.Context, slug string, data model.Fields) (*model.Document, error) {
	if err := store.ValidateName("global", slug); err != nil {
		return nil, err
	}
	content := map[string]interface{}(writableFields(data))
	content[model.FieldUpdatedAt] = r.timestamp()

	query := `UPSERT type::thing($table, $slug) MERGE $data`
	vars := map[string]interface{}{
		"table": GlobalsTable,
		"slug":  slug,
		"data":  content,
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, fmt.Errorf("update global %s: %w", slug, translate(err))
	}
	records := database.Records(result, 0)
	if len(records) == 0 {
		return nil, fmt.Errorf("update global %s: %w: no record returned", slug, store.ErrServer)
	}
	doc := parseDocument(records[0])
	doc.ID = ""
	return doc, nil
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// fieldExpr returns the SurrealQL expression for a document field
func fieldExpr(field string) (string, error) {
	if field == model.FieldID {
		return "record::id(id)", nil
	}
	if !fieldName.MatchString(field) {
		return "", &store.ValidationError{Errors: []model.FieldError{{Field: field, Message: "invalid field name"}}}
	}
	return field, nil
}

// buildWhere renders the filter conditions as a WHERE clause with $wN
// parameters
func buildWhere(conds []model.Where) (string, map[string]interface{}, error) {
	vars := make(map[string]interface{}, len(conds)+1)
	if len(conds) == 0 {
		return "", vars, nil
	}

	clauses := make([]string, 0, len(conds))
	for i, w := range conds {
		expr, err := fieldExpr(w.Field)
		if err != nil {
			return "", nil, err
		}
		param := fmt.Sprintf("w%d", i)
		vars[param] = w.Value
		switch w.Operator {
		case model.OpEquals:
			clauses = append(clauses, fmt.Sprintf("type::string(%s ?? '') = $%s", expr, param))
		case model.OpNotEquals:
			clauses = append(clauses, fmt.Sprintf("type::string(%s ?? '') != $%s", expr, param))
		case model.OpContains, model.OpLike:
			clauses = append(clauses, fmt.Sprintf("string::contains(string::lowercase(type::string(%s ?? '')), string::lowercase($%s))", expr, param))
		default:
			return "", nil, &store.ValidationError{Errors: []model.FieldError{{Field: w.Field, Message: fmt.Sprintf("unsupported operator %q", w.Operator)}}}
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), vars, nil
}

func buildOrder(sort string) (string, error) {
	if sort == "" {
		return model.FieldCreatedAt + " DESC", nil
	}
	field, desc := model.FindOptions{Sort: sort}.SortField()
	if field != model.FieldID && !fieldName.MatchString(field) {
		return "", &store.ValidationError{Errors: []model.FieldError{{Field: field, Message: "invalid sort field"}}}
	}
	if desc {
		return field + " DESC", nil
	}
	return field + " ASC", nil
}
