package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/forgo/admin-e2e/internal/model"
)

// Memory is an isolated in-memory document store. Each instance is its own
// disposable database, so tests that create one per run never observe
// documents from another run.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]*memRecord
	globals     map[string]*model.Document
	required    map[string][]string
	seq         int64
	newID       func() string
	now         func() time.Time
}

type memRecord struct {
	doc *model.Document
	seq int64
}

// MemoryOption customizes a Memory store
type MemoryOption func(*Memory)

// WithIDFunc overrides identity generation
func WithIDFunc(fn func() string) MemoryOption {
	return func(m *Memory) { m.newID = fn }
}

// WithClock overrides the timestamp source
func WithClock(fn func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = fn }
}

// WithRequiredFields makes writes to collection fail validation when any of
// the named fields is missing or empty
func WithRequiredFields(collection string, fields ...string) MemoryOption {
	return func(m *Memory) { m.required[collection] = fields }
}

// NewMemory creates an empty in-memory store
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		collections: make(map[string]map[string]*memRecord),
		globals:     make(map[string]*model.Document),
		required:    make(map[string][]string),
		newID:       NewDocumentID,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) validate(collection string, data model.Fields, partial bool) error {
	var errs []model.FieldError
	for _, f := range m.required[collection] {
		v, present := data[f]
		if partial && !present {
			continue
		}
		if v == nil || data.String(f) == "" {
			errs = append(errs, model.FieldError{Field: f, Message: "is required"})
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Collection: collection, Errors: errs}
	}
	return nil
}

// Create inserts a document
func (m *Memory) Create(ctx context.Context, collection string, data model.Fields) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateName("collection", collection); err != nil {
		return nil, err
	}
	if err := m.validate(collection, data, false); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	doc := &model.Document{
		ID:        m.newID(),
		Fields:    data.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if id := data.String(model.FieldID); id != "" {
		doc.ID = id
		delete(doc.Fields, model.FieldID)
	}

	col, ok := m.collections[collection]
	if !ok {
		col = make(map[string]*memRecord)
		m.collections[collection] = col
	}
	if _, exists := col[doc.ID]; exists {
		return nil, &ValidationError{Collection: collection, Errors: []model.FieldError{{Field: model.FieldID, Message: "already exists"}}}
	}
	m.seq++
	col[doc.ID] = &memRecord{doc: doc, seq: m.seq}
	return doc.Clone(), nil
}

// Find returns one page of matching documents, newest first unless
// opts.Sort says otherwise
func (m *Memory) Find(ctx context.Context, collection string, opts model.FindOptions) (*model.FindResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = opts.Normalize()

	m.mu.RLock()
	records := make([]*memRecord, 0, len(m.collections[collection]))
	for _, r := range m.collections[collection] {
		if matchAll(r.doc, opts.Where) {
			records = append(records, r)
		}
	}
	m.mu.RUnlock()

	field, desc := opts.SortField()
	sort.SliceStable(records, func(i, j int) bool {
		if field == "" {
			return records[i].seq > records[j].seq
		}
		a, b := records[i].doc.Get(field), records[j].doc.Get(field)
		if a == b {
			return records[i].seq < records[j].seq
		}
		if desc {
			return a > b
		}
		return a < b
	})

	total := len(records)
	start := opts.Offset()
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}

	docs := make([]*model.Document, 0, end-start)
	for _, r := range records[start:end] {
		docs = append(docs, r.doc.Clone())
	}
	return model.NewFindResult(docs, total, opts), nil
}

func matchAll(doc *model.Document, where []model.Where) bool {
	for _, w := range where {
		if !w.Match(doc) {
			return false
		}
	}
	return true
}

// FindByID returns a single document
func (m *Memory) FindByID(ctx context.Context, collection, id string) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.collections[collection][id]
	if !ok {
		return nil, NotFound(collection, id)
	}
	return r.doc.Clone(), nil
}

// Update merges data into an existing document
func (m *Memory) Update(ctx context.Context, collection, id string, data model.Fields) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.validate(collection, data, true); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.collections[collection][id]
	if !ok {
		return nil, NotFound(collection, id)
	}
	updated := r.doc.Clone()
	updated.Fields = updated.Fields.Merge(data)
	delete(updated.Fields, model.FieldID)
	updated.UpdatedAt = m.now()
	r.doc = updated
	return updated.Clone(), nil
}

// Delete removes a document
func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	col := m.collections[collection]
	if _, ok := col[id]; !ok {
		return NotFound(collection, id)
	}
	delete(col, id)
	return nil
}

// FindGlobal returns the singleton document for slug
func (m *Memory) FindGlobal(ctx context.Context, slug string) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if doc, ok := m.globals[slug]; ok {
		return doc.Clone(), nil
	}
	return &model.Document{Fields: model.Fields{}}, nil
}

// UpdateGlobal merges data into the singleton document for slug
func (m *Memory) UpdateGlobal(ctx context.Context, slug string, data model.Fields) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateName("global", slug); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	doc, ok := m.globals[slug]
	if !ok {
		doc = &model.Document{Fields: model.Fields{}, CreatedAt: now}
	}
	updated := doc.Clone()
	updated.Fields = updated.Fields.Merge(data)
	updated.UpdatedAt = now
	m.globals[slug] = updated
	return updated.Clone(), nil
}

// Count returns the number of documents in a collection
func (m *Memory) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}
