package model

import (
	"fmt"
	"strings"
)

// Operator is a where-clause comparison
type Operator string

const (
	OpEquals    Operator = "equals"
	OpNotEquals Operator = "not_equals"
	OpContains  Operator = "contains"
	OpLike      Operator = "like"
)

// IsValid returns true if the operator is supported
func (o Operator) IsValid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpContains, OpLike:
		return true
	default:
		return false
	}
}

// Where is a single filter condition on one field
type Where struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// Match reports whether the document satisfies the condition.
// contains and like are case-insensitive substring matches.
func (w Where) Match(doc *Document) bool {
	got := doc.Get(w.Field)
	switch w.Operator {
	case OpEquals:
		return got == w.Value
	case OpNotEquals:
		return got != w.Value
	case OpContains, OpLike:
		return strings.Contains(strings.ToLower(got), strings.ToLower(w.Value))
	default:
		return false
	}
}

// Pagination defaults
const (
	DefaultLimit = 10
	MaxLimit     = 1000
)

// FindOptions describes a list query against a collection
type FindOptions struct {
	Limit int
	Page  int
	// Sort is a field name, prefixed with "-" for descending order
	Sort  string
	Where []Where
}

// Normalize fills in defaults and clamps the paging values
func (o FindOptions) Normalize() FindOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if o.Page <= 0 {
		o.Page = 1
	}
	return o
}

// Offset returns the number of documents skipped before the page
func (o FindOptions) Offset() int {
	n := o.Normalize()
	return (n.Page - 1) * n.Limit
}

// SortField splits Sort into the field name and direction
func (o FindOptions) SortField() (field string, desc bool) {
	if strings.HasPrefix(o.Sort, "-") {
		return strings.TrimPrefix(o.Sort, "-"), true
	}
	return o.Sort, false
}

// FindResult is one page of a list query
type FindResult struct {
	Docs        []*Document `json:"docs"`
	TotalDocs   int         `json:"totalDocs"`
	Limit       int         `json:"limit"`
	Page        int         `json:"page"`
	TotalPages  int         `json:"totalPages"`
	HasPrevPage bool        `json:"hasPrevPage"`
	HasNextPage bool        `json:"hasNextPage"`
}

// NewFindResult builds the pagination totals for a page of docs
func NewFindResult(docs []*Document, total int, opts FindOptions) *FindResult {
	opts = opts.Normalize()
	pages := (total + opts.Limit - 1) / opts.Limit
	if pages == 0 {
		pages = 1
	}
	return &FindResult{
		Docs:        docs,
		TotalDocs:   total,
		Limit:       opts.Limit,
		Page:        opts.Page,
		TotalPages:  pages,
		HasPrevPage: opts.Page > 1,
		HasNextPage: opts.Page < pages,
	}
}

// IDs returns the identities of the documents on the page
func (r *FindResult) IDs() []string {
	ids := make([]string, 0, len(r.Docs))
	for _, d := range r.Docs {
		ids = append(ids, d.ID)
	}
	return ids
}

// PageInfo renders the list view range label, e.g. "1-10 of 11"
func (r *FindResult) PageInfo() string {
	if len(r.Docs) == 0 {
		return fmt.Sprintf("0 of %d", r.TotalDocs)
	}
	first := (r.Page-1)*r.Limit + 1
	last := first + len(r.Docs) - 1
	return fmt.Sprintf("%d-%d of %d", first, last, r.TotalDocs)
}
