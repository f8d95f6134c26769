package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Well-known document field names
const (
	FieldID          = "id"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
)

// Fields holds collection-specific document values keyed by field name
type Fields map[string]any

// Merge returns a new Fields with the values of f overlaid by overrides.
// Neither input is modified.
func (f Fields) Merge(overrides Fields) Fields {
	out := make(Fields, len(f)+len(overrides))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy of f
func (f Fields) Clone() Fields {
	return Fields(nil).Merge(f)
}

// String returns the named field formatted as a string, or "" when unset
func (f Fields) String(name string) string {
	v, ok := f[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Document is a single record within a collection or global
type Document struct {
	ID        string
	Fields    Fields
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Title returns the document's title field
func (d *Document) Title() string {
	return d.Fields.String(FieldTitle)
}

// Description returns the document's description field
func (d *Document) Description() string {
	return d.Fields.String(FieldDescription)
}

// Get returns the named field as a string
func (d *Document) Get(name string) string {
	if name == FieldID {
		return d.ID
	}
	return d.Fields.String(name)
}

// Clone returns a copy of the document that shares no field map with d
func (d *Document) Clone() *Document {
	c := *d
	c.Fields = d.Fields.Clone()
	return &c
}

// MarshalJSON encodes the document with its fields flattened beside the id
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+3)
	for k, v := range d.Fields {
		out[k] = v
	}
	if d.ID != "" {
		out[FieldID] = d.ID
	}
	if !d.CreatedAt.IsZero() {
		out[FieldCreatedAt] = d.CreatedAt
	}
	if !d.UpdatedAt.IsZero() {
		out[FieldUpdatedAt] = d.UpdatedAt
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a flat document object
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = DocumentFromMap(raw)
	return nil
}

// DocumentFromMap builds a Document from a decoded record, pulling the
// identity and timestamps out of the field map
func DocumentFromMap(raw map[string]any) Document {
	doc := Document{Fields: make(Fields, len(raw))}
	for k, v := range raw {
		switch k {
		case FieldID, "_id":
			doc.ID = fmt.Sprint(v)
		case FieldCreatedAt:
			doc.CreatedAt = ParseTime(v)
		case FieldUpdatedAt:
			doc.UpdatedAt = ParseTime(v)
		default:
			doc.Fields[k] = v
		}
	}
	return doc
}

// ParseTime parses time from the formats the stores hand back
func ParseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t != nil {
			return *t
		}
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
