package repository

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/forgo/admin-e2e/internal/database"
	"github.com/forgo/admin-e2e/internal/model"
	"github.com/forgo/admin-e2e/internal/store"
)

// recordKey extracts the key part of a SurrealDB record id, without the
// table prefix
func recordKey(id interface{}) string {
	switch v := id.(type) {
	case string:
		return trimTable(v)
	case models.RecordID:
		return fmt.Sprint(v.ID)
	case *models.RecordID:
		if v != nil {
			return fmt.Sprint(v.ID)
		}
	case map[string]interface{}:
		// Handle {"tb": "table", "id": "xxx"} format
		if key, ok := v["id"]; ok {
			return fmt.Sprint(key)
		}
	}
	return ""
}

var tablePrefix = regexp.MustCompile("^[A-Za-z0-9_]+:")

// trimTable strips "table:" and the ⟨⟩ or backtick quoting SurrealDB puts
// around complex keys
func trimTable(s string) string {
	s = tablePrefix.ReplaceAllString(s, "")
	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		return s[1 : len(s)-1]
	}
	if r := []rune(s); len(r) >= 2 && r[0] == '⟨' && r[len(r)-1] == '⟩' {
		return string(r[1 : len(r)-1])
	}
	return s
}

// parseTime parses time from various formats
func parseTime(v interface{}) time.Time {
	switch t := v.(type) {
	case models.CustomDateTime:
		return t.Time
	case *models.CustomDateTime:
		if t != nil {
			return t.Time
		}
	}
	return model.ParseTime(v)
}

// parseDocument maps a record onto a Document
func parseDocument(rec map[string]interface{}) *model.Document {
	doc := &model.Document{Fields: make(model.Fields, len(rec))}
	for k, v := range rec {
		switch k {
		case model.FieldID:
			doc.ID = recordKey(v)
		case model.FieldCreatedAt:
			doc.CreatedAt = parseTime(v)
		case model.FieldUpdatedAt:
			doc.UpdatedAt = parseTime(v)
		default:
			doc.Fields[k] = plainValue(v)
		}
	}
	return doc
}

// plainValue converts SurrealDB wire types nested in field values to plain Go
// values
func plainValue(v interface{}) interface{} {
	switch t := v.(type) {
	case models.RecordID:
		return t.String()
	case *models.RecordID:
		if t != nil {
			return t.String()
		}
		return nil
	case models.CustomDateTime, *models.CustomDateTime:
		return parseTime(t)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, inner := range t {
			out[k] = plainValue(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, inner := range t {
			out[i] = plainValue(inner)
		}
		return out
	}
	return v
}

// extractCount extracts count from a `SELECT count() ... GROUP ALL` result
func extractCount(records []map[string]interface{}) int {
	if len(records) == 0 {
		return 0
	}
	return extractCountValue(records[0]["count"])
}

// extractCountValue converts various numeric types to int
func extractCountValue(v interface{}) int {
	switch c := v.(type) {
	case float64:
		return int(c)
	case float32:
		return int(c)
	case int:
		return c
	case int64:
		return int(c)
	case uint64:
		return int(c)
	case uint32:
		return int(c)
	case uint8:
		return int(c)
	}
	return 0
}

// writableFields drops the keys the store owns
func writableFields(data model.Fields) model.Fields {
	out := data.Clone()
	delete(out, model.FieldID)
	delete(out, model.FieldCreatedAt)
	delete(out, model.FieldUpdatedAt)
	return out
}

// translate maps database errors onto the store sentinels
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	case errors.Is(err, database.ErrConnection):
		return fmt.Errorf("%w: %v", store.ErrConnection, err)
	case errors.Is(err, database.ErrQuery):
		return fmt.Errorf("%w: %v", store.ErrServer, err)
	}
	return err
}
