package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Standard errors for database operations.
// Use errors.Is() to check these error types in calling code.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a record with the same id already exists.
	ErrDuplicate = errors.New("duplicate record")

	// ErrConnection indicates a failure to connect to or communicate with the database.
	ErrConnection = errors.New("database connection error")

	// ErrQuery indicates a query execution failure (syntax error, invalid reference, etc.).
	ErrQuery = errors.New("query error")
)

// Database defines the interface for database operations
type Database interface {
	// Connection management
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error

	// Query executes a query and returns one entry per statement
	Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error)

	// QueryOne executes a query and returns the first record of the first statement
	QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error)

	// Execute runs a query without returning results (for mutations)
	Execute(ctx context.Context, query string, vars map[string]interface{}) error
}

// Config holds database configuration
type Config struct {
	// URL overrides Host and Port, e.g. wss://db.example.com/rpc
	URL       string
	Host      string
	Port      string
	User      string
	Password  string
	Namespace string
	Database  string
}

// Endpoint returns the websocket endpoint to dial
func (c Config) Endpoint() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("ws://%s:%s", c.Host, c.Port)
}

// Records returns the records of the statement at index stmt, or nil when
// the statement returned nothing
func Records(results []interface{}, stmt int) []map[string]interface{} {
	if stmt < 0 || stmt >= len(results) {
		return nil
	}
	var data interface{} = results[stmt]
	if resp, ok := data.(map[string]interface{}); ok {
		if _, wrapped := resp["status"]; wrapped {
			data = resp["result"]
		}
	}

	switch v := data.(type) {
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]interface{}:
		return []map[string]interface{}{v}
	}
	return nil
}

// LastRecords returns the records of the final statement
func LastRecords(results []interface{}) []map[string]interface{} {
	return Records(results, len(results)-1)
}

// IsDuplicate reports whether err came from creating a record whose id
// already exists
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) {
		return true
	}
	return isDuplicateMessage(err.Error())
}

func isDuplicateMessage(msg string) bool {
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate")
}
