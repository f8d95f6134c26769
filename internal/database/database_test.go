package database

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfig_Endpoint(t *testing.T) {
	t.Parallel()

	cfg := Config{Host: "localhost", Port: "8000"}
	if got := cfg.Endpoint(); got != "ws://localhost:8000" {
		t.Errorf("expected ws://localhost:8000, got %s", got)
	}

	cfg.URL = "wss://db.example.com/rpc"
	if got := cfg.Endpoint(); got != "wss://db.example.com/rpc" {
		t.Errorf("expected URL override, got %s", got)
	}
}

// ============================================================================
// Result Helper Tests
// ============================================================================

func TestRecords_UnwrapsStatements(t *testing.T) {
	t.Parallel()

	results := []interface{}{
		map[string]interface{}{"status": "OK", "result": []interface{}{
			map[string]interface{}{"title": "a"},
			map[string]interface{}{"title": "b"},
		}},
		map[string]interface{}{"status": "OK", "result": map[string]interface{}{"count": 2}},
	}

	first := Records(results, 0)
	if len(first) != 2 || first[1]["title"] != "b" {
		t.Errorf("unexpected first statement records: %v", first)
	}

	last := LastRecords(results)
	if len(last) != 1 || last[0]["count"] != 2 {
		t.Errorf("unexpected last statement records: %v", last)
	}

	if got := Records(results, 5); got != nil {
		t.Errorf("expected nil for missing statement, got %v", got)
	}
	if got := LastRecords(nil); got != nil {
		t.Errorf("expected nil for empty results, got %v", got)
	}
}

func TestRecords_EmptyResult(t *testing.T) {
	t.Parallel()

	results := []interface{}{map[string]interface{}{"status": "OK", "result": []interface{}{}}}
	if got := Records(results, 0); len(got) != 0 {
		t.Errorf("expected no records, got %v", got)
	}
}

func TestIsDuplicate(t *testing.T) {
	t.Parallel()

	if !IsDuplicate(fmt.Errorf("%w: x", ErrDuplicate)) {
		t.Error("expected wrapped ErrDuplicate to be a duplicate")
	}
	if !IsDuplicate(errors.New("Database record `posts:abc` already exists")) {
		t.Error("expected already-exists message to be a duplicate")
	}
	if IsDuplicate(errors.New("parse error")) || IsDuplicate(nil) {
		t.Error("unexpected duplicate classification")
	}
}
