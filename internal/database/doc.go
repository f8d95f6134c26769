// Package database provides SurrealDB connectivity for the document store.
//
// # Database Interface
//
// The Database interface defines core operations:
//
//	type Database interface {
//	    Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error)
//	    QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error)
//	    Execute(ctx context.Context, query string, vars map[string]interface{}) error
//	    Close() error
//	}
//
// # Connection Management
//
// Connect to SurrealDB:
//
//	db := database.NewSurrealDB(database.Config{
//	    Host:      "localhost",
//	    Port:      "8000",
//	    Namespace: "admin",
//	    Database:  "e2e",
//	    User:      "root",
//	    Password:  "root",
//	})
//	err := db.Connect(ctx)
//
// # Error Types
//
//   - ErrNotFound: Record does not exist
//   - ErrDuplicate: Record id already taken
//   - ErrConnection: Database connection failed
//   - ErrQuery: Statement failed
//
// # Result Helpers
//
// Query returns one {status, result} entry per statement. Records and
// LastRecords unwrap those entries into record maps.
package database
