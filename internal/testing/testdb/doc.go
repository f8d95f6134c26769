// Package testdb provides isolated SurrealDB databases for tests.
//
// # Test Database Setup
//
//	func TestSomething(t *testing.T) {
//	    tdb := testdb.New(t) // skips when no SurrealDB is reachable
//	    defer tdb.Close()
//
//	    repo := repository.NewDocumentRepository(tdb.DB)
//	}
//
// # Isolation
//
// Each test gets its own namespace, removed again on Close:
//
//	func TestA(t *testing.T) {
//	    tdb := testdb.New(t) // namespace: test_1718000000000000000_1
//	}
//
// Connection settings come from TEST_DB_URL or TEST_DB_HOST/TEST_DB_PORT,
// and TEST_DB_USER/TEST_DB_PASSWORD. Set TEST_DB_REQUIRED=true to fail
// instead of skip when the database is down.
//
// # Shared Database
//
// For subtests that share one namespace:
//
//	tdb := testdb.NewShared(t)
//	t.Run("create", func(t *testing.T) { db := tdb.SetupSubtest(t) ... })
package testdb
