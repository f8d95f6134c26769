// Package config manages configuration for the admin end-to-end runner.
//
// Configuration is loaded from environment variables. An optional HuJSON
// file (JSON with comments and trailing commas) supplies the defaults that
// environment variables then override:
//
//	cfg, err := config.Load("e2e.jsonc")
//	if err != nil { ... }
//	if err := cfg.Validate(); err != nil { ... }
//
// # Configuration Groups
//
//   - AdminConfig: the admin under test (server URL, collection, credentials)
//   - BrowserConfig: driver selection and browser tuning
//   - StoreConfig, DatabaseConfig: the backend fixtures are written to
//   - RunConfig: assertion timeout and the failure artifacts directory
//
// # Environment Variables
//
//	ADMIN_SERVER_URL  - admin server root (default: http://localhost:3000)
//	ADMIN_COLLECTION  - collection slug under test (default: posts)
//	ADMIN_GLOBAL      - global slug (default: global)
//	ADMIN_EMAIL       - login email
//	ADMIN_PASSWORD    - login password
//	BROWSER_DRIVER    - chrome, playwright, html or fake
//	STORE_KIND        - rest, surreal, postgres or memory
//	STORE_URL         - server whose /api the rest store uses (default: ADMIN_SERVER_URL)
//	DATABASE_URL      - Postgres connection string
//	DB_HOST, DB_PORT  - SurrealDB endpoint
//	EXPECT_TIMEOUT    - per-assertion timeout (default: 10s)
//	ARTIFACTS_DIR     - where failure snapshots are written
package config
