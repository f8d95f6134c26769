package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tailscale/hujson"
)

// Drivers understood by the runner
const (
	DriverChrome     = "chrome"
	DriverPlaywright = "playwright"
	DriverHTML       = "html"
	DriverFake       = "fake"
)

// Stores understood by the runner
const (
	StoreREST     = "rest"
	StoreSurreal  = "surreal"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all runner configuration
type Config struct {
	Admin    AdminConfig
	Browser  BrowserConfig
	Store    StoreConfig
	Database DatabaseConfig
	Run      RunConfig
}

// AdminConfig describes the admin application under test
type AdminConfig struct {
	ServerURL      string
	Collection     string
	Global         string
	AuthCollection string
	Email          string
	Password       string
	PageSize       int
}

// BrowserConfig selects and tunes the browser driver
type BrowserConfig struct {
	Driver       string
	Headless     bool
	ExecPath     string
	SlowMo       time.Duration
	Timeout      time.Duration
	WindowWidth  int
	WindowHeight int
}

// StoreConfig selects the backend used for fixtures
type StoreConfig struct {
	Kind string
	// URL is the server whose /api the rest store talks to. Empty means
	// the admin server itself.
	URL   string
	Token string
	// PostgresURL is a pgx connection string
	PostgresURL string
}

// DatabaseConfig holds SurrealDB connection settings
type DatabaseConfig struct {
	URL       string
	Host      string
	Port      string
	Namespace string
	Database  string
	User      string
	Password  string
}

// RunConfig holds per-run settings
type RunConfig struct {
	ExpectTimeout time.Duration
	ArtifactsDir  string
}

// File is the optional HuJSON overlay. Empty values fall through to
// defaults; environment variables override it.
type File struct {
	ServerURL      string `json:"server_url"`
	Collection     string `json:"collection"`
	Global         string `json:"global"`
	AuthCollection string `json:"auth_collection"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	PageSize       int    `json:"page_size"`

	Driver   string `json:"driver"`
	Headless *bool  `json:"headless"`
	ExecPath string `json:"exec_path"`
	Timeout  string `json:"timeout"`

	Store       string `json:"store"`
	StoreURL    string `json:"store_url"`
	StoreToken  string `json:"store_token"`
	PostgresURL string `json:"postgres_url"`

	Surreal struct {
		URL       string `json:"url"`
		Namespace string `json:"namespace"`
		Database  string `json:"database"`
		User      string `json:"user"`
		Password  string `json:"password"`
	} `json:"surreal"`

	ExpectTimeout string `json:"expect_timeout"`
	ArtifactsDir  string `json:"artifacts_dir"`
}

// Load reads configuration from environment variables with sensible
// defaults. When path is set the HuJSON file at path supplies the defaults.
func Load(path string) (*Config, error) {
	var f File
	if path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		f = *loaded
	}

	timeout, err := fileDuration("timeout", f.Timeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	expectTimeout, err := fileDuration("expect_timeout", f.ExpectTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	headless := true
	if f.Headless != nil {
		headless = *f.Headless
	}

	serverURL := getEnv("ADMIN_SERVER_URL", or(f.ServerURL, "http://localhost:3000"))
	return &Config{
		Admin: AdminConfig{
			ServerURL:      serverURL,
			Collection:     getEnv("ADMIN_COLLECTION", or(f.Collection, "posts")),
			Global:         getEnv("ADMIN_GLOBAL", or(f.Global, "global")),
			AuthCollection: getEnv("ADMIN_AUTH_COLLECTION", or(f.AuthCollection, "users")),
			Email:          getEnv("ADMIN_EMAIL", or(f.Email, "dev@payloadcms.com")),
			Password:       getEnv("ADMIN_PASSWORD", or(f.Password, "test")),
			PageSize:       getIntEnv("ADMIN_PAGE_SIZE", orInt(f.PageSize, 10)),
		},
		Browser: BrowserConfig{
			Driver:       getEnv("BROWSER_DRIVER", or(f.Driver, DriverChrome)),
			Headless:     getBoolEnv("BROWSER_HEADLESS", headless),
			ExecPath:     getEnv("BROWSER_EXEC_PATH", f.ExecPath),
			SlowMo:       getDurationEnv("BROWSER_SLOW_MO", 0),
			Timeout:      getDurationEnv("BROWSER_TIMEOUT", timeout),
			WindowWidth:  getIntEnv("BROWSER_WINDOW_WIDTH", 1280),
			WindowHeight: getIntEnv("BROWSER_WINDOW_HEIGHT", 800),
		},
		Store: StoreConfig{
			Kind:        getEnv("STORE_KIND", or(f.Store, StoreREST)),
			URL:         getEnv("STORE_URL", f.StoreURL),
			Token:       getEnv("STORE_TOKEN", f.StoreToken),
			PostgresURL: getEnv("DATABASE_URL", f.PostgresURL),
		},
		Database: DatabaseConfig{
			URL:       getEnv("DB_URL", f.Surreal.URL),
			Host:      getEnv("DB_HOST", "localhost"),
			Port:      getEnv("DB_PORT", "8000"),
			Namespace: getEnv("DB_NAMESPACE", or(f.Surreal.Namespace, "admin")),
			Database:  getEnv("DB_DATABASE", or(f.Surreal.Database, "e2e")),
			User:      getEnv("DB_USER", or(f.Surreal.User, "root")),
			Password:  getEnv("DB_PASSWORD", or(f.Surreal.Password, "root")),
		},
		Run: RunConfig{
			ExpectTimeout: getDurationEnv("EXPECT_TIMEOUT", expectTimeout),
			ArtifactsDir:  getEnv("ARTIFACTS_DIR", f.ArtifactsDir),
		},
	}, nil
}

// LoadFile parses a HuJSON (JSON with comments and trailing commas) file
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	f, err := ParseFile(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return f, nil
}

// ParseFile parses HuJSON config data
func ParseFile(data []byte) (*File, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONC: %w", err)
	}
	var f File
	dec := json.NewDecoder(strings.NewReader(string(standardized)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return &f, nil
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	// Admin validation
	if u, err := url.Parse(c.Admin.ServerURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("ADMIN_SERVER_URL must be an absolute URL, got '%s'", c.Admin.ServerURL))
	}
	if c.Admin.Collection == "" {
		errs = append(errs, errors.New("ADMIN_COLLECTION is required"))
	}
	if c.Admin.Global == "" {
		errs = append(errs, errors.New("ADMIN_GLOBAL is required"))
	}
	if c.Admin.PageSize <= 0 {
		errs = append(errs, errors.New("ADMIN_PAGE_SIZE must be positive"))
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}

	// Browser validation
	switch c.Browser.Driver {
	case DriverChrome, DriverPlaywright, DriverHTML, DriverFake:
	default:
		errs = append(errs, fmt.Errorf("BROWSER_DRIVER must be one of chrome, playwright, html, fake; got '%s'", c.Browser.Driver))
	}
	if c.Browser.Timeout <= 0 {
		errs = append(errs, errors.New("BROWSER_TIMEOUT must be positive"))
	}
	if c.Run.ExpectTimeout <= 0 {
		errs = append(errs, errors.New("EXPECT_TIMEOUT must be positive"))
	}

	// Store validation
	switch c.Store.Kind {
	case StoreREST:
		if c.Store.URL != "" {
			if u, err := url.Parse(c.Store.URL); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, fmt.Errorf("STORE_URL must be an absolute URL, got '%s'", c.Store.URL))
			}
		}
	case StorePostgres:
		if c.Store.PostgresURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreSurreal:
		if c.Database.URL == "" && (c.Database.Host == "" || c.Database.Port == "") {
			errs = append(errs, errors.New("DB_URL or DB_HOST and DB_PORT are required for the surreal store"))
		}
		if c.Database.Namespace == "" {
			errs = append(errs, errors.New("DB_NAMESPACE is required"))
		}
		if c.Database.Database == "" {
			errs = append(errs, errors.New("DB_DATABASE is required"))
		}
	case StoreMemory:
		if c.Browser.Driver != DriverFake {
			errs = append(errs, errors.New("STORE_KIND 'memory' only works with the 'fake' driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_KIND must be 'rest', 'surreal', 'postgres', or 'memory', got '%s'", c.Store.Kind))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ValidateFixtures is Validate for the standalone fixtures command, which
// needs a store that outlives the process
func (c *Config) ValidateFixtures() error {
	if c.Store.Kind == StoreMemory {
		return errors.New("STORE_KIND 'memory' does not outlive the fixtures command; use rest, surreal, or postgres")
	}
	return c.Validate()
}

// Overrides are command line values that win over every other source
type Overrides struct {
	ServerURL    string
	Driver       string
	Store        string
	ArtifactsDir string
}

// Apply copies the non-empty overrides into c
func (c *Config) Apply(o Overrides) {
	c.Admin.ServerURL = or(o.ServerURL, c.Admin.ServerURL)
	c.Browser.Driver = or(o.Driver, c.Browser.Driver)
	c.Store.Kind = or(o.Store, c.Store.Kind)
	c.Run.ArtifactsDir = or(o.ArtifactsDir, c.Run.ArtifactsDir)
}

// StoreURL is the server root the rest store sends /api requests to
func (c *Config) StoreURL() string {
	return or(c.Store.URL, c.Admin.ServerURL)
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func or(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func orInt(value, fallback int) int {
	if value != 0 {
		return value
	}
	return fallback
}

func fileDuration(name, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config %s: %w", name, err)
	}
	return d, nil
}
