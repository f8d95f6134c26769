package runner

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/admin-e2e/internal/config"
	"github.com/forgo/admin-e2e/internal/harness"
	"github.com/forgo/admin-e2e/internal/model"
	"github.com/forgo/admin-e2e/internal/scenarios"
	"github.com/forgo/admin-e2e/internal/store"
	"github.com/forgo/admin-e2e/internal/testing/fakeadmin"
)

func fakeConfig() *config.Config {
	return &config.Config{
		Admin: config.AdminConfig{
			ServerURL:      "http://localhost:3000",
			Collection:     "posts",
			Global:         "global",
			AuthCollection: "users",
			Email:          "dev@payloadcms.com",
			Password:       "test",
			PageSize:       10,
		},
		Browser: config.BrowserConfig{Driver: config.DriverFake, Timeout: time.Second},
		Store:   config.StoreConfig{Kind: config.StoreMemory},
		Run:     config.RunConfig{ExpectTimeout: time.Second},
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ============================================================================
// Store
// ============================================================================

func TestOpenStore_Memory(t *testing.T) {
	t.Parallel()

	st, err := OpenStore(context.Background(), fakeConfig(), discard())
	require.NoError(t, err)
	defer st.Close()

	_, ok := st.Client.(*store.Memory)
	assert.True(t, ok)
	assert.NoError(t, st.Close())
}

func TestOpenStore_Unknown(t *testing.T) {
	t.Parallel()

	cfg := fakeConfig()
	cfg.Store.Kind = "mongo"
	_, err := OpenStore(context.Background(), cfg, discard())
	assert.ErrorContains(t, err, "mongo")
}

func TestOpenStore_RESTInvalidURL(t *testing.T) {
	t.Parallel()

	cfg := fakeConfig()
	cfg.Store.Kind = config.StoreREST
	cfg.Store.URL = "not a url"
	_, err := OpenStore(context.Background(), cfg, discard())
	assert.Error(t, err)
}

func TestOpenStore_RESTFromLoadedConfig(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/users/login":
			_, _ = w.Write([]byte(`{"token":"t0ken","user":{"id":"u1"}}`))
		case "/api/posts":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"doc":{"id":"p1","title":"title"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	httphelpers.WithServer(handler, func(server *httptest.Server) {
		t.Setenv("ADMIN_SERVER_URL", server.URL)
		t.Setenv("STORE_URL", "")
		t.Setenv("STORE_KIND", "")

		cfg, err := config.Load("")
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())

		st, err := OpenStore(context.Background(), cfg, discard())
		require.NoError(t, err)
		doc, err := st.Create(context.Background(), cfg.Admin.Collection, model.Fields{model.FieldTitle: "title"})
		require.NoError(t, err)
		assert.Equal(t, "p1", doc.ID)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"/api/users/login", "/api/posts"}, paths)
	})
}

// ============================================================================
// Session and environment
// ============================================================================

func TestOpenSession_Unknown(t *testing.T) {
	t.Parallel()

	cfg := fakeConfig()
	cfg.Browser.Driver = "lynx"
	_, err := OpenSession(context.Background(), cfg, &Store{}, nil, discard())
	assert.ErrorContains(t, err, "lynx")
}

func TestNewEnv_FakeRunsSuite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := fakeConfig()

	st, err := OpenStore(ctx, cfg, discard())
	require.NoError(t, err)
	env, closeSession, err := NewEnv(ctx, cfg, st, discard())
	require.NoError(t, err)
	defer closeSession()

	assert.IsType(t, &fakeadmin.Session{}, env.Session)
	require.NotNil(t, env.Credentials)
	assert.Equal(t, "dev@payloadcms.com", env.Credentials.Email)

	results := harness.Run(nil, nil, scenarios.Suite(env), harness.WithContext(ctx))
	for _, err := range results.Errors() {
		t.Errorf("%s", err)
	}
	assert.True(t, results.OK())
	assert.NotEmpty(t, results.Tests)
}

func TestNewEnv_NoCredentials(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := fakeConfig()
	cfg.Admin.Email = ""
	cfg.Admin.Password = ""

	st, err := OpenStore(ctx, cfg, discard())
	require.NoError(t, err)
	env, closeSession, err := NewEnv(ctx, cfg, st, discard())
	require.NoError(t, err)
	defer closeSession()

	assert.Nil(t, env.Credentials)
}

func TestNewEnv_InvalidServerURL(t *testing.T) {
	t.Parallel()
	cfg := fakeConfig()
	cfg.Admin.ServerURL = "://"

	_, _, err := NewEnv(context.Background(), cfg, &Store{Client: store.NewMemory()}, discard())
	assert.Error(t, err)
}
