package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forgo/admin-e2e/internal/adminurl"
	"github.com/forgo/admin-e2e/internal/browser"
	"github.com/forgo/admin-e2e/internal/browser/chromedriver"
	"github.com/forgo/admin-e2e/internal/browser/htmldriver"
	"github.com/forgo/admin-e2e/internal/browser/pwdriver"
	"github.com/forgo/admin-e2e/internal/config"
	"github.com/forgo/admin-e2e/internal/scenarios"
	"github.com/forgo/admin-e2e/internal/testing/fakeadmin"
	"github.com/forgo/admin-e2e/internal/testing/fixtures"
)

// OpenSession starts the browser driver named by cfg.Browser.Driver
func OpenSession(ctx context.Context, cfg *config.Config, st *Store, urls *adminurl.Builder, logger *slog.Logger) (browser.Session, error) {
	switch cfg.Browser.Driver {
	case config.DriverChrome:
		s, err := chromedriver.New(ctx, chromedriver.Options{
			Headless:     cfg.Browser.Headless,
			Timeout:      cfg.Browser.Timeout,
			ExecPath:     cfg.Browser.ExecPath,
			WindowWidth:  cfg.Browser.WindowWidth,
			WindowHeight: cfg.Browser.WindowHeight,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPlaywright:
		s, err := pwdriver.New(pwdriver.Options{
			Headless: cfg.Browser.Headless,
			SlowMo:   cfg.Browser.SlowMo,
			Timeout:  cfg.Browser.Timeout,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverHTML:
		s, err := htmldriver.New()
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverFake:
		opts := []fakeadmin.Option{
			fakeadmin.WithGlobal(cfg.Admin.Global),
			fakeadmin.WithPerPage(cfg.Admin.PageSize),
			fakeadmin.WithLogger(logger),
		}
		if cfg.Admin.Email != "" {
			opts = append(opts, fakeadmin.WithAuth(cfg.Admin.AuthCollection))
		}
		return fakeadmin.New(st, urls, opts...), nil
	}
	return nil, fmt.Errorf("unknown driver %q", cfg.Browser.Driver)
}

// NewEnv opens a session and assembles the scenario environment. The
// returned func closes the session.
func NewEnv(ctx context.Context, cfg *config.Config, st *Store, logger *slog.Logger) (*scenarios.Env, func() error, error) {
	urls, err := adminurl.New(cfg.Admin.ServerURL, cfg.Admin.Collection)
	if err != nil {
		return nil, nil, err
	}
	fx := fixtures.New(st, fixtures.WithLogger(logger))

	// the in-memory store starts empty, so the login user has to be seeded
	if st.Kind == config.StoreMemory && cfg.Admin.Email != "" {
		if _, err := fx.SeedUser(ctx, cfg.Admin.AuthCollection, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			return nil, nil, fmt.Errorf("seed user: %w", err)
		}
	}

	session, err := OpenSession(ctx, cfg, st, urls, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s session: %w", cfg.Browser.Driver, err)
	}

	env := &scenarios.Env{
		Session:  session,
		Fixtures: fx,
		URLs:     urls,
		Global:   cfg.Admin.Global,
		Timeout:  cfg.Run.ExpectTimeout,
		Logger:   logger,
	}
	if cfg.Admin.Email != "" {
		env.Credentials = &scenarios.Credentials{Email: cfg.Admin.Email, Password: cfg.Admin.Password}
	}
	if err := env.Validate(); err != nil {
		_ = session.Close()
		return nil, nil, err
	}
	return env, session.Close, nil
}
