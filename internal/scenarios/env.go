package scenarios

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/forgo/admin-e2e/internal/adminurl"
	"github.com/forgo/admin-e2e/internal/browser"
	"github.com/forgo/admin-e2e/internal/harness"
	"github.com/forgo/admin-e2e/internal/testing/fixtures"
)

// Credentials sign the session in before the suite runs
type Credentials struct {
	Email    string
	Password string
}

// Env is what the suite runs against
type Env struct {
	Session  browser.Session
	Fixtures *fixtures.Controller
	URLs     *adminurl.Builder
	// Global is the slug of the global singleton under test
	Global string
	// Credentials, when set, are used to sign in through the login form
	Credentials *Credentials
	// Timeout bounds every expectation. Zero means harness.DefaultTimeout.
	Timeout time.Duration
	// PageSize is how many documents a teardown pass deletes at once
	PageSize int
	Logger   *slog.Logger
}

// Validate reports missing collaborators
func (e *Env) Validate() error {
	var errs []error
	if e.Session == nil {
		errs = append(errs, errors.New("session is required"))
	}
	if e.Fixtures == nil {
		errs = append(errs, errors.New("fixtures are required"))
	}
	if e.URLs == nil {
		errs = append(errs, errors.New("admin urls are required"))
	}
	if e.Global == "" {
		errs = append(errs, errors.New("global slug is required"))
	}
	return errors.Join(errs...)
}

func (e *Env) timeout() time.Duration {
	if e.Timeout <= 0 {
		return harness.DefaultTimeout
	}
	return e.Timeout
}

func (e *Env) pageSize() int {
	if e.PageSize <= 0 {
		return fixtures.DefaultPageSize
	}
	return e.PageSize
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Login signs in through the admin login form
func (e *Env) Login(ctx context.Context) error {
	if e.Credentials == nil {
		return nil
	}
	s := e.Session
	if err := s.Goto(ctx, e.URLs.Login()); err != nil {
		return err
	}
	if err := s.Fill(ctx, browser.CSS("#field-email"), e.Credentials.Email); err != nil {
		return err
	}
	if err := s.Fill(ctx, browser.CSS("#field-password"), e.Credentials.Password); err != nil {
		return err
	}
	if err := s.Click(ctx, browser.CSS("[type=submit]")); err != nil {
		return err
	}
	if err := harness.ExpectURL(s).WithTimeout(e.timeout()).NotToContain(ctx, "/login"); err != nil {
		return err
	}
	e.logger().Info("signed in", "email", e.Credentials.Email)
	return nil
}

// Clear empties the collection under test
func (e *Env) Clear(ctx context.Context) error {
	n, err := e.Fixtures.DrainCollection(ctx, e.URLs.Slug(), e.pageSize())
	if n > 0 {
		e.logger().Debug("cleared collection", "collection", e.URLs.Slug(), "deleted", n)
	}
	return err
}
