package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/forgo/admin-e2e/internal/browser"
)

const snapshotTimeout = 10 * time.Second

// Hook runs around scenarios. A hook error aborts the run.
type Hook func(*Context) error

type environment struct {
	ctx        context.Context
	results    Results
	testLogger TestLogger
	filter     Filter
	artifacts  *Artifacts
	session    browser.Session
	logger     *slog.Logger
	aborted    error
}

// Option configures Run
type Option func(*environment)

// WithContext sets the context every scenario's Context() derives from
func WithContext(ctx context.Context) Option {
	return func(e *environment) { e.ctx = ctx }
}

// WithArtifacts enables page snapshots of failed scenarios
func WithArtifacts(a *Artifacts) Option {
	return func(e *environment) { e.artifacts = a }
}

// WithLogger receives run-level events such as aborts and artifact paths
func WithLogger(l *slog.Logger) Option {
	return func(e *environment) { e.logger = l }
}

// Context is the state of one scenario
type Context struct {
	env         *environment
	id          TestID
	debugLogger CapturingLogger
	failed      bool
	skipped     bool
	skipReason  string
	errors      []error
	beforeEach  []Hook
	afterEach   []Hook
	// children counts nested Run and Setup calls; a context with children
	// is a group and is only recorded when it fails on its own
	children int
}

// Run executes action as the root of a scenario tree
func Run(filter Filter, testLogger TestLogger, action func(*Context), opts ...Option) Results {
	if testLogger == nil {
		testLogger = nullTestLogger{}
	}
	env := &environment{
		ctx:        context.Background(),
		filter:     filter,
		testLogger: testLogger,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(env)
	}
	c := &Context{env: env}
	c.protect(func() { action(c) })
	if c.failed {
		env.results.Failures = append(env.results.Failures, TestResult{TestID: c.id, Errors: c.errors})
	}
	return env.results
}

// protect runs fn, turning FailNow, Skip and unexpected panics into
// scenario state
func (c *Context) protect(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if c.skipped {
				return
			}
			c.failed = true
			var addError error
			if _, ok := r.(*Context); ok {
				if len(c.errors) == 0 {
					addError = errors.New("test failed with no failure message")
				}
			} else {
				addError = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
			}
			if addError != nil {
				c.errors = append(c.errors, addError)
				c.env.testLogger.TestError(c.id, addError)
			}
		}
	}()
	fn()
}

func (c *Context) ID() TestID {
	return c.id
}

// Context is the run's context. Scenarios derive their timeouts from it.
func (c *Context) Context() context.Context {
	return c.env.ctx
}

// BeforeEach registers a hook run before every direct child scenario
func (c *Context) BeforeEach(h Hook) {
	c.beforeEach = append(c.beforeEach, h)
}

// AfterEach registers a hook run after every direct child scenario, even a
// failed one
func (c *Context) AfterEach(h Hook) {
	c.afterEach = append(c.afterEach, h)
}

// Attach makes s the session snapshotted when a scenario fails
func (c *Context) Attach(s browser.Session) {
	c.env.session = s
}

// Aborted returns the reason the run was aborted, if it was
func (c *Context) Aborted() error {
	return c.env.aborted
}

func (c *Context) abort(step string, err error) {
	if c.env.aborted == nil {
		c.env.aborted = fmt.Errorf("%s: %w", c.id.Plus(step), err)
		c.env.logger.Error("aborting test run", "test", c.id.String(), "step", step, "error", err)
	}
}

// Setup runs a group-level step. A failure is recorded under name and
// aborts the rest of the run.
func (c *Context) Setup(name string, fn func(ctx context.Context) error) bool {
	id := c.id.Plus(name)
	c.children++
	if c.env.aborted != nil {
		c.record(TestResult{TestID: id, Skipped: true, SkipReason: c.abortReason()})
		c.env.testLogger.TestSkipped(id, c.abortReason())
		return false
	}
	start := time.Now()
	if err := fn(c.env.ctx); err != nil {
		c.env.testLogger.TestStarted(id)
		c.env.testLogger.TestError(id, err)
		c.env.testLogger.TestFinished(id, true, nil)
		c.record(TestResult{TestID: id, Errors: []error{err}, Duration: time.Since(start)})
		c.abort(name, err)
		return false
	}
	return true
}

func (c *Context) abortReason() string {
	return "run aborted: " + c.env.aborted.Error()
}

func (c *Context) record(result TestResult) {
	c.env.results.Tests = append(c.env.results.Tests, result)
	switch {
	case result.Skipped:
		c.env.results.Skipped = append(c.env.results.Skipped, result)
	case len(result.Errors) > 0:
		c.env.results.Failures = append(c.env.results.Failures, result)
	}
}

// Run executes a child scenario. Hooks registered on c run around it.
func (c *Context) Run(name string, action func(*Context)) {
	id := c.id.Plus(name)
	c.children++

	c.env.testLogger.TestStarted(id)
	if c.env.filter != nil && !c.env.filter(id) {
		c.env.testLogger.TestSkipped(id, "excluded by filter parameters")
		return
	}
	if c.env.aborted != nil {
		c.record(TestResult{TestID: id, Skipped: true, SkipReason: c.abortReason()})
		c.env.testLogger.TestSkipped(id, c.abortReason())
		return
	}

	c1 := &Context{
		id:  id,
		env: c.env,
	}
	start := time.Now()

	c1.protect(func() {
		for _, h := range c.beforeEach {
			if err := h(c1); err != nil {
				c1.Errorf("before each: %s", err)
				c1.abort("before each", err)
				c1.FailNow()
			}
		}
		action(c1)
	})
	if c1.failed {
		c1.capture()
	}
	for _, h := range c.afterEach {
		c1.protect(func() {
			if err := h(c1); err != nil {
				c1.Errorf("after each: %s", err)
				c1.abort("after each", err)
			}
		})
	}

	result := TestResult{TestID: id, Errors: c1.errors, Duration: time.Since(start)}
	if c1.skipped && !c1.failed {
		result.Skipped, result.SkipReason = true, c1.skipReason
		c.record(result)
		c.env.testLogger.TestSkipped(id, c1.skipReason)
		return
	}
	if c1.children > 0 && !c1.failed {
		return
	}
	if c1.failed && len(result.Errors) == 0 {
		result.Errors = []error{errors.New("test failed with no failure message")}
	}
	c.record(result)
	c.env.testLogger.TestFinished(id, c1.failed, c1.debugLogger.Output())
}

// capture writes a snapshot of the attached session for a failed scenario
func (c *Context) capture() {
	if c.env.artifacts == nil || c.env.session == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	snap, err := c.env.session.Snapshot(ctx)
	if snap == nil {
		c.Debug("no page snapshot: %s", err)
		return
	}
	dir, werr := c.env.artifacts.Write(c.id, snap)
	if werr != nil {
		c.env.logger.Warn("failed to write artifacts", "test", c.id.String(), "error", werr)
		return
	}
	if err != nil {
		c.Debug("partial page snapshot: %s", err)
	}
	c.Debug("page snapshot written to %s", dir)
	c.env.logger.Info("wrote failure artifacts", "test", c.id.String(), "dir", dir)
}

// Errorf marks the scenario failed and continues
func (c *Context) Errorf(format string, args ...any) {
	c.failed = true
	err := fmt.Errorf(format, args...)
	c.errors = append(c.errors, err)
	c.env.testLogger.TestError(c.id, err)
}

// FailNow stops the scenario
func (c *Context) FailNow() {
	c.failed = true
	panic(c)
}

// Failed reports whether the scenario has failed so far
func (c *Context) Failed() bool {
	return c.failed
}

func (c *Context) Skip() {
	c.skipped = true
	panic(c)
}

func (c *Context) SkipWithReason(reason string) {
	c.skipReason = reason
	c.Skip()
}

// Helper satisfies testify's helper interface
func (c *Context) Helper() {}

// Debug adds a line to the scenario's captured output
func (c *Context) Debug(message string, args ...any) {
	c.debugLogger.Printf(message, args...)
}

// Logger returns a structured logger writing to the captured output
func (c *Context) Logger() *slog.Logger {
	return c.debugLogger.Slog()
}
