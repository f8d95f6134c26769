package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forgo/admin-e2e/internal/browser"
)

// DefaultTimeout bounds an expectation that sets no timeout of its own
const DefaultTimeout = 10 * time.Second

// AssertionError reports an expectation that did not hold in time
type AssertionError struct {
	Selector string
	Expected string
	Observed string
	Timeout  time.Duration
	Err      error
}

func (e *AssertionError) Error() string {
	target := e.Selector
	if target == "" {
		target = "page"
	}
	return fmt.Sprintf("expected %s to have %s within %s, last saw %s", target, e.Expected, e.Timeout, e.Observed)
}

func (e *AssertionError) Unwrap() error {
	return e.Err
}

// Expectation waits on one selector
type Expectation struct {
	session browser.Session
	sel     browser.Selector
	timeout time.Duration
}

// Expect starts an expectation on the elements sel matches
func Expect(s browser.Session, sel browser.Selector) *Expectation {
	return &Expectation{session: s, sel: sel, timeout: DefaultTimeout}
}

// WithTimeout overrides the wait for this expectation
func (e *Expectation) WithTimeout(d time.Duration) *Expectation {
	e.timeout = d
	return e
}

func (e *Expectation) ToHaveCount(ctx context.Context, n int) error {
	return await(ctx, e.session, e.sel, browser.Count(n), e.timeout)
}

func (e *Expectation) ToHaveText(ctx context.Context, text string) error {
	return await(ctx, e.session, e.sel, browser.HasText(text), e.timeout)
}

func (e *Expectation) ToContainText(ctx context.Context, text string) error {
	return await(ctx, e.session, e.sel, browser.ContainsText(text), e.timeout)
}

func (e *Expectation) ToHaveValue(ctx context.Context, value string) error {
	return await(ctx, e.session, e.sel, browser.HasValue(value), e.timeout)
}

func (e *Expectation) ToBeVisible(ctx context.Context) error {
	return await(ctx, e.session, e.sel, browser.Visible(), e.timeout)
}

// URLExpectation waits on the page URL
type URLExpectation struct {
	session browser.Session
	timeout time.Duration
}

func ExpectURL(s browser.Session) *URLExpectation {
	return &URLExpectation{session: s, timeout: DefaultTimeout}
}

func (e *URLExpectation) WithTimeout(d time.Duration) *URLExpectation {
	e.timeout = d
	return e
}

func (e *URLExpectation) ToContain(ctx context.Context, s string) error {
	return await(ctx, e.session, browser.Selector{}, browser.URLContains(s), e.timeout)
}

func (e *URLExpectation) NotToContain(ctx context.Context, s string) error {
	return await(ctx, e.session, browser.Selector{}, browser.URLNotContains(s), e.timeout)
}

func await(ctx context.Context, s browser.Session, sel browser.Selector, cond browser.Condition, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var obs browser.Observation
	var err error
	if cond.IsURL() {
		obs.URL, err = s.AwaitURL(ctx, cond)
	} else {
		obs, err = s.Await(ctx, sel, cond)
	}
	if err == nil {
		return nil
	}
	if !errors.Is(err, browser.ErrConditionNotMet) {
		return err
	}
	return &AssertionError{
		Selector: sel.String(),
		Expected: cond.String(),
		Observed: cond.Describe(obs),
		Timeout:  timeout,
		Err:      err,
	}
}
