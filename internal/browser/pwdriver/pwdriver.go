package pwdriver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/forgo/admin-e2e/internal/browser"
)

const defaultTimeout = 30 * time.Second

// Options configures the Playwright browser
type Options struct {
	Headless bool
	// SlowMo delays every Playwright operation, for watching a run
	SlowMo time.Duration
	// Timeout bounds a single action when the caller's context has no
	// deadline. Zero means 30s.
	Timeout time.Duration
	// Install downloads the driver and Chromium before starting
	Install bool

	Logger *slog.Logger
}

// Session is one Playwright page in its own browser context
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	expect  playwright.PlaywrightAssertions
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	console []string
	closed  bool
}

var _ browser.Session = (*Session)(nil)

// New starts Playwright, launches Chromium and opens a page
func New(opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if opts.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(float64(opts.SlowMo.Milliseconds())),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(true),
	})
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	s := &Session{
		pw:      pw,
		browser: b,
		page:    page,
		expect:  playwright.NewPlaywrightAssertions(ms(timeout)),
		timeout: timeout,
		logger:  logger,
	}
	page.OnConsole(func(msg playwright.ConsoleMessage) {
		s.record(fmt.Sprintf("console.%s: %s", msg.Type(), msg.Text()))
	})
	page.OnPageError(func(err error) {
		s.record("exception: " + err.Error())
	})

	logger.Info("playwright started", "headless", opts.Headless)
	return s, nil
}

func ms(d time.Duration) float64 {
	return float64(d.Milliseconds())
}

func (s *Session) record(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.console = append(s.console, line)
}

// budget is how long a Playwright call may take under ctx. Playwright calls
// do not take a context, so the deadline is all that carries over.
func (s *Session) budget(ctx context.Context) (*float64, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, browser.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		d = time.Until(deadline)
		if d <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	return playwright.Float(ms(d)), nil
}

func (s *Session) locator(sel browser.Selector) playwright.Locator {
	return s.page.Locator(sel.String())
}

func (s *Session) Goto(ctx context.Context, url string) error {
	timeout, err := s.budget(ctx)
	if err != nil {
		return err
	}
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{Timeout: timeout}); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *Session) URL(ctx context.Context) (string, error) {
	if _, err := s.budget(ctx); err != nil {
		return "", err
	}
	return s.page.URL(), nil
}

func (s *Session) notFound(sel browser.Selector, err error) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return browser.NoElement(sel)
	}
	return err
}

func (s *Session) Click(ctx context.Context, sel browser.Selector) error {
	timeout, err := s.budget(ctx)
	if err != nil {
		return err
	}
	return s.notFound(sel, s.locator(sel).Click(playwright.LocatorClickOptions{Timeout: timeout}))
}

func (s *Session) Fill(ctx context.Context, sel browser.Selector, value string) error {
	timeout, err := s.budget(ctx)
	if err != nil {
		return err
	}
	return s.notFound(sel, s.locator(sel).Fill(value, playwright.LocatorFillOptions{Timeout: timeout}))
}

func (s *Session) Count(ctx context.Context, sel browser.Selector) (int, error) {
	if _, err := s.budget(ctx); err != nil {
		return 0, err
	}
	return s.locator(sel).Count()
}

// present fails fast when nothing matches, since Playwright's readers
// would otherwise wait for the element
func (s *Session) present(ctx context.Context, sel browser.Selector) (playwright.Locator, *float64, error) {
	timeout, err := s.budget(ctx)
	if err != nil {
		return nil, nil, err
	}
	l := s.locator(sel)
	n, err := l.Count()
	if err != nil {
		return nil, nil, err
	}
	if n == 0 {
		return nil, nil, browser.NoElement(sel)
	}
	return l.First(), timeout, nil
}

func (s *Session) Text(ctx context.Context, sel browser.Selector) (string, error) {
	l, timeout, err := s.present(ctx, sel)
	if err != nil {
		return "", err
	}
	text, err := l.InnerText(playwright.LocatorInnerTextOptions{Timeout: timeout})
	return browser.NormalizeText(text), err
}

func (s *Session) Value(ctx context.Context, sel browser.Selector) (string, error) {
	l, timeout, err := s.present(ctx, sel)
	if err != nil {
		return "", err
	}
	return l.InputValue(playwright.LocatorInputValueOptions{Timeout: timeout})
}

func (s *Session) Visible(ctx context.Context, sel browser.Selector) (bool, error) {
	if _, err := s.budget(ctx); err != nil {
		return false, err
	}
	return s.locator(sel).First().IsVisible()
}

// Await hands the wait to Playwright's web-first assertions
func (s *Session) Await(ctx context.Context, sel browser.Selector, cond browser.Condition) (browser.Observation, error) {
	if cond.IsURL() {
		url, err := s.AwaitURL(ctx, cond)
		return browser.Observation{URL: url}, err
	}
	timeout, err := s.budget(ctx)
	if err != nil {
		return browser.Observation{}, err
	}

	l := s.locator(sel)
	a := s.expect.Locator(l)
	switch cond.Kind {
	case browser.CondCount:
		err = a.ToHaveCount(cond.Count, playwright.LocatorAssertionsToHaveCountOptions{Timeout: timeout})
	case browser.CondText:
		err = s.expect.Locator(l.First()).ToHaveText(cond.Text, playwright.LocatorAssertionsToHaveTextOptions{Timeout: timeout})
	case browser.CondContainsText:
		err = s.expect.Locator(l.First()).ToContainText(cond.Text, playwright.LocatorAssertionsToContainTextOptions{Timeout: timeout})
	case browser.CondValue:
		err = s.expect.Locator(l.First()).ToHaveValue(cond.Text, playwright.LocatorAssertionsToHaveValueOptions{Timeout: timeout})
	case browser.CondVisible:
		err = s.expect.Locator(l.First()).ToBeVisible(playwright.LocatorAssertionsToBeVisibleOptions{Timeout: timeout})
	default:
		return browser.Observation{}, fmt.Errorf("unsupported condition %s", cond)
	}

	// the observation is read after the wait; Playwright only reports
	// pass or fail
	obs, obsErr := browser.Observe(context.Background(), s, sel, cond)
	if err != nil {
		if obsErr != nil {
			s.logger.Debug("failed to observe after wait", "selector", sel.String(), "error", obsErr)
		}
		return obs, fmt.Errorf("%w (%v)", browser.NotMet(sel, cond, obs), err)
	}
	return obs, nil
}

func (s *Session) AwaitURL(ctx context.Context, cond browser.Condition) (string, error) {
	timeout, err := s.budget(ctx)
	if err != nil {
		return "", err
	}
	pattern := regexp.QuoteMeta(cond.Text)
	if cond.Kind == browser.CondURLNotContains {
		// Go's regexp has no lookahead, so the negative case is a predicate
		err = s.page.WaitForURL(func(u string) bool {
			return cond.Holds(browser.Observation{URL: u})
		}, playwright.PageWaitForURLOptions{Timeout: timeout})
	} else {
		err = s.page.WaitForURL(regexp.MustCompile(pattern), playwright.PageWaitForURLOptions{Timeout: timeout})
	}
	url := s.page.URL()
	if err != nil {
		return url, fmt.Errorf("%w (%v)", browser.NotMet(browser.Selector{}, cond, browser.Observation{URL: url}), err)
	}
	return url, nil
}

func (s *Session) Snapshot(ctx context.Context) (*browser.Snapshot, error) {
	s.mu.Lock()
	console := append([]string(nil), s.console...)
	s.mu.Unlock()

	snap := &browser.Snapshot{URL: s.page.URL(), Console: console, TakenAt: time.Now()}
	var errs []error
	shot, err := s.page.Screenshot(playwright.PageScreenshotOptions{FullPage: playwright.Bool(true)})
	if err != nil {
		errs = append(errs, fmt.Errorf("screenshot: %w", err))
	}
	snap.Screenshot = shot
	html, err := s.page.Content()
	if err != nil {
		errs = append(errs, fmt.Errorf("content: %w", err))
	}
	snap.HTML = html
	return snap, errors.Join(errs...)
}

func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return errors.Join(s.browser.Close(), s.pw.Stop())
}
