package chromedriver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/forgo/admin-e2e/internal/browser"
)

const (
	defaultTimeout = 30 * time.Second
	urlInterval    = 100 * time.Millisecond
	snapshotWait   = 10 * time.Second
)

// Options configures the Chrome process
type Options struct {
	// Headless runs Chrome without a window
	Headless bool
	// Timeout bounds a single action when the caller's context has no
	// deadline. Zero means 30s.
	Timeout time.Duration
	// ExecPath overrides the Chrome binary
	ExecPath string
	// Proxy is passed to Chrome as --proxy-server
	Proxy string

	WindowWidth  int
	WindowHeight int

	Logger *slog.Logger
}

// Session drives one Chrome tab through the DevTools protocol
type Session struct {
	chromeCtx context.Context
	cancel    func()
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.RWMutex
	console []string
	closed  bool
}

var _ browser.Session = (*Session)(nil)

// New launches Chrome and opens a blank tab. ctx bounds the launch only;
// the browser lives until Close.
func New(ctx context.Context, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	options := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.IgnoreCertErrors)
	if !opts.Headless {
		options = append(options,
			chromedp.Flag("headless", false),
			chromedp.Flag("hide-scrollbars", false),
			chromedp.Flag("mute-audio", false),
		)
	}
	if runtime.GOOS != "darwin" && runtime.GOOS != "windows" {
		// containers usually lack the namespaces the sandbox wants
		options = append(options, chromedp.NoSandbox)
	}
	if opts.ExecPath != "" {
		options = append(options, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.Proxy != "" {
		options = append(options, chromedp.ProxyServer(opts.Proxy))
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		options = append(options, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), options...)
	chromeCtx, chromeCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Warn(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
	)

	s := &Session{
		chromeCtx: chromeCtx,
		cancel: func() {
			chromeCancel()
			allocCancel()
		},
		timeout: timeout,
		logger:  logger,
	}

	chromedp.ListenTarget(chromeCtx, func(ev any) {
		switch ev := ev.(type) {
		case *cdpruntime.EventConsoleAPICalled:
			args := make([]string, len(ev.Args))
			for i, arg := range ev.Args {
				args[i] = fmt.Sprintf("%s", arg.Value)
			}
			s.record(fmt.Sprintf("console.%s: %s", ev.Type, strings.Join(args, " ")))
		case *cdpruntime.EventExceptionThrown:
			s.record("exception: " + ev.ExceptionDetails.Error())
		}
	})

	// The first Run starts the process. It must not carry a timeout or the
	// browser would exit when it fires.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(chromeCtx) }()
	select {
	case err := <-started:
		if err != nil {
			s.cancel()
			return nil, fmt.Errorf("failed to start chrome: %w", err)
		}
	case <-ctx.Done():
		s.cancel()
		return nil, ctx.Err()
	}

	logger.Info("chrome started", "headless", opts.Headless)
	return s, nil
}

func (s *Session) record(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.console = append(s.console, line)
}

// Console returns the console lines seen so far
func (s *Session) Console() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.console...)
}

// run executes actions on the tab, bounded by ctx's deadline (or the
// default timeout) and cancelled with ctx
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return browser.ErrClosed
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(s.timeout)
	}
	runCtx, cancel := context.WithDeadline(s.chromeCtx, deadline)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *Session) Goto(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *Session) URL(ctx context.Context) (string, error) {
	var url string
	err := s.run(ctx, chromedp.Location(&url))
	return url, err
}

// waitPoint waits for the first match to have a layout box and returns its
// center in viewport coordinates
func (s *Session) waitPoint(ctx context.Context, sel browser.Selector) (x, y float64, err error) {
	var pt struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	err = s.run(ctx, chromedp.Poll(pointScript(sel), &pt,
		chromedp.WithPollingMutation(),
		chromedp.WithPollingTimeout(s.remaining(ctx)),
	))
	if err != nil {
		if errors.Is(err, chromedp.ErrPollingTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return 0, 0, browser.NoElement(sel)
		}
		return 0, 0, err
	}
	return pt.X, pt.Y, nil
}

func (s *Session) Click(ctx context.Context, sel browser.Selector) error {
	x, y, err := s.waitPoint(ctx, sel)
	if err != nil {
		return err
	}
	return s.run(ctx, chromedp.MouseClickXY(x, y))
}

func (s *Session) Fill(ctx context.Context, sel browser.Selector, value string) error {
	if _, _, err := s.waitPoint(ctx, sel); err != nil {
		return err
	}
	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(fillScript(sel, value), &ok)); err != nil {
		return err
	}
	if !ok {
		return browser.NoElement(sel)
	}
	return nil
}

func (s *Session) Count(ctx context.Context, sel browser.Selector) (int, error) {
	var n int
	err := s.run(ctx, chromedp.Evaluate(countScript(sel), &n))
	return n, err
}

func (s *Session) observe(ctx context.Context, sel browser.Selector) (browser.Observation, error) {
	var obs observation
	if err := s.run(ctx, chromedp.Evaluate(observeScript(sel), &obs)); err != nil {
		return browser.Observation{}, err
	}
	return obs.toBrowser(), nil
}

func (s *Session) Text(ctx context.Context, sel browser.Selector) (string, error) {
	obs, err := s.observe(ctx, sel)
	if err != nil {
		return "", err
	}
	if obs.Count == 0 {
		return "", browser.NoElement(sel)
	}
	return obs.Text, nil
}

func (s *Session) Value(ctx context.Context, sel browser.Selector) (string, error) {
	obs, err := s.observe(ctx, sel)
	if err != nil {
		return "", err
	}
	if obs.Count == 0 {
		return "", browser.NoElement(sel)
	}
	return obs.Value, nil
}

func (s *Session) Visible(ctx context.Context, sel browser.Selector) (bool, error) {
	obs, err := s.observe(ctx, sel)
	return obs.Visible, err
}

func (s *Session) remaining(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		return time.Until(deadline)
	}
	return s.timeout
}

// Await lets the page evaluate the condition on every DOM mutation, so it
// returns as soon as the page settles into the expected state
func (s *Session) Await(ctx context.Context, sel browser.Selector, cond browser.Condition) (browser.Observation, error) {
	if cond.IsURL() {
		url, err := s.AwaitURL(ctx, cond)
		return browser.Observation{URL: url}, err
	}

	var obs observation
	err := s.run(ctx, chromedp.Poll(awaitScript(sel, cond), &obs,
		chromedp.WithPollingMutation(),
		chromedp.WithPollingTimeout(s.remaining(ctx)),
	))
	if err == nil {
		return obs.toBrowser(), nil
	}
	if !errors.Is(err, chromedp.ErrPollingTimeout) && ctx.Err() == nil && !errors.Is(err, context.DeadlineExceeded) {
		return browser.Observation{}, err
	}

	// report what the page showed when the wait ended
	last, lastErr := s.observe(s.detached(), sel)
	if lastErr != nil {
		s.logger.Debug("failed to observe after wait", "selector", sel.String(), "error", lastErr)
	}
	return last, browser.NotMet(sel, cond, last)
}

// detached is a short context independent of an expired caller context.
// It is released by its own timeout.
func (s *Session) detached() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotWait)
	time.AfterFunc(snapshotWait, cancel)
	return ctx
}

func (s *Session) AwaitURL(ctx context.Context, cond browser.Condition) (string, error) {
	var lastURL string
	for {
		url, err := s.URL(ctx)
		if err == nil {
			if url != lastURL {
				s.logger.Debug("saw URL", "url", url)
				lastURL = url
			}
			if cond.Holds(browser.Observation{URL: url}) {
				return url, nil
			}
		}
		select {
		case <-ctx.Done():
			return lastURL, fmt.Errorf("%w (%v)", browser.NotMet(browser.Selector{}, cond, browser.Observation{URL: lastURL}), ctx.Err())
		case <-time.After(urlInterval):
		}
	}
}

func (s *Session) Snapshot(ctx context.Context) (*browser.Snapshot, error) {
	if ctx.Err() != nil {
		ctx = s.detached()
	}
	snap := &browser.Snapshot{TakenAt: time.Now()}
	err := s.run(ctx,
		chromedp.Location(&snap.URL),
		chromedp.FullScreenshot(&snap.Screenshot, 90),
		chromedp.OuterHTML("html", &snap.HTML, chromedp.ByQuery),
	)
	snap.Console = s.Console()
	if err != nil {
		return snap, fmt.Errorf("failed to capture page: %w", err)
	}
	return snap, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := chromedp.Cancel(s.chromeCtx)
	s.cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close chrome: %w", err)
	}
	return nil
}
