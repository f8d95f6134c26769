package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoElement indicates an action's target never appeared
	ErrNoElement = errors.New("no element matches selector")

	// ErrConditionNotMet indicates a wait ended without its condition holding
	ErrConditionNotMet = errors.New("condition not met")

	// ErrClosed indicates the session was used after Close
	ErrClosed = errors.New("session closed")
)

// Session is one browser tab driven by the scenarios. Actions wait for
// their target to exist; reads report the current state without waiting.
type Session interface {
	Goto(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)

	Click(ctx context.Context, sel Selector) error
	Fill(ctx context.Context, sel Selector, value string) error

	Count(ctx context.Context, sel Selector) (int, error)
	Text(ctx context.Context, sel Selector) (string, error)
	Value(ctx context.Context, sel Selector) (string, error)
	Visible(ctx context.Context, sel Selector) (bool, error)

	// Await blocks until cond holds for sel or ctx ends. It always returns
	// the last observation; on failure the error wraps ErrConditionNotMet.
	Await(ctx context.Context, sel Selector, cond Condition) (Observation, error)

	// AwaitURL blocks until the URL condition holds or ctx ends
	AwaitURL(ctx context.Context, cond Condition) (string, error)

	// Snapshot captures the current page for failure reports
	Snapshot(ctx context.Context) (*Snapshot, error)

	Close() error
}

// Snapshot is the state of a page at one moment
type Snapshot struct {
	URL        string
	HTML       string
	Screenshot []byte
	// Console holds browser console lines seen so far, when the driver
	// can observe them
	Console []string
	TakenAt time.Time
}

// NoElement wraps ErrNoElement with the selector
func NoElement(sel Selector) error {
	return fmt.Errorf("%w: %s", ErrNoElement, sel)
}

// NotMet wraps ErrConditionNotMet with what was expected and seen
func NotMet(sel Selector, cond Condition, obs Observation) error {
	if cond.IsURL() {
		return fmt.Errorf("%w: expected %s, got %s", ErrConditionNotMet, cond, cond.Describe(obs))
	}
	return fmt.Errorf("%w: %s: expected %s, got %s", ErrConditionNotMet, sel, cond, cond.Describe(obs))
}

// Observe reads the state cond looks at from s without waiting
func Observe(ctx context.Context, s Session, sel Selector, cond Condition) (Observation, error) {
	var obs Observation
	var err error
	if cond.IsURL() {
		obs.URL, err = s.URL(ctx)
		return obs, err
	}
	if obs.Count, err = s.Count(ctx, sel); err != nil || obs.Count == 0 {
		return obs, err
	}
	switch cond.Kind {
	case CondText, CondContainsText:
		obs.Text, err = s.Text(ctx, sel.First())
	case CondValue:
		obs.Value, err = s.Value(ctx, sel.First())
	case CondVisible:
		obs.Visible, err = s.Visible(ctx, sel.First())
	}
	return obs, err
}

// Poll observes until cond holds, checking every interval until ctx ends.
// Drivers whose page only changes on actions call it with interval 0 to
// check exactly once.
func Poll(ctx context.Context, s Session, sel Selector, cond Condition, interval time.Duration) (Observation, error) {
	for {
		obs, err := Observe(ctx, s, sel, cond)
		if err != nil {
			return obs, err
		}
		if cond.Holds(obs) {
			return obs, nil
		}
		if interval <= 0 {
			return obs, NotMet(sel, cond, obs)
		}
		select {
		case <-ctx.Done():
			return obs, fmt.Errorf("%w (%v)", NotMet(sel, cond, obs), ctx.Err())
		case <-time.After(interval):
		}
	}
}
