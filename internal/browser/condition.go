package browser

import (
	"fmt"
	"strings"
)

// ConditionKind is the observable state a condition checks
type ConditionKind int

const (
	CondCount ConditionKind = iota
	CondText
	CondContainsText
	CondValue
	CondVisible
	CondURLContains
	CondURLNotContains
)

// Condition is an expected element or page state
type Condition struct {
	Kind  ConditionKind
	Count int
	Text  string
}

// Count expects exactly n matching elements
func Count(n int) Condition { return Condition{Kind: CondCount, Count: n} }

// HasText expects the first match's normalized text to equal s
func HasText(s string) Condition { return Condition{Kind: CondText, Text: s} }

// ContainsText expects the first match's text to contain s
func ContainsText(s string) Condition { return Condition{Kind: CondContainsText, Text: s} }

// HasValue expects the first match's input value to equal s
func HasValue(s string) Condition { return Condition{Kind: CondValue, Text: s} }

// Visible expects the first match to be visible
func Visible() Condition { return Condition{Kind: CondVisible} }

// URLContains expects the page URL to contain s
func URLContains(s string) Condition { return Condition{Kind: CondURLContains, Text: s} }

// URLNotContains expects the page URL not to contain s
func URLNotContains(s string) Condition { return Condition{Kind: CondURLNotContains, Text: s} }

// IsURL reports whether the condition is about the page URL
func (c Condition) IsURL() bool {
	return c.Kind == CondURLContains || c.Kind == CondURLNotContains
}

func (c Condition) String() string {
	switch c.Kind {
	case CondCount:
		return fmt.Sprintf("count %d", c.Count)
	case CondText:
		return fmt.Sprintf("text %q", c.Text)
	case CondContainsText:
		return fmt.Sprintf("text containing %q", c.Text)
	case CondValue:
		return fmt.Sprintf("value %q", c.Text)
	case CondVisible:
		return "visible"
	case CondURLContains:
		return fmt.Sprintf("url containing %q", c.Text)
	case CondURLNotContains:
		return fmt.Sprintf("url not containing %q", c.Text)
	default:
		return fmt.Sprintf("condition(%d)", c.Kind)
	}
}

// Observation is the state a session last saw while waiting
type Observation struct {
	Count   int
	Text    string
	Value   string
	Visible bool
	URL     string
}

// Holds reports whether obs satisfies the condition
func (c Condition) Holds(obs Observation) bool {
	switch c.Kind {
	case CondCount:
		return obs.Count == c.Count
	case CondText:
		return obs.Count > 0 && NormalizeText(obs.Text) == NormalizeText(c.Text)
	case CondContainsText:
		return obs.Count > 0 && strings.Contains(NormalizeText(obs.Text), NormalizeText(c.Text))
	case CondValue:
		return obs.Count > 0 && obs.Value == c.Text
	case CondVisible:
		return obs.Count > 0 && obs.Visible
	case CondURLContains:
		return strings.Contains(obs.URL, c.Text)
	case CondURLNotContains:
		return !strings.Contains(obs.URL, c.Text)
	default:
		return false
	}
}

// Describe renders the part of obs the condition looks at
func (c Condition) Describe(obs Observation) string {
	switch c.Kind {
	case CondCount:
		return fmt.Sprintf("count %d", obs.Count)
	case CondURLContains, CondURLNotContains:
		return fmt.Sprintf("url %q", obs.URL)
	}
	if obs.Count == 0 {
		return "no matching element"
	}
	switch c.Kind {
	case CondText, CondContainsText:
		return fmt.Sprintf("text %q", NormalizeText(obs.Text))
	case CondValue:
		return fmt.Sprintf("value %q", obs.Value)
	case CondVisible:
		if obs.Visible {
			return "visible"
		}
		return "hidden"
	}
	return fmt.Sprintf("%+v", obs)
}
