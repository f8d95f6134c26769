package browser

import (
	"strconv"
	"strings"
)

// StepKind identifies how a selector step matches elements
type StepKind int

const (
	// StepCSS matches descendants by CSS selector
	StepCSS StepKind = iota
	// StepText matches the innermost descendants whose text contains the
	// value, ignoring case and surrounding whitespace. A value wrapped in
	// double quotes must match the whole text exactly.
	StepText
	// StepNth keeps only the n-th match, counted from zero
	StepNth
)

// Step is one link of a selector chain
type Step struct {
	Kind  StepKind
	Value string
	Index int
}

func (s Step) String() string {
	switch s.Kind {
	case StepText:
		return "text=" + s.Value
	case StepNth:
		return "nth=" + strconv.Itoa(s.Index)
	default:
		return s.Value
	}
}

// Selector is an immutable chain of steps
type Selector struct {
	steps []Step
}

// CSS starts a selector with a CSS step
func CSS(css string) Selector {
	return Selector{}.CSS(css)
}

// Text starts a selector with a text step
func Text(text string) Selector {
	return Selector{}.Text(text)
}

// Parse reads a selector in Playwright's chained syntax, e.g.
// ".paginator >> button >> nth=1"
func Parse(raw string) Selector {
	var sel Selector
	for _, part := range strings.Split(raw, ">>") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
			continue
		case strings.HasPrefix(part, "text="):
			sel = sel.Text(strings.TrimPrefix(part, "text="))
		case strings.HasPrefix(part, "nth="):
			n, err := strconv.Atoi(strings.TrimPrefix(part, "nth="))
			if err != nil {
				sel = sel.CSS(part)
				continue
			}
			sel = sel.Nth(n)
		default:
			sel = sel.CSS(part)
		}
	}
	return sel
}

func (s Selector) with(step Step) Selector {
	steps := make([]Step, len(s.steps), len(s.steps)+1)
	copy(steps, s.steps)
	return Selector{steps: append(steps, step)}
}

// CSS appends a CSS step
func (s Selector) CSS(css string) Selector {
	return s.with(Step{Kind: StepCSS, Value: css})
}

// Text appends a text step
func (s Selector) Text(text string) Selector {
	return s.with(Step{Kind: StepText, Value: text})
}

// Nth appends an index step
func (s Selector) Nth(n int) Selector {
	return s.with(Step{Kind: StepNth, Index: n})
}

// First keeps only the first match
func (s Selector) First() Selector {
	return s.Nth(0)
}

// Steps returns a copy of the chain
func (s Selector) Steps() []Step {
	out := make([]Step, len(s.steps))
	copy(out, s.steps)
	return out
}

// IsZero reports whether the selector has no steps
func (s Selector) IsZero() bool {
	return len(s.steps) == 0
}

// String renders the selector in Playwright syntax
func (s Selector) String() string {
	parts := make([]string, len(s.steps))
	for i, step := range s.steps {
		parts[i] = step.String()
	}
	return strings.Join(parts, " >> ")
}

// NormalizeText collapses runs of whitespace and trims the ends, the way
// text assertions compare element text
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TextMatches reports whether element text satisfies a text step value
func TextMatches(text, value string) bool {
	text = NormalizeText(text)
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		return text == value[1:len(value)-1]
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(NormalizeText(value)))
}
