package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Selector Tests
// ============================================================================

func TestSelector_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sel  Selector
		want string
	}{
		{CSS("#field-title"), "#field-title"},
		{CSS("table").CSS("tbody").CSS("tr"), "table >> tbody >> tr"},
		{CSS(".paginator").CSS("button").Nth(1), ".paginator >> button >> nth=1"},
		{CSS(".column-selector").Text("ID"), ".column-selector >> text=ID"},
		{Text(`Post "abc" successfully deleted.`), `text=Post "abc" successfully deleted.`},
		{CSS("tr").First().CSS("td").First(), "tr >> nth=0 >> td >> nth=0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.sel.String())
		assert.Equal(t, tt.sel.Steps(), Parse(tt.want).Steps(), "parse %q", tt.want)
	}
}

func TestSelector_Immutable(t *testing.T) {
	t.Parallel()

	base := CSS("table")
	rows := base.CSS("tr")
	head := base.CSS("th")

	assert.Equal(t, "table", base.String())
	assert.Equal(t, "table >> tr", rows.String())
	assert.Equal(t, "table >> th", head.String())
}

func TestParse_BadNthFallsBackToCSS(t *testing.T) {
	t.Parallel()

	steps := Parse("a >> nth=x").Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, StepCSS, steps[1].Kind)
	assert.True(t, Parse("").IsZero())
}

func TestTextMatches(t *testing.T) {
	t.Parallel()

	assert.True(t, TextMatches("  Per Page:\n 10 ", "per page: 10"))
	assert.True(t, TextMatches("Post \"x\" successfully deleted.", `Post "x" successfully deleted.`))
	assert.True(t, TextMatches("equals", `"equals"`))
	assert.False(t, TextMatches("not equals", `"equals"`))
	assert.True(t, TextMatches("not equals", "equals"))
	assert.False(t, TextMatches("title", "description"))
}

// ============================================================================
// Condition Tests
// ============================================================================

func TestCondition_Holds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cond Condition
		obs  Observation
		want bool
	}{
		{"count match", Count(10), Observation{Count: 10}, true},
		{"count zero", Count(0), Observation{}, true},
		{"count mismatch", Count(1), Observation{Count: 2}, false},
		{"text normalized", HasText("1-10 of 11"), Observation{Count: 1, Text: " 1-10 of 11\n"}, true},
		{"text missing element", HasText(""), Observation{}, false},
		{"contains", ContainsText("Per Page: 10"), Observation{Count: 1, Text: "Per Page: 10 ▾"}, true},
		{"value", HasValue("title"), Observation{Count: 1, Value: "title"}, true},
		{"value mismatch", HasValue("title"), Observation{Count: 1, Value: "new title"}, false},
		{"visible", Visible(), Observation{Count: 1, Visible: true}, true},
		{"hidden", Visible(), Observation{Count: 1}, false},
		{"url contains", URLContains("?page=2"), Observation{URL: "http://x/admin/collections/posts?page=2"}, true},
		{"url not contains", URLNotContains("create"), Observation{URL: "http://x/admin/collections/posts/abc"}, true},
		{"url still create", URLNotContains("create"), Observation{URL: "http://x/admin/collections/posts/create"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Holds(tt.obs))
		})
	}
}

func TestCondition_Describe(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "count 2", Count(1).Describe(Observation{Count: 2}))
	assert.Equal(t, "no matching element", HasValue("x").Describe(Observation{}))
	assert.Equal(t, `value "y"`, HasValue("x").Describe(Observation{Count: 1, Value: "y"}))
	assert.Equal(t, "hidden", Visible().Describe(Observation{Count: 1}))
	assert.Equal(t, `url "http://x"`, URLContains("y").Describe(Observation{URL: "http://x"}))
	assert.Equal(t, `text containing "a"`, ContainsText("a").String())
}

// ============================================================================
// Poll Tests
// ============================================================================

// counterSession reports a count that grows on every read
type counterSession struct {
	Session
	count int
	url   string
}

func (s *counterSession) Count(context.Context, Selector) (int, error) {
	s.count++
	return s.count, nil
}

func (s *counterSession) URL(context.Context) (string, error) {
	return s.url, nil
}

func TestPoll_WaitsUntilConditionHolds(t *testing.T) {
	t.Parallel()

	s := &counterSession{}
	obs, err := Poll(context.Background(), s, CSS("tr"), Count(3), time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, obs.Count)
}

func TestPoll_SingleCheck(t *testing.T) {
	t.Parallel()

	s := &counterSession{}
	obs, err := Poll(context.Background(), s, CSS("tr"), Count(3), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConditionNotMet))
	assert.Equal(t, 1, obs.Count)
	assert.Contains(t, err.Error(), "tr: expected count 3, got count 1")
}

func TestPoll_Timeout(t *testing.T) {
	t.Parallel()

	s := &counterSession{url: "http://x/admin/collections/posts/create"}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	obs, err := Poll(ctx, s, Selector{}, URLNotContains("create"), 5*time.Millisecond)
	require.ErrorIs(t, err, ErrConditionNotMet)
	assert.Equal(t, s.url, obs.URL)
}
