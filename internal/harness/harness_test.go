package harness

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/admin-e2e/internal/browser"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// stubSession answers every read from fixed state and never waits
type stubSession struct {
	url      string
	counts   map[string]int
	texts    map[string]string
	snapshot *browser.Snapshot
	awaitErr error
}

func (s *stubSession) Goto(ctx context.Context, url string) error { s.url = url; return nil }
func (s *stubSession) URL(ctx context.Context) (string, error)    { return s.url, nil }
func (s *stubSession) Click(ctx context.Context, sel browser.Selector) error {
	return nil
}
func (s *stubSession) Fill(ctx context.Context, sel browser.Selector, v string) error {
	return nil
}
func (s *stubSession) Count(ctx context.Context, sel browser.Selector) (int, error) {
	return s.counts[sel.String()], nil
}
func (s *stubSession) Text(ctx context.Context, sel browser.Selector) (string, error) {
	return s.texts[strings.TrimSuffix(sel.String(), " >> nth=0")], nil
}
func (s *stubSession) Value(ctx context.Context, sel browser.Selector) (string, error) {
	return "", nil
}
func (s *stubSession) Visible(ctx context.Context, sel browser.Selector) (bool, error) {
	return true, nil
}
func (s *stubSession) Await(ctx context.Context, sel browser.Selector, cond browser.Condition) (browser.Observation, error) {
	if s.awaitErr != nil {
		return browser.Observation{}, s.awaitErr
	}
	return browser.Poll(ctx, s, sel, cond, 0)
}
func (s *stubSession) AwaitURL(ctx context.Context, cond browser.Condition) (string, error) {
	obs, err := browser.Poll(ctx, s, browser.Selector{}, cond, 0)
	return obs.URL, err
}
func (s *stubSession) Snapshot(ctx context.Context) (*browser.Snapshot, error) {
	if s.snapshot == nil {
		return nil, errors.New("no page")
	}
	return s.snapshot, nil
}
func (s *stubSession) Close() error { return nil }

// ============================================================================
// Expectations
// ============================================================================

func TestExpect_Holds(t *testing.T) {
	t.Parallel()

	s := &stubSession{
		url:    "http://localhost:3000/admin/collections/posts?page=2",
		counts: map[string]int{"table >> tbody >> tr": 1, ".per-page": 1},
		texts:  map[string]string{".per-page": " Per Page:  10 "},
	}
	ctx := context.Background()

	assert.NoError(t, Expect(s, browser.Parse("table >> tbody >> tr")).ToHaveCount(ctx, 1))
	assert.NoError(t, Expect(s, browser.CSS(".per-page")).ToHaveText(ctx, "Per Page: 10"))
	assert.NoError(t, Expect(s, browser.CSS(".per-page")).ToContainText(ctx, "Page"))
	assert.NoError(t, Expect(s, browser.CSS(".per-page")).ToBeVisible(ctx))
	assert.NoError(t, ExpectURL(s).ToContain(ctx, "?page=2"))
	assert.NoError(t, ExpectURL(s).NotToContain(ctx, "/create"))
}

func TestExpect_AssertionError(t *testing.T) {
	t.Parallel()

	s := &stubSession{counts: map[string]int{"table >> tbody >> tr": 10}}
	err := Expect(s, browser.Parse("table >> tbody >> tr")).WithTimeout(time.Second).ToHaveCount(context.Background(), 1)

	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "table >> tbody >> tr", aerr.Selector)
	assert.Equal(t, "count 1", aerr.Expected)
	assert.Equal(t, "count 10", aerr.Observed)
	assert.ErrorIs(t, err, browser.ErrConditionNotMet)
	assert.Contains(t, err.Error(), "within 1s")
}

func TestExpectURL_AssertionError(t *testing.T) {
	t.Parallel()

	s := &stubSession{url: "http://h/admin/collections/posts/create"}
	err := ExpectURL(s).NotToContain(context.Background(), "/create")

	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Empty(t, aerr.Selector)
	assert.Contains(t, aerr.Observed, "/create")
	assert.Contains(t, err.Error(), "expected page")
}

func TestExpect_DriverErrorPassesThrough(t *testing.T) {
	t.Parallel()

	s := &stubSession{awaitErr: browser.ErrClosed}
	err := Expect(s, browser.CSS("#x")).ToHaveCount(context.Background(), 1)

	assert.ErrorIs(t, err, browser.ErrClosed)
	var aerr *AssertionError
	assert.False(t, errors.As(err, &aerr))
}

// ============================================================================
// Runner
// ============================================================================

type recordingLogger struct {
	events []string
}

func (l *recordingLogger) TestStarted(id TestID) { l.events = append(l.events, "start "+id.String()) }
func (l *recordingLogger) TestError(id TestID, err error) {
	l.events = append(l.events, "error "+id.String())
}
func (l *recordingLogger) TestFinished(id TestID, failed bool, _ CapturedOutput) {
	if failed {
		l.events = append(l.events, "fail "+id.String())
	} else {
		l.events = append(l.events, "pass "+id.String())
	}
}
func (l *recordingLogger) TestSkipped(id TestID, reason string) {
	l.events = append(l.events, "skip "+id.String())
}

func TestRun_NestedResults(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	results := Run(nil, logger, func(c *Context) {
		c.Run("posts", func(c *Context) {
			c.Run("ok", func(c *Context) {})
			c.Run("fails", func(c *Context) {
				require.Equal(c, 1, 2)
				c.Errorf("not reached")
			})
			c.Run("skips", func(c *Context) {
				c.SkipWithReason("not today")
			})
			c.Run("panics", func(c *Context) {
				var m map[string]int
				m["x"] = 1
			})
		})
	})

	assert.False(t, results.OK())
	assert.Len(t, results.Tests, 4, "the posts group is not a test of its own")
	require.Len(t, results.Failures, 2)
	assert.Equal(t, "posts/fails", results.Failures[0].TestID.String())
	assert.Len(t, results.Failures[0].Errors, 1)
	assert.Equal(t, "posts/panics", results.Failures[1].TestID.String())
	assert.Contains(t, results.Failures[1].Errors[0].Error(), "unexpected panic")
	require.Len(t, results.Skipped, 1)
	assert.Equal(t, "not today", results.Skipped[0].SkipReason)
	assert.Equal(t, 1, results.Passed())

	assert.Contains(t, logger.events, "pass posts/ok")
	assert.NotContains(t, logger.events, "pass posts")
	assert.Contains(t, logger.events, "fail posts/fails")
	assert.Contains(t, logger.events, "skip posts/skips")

	errs := results.Errors()
	require.Len(t, errs, 2)
	assert.True(t, strings.HasPrefix(errs[0].Error(), "[posts/fails]"))
}

func TestRun_GroupFailsOnItsOwn(t *testing.T) {
	t.Parallel()

	results := Run(nil, nil, func(c *Context) {
		c.Run("posts", func(c *Context) {
			c.AfterEach(func(c *Context) error { return nil })
			c.Run("ok", func(c *Context) {})
			c.Errorf("group level problem")
		})
	})

	require.Len(t, results.Failures, 1)
	assert.Equal(t, "posts", results.Failures[0].TestID.String())
	assert.Len(t, results.Tests, 2)
	assert.Equal(t, 1, results.Passed())
}

func TestRun_Filter(t *testing.T) {
	t.Parallel()

	var ran []string
	var filters RegexFilters
	require.NoError(t, filters.MustMatch.Set("^posts"))
	require.NoError(t, filters.MustNotMatch.Set("delete$"))
	Run(filters.AsFilter, nil, func(c *Context) {
		c.Run("posts", func(c *Context) {
			for _, name := range []string{"create", "delete", "update"} {
				c.Run(name, func(c *Context) { ran = append(ran, c.ID().String()) })
			}
		})
		c.Run("globals", func(c *Context) { ran = append(ran, "globals") })
	})
	assert.Equal(t, []string{"posts/create", "posts/update"}, ran)
}

func TestRun_Hooks(t *testing.T) {
	t.Parallel()

	var events []string
	results := Run(nil, nil, func(c *Context) {
		c.BeforeEach(func(c *Context) error {
			events = append(events, "before "+c.ID().String())
			return nil
		})
		c.AfterEach(func(c *Context) error {
			events = append(events, "after "+c.ID().String())
			return nil
		})
		c.Run("a", func(c *Context) { events = append(events, "run a") })
		c.Run("b", func(c *Context) {
			events = append(events, "run b")
			c.FailNow()
		})
	})

	assert.Equal(t, []string{
		"before a", "run a", "after a",
		"before b", "run b", "after b",
	}, events)
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "b", results.Failures[0].TestID.String())
}

func TestRun_SetupFailureAborts(t *testing.T) {
	t.Parallel()

	ran := false
	results := Run(nil, nil, func(c *Context) {
		c.Run("suite", func(c *Context) {
			if !c.Setup("login", func(ctx context.Context) error {
				return errors.New("bad credentials")
			}) {
				assert.Error(t, c.Aborted())
			}
			c.Run("after", func(c *Context) { ran = true })
		})
		c.Run("other", func(c *Context) { ran = true })
	})

	assert.False(t, ran)
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "suite/login", results.Failures[0].TestID.String())
	require.Len(t, results.Skipped, 2)
	assert.Contains(t, results.Skipped[0].SkipReason, "bad credentials")
}

func TestRun_TeardownFailureAborts(t *testing.T) {
	t.Parallel()

	var ran []string
	results := Run(nil, nil, func(c *Context) {
		c.AfterEach(func(c *Context) error {
			return errors.New("store unreachable")
		})
		c.Run("first", func(c *Context) { ran = append(ran, "first") })
		c.Run("second", func(c *Context) { ran = append(ran, "second") })
	})

	assert.Equal(t, []string{"first"}, ran)
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "first", results.Failures[0].TestID.String())
	require.Len(t, results.Skipped, 1)
	assert.Equal(t, "second", results.Skipped[0].TestID.String())
}

func TestRun_ArtifactsOnFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := &stubSession{snapshot: &browser.Snapshot{
		URL:        "http://h/admin",
		HTML:       "<html></html>",
		Screenshot: []byte("\x89PNG...."),
		Console:    []string{"console.log: hi"},
	}}

	Run(nil, nil, func(c *Context) {
		c.Attach(s)
		c.Run("posts", func(c *Context) {
			c.Run("passes", func(c *Context) {})
			c.Run("delete post", func(c *Context) { c.Errorf("boom") })
		})
	}, WithArtifacts(NewArtifacts(dir)))

	out := filepath.Join(dir, "posts__delete_post")
	html, err := os.ReadFile(filepath.Join(out, "page.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(html))
	assert.FileExists(t, filepath.Join(out, "screenshot.png"))
	assert.FileExists(t, filepath.Join(out, "console.log"))
	assert.NoDirExists(t, filepath.Join(dir, "posts__passes"))
}

func TestContext_LoggerCaptures(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := &ConsoleTestLogger{Out: &buf, DebugOutputOnFailure: true}
	Run(nil, logger, func(c *Context) {
		c.Run("x", func(c *Context) {
			c.Logger().Info("created post", "id", "abc")
			c.Errorf("failed")
		})
	})

	assert.Contains(t, buf.String(), "DEBUG ")
	assert.Contains(t, buf.String(), `msg="created post" id=abc`)
	assert.NotContains(t, buf.String(), "time=")
}

// ============================================================================
// Console output
// ============================================================================

func TestConsoleTestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := &ConsoleTestLogger{Out: &buf, Command: []string{"admin-e2e", "--url", "http://h:3000"}}
	id := TestID{Path: []string{"posts", "delete post"}}

	logger.TestStarted(id)
	logger.TestError(id, errors.New("line one\nline two"))
	logger.TestFinished(id, true, nil)
	logger.TestSkipped(id, "why")

	out := buf.String()
	assert.Contains(t, out, "[posts/delete post]\n")
	assert.Contains(t, out, "  line one\n  line two\n")
	assert.Contains(t, out, "FAILED: posts/delete post")
	assert.Contains(t, out, `rerun with: admin-e2e --url http://h:3000 --run '^posts/delete post$'`)
	assert.Contains(t, out, "SKIPPED: posts/delete post (why)")
}

func TestPrintResults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	PrintResults(&buf, Results{
		Tests:    make([]TestResult, 4),
		Failures: []TestResult{{TestID: TestID{Path: []string{"a", "b"}}}},
		Skipped:  []TestResult{{}},
	})
	assert.Contains(t, buf.String(), "FAILED TESTS (1):\n* a/b\n")
	assert.Contains(t, buf.String(), "2 passed, 1 failed, 1 skipped")
}

// ============================================================================
// Filters
// ============================================================================

func TestRegexList_PflagValue(t *testing.T) {
	t.Parallel()

	var filters RegexFilters
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Var(&filters.MustMatch, "run", "")
	fs.Var(&filters.MustNotMatch, "skip", "")

	require.NoError(t, fs.Parse([]string{"--run", "posts", "--run", "globals", "--skip", "sort"}))
	assert.Equal(t, `"posts" or "globals"`, filters.MustMatch.String())
	assert.True(t, filters.AsFilter(TestID{Path: []string{"globals", "save"}}))
	assert.False(t, filters.AsFilter(TestID{Path: []string{"posts", "sort"}}))
	assert.False(t, filters.AsFilter(TestID{Path: []string{"users"}}))

	assert.Error(t, fs.Parse([]string{"--run", "("}))
}

func TestArtifacts_PathFor(t *testing.T) {
	t.Parallel()

	a := NewArtifacts("/tmp/out")
	assert.Equal(t, filepath.Join("/tmp/out", "Posts__delete_a_post___"), a.PathFor(TestID{Path: []string{"Posts", "delete a post", "?"}}))
	assert.Nil(t, NewArtifacts(""))
}
