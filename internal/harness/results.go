package harness

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

// TestID is the path of a scenario in the run tree
type TestID struct {
	Path []string
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}

// Plus returns the ID of a child scenario
func (t TestID) Plus(name string) TestID {
	path := make([]string, len(t.Path), len(t.Path)+1)
	copy(path, t.Path)
	return TestID{Path: append(path, name)}
}

type TestResult struct {
	TestID     TestID
	Errors     []error
	Skipped    bool
	SkipReason string
	Duration   time.Duration
}

type Results struct {
	Tests    []TestResult
	Failures []TestResult
	Skipped  []TestResult
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// Passed counts scenarios that ran without failing
func (r Results) Passed() int {
	return len(r.Tests) - len(r.Failures) - len(r.Skipped)
}

type TestFailure struct {
	ID  TestID
	Err error
}

func (f TestFailure) Error() string {
	return fmt.Sprintf("[%s]: %s", f.ID, f.Err)
}

func (f TestFailure) Unwrap() error {
	return f.Err
}

// Errors flattens every failure of the run
func (r Results) Errors() []error {
	var errs []error
	for _, f := range r.Failures {
		for _, err := range f.Errors {
			errs = append(errs, TestFailure{ID: f.TestID, Err: err})
		}
	}
	return errs
}

// PrintResults writes the run summary
func PrintResults(w io.Writer, r Results) {
	red := color.New(color.FgRed, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)

	if r.OK() {
		green.Fprintf(w, "All tests passed")
	} else {
		red.Fprintf(w, "FAILED TESTS (%d):", len(r.Failures))
		fmt.Fprintln(w)
		for _, f := range r.Failures {
			fmt.Fprintf(w, "* %s\n", f.TestID)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d passed, %d failed", r.Passed(), len(r.Failures))
	if len(r.Skipped) > 0 {
		yellow.Fprintf(w, ", %d skipped", len(r.Skipped))
	}
	fmt.Fprintln(w)
}
