package harness

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/alessio/shellescape"
	"github.com/fatih/color"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// TestLogger receives scenario progress
type TestLogger interface {
	TestStarted(id TestID)
	TestError(id TestID, err error)
	TestFinished(id TestID, failed bool, debugOutput CapturedOutput)
	TestSkipped(id TestID, reason string)
}

type nullTestLogger struct{}

func (n nullTestLogger) TestStarted(TestID)                        {}
func (n nullTestLogger) TestError(TestID, error)                   {}
func (n nullTestLogger) TestFinished(TestID, bool, CapturedOutput) {}
func (n nullTestLogger) TestSkipped(TestID, string)                {}

type CapturedMessage struct {
	Time    time.Time
	Message string
}

type CapturedOutput []CapturedMessage

// CapturingLogger keeps a scenario's debug output until the scenario ends
type CapturingLogger struct {
	output []CapturedMessage
	lock   sync.Mutex
}

func (l *CapturingLogger) Printf(message string, args ...any) {
	l.add(fmt.Sprintf(message, args...))
}

func (l *CapturingLogger) add(message string) {
	l.lock.Lock()
	l.output = append(l.output, CapturedMessage{Time: time.Now(), Message: message})
	l.lock.Unlock()
}

func (l *CapturingLogger) Output() CapturedOutput {
	l.lock.Lock()
	ret := append([]CapturedMessage(nil), l.output...)
	l.lock.Unlock()
	return ret
}

// Write accepts one or more log lines, so a slog handler can write into
// the capture
func (l *CapturingLogger) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		l.add(string(line))
	}
	return len(p), nil
}

// Slog returns a logger whose records land in the capture
func (l *CapturingLogger) Slog() *slog.Logger {
	return slog.New(slog.NewTextHandler(l, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// the capture carries its own timestamp
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func (output CapturedOutput) Dump(dest io.Writer, prefix string) {
	for _, m := range output {
		fmt.Fprintf(dest, "%s[%s] %s\n",
			prefix,
			m.Time.Format(timestampFormat),
			m.Message,
		)
	}
}

// ConsoleTestLogger prints progress for humans
type ConsoleTestLogger struct {
	Out                  io.Writer
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
	// Command is the runner's command line without filters. When set, each
	// failure prints the command that reruns only that scenario.
	Command []string
}

func (c *ConsoleTestLogger) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *ConsoleTestLogger) TestStarted(id TestID) {
	color.New(color.Bold).Fprintf(c.out(), "[%s]\n", id)
}

func (c *ConsoleTestLogger) TestError(id TestID, err error) {
	red := color.New(color.FgRed)
	for _, line := range strings.Split(err.Error(), "\n") {
		red.Fprintf(c.out(), "  %s\n", line)
	}
}

func (c *ConsoleTestLogger) TestFinished(id TestID, failed bool, debugOutput CapturedOutput) {
	if failed {
		color.New(color.FgRed, color.Bold).Fprintf(c.out(), "  FAILED: %s\n", id)
		if hint := c.RerunHint(id); hint != "" {
			fmt.Fprintf(c.out(), "  rerun with: %s\n", hint)
		}
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		debugOutput.Dump(c.out(), "    DEBUG ")
	}
}

func (c *ConsoleTestLogger) TestSkipped(id TestID, reason string) {
	yellow := color.New(color.FgYellow)
	if reason == "" {
		yellow.Fprintf(c.out(), "  SKIPPED: %s\n", id)
	} else {
		yellow.Fprintf(c.out(), "  SKIPPED: %s (%s)\n", id, reason)
	}
}

// RerunHint is a shell command selecting only id, or "" without a Command
func (c *ConsoleTestLogger) RerunHint(id TestID) string {
	if len(c.Command) == 0 {
		return ""
	}
	args := append(append([]string(nil), c.Command...), "--run", "^"+regexp.QuoteMeta(id.String())+"$")
	return shellescape.QuoteCommand(args)
}
