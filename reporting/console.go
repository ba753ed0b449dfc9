// Package reporting renders run output for humans: a live console
// narrative of the event stream and a summary table for completed runs.
package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/specforge/specforge/events"
	"github.com/specforge/specforge/types"
)

// StatusDisplay represents display information for a test status
type StatusDisplay struct {
	Text  string
	Color text.Color
}

func getStatusDisplay(status types.TestStatus) StatusDisplay {
	switch status {
	case types.TestStatusSucceeded:
		return StatusDisplay{Text: "PASS", Color: text.FgGreen}
	case types.TestStatusFailed:
		return StatusDisplay{Text: "FAIL", Color: text.FgRed}
	case types.TestStatusPending:
		return StatusDisplay{Text: "PEND", Color: text.FgYellow}
	case types.TestStatusCanceled:
		return StatusDisplay{Text: "CANC", Color: text.FgYellow}
	case types.TestStatusIgnored:
		return StatusDisplay{Text: "SKIP", Color: text.FgCyan}
	case types.TestStatusAborted:
		return StatusDisplay{Text: "ABRT", Color: text.FgRed}
	default:
		return StatusDisplay{Text: "UNKNOWN", Color: text.FgWhite}
	}
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}

// ConsoleSink writes a live narrative of the event stream, indenting
// tests under their scopes. It implements events.Reporter.
type ConsoleSink struct {
	mu     sync.Mutex
	w      io.Writer
	depth  int
	colors bool
}

// NewConsoleSink writes the narrative to w. Colors are off by default so
// piped output stays clean.
func NewConsoleSink(w io.Writer, colors bool) *ConsoleSink {
	return &ConsoleSink{w: w, colors: colors}
}

func (c *ConsoleSink) colorize(color text.Color, s string) string {
	if !c.colors {
		return s
	}
	return color.Sprint(s)
}

func (c *ConsoleSink) indent() string {
	return strings.Repeat("  ", c.depth)
}

// OnEvent renders one event.
func (c *ConsoleSink) OnEvent(event events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch event.Kind {
	case events.RunStarting:
		fmt.Fprintf(c.w, "=== %s\n", event.Message)
	case events.RunCompleted:
		fmt.Fprintf(c.w, "=== done: %s\n", event.Message)
	case events.RunAborted:
		fmt.Fprintf(c.w, "=== %s: %s\n", c.colorize(text.FgRed, "ABORTED"), event.Message)
	case events.ScopeOpened:
		fmt.Fprintf(c.w, "%s%s\n", c.indent(), event.Message)
		c.depth++
	case events.ScopeClosed:
		if c.depth > 0 {
			c.depth--
		}
	case events.TestStarting:
		// The terminal event carries the whole line.
	case events.TestIgnored:
		display := getStatusDisplay(types.TestStatusIgnored)
		fmt.Fprintf(c.w, "%s%s %s\n", c.indent(), c.colorize(display.Color, display.Text), event.TestName)
	case events.InfoProvided, events.NoteProvided, events.AlertProvided, events.MarkupProvided:
		fmt.Fprintf(c.w, "%s+ %s\n", c.indent(), event.Message)
	default:
		if !event.Kind.Terminal() {
			return
		}
		display := getStatusDisplay(event.Status)
		line := fmt.Sprintf("%s%s %s (%s)", c.indent(), c.colorize(display.Color, display.Text),
			event.TestName, formatDuration(event.Duration))
		if event.Message != "" {
			line += " " + event.Message
		}
		fmt.Fprintln(c.w, line)
		if event.Throwable != nil {
			fmt.Fprintf(c.w, "%s    %s\n", c.indent(), event.Throwable.Message)
			if event.Throwable.FileName != "" {
				fmt.Fprintf(c.w, "%s    at %s:%d\n", c.indent(), event.Throwable.FileName, event.Throwable.LineNumber)
			}
		}
		for _, rec := range event.RecordedEvents {
			fmt.Fprintf(c.w, "%s    + %s\n", c.indent(), rec.Message)
		}
	}
}
