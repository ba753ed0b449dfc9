// Package logging persists run artifacts to disk: the raw event stream,
// a human-readable summary and one file per failed test.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/specforge/specforge/events"
)

const (
	RunDirectoryPrefix = "specrun-" // Standardized prefix for run directories
	EventsFilename     = "events.log"
	SummaryFilename    = "summary.log"
	FailedDirname      = "failed"
)

// FileLogger handles writing a run's event stream to files. It implements
// events.Reporter, so it can be fanned in next to any other sink.
type FileLogger struct {
	baseDir   string
	logDir    string
	failedDir string
	runID     string

	mu       sync.Mutex
	events   *AsyncFile
	failures map[string][]string // failed test name -> detail lines
	ordered  []string            // failure names in arrival order
	counts   map[events.Kind]int
	started  time.Time
}

// AsyncFile provides non-blocking file writing capabilities
type AsyncFile struct {
	file    *os.File
	queue   chan []byte
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewAsyncFile creates a new AsyncFile for non-blocking writes
func NewAsyncFile(path string) (*AsyncFile, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", path, err)
	}

	af := &AsyncFile{
		file:  file,
		queue: make(chan []byte, 100), // Buffer channel to reduce blocking
	}

	af.wg.Add(1)
	go af.processQueue()

	return af, nil
}

// Write queues data to be written asynchronously
func (af *AsyncFile) Write(data []byte) error {
	af.mu.Lock()
	defer af.mu.Unlock()

	if af.stopped {
		return fmt.Errorf("async file is closed")
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	af.queue <- dataCopy
	return nil
}

func (af *AsyncFile) processQueue() {
	defer af.wg.Done()

	for data := range af.queue {
		if _, err := af.file.Write(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing to file: %v\n", err)
		}
	}
}

// Close stops the async writer and closes the file
func (af *AsyncFile) Close() error {
	af.mu.Lock()
	if !af.stopped {
		af.stopped = true
		close(af.queue)
	}
	af.mu.Unlock()

	af.wg.Wait()
	return af.file.Close()
}

// NewFileLogger creates a logger rooted at baseDir/specrun-<runID>.
func NewFileLogger(baseDir string, runID string) (*FileLogger, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}

	logDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	failedDir := filepath.Join(logDir, FailedDirname)
	for _, dir := range []string{baseDir, logDir, failedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	eventsFile, err := NewAsyncFile(filepath.Join(logDir, EventsFilename))
	if err != nil {
		return nil, err
	}

	return &FileLogger{
		baseDir:   baseDir,
		logDir:    logDir,
		failedDir: failedDir,
		runID:     runID,
		events:    eventsFile,
		failures:  make(map[string][]string),
		counts:    make(map[events.Kind]int),
		started:   time.Now(),
	}, nil
}

// GetRunID returns the run ID this logger was created for.
func (l *FileLogger) GetRunID() string { return l.runID }

// GetDirectory returns the run's log directory.
func (l *FileLogger) GetDirectory() string { return l.logDir }

// OnEvent appends the event to the stream file and accumulates failure
// details for per-test files.
func (l *FileLogger) OnEvent(event events.Event) {
	line := formatEventLine(event)
	if err := l.events.Write([]byte(line + "\n")); err != nil {
		fmt.Fprintf(os.Stderr, "Error recording event: %v\n", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[event.Kind]++

	if event.Kind != events.TestFailed {
		return
	}
	if _, seen := l.failures[event.TestName]; !seen {
		l.ordered = append(l.ordered, event.TestName)
	}
	detail := []string{line}
	if event.Throwable != nil {
		detail = append(detail, "  cause: "+event.Throwable.ClassName+": "+event.Throwable.Message)
		if event.Throwable.FileName != "" {
			detail = append(detail, fmt.Sprintf("  at %s:%d", event.Throwable.FileName, event.Throwable.LineNumber))
		}
	}
	for _, rec := range event.RecordedEvents {
		detail = append(detail, "  "+string(rec.Kind)+": "+cleanMessage(rec.Message))
	}
	l.failures[event.TestName] = append(l.failures[event.TestName], detail...)
}

// Complete writes the summary and per-failure files and closes the event
// stream. Call it once, after the run has finished.
func (l *FileLogger) Complete() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, name := range l.ordered {
		path := filepath.Join(l.failedDir, sanitizeFilename(name)+".log")
		content := strings.Join(l.failures[name], "\n") + "\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write failure log for %q: %w", name, err)
		}
	}

	summary := l.renderSummary()
	if err := os.WriteFile(filepath.Join(l.logDir, SummaryFilename), []byte(summary), 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return l.events.Close()
}

func (l *FileLogger) renderSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", l.runID)
	fmt.Fprintf(&b, "started %s\n", l.started.Format(time.RFC3339))
	fmt.Fprintf(&b, "succeeded=%d failed=%d pending=%d canceled=%d ignored=%d\n",
		l.counts[events.TestSucceeded],
		l.counts[events.TestFailed],
		l.counts[events.TestPending],
		l.counts[events.TestCanceled],
		l.counts[events.TestIgnored])
	if len(l.ordered) > 0 {
		b.WriteString("failed tests:\n")
		for _, name := range l.ordered {
			fmt.Fprintf(&b, "  %s\n", name)
		}
	}
	return b.String()
}

// formatEventLine renders one event as a single log line.
func formatEventLine(event events.Event) string {
	var b strings.Builder
	b.WriteString(event.Timestamp.Format("15:04:05.000"))
	b.WriteString(" ")
	fmt.Fprintf(&b, "%-14s", event.Kind)
	if event.TestName != "" {
		b.WriteString(" " + event.TestName)
	}
	if event.Message != "" {
		b.WriteString(" " + cleanMessage(event.Message))
	}
	if event.Duration > 0 {
		fmt.Fprintf(&b, " (%s)", event.Duration)
	}
	return b.String()
}

// cleanMessage strips terminal color codes and collapses whitespace so
// messages stay single-line in the stream file.
func cleanMessage(msg string) string {
	msg = stripansi.Strip(msg)
	return strings.Join(strings.Fields(msg), " ")
}

// sanitizeFilename converts a test name into a safe file name.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	return replacer.Replace(name)
}
