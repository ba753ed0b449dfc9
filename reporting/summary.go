package reporting

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/specforge/specforge/runner"
)

// ReportWriter defines the interface for writing reports to various destinations
type ReportWriter interface {
	Write(content string) error
}

// FileWriter writes reports to a file
type FileWriter struct {
	path string
}

// NewFileWriter creates a new file writer
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{path: path}
}

// Write writes the content to the file
func (fw *FileWriter) Write(content string) error {
	return os.WriteFile(fw.path, []byte(content), 0644)
}

// StdoutWriter writes reports to stdout
type StdoutWriter struct{}

// NewStdoutWriter creates a new stdout writer
func NewStdoutWriter() *StdoutWriter {
	return &StdoutWriter{}
}

// Write writes the content to stdout
func (sw *StdoutWriter) Write(content string) error {
	_, err := fmt.Print(content)
	return err
}

// SummaryFormatter renders a completed run as a table.
type SummaryFormatter struct {
	Colors bool
}

// Format renders the per-test table and a totals footer.
func (f *SummaryFormatter) Format(result *runner.Result) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Status", "Test", "Duration"})

	for _, rec := range result.Records {
		display := getStatusDisplay(rec.Outcome.Status)
		status := display.Text
		if f.Colors {
			status = display.Color.Sprint(status)
		}
		t.AppendRow(table.Row{status, rec.Name, formatDuration(rec.Outcome.Duration)})
	}

	t.AppendFooter(table.Row{
		string(result.Status()),
		fmt.Sprintf("%d tests: %d passed, %d failed, %d pending, %d canceled, %d ignored",
			result.Stats.Total, result.Stats.Succeeded, result.Stats.Failed,
			result.Stats.Pending, result.Stats.Canceled, result.Stats.Ignored),
		formatDuration(result.Duration()),
	})

	out := t.Render() + "\n"
	if result.AbortErr != nil {
		abort := fmt.Sprintf("run aborted: %v\n", result.AbortErr)
		if f.Colors {
			abort = text.FgRed.Sprint(abort)
		}
		out += abort
	}
	return out
}
