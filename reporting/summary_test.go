package reporting

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specforge/specforge/runner"
	"github.com/specforge/specforge/types"
)

func sampleResult() *runner.Result {
	started := time.Now().Add(-2 * time.Second)
	return &runner.Result{
		RunID:     "run-1",
		SuiteName: "sample",
		Started:   started,
		Finished:  started.Add(2 * time.Second),
		Records: []runner.TestRecord{
			{Name: "adds", Outcome: types.Outcome{Status: types.TestStatusSucceeded, Duration: 4 * time.Millisecond}},
			{Name: "divides by zero", Outcome: types.Outcome{Status: types.TestStatusFailed, Err: errors.New("boom"), Duration: time.Millisecond}},
			{Name: "future work", Outcome: types.Outcome{Status: types.TestStatusPending}},
		},
		Stats: runner.ResultStats{Total: 3, Succeeded: 1, Failed: 1, Pending: 1},
	}
}

func TestSummaryFormatterRendersTable(t *testing.T) {
	f := &SummaryFormatter{}
	out := f.Format(sampleResult())

	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "PEND")
	assert.Contains(t, out, "divides by zero")
	assert.Contains(t, out, "3 tests: 1 passed, 1 failed, 1 pending, 0 canceled, 0 ignored")
	assert.Contains(t, out, string(types.TestStatusFailed))
}

func TestSummaryFormatterNotesAbort(t *testing.T) {
	res := sampleResult()
	res.AbortErr = types.NewFatalError(errors.New("disk gone"))

	out := (&SummaryFormatter{}).Format(res)
	assert.Contains(t, out, "run aborted")
	assert.Contains(t, out, "disk gone")
}

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.txt")
	require.NoError(t, NewFileWriter(path).Write("report body\n"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "report body\n", string(content))
}
