package specforge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specforge/specforge/logging"
	"github.com/specforge/specforge/types"
)

func harnessConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		LogDir:  t.TempDir(),
		RunOnce: true,
		Colors:  false,
		Log:     discardLogger(),
	}
}

func TestHarnessValidatesInputs(t *testing.T) {
	ctx := context.Background()
	cfg := harnessConfig(t)
	defs := []SuiteDefinition{{Name: "ok", Define: func(*Suite) {}}}

	_, err := New(ctx, nil, "v0", defs, nil)
	require.ErrorContains(t, err, "config is required")

	_, err = New(ctx, cfg, "v0", nil, nil)
	require.ErrorContains(t, err, "at least one suite definition")

	_, err = New(ctx, cfg, "v0", []SuiteDefinition{{Define: func(*Suite) {}}}, nil)
	require.ErrorContains(t, err, "needs a name")

	_, err = New(ctx, cfg, "v0", []SuiteDefinition{{Name: "no body"}}, nil)
	require.ErrorContains(t, err, "no define callback")
}

func TestHarnessRunOncePassingSuites(t *testing.T) {
	cfg := harnessConfig(t)
	defs := []SuiteDefinition{
		{Name: "first", Define: func(s *Suite) {
			s.Test("adds", func() {})
			s.Test("subtracts", func() {})
		}},
		{Name: "second", Define: func(s *Suite) {
			s.Test("multiplies", func() {})
		}},
	}

	shutdown := make(chan error, 1)
	h, err := New(context.Background(), cfg, "v0", defs, func(err error) { shutdown <- err })
	require.NoError(t, err)

	require.NoError(t, h.Start(context.Background()))

	select {
	case err := <-shutdown:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown callback never fired")
	}

	results := h.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].SuiteName)
	assert.Equal(t, 2, results[0].Stats.Succeeded)
	assert.Equal(t, "second", results[1].SuiteName)
	assert.Equal(t, types.TestStatusSucceeded, results[1].Status())
}

func TestHarnessRunOnceFailingSuite(t *testing.T) {
	cfg := harnessConfig(t)
	defs := []SuiteDefinition{
		{Name: "healthy", Define: func(s *Suite) {
			s.Test("fine", func() {})
		}},
		{Name: "broken", Define: func(s *Suite) {
			s.Test("explodes", func() error { return errors.New("boom") })
		}},
	}

	h, err := New(context.Background(), cfg, "v0", defs, func(error) {})
	require.NoError(t, err)

	err = h.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsTestFailureError(err))
	assert.ErrorContains(t, err, "broken")
	assert.NotContains(t, err.Error(), "healthy")
}

func TestHarnessSuiteConstructionErrorIsRuntime(t *testing.T) {
	cfg := harnessConfig(t)
	defs := []SuiteDefinition{
		{Name: "misdeclared", Define: func(s *Suite) {
			s.Test("same", func() {})
			s.Test("same", func() {})
		}},
	}

	h, err := New(context.Background(), cfg, "v0", defs, func(error) {})
	require.NoError(t, err)

	err = h.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
}

func TestHarnessWritesRunArtifacts(t *testing.T) {
	cfg := harnessConfig(t)
	defs := []SuiteDefinition{
		{Name: "artifacts", Define: func(s *Suite) {
			s.Test("passes", func() {})
			s.Test("fails", func() error { return errors.New("expected 4, got 5") })
		}},
	}

	h, err := New(context.Background(), cfg, "v0", defs, func(error) {})
	require.NoError(t, err)
	_ = h.Start(context.Background())

	entries, err := os.ReadDir(cfg.LogDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	runDir := filepath.Join(cfg.LogDir, entries[0].Name())
	assert.Contains(t, entries[0].Name(), logging.RunDirectoryPrefix)

	for _, name := range []string{logging.EventsFilename, logging.SummaryFilename} {
		_, err := os.Stat(filepath.Join(runDir, name))
		assert.NoError(t, err, name)
	}

	failures, err := os.ReadDir(filepath.Join(runDir, logging.FailedDirname))
	require.NoError(t, err)
	assert.Len(t, failures, 1)
}

func TestHarnessStopIsSafeWhenNeverStarted(t *testing.T) {
	cfg := harnessConfig(t)
	h, err := New(context.Background(), cfg, "v0",
		[]SuiteDefinition{{Name: "idle", Define: func(*Suite) {}}}, func(error) {})
	require.NoError(t, err)

	assert.True(t, h.Stopped())
	require.NoError(t, h.Stop(context.Background()))
}
