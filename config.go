package specforge

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/specforge/specforge/flags"
)

// Config holds the harness configuration.
type Config struct {
	LogDir      string        // Directory to store run artifacts
	RunInterval time.Duration // Interval between runs
	RunOnce     bool          // Indicates if the harness should exit after one run

	Parallel    bool     // Run tests within each scope concurrently
	Concurrency int      // Number of concurrent test workers (0 = auto-determine)
	Shuffle     bool     // Randomize concurrent test start order
	ShuffleSeed string   // Seed for reproducible shuffles
	IncludeTags []string // Whitelist tags
	ExcludeTags []string // Silently excluded tags
	FilterExpr  string   // Expression over Name and Tags
	NameGlobs   []string // Globs over the slash-joined scope path
	Colors      bool     // Colorize console output

	Log log.Logger
}

// fileConfig is the YAML shape of a run configuration file. Every field
// is optional; CLI flags that were explicitly set win over file values.
type fileConfig struct {
	LogDir      string   `yaml:"log_dir"`
	RunInterval string   `yaml:"run_interval"`
	Parallel    *bool    `yaml:"parallel"`
	Concurrency *int     `yaml:"concurrency"`
	Shuffle     *bool    `yaml:"shuffle"`
	ShuffleSeed string   `yaml:"shuffle_seed"`
	IncludeTags []string `yaml:"include_tags"`
	ExcludeTags []string `yaml:"exclude_tags"`
	FilterExpr  string   `yaml:"filter"`
	NameGlobs   []string `yaml:"run"`
	Colors      *bool    `yaml:"colors"`
}

// loadFileConfig reads and parses a YAML run configuration file.
func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	if fc.RunInterval != "" {
		if _, err := time.ParseDuration(fc.RunInterval); err != nil {
			return nil, fmt.Errorf("invalid run_interval in config file %q: %w", path, err)
		}
	}
	return &fc, nil
}

// NewConfig creates a new Config from cli context, layering an optional
// YAML run configuration file underneath the flags.
func NewConfig(ctx *cli.Context, logger log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	cfg := &Config{
		LogDir:      ctx.String(flags.LogDir.Name),
		RunInterval: ctx.Duration(flags.RunInterval.Name),
		Parallel:    ctx.Bool(flags.Parallel.Name),
		Concurrency: ctx.Int(flags.Concurrency.Name),
		Shuffle:     ctx.Bool(flags.Shuffle.Name),
		ShuffleSeed: ctx.String(flags.ShuffleSeed.Name),
		IncludeTags: ctx.StringSlice(flags.IncludeTags.Name),
		ExcludeTags: ctx.StringSlice(flags.ExcludeTags.Name),
		FilterExpr:  ctx.String(flags.FilterExpr.Name),
		NameGlobs:   ctx.StringSlice(flags.NameGlobs.Name),
		Colors:      ctx.Bool(flags.Colors.Name),
		Log:         logger,
	}

	if path := ctx.String(flags.RunConfig.Name); path != "" {
		fc, err := loadFileConfig(path)
		if err != nil {
			return nil, err
		}
		cfg.applyFile(ctx, fc)
	}

	cfg.RunOnce = cfg.RunInterval == 0

	logDir, err := filepath.Abs(cfg.LogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory %q: %w", cfg.LogDir, err)
	}
	cfg.LogDir = logDir

	return cfg, nil
}

// applyFile fills in file values for everything the user did not set on
// the command line.
func (c *Config) applyFile(ctx *cli.Context, fc *fileConfig) {
	if fc.LogDir != "" && !ctx.IsSet(flags.LogDir.Name) {
		c.LogDir = fc.LogDir
	}
	if fc.RunInterval != "" && !ctx.IsSet(flags.RunInterval.Name) {
		// Validated during load.
		c.RunInterval, _ = time.ParseDuration(fc.RunInterval)
	}
	if fc.Parallel != nil && !ctx.IsSet(flags.Parallel.Name) {
		c.Parallel = *fc.Parallel
	}
	if fc.Concurrency != nil && !ctx.IsSet(flags.Concurrency.Name) {
		c.Concurrency = *fc.Concurrency
	}
	if fc.Shuffle != nil && !ctx.IsSet(flags.Shuffle.Name) {
		c.Shuffle = *fc.Shuffle
	}
	if fc.ShuffleSeed != "" && !ctx.IsSet(flags.ShuffleSeed.Name) {
		c.ShuffleSeed = fc.ShuffleSeed
	}
	if len(fc.IncludeTags) > 0 && !ctx.IsSet(flags.IncludeTags.Name) {
		c.IncludeTags = fc.IncludeTags
	}
	if len(fc.ExcludeTags) > 0 && !ctx.IsSet(flags.ExcludeTags.Name) {
		c.ExcludeTags = fc.ExcludeTags
	}
	if fc.FilterExpr != "" && !ctx.IsSet(flags.FilterExpr.Name) {
		c.FilterExpr = fc.FilterExpr
	}
	if len(fc.NameGlobs) > 0 && !ctx.IsSet(flags.NameGlobs.Name) {
		c.NameGlobs = fc.NameGlobs
	}
	if fc.Colors != nil && !ctx.IsSet(flags.Colors.Name) {
		c.Colors = *fc.Colors
	}
}
