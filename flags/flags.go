package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "SPECFORGE"

// prefixEnvVars prefixes the environment variable name with the service
// prefix, e.g. LOG_DIR becomes SPECFORGE_LOG_DIR.
func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	RunConfig = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: prefixEnvVars("CONFIG"),
		Usage:   "Path to a run configuration file (eg. 'specforge.yaml')",
	}
	LogDir = &cli.StringFlag{
		Name:    "log-dir",
		Value:   "logs",
		EnvVars: prefixEnvVars("LOG_DIR"),
		Usage:   "Directory to store run artifacts (event stream, summary, failure logs)",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: prefixEnvVars("RUN_INTERVAL"),
		Usage:   "Interval between runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	Parallel = &cli.BoolFlag{
		Name:    "parallel",
		Value:   false,
		EnvVars: prefixEnvVars("PARALLEL"),
		Usage:   "Run tests within each scope concurrently",
	}
	Concurrency = &cli.IntFlag{
		Name:    "concurrency",
		Value:   0,
		EnvVars: prefixEnvVars("CONCURRENCY"),
		Usage:   "Number of concurrent test workers (0 = number of CPUs)",
	}
	Shuffle = &cli.BoolFlag{
		Name:    "shuffle",
		Value:   false,
		EnvVars: prefixEnvVars("SHUFFLE"),
		Usage:   "Randomize the start order of concurrent tests",
	}
	ShuffleSeed = &cli.StringFlag{
		Name:    "shuffle-seed",
		Value:   "",
		EnvVars: prefixEnvVars("SHUFFLE_SEED"),
		Usage:   "Seed for reproducible shuffles (empty derives one from the run ID)",
	}
	IncludeTags = &cli.StringSliceFlag{
		Name:    "include-tag",
		EnvVars: prefixEnvVars("INCLUDE_TAG"),
		Usage:   "Only run tests carrying at least one of these tags (repeatable)",
	}
	ExcludeTags = &cli.StringSliceFlag{
		Name:    "exclude-tag",
		EnvVars: prefixEnvVars("EXCLUDE_TAG"),
		Usage:   "Silently drop tests carrying any of these tags (repeatable)",
	}
	FilterExpr = &cli.StringFlag{
		Name:    "filter",
		Value:   "",
		EnvVars: prefixEnvVars("FILTER"),
		Usage:   "Expression over Name and Tags selecting tests, eg. '\"slow\" not in Tags'",
	}
	NameGlobs = &cli.StringSliceFlag{
		Name:    "run",
		EnvVars: prefixEnvVars("RUN"),
		Usage:   "Glob over the slash-joined scope path selecting tests (repeatable)",
	}
	Colors = &cli.BoolFlag{
		Name:    "colors",
		Value:   false,
		EnvVars: prefixEnvVars("COLORS"),
		Usage:   "Colorize console output",
	}
	ListTests = &cli.BoolFlag{
		Name:    "list",
		Value:   false,
		EnvVars: prefixEnvVars("LIST"),
		Usage:   "Print the registration outline of every suite and exit without running",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Lowest log level that will be output (trace, debug, info, warn, error, crit)",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	RunConfig,
	LogDir,
	RunInterval,
	Parallel,
	Concurrency,
	Shuffle,
	ShuffleSeed,
	IncludeTags,
	ExcludeTags,
	FilterExpr,
	NameGlobs,
	Colors,
	ListTests,
	LogLevel,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
