package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	"github.com/specforge/specforge"
	"github.com/specforge/specforge/acceptance"
	"github.com/specforge/specforge/flags"
	"github.com/specforge/specforge/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "specforge"
	app.Usage = "Asynchronous spec suite runner"
	app.Description = "specforge registers and executes spec-style test suites"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			cli.HandleExitCoder(cli.Exit(err.Error(), specforge.ExitCode(err)))
		}
	}

	// Start telemetry
	shutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start healthz and metrics servers
	svc := service.New()
	svc.Start(ctx)
	defer svc.Shutdown()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(cliCtx *cli.Context) error {
	logger := newLogger(cliCtx.String(flags.LogLevel.Name))

	cfg, err := specforge.NewConfig(cliCtx, logger)
	if err != nil {
		return specforge.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	if cliCtx.Bool(flags.ListTests.Name) {
		return listSuites(acceptance.Definitions())
	}

	ctx, cancel := context.WithCancelCause(cliCtx.Context)
	defer cancel(nil)

	harness, err := specforge.New(ctx, cfg, Version, acceptance.Definitions(), func(err error) {
		cancel(err)
	})
	if err != nil {
		return specforge.NewRuntimeError(fmt.Errorf("failed to create harness: %w", err))
	}

	if err := harness.Start(ctx); err != nil {
		return err
	}
	if cfg.RunOnce {
		// The run already completed inside Start; a nil error means it passed.
		return nil
	}

	// Continuous mode: block until interrupted, then drain
	<-ctx.Done()
	return harness.Stop(context.Background())
}

// listSuites prints every suite's registration outline without running it.
func listSuites(definitions []specforge.SuiteDefinition) error {
	for _, def := range definitions {
		suite, err := specforge.NewSuite(def.Name, def.Define, def.Options...)
		if err != nil {
			return specforge.NewRuntimeError(err)
		}
		fmt.Println(suite.Outline())
	}
	return nil
}

// newLogger builds the root logger at the requested level.
func newLogger(level string) log.Logger {
	lvl, err := log.LvlFromString(level)
	if err != nil {
		lvl = log.LvlInfo
	}
	handler := log.NewTerminalHandlerWithLevel(os.Stdout, log.FromLegacyLevel(int(lvl)), false)
	logger := log.NewLogger(handler)
	log.SetDefault(logger)
	return logger
}
