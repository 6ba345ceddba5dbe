package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/bburda42dot/diag-converter-sub001/config"
	"github.com/bburda42dot/diag-converter-sub001/convert"
	"github.com/bburda42dot/diag-converter-sub001/misc"
	"github.com/bburda42dot/diag-converter-sub001/state"
)

// initializeAppContext prepares application context before command
// execution but after the command line has been parsed.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if env.Log, err = env.Cfg.Logging.Prepare(); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", misc.GetVersion()), zap.String("runtime", runtime.Version()), zap.String("hash", misc.GetGitHash()))
	if len(configFile) == 0 {
		env.Log.Info("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}
	env.RestoreStdLog()
	return nil
}

// errWasHandled tracks whether exitErrHandler already reported the error to
// the log, so main's final stderr fallback does not double-print it.
var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	env := state.EnvFromContext(ctx)
	if env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "converts ECU diagnostic descriptions between ODX, PDX, YAML and MDD",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)"},
		},
		Commands: []*cli.Command{
			{
				Name:         "convert",
				Usage:        "convert one diagnostic description into another format",
				OnUsageError: usageErrorHandler,
				Action:       convert.Run,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "path to the `FILE` to convert (format detected from extension)"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "path to write the converted `FILE` to (format detected from extension)"},
					&cli.StringFlag{Name: "audience", Usage: "filter the result to services visible to `AUDIENCE`"},
					&cli.StringFlag{Name: "compression", Usage: "MDD payload compression `ALGORITHM` (none, lzma, gzip, zstd)"},
					&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "overwrite the output file if it already exists"},
				},
			},
			{
				Name:         "info",
				Usage:        "print a summary of a diagnostic description",
				OnUsageError: usageErrorHandler,
				Action:       convert.Info,
				ArgsUsage:    "FILE",
			},
			{
				Name:         "validate",
				Usage:        "validate a diagnostic description and report every issue found",
				OnUsageError: usageErrorHandler,
				Action:       convert.Validate,
				ArgsUsage:    "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "quiet", Usage: "suppress per-error output, only set the exit code"},
					&cli.BoolFlag{Name: "summary", Usage: "print only the error count"},
				},
			},
		},
	}

	var err error
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}
