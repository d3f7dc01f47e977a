package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"unitydl/internal/app"
	"unitydl/internal/config"
	"unitydl/internal/logger"
	"unitydl/internal/ui"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

var errNoPlatforms = errors.New("no platform provided")

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	cwd, err := os.Getwd()
	if err != nil {
		logger.NewColoredLogger().Error("Failed to resolve working directory: %v", err)
		os.Exit(exitFailure)
	}

	os.Exit(run(ctx, os.Args, cwd, os.Stdout, nil))
}

// run executes the command line in args and returns the process exit code.
// Downloads are written beneath cwd.
func run(ctx context.Context, args []string, cwd string, stdout io.Writer, opts []app.Option) int {
	log := logger.NewColoredLogger(logger.WithOutput(stdout))
	printer := ui.NewPrinter(stdout)

	program := "unitydl"
	if len(args) > 0 {
		program = filepath.Base(args[0])
	}

	cmd := &cli.Command{
		Name:            program,
		Usage:           "download Unity editor releases and their modules",
		ArgsUsage:       config.PlatformNames("|") + " ...",
		HideHelp:        true,
		SkipFlagParsing: true,
		Writer:          stdout,
		ErrWriter:       stdout,
		Action: func(ctx context.Context, c *cli.Command) error {
			if level, ok := verbosity(c.Args().Slice()); ok {
				log.SetLevel(level)
			}

			platforms := config.ParsePlatforms(c.Args().Slice())
			if len(platforms) == 0 {
				printer.PrintUsage(program, config.PlatformNames("|"))
				return errNoPlatforms
			}

			cfg, err := config.Default()
			if err != nil {
				return err
			}

			console := ui.NewConsole(log, stdout)
			application, err := app.New(cfg, cfg.OutputPath(cwd), console, printer, opts...)
			if err != nil {
				return err
			}

			_, err = application.Run(ctx, platforms)
			return err
		},
	}

	err := cmd.Run(ctx, args)
	return exitCode(log, err)
}

// verbosity picks the log level out of args: -v and --verbose select debug,
// --log-level=<name> any level. The last such token wins.
func verbosity(args []string) (logger.Level, bool) {
	var (
		level logger.Level
		found bool
	)
	for _, arg := range args {
		switch {
		case arg == "-v" || arg == "--verbose":
			level, found = logger.LevelDebug, true
		case strings.HasPrefix(arg, "--log-level="):
			level, found = logger.ParseLevel(strings.TrimPrefix(arg, "--log-level=")), true
		}
	}
	return level, found
}

func exitCode(log logger.Logger, err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errNoPlatforms):
		return exitFailure
	case errors.Is(err, context.Canceled):
		log.Warn("Interrupted, stopping")
		return exitInterrupted
	default:
		log.Error("%v", err)
		return exitFailure
	}
}
