package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/RoJaebl/portfolio/internal/app"
	"github.com/RoJaebl/portfolio/internal/cli"
	"github.com/RoJaebl/portfolio/internal/hcl"
	"github.com/RoJaebl/portfolio/internal/runner"
)

// main is the entrypoint for the sitepipe application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// Ctrl-C ends long-running tasks such as watch and serve.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Args[1:])
	stop()

	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitFailure)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	sitepipe, err := app.NewApp(outW, appConfig, hcl.NewLoader())
	if err != nil {
		return cli.Usage(err)
	}

	if err := sitepipe.Run(ctx); err != nil {
		// Naming a task that does not exist is a usage error, not a failure.
		if errors.Is(err, runner.ErrUnknownTask) {
			return cli.Usage(err)
		}
		return cli.TaskFailed(appConfig.Task, err)
	}
	return nil
}
