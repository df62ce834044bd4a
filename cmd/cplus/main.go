package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kartoza/cplus-engine/internal/app"
	"github.com/kartoza/cplus-engine/internal/cli"
	"github.com/kartoza/cplus-engine/internal/scenariohcl"
)

// main is the entrypoint for the cplus scenario engine.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. Startup panics from app.NewApp surface as returned errors.
func run(outW io.Writer, args []string) (err error) {
	appConfig, shouldExit, parseErr := cli.Parse(args, outW)
	if parseErr != nil {
		return parseErr
	}
	if shouldExit {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	loader := scenariohcl.NewLoader()
	cplusApp := app.NewApp(outW, appConfig, loader)

	return cplusApp.Run(context.Background())
}
