package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"audiobaked/internal/apperr"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(os.Stdout)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps the error taxonomy to process exit codes.
func exitCode(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.CodeInput:
		return 2
	case apperr.CodeConfiguration:
		return 3
	case apperr.CodeExternalTool:
		return 4
	case apperr.CodeExternalService:
		return 5
	default:
		return 1
	}
}
