package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/castscribe/castscribe/internal/cli"
	"github.com/castscribe/castscribe/internal/config"
	"github.com/castscribe/castscribe/internal/job"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK        = 0
	ExitGeneral   = 1
	ExitUsage     = 2
	ExitSetup     = 3
	ExitInput     = 4
	ExitProvider  = 5
	ExitInterrupt = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// Context with signal cancellation.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	env := cli.DefaultEnv()

	var debug bool
	rootCmd := &cobra.Command{
		Use:     "castscribe",
		Short:   "Transcribe podcast episodes with timestamps and subtitles",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := slog.LevelWarn
			if debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(cli.TranscribeCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to exit codes so scripts can branch on the failure.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, config.ErrAPIKeyMissing) {
		return ExitSetup
	}
	if errors.Is(err, cli.ErrFileNotFound) ||
		errors.Is(err, cli.ErrNoSource) ||
		errors.Is(err, cli.ErrOutputExists) {
		return ExitInput
	}

	var ue *job.UserError
	if errors.As(err, &ue) {
		switch ue.Class {
		case job.ClassCancelled:
			return ExitInterrupt
		case job.ClassInvalidInput:
			return ExitInput
		case job.ClassPrepareFailed:
			return ExitSetup
		case job.ClassFetchFailed,
			job.ClassProviderRateLimited,
			job.ClassProviderQuotaExhausted,
			job.ClassProviderAuthFailed,
			job.ClassProviderRequestInvalid,
			job.ClassProviderTransientFailed,
			job.ClassTimeout:
			return ExitProvider
		}
	}

	return ExitGeneral
}
