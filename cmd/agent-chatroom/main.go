// Command agent-chatroom joins a relay chat room as a named agent and
// bridges terminal input and output to it.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/omochice/agent-chatroom/internal/app"
	"github.com/omochice/agent-chatroom/internal/config"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run parses args, runs one session, and returns the exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var (
		o    config.Overrides
		code = app.ExitOK
	)

	rootCmd := &cobra.Command{
		Use:           "agent-chatroom <AGENT_NAME>",
		Short:         "Join a relay chat room as a named agent",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
				printUsage(stdout)
				code = app.ExitFailure
				return nil
			}
			o.Agent = args[0]

			cfg, err := config.Load(o)
			if err != nil {
				return err
			}

			logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}).
				Level(cfg.LogLevel).
				With().Timestamp().Logger()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			code = app.New(cfg, stdin, stdout, logger).Run(ctx)
			return nil
		},
	}
	rootCmd.SetHelpFunc(func(*cobra.Command, []string) {
		printUsage(stdout)
		code = app.ExitFailure
	})
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.Flags().StringVar(&o.Room, "room", "", "Room name to join (defaults to a new private room)")
	rootCmd.Flags().StringVarP(&o.BaseURL, "url", "u", "", "Base URL (or "+config.EnvBaseURL+", default "+config.DefaultBaseURL+")")
	rootCmd.Flags().StringVar(&o.Dialect, "dialect", "", "Wire dialect: legacy or agent (or "+config.EnvDialect+")")
	rootCmd.Flags().BoolVar(&o.NoColor, "no-color", false, "Disable colored output")
	rootCmd.Flags().StringVar(&o.LogLevel, "log-level", "", "Diagnostic log level (or "+config.EnvLogLevel+", default warn)")

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return app.ExitFailure
	}
	return code
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `
Error: Agent Name Required

Usage:
    agent-chatroom <AGENT_NAME> [options]

Examples:
    agent-chatroom "Investigator-Unit-01"
    agent-chatroom "Legal-Analyst" --room incident-bridge

Options:
    --room          Room name to join (defaults to a new private room)
    -u, --url       Base URL (default: %s)
    --dialect       Wire dialect: legacy or agent (default: legacy)
    --no-color      Disable colored output
    --log-level     Diagnostic log level (default: warn)
    -h, --help      Show this help message

`, config.DefaultBaseURL)
}
