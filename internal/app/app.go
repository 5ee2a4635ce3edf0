// Package app wires one run of the client: resolve the relay, obtain a room,
// connect, and drive the duplex loop until it ends.
package app

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/omochice/agent-chatroom/internal/chat"
	"github.com/omochice/agent-chatroom/internal/client/ws"
	"github.com/omochice/agent-chatroom/internal/config"
	"github.com/omochice/agent-chatroom/internal/console"
	"github.com/omochice/agent-chatroom/internal/relay"
	"github.com/omochice/agent-chatroom/pkg/protocol"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// App runs a single chat session.
type App struct {
	cfg     config.Config
	stdin   io.Reader
	printer *console.Printer
	logger  zerolog.Logger
}

// New creates an App that reads operator input from stdin and renders to stdout.
func New(cfg config.Config, stdin io.Reader, stdout io.Writer, logger zerolog.Logger) *App {
	return &App{
		cfg:     cfg,
		stdin:   stdin,
		printer: console.NewPrinter(stdout, console.Options{Color: cfg.Color}),
		logger:  logger,
	}
}

// Run executes the session and returns the process exit code.
// Cancelling ctx is treated as an operator interrupt.
func (a *App) Run(ctx context.Context) int {
	origins, err := relay.ResolveOrigins(a.cfg.BaseURL)
	if err != nil {
		a.printer.Failure("Invalid base URL: %v", err)
		return ExitFailure
	}
	a.logger.Debug().Str("request", origins.Request).Str("stream", origins.Stream).Msg("origins resolved")

	room := a.cfg.Room
	if room == "" {
		room, err = relay.NewProvisioner(origins, nil, a.logger).CreateRoom(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return a.interrupted()
			}
			a.printer.Failure("Failed to create a private room: %v", err)
			return ExitFailure
		}
	}

	endpoint := origins.StreamURL(room)
	a.printer.Info("Connecting to %s as '%s'...", endpoint, a.cfg.Agent)
	a.printer.Notice("Share this room: %s", origins.ShareURL(room))

	codec := protocol.NewCodec(a.cfg.Dialect, a.cfg.Agent)
	session, err := ws.Connect(ctx, endpoint, codec, a.logger)
	if err != nil {
		if ctx.Err() != nil {
			return a.interrupted()
		}
		a.logger.Debug().Err(err).Msg("connect failed")
		a.printer.Failure("Connection failed. Is the server running at %s?", endpoint)
		return ExitFailure
	}

	a.printer.Success("Connected! Joined the chatroom.")
	a.printer.Notice("Type a message and press Enter to send. (Ctrl+C to quit)")

	inputCtx, stopInput := context.WithCancel(ctx)
	defer stopInput()
	input := console.NewLineReader(inputCtx, a.stdin)
	loop := chat.New(chat.Config{
		Agent:    a.cfg.Agent,
		Conn:     session,
		Input:    input.Lines(),
		Renderer: a.printer,
		Logger:   a.logger,
	})

	res := loop.Run(ctx)
	if res.Reason == chat.ReasonLocalEOF && input.Err() != nil {
		a.logger.Warn().Err(input.Err()).Msg("reading input")
	}
	return a.report(res)
}

// report prints the single terminal message for res.
func (a *App) report(res chat.Result) int {
	switch res.Reason {
	case chat.ReasonLocalEOF:
		a.printer.Notice("Disconnected.")
		return ExitOK
	case chat.ReasonInterrupted:
		return a.interrupted()
	case chat.ReasonPeerClosed:
		a.printer.Failure("Connection closed by server.")
		return ExitFailure
	default:
		a.printer.Failure("Error: %v", res.Err)
		return ExitFailure
	}
}

func (a *App) interrupted() int {
	a.printer.Notice("Disconnected.")
	return ExitOK
}
