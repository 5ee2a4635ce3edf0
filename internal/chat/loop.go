package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/omochice/agent-chatroom/internal/client/ws"
	"github.com/omochice/agent-chatroom/pkg/protocol"
)

// Reason tells why the loop stopped.
type Reason int

const (
	ReasonPeerClosed Reason = iota
	ReasonLocalEOF
	ReasonInterrupted
	ReasonTransportError
)

// String returns the string representation of Reason
func (r Reason) String() string {
	switch r {
	case ReasonPeerClosed:
		return "PEER_CLOSED"
	case ReasonLocalEOF:
		return "LOCAL_EOF"
	case ReasonInterrupted:
		return "INTERRUPTED"
	case ReasonTransportError:
		return "TRANSPORT_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Result is the single terminal outcome of Run.
type Result struct {
	Reason Reason
	Err    error
}

// termination is returned by an activity to end the loop with a reason.
type termination struct {
	reason Reason
	err    error
}

func (t *termination) Error() string {
	if t.err == nil {
		return t.reason.String()
	}
	return fmt.Sprintf("%s: %v", t.reason, t.err)
}

func (t *termination) Unwrap() error {
	return t.err
}

// Config wires a Loop.
type Config struct {
	Agent    string
	Conn     Conn
	Input    <-chan string // operator lines, closed at end of input
	Renderer Renderer
	Logger   zerolog.Logger
}

// Loop runs the receive and send activities against one connection.
type Loop struct {
	agent    string
	conn     Conn
	input    <-chan string
	renderer Renderer
	logger   zerolog.Logger
}

// New creates a Loop.
func New(cfg Config) *Loop {
	return &Loop{
		agent:    cfg.Agent,
		conn:     cfg.Conn,
		input:    cfg.Input,
		renderer: cfg.Renderer,
		logger:   cfg.Logger,
	}
}

// Run blocks until either activity ends or ctx is cancelled, cancels the
// other activity, closes the connection, and reports why it stopped.
func (l *Loop) Run(ctx context.Context) Result {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.receive(gctx) })
	g.Go(func() error { return l.send(gctx) })

	err := g.Wait()
	if cerr := l.conn.Close(); cerr != nil {
		l.logger.Debug().Err(cerr).Msg("close connection")
	}

	res := l.result(ctx, err)
	l.logger.Debug().Str("reason", res.Reason.String()).AnErr("cause", res.Err).Msg("loop finished")
	return res
}

func (l *Loop) result(ctx context.Context, err error) Result {
	var term *termination
	switch {
	case errors.As(err, &term):
		return Result{Reason: term.reason, Err: term.err}
	case ctx.Err() != nil:
		return Result{Reason: ReasonInterrupted}
	default:
		return Result{Reason: ReasonTransportError, Err: err}
	}
}

// receive renders inbound envelopes until the connection ends.
func (l *Loop) receive(ctx context.Context) error {
	for {
		data, err := l.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return l.connectionEnded(err)
		}

		msg := protocol.Decode(data)
		if msg.Ignorable() {
			l.logger.Trace().Int("bytes", len(data)).Msg("dropped frame")
			continue
		}
		if l.isSelf(msg) {
			continue
		}

		l.renderer.Render(msg)
		l.renderer.Prompt(l.agent)
	}
}

// send transmits operator lines until input ends.
func (l *Loop) send(ctx context.Context) error {
	for {
		l.renderer.Prompt(l.agent)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-l.input:
			if !ok {
				return &termination{reason: ReasonLocalEOF}
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if err := l.conn.Send(ctx, protocol.Text(text)); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return l.connectionEnded(err)
			}
		}
	}
}

// isSelf reports whether msg is the relay echoing this agent's own traffic,
// including the notice for its own join or quit. Notices are matched on the
// participant they name, since their sender is always System.
func (l *Loop) isSelf(msg protocol.Inbound) bool {
	switch msg.Kind {
	case protocol.KindJoin, protocol.KindQuit:
		return msg.Subject == l.agent
	case protocol.KindError:
		return false
	default:
		return msg.Sender == l.agent
	}
}

func (l *Loop) connectionEnded(err error) error {
	if errors.Is(err, ws.ErrConnectionClosed) {
		return &termination{reason: ReasonPeerClosed, err: err}
	}
	return &termination{reason: ReasonTransportError, err: err}
}
