// Package ws provides the WebSocket session between an agent and a chat room.
package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	gobwas "github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/rs/zerolog"

	"github.com/omochice/agent-chatroom/pkg/protocol"
)

var (
	// ErrUnreachable is returned when the relay cannot be dialed.
	ErrUnreachable = errors.New("connection failed")
	// ErrConnectionClosed is returned once the session is closed, by either side.
	ErrConnectionClosed = errors.New("connection closed")
)

// closeWriteTimeout bounds how long Close waits to deliver the close frame.
const closeWriteTimeout = time.Second

// State is the lifecycle state of a Session.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Session is one duplex connection to a room. It is not reusable: once
// closed it stays closed. Send and Read may be called from different
// goroutines; concurrent Reads are not supported.
type Session struct {
	endpoint string
	codec    *protocol.Codec
	logger   zerolog.Logger

	conn    net.Conn
	reader  *wsutil.Reader
	control wsutil.FrameHandlerFunc

	wmu sync.Mutex // serializes frame writes

	mu    sync.Mutex
	state State
	err   error

	closeConnOnce sync.Once
}

// Connect dials endpoint and performs the join handshake. The join
// envelope is the first frame written on the connection.
func Connect(ctx context.Context, endpoint string, codec *protocol.Codec, logger zerolog.Logger) (*Session, error) {
	s := &Session{
		endpoint: endpoint,
		codec:    codec,
		logger:   logger.With().Str("endpoint", endpoint).Logger(),
		state:    StateConnecting,
	}

	conn, br, _, err := gobwas.DefaultDialer.Dial(ctx, endpoint)
	if err != nil {
		s.markClosed(err)
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreachable, endpoint, err)
	}
	s.conn = conn

	var src io.Reader = conn
	if br != nil {
		// The handshake response may have buffered the first frames.
		src = br
	}
	s.control = wsutil.ControlFrameHandler(conn, gobwas.StateClientSide)
	s.reader = &wsutil.Reader{
		Source:         src,
		State:          gobwas.StateClientSide,
		CheckUTF8:      true,
		OnIntermediate: s.handleControl,
	}

	s.mu.Lock()
	s.state = StateOpen
	s.mu.Unlock()
	s.logger.Debug().Msg("connection open")

	if err := s.Send(ctx, protocol.Join(codec.Agent())); err != nil {
		s.Close()
		return nil, fmt.Errorf("handshake failed: %w", err)
	}
	s.logger.Debug().Str("agent", codec.Agent()).Msg("join sent")

	return s, nil
}

// Endpoint returns the URL the session is connected to.
func (s *Session) Endpoint() string {
	return s.endpoint
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns why the session closed, or nil while it is open.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Send encodes out and writes it as one text frame. Once the session is
// closed, by either side, it returns ErrConnectionClosed.
func (s *Session) Send(ctx context.Context, out protocol.Outbound) error {
	if s.State() != StateOpen {
		return ErrConnectionClosed
	}

	data, err := s.codec.Encode(out)
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		s.conn.SetWriteDeadline(time.Unix(1, 0))
	})
	defer stop()

	s.wmu.Lock()
	err = wsutil.WriteClientText(s.conn, data)
	s.wmu.Unlock()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if isClosure(err) || s.State() == StateClosed {
			s.fail(ErrConnectionClosed)
			return ErrConnectionClosed
		}
		s.fail(err)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Read blocks until the next data frame arrives and returns its payload.
// A close from the relay yields ErrConnectionClosed; other failures are
// returned wrapped. Either way the session is closed afterwards and every
// later Read returns ErrConnectionClosed. Cancelling ctx interrupts the
// read and returns ctx.Err().
func (s *Session) Read(ctx context.Context) ([]byte, error) {
	if s.State() != StateOpen {
		return nil, ErrConnectionClosed
	}

	stop := context.AfterFunc(ctx, func() {
		s.conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	data, err := s.readFrame()
	if err == nil {
		return data, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if isClosure(err) || s.State() == StateClosed {
		s.fail(ErrConnectionClosed)
		return nil, ErrConnectionClosed
	}
	s.fail(err)
	return nil, fmt.Errorf("failed to read from server: %w", err)
}

// Close sends a normal closure frame, if still open, and releases the
// connection. It is safe to call more than once.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	if s.markClosed(ErrConnectionClosed) {
		s.wmu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(closeWriteTimeout))
		body := gobwas.NewCloseFrameBody(gobwas.StatusNormalClosure, "")
		_ = wsutil.WriteClientMessage(s.conn, gobwas.OpClose, body)
		s.wmu.Unlock()
		s.logger.Debug().Msg("connection closed locally")
	}
	return s.closeConn()
}

func (s *Session) readFrame() ([]byte, error) {
	for {
		hdr, err := s.reader.NextFrame()
		if err != nil {
			return nil, err
		}
		if hdr.OpCode.IsControl() {
			if err := s.handleControl(hdr, s.reader); err != nil {
				return nil, err
			}
			continue
		}
		if hdr.OpCode&(gobwas.OpText|gobwas.OpBinary) == 0 {
			if err := s.reader.Discard(); err != nil {
				return nil, err
			}
			continue
		}
		return io.ReadAll(s.reader)
	}
}

// handleControl answers ping and close frames under the write lock.
// A close frame always ends the read side, even if the reply cannot be
// written because the relay already dropped the socket.
func (s *Session) handleControl(hdr gobwas.Header, r io.Reader) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	err := s.control(hdr, r)
	if hdr.OpCode == gobwas.OpClose {
		var closed wsutil.ClosedError
		if !errors.As(err, &closed) {
			return wsutil.ClosedError{Code: gobwas.StatusNoStatusRcvd}
		}
	}
	return err
}

// fail closes the session because of reason.
func (s *Session) fail(reason error) {
	if s.markClosed(reason) {
		s.logger.Debug().Err(reason).Msg("connection closed")
	}
	s.closeConn()
}

// markClosed transitions to StateClosed. It reports false if the session
// was already closed.
func (s *Session) markClosed(reason error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return false
	}
	s.state = StateClosed
	s.err = reason
	return true
}

func (s *Session) closeConn() error {
	var err error
	s.closeConnOnce.Do(func() {
		err = s.conn.Close()
	})
	return err
}

func isClosure(err error) bool {
	var closed wsutil.ClosedError
	return errors.As(err, &closed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed)
}
