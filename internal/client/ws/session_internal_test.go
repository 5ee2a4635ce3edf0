package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws/wsutil"
	"github.com/rs/zerolog"

	"github.com/omochice/agent-chatroom/internal/relaytest"
	"github.com/omochice/agent-chatroom/pkg/protocol"
)

func TestSend_ConnDroppedUnderneath(t *testing.T) {
	relay := relaytest.New(relaytest.WithoutEcho())
	defer relay.Close()

	endpoint := "ws" + strings.TrimPrefix(relay.URL(), "http") + "/api/room/abc123/websocket"
	codec := protocol.NewCodec(protocol.DialectLegacy, "Agent-7")
	s, err := Connect(context.Background(), endpoint, codec, zerolog.Nop())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer s.Close()
	if _, ok := relay.NextFrame(time.Second); !ok {
		t.Fatal("timeout waiting for join")
	}

	// The socket goes away while the session still believes it is open,
	// as when the read side fails concurrently with a write.
	s.closeConn()

	err = s.Send(context.Background(), protocol.Text("late"))
	if !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Send() error = %v, want ErrConnectionClosed", err)
	}
	if got := s.State(); got != StateClosed {
		t.Errorf("State() = %v, want %v", got, StateClosed)
	}
}

func TestIsClosure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "closed conn", err: fmt.Errorf("write: %w", net.ErrClosed), want: true},
		{name: "eof", err: io.EOF, want: true},
		{name: "unexpected eof", err: io.ErrUnexpectedEOF, want: true},
		{name: "close frame", err: fmt.Errorf("read: %w", wsutil.ClosedError{}), want: true},
		{name: "other", err: errors.New("connection reset by peer"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isClosure(tt.err); got != tt.want {
				t.Errorf("isClosure(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
