package chat_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/omochice/agent-chatroom/internal/chat"
	"github.com/omochice/agent-chatroom/internal/client/ws"
	"github.com/omochice/agent-chatroom/pkg/protocol"
)

// mockConn is a mock implementation of chat.Conn for testing.
type mockConn struct {
	readCh    chan []byte
	readErr   error
	writtenMu sync.Mutex
	written   []protocol.Outbound
	sent      chan protocol.Outbound
	writeErr  error
	closedMu  sync.Mutex
	closed    bool
}

func newMockConn() *mockConn {
	return &mockConn{
		readCh: make(chan []byte, 10),
		sent:   make(chan protocol.Outbound, 10),
	}
}

// Read returns queued frames; closing readCh behaves like the relay
// closing the connection.
func (m *mockConn) Read(ctx context.Context) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case data, ok := <-m.readCh:
		if !ok {
			return nil, ws.ErrConnectionClosed
		}
		return data, nil
	}
}

func (m *mockConn) Send(ctx context.Context, out protocol.Outbound) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writtenMu.Lock()
	m.written = append(m.written, out)
	m.writtenMu.Unlock()
	m.sent <- out
	return nil
}

func (m *mockConn) Close() error {
	m.closedMu.Lock()
	defer m.closedMu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) IsClosed() bool {
	m.closedMu.Lock()
	defer m.closedMu.Unlock()
	return m.closed
}

func (m *mockConn) GetWritten() []protocol.Outbound {
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	return append([]protocol.Outbound(nil), m.written...)
}

// recordingRenderer records every render and prompt in call order.
type recordingRenderer struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingRenderer) Render(m protocol.Inbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("render %s: %s", m.Sender, m.Body))
}

func (r *recordingRenderer) Prompt(agent string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "prompt "+agent)
}

func (r *recordingRenderer) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recordingRenderer) Renders() []string {
	var out []string
	for _, e := range r.Events() {
		if len(e) > 7 && e[:7] == "render " {
			out = append(out, e[7:])
		}
	}
	return out
}

// Compile-time check that mockConn implements chat.Conn
var _ chat.Conn = (*mockConn)(nil)
