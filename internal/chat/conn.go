// Package chat runs the duplex loop between a room connection and the operator.
package chat

import (
	"context"

	"github.com/omochice/agent-chatroom/pkg/protocol"
)

// Conn abstracts the room connection.
// Only the receive side calls Read and only the send side calls Send.
type Conn interface {
	// Read returns the next inbound frame. It returns
	// ws.ErrConnectionClosed once the relay has closed the connection.
	Read(ctx context.Context) ([]byte, error)

	// Send transmits one outbound envelope.
	Send(ctx context.Context, out protocol.Outbound) error

	// Close closes the connection.
	Close() error
}

// Renderer displays inbound traffic and the input prompt.
type Renderer interface {
	Render(m protocol.Inbound)
	Prompt(agent string)
}
