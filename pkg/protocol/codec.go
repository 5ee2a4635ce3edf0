package protocol

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"
)

// Dialect selects the outbound wire layout.
type Dialect int

const (
	// DialectLegacy sends {type:"join", name} and {type:"message", message}.
	DialectLegacy Dialect = iota
	// DialectAgent sends HANDSHAKE and AGENT_MESSAGE envelopes tagged with a client ID.
	DialectAgent
)

// String returns the configuration name of the dialect.
func (d Dialect) String() string {
	switch d {
	case DialectLegacy:
		return "legacy"
	case DialectAgent:
		return "agent"
	default:
		return "unknown"
	}
}

// ParseDialect converts a configuration value into a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "legacy", "a":
		return DialectLegacy, nil
	case "agent", "b":
		return DialectAgent, nil
	default:
		return 0, fmt.Errorf("unknown dialect %q (want legacy or agent)", s)
	}
}

// Wire type tags.
const (
	typeJoin         = "join"
	typeMessage      = "message"
	typeHandshake    = "HANDSHAKE"
	typeAgentMessage = "AGENT_MESSAGE"
)

// Codec encodes outbound envelopes for one agent in one dialect.
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	dialect  Dialect
	agent    string
	clientID string
}

// NewCodec creates a Codec for agent. The client ID used by DialectAgent
// is generated once per Codec.
func NewCodec(dialect Dialect, agent string) *Codec {
	return &Codec{
		dialect:  dialect,
		agent:    agent,
		clientID: uuid.NewString(),
	}
}

// Agent returns the display name the codec speaks for.
func (c *Codec) Agent() string {
	return c.agent
}

// Dialect returns the outbound dialect.
func (c *Codec) Dialect() Dialect {
	return c.dialect
}

// ClientID returns the identifier attached to DialectAgent envelopes.
func (c *Codec) ClientID() string {
	return c.clientID
}

// Encode serializes an outbound envelope into wire bytes.
func (c *Codec) Encode(out Outbound) ([]byte, error) {
	fields, err := c.fields(out)
	if err != nil {
		return nil, err
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	data, err := s.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

func (c *Codec) fields(out Outbound) (map[string]any, error) {
	switch c.dialect {
	case DialectLegacy:
		switch out.Kind {
		case OutboundJoin:
			return map[string]any{"type": typeJoin, "name": out.Agent}, nil
		case OutboundText:
			return map[string]any{"type": typeMessage, "message": out.Body}, nil
		}
	case DialectAgent:
		switch out.Kind {
		case OutboundJoin:
			return map[string]any{
				"type":     typeHandshake,
				"sender":   out.Agent,
				"content":  out.Agent + " has joined the channel.",
				"clientId": c.clientID,
			}, nil
		case OutboundText:
			return map[string]any{
				"sender":   c.agent,
				"content":  out.Body,
				"type":     typeAgentMessage,
				"clientId": c.clientID,
			}, nil
		}
	default:
		return nil, fmt.Errorf("unsupported dialect %d", c.dialect)
	}
	return nil, fmt.Errorf("unsupported outbound kind %d", out.Kind)
}
