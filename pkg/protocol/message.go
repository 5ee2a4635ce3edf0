// Package protocol implements the JSON envelopes exchanged with the chat relay.
package protocol

// Kind classifies a decoded inbound envelope.
type Kind int

const (
	KindIgnore Kind = iota
	KindText
	KindJoin
	KindQuit
	KindSystem
	KindError
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindIgnore:
		return "IGNORE"
	case KindText:
		return "TEXT"
	case KindJoin:
		return "JOIN"
	case KindQuit:
		return "QUIT"
	case KindSystem:
		return "SYSTEM"
	case KindError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SystemSender is the label rendered for join and quit notices.
const SystemSender = "System"

// UnknownSender is used when an envelope names no sender at all.
const UnknownSender = "Unknown"

// Inbound is the normalized form of an envelope received from the relay.
type Inbound struct {
	Kind   Kind
	Sender string
	Body   string

	// Subject is the participant a join or quit notice refers to.
	// It is never rendered; the chat loop matches it to skip the
	// notice for the agent's own join or quit.
	Subject string
}

// Ignorable reports whether the envelope carries nothing to render.
func (m Inbound) Ignorable() bool {
	return m.Kind == KindIgnore
}

// OutboundKind distinguishes the envelopes this client produces.
type OutboundKind int

const (
	OutboundJoin OutboundKind = iota
	OutboundText
)

// Outbound is an envelope authored by this client.
type Outbound struct {
	Kind OutboundKind
	// Agent is the display name announced by a join envelope.
	Agent string
	// Body is the literal text of a text envelope.
	Body string
}

// Join returns the handshake envelope for agent.
func Join(agent string) Outbound {
	return Outbound{Kind: OutboundJoin, Agent: agent}
}

// Text returns a chat text envelope carrying body.
func Text(body string) Outbound {
	return Outbound{Kind: OutboundText, Body: body}
}
