// Package relay talks to the chat relay's request/response surface:
// origin resolution and private room provisioning.
package relay

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidAddress is returned when a base address has no recognizable host.
var ErrInvalidAddress = errors.New("invalid address")

// Origins holds the paired origins derived from one base address.
// Both share host and port; only the scheme differs.
type Origins struct {
	Request string // http or https
	Stream  string // ws or wss
}

// ResolveOrigins normalizes raw into a request origin and a stream origin.
// A missing scheme defaults to https/wss.
func ResolveOrigins(raw string) (Origins, error) {
	base := strings.TrimSpace(raw)
	if base == "" {
		return Origins{}, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}

	u, err := url.Parse(base)
	if err != nil {
		return Origins{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, raw, err)
	}
	if u.Host == "" {
		return Origins{}, fmt.Errorf("%w: %q has no host", ErrInvalidAddress, raw)
	}

	scheme := strings.ToLower(u.Scheme)
	var httpScheme, wsScheme string
	switch scheme {
	case "ws":
		httpScheme, wsScheme = "http", "ws"
	case "wss":
		httpScheme, wsScheme = "https", "wss"
	case "https":
		httpScheme, wsScheme = "https", "wss"
	default:
		httpScheme, wsScheme = scheme, "ws"
	}

	return Origins{
		Request: httpScheme + "://" + u.Host,
		Stream:  wsScheme + "://" + u.Host,
	}, nil
}

// StreamURL returns the WebSocket endpoint of room.
func (o Origins) StreamURL(room string) string {
	return o.Stream + "/api/room/" + url.PathEscape(room) + "/websocket"
}

// ShareURL returns the browser link that opens room.
func (o Origins) ShareURL(room string) string {
	return o.Request + "/#" + room
}
