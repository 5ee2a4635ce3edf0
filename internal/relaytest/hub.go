package relaytest

import (
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// peer is one WebSocket participant of a room.
type peer struct {
	conn net.Conn
	name string // set by the peer's join envelope
	mu   sync.Mutex
}

func (p *peer) writeText(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return wsutil.WriteServerText(p.conn, data)
}

func (p *peer) writeFrame(f ws.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ws.WriteFrame(p.conn, f)
}

func (p *peer) close() {
	_ = p.writeFrame(ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, "")))
	p.conn.Close()
}

// hub tracks peers per room and fans out frames.
type hub struct {
	rooms map[string]map[*peer]bool
	mu    sync.RWMutex
}

func newHub() *hub {
	return &hub{rooms: make(map[string]map[*peer]bool)}
}

func (h *hub) register(room string, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*peer]bool)
	}
	h.rooms[room][p] = true
}

func (h *hub) unregister(room string, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[room], p)
}

func (h *hub) count(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *hub) peers(room string) []*peer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*peer, 0, len(h.rooms[room]))
	for p := range h.rooms[room] {
		out = append(out, p)
	}
	return out
}

func (h *hub) all() []*peer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*peer
	for _, room := range h.rooms {
		for p := range room {
			out = append(out, p)
		}
	}
	return out
}

func (h *hub) broadcast(room string, data []byte) {
	for _, p := range h.peers(room) {
		_ = p.writeText(data)
	}
}
