// Package relaytest provides an in-process chat relay for tests.
//
// The relay allocates rooms on POST /api/room and accepts WebSocket peers on
// /api/room/{room}/websocket. Every text frame a peer sends is recorded and,
// unless echo is disabled, broadcast back to all peers of the room including
// the sender.
package relaytest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"google.golang.org/protobuf/types/known/structpb"
)

// Frame is one text frame received from a peer.
type Frame struct {
	Room string
	Data []byte
}

// Option configures a Server.
type Option func(*Server)

// WithRoomID sets the identifier returned by room creation.
func WithRoomID(id string) Option {
	return func(s *Server) { s.roomID = id }
}

// WithoutEcho stops the relay from broadcasting received frames.
func WithoutEcho() Option {
	return func(s *Server) { s.echo = false }
}

// Server is a fake relay backed by httptest.
type Server struct {
	http         *httptest.Server
	hub          *hub
	roomID       string
	echo         bool
	frames       chan Frame
	pongs        chan []byte
	roomsCreated atomic.Int32
	quit         chan struct{}
	closeOnce    sync.Once
	wg           sync.WaitGroup
}

// New starts a relay. Close must be called when done.
func New(opts ...Option) *Server {
	s := &Server{
		hub:    newHub(),
		roomID: "room-1",
		echo:   true,
		frames: make(chan Frame, 64),
		pongs:  make(chan []byte, 16),
		quit:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Post("/api/room", s.handleCreateRoom)
	r.Get("/api/room/{room}/websocket", s.handleWebSocket)
	s.http = httptest.NewServer(r)

	return s
}

// URL returns the relay's base URL (http://127.0.0.1:port).
func (s *Server) URL() string {
	return s.http.URL
}

// NextFrame waits up to timeout for the next received frame.
func (s *Server) NextFrame(timeout time.Duration) (Frame, bool) {
	select {
	case f := <-s.frames:
		return f, true
	case <-time.After(timeout):
		return Frame{}, false
	}
}

// NextPong waits up to timeout for the payload of the next pong a peer sent.
func (s *Server) NextPong(timeout time.Duration) ([]byte, bool) {
	select {
	case p := <-s.pongs:
		return p, true
	case <-time.After(timeout):
		return nil, false
	}
}

// Ping sends a ping frame carrying payload to every peer of room.
func (s *Server) Ping(room string, payload []byte) {
	for _, p := range s.hub.peers(room) {
		_ = p.writeFrame(ws.NewPingFrame(payload))
	}
}

// RoomsCreated returns how many rooms were allocated.
func (s *Server) RoomsCreated() int {
	return int(s.roomsCreated.Load())
}

// ClientCount returns the number of peers connected to room.
func (s *Server) ClientCount(room string) int {
	return s.hub.count(room)
}

// WaitClients blocks until room has n peers or timeout elapses.
func (s *Server) WaitClients(room string, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.hub.count(room) == n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return s.hub.count(room) == n
}

// Broadcast sends a raw text frame to every peer of room.
func (s *Server) Broadcast(room string, data string) {
	s.hub.broadcast(room, []byte(data))
}

// Disconnect closes every peer of room with a normal closure.
func (s *Server) Disconnect(room string) {
	for _, p := range s.hub.peers(room) {
		p.close()
	}
}

// Close disconnects all peers and stops the server.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		for _, p := range s.hub.all() {
			p.close()
		}
		s.http.Close()
		s.wg.Wait()
	})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	s.roomsCreated.Add(1)
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(s.roomID + "\n"))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return
	}

	p := &peer{conn: conn}
	s.hub.register(room, p)

	s.wg.Add(1)
	go s.handlePeer(room, p)
}

func (s *Server) handlePeer(room string, p *peer) {
	defer s.wg.Done()
	defer func() {
		s.hub.unregister(room, p)
		p.conn.Close()
	}()

	control := wsutil.ControlFrameHandler(p.conn, ws.StateServerSide)
	rd := &wsutil.Reader{
		Source:    p.conn,
		State:     ws.StateServerSide,
		CheckUTF8: true,
	}
	rd.OnIntermediate = func(hdr ws.Header, r io.Reader) error {
		return s.handleControl(p, control, hdr, r)
	}

	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return
		}
		if hdr.OpCode.IsControl() {
			if err := rd.OnIntermediate(hdr, rd); err != nil {
				return
			}
			continue
		}
		data, err := io.ReadAll(rd)
		if err != nil {
			return
		}
		if hdr.OpCode != ws.OpText && hdr.OpCode != ws.OpBinary {
			continue
		}

		select {
		case s.frames <- Frame{Room: room, Data: data}:
		case <-s.quit:
			return
		}

		if s.echo {
			s.hub.broadcast(room, stamp(p, data))
		}
	}
}

// handleControl records pongs and lets wsutil answer pings and closes.
func (s *Server) handleControl(p *peer, control wsutil.FrameHandlerFunc, hdr ws.Header, r io.Reader) error {
	if hdr.OpCode == ws.OpPong {
		payload, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		select {
		case s.pongs <- payload:
		default:
		}
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return control(hdr, r)
}

// stamp attributes a legacy envelope to its peer the way the hosted relay
// does: a join names the peer, and later messages without a name carry it.
// Frames that are not JSON objects are echoed unchanged.
func stamp(p *peer, data []byte) []byte {
	var env structpb.Struct
	if err := env.UnmarshalJSON(data); err != nil {
		return data
	}
	fields := env.GetFields()
	if fields == nil {
		return data
	}

	if fields["type"].GetStringValue() == "join" {
		p.name = fields["name"].GetStringValue()
		return data
	}
	if _, ok := fields["name"]; ok || p.name == "" {
		return data
	}
	if _, ok := fields["sender"]; ok {
		return data
	}

	fields["name"] = structpb.NewStringValue(p.name)
	stamped, err := env.MarshalJSON()
	if err != nil {
		return data
	}
	return stamped
}
