package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cwrk-planet/signal-relay/internal/session"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20 // camera frames are relayed inline
	sendBuffer     = 256
	defaultKind    = "message"
)

var (
	errClosed    = errors.New("connection closed")
	errQueueFull = errors.New("send queue full")
)

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	registry session.Registry
	recorder session.Recorder

	pingEvery time.Duration
}

type ServerOption func(*Server)

func WithRecorder(r session.Recorder) ServerOption {
	return func(s *Server) { s.recorder = r }
}

func WithPingEvery(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.pingEvery = d
		}
	}
}

// WithCheckOrigin replaces the default allow-all origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) ServerOption {
	return func(s *Server) {
		if fn != nil {
			s.upgrader.CheckOrigin = fn
		}
	}
}

func NewServer(hub *Hub, registry session.Registry, opts ...ServerOption) *Server {
	s := &Server{
		hub:      hub,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// WS endpoint: GET /ws
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn, uuid.NewString())
	log := slog.Default().With("participant", c.id, "remote", conn.RemoteAddr().String())
	log.Info("ws connected")

	sess := session.New(c, s.registry, s.hub,
		session.WithRecorder(s.recorder),
		session.WithLogger(slog.Default()),
	)

	go s.writeLoop(c)
	s.readLoop(c, sess, log)

	sess.Disconnect()
	if err := c.Close(); err != nil {
		log.Debug("ws close failed", "err", err)
	}
	log.Info("ws disconnected")
}

func (s *Server) readLoop(c *wsConn, sess *session.Session, log *slog.Logger) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("ws read failed", "err", err)
			}
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Debug("ws bad frame", "err", err)
			continue
		}
		s.dispatch(sess, f, log)
	}
}

func (s *Server) dispatch(sess *session.Session, f Frame, log *slog.Logger) {
	switch {
	case f.Type == TypeSubscribe:
		var p SubscribePayload
		if err := decode(f.Payload, &p); err != nil {
			// A bare JSON string is accepted as the room id.
			if err := json.Unmarshal(f.Payload, &p.RoomID); err != nil {
				log.Debug("ws bad subscribe payload", "err", err)
				return
			}
		}
		sess.Subscribe(strings.TrimSpace(p.RoomID))

	case f.Type == TypeSend || strings.HasPrefix(f.Type, TypeSend+" "):
		var p SendPayload
		if err := decode(f.Payload, &p); err != nil {
			log.Debug("ws bad send payload", "err", err)
			return
		}
		kind := strings.TrimSpace(strings.TrimPrefix(f.Type, TypeSend))
		if kind == "" {
			kind = p.Kind
		}
		if kind == "" {
			kind = defaultKind
		}
		sess.Relay(kind, p.Room, p.Message)

	case f.Type == TypeLeave || f.Type == TypeLeave+" room":
		var p LeavePayload
		if err := decode(f.Payload, &p); err != nil {
			log.Debug("ws bad leave payload", "err", err)
			return
		}
		sess.Leave(p.Room)

	default:
		log.Debug("ws unknown frame", "type", f.Type)
	}
}

func (s *Server) writeLoop(c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				slog.Debug("ws write failed", "participant", c.id, "err", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// --- conn ---

type wsConn struct {
	conn *websocket.Conn
	id   string

	send      chan session.Message
	closed    chan struct{}
	closeOnce sync.Once
}

func newWsConn(c *websocket.Conn, id string) *wsConn {
	return &wsConn{
		conn:   c,
		id:     id,
		send:   make(chan session.Message, sendBuffer),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

// Send queues msg for the write loop and never blocks.
func (c *wsConn) Send(msg session.Message) error {
	select {
	case <-c.closed:
		return errClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return errQueueFull
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}
