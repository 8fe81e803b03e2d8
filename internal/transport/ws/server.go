package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cwrk-planet/voice-testbench/internal/app/livekit"
	"github.com/cwrk-planet/voice-testbench/internal/metrics"
	"github.com/cwrk-planet/voice-testbench/pkg/httputil"
)

type RoomLister interface {
	ListRoomsDetailed(ctx context.Context) (livekit.RoomsList, error)
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	rooms    RoomLister
	metrics  *metrics.Metrics

	interval  time.Duration
	pingEvery time.Duration
}

type Options struct {
	Interval  time.Duration
	PingEvery time.Duration
	Metrics   *metrics.Metrics
}

// NewServer: rooms может быть nil, если LiveKit не настроен.
func NewServer(hub *Hub, rooms RoomLister, opts Options) *Server {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.PingEvery <= 0 {
		opts.PingEvery = 15 * time.Second
	}
	return &Server{
		hub:   hub,
		rooms: rooms,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		metrics:   opts.Metrics,
		interval:  opts.Interval,
		pingEvery: opts.PingEvery,
	}
}

// WS endpoint: GET /ws/rooms
func (s *Server) HandleRooms(w http.ResponseWriter, r *http.Request) {
	if s.rooms == nil {
		httputil.Error(r.Context(), w, http.StatusInternalServerError, "LiveKit credentials not configured", nil)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn)
	s.hub.Add(c)
	s.metrics.LiveClientConnected()
	defer func() {
		s.hub.Remove(c)
		s.metrics.LiveClientGone()
		_ = c.Close()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go s.readLoop(c, cancel)
	s.pushLoop(ctx, c)
}

// pushLoop: снапшот сразу, потом по тикеру. Тики идут строго по очереди.
func (s *Server) pushLoop(ctx context.Context, c *wsConn) {
	if err := s.pushRooms(ctx, c); err != nil {
		return
	}

	tick := time.NewTicker(s.interval)
	defer tick.Stop()
	ping := time.NewTicker(s.pingEvery)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case <-tick.C:
			if err := s.pushRooms(ctx, c); err != nil {
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

// pushRooms возвращает ошибку только если умерло само соединение.
func (s *Server) pushRooms(ctx context.Context, c *wsConn) error {
	list, err := s.rooms.ListRoomsDetailed(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Debug("ws rooms tick failed", "err", err)
		return c.Send(Message{
			Type:    TypeError,
			Payload: ErrorPayload{Message: "Failed to list rooms: " + err.Error()},
			TSUnix:  time.Now().Unix(),
		})
	}
	return c.Send(Message{Type: TypeRooms, Payload: list, TSUnix: time.Now().Unix()})
}

// readLoop нужен только для pong и детекта закрытия; входящие сообщения игнорируем.
func (s *Server) readLoop(c *wsConn, cancel context.CancelFunc) {
	defer cancel()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

type wsConn struct {
	conn   *websocket.Conn
	sendMu chan struct{}
	closed chan struct{}
}

func newWsConn(c *websocket.Conn) *wsConn {
	return &wsConn{
		conn:   c,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) Send(msg Message) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()

	select {
	case <-c.closed:
		return nil
	default:
		close(c.closed)
	}
	return c.conn.Close()
}
