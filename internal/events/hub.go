// Package events pushes cart notifications to WebSocket subscribers.
package events

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xenking/shopcart/internal/domain/cart"
)

var _ cart.Notifier = (*Hub)(nil)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Config controls subscriber connections.
type Config struct {
	// WriteTimeout bounds every write to a subscriber.
	WriteTimeout time.Duration
	// Buffer is the number of pending events kept per subscriber. A subscriber
	// whose buffer is full is disconnected.
	Buffer int
}

type subscriber struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// Hub fans cart notifications out to every connected subscriber.
type Hub struct {
	lg       *zap.Logger
	cfg      Config
	upgrader websocket.Upgrader

	register   chan *subscriber
	unregister chan *subscriber
	broadcast  chan []byte
	done       chan struct{}

	subscribers atomic.Int64
}

// NewHub creates a Hub. Run must be started for events to be delivered.
func NewHub(lg *zap.Logger, cfg Config) *Hub {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 16
	}
	return &Hub{
		lg:  lg,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

// Subscribers returns the number of registered subscribers.
func (h *Hub) Subscribers() int {
	return int(h.subscribers.Load())
}

// Run owns the subscriber set until ctx is done. All subscribers are
// disconnected on return.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	subs := make(map[uuid.UUID]*subscriber)
	drop := func(s *subscriber) {
		if _, ok := subs[s.id]; !ok {
			return
		}
		delete(subs, s.id)
		close(s.send)
		h.subscribers.Store(int64(len(subs)))
	}

	for {
		select {
		case <-ctx.Done():
			for _, s := range subs {
				drop(s)
			}
			return nil
		case s := <-h.register:
			subs[s.id] = s
			h.subscribers.Store(int64(len(subs)))
			h.lg.Debug("Subscriber connected", zap.Stringer("id", s.id), zap.Int("total", len(subs)))
		case s := <-h.unregister:
			drop(s)
			h.lg.Debug("Subscriber disconnected", zap.Stringer("id", s.id), zap.Int("total", len(subs)))
		case msg := <-h.broadcast:
			for _, s := range subs {
				select {
				case s.send <- msg:
				default:
					h.lg.Warn("Subscriber buffer full, disconnecting", zap.Stringer("id", s.id))
					drop(s)
				}
			}
		}
	}
}

// Notify queues n for every subscriber. It never blocks; when the hub is
// saturated or stopped the event is dropped.
func (h *Hub) Notify(_ context.Context, n cart.Notification) {
	msg := encodeNotification(n)
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.lg.Warn("Event queue full, dropping notification", zap.String("message", n.Message))
	}
}

// ServeHTTP upgrades the request to a WebSocket subscription.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.lg.Debug("Upgrade failed", zap.Error(err))
		return
	}

	s := &subscriber{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, h.cfg.Buffer),
	}
	select {
	case h.register <- s:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go h.writePump(s)
	h.readPump(s)
}

// readPump discards client messages and keeps the read deadline fresh.
func (h *Hub) readPump(s *subscriber) {
	defer func() {
		select {
		case h.unregister <- s:
		case <-h.done:
		}
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.lg.Debug("Subscriber read error", zap.Stringer("id", s.id), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.lg.Debug("Subscriber write error", zap.Stringer("id", s.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encodeNotification(n cart.Notification) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("type")
	e.Str("cart")
	if n.Message != "" {
		e.FieldStart("message")
		e.Str(n.Message)
	}
	e.FieldStart("cartVisible")
	e.Bool(n.CartVisible)
	e.FieldStart("totalCount")
	e.Int(n.TotalCount)
	e.ObjEnd()
	return e.Bytes()
}
