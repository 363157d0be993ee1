package notify

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/odyssey-erp/odyssey-social/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-social/internal/shared"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Conn is a websocket Session with a bounded outbound buffer drained by a
// single writer goroutine.
type Conn struct {
	ws     *websocket.Conn
	send   chan Event
	done   chan struct{}
	closer sync.Once
}

func newConn(ws *websocket.Conn, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 16
	}
	return &Conn{ws: ws, send: make(chan Event, buffer), done: make(chan struct{})}
}

// Send queues ev, returning false when the buffer is full or the connection
// is gone.
func (c *Conn) Send(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

func (c *Conn) close() {
	c.closer.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case <-c.done:
			return
		case ev := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes control frames until the peer goes away.
func (c *Conn) readPump() {
	defer c.close()
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

// Handler upgrades authenticated requests into live sessions.
type Handler struct {
	logger   *slog.Logger
	registry *Registry
	upgrader websocket.Upgrader
	buffer   int
}

// NewHandler builds Handler instance. allowedOrigins empty accepts any origin.
func NewHandler(logger *slog.Logger, registry *Registry, buffer int, allowedOrigins []string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{logger: logger, registry: registry, buffer: buffer}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// MountRoutes registers the websocket endpoint.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.serve)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	ident, err := shared.RequireIdentity(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", slog.Any("error", err))
		return
	}
	conn := newConn(ws, h.buffer)
	release := h.registry.Register(ident.UserID, conn)
	defer release()

	h.logger.Debug("live session opened", slog.Int64("user_id", ident.UserID))
	go conn.writePump()
	conn.readPump()
	h.logger.Debug("live session closed", slog.Int64("user_id", ident.UserID))
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
