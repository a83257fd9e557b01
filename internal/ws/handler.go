// Package ws is the websocket transport: it upgrades HTTP requests, runs a
// read and a write pump per connection, and routes decoded messages to the
// sync service.
package ws

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pixelworld/pixelworld-server/internal/domain"
	"github.com/pixelworld/pixelworld-server/internal/hub"
	"github.com/pixelworld/pixelworld-server/internal/logger"
	"github.com/pixelworld/pixelworld-server/internal/service"
)

const (
	defaultPingInterval    = 25 * time.Second
	defaultMaxMessageBytes = 1 << 20
	writeWait              = 10 * time.Second
)

// Options tunes the transport.
type Options struct {
	PingInterval    time.Duration // heartbeat period; a peer silent for two periods is dropped
	MaxMessageBytes int64
	AllowedOrigins  []string // "*" or empty allows any origin
}

// Handler serves websocket connections at /ws.
type Handler struct {
	sync     *service.SyncService
	hub      *hub.Hub
	logger   *logger.Logger
	opts     Options
	upgrader websocket.Upgrader
	routes   map[domain.MessageType]handlerFunc

	conns sync.WaitGroup
}

// NewHandler creates a websocket handler.
func NewHandler(svc *service.SyncService, h *hub.Hub, log *logger.Logger, opts Options) *Handler {
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = defaultMaxMessageBytes
	}

	handler := &Handler{
		sync:   svc,
		hub:    h,
		logger: log,
		opts:   opts,
	}
	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     handler.checkOrigin,
	}
	handler.routes = routes()
	return handler
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.opts.AllowedOrigins, "*") || slices.Contains(h.opts.AllowedOrigins, origin)
}

// ServeHTTP upgrades the request and serves the connection until either side
// closes it.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	client, err := h.hub.Register()
	if err != nil {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written an error response.
		h.hub.Unregister(client)
		h.logger.WithError(err).Debug("websocket upgrade failed")
		return
	}

	h.conns.Add(1)
	defer h.conns.Done()

	conn := &Conn{
		ws:      ws,
		client:  client,
		handler: h,
		logger:  h.logger.WithClient(client.ID),
	}

	if err := h.sync.Connect(client); err != nil {
		conn.logger.WithError(err).Warn("failed to greet client")
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		conn.writePump()
	}()

	conn.readPump()
	h.sync.Disconnect(client)
	<-writerDone
}

// Shutdown waits for open connections to finish. Connections are closed by
// shutting the hub down first.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
