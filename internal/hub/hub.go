// Package hub tracks connected clients, their room membership, and fans
// encoded messages out to room members through per-client send queues.
package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pixelworld/pixelworld-server/internal/domain"
	domainerrors "github.com/pixelworld/pixelworld-server/internal/errors"
	"github.com/pixelworld/pixelworld-server/internal/id"
)

// DefaultSendBuffer is the per-client queue length used when none is configured.
const DefaultSendBuffer = 256

// Client is one connected peer. The transport drains Send until Done closes.
type Client struct {
	ID          string
	ConnectedAt time.Time

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// guarded by Hub.mu
	room string
}

// Send returns the client's outbound queue.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Done is closed when the hub drops the client.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Hub is the broadcast fan-out and membership tracker.
//
// Lock order: a caller may hold a room lock while calling into the hub, never
// the other way around. The send channel is never closed, so enqueueing under
// the read lock cannot race with eviction.
type Hub struct {
	logger     *slog.Logger
	sendBuffer int

	mu       sync.RWMutex
	clients  map[string]*Client
	rooms    map[string]map[string]*Client
	shutdown bool

	slowWarn rate.Sometimes
}

// New creates a hub whose clients each queue up to sendBuffer frames.
func New(logger *slog.Logger, sendBuffer int) *Hub {
	if sendBuffer < 1 {
		sendBuffer = DefaultSendBuffer
	}
	return &Hub{
		logger:     logger,
		sendBuffer: sendBuffer,
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		slowWarn:   rate.Sometimes{Interval: 5 * time.Second},
	}
}

// Register adds a new client that belongs to no room yet.
func (h *Hub) Register() (*Client, error) {
	clientID, err := id.Generate(id.PrefixConnection)
	if err != nil {
		return nil, err
	}

	client := &Client{
		ID:          clientID,
		ConnectedAt: time.Now(),
		send:        make(chan []byte, h.sendBuffer),
		done:        make(chan struct{}),
	}

	h.mu.Lock()
	if h.shutdown {
		h.mu.Unlock()
		return nil, domainerrors.Unavailable("server is shutting down")
	}
	h.clients[client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client connected",
		slog.String("client_id", client.ID),
		slog.Int("total_clients", total))
	return client, nil
}

// Unregister removes the client, leaving its room, and closes Done.
// Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		c.close()
		return
	}
	delete(h.clients, c.ID)
	var slow []*Client
	if left := h.leaveLocked(c); left != "" {
		slow = h.announceCountLocked(left)
	}
	total := len(h.clients)
	h.mu.Unlock()

	c.close()
	h.evict(slow)

	h.logger.Info("client disconnected",
		slog.String("client_id", c.ID),
		slog.Duration("duration", time.Since(c.ConnectedAt)),
		slog.Int("total_clients", total))
}

// Join moves c into slug, implicitly leaving its previous room, and
// announces the new count to both rooms. It returns the room left ("" if
// none) and the new member count of slug.
func (h *Hub) Join(c *Client, slug string) (string, int) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return "", 0
	}

	var left string
	var slow []*Client
	if c.room != slug {
		if left = h.leaveLocked(c); left != "" {
			slow = h.announceCountLocked(left)
		}
		members, ok := h.rooms[slug]
		if !ok {
			members = make(map[string]*Client)
			h.rooms[slug] = members
		}
		members[c.ID] = c
		c.room = slug
	}
	slow = append(slow, h.announceCountLocked(slug)...)
	count := len(h.rooms[slug])
	h.mu.Unlock()

	h.evict(slow)
	return left, count
}

// Leave removes c from its room. It returns the room left, or "".
func (h *Hub) Leave(c *Client) string {
	h.mu.Lock()
	var slow []*Client
	left := h.leaveLocked(c)
	if left != "" {
		slow = h.announceCountLocked(left)
	}
	h.mu.Unlock()

	h.evict(slow)
	return left
}

func (h *Hub) leaveLocked(c *Client) string {
	slug := c.room
	if slug == "" {
		return ""
	}
	c.room = ""
	if members, ok := h.rooms[slug]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, slug)
		}
	}
	return slug
}

// RoomOf returns the room c currently belongs to, or "".
func (h *Hub) RoomOf(c *Client) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.room
}

// Count returns the number of clients in slug.
func (h *Hub) Count(slug string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[slug])
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send enqueues frame for one client without blocking. A client whose queue
// is full is dropped.
func (h *Hub) Send(c *Client, frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		h.evict([]*Client{c})
		return false
	}
}

// Broadcast enqueues frame for every member of slug except exclude (which may
// be nil) and returns how many clients received it. It never blocks: slow
// clients are dropped and will get the full history when they rejoin.
func (h *Hub) Broadcast(slug string, exclude *Client, frame []byte) int {
	h.mu.RLock()
	delivered, slow := h.fanoutLocked(slug, exclude, frame)
	h.mu.RUnlock()

	h.evict(slow)
	return delivered
}

// fanoutLocked requires h.mu held in either mode.
func (h *Hub) fanoutLocked(slug string, exclude *Client, frame []byte) (int, []*Client) {
	var delivered int
	var slow []*Client
	for _, client := range h.rooms[slug] {
		if client == exclude {
			continue
		}
		select {
		case client.send <- frame:
			delivered++
		default:
			slow = append(slow, client)
		}
	}
	return delivered, slow
}

// announceCountLocked enqueues the current user count to every member of
// slug. Counts are enqueued under the write lock so members observe them in
// the order membership changed.
func (h *Hub) announceCountLocked(slug string) []*Client {
	count := len(h.rooms[slug])
	if count == 0 {
		return nil
	}
	frame, err := domain.EncodeMessage(domain.MessageUserCount, count)
	if err != nil {
		h.logger.Error("encode user count", slog.String("error", err.Error()))
		return nil
	}
	_, slow := h.fanoutLocked(slug, nil, frame)
	return slow
}

// evict drops clients whose queues overflowed. Their rooms get a fresh count,
// which may in turn overflow further clients.
func (h *Hub) evict(clients []*Client) {
	for len(clients) > 0 {
		var dropped []*Client
		var slow []*Client

		h.mu.Lock()
		for _, c := range clients {
			if _, ok := h.clients[c.ID]; !ok {
				continue
			}
			delete(h.clients, c.ID)
			dropped = append(dropped, c)
			if left := h.leaveLocked(c); left != "" {
				slow = append(slow, h.announceCountLocked(left)...)
			}
		}
		h.mu.Unlock()

		for _, c := range clients {
			c.close()
		}
		if len(dropped) > 0 {
			h.slowWarn.Do(func() {
				h.logger.Warn("dropped slow clients",
					slog.Int("count", len(dropped)),
					slog.String("client_id", dropped[0].ID))
			})
		}
		clients = slow
	}
}

// Shutdown drops every client and refuses new registrations.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	h.shutdown = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
		c.room = ""
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}

	h.logger.Info("hub shut down", slog.Int("clients_closed", len(clients)))
	return nil
}
