package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/presence-chat/modules/chat"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period. Must be less than the peer's read
	// deadline.
	pingPeriod = 54 * time.Second

	// DefaultSendBuffer is the per-client outbound queue length.
	DefaultSendBuffer = 256
)

// ErrDuplicateClient is returned when a connection id is registered twice.
var ErrDuplicateClient = errors.New("client already registered")

// Conn is the part of a websocket connection the hub writes to.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is a registered connection with its outbound queue.
type Client struct {
	ID     string
	conn   Conn
	send   chan []byte
	quit   chan struct{}
	exited chan struct{}
	once   sync.Once
}

func (c *Client) stop() {
	c.once.Do(func() { close(c.quit) })
}

// Exited is closed once the client's write pump has returned and the
// connection is no longer written to.
func (c *Client) Exited() <-chan struct{} {
	return c.exited
}

// Hub fans resolved events out to websocket clients. Each client has its own
// buffered queue drained by a write pump, so a slow client never holds up the
// others; a client whose queue is full is dropped.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	bufferSize int
	pumps      errgroup.Group
	closed     bool
	delivered  atomic.Int64
	dropped    atomic.Int64
	logger     types.Logger
}

var _ chat.Deliverer = (*Hub)(nil)

// NewHub creates a new Hub.
func NewHub(bufferSize int, logger types.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultSendBuffer
	}
	return &Hub{
		clients:    make(map[string]*Client),
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Register adds a connection under id and starts its write pump.
func (h *Hub) Register(id string, conn Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, fmt.Errorf("register %s: hub is shut down", id)
	}
	if _, exists := h.clients[id]; exists {
		return nil, fmt.Errorf("register %s: %w", id, ErrDuplicateClient)
	}
	c := &Client{
		ID:     id,
		conn:   conn,
		send:   make(chan []byte, h.bufferSize),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	h.clients[id] = c
	h.pumps.Go(func() error {
		h.writePump(c)
		return nil
	})
	h.logger.Debug("Client registered", "connID", id)
	return c, nil
}

// Unregister removes c and waits for its write pump to stop. It waits even
// when c was already dropped from the map, since a dropped client's pump may
// still be inside a write on the connection.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.ID]; ok && cur == c {
		delete(h.clients, c.ID)
	}
	h.mu.Unlock()

	c.stop()
	<-c.exited
	h.logger.Debug("Client unregistered", "connID", c.ID)
}

// Deliver implements chat.Deliverer. The event is marshalled once and queued
// for every recipient without blocking.
func (h *Hub) Deliver(connIDs []string, ev chat.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to marshal event", "type", string(ev.Type), "error", err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for _, id := range connIDs {
		c, ok := h.clients[id]
		if !ok {
			continue
		}
		select {
		case c.send <- data:
			h.delivered.Add(1)
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.drop(c)
	}
}

// drop disconnects a client whose queue overflowed. Closing the connection
// makes its reader fail, which triggers the normal disconnect path.
func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.ID]; ok && cur == c {
		delete(h.clients, c.ID)
	}
	h.mu.Unlock()

	h.dropped.Add(1)
	h.logger.Warn("Dropping slow client", "connID", c.ID)
	c.stop()
}

func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.exited)
	}()

	for {
		select {
		case <-c.quit:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("Write failed", "connID", c.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Shutdown stops every client and waits for the write pumps to finish or ctx
// to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.stop()
	}

	done := make(chan struct{})
	go func() {
		_ = h.pumps.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for write pumps: %w", ctx.Err())
	}
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Delivered returns how many frames have been queued so far.
func (h *Hub) Delivered() int64 {
	return h.delivered.Load()
}

// Dropped returns how many clients were disconnected for falling behind.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
