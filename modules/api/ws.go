package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/presence-chat/domain/chat"
	"github.com/example/presence-chat/modules/chat"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Time allowed for the chat module to process one inbound event.
	submitTimeout = 5 * time.Second
)

// handleWebSocket handles WebSocket connections at /ws. Only the hub writes
// to the connection; this goroutine reads.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	connID := uuid.New().String()

	client, err := m.hub.Register(connID, c)
	if err != nil {
		m.logger.Warn("Rejected WebSocket connection", "connID", connID, "error", err)
		return
	}
	m.logger.Info("WebSocket connected", "connID", connID, "remote", c.RemoteAddr().String())

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		if err := m.chatAdapter.Submit(ctx, chat.Disconnect(connID)); err != nil {
			m.logger.Warn("Disconnect not processed", "connID", connID, "error", err)
		}
		// The connection returns to fiber's pool when this handler exits, so
		// the pump must be gone first, even for a client the hub dropped.
		m.hub.Unregister(client)
		m.logger.Info("WebSocket disconnected", "connID", connID)
	}()

	m.hub.Deliver([]string{connID}, chat.ConnectedEvent(connID))

	if m.opts.MaxMessageSize > 0 {
		c.SetReadLimit(m.opts.MaxMessageSize)
	}
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := rate.NewLimiter(rate.Limit(m.opts.RatePerSecond), m.opts.RateBurst)

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			select {
			case <-client.Exited():
				m.logger.Debug("Connection closed by hub", "connID", connID)
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					m.logger.Warn("WebSocket read error", "connID", connID, "error", err)
				}
			}
			return
		}

		if !limiter.Allow() {
			m.reject(connID, fmt.Errorf("too many events: %w", domain.ErrRateLimited))
			continue
		}

		cmd, err := decodeFrame(connID, data)
		if err != nil {
			m.reject(connID, err)
			continue
		}

		m.submit(cmd)
	}
}

// submit forwards cmd to the chat router. Rejections were already delivered
// to the sender by the router.
func (m *APIModule) submit(cmd chat.Command) {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	err := m.chatAdapter.Submit(ctx, cmd)
	if err == nil {
		return
	}
	var rejected *chat.CommandRejectedError
	if errors.As(err, &rejected) {
		m.logger.Debug("Command rejected", "connID", cmd.ConnID, "type", string(cmd.Type), "code", rejected.Code)
		return
	}
	m.logger.Error("Command not processed", "connID", cmd.ConnID, "type", string(cmd.Type), "error", err)
	m.reject(cmd.ConnID, err)
}

// reject sends an error event to connID through the hub.
func (m *APIModule) reject(connID string, err error) {
	ev := chat.ErrorEvent(connID, err)
	m.hub.Deliver([]string{connID}, ev)
}
