package api

import (
	"errors"

	domain "github.com/example/presence-chat/domain/chat"
	"github.com/example/presence-chat/modules/chat"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	// Health check
	app.Get("/health", m.healthHandler)

	// WebSocket endpoint
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(m.handleWebSocket))

	// REST API v1
	api := app.Group("/api/v1")
	api.Get("/stats", m.getStats)
	api.Get("/rooms", m.listRooms)
	api.Get("/rooms/:key/history", m.getHistory)
	api.Get("/activity", m.getActivity)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "api",
			"connected_clients": m.hub.ClientCount(),
		},
	})
}

// getStats handles GET /api/v1/stats. Concurrent requests share one call to
// the chat module.
func (m *APIModule) getStats(c *fiber.Ctx) error {
	v, err, _ := m.stats.Do("stats", func() (any, error) {
		return m.chatAdapter.Stats(c.UserContext())
	})
	if err != nil {
		m.logger.Warn("Failed to fetch stats", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "stats_failed",
			Message: "Failed to fetch stats",
		})
	}

	stats := v.(chat.Stats)
	return c.JSON(StatsResponse{
		Connections:      stats.Connections,
		Rooms:            stats.Rooms,
		ConnectedClients: m.hub.ClientCount(),
		Summaries:        stats.Summaries,
		Typing:           stats.Typing,
		StartedAt:        stats.StartedAt,
		UptimeSeconds:    stats.Uptime.Seconds(),
	})
}

// listRooms handles GET /api/v1/rooms.
func (m *APIModule) listRooms(c *fiber.Ctx) error {
	rooms, err := m.chatAdapter.ListRooms(c.UserContext())
	if err != nil {
		m.logger.Warn("Failed to list rooms", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "list_failed",
			Message: "Failed to list rooms",
		})
	}
	if rooms == nil {
		rooms = []domain.RoomSummary{}
	}

	return c.JSON(RoomListResponse{Rooms: rooms, Total: len(rooms)})
}

// getHistory handles GET /api/v1/rooms/:key/history.
func (m *APIModule) getHistory(c *fiber.Ctx) error {
	key := domain.NormalizeRoomKey(c.Params("key"))
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "limit must not be negative",
		})
	}

	messages, err := m.chatAdapter.History(c.UserContext(), key, limit)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownRoom) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error:   "not_found",
				Message: "Room not found",
			})
		}
		m.logger.Warn("Failed to fetch history", "room", key, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "history_failed",
			Message: "Failed to fetch history",
		})
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	return c.JSON(HistoryResponse{Room: key, Messages: messages, Total: len(messages)})
}

// getActivity handles GET /api/v1/activity.
func (m *APIModule) getActivity(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	summary, err := m.activityAdapter.Summary(c.UserContext(), limit)
	if err != nil {
		m.logger.Warn("Failed to fetch activity", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "activity_failed",
			Message: "Failed to fetch activity summary",
		})
	}
	return c.JSON(ActivityResponse{Activity: summary})
}
