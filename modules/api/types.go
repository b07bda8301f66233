package api

import (
	"time"

	domain "github.com/example/presence-chat/domain/chat"
	"github.com/example/presence-chat/modules/activity"
)

// StatsResponse is the API response for server statistics.
type StatsResponse struct {
	Connections      int                  `json:"connections"`
	Rooms            int                  `json:"rooms"`
	ConnectedClients int                  `json:"connected_clients"`
	Summaries        []domain.RoomSummary `json:"summaries"`
	Typing           int                  `json:"typing"`
	StartedAt        time.Time            `json:"started_at"`
	UptimeSeconds    float64              `json:"uptime_seconds"`
}

// RoomListResponse is the API response for listing rooms.
type RoomListResponse struct {
	Rooms []domain.RoomSummary `json:"rooms"`
	Total int                  `json:"total"`
}

// HistoryResponse is the API response for message history.
type HistoryResponse struct {
	Room     string           `json:"room"`
	Messages []domain.Message `json:"messages"`
	Total    int              `json:"total"`
}

// ActivityResponse is the API response for the activity summary.
type ActivityResponse struct {
	Activity activity.Summary `json:"activity"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
