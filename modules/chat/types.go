package chat

import domain "github.com/example/presence-chat/domain/chat"

// Service names registered by the chat module.
const (
	ServiceSubmitCommand = "submit-command"
	ServiceGetStats      = "get-stats"
	ServiceListRooms     = "list-rooms"
	ServiceGetHistory    = "get-history"
)

// SubmitCommandRequest carries one inbound client event.
type SubmitCommandRequest struct {
	Command Command `json:"command"`
}

// SubmitCommandResponse reports whether the event was accepted. Rejections
// have already been sent to the connection as an error event.
type SubmitCommandResponse struct {
	Accepted bool   `json:"accepted"`
	Code     string `json:"code,omitempty"`
	Error    string `json:"error,omitempty"`
}

// GetStatsRequest is the request for router statistics.
type GetStatsRequest struct{}

// GetStatsResponse wraps Stats.
type GetStatsResponse struct {
	Stats Stats `json:"stats"`
}

// ListRoomsRequest is the request for room summaries.
type ListRoomsRequest struct{}

// ListRoomsResponse carries room summaries in creation order.
type ListRoomsResponse struct {
	Rooms []domain.RoomSummary `json:"rooms"`
}

// GetHistoryRequest asks for the last Limit messages of Room. Limit <= 0
// returns the full window.
type GetHistoryRequest struct {
	Room  string `json:"room"`
	Limit int    `json:"limit"`
}

// GetHistoryResponse carries a history window, oldest first.
type GetHistoryResponse struct {
	Room     string           `json:"room"`
	Found    bool             `json:"found"`
	Messages []domain.Message `json:"messages"`
}
