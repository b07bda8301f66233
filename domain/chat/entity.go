package chat

import (
	"strings"
	"time"
)

// DefaultRoom is used when a join names no room.
const DefaultRoom = "general"

// AnonymousName is used when a join carries no display name.
const AnonymousName = "anonymous"

// MessageKind distinguishes user, system and private messages.
type MessageKind string

const (
	KindUser    MessageKind = "user"
	KindSystem  MessageKind = "system"
	KindPrivate MessageKind = "private"
)

// ConnState is the lifecycle state of a connection as seen by the router.
type ConnState int

const (
	StateUnjoined ConnState = iota
	StateJoined
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateUnjoined:
		return "unjoined"
	case StateJoined:
		return "joined"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session is the registry entry of a joined connection.
type Session struct {
	ConnID      string    `json:"connection_id"`
	DisplayName string    `json:"display_name"`
	RoomKey     string    `json:"room"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Message is an immutable chat message. SenderID is empty for system
// messages; To is only set for private messages.
type Message struct {
	ID         uint64      `json:"id"`
	Kind       MessageKind `json:"kind"`
	Room       string      `json:"room,omitempty"`
	SenderID   string      `json:"sender_id,omitempty"`
	SenderName string      `json:"sender"`
	To         string      `json:"to,omitempty"`
	ToName     string      `json:"to_name,omitempty"`
	Text       string      `json:"text"`
	Timestamp  time.Time   `json:"timestamp"`
}

// RoomSummary is a read-only view of a room.
type RoomSummary struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	MemberCount int       `json:"member_count"`
	Members     []string  `json:"members"`
	Typing      []string  `json:"typing,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Presence is the membership snapshot of one room.
type Presence struct {
	Room    string   `json:"room"`
	Members []string `json:"members"`
	Count   int      `json:"count"`
}

// NormalizeRoomKey folds a room name to its case-insensitive key.
func NormalizeRoomKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
