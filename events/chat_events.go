package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// MessageSentEvent is emitted when a user message is stored in a room.
type MessageSentEvent struct {
	MessageID  uint64    `json:"message_id"`
	Room       string    `json:"room"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

// PrivateMessageSentEvent is emitted when a private message is delivered.
// The body is deliberately left out.
type PrivateMessageSentEvent struct {
	MessageID uint64    `json:"message_id"`
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	Timestamp time.Time `json:"timestamp"`
}

// UserJoinedEvent is emitted when a connection enters a room.
type UserJoinedEvent struct {
	Room         string    `json:"room"`
	ConnectionID string    `json:"connection_id"`
	DisplayName  string    `json:"display_name"`
	Timestamp    time.Time `json:"timestamp"`
}

// UserLeftEvent is emitted when a connection leaves a room, by switching or
// disconnecting.
type UserLeftEvent struct {
	Room         string    `json:"room"`
	ConnectionID string    `json:"connection_id"`
	DisplayName  string    `json:"display_name"`
	Timestamp    time.Time `json:"timestamp"`
}

// RoomCreatedEvent is emitted when a room is created at startup or on demand.
type RoomCreatedEvent struct {
	Room      string    `json:"room"`
	RoomName  string    `json:"room_name"`
	CreatedBy string    `json:"created_by"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the chat domain.
var (
	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"chat",
		"MessageSent",
		"v1",
	)

	PrivateMessageSentV1 = helper.EventDefinition[PrivateMessageSentEvent](
		"chat",
		"PrivateMessageSent",
		"v1",
	)

	UserJoinedV1 = helper.EventDefinition[UserJoinedEvent](
		"chat",
		"UserJoined",
		"v1",
	)

	UserLeftV1 = helper.EventDefinition[UserLeftEvent](
		"chat",
		"UserLeft",
		"v1",
	)

	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"chat",
		"RoomCreated",
		"v1",
	)
)
