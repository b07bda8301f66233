package chat

import (
	"time"

	domain "github.com/example/presence-chat/domain/chat"
)

// EventType names an outbound server event on the wire.
type EventType string

const (
	EventConnected      EventType = "connected"
	EventMessage        EventType = "message"
	EventRoomHistory    EventType = "room-history"
	EventPresenceUpdate EventType = "presence-update"
	EventRoomsList      EventType = "rooms-list"
	EventUserTyping     EventType = "user-typing"
	EventUserStopTyping EventType = "user-stop-typing"
	EventPrivateMessage EventType = "private-message"
	EventError          EventType = "error"
)

// RecipientKind selects how an event's audience is computed.
type RecipientKind int

const (
	RecipientSingle RecipientKind = iota
	RecipientAllInRoom
	RecipientAllInRoomExcept
)

// Recipient describes who receives an event. It is resolved to concrete
// connection ids by the Router at the moment the event is produced.
type Recipient struct {
	Kind   RecipientKind
	Room   string
	ConnID string
}

// AllInRoom addresses every member of room.
func AllInRoom(room string) Recipient {
	return Recipient{Kind: RecipientAllInRoom, Room: room}
}

// AllInRoomExcept addresses every member of room but connID.
func AllInRoomExcept(room, connID string) Recipient {
	return Recipient{Kind: RecipientAllInRoomExcept, Room: room, ConnID: connID}
}

// Single addresses one connection.
func Single(connID string) Recipient {
	return Recipient{Kind: RecipientSingle, ConnID: connID}
}

// Event is an outbound server event. Only Type and Payload go on the wire.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
	To      Recipient `json:"-"`
}

// Deliverer hands resolved events to the transport. Deliver must not block
// on slow recipients.
type Deliverer interface {
	Deliver(connIDs []string, ev Event)
}

type nopDeliverer struct{}

func (nopDeliverer) Deliver([]string, Event) {}

// Payloads

// ConnectedPayload tells a client its assigned connection id.
type ConnectedPayload struct {
	ConnectionID string `json:"connection_id"`
}

// RoomHistoryPayload carries a room's history window, oldest first.
type RoomHistoryPayload struct {
	Room     string           `json:"room"`
	Messages []domain.Message `json:"messages"`
}

// RoomsListPayload carries summaries of every room.
type RoomsListPayload struct {
	Rooms []domain.RoomSummary `json:"summaries"`
}

// TypingPayload is sent with user-typing and user-stop-typing.
type TypingPayload struct {
	Room     string `json:"room"`
	Sender   string `json:"sender"`
	SenderID string `json:"sender_id"`
}

// PrivateMessagePayload is delivered to the target and echoed to the sender.
type PrivateMessagePayload struct {
	ID        uint64    `json:"id"`
	From      string    `json:"from"`
	FromID    string    `json:"from_id"`
	To        string    `json:"to"`
	ToID      string    `json:"to_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorPayload reports a rejected inbound event to its sender.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ConnectedEvent builds the greeting sent right after a connection opens.
func ConnectedEvent(connID string) Event {
	return Event{
		Type:    EventConnected,
		Payload: ConnectedPayload{ConnectionID: connID},
		To:      Single(connID),
	}
}

// ErrorEvent builds an error event addressed to connID only.
func ErrorEvent(connID string, err error) Event {
	return Event{
		Type: EventError,
		Payload: ErrorPayload{
			Code:    domain.ErrorCode(err),
			Message: err.Error(),
		},
		To: Single(connID),
	}
}

func messageEvent(to Recipient, msg domain.Message) Event {
	return Event{Type: EventMessage, Payload: msg, To: to}
}

func historyEvent(connID, room string, messages []domain.Message) Event {
	return Event{
		Type:    EventRoomHistory,
		Payload: RoomHistoryPayload{Room: room, Messages: messages},
		To:      Single(connID),
	}
}

func presenceEvent(p domain.Presence) Event {
	return Event{Type: EventPresenceUpdate, Payload: p, To: AllInRoom(p.Room)}
}

func roomsListEvent(connID string, rooms []domain.RoomSummary) Event {
	return Event{
		Type:    EventRoomsList,
		Payload: RoomsListPayload{Rooms: rooms},
		To:      Single(connID),
	}
}

func typingEvent(t EventType, room string, s domain.Session) Event {
	return Event{
		Type:    t,
		Payload: TypingPayload{Room: room, Sender: s.DisplayName, SenderID: s.ConnID},
		To:      AllInRoomExcept(room, s.ConnID),
	}
}
