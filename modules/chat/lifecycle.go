package chat

import (
	"fmt"
	"strings"
	"time"

	domain "github.com/example/presence-chat/domain/chat"
)

// Lifecycle runs the compound join, switch-room and disconnect sequences.
// Each is a fixed order of registry, store and tracker calls; preconditions
// are checked before the first mutation so a rejected command changes
// nothing.
type Lifecycle struct {
	registry ConnectionRegistry
	rooms    RoomStore
	presence *Tracker
	nextID   func() uint64
	now      func() time.Time
}

// NewLifecycle wires a Lifecycle over shared state. nextID must return
// strictly increasing message ids.
func NewLifecycle(registry ConnectionRegistry, rooms RoomStore, presence *Tracker, nextID func() uint64) *Lifecycle {
	return &Lifecycle{
		registry: registry,
		rooms:    rooms,
		presence: presence,
		nextID:   nextID,
		now:      time.Now,
	}
}

// Join registers connID under displayName and puts it in roomName, creating
// the room on demand.
func (l *Lifecycle) Join(connID, displayName, roomName string) (*outcome, error) {
	if _, joined := l.registry.Lookup(connID); joined {
		return nil, fmt.Errorf("join: %w: already joined", domain.ErrInvalidEventForState)
	}
	if err := ValidateRoomName(roomName); err != nil {
		return nil, err
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = domain.AnonymousName
	}
	roomName = strings.TrimSpace(roomName)
	if roomName == "" {
		roomName = domain.DefaultRoom
	}
	key := domain.NormalizeRoomKey(roomName)

	session, err := l.registry.Register(connID, displayName)
	if err != nil {
		return nil, err
	}
	room, created := l.rooms.GetOrCreate(key, roomName)
	if err := l.registry.SetRoom(connID, key); err != nil {
		return nil, err
	}
	l.rooms.AddMember(key, connID)
	session.RoomKey = key

	out := &outcome{}
	out.emit(
		messageEvent(Single(connID), l.systemMessage(key, fmt.Sprintf("Welcome to %s, %s!", room.Name, displayName))),
		historyEvent(connID, key, l.rooms.History(key)),
		messageEvent(AllInRoomExcept(key, connID), l.systemMessage(key, displayName+" joined the room")),
		presenceEvent(l.presence.Snapshot(key)),
		roomsListEvent(connID, l.Summaries()),
	)
	if created {
		out.notify(func(n Notifier) { n.RoomCreated(room, connID) })
	}
	out.notify(func(n Notifier) { n.UserJoined(session) })
	return out, nil
}

// SwitchRoom moves a joined connection from its current room to roomName.
func (l *Lifecycle) SwitchRoom(connID, roomName string) (*outcome, error) {
	session, joined := l.registry.Lookup(connID)
	if !joined {
		return nil, fmt.Errorf("switch-room: %w: not joined", domain.ErrInvalidEventForState)
	}
	if err := ValidateRoomName(roomName); err != nil {
		return nil, err
	}
	roomName = strings.TrimSpace(roomName)
	if roomName == "" {
		return nil, ErrRoomNameEmpty
	}
	newKey := domain.NormalizeRoomKey(roomName)
	oldKey := session.RoomKey
	if newKey == oldKey {
		return nil, fmt.Errorf("switch-room: %w: already in %q", domain.ErrInvalidEventForState, newKey)
	}

	out := &outcome{}
	out.emit(l.presence.StopTyping(oldKey, connID)...)

	l.rooms.RemoveMember(oldKey, connID)
	if err := l.registry.SetRoom(connID, newKey); err != nil {
		return nil, err
	}
	room, created := l.rooms.GetOrCreate(newKey, roomName)
	l.rooms.AddMember(newKey, connID)

	out.emit(
		messageEvent(AllInRoom(oldKey), l.systemMessage(oldKey, session.DisplayName+" left the room")),
		presenceEvent(l.presence.Snapshot(oldKey)),
		historyEvent(connID, newKey, l.rooms.History(newKey)),
		messageEvent(AllInRoomExcept(newKey, connID), l.systemMessage(newKey, session.DisplayName+" joined the room")),
		presenceEvent(l.presence.Snapshot(newKey)),
	)

	left := session
	joinedSession := session
	joinedSession.RoomKey = newKey
	out.notify(func(n Notifier) { n.UserLeft(left, oldKey) })
	if created {
		out.notify(func(n Notifier) { n.RoomCreated(room, connID) })
	}
	out.notify(func(n Notifier) { n.UserJoined(joinedSession) })
	return out, nil
}

// Disconnect removes connID from its room and the registry. A connection
// that never joined has nothing to clean up and yields an empty outcome.
func (l *Lifecycle) Disconnect(connID string) (*outcome, error) {
	session, joined := l.registry.Lookup(connID)
	if !joined {
		return &outcome{}, nil
	}
	key := session.RoomKey

	out := &outcome{}
	out.emit(l.presence.StopTyping(key, connID)...)

	l.rooms.RemoveMember(key, connID)
	if _, err := l.registry.Remove(connID); err != nil {
		return nil, err
	}

	out.emit(
		messageEvent(AllInRoom(key), l.systemMessage(key, session.DisplayName+" left the room")),
		presenceEvent(l.presence.Snapshot(key)),
	)
	out.notify(func(n Notifier) { n.UserLeft(session, key) })
	return out, nil
}

// Summaries lists every room with member display names.
func (l *Lifecycle) Summaries() []domain.RoomSummary {
	rooms := l.rooms.ListRooms()
	out := make([]domain.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, l.summary(r))
	}
	return out
}

func (l *Lifecycle) summary(r Room) domain.RoomSummary {
	members := l.presence.names(r.Members)
	return domain.RoomSummary{
		Key:         r.Key,
		Name:        r.Name,
		MemberCount: len(members),
		Members:     members,
		Typing:      l.presence.Typing(r.Key),
		CreatedAt:   r.CreatedAt,
	}
}

// systemMessage builds an announcement. Announcements are delivered but never
// stored in room history.
func (l *Lifecycle) systemMessage(room, text string) domain.Message {
	return domain.Message{
		ID:         l.nextID(),
		Kind:       domain.KindSystem,
		Room:       room,
		SenderName: "system",
		Text:       text,
		Timestamp:  l.now(),
	}
}
