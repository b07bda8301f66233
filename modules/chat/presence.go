package chat

import (
	"time"

	domain "github.com/example/presence-chat/domain/chat"
)

// DefaultTypingTimeout is how long a typing indicator lives without refresh.
const DefaultTypingTimeout = time.Second

// ExpiryFunc is called from a timer goroutine when a typing state lapses.
// gen identifies the schedule that fired so stale timers can be ignored.
type ExpiryFunc func(room, connID string, gen uint64)

type typingKey struct {
	room string
	conn string
}

type typingEntry struct {
	expires time.Time
	timer   *time.Timer
	gen     uint64
}

// Tracker derives presence snapshots and owns the typing state machine.
// Like the stores it is driven only from the Router goroutine; timers never
// touch state directly but report back through the ExpiryFunc.
type Tracker struct {
	registry ConnectionRegistry
	rooms    RoomStore
	timeout  time.Duration
	typing   map[typingKey]*typingEntry
	gen      uint64
	onExpire ExpiryFunc
	now      func() time.Time
}

// NewTracker creates a Tracker over the given registry and store.
func NewTracker(registry ConnectionRegistry, rooms RoomStore, timeout time.Duration, onExpire ExpiryFunc) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTypingTimeout
	}
	if onExpire == nil {
		onExpire = func(string, string, uint64) {}
	}
	return &Tracker{
		registry: registry,
		rooms:    rooms,
		timeout:  timeout,
		typing:   make(map[typingKey]*typingEntry),
		onExpire: onExpire,
		now:      time.Now,
	}
}

// Snapshot returns the current membership of room in join order.
func (t *Tracker) Snapshot(room string) domain.Presence {
	members := t.names(t.rooms.Members(room))
	return domain.Presence{
		Room:    room,
		Members: members,
		Count:   len(members),
	}
}

// StartTyping marks connID as typing in room. Only the first call of a
// typing streak produces a user-typing event; later calls just push the
// expiry out.
func (t *Tracker) StartTyping(room, connID string) []Event {
	session, ok := t.registry.Lookup(connID)
	if !ok {
		return nil
	}
	key := typingKey{room: room, conn: connID}
	if e, exists := t.typing[key]; exists {
		e.timer.Stop()
		t.schedule(key, e)
		return nil
	}
	e := &typingEntry{}
	t.typing[key] = e
	t.schedule(key, e)
	return []Event{typingEvent(EventUserTyping, room, session)}
}

// StopTyping clears connID's typing state in room. Nothing is emitted if it
// was not typing.
func (t *Tracker) StopTyping(room, connID string) []Event {
	key := typingKey{room: room, conn: connID}
	e, exists := t.typing[key]
	if !exists {
		return nil
	}
	e.timer.Stop()
	delete(t.typing, key)
	return []Event{typingEvent(EventUserStopTyping, room, t.session(connID))}
}

// Expire handles a fired timer. Stale generations are ignored.
func (t *Tracker) Expire(room, connID string, gen uint64) []Event {
	key := typingKey{room: room, conn: connID}
	e, exists := t.typing[key]
	if !exists || e.gen != gen {
		return nil
	}
	delete(t.typing, key)
	return []Event{typingEvent(EventUserStopTyping, room, t.session(connID))}
}

// IsTyping reports whether connID is typing in room. A lapsed expiry counts
// as not typing even if its timer has not been processed yet.
func (t *Tracker) IsTyping(room, connID string) bool {
	e, exists := t.typing[typingKey{room: room, conn: connID}]
	return exists && t.now().Before(e.expires)
}

// Typing returns the display names currently typing in room.
func (t *Tracker) Typing(room string) []string {
	var names []string
	for _, id := range t.rooms.Members(room) {
		if t.IsTyping(room, id) {
			names = append(names, t.session(id).DisplayName)
		}
	}
	return names
}

// Pending returns the number of live typing states.
func (t *Tracker) Pending() int {
	return len(t.typing)
}

// Stop cancels every pending timer.
func (t *Tracker) Stop() {
	for key, e := range t.typing {
		e.timer.Stop()
		delete(t.typing, key)
	}
}

func (t *Tracker) schedule(key typingKey, e *typingEntry) {
	t.gen++
	gen := t.gen
	e.gen = gen
	e.expires = t.now().Add(t.timeout)
	e.timer = time.AfterFunc(t.timeout, func() {
		t.onExpire(key.room, key.conn, gen)
	})
}

func (t *Tracker) session(connID string) domain.Session {
	if s, ok := t.registry.Lookup(connID); ok {
		return s
	}
	return domain.Session{ConnID: connID}
}

func (t *Tracker) names(ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, t.session(id).DisplayName)
	}
	return names
}
