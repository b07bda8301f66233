package activity

import (
	"sort"
	"sync"
	"time"
)

// RoomActivity tracks counters for a single room.
type RoomActivity struct {
	Room         string    `json:"room"`
	Messages     int64     `json:"messages"`
	Joins        int64     `json:"joins"`
	Leaves       int64     `json:"leaves"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	LastActivity time.Time `json:"last_activity,omitempty"`
}

// Summary is an overall view of chat activity since startup.
type Summary struct {
	RoomsCreated    int64          `json:"rooms_created"`
	Messages        int64          `json:"messages"`
	PrivateMessages int64          `json:"private_messages"`
	Joins           int64          `json:"joins"`
	Leaves          int64          `json:"leaves"`
	Rooms           []RoomActivity `json:"rooms"`
}

// Store provides thread-safe counters fed by chat domain events.
type Store struct {
	mu              sync.RWMutex
	rooms           map[string]*RoomActivity
	roomsCreated    int64
	messages        int64
	privateMessages int64
	joins           int64
	leaves          int64
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		rooms: make(map[string]*RoomActivity),
	}
}

// room returns the counters for key, creating them if needed. Caller holds mu.
func (s *Store) room(key string) *RoomActivity {
	r, ok := s.rooms[key]
	if !ok {
		r = &RoomActivity{Room: key}
		s.rooms[key] = r
	}
	return r
}

// RecordRoomCreated records a RoomCreated event.
func (s *Store) RecordRoomCreated(room string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roomsCreated++
	r := s.room(room)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = at
	}
}

// RecordMessage records a room message.
func (s *Store) RecordMessage(room string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages++
	r := s.room(room)
	r.Messages++
	r.LastActivity = at
}

// RecordPrivateMessage records a private message. Private messages are not
// attributed to a room.
func (s *Store) RecordPrivateMessage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.privateMessages++
}

// RecordJoin records a connection entering room.
func (s *Store) RecordJoin(room string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.joins++
	r := s.room(room)
	r.Joins++
	r.LastActivity = at
}

// RecordLeave records a connection leaving room.
func (s *Store) RecordLeave(room string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leaves++
	r := s.room(room)
	r.Leaves++
	r.LastActivity = at
}

// Room returns a copy of the counters for room.
func (s *Store) Room(room string) (RoomActivity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[room]
	if !ok {
		return RoomActivity{}, false
	}
	return *r, true
}

// Summary returns the overall counters with per-room activity sorted by
// message count, busiest first.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]RoomActivity, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, *r)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Messages != rooms[j].Messages {
			return rooms[i].Messages > rooms[j].Messages
		}
		return rooms[i].Room < rooms[j].Room
	})

	return Summary{
		RoomsCreated:    s.roomsCreated,
		Messages:        s.messages,
		PrivateMessages: s.privateMessages,
		Joins:           s.joins,
		Leaves:          s.leaves,
		Rooms:           rooms,
	}
}
