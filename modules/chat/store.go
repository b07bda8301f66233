package chat

import (
	"fmt"
	"time"

	domain "github.com/example/presence-chat/domain/chat"
)

// DefaultHistorySize is the per-room history bound used when none is given.
const DefaultHistorySize = 100

// Room is the store's view of a room. Members holds connection ids in join
// order.
type Room struct {
	Key       string
	Name      string
	CreatedAt time.Time
	Members   []string
}

// RoomStore owns rooms, their member sets and bounded histories.
//
// Implementations are not safe for concurrent use; the Router serializes
// every call.
type RoomStore interface {
	GetOrCreate(key, displayName string) (Room, bool)
	Exists(key string) bool
	AddMember(key, connID string)
	RemoveMember(key, connID string)
	IsMember(key, connID string) bool
	Members(key string) []string
	AppendMessage(key string, msg domain.Message) error
	History(key string) []domain.Message
	ListRooms() []Room
	Count() int
}

type roomState struct {
	key       string
	name      string
	createdAt time.Time
	members   []string
	memberSet map[string]struct{}
	messages  []domain.Message
}

type memoryRoomStore struct {
	rooms      map[string]*roomState
	order      []string // keys in creation order
	maxHistory int
	now        func() time.Time
}

// NewMemoryRoomStore creates an in-memory RoomStore keeping at most
// maxHistory messages per room.
func NewMemoryRoomStore(maxHistory int) RoomStore {
	if maxHistory <= 0 {
		maxHistory = DefaultHistorySize
	}
	return &memoryRoomStore{
		rooms:      make(map[string]*roomState),
		maxHistory: maxHistory,
		now:        time.Now,
	}
}

func (s *memoryRoomStore) GetOrCreate(key, displayName string) (Room, bool) {
	if r, ok := s.rooms[key]; ok {
		return r.view(), false
	}
	if displayName == "" {
		displayName = key
	}
	r := &roomState{
		key:       key,
		name:      displayName,
		createdAt: s.now(),
		memberSet: make(map[string]struct{}),
		messages:  make([]domain.Message, 0),
	}
	s.rooms[key] = r
	s.order = append(s.order, key)
	return r.view(), true
}

func (s *memoryRoomStore) Exists(key string) bool {
	_, ok := s.rooms[key]
	return ok
}

func (s *memoryRoomStore) AddMember(key, connID string) {
	r, ok := s.rooms[key]
	if !ok {
		return
	}
	if _, member := r.memberSet[connID]; member {
		return
	}
	r.memberSet[connID] = struct{}{}
	r.members = append(r.members, connID)
}

func (s *memoryRoomStore) RemoveMember(key, connID string) {
	r, ok := s.rooms[key]
	if !ok {
		return
	}
	if _, member := r.memberSet[connID]; !member {
		return
	}
	delete(r.memberSet, connID)
	for i, id := range r.members {
		if id == connID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
}

func (s *memoryRoomStore) IsMember(key, connID string) bool {
	r, ok := s.rooms[key]
	if !ok {
		return false
	}
	_, member := r.memberSet[connID]
	return member
}

func (s *memoryRoomStore) Members(key string) []string {
	r, ok := s.rooms[key]
	if !ok {
		return nil
	}
	out := make([]string, len(r.members))
	copy(out, r.members)
	return out
}

// AppendMessage adds msg to the room's history, evicting the oldest entry
// once the bound is reached.
func (s *memoryRoomStore) AppendMessage(key string, msg domain.Message) error {
	r, ok := s.rooms[key]
	if !ok {
		return fmt.Errorf("append to %q: %w", key, domain.ErrUnknownRoom)
	}
	if len(r.messages) >= s.maxHistory {
		r.messages = r.messages[len(r.messages)-s.maxHistory+1:]
	}
	r.messages = append(r.messages, msg)
	return nil
}

// History returns the room's messages oldest first.
func (s *memoryRoomStore) History(key string) []domain.Message {
	r, ok := s.rooms[key]
	if !ok {
		return []domain.Message{}
	}
	out := make([]domain.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

func (s *memoryRoomStore) ListRooms() []Room {
	out := make([]Room, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.rooms[key].view())
	}
	return out
}

func (s *memoryRoomStore) Count() int {
	return len(s.rooms)
}

func (r *roomState) view() Room {
	members := make([]string, len(r.members))
	copy(members, r.members)
	return Room{
		Key:       r.key,
		Name:      r.name,
		CreatedAt: r.createdAt,
		Members:   members,
	}
}
