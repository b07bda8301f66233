package chat

import (
	"fmt"
	"time"

	domain "github.com/example/presence-chat/domain/chat"
)

// ConnectionRegistry maps connection ids to their sessions.
//
// Implementations are not safe for concurrent use; the Router serializes
// every call.
type ConnectionRegistry interface {
	Register(connID, displayName string) (domain.Session, error)
	Lookup(connID string) (domain.Session, bool)
	SetRoom(connID, roomKey string) error
	Remove(connID string) (domain.Session, error)
	Sessions() []domain.Session
	Count() int
}

type memoryRegistry struct {
	sessions map[string]*domain.Session
	now      func() time.Time
}

// NewMemoryRegistry creates an empty in-memory ConnectionRegistry.
func NewMemoryRegistry() ConnectionRegistry {
	return &memoryRegistry{
		sessions: make(map[string]*domain.Session),
		now:      time.Now,
	}
}

func (r *memoryRegistry) Register(connID, displayName string) (domain.Session, error) {
	if _, exists := r.sessions[connID]; exists {
		return domain.Session{}, fmt.Errorf("register %s: %w", connID, domain.ErrDuplicateConnection)
	}
	s := &domain.Session{
		ConnID:      connID,
		DisplayName: displayName,
		JoinedAt:    r.now(),
	}
	r.sessions[connID] = s
	return *s, nil
}

func (r *memoryRegistry) Lookup(connID string) (domain.Session, bool) {
	s, ok := r.sessions[connID]
	if !ok {
		return domain.Session{}, false
	}
	return *s, true
}

func (r *memoryRegistry) SetRoom(connID, roomKey string) error {
	s, ok := r.sessions[connID]
	if !ok {
		return fmt.Errorf("set room for %s: %w", connID, domain.ErrUnknownConnection)
	}
	s.RoomKey = roomKey
	return nil
}

func (r *memoryRegistry) Remove(connID string) (domain.Session, error) {
	s, ok := r.sessions[connID]
	if !ok {
		return domain.Session{}, fmt.Errorf("remove %s: %w", connID, domain.ErrUnknownConnection)
	}
	delete(r.sessions, connID)
	return *s, nil
}

func (r *memoryRegistry) Sessions() []domain.Session {
	out := make([]domain.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	return out
}

func (r *memoryRegistry) Count() int {
	return len(r.sessions)
}
