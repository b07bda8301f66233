package chat

import (
	"testing"

	domain "github.com/example/presence-chat/domain/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewMemoryRegistry()

	s, err := reg.Register("c1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "c1", s.ConnID)
	assert.Equal(t, "alice", s.DisplayName)
	assert.False(t, s.JoinedAt.IsZero())

	got, ok := reg.Lookup("c1")
	require.True(t, ok)
	assert.Equal(t, s, got)

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, 1, reg.Count())
}

func TestMemoryRegistry_DuplicateConnection(t *testing.T) {
	reg := NewMemoryRegistry()
	_, err := reg.Register("c1", "alice")
	require.NoError(t, err)

	_, err = reg.Register("c1", "mallory")
	assert.ErrorIs(t, err, domain.ErrDuplicateConnection)

	s, _ := reg.Lookup("c1")
	assert.Equal(t, "alice", s.DisplayName, "failed register must not overwrite")
}

func TestMemoryRegistry_SetRoom(t *testing.T) {
	reg := NewMemoryRegistry()
	_, _ = reg.Register("c1", "alice")

	require.NoError(t, reg.SetRoom("c1", "general"))
	s, _ := reg.Lookup("c1")
	assert.Equal(t, "general", s.RoomKey)

	assert.ErrorIs(t, reg.SetRoom("ghost", "general"), domain.ErrUnknownConnection)
}

func TestMemoryRegistry_Remove(t *testing.T) {
	reg := NewMemoryRegistry()
	_, _ = reg.Register("c1", "alice")
	_ = reg.SetRoom("c1", "tech")

	removed, err := reg.Remove("c1")
	require.NoError(t, err)
	assert.Equal(t, "tech", removed.RoomKey, "removed session lets callers clean up membership")
	assert.Equal(t, 0, reg.Count())

	_, err = reg.Remove("c1")
	assert.ErrorIs(t, err, domain.ErrUnknownConnection)
}

func TestMemoryRegistry_LookupReturnsCopy(t *testing.T) {
	reg := NewMemoryRegistry()
	_, _ = reg.Register("c1", "alice")

	s, _ := reg.Lookup("c1")
	s.DisplayName = "changed"

	again, _ := reg.Lookup("c1")
	assert.Equal(t, "alice", again.DisplayName)
	assert.Len(t, reg.Sessions(), 1)
}
