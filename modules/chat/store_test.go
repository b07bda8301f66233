package chat

import (
	"fmt"
	"math/rand"
	"testing"

	domain "github.com/example/presence-chat/domain/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomStore_GetOrCreate(t *testing.T) {
	store := NewMemoryRoomStore(10)

	room, created := store.GetOrCreate("general", "General")
	assert.True(t, created)
	assert.Equal(t, "general", room.Key)
	assert.Equal(t, "General", room.Name)
	assert.False(t, room.CreatedAt.IsZero())

	again, created := store.GetOrCreate("general", "GENERAL")
	assert.False(t, created)
	assert.Equal(t, "General", again.Name, "first display name wins")
	assert.Equal(t, room.CreatedAt, again.CreatedAt)
	assert.Equal(t, 1, store.Count())
}

func TestRoomStore_ListRoomsInCreationOrder(t *testing.T) {
	store := NewMemoryRoomStore(10)
	store.GetOrCreate("general", "general")
	store.GetOrCreate("random", "random")
	store.GetOrCreate("tech", "tech")

	var keys []string
	for _, r := range store.ListRooms() {
		keys = append(keys, r.Key)
	}
	assert.Equal(t, []string{"general", "random", "tech"}, keys)
}

func TestRoomStore_MembershipIdempotent(t *testing.T) {
	store := NewMemoryRoomStore(10)
	store.GetOrCreate("general", "general")

	store.AddMember("general", "c1")
	store.AddMember("general", "c1")
	store.AddMember("general", "c2")
	assert.Equal(t, []string{"c1", "c2"}, store.Members("general"))

	store.RemoveMember("general", "c1")
	once := store.Members("general")
	store.RemoveMember("general", "c1")
	assert.Equal(t, once, store.Members("general"), "second remove is a no-op")
	assert.Equal(t, []string{"c2"}, once)

	// unknown room and non-member are no-ops too
	store.RemoveMember("nowhere", "c2")
	store.RemoveMember("general", "ghost")
	assert.True(t, store.IsMember("general", "c2"))
}

func TestRoomStore_MembershipMatchesJoinsMinusLeaves(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	store := NewMemoryRoomStore(10)
	store.GetOrCreate("general", "general")
	expected := map[string]bool{}

	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("c%d", rng.Intn(20))
		if rng.Intn(2) == 0 {
			store.AddMember("general", id)
			expected[id] = true
		} else {
			store.RemoveMember("general", id)
			delete(expected, id)
		}
	}

	var want []string
	for id := range expected {
		want = append(want, id)
	}
	assert.ElementsMatch(t, want, store.Members("general"))
}

func TestRoomStore_AppendUnknownRoom(t *testing.T) {
	store := NewMemoryRoomStore(10)
	err := store.AppendMessage("missing", domain.Message{ID: 1})
	assert.ErrorIs(t, err, domain.ErrUnknownRoom)
	assert.Empty(t, store.History("missing"))
}

func TestRoomStore_HistoryFIFOEviction(t *testing.T) {
	tests := []struct {
		name  string
		bound int
		total int
	}{
		{"below bound", 5, 3},
		{"at bound", 5, 5},
		{"one past bound", 5, 6},
		{"far past bound", 5, 23},
		{"bound of one", 1, 4},
		{"default bound", 0, 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryRoomStore(tt.bound)
			store.GetOrCreate("general", "general")
			bound := tt.bound
			if bound <= 0 {
				bound = DefaultHistorySize
			}

			for i := 1; i <= tt.total; i++ {
				require.NoError(t, store.AppendMessage("general", domain.Message{ID: uint64(i)}))
			}

			history := store.History("general")
			wantLen := min(bound, tt.total)
			require.Len(t, history, wantLen)
			for i, msg := range history {
				assert.Equal(t, uint64(tt.total-wantLen+i+1), msg.ID, "position %d", i)
			}
		})
	}
}

func TestRoomStore_HistoryIsACopy(t *testing.T) {
	store := NewMemoryRoomStore(10)
	store.GetOrCreate("general", "general")
	_ = store.AppendMessage("general", domain.Message{ID: 1, Text: "original"})

	h := store.History("general")
	h[0].Text = "mutated"

	assert.Equal(t, "original", store.History("general")[0].Text)
}
