package activity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/example/presence-chat/events"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)          {}
func (m *mockLogger) Info(msg string, args ...any)           {}
func (m *mockLogger) Warn(msg string, args ...any)           {}
func (m *mockLogger) Error(msg string, args ...any)          {}
func (m *mockLogger) With(args ...any) types.Logger          { return m }
func (m *mockLogger) WithError(err error) types.Logger       { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

func TestStore_Counters(t *testing.T) {
	store := NewStore()
	now := time.Now()

	store.RecordRoomCreated("general", now)
	store.RecordJoin("general", now)
	store.RecordJoin("general", now)
	store.RecordMessage("general", now.Add(time.Second))
	store.RecordLeave("general", now.Add(2*time.Second))
	store.RecordPrivateMessage()

	summary := store.Summary()
	assert.EqualValues(t, 1, summary.RoomsCreated)
	assert.EqualValues(t, 2, summary.Joins)
	assert.EqualValues(t, 1, summary.Leaves)
	assert.EqualValues(t, 1, summary.Messages)
	assert.EqualValues(t, 1, summary.PrivateMessages)

	room, ok := store.Room("general")
	require.True(t, ok)
	assert.EqualValues(t, 1, room.Messages)
	assert.Equal(t, now, room.CreatedAt)
	assert.Equal(t, now.Add(2*time.Second), room.LastActivity)

	_, ok = store.Room("missing")
	assert.False(t, ok)
}

func TestStore_SummaryOrdersBusiestFirst(t *testing.T) {
	store := NewStore()
	now := time.Now()
	for room, n := range map[string]int{"quiet": 1, "busy": 5, "mid": 3, "alpha": 3} {
		for i := 0; i < n; i++ {
			store.RecordMessage(room, now)
		}
	}

	var order []string
	for _, r := range store.Summary().Rooms {
		order = append(order, r.Room)
	}
	assert.Equal(t, []string{"busy", "alpha", "mid", "quiet"}, order)
}

func TestStore_ConcurrentRecording(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.RecordMessage("general", time.Now())
			_ = store.Summary()
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 50, store.Summary().Messages)
}

func TestModule_Handlers(t *testing.T) {
	m := NewModule(&mockLogger{})
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, m.handleRoomCreated(ctx, events.RoomCreatedEvent{Room: "lobby", CreatedBy: "system", Timestamp: now}, nil))
	require.NoError(t, m.handleUserJoined(ctx, events.UserJoinedEvent{Room: "lobby", ConnectionID: "c1", Timestamp: now}, nil))
	require.NoError(t, m.handleMessageSent(ctx, events.MessageSentEvent{MessageID: 1, Room: "lobby", Timestamp: now}, nil))
	require.NoError(t, m.handlePrivateMessageSent(ctx, events.PrivateMessageSentEvent{MessageID: 2}, nil))
	require.NoError(t, m.handleUserLeft(ctx, events.UserLeftEvent{Room: "lobby", ConnectionID: "c1", Timestamp: now}, nil))

	summary := m.Store().Summary()
	assert.EqualValues(t, 1, summary.RoomsCreated)
	assert.EqualValues(t, 1, summary.Messages)
	assert.EqualValues(t, 1, summary.PrivateMessages)
	assert.EqualValues(t, 1, summary.Joins)
	assert.EqualValues(t, 1, summary.Leaves)
}

func TestModule_GetSummaryLimit(t *testing.T) {
	m := NewModule(&mockLogger{})
	for _, room := range []string{"a", "b", "c"} {
		m.Store().RecordMessage(room, time.Now())
	}

	resp, err := m.handleGetSummary(context.Background(), GetSummaryRequest{Limit: 2}, nil)
	require.NoError(t, err)
	assert.Len(t, resp.Summary.Rooms, 2)
	assert.EqualValues(t, 3, resp.Summary.Messages)

	resp, err = m.handleGetSummary(context.Background(), GetSummaryRequest{}, nil)
	require.NoError(t, err)
	assert.Len(t, resp.Summary.Rooms, 3)
}
