package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	domain "github.com/example/presence-chat/domain/chat"
	"github.com/example/presence-chat/modules/activity"
	"github.com/example/presence-chat/modules/broadcast"
	"github.com/example/presence-chat/modules/chat"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)          {}
func (m *mockLogger) Info(msg string, args ...any)           {}
func (m *mockLogger) Warn(msg string, args ...any)           {}
func (m *mockLogger) Error(msg string, args ...any)          {}
func (m *mockLogger) With(args ...any) types.Logger          { return m }
func (m *mockLogger) WithError(err error) types.Logger       { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

// mockChatPort implements chat.ChatPort for testing
type mockChatPort struct {
	statsCalls int
	statsFunc  func(ctx context.Context) (chat.Stats, error)
	roomsFunc  func(ctx context.Context) ([]domain.RoomSummary, error)
	historyFn  func(ctx context.Context, room string, limit int) ([]domain.Message, error)
	submitted  []chat.Command
}

func (m *mockChatPort) Submit(_ context.Context, cmd chat.Command) error {
	m.submitted = append(m.submitted, cmd)
	return nil
}

func (m *mockChatPort) Stats(ctx context.Context) (chat.Stats, error) {
	m.statsCalls++
	if m.statsFunc != nil {
		return m.statsFunc(ctx)
	}
	return chat.Stats{}, errors.New("not implemented")
}

func (m *mockChatPort) ListRooms(ctx context.Context) ([]domain.RoomSummary, error) {
	if m.roomsFunc != nil {
		return m.roomsFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockChatPort) History(ctx context.Context, room string, limit int) ([]domain.Message, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, room, limit)
	}
	return nil, errors.New("not implemented")
}

// mockActivityPort implements activity.ActivityPort for testing
type mockActivityPort struct {
	summary activity.Summary
	err     error
	limit   int
}

func (m *mockActivityPort) Summary(_ context.Context, limit int) (activity.Summary, error) {
	m.limit = limit
	return m.summary, m.err
}

// recordingConn captures frames written by the hub.
type recordingConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *recordingConn) WriteMessage(_ int, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, data)
	return nil
}

func (r *recordingConn) SetWriteDeadline(time.Time) error { return nil }
func (r *recordingConn) Close() error                     { return nil }

func (r *recordingConn) written() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.frames...)
}

func newTestApp(t *testing.T, chatPort *mockChatPort, activityPort *mockActivityPort) (*fiber.App, *APIModule) {
	t.Helper()
	m := NewModule(Options{AllowedOrigins: "*", RatePerSecond: 10, RateBurst: 20}, &mockLogger{})
	m.chatAdapter = chatPort
	m.activityAdapter = activityPort
	m.hub = broadcast.NewHub(4, &mockLogger{})
	t.Cleanup(func() { _ = m.hub.Shutdown(context.Background()) })
	return m.newApp(), m
}

func doGet(t *testing.T, app *fiber.App, path string) (int, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestHealthHandler(t *testing.T) {
	app, _ := newTestApp(t, &mockChatPort{}, &mockActivityPort{})

	status, body := doGet(t, app, "/health")
	assert.Equal(t, http.StatusOK, status)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.EqualValues(t, 0, resp.Details["connected_clients"])
}

func TestGetStats(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	chatPort := &mockChatPort{
		statsFunc: func(context.Context) (chat.Stats, error) {
			return chat.Stats{
				Connections: 3,
				Rooms:       2,
				Summaries: []domain.RoomSummary{
					{Key: "general", Name: "general", MemberCount: 2, Members: []string{"alice", "bob"}},
					{Key: "tech", Name: "Tech", MemberCount: 1, Members: []string{"carol"}},
				},
				Typing:    1,
				StartedAt: started,
				Uptime:    90 * time.Second,
			}, nil
		},
	}
	app, _ := newTestApp(t, chatPort, &mockActivityPort{})

	status, body := doGet(t, app, "/api/v1/stats")
	require.Equal(t, http.StatusOK, status)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, 3, resp.Connections)
	assert.Equal(t, 2, resp.Rooms)
	assert.Len(t, resp.Summaries, 2)
	assert.Equal(t, 1, resp.Typing)
	assert.Equal(t, started, resp.StartedAt)
	assert.InDelta(t, 90.0, resp.UptimeSeconds, 0.001)

	// results are shared only between in-flight requests, never cached
	doGet(t, app, "/api/v1/stats")
	assert.Equal(t, 2, chatPort.statsCalls)
}

func TestGetStats_Error(t *testing.T) {
	chatPort := &mockChatPort{
		statsFunc: func(context.Context) (chat.Stats, error) {
			return chat.Stats{}, errors.New("router unavailable")
		},
	}
	app, _ := newTestApp(t, chatPort, &mockActivityPort{})

	status, body := doGet(t, app, "/api/v1/stats")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(body), "stats_failed")
}

func TestListRooms(t *testing.T) {
	tests := []struct {
		name       string
		rooms      []domain.RoomSummary
		err        error
		wantStatus int
		wantTotal  int
	}{
		{
			name: "rooms in creation order",
			rooms: []domain.RoomSummary{
				{Key: "general", Name: "general"},
				{Key: "random", Name: "random"},
			},
			wantStatus: http.StatusOK,
			wantTotal:  2,
		},
		{
			name:       "no rooms renders empty list",
			wantStatus: http.StatusOK,
		},
		{
			name:       "adapter failure",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chatPort := &mockChatPort{
				roomsFunc: func(context.Context) ([]domain.RoomSummary, error) {
					return tt.rooms, tt.err
				},
			}
			app, _ := newTestApp(t, chatPort, &mockActivityPort{})

			status, body := doGet(t, app, "/api/v1/rooms")
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp RoomListResponse
			require.NoError(t, json.Unmarshal(body, &resp))
			assert.Equal(t, tt.wantTotal, resp.Total)
			assert.NotNil(t, resp.Rooms)
			if tt.wantTotal > 0 {
				assert.Equal(t, "general", resp.Rooms[0].Key)
			}
		})
	}
}

func TestGetHistory(t *testing.T) {
	var gotRoom string
	var gotLimit int
	chatPort := &mockChatPort{
		historyFn: func(_ context.Context, room string, limit int) ([]domain.Message, error) {
			gotRoom, gotLimit = room, limit
			if room != "general" {
				return nil, fmt.Errorf("history of %q: %w", room, domain.ErrUnknownRoom)
			}
			return []domain.Message{
				{ID: 4, Kind: domain.KindUser, Room: "general", SenderName: "alice", Text: "hi"},
				{ID: 7, Kind: domain.KindUser, Room: "general", SenderName: "bob", Text: "hey"},
			}, nil
		},
	}
	app, _ := newTestApp(t, chatPort, &mockActivityPort{})

	t.Run("known room with limit", func(t *testing.T) {
		status, body := doGet(t, app, "/api/v1/rooms/General/history?limit=2")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "general", gotRoom, "room key is normalized")
		assert.Equal(t, 2, gotLimit)

		var resp HistoryResponse
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.Equal(t, 2, resp.Total)
		assert.Equal(t, uint64(4), resp.Messages[0].ID)
		assert.Equal(t, "hey", resp.Messages[1].Text)
	})

	t.Run("unknown room", func(t *testing.T) {
		status, body := doGet(t, app, "/api/v1/rooms/nowhere/history")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Contains(t, string(body), "not_found")
		assert.Equal(t, 0, gotLimit)
	})

	t.Run("negative limit", func(t *testing.T) {
		status, _ := doGet(t, app, "/api/v1/rooms/general/history?limit=-1")
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestGetActivity(t *testing.T) {
	activityPort := &mockActivityPort{
		summary: activity.Summary{
			RoomsCreated: 3,
			Messages:     12,
			Rooms:        []activity.RoomActivity{{Room: "general", Messages: 12}},
		},
	}
	app, _ := newTestApp(t, &mockChatPort{}, activityPort)

	status, body := doGet(t, app, "/api/v1/activity?limit=5")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 5, activityPort.limit)

	var resp ActivityResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.EqualValues(t, 12, resp.Activity.Messages)
	assert.Equal(t, "general", resp.Activity.Rooms[0].Room)

	activityPort.err = errors.New("unavailable")
	status, _ = doGet(t, app, "/api/v1/activity")
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	app, _ := newTestApp(t, &mockChatPort{}, &mockActivityPort{})

	status, body := doGet(t, app, "/ws")
	assert.Equal(t, http.StatusUpgradeRequired, status)
	assert.Contains(t, string(body), "server_error")
}

func TestStartRequiresDependencies(t *testing.T) {
	m := NewModule(Options{}, &mockLogger{})
	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat adapter")

	m.chatAdapter = &mockChatPort{}
	m.activityAdapter = &mockActivityPort{}
	err = m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hub")
}

func TestSubmitAndReject(t *testing.T) {
	chatPort := &mockChatPort{}
	_, m := newTestApp(t, chatPort, &mockActivityPort{})

	conn := &recordingConn{}
	client, err := m.hub.Register("c1", conn)
	require.NoError(t, err)

	m.submit(chat.Typing("c1"))
	require.Len(t, chatPort.submitted, 1)
	assert.Equal(t, chat.CmdTyping, chatPort.submitted[0].Type)

	m.reject("c1", fmt.Errorf("too many events: %w", domain.ErrRateLimited))
	require.Eventually(t, func() bool { return len(conn.written()) == 1 }, time.Second, 5*time.Millisecond)

	var frame struct {
		Type    string             `json:"type"`
		Payload chat.ErrorPayload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(conn.written()[0], &frame))
	assert.Equal(t, "error", frame.Type)
	assert.Equal(t, domain.CodeRateLimited, frame.Payload.Code)

	m.hub.Unregister(client)
	select {
	case <-client.Exited():
	default:
		t.Fatal("Unregister returned before the pump exited")
	}
}
