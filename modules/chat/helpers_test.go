package chat

import (
	"context"
	"sync"
	"testing"

	domain "github.com/example/presence-chat/domain/chat"
	"github.com/go-monolith/mono/pkg/types"
)

// mockLogger implements types.Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	errors int
}

func (m *mockLogger) Debug(msg string, args ...any) {}
func (m *mockLogger) Info(msg string, args ...any)  {}
func (m *mockLogger) Warn(msg string, args ...any)  {}
func (m *mockLogger) Error(msg string, args ...any) {
	m.mu.Lock()
	m.errors++
	m.mu.Unlock()
}
func (m *mockLogger) With(args ...any) types.Logger          { return m }
func (m *mockLogger) WithError(err error) types.Logger       { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

func (m *mockLogger) errorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors
}

// recorder is a Deliverer that keeps every event per connection.
type recorder struct {
	mu  sync.Mutex
	got map[string][]Event
}

func newRecorder() *recorder {
	return &recorder{got: make(map[string][]Event)}
}

func (r *recorder) Deliver(ids []string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.got[id] = append(r.got[id], ev)
	}
}

func (r *recorder) events(id string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.got[id]))
	copy(out, r.got[id])
	return out
}

func (r *recorder) ofType(id string, t EventType) []Event {
	var out []Event
	for _, ev := range r.events(id) {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) types(id string) []EventType {
	var out []EventType
	for _, ev := range r.events(id) {
		out = append(out, ev.Type)
	}
	return out
}

// userMessages returns the user-kind message payloads delivered to id.
func (r *recorder) userMessages(id string) []domain.Message {
	var out []domain.Message
	for _, ev := range r.ofType(id, EventMessage) {
		if msg, ok := ev.Payload.(domain.Message); ok && msg.Kind == domain.KindUser {
			out = append(out, msg)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = make(map[string][]Event)
}

func startRouter(t *testing.T, cfg RouterConfig) (*Router, *recorder) {
	t.Helper()
	cfg.StrictInvariants = true
	r := NewRouter(cfg, &mockLogger{})
	rec := newRecorder()
	r.SetDeliverer(rec)

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-r.Done()
	})
	return r, rec
}
