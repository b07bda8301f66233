package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/presence-chat/domain/chat"
	"github.com/example/presence-chat/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Options configures the chat module.
type Options struct {
	HistorySize      int
	TypingTimeout    time.Duration
	DefaultRooms     []string
	StrictInvariants bool
}

// Module hosts the Router and exposes it to other modules through
// request-reply services and domain events.
type Module struct {
	opts     Options
	router   *Router
	eventBus mono.EventBus
	logger   types.Logger
	cancel   context.CancelFunc
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ Notifier                   = (*Module)(nil)
)

// NewModule creates a new chat module.
func NewModule(opts Options, logger types.Logger) *Module {
	m := &Module{
		opts:   opts,
		logger: logger,
	}
	m.router = NewRouter(RouterConfig{
		HistorySize:      opts.HistorySize,
		TypingTimeout:    opts.TypingTimeout,
		StrictInvariants: opts.StrictInvariants,
	}, logger)
	m.router.SetNotifier(m)
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// SetDeliverer connects the router to the transport (called from main.go).
func (m *Module) SetDeliverer(d Deliverer) {
	m.router.SetDeliverer(d)
}

// Router returns the module's router.
func (m *Module) Router() *Router {
	return m.router
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageSentV1.ToBase(),
		events.PrivateMessageSentV1.ToBase(),
		events.UserJoinedV1.ToBase(),
		events.UserLeftV1.ToBase(),
		events.RoomCreatedV1.ToBase(),
	}
}

// Start creates the default rooms and starts the router loop.
func (m *Module) Start(_ context.Context) error {
	for _, name := range m.opts.DefaultRooms {
		m.router.EnsureRoom(name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.router.Run(ctx)

	m.logger.Info("Chat module started", "defaultRooms", m.opts.DefaultRooms)
	return nil
}

// Stop stops the router loop and waits for it to drain.
func (m *Module) Stop(ctx context.Context) error {
	if m.cancel == nil {
		return nil
	}
	m.cancel()
	select {
	case <-m.router.Done():
	case <-ctx.Done():
		return fmt.Errorf("chat router did not stop: %w", ctx.Err())
	}
	m.logger.Info("Chat module stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	stats := m.router.Stats()
	healthy := m.router.Running()
	message := "operational"
	if !healthy {
		message = "router not running"
	}
	return mono.HealthStatus{
		Healthy: healthy,
		Message: message,
		Details: map[string]any{
			"connections": stats.Connections,
			"rooms":       stats.Rooms,
			"typing":      stats.Typing,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceSubmitCommand,
		json.Unmarshal,
		json.Marshal,
		m.handleSubmitCommand,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceSubmitCommand, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceGetStats,
		json.Unmarshal,
		json.Marshal,
		m.handleGetStats,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetStats, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceListRooms,
		json.Unmarshal,
		json.Marshal,
		m.handleListRooms,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListRooms, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceGetHistory,
		json.Unmarshal,
		json.Marshal,
		m.handleGetHistory,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetHistory, err)
	}

	m.logger.Info("Registered chat services",
		"services", []string{ServiceSubmitCommand, ServiceGetStats, ServiceListRooms, ServiceGetHistory})
	return nil
}

func (m *Module) handleSubmitCommand(ctx context.Context, req SubmitCommandRequest, _ *mono.Msg) (SubmitCommandResponse, error) {
	err := m.router.Submit(ctx, req.Command)
	switch {
	case err == nil:
		return SubmitCommandResponse{Accepted: true}, nil
	case errors.Is(err, domain.ErrRouterStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return SubmitCommandResponse{}, err
	default:
		return SubmitCommandResponse{
			Accepted: false,
			Code:     domain.ErrorCode(err),
			Error:    err.Error(),
		}, nil
	}
}

func (m *Module) handleGetStats(_ context.Context, _ GetStatsRequest, _ *mono.Msg) (GetStatsResponse, error) {
	return GetStatsResponse{Stats: m.router.Stats()}, nil
}

func (m *Module) handleListRooms(_ context.Context, _ ListRoomsRequest, _ *mono.Msg) (ListRoomsResponse, error) {
	return ListRoomsResponse{Rooms: m.router.Rooms()}, nil
}

func (m *Module) handleGetHistory(_ context.Context, req GetHistoryRequest, _ *mono.Msg) (GetHistoryResponse, error) {
	key := domain.NormalizeRoomKey(req.Room)
	messages, err := m.router.History(key)
	if err != nil {
		return GetHistoryResponse{Room: key, Found: false, Messages: []domain.Message{}}, nil
	}
	if req.Limit > 0 && req.Limit < len(messages) {
		messages = messages[len(messages)-req.Limit:]
	}
	return GetHistoryResponse{Room: key, Found: true, Messages: messages}, nil
}

// Notifier implementation: publish committed facts on the EventBus.

// MessageSent publishes MessageSent.v1.
func (m *Module) MessageSent(msg domain.Message) {
	m.publish("MessageSent", func(bus mono.EventBus) error {
		return events.MessageSentV1.Publish(bus, events.MessageSentEvent{
			MessageID:  msg.ID,
			Room:       msg.Room,
			SenderID:   msg.SenderID,
			SenderName: msg.SenderName,
			Text:       msg.Text,
			Timestamp:  msg.Timestamp,
		}, nil)
	})
}

// PrivateMessageSent publishes PrivateMessageSent.v1.
func (m *Module) PrivateMessageSent(msg domain.Message) {
	m.publish("PrivateMessageSent", func(bus mono.EventBus) error {
		return events.PrivateMessageSentV1.Publish(bus, events.PrivateMessageSentEvent{
			MessageID: msg.ID,
			FromID:    msg.SenderID,
			ToID:      msg.To,
			Timestamp: msg.Timestamp,
		}, nil)
	})
}

// UserJoined publishes UserJoined.v1.
func (m *Module) UserJoined(s domain.Session) {
	m.logger.Info("User joined room", "connID", s.ConnID, "room", s.RoomKey)
	m.publish("UserJoined", func(bus mono.EventBus) error {
		return events.UserJoinedV1.Publish(bus, events.UserJoinedEvent{
			Room:         s.RoomKey,
			ConnectionID: s.ConnID,
			DisplayName:  s.DisplayName,
			Timestamp:    time.Now(),
		}, nil)
	})
}

// UserLeft publishes UserLeft.v1.
func (m *Module) UserLeft(s domain.Session, room string) {
	m.logger.Info("User left room", "connID", s.ConnID, "room", room)
	m.publish("UserLeft", func(bus mono.EventBus) error {
		return events.UserLeftV1.Publish(bus, events.UserLeftEvent{
			Room:         room,
			ConnectionID: s.ConnID,
			DisplayName:  s.DisplayName,
			Timestamp:    time.Now(),
		}, nil)
	})
}

// RoomCreated publishes RoomCreated.v1.
func (m *Module) RoomCreated(room Room, createdBy string) {
	m.logger.Info("Room created", "room", room.Key, "createdBy", createdBy)
	m.publish("RoomCreated", func(bus mono.EventBus) error {
		return events.RoomCreatedV1.Publish(bus, events.RoomCreatedEvent{
			Room:      room.Key,
			RoomName:  room.Name,
			CreatedBy: createdBy,
			Timestamp: room.CreatedAt,
		}, nil)
	})
}

func (m *Module) publish(name string, fn func(mono.EventBus) error) {
	if m.eventBus == nil {
		return
	}
	if err := fn(m.eventBus); err != nil {
		m.logger.Warn("Failed to publish event", "event", name, "error", err)
	}
}
