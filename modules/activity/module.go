package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/presence-chat/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Module consumes chat events and keeps activity counters.
type Module struct {
	store  *Store
	logger types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
)

// NewModule creates a new activity module.
func NewModule(logger types.Logger) *Module {
	return &Module{
		store:  NewStore(),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "activity"
}

// RegisterEventConsumers registers handlers for the chat events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.RoomCreatedV1, m.handleRoomCreated, m); err != nil {
		return fmt.Errorf("failed to register RoomCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MessageSentV1, m.handleMessageSent, m); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.PrivateMessageSentV1, m.handlePrivateMessageSent, m); err != nil {
		return fmt.Errorf("failed to register PrivateMessageSent consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.UserJoinedV1, m.handleUserJoined, m); err != nil {
		return fmt.Errorf("failed to register UserJoined consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.UserLeftV1, m.handleUserLeft, m); err != nil {
		return fmt.Errorf("failed to register UserLeft consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", []string{"RoomCreated.v1", "MessageSent.v1", "PrivateMessageSent.v1", "UserJoined.v1", "UserLeft.v1"})
	return nil
}

func (m *Module) handleRoomCreated(_ context.Context, ev events.RoomCreatedEvent, _ *mono.Msg) error {
	m.store.RecordRoomCreated(ev.Room, ev.Timestamp)
	m.logger.Debug("Recorded room creation", "room", ev.Room, "createdBy", ev.CreatedBy)
	return nil
}

func (m *Module) handleMessageSent(_ context.Context, ev events.MessageSentEvent, _ *mono.Msg) error {
	m.store.RecordMessage(ev.Room, ev.Timestamp)
	m.logger.Debug("Recorded message", "room", ev.Room, "messageID", ev.MessageID)
	return nil
}

func (m *Module) handlePrivateMessageSent(_ context.Context, ev events.PrivateMessageSentEvent, _ *mono.Msg) error {
	m.store.RecordPrivateMessage()
	m.logger.Debug("Recorded private message", "messageID", ev.MessageID)
	return nil
}

func (m *Module) handleUserJoined(_ context.Context, ev events.UserJoinedEvent, _ *mono.Msg) error {
	m.store.RecordJoin(ev.Room, ev.Timestamp)
	return nil
}

func (m *Module) handleUserLeft(_ context.Context, ev events.UserLeftEvent, _ *mono.Msg) error {
	m.store.RecordLeave(ev.Room, ev.Timestamp)
	return nil
}

// Start initializes the activity module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Activity module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Activity module stopped")
	return nil
}

// Store returns the activity store.
func (m *Module) Store() *Store {
	return m.store
}

// RegisterServices registers this module's services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceGetSummary,
		json.Unmarshal,
		json.Marshal,
		m.handleGetSummary,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetSummary, err)
	}

	m.logger.Info("Registered activity services", "services", []string{ServiceGetSummary})
	return nil
}

func (m *Module) handleGetSummary(_ context.Context, req GetSummaryRequest, _ *mono.Msg) (GetSummaryResponse, error) {
	summary := m.store.Summary()
	if req.Limit > 0 && req.Limit < len(summary.Rooms) {
		summary.Rooms = summary.Rooms[:req.Limit]
	}
	return GetSummaryResponse{Summary: summary}, nil
}
