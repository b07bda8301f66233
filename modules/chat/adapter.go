package chat

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/presence-chat/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ChatPort is what driving adapters need from the chat module.
type ChatPort interface {
	Submit(ctx context.Context, cmd Command) error
	Stats(ctx context.Context) (Stats, error)
	ListRooms(ctx context.Context) ([]domain.RoomSummary, error)
	History(ctx context.Context, room string, limit int) ([]domain.Message, error)
}

// CommandRejectedError is returned by ChatAdapter.Submit when the router
// refused a command.
type CommandRejectedError struct {
	Code    string
	Message string
}

func (e *CommandRejectedError) Error() string {
	return fmt.Sprintf("command rejected (%s): %s", e.Code, e.Message)
}

// ChatAdapter implements ChatPort using the service container.
type ChatAdapter struct {
	container mono.ServiceContainer
}

// NewChatAdapter creates a new ChatAdapter.
func NewChatAdapter(container mono.ServiceContainer) *ChatAdapter {
	if container == nil {
		panic("chat: ServiceContainer is nil")
	}
	return &ChatAdapter{container: container}
}

// Submit forwards an inbound client event to the router and waits for it to
// be processed.
func (a *ChatAdapter) Submit(ctx context.Context, cmd Command) error {
	req := SubmitCommandRequest{Command: cmd}
	var resp SubmitCommandResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceSubmitCommand,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", ServiceSubmitCommand, err)
	}
	if !resp.Accepted {
		return &CommandRejectedError{Code: resp.Code, Message: resp.Error}
	}
	return nil
}

// Stats returns router statistics.
func (a *ChatAdapter) Stats(ctx context.Context) (Stats, error) {
	req := GetStatsRequest{}
	var resp GetStatsResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceGetStats,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return Stats{}, fmt.Errorf("%s request failed: %w", ServiceGetStats, err)
	}
	return resp.Stats, nil
}

// ListRooms returns summaries of all rooms.
func (a *ChatAdapter) ListRooms(ctx context.Context) ([]domain.RoomSummary, error) {
	req := ListRoomsRequest{}
	var resp ListRoomsResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceListRooms,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", ServiceListRooms, err)
	}
	return resp.Rooms, nil
}

// History returns up to limit of the most recent messages of room. It
// returns an error matching domain.ErrUnknownRoom if the room does not exist.
func (a *ChatAdapter) History(ctx context.Context, room string, limit int) ([]domain.Message, error) {
	req := GetHistoryRequest{Room: room, Limit: limit}
	var resp GetHistoryResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceGetHistory,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", ServiceGetHistory, err)
	}
	if !resp.Found {
		return nil, fmt.Errorf("history of %q: %w", resp.Room, domain.ErrUnknownRoom)
	}
	return resp.Messages, nil
}
