package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"

	domain "github.com/example/presence-chat/domain/chat"
)

// Validation constants
const (
	MaxRoomNameLength = 100
	MaxMessageLength  = 5000
)

// Validation errors. All of them match domain.ErrInvalidPayload.
var (
	ErrRoomNameTooLong = fmt.Errorf("%w: room name exceeds maximum length", domain.ErrInvalidPayload)
	ErrRoomNameInvalid = fmt.Errorf("%w: room name contains invalid characters", domain.ErrInvalidPayload)
	ErrRoomNameEmpty   = fmt.Errorf("%w: room name cannot be empty", domain.ErrInvalidPayload)
	ErrMessageEmpty    = fmt.Errorf("%w: message text cannot be empty", domain.ErrInvalidPayload)
	ErrMessageTooLong  = fmt.Errorf("%w: message exceeds maximum length", domain.ErrInvalidPayload)
	ErrMessageInvalid  = fmt.Errorf("%w: message contains invalid characters", domain.ErrInvalidPayload)
	ErrTargetEmpty     = fmt.Errorf("%w: private message target is required", domain.ErrInvalidPayload)
)

// ValidateRoomName checks a room name as typed by a client. Empty names are
// allowed here; callers decide the fallback.
func ValidateRoomName(name string) error {
	if utf8.RuneCountInString(name) > MaxRoomNameLength {
		return ErrRoomNameTooLong
	}
	if !utf8.ValidString(name) {
		return ErrRoomNameInvalid
	}
	return nil
}

// ValidateMessage validates message text.
func ValidateMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrMessageEmpty
	}
	if len(text) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if !utf8.ValidString(text) {
		return ErrMessageInvalid
	}
	return nil
}
