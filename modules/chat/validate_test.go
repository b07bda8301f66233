package chat

import (
	"errors"
	"strings"
	"testing"

	domain "github.com/example/presence-chat/domain/chat"
)

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{"valid", "hello", nil},
		{"empty", "", ErrMessageEmpty},
		{"whitespace only", "   \n", ErrMessageEmpty},
		{"max length", strings.Repeat("a", MaxMessageLength), nil},
		{"too long", strings.Repeat("a", MaxMessageLength+1), ErrMessageTooLong},
		{"invalid utf8", "bad \xff byte", ErrMessageInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessage(tt.text)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMessage() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil && !errors.Is(err, domain.ErrInvalidPayload) {
				t.Errorf("expected %v to match ErrInvalidPayload", err)
			}
		})
	}
}

func TestValidateRoomName(t *testing.T) {
	tests := []struct {
		name    string
		room    string
		wantErr error
	}{
		{"valid", "general", nil},
		{"empty allowed", "", nil},
		{"max length", strings.Repeat("r", MaxRoomNameLength), nil},
		{"too long", strings.Repeat("r", MaxRoomNameLength+1), ErrRoomNameTooLong},
		{"invalid utf8", "\xfe", ErrRoomNameInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateRoomName(tt.room); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRoomName() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
