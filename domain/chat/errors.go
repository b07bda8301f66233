package chat

import "errors"

// Recoverable errors. The router turns each into an error event for the
// originating connection only.
var (
	ErrDuplicateConnection  = errors.New("connection already registered")
	ErrUnknownConnection    = errors.New("unknown connection")
	ErrUnknownRoom          = errors.New("unknown room")
	ErrInvalidEventForState = errors.New("event not allowed in current state")
	ErrUnknownTarget        = errors.New("private message target is not connected")
	ErrInvalidPayload       = errors.New("invalid payload")
	ErrRateLimited          = errors.New("rate limit exceeded, please slow down")
	ErrRouterStopped        = errors.New("router is not running")
)

// Wire codes for error events.
const (
	CodeDuplicateConnection  = "duplicate_connection"
	CodeUnknownConnection    = "unknown_connection"
	CodeUnknownRoom          = "unknown_room"
	CodeInvalidEventForState = "invalid_event_for_state"
	CodeUnknownTarget        = "unknown_target"
	CodeInvalidPayload       = "invalid_payload"
	CodeRateLimited          = "rate_limited"
	CodeInternal             = "internal"
)

// ErrorCode maps an error, possibly wrapped, to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateConnection):
		return CodeDuplicateConnection
	case errors.Is(err, ErrUnknownConnection):
		return CodeUnknownConnection
	case errors.Is(err, ErrUnknownRoom):
		return CodeUnknownRoom
	case errors.Is(err, ErrInvalidEventForState):
		return CodeInvalidEventForState
	case errors.Is(err, ErrUnknownTarget):
		return CodeUnknownTarget
	case errors.Is(err, ErrInvalidPayload):
		return CodeInvalidPayload
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	default:
		return CodeInternal
	}
}
