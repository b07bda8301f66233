package api

import (
	"fmt"

	domain "github.com/example/presence-chat/domain/chat"
	"github.com/example/presence-chat/modules/chat"
	"github.com/tidwall/gjson"
)

// Client frames look like {"type": "<event>", "payload": {...}}. The payload
// may be omitted or null for events that carry no fields.

// decodeFrame turns a raw client frame into a command for connID. Disconnect
// is never accepted from the wire; it is issued when the socket closes.
func decodeFrame(connID string, data []byte) (chat.Command, error) {
	if !gjson.ValidBytes(data) {
		return chat.Command{}, fmt.Errorf("malformed frame: %w", domain.ErrInvalidPayload)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return chat.Command{}, fmt.Errorf("frame is not an object: %w", domain.ErrInvalidPayload)
	}

	typ := root.Get("type")
	if typ.Type != gjson.String {
		return chat.Command{}, fmt.Errorf("frame has no type: %w", domain.ErrInvalidPayload)
	}
	payload := root.Get("payload")
	if payload.Exists() && payload.Type != gjson.Null && !payload.IsObject() {
		return chat.Command{}, fmt.Errorf("malformed %q payload: %w", typ.Str, domain.ErrInvalidPayload)
	}

	f := fields{payload: payload}
	var cmd chat.Command
	switch chat.CommandType(typ.Str) {
	case chat.CmdJoin:
		cmd = chat.Join(connID, f.str("display_name"), f.str("room"))
	case chat.CmdSendMessage:
		cmd = chat.SendMessage(connID, f.str("text"))
	case chat.CmdTyping:
		cmd = chat.Typing(connID)
	case chat.CmdStopTyping:
		cmd = chat.StopTyping(connID)
	case chat.CmdSwitchRoom:
		cmd = chat.SwitchRoom(connID, f.str("room"))
	case chat.CmdPrivateMessage:
		cmd = chat.PrivateMessage(connID, f.str("target"), f.str("text"))
	default:
		return chat.Command{}, fmt.Errorf("unknown event type %q: %w", typ.Str, domain.ErrInvalidPayload)
	}
	if f.bad != "" {
		return chat.Command{}, fmt.Errorf("%s: field %q must be a string: %w", typ.Str, f.bad, domain.ErrInvalidPayload)
	}
	return cmd, nil
}

// fields reads optional string fields from a payload, remembering the first
// one of the wrong type.
type fields struct {
	payload gjson.Result
	bad     string
}

func (f *fields) str(name string) string {
	v := f.payload.Get(name)
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Null:
		return ""
	default:
		if f.bad == "" {
			f.bad = name
		}
		return ""
	}
}
