package chat

// CommandType names an inbound client event.
type CommandType string

const (
	CmdJoin           CommandType = "join"
	CmdSendMessage    CommandType = "send-message"
	CmdTyping         CommandType = "typing"
	CmdStopTyping     CommandType = "stop-typing"
	CmdSwitchRoom     CommandType = "switch-room"
	CmdPrivateMessage CommandType = "private-message"
	CmdDisconnect     CommandType = "disconnect"
)

// Command is an inbound client event bound to the connection that sent it.
// Fields not used by Type are ignored.
type Command struct {
	Type        CommandType `json:"type"`
	ConnID      string      `json:"connection_id"`
	DisplayName string      `json:"display_name,omitempty"`
	Room        string      `json:"room,omitempty"`
	Text        string      `json:"text,omitempty"`
	Target      string      `json:"target,omitempty"`
}

// Join builds a join command.
func Join(connID, displayName, room string) Command {
	return Command{Type: CmdJoin, ConnID: connID, DisplayName: displayName, Room: room}
}

// SendMessage builds a send-message command.
func SendMessage(connID, text string) Command {
	return Command{Type: CmdSendMessage, ConnID: connID, Text: text}
}

// Typing builds a typing command.
func Typing(connID string) Command {
	return Command{Type: CmdTyping, ConnID: connID}
}

// StopTyping builds a stop-typing command.
func StopTyping(connID string) Command {
	return Command{Type: CmdStopTyping, ConnID: connID}
}

// SwitchRoom builds a switch-room command.
func SwitchRoom(connID, room string) Command {
	return Command{Type: CmdSwitchRoom, ConnID: connID, Room: room}
}

// PrivateMessage builds a private-message command.
func PrivateMessage(connID, target, text string) Command {
	return Command{Type: CmdPrivateMessage, ConnID: connID, Target: target, Text: text}
}

// Disconnect builds the implicit disconnect command issued on transport close.
func Disconnect(connID string) Command {
	return Command{Type: CmdDisconnect, ConnID: connID}
}
