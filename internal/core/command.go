package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom puts the client into a room under a display name.
	CommandJoinRoom CommandKind = iota
	// CommandSendMessage delivers a chat message to every member of a room.
	CommandSendMessage
	// CommandDrawAction relays a whiteboard action to the other members.
	CommandDrawAction
	// CommandCursorMove relays a cursor position to the other members.
	CommandCursorMove
)

func (k CommandKind) String() string {
	switch k {
	case CommandJoinRoom:
		return "join-room"
	case CommandSendMessage:
		return "send-message"
	case CommandDrawAction:
		return "draw-action"
	case CommandCursorMove:
		return "cursor-move"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	Room     string
	UserName string
	Text     string
	Draw     *DrawAction
	Cursor   *CursorMove
}
