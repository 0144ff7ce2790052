package core

import "encoding/json"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventOnlineUsers carries the full member list of a room.
	EventOnlineUsers EventKind = iota
	// EventUserJoined tells existing members about a newcomer.
	EventUserJoined
	// EventReceiveMessage carries a chat message, including assistant replies.
	EventReceiveMessage
	// EventDrawAction carries a whiteboard action from another member.
	EventDrawAction
	// EventCursorMove carries another member's cursor position.
	EventCursorMove
	// EventVoiceStatus reports the room's voice channel state.
	EventVoiceStatus
)

// Event is sent to clients to describe what happened in a room. A single Event
// value is shared by every recipient and must not be mutated after sending.
type Event struct {
	Kind     EventKind
	Room     string
	Users    []Member     // EventOnlineUsers
	UserName string       // EventUserJoined
	Message  ChatMessage  // EventReceiveMessage
	Draw     *DrawAction  // EventDrawAction
	Cursor   *CursorMove  // EventCursorMove
	Voice    *VoiceStatus // EventVoiceStatus
}

// ChatMessage is a transient chat line. Time is a display-only HH:MM stamp.
type ChatMessage struct {
	Sender string
	Text   string
	Time   string
}

// DrawAction is relayed verbatim; Data is never decoded.
type DrawAction struct {
	Type string
	Data json.RawMessage
}

// CursorMove is a whiteboard pointer position.
type CursorMove struct {
	UserID string
	Name   string
	X      float64
	Y      float64
}

// VoiceStatus describes a room's voice channel.
type VoiceStatus struct {
	Active    bool
	Host      string
	SessionID string
}
