package proto

import "encoding/json"

// Envelope is the frame exchanged in both directions over the websocket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Inbound event names.
const (
	EventJoinRoom    = "join-room"
	EventSendMessage = "send-message"
	EventDrawAction  = "draw-action"
	EventCursorMove  = "cursor-move"
)

// Outbound event names. draw-action and cursor-move reuse the inbound names.
const (
	EventOnlineUsers    = "online-users"
	EventUserJoined     = "user-joined"
	EventReceiveMessage = "receive-message"
	EventVoiceStatus    = "voice-status"
)

// JoinRoomData asks to join a room under a display name.
type JoinRoomData struct {
	RoomID   string `json:"roomId" validate:"required"`
	UserName string `json:"userName" validate:"required"`
}

// SendMessageData is a chat message from the client.
type SendMessageData struct {
	RoomID   string `json:"roomId" validate:"required"`
	UserName string `json:"userName" validate:"required"`
	Message  string `json:"message" validate:"required"`
}

// DrawActionData is a whiteboard stroke; Data is never interpreted.
type DrawActionData struct {
	RoomID string          `json:"roomId" validate:"required"`
	Type   string          `json:"type" validate:"required"`
	Data   json.RawMessage `json:"data"`
}

// CursorMoveData is a pointer position on the shared whiteboard.
type CursorMoveData struct {
	RoomID string   `json:"roomId" validate:"required"`
	UserID string   `json:"userId" validate:"required"`
	Name   string   `json:"name" validate:"required"`
	X      *float64 `json:"x" validate:"required"`
	Y      *float64 `json:"y" validate:"required"`
}

// OnlineUser is one entry of the online-users list.
type OnlineUser struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
}

// UserJoined announces a new member to the rest of the room.
type UserJoined struct {
	UserName string `json:"userName"`
}

// ReceiveMessage is a chat line as displayed by clients.
type ReceiveMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Time   string `json:"time"`
}

// DrawAction is relayed to the other members of the room.
type DrawAction struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CursorMove is relayed to the other members of the room.
type CursorMove struct {
	UserID string  `json:"userId"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// VoiceStatus tells a room whether its voice channel is live.
type VoiceStatus struct {
	Active    bool   `json:"active"`
	Host      string `json:"host,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}
