package callengine

import (
	"context"

	"github.com/mindora/relay-server/internal/store"
)

// JoinInfo contains information needed to join a room's voice channel.
type JoinInfo struct {
	URL      string `json:"url"`       // WebSocket URL (e.g., ws://localhost:7880)
	Token    string `json:"token"`     // JWT token for the media server
	RoomName string `json:"room_name"` // media server room name
	Identity string `json:"identity"`  // participant identity
}

// Engine abstracts the media backend for voice sessions.
type Engine interface {
	// RoomName maps a relay room to the media room that carries its voice channel.
	RoomName(roomID string) string

	// EndSession terminates the media room of a finished session.
	EndSession(ctx context.Context, session *store.VoiceSession) error

	// GenerateJoinInfo creates join credentials for a participant.
	GenerateJoinInfo(ctx context.Context, roomID, identity, name string) (*JoinInfo, error)
}
