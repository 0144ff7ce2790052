package livekit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"

	"github.com/mindora/relay-server/internal/callengine"
	"github.com/mindora/relay-server/internal/store"
)

// TokenTTL is how long a join token stays valid.
const TokenTTL = time.Hour

// LiveKitEngine implements callengine.Engine using LiveKit as the media backend.
type LiveKitEngine struct {
	apiKey    string
	apiSecret string
	wsURL     string
}

// New creates a new LiveKitEngine.
func New(apiKey, apiSecret, wsURL string) *LiveKitEngine {
	return &LiveKitEngine{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		wsURL:     wsURL,
	}
}

// RoomName returns the LiveKit room for a relay room: mindora-{roomID}.
// LiveKit creates rooms on demand when the first participant joins.
func (e *LiveKitEngine) RoomName(roomID string) string {
	return "mindora-" + roomID
}

// EndSession is a no-op: LiveKit closes empty rooms after their timeout.
func (e *LiveKitEngine) EndSession(_ context.Context, _ *store.VoiceSession) error {
	return nil
}

// GenerateJoinInfo creates a token that lets identity join the room's voice channel.
func (e *LiveKitEngine) GenerateJoinInfo(_ context.Context, roomID, identity, name string) (*callengine.JoinInfo, error) {
	if identity == "" {
		return nil, errors.New("identity is required")
	}
	roomName := e.RoomName(roomID)

	at := auth.NewAccessToken(e.apiKey, e.apiSecret)
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     roomName,
	}
	at.SetVideoGrant(grant).
		SetIdentity(identity).
		SetName(name).
		SetValidFor(TokenTTL)

	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &callengine.JoinInfo{
		URL:      e.wsURL,
		Token:    token,
		RoomName: roomName,
		Identity: identity,
	}, nil
}

// Ensure LiveKitEngine implements callengine.Engine
var _ callengine.Engine = (*LiveKitEngine)(nil)
