package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mindora/relay-server/internal/callengine"
	"github.com/mindora/relay-server/internal/core"
	"github.com/mindora/relay-server/internal/store"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Common errors for voice operations.
var (
	ErrVoiceActive   = errors.New("voice channel already active")
	ErrNoActiveVoice = errors.New("no active voice channel")
	ErrVoiceDisabled = errors.New("voice is not enabled")
	ErrInvalidInput  = errors.New("invalid input")
)

// Announcer pushes events to every member of a room.
type Announcer interface {
	Broadcast(ctx context.Context, room string, ev *core.Event) error
}

// Status is a room's voice channel state as reported to clients.
type Status struct {
	Active    bool       `json:"active"`
	Host      string     `json:"host,omitempty"`
	SessionID string     `json:"sessionId,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// Service manages per-room voice channels.
type Service struct {
	store     store.VoiceStore
	engine    callengine.Engine
	announcer Announcer
	log       *zerolog.Logger
	now       func() time.Time
}

// New creates a voice service. engine can be nil if LiveKit is not enabled;
// announcer can be nil when nobody needs live status updates.
func New(st store.VoiceStore, engine callengine.Engine, announcer Announcer, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store:     st,
		engine:    engine,
		announcer: announcer,
		log:       logger,
		now:       time.Now,
	}
}

// Enabled reports whether join tokens can be issued.
func (s *Service) Enabled() bool {
	return s.engine != nil
}

// Start opens the room's voice channel with hostID as host.
func (s *Service) Start(ctx context.Context, roomID, hostID string) (*store.VoiceSession, error) {
	roomID, hostID = normalizeRoom(roomID), strings.TrimSpace(hostID)
	if roomID == "" || hostID == "" {
		return nil, ErrInvalidInput
	}

	active, err := s.store.GetActiveVoiceSession(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	if active != nil {
		return nil, ErrVoiceActive
	}

	session := &store.VoiceSession{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		HostID:    hostID,
		Status:    store.VoiceStatusActive,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateVoiceSession(ctx, session); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrVoiceActive
		}
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.log.Info().Str("room", roomID).Str("host", hostID).Str("session_id", session.ID).Msg("voice channel started")
	s.announce(ctx, roomID, &core.VoiceStatus{Active: true, Host: hostID, SessionID: session.ID})
	return session, nil
}

// End closes the room's active voice channel.
func (s *Service) End(ctx context.Context, roomID string) (*store.VoiceSession, error) {
	roomID = normalizeRoom(roomID)
	if roomID == "" {
		return nil, ErrInvalidInput
	}

	active, err := s.store.GetActiveVoiceSession(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	if active == nil {
		return nil, ErrNoActiveVoice
	}

	endedAt := s.now().UTC()
	if err := s.store.EndVoiceSession(ctx, active.ID, endedAt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoActiveVoice
		}
		return nil, fmt.Errorf("end session: %w", err)
	}
	active.Status = store.VoiceStatusEnded
	active.EndedAt = &endedAt

	if s.engine != nil {
		if err := s.engine.EndSession(ctx, active); err != nil {
			s.log.Warn().Err(err).Str("session_id", active.ID).Msg("failed to close media room")
		}
	}

	s.log.Info().Str("room", roomID).Str("session_id", active.ID).Msg("voice channel ended")
	s.announce(ctx, roomID, &core.VoiceStatus{Active: false, SessionID: active.ID})
	return active, nil
}

// Status reports the room's voice channel.
func (s *Service) Status(ctx context.Context, roomID string) (*Status, error) {
	roomID = normalizeRoom(roomID)
	if roomID == "" {
		return nil, ErrInvalidInput
	}

	active, err := s.store.GetActiveVoiceSession(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	if active == nil {
		return &Status{Active: false}, nil
	}
	startedAt := active.CreatedAt
	return &Status{
		Active:    true,
		Host:      active.HostID,
		SessionID: active.ID,
		StartedAt: &startedAt,
	}, nil
}

// JoinToken issues media credentials for the room's voice channel.
func (s *Service) JoinToken(ctx context.Context, roomID, identity, name string) (*callengine.JoinInfo, error) {
	if s.engine == nil {
		return nil, ErrVoiceDisabled
	}
	roomID, identity = normalizeRoom(roomID), strings.TrimSpace(identity)
	if roomID == "" || identity == "" {
		return nil, ErrInvalidInput
	}
	if name == "" {
		name = identity
	}

	info, err := s.engine.GenerateJoinInfo(ctx, roomID, identity, name)
	if err != nil {
		return nil, fmt.Errorf("generate join info: %w", err)
	}
	return info, nil
}

// History lists the room's past and current voice sessions, newest first.
// A non-positive limit means the default page size.
func (s *Service) History(ctx context.Context, roomID string, limit int) ([]*store.VoiceSession, error) {
	roomID = normalizeRoom(roomID)
	if roomID == "" {
		return nil, ErrInvalidInput
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	sessions, err := s.store.ListVoiceSessions(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func normalizeRoom(roomID string) string {
	return strings.TrimSpace(roomID)
}

func (s *Service) announce(ctx context.Context, roomID string, status *core.VoiceStatus) {
	if s.announcer == nil {
		return
	}
	ev := &core.Event{Kind: core.EventVoiceStatus, Room: roomID, Voice: status}
	if err := s.announcer.Broadcast(ctx, roomID, ev); err != nil {
		s.log.Warn().Err(err).Str("room", roomID).Msg("failed to announce voice status")
	}
}
