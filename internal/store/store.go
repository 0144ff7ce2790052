package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would break a uniqueness rule.
	ErrConflict = errors.New("conflict")
)

// VoiceStatus is the lifecycle state of a voice session.
type VoiceStatus string

const (
	VoiceStatusActive VoiceStatus = "active"
	VoiceStatusEnded  VoiceStatus = "ended"
)

// VoiceSession is one voice channel session in a room. A room has at most one
// active session at a time.
type VoiceSession struct {
	ID        string // UUID
	RoomID    string
	HostID    string
	Status    VoiceStatus
	CreatedAt time.Time
	EndedAt   *time.Time
}

// VoiceStore handles voice session persistence.
type VoiceStore interface {
	// CreateVoiceSession stores a new active session. ErrConflict if the room
	// already has one.
	CreateVoiceSession(ctx context.Context, session *VoiceSession) error

	// GetActiveVoiceSession returns the room's active session, or nil if none exists.
	GetActiveVoiceSession(ctx context.Context, roomID string) (*VoiceSession, error)

	// EndVoiceSession marks a session as ended. ErrNotFound if it is not active.
	EndVoiceSession(ctx context.Context, id string, endedAt time.Time) error

	// ListVoiceSessions lists a room's sessions, newest first.
	ListVoiceSessions(ctx context.Context, roomID string, limit int) ([]*VoiceSession, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	VoiceStore

	// Close closes the underlying database connection.
	Close() error
}
