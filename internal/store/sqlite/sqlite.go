package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/mindora/relay-server/internal/store"
)

// Schema creates the tables used by the relay. Safe to apply repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS voice_sessions (
	id         TEXT PRIMARY KEY,
	room_id    TEXT NOT NULL,
	host_id    TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'active',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	ended_at   DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS voice_sessions_one_active
	ON voice_sessions (room_id) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS voice_sessions_room_created
	ON voice_sessions (room_id, created_at DESC);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database at dbPath and applies Schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema or fixtures.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate applies Schema.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== VoiceStore implementation ====

// CreateVoiceSession stores a new active session.
func (s *SQLiteStore) CreateVoiceSession(ctx context.Context, session *store.VoiceSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if session.Status == "" {
		session.Status = store.VoiceStatusActive
	}

	query := `
		INSERT INTO voice_sessions (id, room_id, host_id, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.RoomID,
		session.HostID,
		string(session.Status),
		session.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert voice session: %w", store.ErrConflict)
		}
		return fmt.Errorf("insert voice session: %w", err)
	}
	return nil
}

// GetActiveVoiceSession returns the room's active session, or nil if none exists.
func (s *SQLiteStore) GetActiveVoiceSession(ctx context.Context, roomID string) (*store.VoiceSession, error) {
	query := `
		SELECT id, room_id, host_id, status, created_at, ended_at
		FROM voice_sessions
		WHERE room_id = ? AND status = 'active'
		LIMIT 1
	`
	session, err := scanVoiceSession(s.db.QueryRowContext(ctx, query, roomID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // No active session
	}
	if err != nil {
		return nil, fmt.Errorf("query active voice session: %w", err)
	}
	return session, nil
}

// EndVoiceSession marks an active session as ended.
func (s *SQLiteStore) EndVoiceSession(ctx context.Context, id string, endedAt time.Time) error {
	query := `
		UPDATE voice_sessions
		SET status = 'ended', ended_at = ?
		WHERE id = ? AND status = 'active'
	`
	result, err := s.db.ExecContext(ctx, query, endedAt, id)
	if err != nil {
		return fmt.Errorf("end voice session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("voice session %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// ListVoiceSessions lists a room's sessions, newest first.
func (s *SQLiteStore) ListVoiceSessions(ctx context.Context, roomID string, limit int) ([]*store.VoiceSession, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, room_id, host_id, status, created_at, ended_at
		FROM voice_sessions
		WHERE room_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("query voice sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*store.VoiceSession
	for rows.Next() {
		session, err := scanVoiceSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voice session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voice sessions: %w", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVoiceSession(row rowScanner) (*store.VoiceSession, error) {
	var session store.VoiceSession
	var status string
	var endedAt sql.NullTime

	if err := row.Scan(
		&session.ID,
		&session.RoomID,
		&session.HostID,
		&status,
		&session.CreatedAt,
		&endedAt,
	); err != nil {
		return nil, err
	}

	session.Status = store.VoiceStatus(status)
	if endedAt.Valid {
		session.EndedAt = &endedAt.Time
	}
	return &session, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
