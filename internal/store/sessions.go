// Package store holds the durable collaborators: assistant session
// repositories, the shared Redis result tier and the dossier archive.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"meeting-intel/internal/common/logger"
	"meeting-intel/internal/models"
)

var (
	ErrSessionEncode = errors.New("SESSION_ENCODE_FAILED")
	ErrSessionDecode = errors.New("SESSION_DECODE_FAILED")
)

type sessionQueries struct {
	schema         string
	upsert         string
	get            string
	updateChat     string
	updateSnapshot string
}

var postgresQueries = sessionQueries{
	schema: `
		CREATE TABLE IF NOT EXISTS assistant_sessions (
			session_id   TEXT PRIMARY KEY,
			created_at   BIGINT NOT NULL,
			email        TEXT NOT NULL,
			agenda_json  TEXT NOT NULL,
			analyze_json TEXT NOT NULL,
			chat_json    TEXT NOT NULL
		)`,
	upsert: `
		INSERT INTO assistant_sessions (session_id, created_at, email, agenda_json, analyze_json, chat_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE SET
			created_at = EXCLUDED.created_at,
			email = EXCLUDED.email,
			agenda_json = EXCLUDED.agenda_json,
			analyze_json = EXCLUDED.analyze_json,
			chat_json = EXCLUDED.chat_json`,
	get: `
		SELECT session_id, created_at, email, agenda_json, analyze_json, chat_json
		FROM assistant_sessions
		WHERE session_id = $1`,
	updateChat:     `UPDATE assistant_sessions SET chat_json = $1 WHERE session_id = $2`,
	updateSnapshot: `UPDATE assistant_sessions SET analyze_json = $1 WHERE session_id = $2`,
}

var sqliteQueries = sessionQueries{
	schema: `
		CREATE TABLE IF NOT EXISTS assistant_sessions (
			session_id   TEXT PRIMARY KEY,
			created_at   INTEGER NOT NULL,
			email        TEXT NOT NULL,
			agenda_json  TEXT NOT NULL,
			analyze_json TEXT NOT NULL,
			chat_json    TEXT NOT NULL
		)`,
	upsert: `
		INSERT OR REPLACE INTO assistant_sessions (session_id, created_at, email, agenda_json, analyze_json, chat_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
	get: `
		SELECT session_id, created_at, email, agenda_json, analyze_json, chat_json
		FROM assistant_sessions
		WHERE session_id = ?`,
	updateChat:     `UPDATE assistant_sessions SET chat_json = ? WHERE session_id = ?`,
	updateSnapshot: `UPDATE assistant_sessions SET analyze_json = ? WHERE session_id = ?`,
}

// SessionRepository persists assistant sessions in the assistant_sessions
// table. The same type serves Postgres and SQLite; only the SQL differs.
type SessionRepository struct {
	db      *sql.DB
	queries sessionQueries
	logger  logger.Logger
}

func NewPostgresSessions(db *sql.DB, log logger.Logger) *SessionRepository {
	return &SessionRepository{db: db, queries: postgresQueries, logger: logger.Component(log, "session_repository")}
}

func NewSQLiteSessions(db *sql.DB, log logger.Logger) *SessionRepository {
	return &SessionRepository{db: db, queries: sqliteQueries, logger: logger.Component(log, "session_repository")}
}

// EnsureSchema creates the sessions table when missing.
func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.queries.schema); err != nil {
		return fmt.Errorf("create assistant_sessions: %w", err)
	}
	return nil
}

// Create inserts the session, replacing any row with the same id.
func (r *SessionRepository) Create(ctx context.Context, s models.AssistantSession) error {
	agenda, err := encode(s.Agenda)
	if err != nil {
		return err
	}
	snapshot, err := encode(s.AnalyzeSnapshot)
	if err != nil {
		return err
	}
	chat, err := encode(chatOrEmpty(s.ChatHistory))
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, r.queries.upsert,
		s.SessionID, s.CreatedAt.UnixMilli(), s.Email, agenda, snapshot, chat)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", s.SessionID, err)
	}
	return nil
}

// Get returns the stored session; ok is false when no row exists.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (models.AssistantSession, bool, error) {
	var (
		s                      models.AssistantSession
		createdAt              int64
		agenda, snapshot, chat string
	)
	err := r.db.QueryRowContext(ctx, r.queries.get, sessionID).Scan(
		&s.SessionID, &createdAt, &s.Email, &agenda, &snapshot, &chat,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AssistantSession{}, false, nil
	}
	if err != nil {
		return models.AssistantSession{}, false, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	s.CreatedAt = time.UnixMilli(createdAt).UTC()
	if err := decode(agenda, &s.Agenda); err != nil {
		return models.AssistantSession{}, false, err
	}
	if err := decode(snapshot, &s.AnalyzeSnapshot); err != nil {
		return models.AssistantSession{}, false, err
	}
	if err := decode(chat, &s.ChatHistory); err != nil {
		return models.AssistantSession{}, false, err
	}
	s.ChatHistory = chatOrEmpty(s.ChatHistory)
	return s, true, nil
}

// UpdateChat overwrites the stored chat history.
func (r *SessionRepository) UpdateChat(ctx context.Context, sessionID string, history []models.ChatTurn) error {
	chat, err := encode(chatOrEmpty(history))
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, r.queries.updateChat, chat, sessionID); err != nil {
		return fmt.Errorf("update chat for session %s: %w", sessionID, err)
	}
	return nil
}

// UpdateSnapshot overwrites the stored dossier snapshot.
func (r *SessionRepository) UpdateSnapshot(ctx context.Context, sessionID string, snapshot models.AnalyzeResult) error {
	data, err := encode(snapshot)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, r.queries.updateSnapshot, data, sessionID); err != nil {
		return fmt.Errorf("update snapshot for session %s: %w", sessionID, err)
	}
	r.logger.Debug("session snapshot replaced", map[string]interface{}{"sessionId": sessionID})
	return nil
}

func encode(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionEncode, err)
	}
	return string(b), nil
}

func decode(data string, v interface{}) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionDecode, err)
	}
	return nil
}

func chatOrEmpty(h []models.ChatTurn) []models.ChatTurn {
	if h == nil {
		return []models.ChatTurn{}
	}
	return h
}
