// Package assistant implements the meeting-prep assistant: session
// storage plus the bootstrap and chat operations.
package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"meeting-intel/internal/cache"
	apperrors "meeting-intel/internal/common/errors"
	"meeting-intel/internal/common/logger"
	"meeting-intel/internal/common/metrics"
	"meeting-intel/internal/models"
)

// Repository is the optional durable session backing.
type Repository interface {
	Create(ctx context.Context, s models.AssistantSession) error
	Get(ctx context.Context, sessionID string) (models.AssistantSession, bool, error)
	UpdateChat(ctx context.Context, sessionID string, history []models.ChatTurn) error
	UpdateSnapshot(ctx context.Context, sessionID string, snapshot models.AnalyzeResult) error
}

// SessionStore keeps sessions in a TTL cache, reading through to the
// repository (when set) on a miss. Stored values are never mutated in
// place; every change stores a fresh copy.
type SessionStore struct {
	cache  *cache.TTL[models.AssistantSession]
	repo   Repository
	logger logger.Logger
	newID  func() string
	now    func() time.Time
}

func NewSessionStore(ttl time.Duration, maxItems int, repo Repository, log logger.Logger) *SessionStore {
	return &SessionStore{
		cache:  cache.NewTTL[models.AssistantSession](ttl, maxItems),
		repo:   repo,
		logger: logger.Component(log, "session_store"),
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// Create stores a new session with an empty chat history.
func (s *SessionStore) Create(ctx context.Context, email string, agenda models.Agenda, snapshot models.AnalyzeResult) (models.AssistantSession, error) {
	session := models.AssistantSession{
		SessionID:       s.newID(),
		CreatedAt:       s.now().UTC(),
		Email:           strings.TrimSpace(email),
		Agenda:          agenda,
		AnalyzeSnapshot: snapshot,
		ChatHistory:     []models.ChatTurn{},
	}

	s.put(session)
	if s.repo != nil {
		if err := s.repo.Create(ctx, session); err != nil {
			return models.AssistantSession{}, err
		}
	}

	metrics.SessionsCreated.Inc()
	s.logger.Info("session created", map[string]interface{}{"sessionId": session.SessionID})
	return session, nil
}

// Get returns the session from the cache or, on a miss, from the
// repository, repopulating the cache.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (models.AssistantSession, bool, error) {
	if session, ok := s.cache.Get(sessionID); ok {
		return session, true, nil
	}
	if s.repo == nil {
		return models.AssistantSession{}, false, nil
	}

	session, ok, err := s.repo.Get(ctx, sessionID)
	if err != nil || !ok {
		return models.AssistantSession{}, false, err
	}
	s.put(session)
	return session, true, nil
}

// AppendChat appends turns in order, keeping the most recent
// models.MaxChatHistory entries.
func (s *SessionStore) AppendChat(ctx context.Context, sessionID string, turns ...models.ChatTurn) (models.AssistantSession, error) {
	session, err := s.mustGet(ctx, sessionID)
	if err != nil {
		return models.AssistantSession{}, err
	}
	for _, turn := range turns {
		session = session.WithChat(turn)
	}

	s.put(session)
	if s.repo != nil {
		if err := s.repo.UpdateChat(ctx, sessionID, session.ChatHistory); err != nil {
			return models.AssistantSession{}, err
		}
	}
	return session, nil
}

// ReplaceSnapshot swaps the session's dossier wholesale.
func (s *SessionStore) ReplaceSnapshot(ctx context.Context, sessionID string, snapshot models.AnalyzeResult) (models.AssistantSession, error) {
	session, err := s.mustGet(ctx, sessionID)
	if err != nil {
		return models.AssistantSession{}, err
	}
	session = session.WithSnapshot(snapshot)

	s.put(session)
	if s.repo != nil {
		if err := s.repo.UpdateSnapshot(ctx, sessionID, snapshot); err != nil {
			return models.AssistantSession{}, err
		}
	}
	return session, nil
}

func (s *SessionStore) mustGet(ctx context.Context, sessionID string) (models.AssistantSession, error) {
	session, ok, err := s.Get(ctx, sessionID)
	if err != nil {
		return models.AssistantSession{}, err
	}
	if !ok {
		return models.AssistantSession{}, apperrors.NewUnknownSessionError(sessionID)
	}
	return session, nil
}

func (s *SessionStore) put(session models.AssistantSession) {
	s.cache.Set(session.SessionID, session)
	metrics.SessionsActive.Set(float64(s.cache.Len()))
}
