package assistant

import (
	"context"
	"fmt"
	"strings"

	apperrors "meeting-intel/internal/common/errors"
	"meeting-intel/internal/common/logger"
	"meeting-intel/internal/identity"
	"meeting-intel/internal/intel"
	"meeting-intel/internal/models"
)

const (
	PurposeBootstrap = "assistant_bootstrap"
	PurposeChat      = "assistant_chat"

	maxCitations         = 6
	citationSnippetKey   = 80
	maxStarterQuestions  = 5
	maxPitchOpeners      = 5
	maxPitchStructure    = 10
	maxObjections        = 8
	maxFollowUpQuestions = 3

	defaultIntro      = "I’m Mr Assistant. Tell me what you’re pitching and I’ll help you tailor a confident, evidence-aware approach."
	refreshReason     = "Your question sounds time-sensitive. I can refresh public web signals (search + company-site crawl) before answering."
	refreshSuggestion = "Your question sounds like it may require up-to-date public info. " +
		"If you want, I can refresh public signals (search + company-site crawl) before answering. " +
		"Confirm refresh to proceed, or ask a non-time-sensitive question."
)

var freshnessTriggers = []string{
	"latest", "recent", "today", "yesterday", "this week", "now", "current",
	"still", "confirm", "verify", "updated", "funding", "press release",
	"news", "layoff",
}

// Analyzer produces the dossier snapshot a session is grounded on.
type Analyzer interface {
	Analyze(ctx context.Context, in intel.Input) (*models.AnalyzeResult, error)
}

// JSONGenerator issues one model call with a single parse repair.
type JSONGenerator interface {
	ParseWithRepair(ctx context.Context, call intel.Call, repair func(error) string) (map[string]interface{}, error)
}

// Service runs the bootstrap and chat operations.
type Service struct {
	analyzer  Analyzer
	generator JSONGenerator
	sessions  *SessionStore
	logger    logger.Logger
}

func NewService(analyzer Analyzer, generator JSONGenerator, sessions *SessionStore, log logger.Logger) *Service {
	return &Service{
		analyzer:  analyzer,
		generator: generator,
		sessions:  sessions,
		logger:    logger.Component(log, "assistant"),
	}
}

// Bootstrap analyzes the email, opens a session and asks the model for a
// pitch-prep package grounded on the snapshot.
func (s *Service) Bootstrap(ctx context.Context, req models.BootstrapRequest) (*models.BootstrapResponse, error) {
	id := identity.ParseEmail(req.Email)
	if !id.Valid {
		return nil, apperrors.NewInvalidIdentityError("Invalid corporate email")
	}

	snapshot, err := s.analyzer.Analyze(ctx, intel.Input{
		Identity:       id,
		ForceRefresh:   req.RefreshPublicSignals,
		AllowDiscovery: true,
	})
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Create(ctx, req.Email, req.Agenda, *snapshot)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	data, err := s.generator.ParseWithRepair(ctx, intel.Call{
		System:  systemPrompt,
		Prompt:  bootstrapPrompt(req.Agenda, *snapshot),
		Purpose: PurposeBootstrap,
	}, jsonRepairClause)
	if err != nil {
		return nil, err
	}

	if _, err := s.sessions.AppendChat(ctx, session.SessionID, models.ChatTurn{
		Role:    "system",
		Content: "bootstrap for " + req.Email,
	}); err != nil {
		return nil, fmt.Errorf("append bootstrap turn: %w", err)
	}

	intro := truthyString(data["intro"])
	if intro == "" {
		intro = defaultIntro
	}
	confidence := strings.ToLower(strings.TrimSpace(truthyString(data["confidence"])))
	if confidence == "" {
		confidence = models.ConfidenceMedium
	}

	s.logger.Info("assistant bootstrapped", map[string]interface{}{
		"sessionId": session.SessionID,
		"domain":    id.Domain,
	})
	return &models.BootstrapResponse{
		SessionID:          session.SessionID,
		AssistantName:      models.AssistantName,
		Intro:              intro,
		StarterQuestions:   capList(data["starter_questions"], maxStarterQuestions),
		PitchOpeners:       capList(data["pitch_openers"], maxPitchOpeners),
		PitchStructure:     capList(data["pitch_structure"], maxPitchStructure),
		LikelyObjections:   capList(data["likely_objections"], maxObjections),
		ObjectionResponses: capList(data["objection_responses"], maxObjections),
		Confidence:         confidence,
		Citations:          PickCitations(snapshot.Evidence, maxCitations),
		AnalyzeSnapshot:    *snapshot,
	}, nil
}

// Chat answers one message in a session. Time-sensitive messages are
// answered with a refresh suggestion and no model call unless the caller
// confirmed the refresh, in which case the snapshot is rebuilt first.
func (s *Service) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	session, ok, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil, apperrors.NewUnknownSessionError(req.SessionID)
	}

	if NeedsRefresh(req.Message) {
		if !req.ConfirmRefresh {
			return &models.ChatResponse{
				SessionID:          req.SessionID,
				AssistantName:      models.AssistantName,
				Message:            refreshSuggestion,
				FollowUpQuestions:  []string{},
				RefreshRecommended: true,
				RefreshReason:      refreshReason,
				Citations:          PickCitations(session.AnalyzeSnapshot.Evidence, maxCitations),
			}, nil
		}

		snapshot, err := s.analyzer.Analyze(ctx, intel.Input{
			Identity:       identity.ParseEmail(session.Email),
			ForceRefresh:   true,
			AllowDiscovery: true,
		})
		if err != nil {
			return nil, err
		}
		if session, err = s.sessions.ReplaceSnapshot(ctx, req.SessionID, *snapshot); err != nil {
			return nil, fmt.Errorf("replace snapshot: %w", err)
		}
		s.logger.Info("session snapshot refreshed", map[string]interface{}{"sessionId": req.SessionID})
	}

	data, err := s.generator.ParseWithRepair(ctx, intel.Call{
		System:  systemPrompt,
		Prompt:  chatPrompt(session, req.Message),
		Purpose: PurposeChat,
	}, jsonRepairClause)
	if err != nil {
		return nil, err
	}

	reply := truthyString(data["message"])
	if _, err := s.sessions.AppendChat(ctx, req.SessionID,
		models.ChatTurn{Role: "user", Content: req.Message},
		models.ChatTurn{Role: "assistant", Content: reply},
	); err != nil {
		return nil, fmt.Errorf("append chat: %w", err)
	}

	return &models.ChatResponse{
		SessionID:         req.SessionID,
		AssistantName:     models.AssistantName,
		Message:           reply,
		FollowUpQuestions: capList(data["follow_up_questions"], maxFollowUpQuestions),
		Citations:         PickCitations(session.AnalyzeSnapshot.Evidence, maxCitations),
	}, nil
}

// NeedsRefresh reports whether message mentions a freshness trigger.
func NeedsRefresh(message string) bool {
	m := strings.ToLower(message)
	for _, t := range freshnessTriggers {
		if strings.Contains(m, t) {
			return true
		}
	}
	return false
}

// PickCitations returns up to limit evidence items, skipping repeats of the
// same source, url and snippet prefix.
func PickCitations(evidence []models.EvidenceItem, limit int) []models.EvidenceItem {
	out := make([]models.EvidenceItem, 0, limit)
	seen := make(map[string]bool, len(evidence))
	for _, e := range evidence {
		key := e.Source + "::" + e.URL + "::" + prefix(e.Snippet, citationSnippetKey)
		if seen[key] {
			continue
		}
		seen[key] = true

		if e.Source == "" {
			e.Source = models.Unknown
		}
		out = append(out, e)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func capList(v interface{}, n int) []string {
	items := intel.CoalesceList(v)
	if len(items) > n {
		items = items[:n]
	}
	return items
}

func truthyString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
	case float64:
		if t == 0 {
			return ""
		}
	}
	return fmt.Sprint(v)
}

func prefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
