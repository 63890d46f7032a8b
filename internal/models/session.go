package models

import "time"

// MaxChatHistory is the number of chat entries a session retains.
const MaxChatHistory = 16

// Agenda is what the user is pitching and the meeting context.
type Agenda struct {
	Pitch           string `json:"pitch" binding:"required"`
	Goal            string `json:"goal" binding:"required"`
	MeetingType     string `json:"meeting_type,omitempty"`
	AudienceContext string `json:"audience_context,omitempty"`
	Constraints     string `json:"constraints,omitempty"`
}

// ChatTurn is one entry in a session transcript.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AssistantSession binds an agenda and chat history to a dossier snapshot.
// Values are treated as immutable once stored; mutations produce copies.
type AssistantSession struct {
	SessionID       string        `json:"session_id"`
	CreatedAt       time.Time     `json:"created_at"`
	Email           string        `json:"email"`
	Agenda          Agenda        `json:"agenda"`
	AnalyzeSnapshot AnalyzeResult `json:"analyze_snapshot"`
	ChatHistory     []ChatTurn    `json:"chat_history"`
}

// WithChat returns a copy with turn appended and history trimmed to the
// most recent MaxChatHistory entries.
func (s AssistantSession) WithChat(turn ChatTurn) AssistantSession {
	history := make([]ChatTurn, 0, len(s.ChatHistory)+1)
	history = append(history, s.ChatHistory...)
	history = append(history, turn)
	if len(history) > MaxChatHistory {
		history = history[len(history)-MaxChatHistory:]
	}
	s.ChatHistory = history
	return s
}

// WithSnapshot returns a copy holding snapshot.
func (s AssistantSession) WithSnapshot(snapshot AnalyzeResult) AssistantSession {
	s.AnalyzeSnapshot = snapshot
	s.ChatHistory = append([]ChatTurn(nil), s.ChatHistory...)
	return s
}
