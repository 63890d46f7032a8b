// internal/models/assistant.go
package models

// AssistantName is the persona name returned in every assistant response.
const AssistantName = "Mr Assistant"

type BootstrapRequest struct {
	Email                string `json:"email" binding:"required"`
	Agenda               Agenda `json:"agenda" binding:"required"`
	RefreshPublicSignals bool   `json:"refresh_public_signals"`
}

type BootstrapResponse struct {
	SessionID          string         `json:"session_id"`
	AssistantName      string         `json:"assistant_name"`
	Intro              string         `json:"intro"`
	StarterQuestions   []string       `json:"starter_questions"`
	PitchOpeners       []string       `json:"pitch_openers"`
	PitchStructure     []string       `json:"pitch_structure"`
	LikelyObjections   []string       `json:"likely_objections"`
	ObjectionResponses []string       `json:"objection_responses"`
	Confidence         string         `json:"confidence"`
	Citations          []EvidenceItem `json:"citations"`
	AnalyzeSnapshot    AnalyzeResult  `json:"analyze_snapshot"`
}

type ChatRequest struct {
	SessionID      string `json:"session_id" binding:"required"`
	Message        string `json:"message" binding:"required"`
	ConfirmRefresh bool   `json:"confirm_refresh"`
}

type ChatResponse struct {
	SessionID          string         `json:"session_id"`
	AssistantName      string         `json:"assistant_name"`
	Message            string         `json:"message"`
	FollowUpQuestions  []string       `json:"follow_up_questions"`
	RefreshRecommended bool           `json:"refresh_recommended"`
	RefreshReason      string         `json:"refresh_reason,omitempty"`
	Citations          []EvidenceItem `json:"citations"`
}
