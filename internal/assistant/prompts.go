package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"meeting-intel/internal/intel"
	"meeting-intel/internal/models"
)

const historyWindow = 10

const systemPrompt = `You are Mr Assistant, a recruiter/sales meeting-prep RAG agent.

You help the user prepare to pitch/present to a person inferred from a corporate email.

Rules (critical):
- Do NOT claim certainty. Use probabilistic language.
- Do NOT invent facts about the person or company.
- Ground company/person statements in the provided evidence snippets; add citations (URLs) when possible.
- If the user asks something not supported by evidence, say what is unknown and suggest refreshing public signals.
- Do NOT mention model/vendor/provider names. If asked, say: "This MVP uses a RAG-style agent over public web signals."
- Output MUST be valid JSON only.
`

const bootstrapTask = `Task:
Return JSON with keys:
- intro (string)
- starter_questions (array of 5 strings)
- pitch_openers (array of 3 strings)
- pitch_structure (array of 5-8 bullet strings)
- likely_objections (array of 4 strings)
- objection_responses (array of 4 strings)
- confidence (low|medium|high)

Rules:
- Keep it recruiter-friendly and action-oriented.
- If evidence is thin, lower confidence and say what you would verify next.
`

const chatTask = `Task:
Return JSON with keys:
- message (string)
- follow_up_questions (array of up to 3 strings)
- confidence (low|medium|high)

Rules:
- If you cannot ground a factual claim, say it’s unknown and suggest what evidence would help.
- Include 0-3 follow-up questions if they help clarify user’s pitch.
`

func jsonRepairClause(err error) string {
	return "\n\nReturn ONLY valid JSON. Previous JSON error: " + err.Error()
}

func bootstrapPrompt(agenda models.Agenda, snapshot models.AnalyzeResult) string {
	study, _ := json.Marshal(snapshot.StudyOfPerson)

	var b strings.Builder
	b.WriteString("Context:\n")
	fmt.Fprintf(&b, "- Target email: %s\n", snapshot.InputEmail)
	fmt.Fprintf(&b, "- Person name guess: %s\n", snapshot.PersonNameGuess)
	fmt.Fprintf(&b, "- Company domain: %s\n\n", snapshot.CompanyDomain)

	b.WriteString("User agenda:\n")
	fmt.Fprintf(&b, "- pitch: %s\n", agenda.Pitch)
	fmt.Fprintf(&b, "- goal: %s\n", agenda.Goal)
	fmt.Fprintf(&b, "- meeting_type: %s\n", agenda.MeetingType)
	fmt.Fprintf(&b, "- audience_context: %s\n", agenda.AudienceContext)
	fmt.Fprintf(&b, "- constraints: %s\n\n", agenda.Constraints)

	b.WriteString("Persona snapshot (AI-inferred):\n")
	fmt.Fprintf(&b, "- One-minute brief: %s\n", snapshot.OneMinuteBrief)
	fmt.Fprintf(&b, "- Study of person: %s\n\n", study)

	b.WriteString("Evidence (public web signals):\n")
	b.WriteString(intel.EvidenceBullets(snapshot.Evidence))
	b.WriteString("\n\n")
	b.WriteString(bootstrapTask)
	return b.String()
}

type personaSnapshot struct {
	InputEmail      string                 `json:"input_email"`
	PersonNameGuess string                 `json:"person_name_guess"`
	CompanyDomain   string                 `json:"company_domain"`
	OneMinuteBrief  string                 `json:"one_minute_brief"`
	StudyOfPerson   models.StudyOfPerson   `json:"study_of_person"`
	CompanyProfile  *models.CompanyProfile `json:"company_profile"`
	Recommendations models.Recommendations `json:"recommendations"`
}

func chatPrompt(session models.AssistantSession, message string) string {
	agenda, _ := json.Marshal(session.Agenda)
	snap := session.AnalyzeSnapshot
	persona, _ := json.Marshal(personaSnapshot{
		InputEmail:      snap.InputEmail,
		PersonNameGuess: snap.PersonNameGuess,
		CompanyDomain:   snap.CompanyDomain,
		OneMinuteBrief:  snap.OneMinuteBrief,
		StudyOfPerson:   snap.StudyOfPerson,
		CompanyProfile:  snap.CompanyProfile,
		Recommendations: snap.Recommendations,
	})

	history := session.ChatHistory
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	lines := make([]string, len(history))
	for i, h := range history {
		lines[i] = h.Role + ": " + h.Content
	}

	var b strings.Builder
	b.WriteString("You are continuing an assistant session.\n\n")
	fmt.Fprintf(&b, "User agenda:\n%s\n\n", agenda)
	fmt.Fprintf(&b, "Persona snapshot:\n%s\n\n", persona)
	fmt.Fprintf(&b, "Evidence (public web signals):\n%s\n\n", intel.EvidenceBullets(snap.Evidence))
	fmt.Fprintf(&b, "Conversation so far (most recent last):\n%s\n\n", strings.Join(lines, "\n"))
	fmt.Fprintf(&b, "User message:\n%s\n\n", message)
	b.WriteString(chatTask)
	return b.String()
}
