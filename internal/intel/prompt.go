package intel

import (
	"fmt"
	"strings"

	"meeting-intel/internal/identity"
	"meeting-intel/internal/models"
)

// MaxPromptEvidence caps the evidence bullets rendered into any prompt.
const MaxPromptEvidence = 22

// SystemPrompt is sent as the system instruction on every analyze call,
// repairs included.
const SystemPrompt = `You are an AI assistant that creates meeting intelligence from public web signals.

Rules:
- Use probabilistic language; never claim certainty.
- Never invent facts; ground every claim about the person or company in the provided evidence.
- Output MUST be valid JSON only (no markdown, no commentary).
- Follow the provided schema keys exactly.
- confidence MUST be an object with keys: label (low|medium|high) and rationale (string).
- recommendations MUST contain arrays for: dos, donts, connecting_points, suggested_agenda (can be empty).
- Never mention the underlying model, vendor or provider.
`

const analyzeTask = `Task:
Return JSON with keys:
- confidence: {label, rationale}
- company_confidence (optional): {label, rationale}
- person_confidence (optional): {label, rationale}
- one_minute_brief (string)
- questions_to_ask (array of strings)
- email_openers: {formal, warm, technical}
- red_flags (array of strings)
- company_profile: {summary, likely_products_services, hiring_signals, recent_public_mentions}
- study_of_person: {likely_role_focus, domain, communication_style}
- recommendations: {dress, tone, dos, donts, connecting_points, suggested_agenda}
- evidence (array of {source, snippet, url})

Rules:
- If unknown, return the string "unknown" (not null).
`

// EvidenceBullets renders up to MaxPromptEvidence items as
// "- (source) snippet [url]" lines, or "- None".
func EvidenceBullets(evidence []models.EvidenceItem) string {
	if len(evidence) > MaxPromptEvidence {
		evidence = evidence[:MaxPromptEvidence]
	}
	var b strings.Builder
	for i, e := range evidence {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- (%s) %s [%s]", e.Source, e.Snippet, e.URL)
	}
	if strings.TrimSpace(b.String()) == "" {
		return "- None"
	}
	return b.String()
}

// BuildPrompt renders the deterministic analyze prompt for id.
func BuildPrompt(id identity.Identity, evidence []models.EvidenceItem) string {
	name := id.NameGuess()
	if name == "" {
		name = models.Unknown
	}
	domain := id.Domain
	if domain == "" {
		domain = models.Unknown
	}

	var b strings.Builder
	b.WriteString("Input:\n")
	fmt.Fprintf(&b, "- email: %s\n", id.Raw)
	fmt.Fprintf(&b, "- name_guess: %s\n", name)
	fmt.Fprintf(&b, "- company_domain: %s\n\n", domain)
	b.WriteString("Evidence (public web signals):\n")
	b.WriteString(EvidenceBullets(evidence))
	b.WriteString("\n\n")
	b.WriteString(analyzeTask)
	return b.String()
}

func parseRepairClause(err error) string {
	return "\n\nThe previous response was not valid JSON (error: " + err.Error() + "). Return ONLY valid JSON matching the required schema."
}

func schemaRepairClause(err error) string {
	return "\n\nThe JSON did not validate against the schema. Fix ONLY the JSON so it validates. Validation error: " + err.Error()
}
