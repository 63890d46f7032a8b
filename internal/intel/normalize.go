package intel

import (
	"encoding/json"
	"fmt"

	"meeting-intel/internal/identity"
	"meeting-intel/internal/models"
)

var (
	defaultQuestions = []interface{}{
		"What are your top priorities for this role in the next 30–60 days?",
		"What does success look like after the first 90 days?",
		"Which skills/traits differentiate strong candidates in your team?",
	}
	defaultRedFlags = []interface{}{
		"Avoid assuming the person’s exact title/seniority without confirmation.",
		"Avoid claiming information beyond the provided public evidence.",
	}
)

var (
	openerKeys          = []string{"formal", "warm", "technical"}
	studyKeys           = []string{"likely_role_focus", "domain", "communication_style"}
	recommendationStrs  = []string{"dress", "tone"}
	recommendationLists = []string{"dos", "donts", "connecting_points", "suggested_agenda"}
	profileLists        = []string{"likely_products_services", "hiring_signals", "recent_public_mentions"}
)

// runContext is what the pipeline knows independently of the model.
type runContext struct {
	identity         identity.Identity
	evidence         []models.EvidenceItem
	githubProfile    *models.GitHubProfile
	socialCandidates []models.SocialCandidate
	socialSelected   []models.SocialCandidate
}

// buildDocument applies field-level normalization to a parsed model
// object, producing the document that is validated against analyzeSchema.
// Shapes that cannot be coerced are left in place for validation to reject.
func buildDocument(data map[string]interface{}, rc runContext) map[string]interface{} {
	doc := map[string]interface{}{
		"input_email":       rc.identity.Raw,
		"person_name_guess": orUnknown(rc.identity.NameGuess()),
		"company_domain":    orUnknown(rc.identity.Domain),
		"confidence":        confidenceDoc(overallConfidence(data["confidence"], rc.evidence)),
	}

	for _, key := range []string{"company_confidence", "person_confidence"} {
		if _, ok := data[key].(map[string]interface{}); ok {
			doc[key] = confidenceDoc(normalizeConfidence(data[key]))
		}
	}

	brief := data["one_minute_brief"]
	if falsy(brief) {
		brief = models.Unknown
	}
	doc["one_minute_brief"] = coalesceStr(brief)

	questions := data["questions_to_ask"]
	if falsy(questions) {
		questions = defaultQuestions
	}
	doc["questions_to_ask"] = CoalesceList(questions)

	redFlags := data["red_flags"]
	if falsy(redFlags) {
		redFlags = defaultRedFlags
	}
	doc["red_flags"] = CoalesceList(redFlags)

	openers := map[string]interface{}{}
	if raw, ok := data["email_openers"].(map[string]interface{}); ok {
		for k, v := range raw {
			openers[k] = v
		}
	}
	for _, k := range openerKeys {
		openers[k] = coalesceStr(openers[k])
	}
	doc["email_openers"] = openers

	if raw, ok := data["company_profile"].(map[string]interface{}); ok && len(raw) > 0 {
		profile := copyMap(raw)
		profile["summary"] = coalesceStr(profile["summary"])
		for _, k := range profileLists {
			profile[k] = CoalesceList(profile[k])
		}
		doc["company_profile"] = profile
	}

	study := copyMap(coalesceDict(data["study_of_person"]))
	for _, k := range studyKeys {
		if _, ok := study[k]; ok {
			study[k] = coalesceStr(study[k])
		}
	}
	doc["study_of_person"] = study

	recs := copyMap(coalesceDict(data["recommendations"]))
	for _, k := range recommendationStrs {
		if _, ok := recs[k]; ok {
			recs[k] = coalesceStr(recs[k])
		}
	}
	for _, k := range recommendationLists {
		recs[k] = CoalesceList(recs[k])
	}
	doc["recommendations"] = recs

	if ev, ok := data["evidence"].([]interface{}); ok && len(ev) > 0 {
		doc["evidence"] = ev
	} else if rc.evidence != nil {
		doc["evidence"] = rc.evidence
	} else {
		doc["evidence"] = []models.EvidenceItem{}
	}

	if rc.githubProfile != nil {
		doc["github_profile"] = rc.githubProfile
	}
	doc["social_candidates"] = nonNilCandidates(rc.socialCandidates)
	doc["social_selected"] = nonNilCandidates(rc.socialSelected)
	return doc
}

// buildResult normalizes, validates and decodes one model object.
func buildResult(data map[string]interface{}, rc runContext) (*models.AnalyzeResult, error) {
	doc := buildDocument(data, rc)
	if err := analyzeSchema.Validate(doc); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode dossier: %w", err)
	}
	var result models.AnalyzeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode dossier: %w", err)
	}
	result.FillDefaults()
	return &result, nil
}

func orUnknown(s string) string {
	if s == "" {
		return models.Unknown
	}
	return s
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func nonNilCandidates(c []models.SocialCandidate) []models.SocialCandidate {
	if c == nil {
		return []models.SocialCandidate{}
	}
	return c
}
