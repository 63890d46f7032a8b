package intel

import (
	"meeting-intel/internal/common/validation"
)

func stringProp() map[string]interface{} {
	return map[string]interface{}{"type": "string"}
}

func stringListProp() map[string]interface{} {
	return map[string]interface{}{"type": "array", "items": stringProp()}
}

func confidenceProp() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"label", "rationale"},
		"properties": map[string]interface{}{
			"label":     map[string]interface{}{"type": "string", "enum": []interface{}{"low", "medium", "high"}},
			"rationale": stringProp(),
		},
	}
}

func objectOf(props map[string]interface{}, required ...string) map[string]interface{} {
	out := map[string]interface{}{"type": "object", "properties": props}
	if len(required) > 0 {
		req := make([]interface{}, len(required))
		for i, r := range required {
			req[i] = r
		}
		out["required"] = req
	}
	return out
}

var evidenceItemProp = objectOf(map[string]interface{}{
	"source":  stringProp(),
	"snippet": stringProp(),
	"url":     map[string]interface{}{"type": []interface{}{"string", "null"}},
}, "source", "snippet")

var socialCandidateProp = objectOf(map[string]interface{}{
	"platform":   map[string]interface{}{"type": "string", "enum": []interface{}{"instagram", "x", "medium", "website"}},
	"url":        stringProp(),
	"confidence": map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
	"source":     map[string]interface{}{"type": "string", "enum": []interface{}{"discovered", "user"}},
}, "platform", "url", "confidence", "source")

// analyzeSchema is the contract a normalized dossier document must meet
// before it is decoded into models.AnalyzeResult.
var analyzeSchema = validation.MustCompile(map[string]interface{}{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type":    "object",
	"required": []interface{}{
		"input_email", "person_name_guess", "company_domain", "confidence",
		"one_minute_brief", "questions_to_ask", "email_openers", "red_flags",
		"study_of_person", "recommendations", "evidence",
	},
	"properties": map[string]interface{}{
		"input_email":        stringProp(),
		"person_name_guess":  stringProp(),
		"company_domain":     stringProp(),
		"confidence":         confidenceProp(),
		"company_confidence": confidenceProp(),
		"person_confidence":  confidenceProp(),
		"one_minute_brief":   stringProp(),
		"questions_to_ask":   stringListProp(),
		"email_openers": objectOf(map[string]interface{}{
			"formal":    stringProp(),
			"warm":      stringProp(),
			"technical": stringProp(),
		}),
		"red_flags": stringListProp(),
		"company_profile": objectOf(map[string]interface{}{
			"summary":                  stringProp(),
			"likely_products_services": stringListProp(),
			"hiring_signals":           stringListProp(),
			"recent_public_mentions":   stringListProp(),
		}),
		"study_of_person": objectOf(map[string]interface{}{
			"likely_role_focus":   stringProp(),
			"domain":              stringProp(),
			"communication_style": stringProp(),
		}),
		"recommendations": objectOf(map[string]interface{}{
			"dress":             stringProp(),
			"tone":              stringProp(),
			"dos":               stringListProp(),
			"donts":             stringListProp(),
			"connecting_points": stringListProp(),
			"suggested_agenda":  stringListProp(),
		}),
		"evidence":          map[string]interface{}{"type": "array", "items": evidenceItemProp},
		"social_candidates": map[string]interface{}{"type": "array", "items": socialCandidateProp},
		"social_selected":   map[string]interface{}{"type": "array", "items": socialCandidateProp},
	},
})
