package intel

import (
	"strings"

	"meeting-intel/internal/models"
)

const (
	rationaleKeysMismatch = "Confidence keys did not match schema; defaulted safely."
	rationaleMissing      = "No confidence returned; defaulting to low."
)

// FallbackConfidence derives a label from evidence volume when the model
// gives no usable confidence.
func FallbackConfidence(evidence []models.EvidenceItem) models.Confidence {
	hasSite := false
	for _, e := range evidence {
		if e.Source == models.SourceCompanySite {
			hasSite = true
			break
		}
	}

	switch n := len(evidence); {
	case n >= 6 && hasSite:
		return models.Confidence{Label: models.ConfidenceHigh, Rationale: "Multiple public signals found including company website pages."}
	case n >= 3:
		return models.Confidence{Label: models.ConfidenceMedium, Rationale: "Some public signals found, mostly from search snippets."}
	default:
		return models.Confidence{Label: models.ConfidenceLow, Rationale: "Limited public signals found; recommendations are highly uncertain."}
	}
}

// normalizeConfidence accepts label/confidence/level and
// rationale/reason/explanation, maps a numeric score onto a label and
// coerces anything unrecognized to low.
func normalizeConfidence(v interface{}) models.Confidence {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return models.Confidence{Label: models.ConfidenceLow, Rationale: rationaleMissing}
	}

	label := firstTruthy(obj, "label", "confidence", "level")
	rationale := firstTruthy(obj, "rationale", "reason", "explanation")

	if label == nil {
		if score, ok := firstTruthy(obj, "score", "overall_confidence_score").(float64); ok {
			switch {
			case score >= 0.75:
				label = models.ConfidenceHigh
			case score >= 0.45:
				label = models.ConfidenceMedium
			default:
				label = models.ConfidenceLow
			}
		}
	}

	out := models.Confidence{Label: models.ConfidenceLow, Rationale: rationaleKeysMismatch}
	if label != nil {
		switch l := strings.ToLower(strings.TrimSpace(stringify(label))); l {
		case models.ConfidenceLow, models.ConfidenceMedium, models.ConfidenceHigh:
			out.Label = l
		}
	}
	if rationale != nil {
		out.Rationale = stringify(rationale)
	}
	return out
}

// overallConfidence falls back to evidence volume when the model's low
// label only reflects a defaulted rationale.
func overallConfidence(v interface{}, evidence []models.EvidenceItem) models.Confidence {
	c := normalizeConfidence(v)
	if c.Label == models.ConfidenceLow && strings.Contains(strings.ToLower(c.Rationale), "default") {
		return FallbackConfidence(evidence)
	}
	return c
}

func confidenceDoc(c models.Confidence) map[string]interface{} {
	return map[string]interface{}{"label": c.Label, "rationale": c.Rationale}
}
