package enrichment

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"meeting-intel/internal/common/logger"
	"meeting-intel/internal/models"
	"meeting-intel/internal/search"
)

const (
	// DefaultMaxPerPlatform caps discovered candidates kept per platform.
	DefaultMaxPerPlatform = 3

	discoveryResults = 6

	baseScore   = 0.15
	twoNameHits = 0.45
	oneNameHit  = 0.25
	hintInURL   = 0.18
	hintInText  = 0.25
)

var platformPatterns = []struct {
	platform string
	re       *regexp.Regexp
}{
	{models.PlatformInstagram, regexp.MustCompile(`(?i)^https?://(www\.)?instagram\.com/`)},
	{models.PlatformX, regexp.MustCompile(`(?i)^https?://(www\.)?(x\.com|twitter\.com)/`)},
	{models.PlatformMedium, regexp.MustCompile(`(?i)^https?://(www\.)?medium\.com/`)},
}

var (
	nameSplitRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// SocialDiscovery finds likely social profiles from search results only.
// Platforms themselves are never requested.
type SocialDiscovery struct {
	searcher search.Searcher
	logger   logger.Logger
}

func NewSocialDiscovery(searcher search.Searcher, log logger.Logger) *SocialDiscovery {
	return &SocialDiscovery{searcher: searcher, logger: logger.Component(log, "social")}
}

// PlatformForURL returns the platform a URL belongs to, or "".
func PlatformForURL(rawURL string) string {
	for _, p := range platformPatterns {
		if p.re.MatchString(rawURL) {
			return p.platform
		}
	}
	return ""
}

// NameTokens lowercases and splits a name, keeping tokens of two or more characters.
func NameTokens(name string) []string {
	var out []string
	for _, t := range nameSplitRe.Split(strings.ToLower(name), -1) {
		if len(t) >= 2 {
			out = append(out, t)
		}
	}
	return out
}

// ScoreCandidate estimates in [0,1] how likely a profile belongs to the
// person. Each company hint is scored independently.
func ScoreCandidate(rawURL, title, snippet string, nameTokens, companyHints []string) float64 {
	u := strings.ToLower(rawURL)
	text := strings.ToLower(title + " " + snippet)

	score := baseScore

	if len(nameTokens) > 0 {
		hits := 0
		for _, t := range nameTokens {
			if strings.Contains(u, t) || containsWord(text, t) {
				hits++
			}
		}
		switch {
		case hits >= 2:
			score += twoNameHits
		case hits == 1:
			score += oneNameHit
		}
	}

	for _, h := range companyHints {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if strings.Contains(u, h) {
			score += hintInURL
		} else if containsWord(text, h) {
			score += hintInText
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// containsWord reports whether word occurs in text with an ASCII word
// boundary on both sides, as `\b` does in a regexp.
func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	for from := 0; from <= len(text)-len(word); {
		i := strings.Index(text[from:], word)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(word)
		if isBoundary(text, start) && isBoundary(text, end) {
			return true
		}
		from = start + 1
	}
	return false
}

// isBoundary reports whether position i in s sits between a word and a
// non-word byte, with the ends of s counting as non-word.
func isBoundary(s string, i int) bool {
	before := i > 0 && isWordByte(s[i-1])
	after := i < len(s) && isWordByte(s[i])
	return before != after
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func discoveryQueries(name, domain, hint string) []string {
	var suffix string
	switch {
	case name == "":
		return nil
	case domain != "":
		suffix = name + " " + domain
	case hint != "":
		suffix = name + " " + hint
	default:
		suffix = name
	}
	return []string{
		"site:instagram.com " + suffix,
		"site:x.com " + suffix,
		"site:medium.com " + suffix,
	}
}

// Discover searches each platform for the person and returns scored
// candidates ordered by platform, then descending confidence, then URL.
// Failed queries are skipped.
func (d *SocialDiscovery) Discover(ctx context.Context, nameGuess, domain, companyHint string, maxPerPlatform int) []models.SocialCandidate {
	if maxPerPlatform <= 0 {
		maxPerPlatform = DefaultMaxPerPlatform
	}
	name := strings.TrimSpace(spaceRe.ReplaceAllString(nameGuess, " "))
	tokens := NameTokens(name)

	var hints []string
	if domain != "" {
		hints = append(hints, domain, strings.Split(domain, ".")[0])
	}
	if companyHint != "" {
		hints = append(hints, companyHint)
	}

	var found []models.SocialCandidate
	for _, q := range discoveryQueries(name, domain, companyHint) {
		results, err := d.searcher.Search(ctx, q, discoveryResults)
		if err != nil {
			d.logger.Warn("social discovery query failed", map[string]interface{}{
				"query": q,
				"error": err.Error(),
			})
			continue
		}
		for _, r := range results {
			if r.URL == "" {
				continue
			}
			platform := PlatformForURL(r.URL)
			if platform == "" {
				continue
			}
			found = append(found, models.SocialCandidate{
				Platform:   platform,
				URL:        r.URL,
				Title:      r.Title,
				Snippet:    r.Snippet,
				Confidence: ScoreCandidate(r.URL, r.Title, r.Snippet, tokens, hints),
				Source:     models.CandidateDiscovered,
			})
		}
	}

	return rankCandidates(found, maxPerPlatform)
}

func rankCandidates(found []models.SocialCandidate, maxPerPlatform int) []models.SocialCandidate {
	index := make(map[string]int)
	var unique []models.SocialCandidate
	for _, c := range found {
		if i, ok := index[c.URL]; ok {
			if c.Confidence > unique[i].Confidence {
				unique[i] = c
			}
			continue
		}
		index[c.URL] = len(unique)
		unique = append(unique, c)
	}

	byPlatform := make(map[string][]models.SocialCandidate)
	for _, c := range unique {
		byPlatform[c.Platform] = append(byPlatform[c.Platform], c)
	}

	out := make([]models.SocialCandidate, 0, len(unique))
	for _, items := range byPlatform {
		sort.SliceStable(items, func(i, j int) bool { return items[i].Confidence > items[j].Confidence })
		if len(items) > maxPerPlatform {
			items = items[:maxPerPlatform]
		}
		out = append(out, items...)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Platform != out[j].Platform {
			return out[i].Platform < out[j].Platform
		}
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].URL < out[j].URL
	})
	return out
}

// LookupProfile returns a search title and snippet for a user-supplied URL.
// Any failure yields empty strings.
func (d *SocialDiscovery) LookupProfile(ctx context.Context, profileURL string) (title, snippet string) {
	if profileURL == "" {
		return "", ""
	}
	results, err := d.searcher.Search(ctx, `"` + profileURL + `"`, 1)
	if err != nil {
		d.logger.Warn("profile snippet lookup failed", map[string]interface{}{
			"url":   profileURL,
			"error": err.Error(),
		})
		return "", ""
	}
	if len(results) == 0 {
		return "", ""
	}
	return results[0].Title, results[0].Snippet
}

// SelectedCandidate builds the user-supplied candidate for a profile.
func (d *SocialDiscovery) SelectedCandidate(ctx context.Context, platform, profileURL string) models.SocialCandidate {
	title, snippet := d.LookupProfile(ctx, profileURL)
	return models.SocialCandidate{
		Platform:   platform,
		URL:        profileURL,
		Title:      title,
		Snippet:    snippet,
		Confidence: 1.0,
		Source:     models.CandidateUser,
	}
}

// CandidateEvidence renders a candidate as social_user or social_discovered evidence.
func CandidateEvidence(c models.SocialCandidate) models.EvidenceItem {
	source, fallback := models.SourceSocialDiscovered, "Discovered "+c.Platform+" profile"
	if c.Source == models.CandidateUser {
		source, fallback = models.SourceSocialUser, "User-provided "+c.Platform+" profile"
	}
	snippet := strings.TrimSpace(c.Snippet)
	if snippet == "" {
		snippet = strings.TrimSpace(c.Title)
	}
	if snippet == "" {
		snippet = fallback
	}
	return models.EvidenceItem{
		Source:  source,
		Snippet: search.Truncate(snippet, 500),
		URL:     c.URL,
	}
}
