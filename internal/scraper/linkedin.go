package scraper

import (
	"context"
	"regexp"
	"strings"

	"meeting-intel/internal/common/logger"
	"meeting-intel/internal/models"
	"meeting-intel/internal/search"
)

var linkedInSlugRe = regexp.MustCompile(`(?i)linkedin\.com/in/([a-zA-Z0-9-]+)`)

var headlineSeparators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(.+?)\s+at\s+(.+)$`),
	regexp.MustCompile(`^(.+?)\s+@\s+(.+)$`),
	regexp.MustCompile(`^(.+?)\s+\|\s+(.+)$`),
}

// LinkedInProfile is what a public search snippet reveals about a profile.
type LinkedInProfile struct {
	Slug      string
	Headline  string
	Role      string
	Company   string
	Snippet   string
	SourceURL string
}

// LinkedIn reads public search snippets for a profile URL. It never
// requests linkedin.com directly.
type LinkedIn struct {
	searcher search.Searcher
	logger   logger.Logger
}

func NewLinkedIn(searcher search.Searcher, log logger.Logger) *LinkedIn {
	return &LinkedIn{searcher: searcher, logger: logger.Component(log, "linkedin")}
}

// ExtractLinkedInSlug returns the /in/{slug} part of a profile URL.
func ExtractLinkedInSlug(profileURL string) string {
	m := linkedInSlugRe.FindStringSubmatch(profileURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// ParseHeadline splits "Role at Company", "Role @ Company" or
// "Role | Company". Without a separator the whole headline is the role.
func ParseHeadline(headline string) (role, company string) {
	for _, re := range headlineSeparators {
		if m := re.FindStringSubmatch(headline); m != nil {
			return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		}
	}
	return strings.TrimSpace(headline), ""
}

// Lookup returns nil when the URL has no slug or search finds nothing.
func (l *LinkedIn) Lookup(ctx context.Context, profileURL string) (*LinkedInProfile, error) {
	slug := ExtractLinkedInSlug(profileURL)
	if slug == "" {
		return nil, nil
	}

	results, err := l.searcher.Search(ctx, "site:linkedin.com/in/"+slug, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	r := results[0]

	profile := &LinkedInProfile{Slug: slug, Snippet: r.Snippet, SourceURL: r.URL}
	if r.URL == "" {
		profile.SourceURL = profileURL
	}
	if _, headline, found := strings.Cut(r.Title, " - "); found {
		profile.Headline = strings.TrimSpace(headline)
		profile.Role, profile.Company = ParseHeadline(profile.Headline)
	}
	return profile, nil
}

// Evidence renders the profile as linkedin_snippet evidence.
func (p *LinkedInProfile) Evidence() models.EvidenceItem {
	var parts []string
	if p.Headline != "" {
		parts = append(parts, "LinkedIn: "+p.Headline)
	}
	if p.Role != "" && p.Company != "" {
		parts = append(parts, "Role: "+p.Role+" at "+p.Company)
	} else if p.Snippet != "" {
		parts = append(parts, p.Snippet)
	}

	snippet := "LinkedIn profile found"
	if len(parts) > 0 {
		snippet = strings.Join(parts, " | ")
	}
	return models.EvidenceItem{
		Source:  models.SourceLinkedInSnippet,
		Snippet: search.Truncate(snippet, maxSnippetLen),
		URL:     p.SourceURL,
	}
}
