package identity

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"meeting-intel/internal/common/logger"
	"meeting-intel/internal/search"
)

// Resolution methods and their confidence.
const (
	MethodDirect = "direct"
	MethodSearch = "search"
	MethodGuess  = "guess"
)

var (
	corporateSuffixes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s+inc\.?$`),
		regexp.MustCompile(`(?i)\s+corp\.?$`),
		regexp.MustCompile(`(?i)\s+corporation$`),
		regexp.MustCompile(`(?i)\s+llc\.?$`),
		regexp.MustCompile(`(?i)\s+ltd\.?$`),
		regexp.MustCompile(`(?i)\s+limited$`),
		regexp.MustCompile(`(?i)\s+co\.?$`),
		regexp.MustCompile(`(?i)\s+company$`),
	}
	nonSlug = regexp.MustCompile(`[^a-z0-9]`)
)

// DomainResolution records how a company name became a domain.
type DomainResolution struct {
	Domain     string `json:"domain"`
	Method     string `json:"method"`
	Confidence string `json:"confidence"`
}

// Resolver maps company names to domains using web search with a
// deterministic guess as the last resort.
type Resolver struct {
	searcher search.Searcher
	logger   logger.Logger
}

func NewResolver(searcher search.Searcher, log logger.Logger) *Resolver {
	return &Resolver{searcher: searcher, logger: logger.Component(log, "company_resolver")}
}

// ResolveDomain never fails; a search error falls through to the guess.
func (r *Resolver) ResolveDomain(ctx context.Context, company string) DomainResolution {
	company = strings.TrimSpace(company)

	if IsLikelyDomain(company) {
		return DomainResolution{Domain: strings.ToLower(company), Method: MethodDirect, Confidence: "high"}
	}

	results, err := r.searcher.Search(ctx, fmt.Sprintf("%q official website", company), 3)
	if err != nil {
		r.logger.Warn("company domain search failed", map[string]interface{}{
			"company": company,
			"error":   err.Error(),
		})
	}

	normalized := NormalizeCompanyName(company)
	for _, res := range results {
		domain := DomainFromURL(res.URL)
		if domain == "" {
			continue
		}
		slug := strings.SplitN(domain, ".", 2)[0]
		if strings.Contains(normalized, slug) || strings.Contains(slug, normalized) {
			return DomainResolution{Domain: domain, Method: MethodSearch, Confidence: "medium"}
		}
	}

	return DomainResolution{Domain: GuessDomain(company), Method: MethodGuess, Confidence: "low"}
}

// FromNameAndCompany builds the synthetic first.last@domain identity.
func (r *Resolver) FromNameAndCompany(ctx context.Context, first, last, company string) (Identity, DomainResolution) {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	res := r.ResolveDomain(ctx, company)
	local := strings.ToLower(first) + "." + strings.ToLower(last)
	return Identity{
		Raw:       local + "@" + res.Domain,
		Valid:     true,
		LocalPart: local,
		Domain:    res.Domain,
		FirstName: first,
		LastName:  last,
	}, res
}

// IsLikelyDomain reports whether the input already looks like a domain.
func IsLikelyDomain(company string) bool {
	labels := strings.Split(company, ".")
	return strings.Contains(company, ".") &&
		!strings.Contains(company, " ") &&
		len(labels) >= 2 && len(labels) <= 4 &&
		len(company) < 100
}

// NormalizeCompanyName lowercases and strips one corporate suffix pass.
func NormalizeCompanyName(company string) string {
	normalized := strings.ToLower(strings.TrimSpace(company))
	for _, re := range corporateSuffixes {
		normalized = re.ReplaceAllString(normalized, "")
	}
	return strings.TrimSpace(normalized)
}

// GuessDomain returns {first word}.com for the normalized name.
func GuessDomain(company string) string {
	normalized := NormalizeCompanyName(company)
	first := strings.ToLower(company)
	if fields := strings.Fields(normalized); len(fields) > 0 {
		first = fields[0]
	}
	if slug := nonSlug.ReplaceAllString(first, ""); slug != "" {
		return slug + ".com"
	}
	return strings.ReplaceAll(strings.ToLower(company), " ", "") + ".com"
}

// DomainFromURL returns the host without a leading www.
func DomainFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	host := u.Host
	if host == "" {
		host = u.Path
	}
	host = strings.TrimPrefix(host, "www.")
	return strings.TrimRight(host, "/")
}
