// Package enrichment adds person-level signals from public profile sources.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"meeting-intel/internal/common/logger"
	"meeting-intel/internal/models"
	"meeting-intel/internal/search"
)

const (
	maxScannedRepos = 50
	maxTopLanguages = 5
	maxTopRepos     = 8
)

var githubProfileRe = regexp.MustCompile(`(?i)^https?://(www\.)?github\.com/([A-Za-z0-9-]{1,39})/?$`)

// Doer is the outbound HTTP client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// GitHub reads public user and repository data from the GitHub REST API.
type GitHub struct {
	baseURL string
	token   string
	client  Doer
	logger  logger.Logger
}

func NewGitHub(baseURL, token string, client Doer, log logger.Logger) *GitHub {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &GitHub{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
		logger:  logger.Component(log, "github"),
	}
}

type githubUser struct {
	HTMLURL     string `json:"html_url"`
	Name        string `json:"name"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Bio         string `json:"bio"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
}

type githubRepo struct {
	Name            string `json:"name"`
	HTMLURL         string `json:"html_url"`
	Description     string `json:"description"`
	Language        string `json:"language"`
	StargazersCount int    `json:"stargazers_count"`
	UpdatedAt       string `json:"updated_at"`
	Fork            bool   `json:"fork"`
}

// ExtractGitHubUser returns the username when rawURL is a bare profile URL.
func ExtractGitHubUser(rawURL string) string {
	m := githubProfileRe.FindStringSubmatch(strings.TrimSpace(rawURL))
	if m == nil {
		return ""
	}
	return m[2]
}

// FetchProfile returns nil without error when the user does not exist.
// A failed repository listing yields a profile with no languages or repos.
func (g *GitHub) FetchProfile(ctx context.Context, username string) (*models.GitHubProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}

	var user githubUser
	status, err := g.getJSON(ctx, "/users/"+url.PathEscape(username), &user)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, nil
	}

	var repos []githubRepo
	if status, err := g.getJSON(ctx, "/users/"+url.PathEscape(username)+"/repos?per_page=100&sort=updated", &repos); err != nil || status >= 400 {
		g.logger.Warn("github repo listing failed", map[string]interface{}{
			"username": username,
			"status":   status,
			"error":    fmt.Sprint(err),
		})
		repos = nil
	}

	profile := &models.GitHubProfile{
		Username:    username,
		HTMLURL:     user.HTMLURL,
		Name:        user.Name,
		Company:     user.Company,
		Location:    user.Location,
		Bio:         user.Bio,
		PublicRepos: user.PublicRepos,
		Followers:   user.Followers,
		Following:   user.Following,
	}
	if profile.HTMLURL == "" {
		profile.HTMLURL = "https://github.com/" + username
	}
	profile.TopLanguages, profile.TopRepos = summarizeRepos(repos)
	return profile, nil
}

func summarizeRepos(repos []githubRepo) ([]string, []models.GitHubRepo) {
	if len(repos) > maxScannedRepos {
		repos = repos[:maxScannedRepos]
	}

	counts := make(map[string]int)
	var languages []string
	top := make([]models.GitHubRepo, 0, maxTopRepos)

	for _, r := range repos {
		if r.Fork {
			continue
		}
		if r.Language != "" {
			if counts[r.Language] == 0 {
				languages = append(languages, r.Language)
			}
			counts[r.Language]++
		}
		top = append(top, models.GitHubRepo{
			Name:            r.Name,
			HTMLURL:         r.HTMLURL,
			Description:     r.Description,
			Language:        r.Language,
			StargazersCount: r.StargazersCount,
			UpdatedAt:       r.UpdatedAt,
		})
	}

	sort.SliceStable(languages, func(i, j int) bool {
		return counts[languages[i]] > counts[languages[j]]
	})
	if len(languages) > maxTopLanguages {
		languages = languages[:maxTopLanguages]
	}
	if len(top) > maxTopRepos {
		top = top[:maxTopRepos]
	}
	if languages == nil {
		languages = []string{}
	}
	return languages, top
}

func (g *GitHub) getJSON(ctx context.Context, path string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode github response: %w", err)
	}
	return resp.StatusCode, nil
}

// DirectEvidence renders a user-supplied GitHub profile as evidence.
func DirectEvidence(username string, p *models.GitHubProfile) models.EvidenceItem {
	parts := []string{"GitHub: @" + username}
	if p.Bio != "" {
		parts = append(parts, "Bio: "+p.Bio)
	}
	if p.Company != "" {
		parts = append(parts, "Company: "+p.Company)
	}
	if p.Location != "" {
		parts = append(parts, "Location: "+p.Location)
	}
	if len(p.TopLanguages) > 0 {
		parts = append(parts, "Languages: "+strings.Join(p.TopLanguages, ", "))
	}
	return models.EvidenceItem{
		Source:  models.SourceGitHubDirect,
		Snippet: search.Truncate(strings.Join(parts, " | "), 500),
		URL:     "https://github.com/" + username,
	}
}
