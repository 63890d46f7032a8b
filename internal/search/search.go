// Package search provides the web search collaborator used by every
// search-backed evidence adapter.
package search

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"meeting-intel/internal/models"
)

var (
	ErrSearchTimeout = errors.New("WEB_SEARCH_TIMEOUT")
	ErrSearchFailed  = errors.New("WEB_SEARCH_FAILED")
)

const maxSnippetLen = 500

// Result is one ranked search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher returns up to maxResults ranked hits for query.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Doer is the outbound HTTP client the providers need.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// ToEvidence converts hits into evidence tagged with source. The snippet
// falls back to the title; hits with neither are dropped.
func ToEvidence(results []Result, source string) []models.EvidenceItem {
	out := make([]models.EvidenceItem, 0, len(results))
	for _, r := range results {
		snippet := strings.TrimSpace(r.Snippet)
		if snippet == "" {
			snippet = strings.TrimSpace(r.Title)
		}
		if snippet == "" {
			continue
		}
		out = append(out, models.EvidenceItem{
			Source:  source,
			Snippet: Truncate(snippet, maxSnippetLen),
			URL:     r.URL,
		})
	}
	return out
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func dedupeByURL(results []Result) []Result {
	seen := make(map[string]bool, len(results))
	out := results[:0]
	for _, r := range results {
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
	}
	return out
}

func isTimeout(ctx context.Context, err error) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		strings.Contains(err.Error(), "timeout") ||
		strings.Contains(err.Error(), "deadline") ||
		strings.Contains(err.Error(), "Client.Timeout")
}
