package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const DefaultCSEURL = "https://www.googleapis.com/customsearch/v1"

// CustomSearch queries the Google Custom Search JSON API. It is selected
// with apis.web_search.provider=cse and needs an API key and engine id.
type CustomSearch struct {
	baseURL  string
	apiKey   string
	engineID string
	client   Doer
	logger   Logger
}

func NewCustomSearch(baseURL, apiKey, engineID string, client Doer, log Logger) *CustomSearch {
	if baseURL == "" {
		baseURL = DefaultCSEURL
	}
	return &CustomSearch{
		baseURL:  baseURL,
		apiKey:   apiKey,
		engineID: engineID,
		client:   client,
		logger:   log.With(map[string]interface{}{"provider": "cse"}),
	}
}

func (s *CustomSearch) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	searchURL, err := s.buildSearchURL(query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, ErrSearchTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: search API returned %d", ErrSearchFailed, resp.StatusCode)
	}

	var apiResponse struct {
		Items []struct {
			Link    string `json:"link"`
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Mime    string `json:"mime"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSearchFailed, err)
	}

	results := make([]Result, 0, len(apiResponse.Items))
	for _, item := range apiResponse.Items {
		// Skip non-HTML
		if item.Mime != "" && !strings.Contains(item.Mime, "html") {
			continue
		}
		results = append(results, Result{
			Title:   strings.TrimSpace(item.Title),
			URL:     item.Link,
			Snippet: strings.Join(strings.Fields(item.Snippet), " "),
		})
	}
	results = dedupeByURL(results)
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}

	s.logger.Info("web search completed", map[string]interface{}{
		"query":       query,
		"resultCount": len(results),
	})
	return results, nil
}

func (s *CustomSearch) buildSearchURL(query string, maxResults int) (string, error) {
	baseURL, err := url.Parse(s.baseURL)
	if err != nil {
		return "", err
	}
	// The API caps num at 10.
	num := maxResults
	if num <= 0 || num > 10 {
		num = 10
	}
	params := url.Values{}
	params.Add("key", s.apiKey)
	params.Add("cx", s.engineID)
	params.Add("q", query)
	params.Add("num", fmt.Sprintf("%d", num))
	baseURL.RawQuery = params.Encode()
	return baseURL.String(), nil
}
