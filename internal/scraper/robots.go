package scraper

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/temoto/robotstxt"
)

// RobotsPolicy answers whether a URL may be crawled. A nil data set
// allows everything.
type RobotsPolicy struct {
	data      *robotstxt.RobotsData
	userAgent string
}

// AllowAll is the policy used when robots.txt is unavailable.
func AllowAll() *RobotsPolicy {
	return &RobotsPolicy{}
}

func (p *RobotsPolicy) Allowed(rawURL string) bool {
	if p == nil || p.data == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return p.data.TestAgent(path, p.userAgent)
}

// FetchRobots loads {baseURL}/robots.txt once. Transport failures and
// error statuses fall back to AllowAll.
func FetchRobots(ctx context.Context, client Doer, baseURL, userAgent string) *RobotsPolicy {
	robotsURL := strings.TrimRight(baseURL, "/") + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return AllowAll()
	}
	resp, err := client.Do(req)
	if err != nil {
		return AllowAll()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return AllowAll()
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return AllowAll()
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return AllowAll()
	}
	if userAgent == "" {
		userAgent = "*"
	}
	return &RobotsPolicy{data: data, userAgent: userAgent}
}
