// Package scraper fetches public web pages for evidence. Every failure is
// absorbed here: callers see a missing document, never an error.
package scraper

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"meeting-intel/internal/common/logger"
	"meeting-intel/internal/search"
)

const (
	maxPageText = 2000
	maxBodySize = 2 << 20
)

// Document is the extracted content of one HTML page.
type Document struct {
	URL   string
	Title string
	Text  string
	Links []string
}

// Fetcher returns the parsed page at url, or false when the page is
// unreachable, not HTML, or answered with an error status.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Document, bool)
}

// Doer is the outbound HTTP client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPFetcher implements Fetcher over plain HTTP GETs.
type HTTPFetcher struct {
	client Doer
	logger logger.Logger
}

func NewHTTPFetcher(client Doer, log logger.Logger) *HTTPFetcher {
	return &HTTPFetcher{client: client, logger: logger.Component(log, "fetcher")}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*Document, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("page fetch failed", map[string]interface{}{"url": pageURL, "error": err.Error()})
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, false
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return nil, false
	}

	base := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL.String()
	}
	doc, err := parseDocument(io.LimitReader(resp.Body, maxBodySize), base)
	if err != nil {
		f.logger.Debug("page parse failed", map[string]interface{}{"url": pageURL, "error": err.Error()})
		return nil, false
	}
	doc.URL = pageURL
	return doc, true
}

func parseDocument(r io.Reader, pageURL string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(pageURL)

	var (
		title string
		text  strings.Builder
		links []string
		seen  = map[string]bool{}
	)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			case "title":
				if title == "" {
					title = collapse(innerText(n))
				}
			case "a":
				if link := resolveLink(base, attrValue(n, "href")); link != "" && !seen[link] {
					seen[link] = true
					links = append(links, link)
				}
			}
		case html.TextNode:
			text.WriteString(n.Data)
			text.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return &Document{
		URL:   pageURL,
		Title: title,
		Text:  search.Truncate(collapse(text.String()), maxPageText),
		Links: links,
	}, nil
}

// resolveLink returns the absolute same-host http(s) form of href, or "".
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || base == nil ||
		strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	if !strings.EqualFold(abs.Host, base.Host) {
		return ""
	}
	abs.Host = strings.ToLower(abs.Host)
	abs.Fragment = ""
	return abs.String()
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func innerText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
