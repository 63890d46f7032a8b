package scraper

import (
	"context"
	"fmt"
	"strings"

	"meeting-intel/internal/common/logger"
	"meeting-intel/internal/models"
	"meeting-intel/internal/search"
)

const (
	maxLinksPerPage = 10
	maxQueue        = 20
	maxSnippetLen   = 500
)

var seedPaths = []string{"/", "/about", "/about-us", "/company", "/careers", "/blog"}

// Page is a crawled company-site page.
type Page struct {
	URL   string
	Title string
	Text  string
}

// Crawler walks a small, bounded set of pages on a company domain.
type Crawler struct {
	fetcher   Fetcher
	client    Doer
	userAgent string
	scheme    string
	logger    logger.Logger
}

// NewCrawler uses fetcher for pages and client for robots.txt.
func NewCrawler(fetcher Fetcher, client Doer, userAgent string, log logger.Logger) *Crawler {
	return &Crawler{
		fetcher:   fetcher,
		client:    client,
		userAgent: userAgent,
		scheme:    "https",
		logger:    logger.Component(log, "crawler"),
	}
}

// Crawl fetches at most maxPages pages starting from the seed paths and
// following same-host links. It always terminates: the queue is capped
// and every URL is visited once.
func (c *Crawler) Crawl(ctx context.Context, domain string, maxPages int) []Page {
	base := fmt.Sprintf("%s://%s", c.scheme, strings.TrimRight(strings.ToLower(strings.TrimSpace(domain)), "/"))
	robots := FetchRobots(ctx, c.client, base, c.userAgent)

	queue := make([]string, 0, maxQueue)
	for _, p := range seedPaths {
		queue = append(queue, base+p)
	}
	visited := make(map[string]bool)
	var pages []Page

	for len(queue) > 0 && len(pages) < maxPages {
		if ctx.Err() != nil {
			break
		}
		pageURL := queue[0]
		queue = queue[1:]
		if visited[pageURL] {
			continue
		}
		visited[pageURL] = true

		if !robots.Allowed(pageURL) {
			continue
		}

		doc, ok := c.fetcher.Fetch(ctx, pageURL)
		if !ok {
			continue
		}
		if doc.Text != "" {
			pages = append(pages, Page{URL: pageURL, Title: doc.Title, Text: doc.Text})
		}

		links := doc.Links
		if len(links) > maxLinksPerPage {
			links = links[:maxLinksPerPage]
		}
		for _, link := range links {
			if !visited[link] && len(queue) < maxQueue {
				queue = append(queue, link)
			}
		}
	}

	c.logger.Info("company site crawled", map[string]interface{}{
		"domain":  domain,
		"pages":   len(pages),
		"visited": len(visited),
	})
	return pages
}

// PagesToEvidence renders pages as company_site evidence.
func PagesToEvidence(pages []Page) []models.EvidenceItem {
	out := make([]models.EvidenceItem, 0, len(pages))
	for _, p := range pages {
		snippet := p.Text
		if p.Title != "" {
			snippet = p.Title + ": " + snippet
		}
		out = append(out, models.EvidenceItem{
			Source:  models.SourceCompanySite,
			Snippet: search.Truncate(snippet, maxSnippetLen),
			URL:     p.URL,
		})
	}
	return out
}
