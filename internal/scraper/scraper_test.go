package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-intel/internal/common/logger"
	"meeting-intel/internal/models"
	"meeting-intel/internal/search"
)

type siteRecorder struct {
	mu   sync.Mutex
	hits []string
}

func (r *siteRecorder) record(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits = append(r.hits, path)
}

func (r *siteRecorder) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.hits...)
}

func newTestSite(t *testing.T, rec *siteRecorder) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	html := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rec.record(r.URL.Path)
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			rec.record(r.URL.Path)
			http.NotFound(w, r)
			return
		}
		html(`<html><head><title>Acme</title><style>.x{}</style></head>
<body><script>var a = 1;</script><!-- hidden -->
<h1>Acme   builds
 rockets</h1>
<a href="/team">Team</a>
<a href="/private/x">Private</a>
<a href="#top">Top</a>
<a href="mailto:hi@acme.com">Mail</a>
<a href="javascript:void(0)">JS</a>
<a href="https://other.example.com/page">Elsewhere</a>
</body></html>`)(w, r)
	})
	mux.HandleFunc("/about", html(`<html><head><title>About</title></head><body><p>We are Acme.</p></body></html>`))
	mux.HandleFunc("/company", func(w http.ResponseWriter, r *http.Request) {
		rec.record(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"acme"}`))
	})
	mux.HandleFunc("/careers", html(`<html><body></body></html>`))
	mux.HandleFunc("/team", html(`<html><head><title>Team</title></head><body>Our team.</body></html>`))
	mux.HandleFunc("/private/x", html(`<html><body>secret</body></html>`))

	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawler_Crawl(t *testing.T) {
	rec := &siteRecorder{}
	srv := newTestSite(t, rec)
	log := logger.NewTestLogger(t)

	client := srv.Client()
	crawler := NewCrawler(NewHTTPFetcher(client, log), client, "MeetingIntelBot", log)
	domain := strings.TrimPrefix(srv.URL, "https://")

	pages := crawler.Crawl(context.Background(), domain, 8)

	require.Len(t, pages, 3)
	assert.Equal(t, "Acme", pages[0].Title)
	assert.Equal(t, "Acme Acme builds rockets Team Private Top Mail JS Elsewhere", pages[0].Text)
	assert.NotContains(t, pages[0].Text, "var a")
	assert.NotContains(t, pages[0].Text, "hidden")
	assert.Equal(t, "About", pages[1].Title)
	assert.Equal(t, "Team", pages[2].Title)

	assert.NotContains(t, rec.paths(), "/private/x")
}

func TestCrawler_StopsAtMaxPages(t *testing.T) {
	rec := &siteRecorder{}
	srv := newTestSite(t, rec)
	log := logger.NewTestLogger(t)

	client := srv.Client()
	crawler := NewCrawler(NewHTTPFetcher(client, log), client, "", log)

	pages := crawler.Crawl(context.Background(), strings.TrimPrefix(srv.URL, "https://"), 1)
	require.Len(t, pages, 1)
	assert.Equal(t, []string{"/"}, rec.paths())
}

type staticFetcher struct {
	docs    map[string]*Document
	fetched []string
}

func (f *staticFetcher) Fetch(_ context.Context, url string) (*Document, bool) {
	f.fetched = append(f.fetched, url)
	doc, ok := f.docs[url]
	return doc, ok
}

type failingDoer struct{}

func (failingDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestCrawler_BoundedQueue(t *testing.T) {
	links := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		links = append(links, "https://acme.com/p"+strings.Repeat("x", i+1))
	}
	fetcher := &staticFetcher{docs: map[string]*Document{
		"https://acme.com/": {Title: "Home", Text: "home", Links: links},
	}}
	crawler := NewCrawler(fetcher, failingDoer{}, "", logger.NewNoOpLogger())

	pages := crawler.Crawl(context.Background(), "acme.com", 50)

	require.Len(t, pages, 1)
	// six seeds plus at most ten links from the home page
	assert.Len(t, fetcher.fetched, 16)
}

func TestParseDocument_ResolvesLinks(t *testing.T) {
	doc, err := parseDocument(strings.NewReader(`<html><body>
<a href="about">About</a>
<a href="/about">Dup</a>
<a href="HTTPS://ACME.COM/jobs#open">Jobs</a>
<a href="ftp://acme.com/file">FTP</a>
</body></html>`), "https://acme.com/")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://acme.com/about", "https://acme.com/jobs"}, doc.Links)
}

func TestHTTPFetcher_RejectsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gone":
			w.WriteHeader(http.StatusGone)
		default:
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("plain"))
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.Client(), logger.NewTestLogger(t))
	_, ok := f.Fetch(context.Background(), srv.URL+"/gone")
	assert.False(t, ok)
	_, ok = f.Fetch(context.Background(), srv.URL+"/plain")
	assert.False(t, ok)
	_, ok = NewHTTPFetcher(failingDoer{}, logger.NewNoOpLogger()).Fetch(context.Background(), srv.URL)
	assert.False(t, ok)
}

func TestFetchRobots(t *testing.T) {
	t.Run("error status allows everything", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		policy := FetchRobots(context.Background(), srv.Client(), srv.URL, "bot")
		assert.True(t, policy.Allowed(srv.URL+"/anything"))
	})

	t.Run("transport failure allows everything", func(t *testing.T) {
		policy := FetchRobots(context.Background(), failingDoer{}, "https://acme.com", "bot")
		assert.True(t, policy.Allowed("https://acme.com/private"))
	})

	t.Run("disallow rules apply", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /admin\n"))
		}))
		defer srv.Close()

		policy := FetchRobots(context.Background(), srv.Client(), srv.URL, "bot")
		assert.False(t, policy.Allowed(srv.URL+"/admin/panel"))
		assert.True(t, policy.Allowed(srv.URL+"/about"))
	})
}

func TestPagesToEvidence(t *testing.T) {
	items := PagesToEvidence([]Page{
		{URL: "https://acme.com/", Title: "Acme", Text: "Rockets"},
		{URL: "https://acme.com/x", Text: strings.Repeat("a", 600)},
	})
	require.Len(t, items, 2)
	assert.Equal(t, models.EvidenceItem{Source: models.SourceCompanySite, Snippet: "Acme: Rockets", URL: "https://acme.com/"}, items[0])
	assert.Len(t, items[1].Snippet, 500)
}

type stubSearcher struct {
	results []search.Result
	err     error
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

func TestParseHeadline(t *testing.T) {
	tests := []struct {
		headline, role, company string
	}{
		{"Staff Engineer at Acme", "Staff Engineer", "Acme"},
		{"Founder @ Rocket Co", "Founder", "Rocket Co"},
		{"Designer | Studio", "Designer", "Studio"},
		{"Independent consultant", "Independent consultant", ""},
	}
	for _, tt := range tests {
		t.Run(tt.headline, func(t *testing.T) {
			role, company := ParseHeadline(tt.headline)
			assert.Equal(t, tt.role, role)
			assert.Equal(t, tt.company, company)
		})
	}
}

func TestLinkedIn_Lookup(t *testing.T) {
	searcher := &stubSearcher{results: []search.Result{{
		Title:   "Jane Doe - Head of Sales at Acme | LinkedIn",
		URL:     "https://www.linkedin.com/in/jane-doe",
		Snippet: "Jane leads sales.",
	}}}
	li := NewLinkedIn(searcher, logger.NewTestLogger(t))

	profile, err := li.Lookup(context.Background(), "https://www.linkedin.com/in/jane-doe/")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, []string{"site:linkedin.com/in/jane-doe"}, searcher.queries)
	assert.Equal(t, "Head of Sales", profile.Role)
	assert.Equal(t, "Acme | LinkedIn", profile.Company)

	ev := profile.Evidence()
	assert.Equal(t, models.SourceLinkedInSnippet, ev.Source)
	assert.Equal(t, "LinkedIn: Head of Sales at Acme | LinkedIn | Role: Head of Sales at Acme | LinkedIn", ev.Snippet)
}

func TestLinkedIn_LookupWithoutSlug(t *testing.T) {
	searcher := &stubSearcher{}
	profile, err := NewLinkedIn(searcher, logger.NewNoOpLogger()).Lookup(context.Background(), "https://example.com/jane")
	require.NoError(t, err)
	assert.Nil(t, profile)
	assert.Empty(t, searcher.queries)
}

func TestLinkedInProfile_EvidenceFallbacks(t *testing.T) {
	assert.Equal(t, "Some snippet", (&LinkedInProfile{Snippet: "Some snippet"}).Evidence().Snippet)
	assert.Equal(t, "LinkedIn profile found", (&LinkedInProfile{}).Evidence().Snippet)
}
