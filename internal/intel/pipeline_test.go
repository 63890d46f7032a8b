package intel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "meeting-intel/internal/common/errors"
	"meeting-intel/internal/common/logger"
	"meeting-intel/internal/common/observability"
	"meeting-intel/internal/identity"
	"meeting-intel/internal/llm"
	"meeting-intel/internal/llm/llmtest"
	"meeting-intel/internal/models"
	"meeting-intel/internal/scraper"
	"meeting-intel/internal/search"
)

type stubSearcher struct {
	mu      sync.Mutex
	results map[string][]search.Result
	errs    map[string]error
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	if err := s.errs[query]; err != nil {
		return nil, err
	}
	return s.results[query], nil
}

type stubCrawler struct{ pages []scraper.Page }

func (c *stubCrawler) Crawl(context.Context, string, int) []scraper.Page { return c.pages }

type stubGitHub struct {
	mu        sync.Mutex
	usernames []string
}

func (g *stubGitHub) FetchProfile(_ context.Context, username string) (*models.GitHubProfile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.usernames = append(g.usernames, username)
	return &models.GitHubProfile{
		Username:     username,
		HTMLURL:      "https://github.com/" + username,
		Bio:          "Builds things",
		TopLanguages: []string{"Go"},
	}, nil
}

type memShared struct {
	items     map[string]*models.AnalyzeResult
	remaining time.Duration
	gets      int
	sets      int
}

func (m *memShared) Get(_ context.Context, key string) (*models.AnalyzeResult, bool, error) {
	m.gets++
	r, ok := m.items[key]
	return r, ok, nil
}

func (m *memShared) Remaining(context.Context, string) (time.Duration, error) {
	return m.remaining, nil
}

func (m *memShared) Set(_ context.Context, key string, r *models.AnalyzeResult) error {
	m.sets++
	m.items[key] = r
	return nil
}

type deadlineSocial struct {
	selectedDeadline bool
	discoverDeadline bool
}

func (s *deadlineSocial) Discover(ctx context.Context, _, _, _ string, _ int) []models.SocialCandidate {
	_, s.discoverDeadline = ctx.Deadline()
	return nil
}

func (s *deadlineSocial) SelectedCandidate(ctx context.Context, platform, profileURL string) models.SocialCandidate {
	_, s.selectedDeadline = ctx.Deadline()
	return models.SocialCandidate{Platform: platform, URL: profileURL, Confidence: 1, Source: models.CandidateUser}
}

func newTestPipeline(t *testing.T, provider llm.Provider, mutate func(*Deps)) *Pipeline {
	t.Helper()
	deps := Deps{
		Searcher: &stubSearcher{},
		Provider: provider,
		Obs:      observability.NewNoop(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	return NewPipeline(deps, Options{}, logger.NewTestLogger(t))
}

func jane() Input {
	return Input{Identity: identity.ParseEmail("jane.doe@example.com"), AllowDiscovery: true}
}

func TestAnalyze_MinimalModelOutputGetsDefaults(t *testing.T) {
	provider := llmtest.Texts(`{"confidence":{"label":"High","rationale":"x"}}`)
	p := newTestPipeline(t, provider, nil)

	result, err := p.Analyze(context.Background(), jane())
	require.NoError(t, err)

	assert.Equal(t, 1, provider.Calls())
	assert.Equal(t, models.ConfidenceHigh, result.Confidence.Label)
	assert.Equal(t, "x", result.Confidence.Rationale)
	assert.Equal(t, models.Unknown, result.OneMinuteBrief)
	assert.Len(t, result.QuestionsToAsk, 3)
	assert.Len(t, result.RedFlags, 2)
	assert.Empty(t, result.Evidence)
	assert.NotNil(t, result.Evidence)
	assert.Empty(t, result.Recommendations.Dos)
	assert.Empty(t, result.Recommendations.Donts)
	assert.Empty(t, result.Recommendations.ConnectingPoints)
	assert.Empty(t, result.Recommendations.SuggestedAgenda)
	assert.Equal(t, models.Unknown, result.EmailOpeners.Formal)
	assert.Equal(t, models.Unknown, result.StudyOfPerson.Domain)
	assert.Nil(t, result.CompanyProfile)
	assert.Equal(t, "jane.doe@example.com", result.InputEmail)
	assert.Equal(t, "Jane Doe", result.PersonNameGuess)
	assert.Equal(t, "example.com", result.CompanyDomain)

	req := provider.Requests()[0]
	assert.Equal(t, SystemPrompt, req.System)
	assert.True(t, req.JSON)
	assert.Equal(t, PurposeAnalyze, req.Purpose)
}

func TestAnalyze_ParseRepairSucceeds(t *testing.T) {
	provider := llmtest.Texts(
		"I think this person is great!",
		`{"confidence":{"label":"medium","rationale":"ok"},"one_minute_brief":"Brief."}`,
	)
	p := newTestPipeline(t, provider, nil)

	result, err := p.Analyze(context.Background(), jane())
	require.NoError(t, err)

	assert.Equal(t, 2, provider.Calls())
	assert.Equal(t, "Brief.", result.OneMinuteBrief)
	assert.Equal(t, models.ConfidenceMedium, result.Confidence.Label)

	reqs := provider.Requests()
	assert.Contains(t, reqs[1].Prompt, "The previous response was not valid JSON (error: invalid json")
	assert.Equal(t, reqs[0].System, reqs[1].System)
}

func TestAnalyze_TwoParseFailuresDegradeToDefaults(t *testing.T) {
	provider := llmtest.Texts("nope", "still nope")
	p := newTestPipeline(t, provider, nil)

	result, err := p.Analyze(context.Background(), jane())
	require.NoError(t, err)
	assert.Equal(t, 2, provider.Calls())
	assert.Equal(t, models.ConfidenceLow, result.Confidence.Label)
	assert.Equal(t, models.Unknown, result.OneMinuteBrief)
}

func TestAnalyze_SchemaRepairSucceeds(t *testing.T) {
	provider := llmtest.Texts(
		`{"one_minute_brief":{"text":"nested"}}`,
		`{"one_minute_brief":"flat"}`,
	)
	p := newTestPipeline(t, provider, nil)

	result, err := p.Analyze(context.Background(), jane())
	require.NoError(t, err)
	assert.Equal(t, 2, provider.Calls())
	assert.Equal(t, "flat", result.OneMinuteBrief)
	assert.Contains(t, provider.Requests()[1].Prompt, "Fix ONLY the JSON so it validates. Validation error:")
}

func TestAnalyze_ParseThenSchemaRepair(t *testing.T) {
	provider := llmtest.Texts(
		"garbage",
		`{"questions_to_ask":{"a":"b"},"evidence":[1]}`,
		`{"questions_to_ask":["Why now?"]}`,
	)
	p := newTestPipeline(t, provider, nil)

	result, err := p.Analyze(context.Background(), jane())
	require.NoError(t, err)
	assert.Equal(t, 3, provider.Calls())
	assert.Equal(t, []string{"Why now?"}, result.QuestionsToAsk)
}

func TestAnalyze_ParseFailureAfterSchemaRepairDegrades(t *testing.T) {
	provider := llmtest.Texts(`{"evidence":["not an object"]}`, "garbage")
	p := newTestPipeline(t, provider, nil)

	result, err := p.Analyze(context.Background(), jane())
	require.NoError(t, err)
	assert.Equal(t, 2, provider.Calls())
	assert.Len(t, result.QuestionsToAsk, 3)
}

func TestAnalyze_SchemaFailsTwice(t *testing.T) {
	provider := llmtest.Texts(`{"one_minute_brief":["a","b"],"email_openers":{"warm":{"x":1}}}`)
	p := newTestPipeline(t, provider, nil)

	_, err := p.Analyze(context.Background(), jane())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSchemaReconciliationFailed))
	assert.Equal(t, 2, provider.Calls())
	assert.Equal(t, 0, p.cache.Len())

	_, err = p.Analyze(context.Background(), jane())
	require.Error(t, err)
	assert.Equal(t, 4, provider.Calls())
}

func TestAnalyze_ProviderErrorAborts(t *testing.T) {
	rateLimited := &llm.ProviderError{Kind: llm.KindRateLimited, RetryAfter: 12, Err: errors.New("429 RESOURCE_EXHAUSTED")}
	provider := llmtest.New(llmtest.Reply{Err: rateLimited})
	p := newTestPipeline(t, provider, nil)

	_, err := p.Analyze(context.Background(), jane())
	require.Error(t, err)
	assert.Equal(t, 1, provider.Calls())

	std := apperrors.Normalize(err)
	assert.Equal(t, apperrors.ErrCodeProviderRateLimited, std.Code)
	assert.Equal(t, 12, std.RetryAfter)
}

func TestAnalyze_CachesByIdentity(t *testing.T) {
	provider := llmtest.Texts(`{"one_minute_brief":"cached"}`)
	p := newTestPipeline(t, provider, nil)

	first, err := p.Analyze(context.Background(), jane())
	require.NoError(t, err)

	in := jane()
	in.Identity = identity.ParseEmail("  Jane.Doe@Example.com ")
	second, err := p.Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, provider.Calls())

	in.ForceRefresh = true
	_, err = p.Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.Calls())
}

func TestAnalyze_SharedTier(t *testing.T) {
	shared := &memShared{items: map[string]*models.AnalyzeResult{}}
	provider := llmtest.Texts(`{"one_minute_brief":"from model"}`)

	p := newTestPipeline(t, provider, func(d *Deps) { d.Shared = shared })
	_, err := p.Analyze(context.Background(), jane())
	require.NoError(t, err)
	assert.Equal(t, 1, shared.sets)

	other := newTestPipeline(t, provider, func(d *Deps) { d.Shared = shared })
	result, err := other.Analyze(context.Background(), jane())
	require.NoError(t, err)
	assert.Equal(t, "from model", result.OneMinuteBrief)
	assert.Equal(t, 1, provider.Calls())
	assert.Equal(t, 1, other.cache.Len())
}

func TestAnalyze_SharedHitKeepsRemainingTTL(t *testing.T) {
	shared := &memShared{items: map[string]*models.AnalyzeResult{}}
	provider := llmtest.Texts(`{"one_minute_brief":"from model"}`)

	first := newTestPipeline(t, provider, func(d *Deps) { d.Shared = shared })
	_, err := first.Analyze(context.Background(), jane())
	require.NoError(t, err)

	shared.remaining = time.Millisecond
	other := newTestPipeline(t, provider, func(d *Deps) { d.Shared = shared })
	_, err = other.Analyze(context.Background(), jane())
	require.NoError(t, err)
	assert.Equal(t, 2, shared.gets, "second pipeline read the shared tier")

	time.Sleep(5 * time.Millisecond)
	_, err = other.Analyze(context.Background(), jane())
	require.NoError(t, err)
	assert.Equal(t, 3, shared.gets, "memory copy expired with the shared entry")
	assert.Equal(t, 1, provider.Calls())
}

func TestAnalyze_GathersEvidenceInOrder(t *testing.T) {
	searcher := &stubSearcher{
		results: map[string][]search.Result{
			"example.com about company": {{Title: "Example", URL: "https://about.example", Snippet: "Example makes widgets"}},
			"example.com funding OR raises OR press release": {{Title: "Funding", URL: "https://news.example", Snippet: "Example raises $5M"}},
			"Jane Doe github": {{Title: "janedoe", URL: "https://github.com/janedoe", Snippet: "janedoe has 12 repositories"}},
		},
		errs: map[string]error{
			"site:example.com careers OR jobs OR hiring": search.ErrSearchTimeout,
		},
	}
	crawler := &stubCrawler{pages: []scraper.Page{{URL: "https://example.com/", Title: "Example", Text: "We build widgets"}}}
	gh := &stubGitHub{}
	provider := llmtest.Texts(`{}`)

	p := newTestPipeline(t, provider, func(d *Deps) {
		d.Searcher = searcher
		d.Crawler = crawler
		d.GitHub = gh
	})

	result, err := p.Analyze(context.Background(), jane())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"example.com about company",
		"example.com funding OR raises OR press release",
		"site:example.com careers OR jobs OR hiring",
		"Jane Doe example.com",
		"Jane Doe github",
	}, searcher.queries)

	require.Len(t, result.Evidence, 4)
	assert.Equal(t, []string{
		models.SourceCompanySite,
		models.SourceDDGNews,
		models.SourceDDGCompany,
		models.SourceDDGGitHub,
	}, sources(result.Evidence))

	require.NotNil(t, result.GitHubProfile)
	assert.Equal(t, "janedoe", result.GitHubProfile.Username)
	assert.Equal(t, []string{"janedoe"}, gh.usernames)

	// four items and a company page: the defaulted confidence uses the evidence fallback
	assert.Equal(t, models.ConfidenceMedium, result.Confidence.Label)
	assert.Contains(t, provider.Requests()[0].Prompt, "- (company_site) Example: We build widgets [https://example.com/]")
}

func TestAnalyze_SocialLookupsAreBounded(t *testing.T) {
	social := &deadlineSocial{}
	p := newTestPipeline(t, llmtest.Texts(`{}`), func(d *Deps) { d.Social = social })

	in := jane()
	in.Selected = []models.SelectedProfile{{Platform: "x", URL: "https://x.com/janedoe"}}
	_, err := p.Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, social.selectedDeadline)
	assert.True(t, social.discoverDeadline)
}

func TestAnalyze_DirectGitHubEvidence(t *testing.T) {
	gh := &stubGitHub{}
	p := newTestPipeline(t, llmtest.Texts(`{}`), func(d *Deps) { d.GitHub = gh })

	in := jane()
	in.GitHubUsername = "jdoe"
	result, err := p.Analyze(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, result.Evidence, 1)
	assert.Equal(t, models.SourceGitHubDirect, result.Evidence[0].Source)
	assert.Equal(t, "GitHub: @jdoe | Bio: Builds things | Languages: Go", result.Evidence[0].Snippet)
	assert.Equal(t, "https://github.com/jdoe", result.Evidence[0].URL)
}

func TestAnalyze_ModelEvidenceWins(t *testing.T) {
	provider := llmtest.Texts(`{"evidence":[{"source":"model","snippet":"s","url":null}]}`)
	p := newTestPipeline(t, provider, nil)

	result, err := p.Analyze(context.Background(), jane())
	require.NoError(t, err)
	require.Len(t, result.Evidence, 1)
	assert.Equal(t, "model", result.Evidence[0].Source)
}

func TestResolveIdentity(t *testing.T) {
	p := newTestPipeline(t, llmtest.Texts(`{}`), func(d *Deps) {
		d.Resolver = identity.NewResolver(&stubSearcher{}, logger.NewNoOpLogger())
	})
	ctx := context.Background()

	id, err := p.ResolveIdentity(ctx, models.AnalyzeRequest{Email: "jane.doe@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "example.com", id.Domain)

	_, err = p.ResolveIdentity(ctx, models.AnalyzeRequest{Email: "jane@gmail.com"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidIdentity))

	_, err = p.ResolveIdentity(ctx, models.AnalyzeRequest{})
	require.Error(t, err)
	assert.Equal(t, "Must provide: email OR (name + company)", apperrors.Normalize(err).Message)

	id, err = p.ResolveIdentity(ctx, models.AnalyzeRequest{
		Name:    &models.PersonName{First: "Jane", Last: "Doe"},
		Company: "acme.io",
	})
	require.NoError(t, err)
	assert.Equal(t, "acme.io", id.Domain)
	assert.Equal(t, "Jane Doe", id.NameGuess())
}
