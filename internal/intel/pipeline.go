package intel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"meeting-intel/internal/cache"
	apperrors "meeting-intel/internal/common/errors"
	"meeting-intel/internal/common/logger"
	"meeting-intel/internal/common/metrics"
	"meeting-intel/internal/common/observability"
	"meeting-intel/internal/enrichment"
	"meeting-intel/internal/identity"
	"meeting-intel/internal/llm"
	"meeting-intel/internal/models"
	"meeting-intel/internal/scraper"
	"meeting-intel/internal/search"
)

const (
	PurposeAnalyze = "analyze"

	searchMaxResults      = 6
	githubHintMaxResults  = 4
	socialMaxPerPlatform  = enrichment.DefaultMaxPerPlatform
	defaultCrawlMaxPages  = 8
	defaultAdapterTimeout = 12 * time.Second
)

type SiteCrawler interface {
	Crawl(ctx context.Context, domain string, maxPages int) []scraper.Page
}

type LinkedInLookup interface {
	Lookup(ctx context.Context, profileURL string) (*scraper.LinkedInProfile, error)
}

type GitHubProfiles interface {
	FetchProfile(ctx context.Context, username string) (*models.GitHubProfile, error)
}

type SocialFinder interface {
	Discover(ctx context.Context, nameGuess, domain, companyHint string, maxPerPlatform int) []models.SocialCandidate
	SelectedCandidate(ctx context.Context, platform, profileURL string) models.SocialCandidate
}

// SharedCache is an optional second result tier shared across processes.
type SharedCache interface {
	Get(ctx context.Context, key string) (*models.AnalyzeResult, bool, error)
	Set(ctx context.Context, key string, result *models.AnalyzeResult) error
	// Remaining reports how long key has left in the shared tier, or zero
	// when unknown.
	Remaining(ctx context.Context, key string) (time.Duration, error)
}

// Archive receives every accepted dossier, best effort.
type Archive interface {
	Archive(ctx context.Context, key string, result *models.AnalyzeResult) error
}

// Deps are the collaborators of a Pipeline. Searcher and Provider are
// required; any other nil collaborator is skipped.
type Deps struct {
	Searcher search.Searcher
	Provider llm.Provider
	Crawler  SiteCrawler
	LinkedIn LinkedInLookup
	GitHub   GitHubProfiles
	Social   SocialFinder
	Resolver *identity.Resolver
	Cache    *cache.TTL[*models.AnalyzeResult]
	Shared   SharedCache
	Archive  Archive
	Obs      *observability.Observability
}

type Options struct {
	MaxEvidence    int
	CrawlMaxPages  int
	AdapterTimeout time.Duration
	ResultCacheTTL time.Duration
	ResultCacheMax int
}

// Input is one analyze run.
type Input struct {
	Identity       identity.Identity
	ForceRefresh   bool
	LinkedInURL    string
	GitHubUsername string
	Selected       []models.SelectedProfile
	AllowDiscovery bool
}

// Pipeline gathers public evidence for an identity and reconciles the
// model's dossier against it. Results are cached per identity.
type Pipeline struct {
	deps       Deps
	opts       Options
	reconciler *Reconciler
	cache      *cache.TTL[*models.AnalyzeResult]
	logger     logger.Logger
}

func NewPipeline(deps Deps, opts Options, log logger.Logger) *Pipeline {
	if opts.MaxEvidence <= 0 {
		opts.MaxEvidence = MaxPromptEvidence
	}
	if opts.CrawlMaxPages <= 0 {
		opts.CrawlMaxPages = defaultCrawlMaxPages
	}
	if opts.AdapterTimeout <= 0 {
		opts.AdapterTimeout = defaultAdapterTimeout
	}
	if opts.ResultCacheTTL <= 0 {
		opts.ResultCacheTTL = 5 * time.Minute
	}
	if opts.ResultCacheMax <= 0 {
		opts.ResultCacheMax = 256
	}

	c := deps.Cache
	if c == nil {
		c = cache.NewTTL[*models.AnalyzeResult](opts.ResultCacheTTL, opts.ResultCacheMax)
	}

	return &Pipeline{
		deps:       deps,
		opts:       opts,
		reconciler: NewReconciler(deps.Provider, deps.Obs, log),
		cache:      c,
		logger:     logger.Component(log, "analyze_pipeline"),
	}
}

// Reconciler exposes the pipeline's reconciler so the assistant shares
// one provider, breaker and metrics path.
func (p *Pipeline) Reconciler() *Reconciler {
	return p.reconciler
}

// ResolveIdentity derives the identity for an analyze request: the email
// when present, otherwise name plus company resolved to a domain.
func (p *Pipeline) ResolveIdentity(ctx context.Context, req models.AnalyzeRequest) (identity.Identity, error) {
	if strings.TrimSpace(req.Email) != "" {
		id := identity.ParseEmail(req.Email)
		if !id.Valid {
			return identity.Identity{}, apperrors.NewInvalidIdentityError("Invalid corporate email")
		}
		return id, nil
	}
	if !req.HasNameAndCompany() || p.deps.Resolver == nil {
		return identity.Identity{}, apperrors.NewInvalidIdentityError("Must provide: email OR (name + company)")
	}

	id, res := p.deps.Resolver.FromNameAndCompany(ctx, req.Name.First, req.Name.Last, req.Company)
	p.logger.Info("resolved company domain", map[string]interface{}{
		"company":    req.Company,
		"domain":     res.Domain,
		"method":     res.Method,
		"confidence": res.Confidence,
	})
	return id, nil
}

// InputFromRequest maps the optional enrichment fields of req onto id.
func InputFromRequest(id identity.Identity, req models.AnalyzeRequest) Input {
	return Input{
		Identity:       id,
		LinkedInURL:    strings.TrimSpace(req.LinkedInURL),
		GitHubUsername: strings.TrimSpace(req.GitHubUsername),
		Selected:       req.SelectedProfiles(),
		AllowDiscovery: req.DiscoveryAllowed(),
	}
}

// Analyze returns the cached dossier for the identity unless ForceRefresh
// is set; otherwise it gathers evidence, reconciles the model output and
// caches the accepted result. Only accepted results are cached.
func (p *Pipeline) Analyze(ctx context.Context, in Input) (*models.AnalyzeResult, error) {
	key := in.Identity.CacheKey()
	ctx, span := p.deps.Obs.StartSpan(ctx, "pipeline.analyze", attribute.String("identity.domain", in.Identity.Domain))
	defer span.End()

	if !in.ForceRefresh {
		if r, ok := p.lookup(ctx, key); ok {
			metrics.PipelineRuns.WithLabelValues("cached").Inc()
			return r, nil
		}
	}

	result, err := p.run(ctx, in)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		span.RecordError(err)
		return nil, err
	}

	p.cache.Set(key, result)
	if p.deps.Shared != nil {
		if err := p.deps.Shared.Set(ctx, key, result); err != nil {
			p.logger.Warn("shared result cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if p.deps.Archive != nil {
		if err := p.deps.Archive.Archive(ctx, key, result); err != nil {
			p.logger.Warn("dossier archive failed", map[string]interface{}{"error": err.Error()})
		}
	}
	metrics.PipelineRuns.WithLabelValues("success").Inc()
	return result, nil
}

func (p *Pipeline) lookup(ctx context.Context, key string) (*models.AnalyzeResult, bool) {
	if r, ok := p.cache.Get(key); ok {
		metrics.CacheLookups.WithLabelValues("memory", "hit").Inc()
		return r, true
	}
	metrics.CacheLookups.WithLabelValues("memory", "miss").Inc()

	if p.deps.Shared == nil {
		return nil, false
	}
	r, ok, err := p.deps.Shared.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("shared", "error").Inc()
		p.logger.Warn("shared result cache read failed", map[string]interface{}{"error": err.Error()})
		return nil, false
	case !ok:
		metrics.CacheLookups.WithLabelValues("shared", "miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("shared", "hit").Inc()
	// The memory copy must not outlive the shared one.
	remaining, err := p.deps.Shared.Remaining(ctx, key)
	if err != nil {
		p.logger.Warn("shared result cache ttl read failed", map[string]interface{}{"error": err.Error()})
		remaining = 0
	}
	p.cache.SetWithTTL(key, r, remaining)
	return r, true
}

func (p *Pipeline) run(ctx context.Context, in Input) (*models.AnalyzeResult, error) {
	id := in.Identity
	rc := runContext{identity: id}
	var evidence []models.EvidenceItem

	start := time.Now()
	if p.deps.Social != nil {
		for _, sel := range in.Selected {
			actx, cancel := context.WithTimeout(ctx, p.opts.AdapterTimeout)
			c := p.deps.Social.SelectedCandidate(actx, sel.Platform, sel.URL)
			cancel()
			rc.socialSelected = append(rc.socialSelected, c)
			evidence = append(evidence, enrichment.CandidateEvidence(c))
		}
		if in.AllowDiscovery {
			actx, cancel := context.WithTimeout(ctx, p.opts.AdapterTimeout)
			rc.socialCandidates = p.deps.Social.Discover(actx, id.NameGuess(), id.Domain, id.CompanyHint(), socialMaxPerPlatform)
			cancel()
			for _, c := range rc.socialCandidates {
				evidence = append(evidence, enrichment.CandidateEvidence(c))
			}
		}
	}

	if in.LinkedInURL != "" && p.deps.LinkedIn != nil {
		actx, cancel := context.WithTimeout(ctx, p.opts.AdapterTimeout)
		profile, err := p.deps.LinkedIn.Lookup(actx, in.LinkedInURL)
		cancel()
		switch {
		case err != nil:
			p.adapterFailed("linkedin", err)
		case profile != nil:
			evidence = append(evidence, profile.Evidence())
		}
	}

	if in.GitHubUsername != "" && p.deps.GitHub != nil {
		if profile := p.fetchGitHub(ctx, in.GitHubUsername); profile != nil {
			evidence = append(evidence, enrichment.DirectEvidence(in.GitHubUsername, profile))
		}
	}
	p.deps.Obs.RecordStage(ctx, "enrichment", time.Since(start))

	if id.Domain != "" {
		start = time.Now()
		evidence = append(evidence, p.search(ctx, id.Domain+" about company", searchMaxResults, models.SourceDDGCompany)...)
		if p.deps.Crawler != nil {
			actx, cancel := context.WithTimeout(ctx, p.opts.AdapterTimeout)
			pages := p.deps.Crawler.Crawl(actx, id.Domain, p.opts.CrawlMaxPages)
			cancel()
			evidence = append(evidence, scraper.PagesToEvidence(pages)...)
		}
		evidence = append(evidence, p.search(ctx, id.Domain+" funding OR raises OR press release", searchMaxResults, models.SourceDDGNews)...)
		evidence = append(evidence, p.search(ctx, "site:"+id.Domain+" careers OR jobs OR hiring", searchMaxResults, models.SourceDDGHiring)...)
		if name := id.NameGuess(); name != "" {
			evidence = append(evidence, p.search(ctx, name+" "+id.Domain, searchMaxResults, models.SourceDDGPerson)...)
			evidence = append(evidence, p.search(ctx, name+" github", githubHintMaxResults, models.SourceDDGGitHub)...)
		}
		p.deps.Obs.RecordStage(ctx, "evidence", time.Since(start))
	}

	rc.evidence = DedupeAndRank(evidence, p.opts.MaxEvidence)
	p.logger.Info("evidence collected", map[string]interface{}{
		"domain":  id.Domain,
		"items":   len(rc.evidence),
		"sources": SourceCounts(rc.evidence),
	})

	if p.deps.GitHub != nil {
		for _, e := range rc.evidence {
			if e.Source != models.SourceDDGGitHub {
				continue
			}
			if u := enrichment.ExtractGitHubUser(e.URL); u != "" {
				rc.githubProfile = p.fetchGitHub(ctx, u)
				break
			}
		}
	}

	start = time.Now()
	call := Call{System: SystemPrompt, Prompt: BuildPrompt(id, rc.evidence), Purpose: PurposeAnalyze}
	result, err := Reconcile(ctx, p.reconciler, call, func(data map[string]interface{}) (*models.AnalyzeResult, error) {
		return buildResult(data, rc)
	})
	p.deps.Obs.RecordStage(ctx, "reconcile", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", id.CacheKey(), err)
	}
	return result, nil
}

// search runs one query; failures degrade to no evidence.
func (p *Pipeline) search(ctx context.Context, query string, maxResults int, source string) []models.EvidenceItem {
	actx, cancel := context.WithTimeout(ctx, p.opts.AdapterTimeout)
	defer cancel()

	results, err := p.deps.Searcher.Search(actx, query, maxResults)
	if err != nil {
		p.adapterFailed(source, err)
		return nil
	}
	return search.ToEvidence(results, source)
}

func (p *Pipeline) fetchGitHub(ctx context.Context, username string) *models.GitHubProfile {
	actx, cancel := context.WithTimeout(ctx, p.opts.AdapterTimeout)
	defer cancel()

	profile, err := p.deps.GitHub.FetchProfile(actx, username)
	if err != nil {
		p.adapterFailed("github", err)
		return nil
	}
	return profile
}

func (p *Pipeline) adapterFailed(adapter string, err error) {
	metrics.AdapterFailures.WithLabelValues(adapter).Inc()
	p.logger.Warn("evidence adapter failed", map[string]interface{}{
		"adapter": adapter,
		"error":   err.Error(),
	})
}
