// cmd/meeting-intel/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meeting-intel/internal/api"
	"meeting-intel/internal/assistant"
	"meeting-intel/internal/common/config"
	"meeting-intel/internal/common/database"
	httpclient "meeting-intel/internal/common/http"
	"meeting-intel/internal/common/logger"
	"meeting-intel/internal/common/observability"
	"meeting-intel/internal/enrichment"
	"meeting-intel/internal/identity"
	"meeting-intel/internal/intel"
	"meeting-intel/internal/llm"
	"meeting-intel/internal/scraper"
	"meeting-intel/internal/search"
	"meeting-intel/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting meeting-intel...",
		zap.String("environment", cfg.App.Environment),
		zap.String("llmProvider", cfg.APIs.LLM.Provider),
		zap.String("webSearchProvider", cfg.APIs.WebSearch.Provider),
	)

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx := context.Background()
	checks := map[string]api.Pinger{}

	// --- Outbound clients ---
	userAgent := cfg.Pipeline.UserAgent
	searchClient := httpclient.NewClient(
		config.GetDuration(cfg.APIs.WebSearch.Timeout),
		httpclient.WithUserAgent(userAgent),
		httpclient.WithRateLimit(cfg.APIs.WebSearch.RequestsPerSecond, cfg.APIs.WebSearch.Burst),
	)
	crawlClient := httpclient.NewClient(config.GetDuration(cfg.Pipeline.AdapterTimeout), httpclient.WithUserAgent(userAgent))
	githubClient := httpclient.NewClient(config.GetDuration(cfg.APIs.GitHub.Timeout), httpclient.WithUserAgent(userAgent))
	llmClient := httpclient.NewClient(config.GetDuration(cfg.APIs.LLM.Timeout))

	// --- Evidence collaborators ---
	searchLog := &searchLoggerAdapter{log}
	var searcher search.Searcher
	switch cfg.APIs.WebSearch.Provider {
	case "cse":
		searcher = search.NewCustomSearch(cfg.APIs.WebSearch.BaseURL, cfg.APIs.WebSearch.APIKey, cfg.APIs.WebSearch.EngineID, searchClient, searchLog)
	default:
		searcher = search.NewDuckDuckGo(cfg.APIs.WebSearch.BaseURL, searchClient, searchLog)
	}

	fetcher := scraper.NewHTTPFetcher(crawlClient, log)
	crawler := scraper.NewCrawler(fetcher, crawlClient, userAgent, log)

	provider, err := llm.New(ctx, cfg.APIs.LLM, llmClient, &llmLoggerAdapter{log})
	if err != nil {
		zapLog.Fatal("llm provider init failed", zap.Error(err))
	}

	deps := intel.Deps{
		Searcher: searcher,
		Provider: provider,
		Crawler:  crawler,
		LinkedIn: scraper.NewLinkedIn(searcher, log),
		GitHub:   enrichment.NewGitHub(cfg.APIs.GitHub.BaseURL, cfg.APIs.GitHub.Token, githubClient, log),
		Social:   enrichment.NewSocialDiscovery(searcher, log),
		Resolver: identity.NewResolver(searcher, log),
		Obs:      obs,
	}

	// --- Optional shared result tier (Redis) with retry ---
	var redisClient *database.RedisClient
	if cfg.Pipeline.SharedCache && cfg.Database.Redis.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			return err
		}, 5, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, shared result tier disabled", zap.Error(err))
			redisClient = nil
		} else {
			deps.Shared = store.NewRedisResultCache(redisClient.GetClient(), config.GetDuration(cfg.Pipeline.ResultCacheTTL))
			checks["redis"] = redisClient
			zapLog.Info("Redis result tier enabled")
		}
	}

	// --- Optional dossier archive (Elasticsearch) with retry ---
	if cfg.Pipeline.Archive && cfg.Database.Elasticsearch.Enabled {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			return err
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, dossier archive disabled", zap.Error(err))
		} else {
			deps.Archive = store.NewDossierArchive(es.Client, cfg.Database.Elasticsearch.Index, log)
			checks["elasticsearch"] = es
			zapLog.Info("Elasticsearch dossier archive enabled", zap.String("index", cfg.Database.Elasticsearch.Index))
		}
	}

	pipeline := intel.NewPipeline(deps, intel.Options{
		MaxEvidence:    cfg.Pipeline.MaxEvidence,
		CrawlMaxPages:  cfg.Pipeline.CrawlMaxPages,
		AdapterTimeout: config.GetDuration(cfg.Pipeline.AdapterTimeout),
		ResultCacheTTL: config.GetDuration(cfg.Pipeline.ResultCacheTTL),
		ResultCacheMax: cfg.Pipeline.ResultCacheMaxItems,
	}, log)

	// --- Session persistence ---
	var (
		repo    assistant.Repository
		closers []func() error
	)
	if cfg.Assistant.Persist {
		sessions, db, closeFn := openSessionRepository(ctx, cfg, zapLog, log)
		repo = sessions
		checks["sessions"] = db
		closers = append(closers, closeFn)
	}

	sessionStore := assistant.NewSessionStore(
		config.GetDuration(cfg.Assistant.SessionTTL),
		cfg.Assistant.SessionMaxItems,
		repo,
		log,
	)
	service := assistant.NewService(pipeline, pipeline.Reconciler(), sessionStore, log)

	// --- HTTP server ---
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewServer(pipeline, service, checks, log).Router(api.Options{
		ServiceName: cfg.App.Name,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			zapLog.Error("Error closing Redis client", zap.Error(err))
		}
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			zapLog.Error("Error closing session database", zap.Error(err))
		}
	}

	zapLog.Info("meeting-intel stopped gracefully")
}

// openSessionRepository connects the configured session backend and
// creates its table. Failure is fatal: persistence was asked for.
func openSessionRepository(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, log logger.Logger) (*store.SessionRepository, api.Pinger, func() error) {
	switch cfg.Assistant.Backend {
	case "postgres":
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}

		repo := store.NewPostgresSessions(pg.GetDB(), log)
		if err := repo.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("postgres session schema failed", zap.Error(err))
		}
		zapLog.Info("PostgreSQL session store ready")
		return repo, pg, pg.Close

	default:
		lite, err := database.NewSQLite(cfg.Database.SQLite)
		if err == nil {
			err = lite.Ping(ctx)
		}
		if err != nil {
			zapLog.Fatal("sqlite open failed", zap.Error(err), zap.String("path", cfg.Database.SQLite.Path))
		}

		repo := store.NewSQLiteSessions(lite.GetDB(), log)
		if err := repo.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("sqlite session schema failed", zap.Error(err))
		}
		zapLog.Info("SQLite session store ready", zap.String("path", cfg.Database.SQLite.Path))
		return repo, lite, lite.Close
	}
}

// Logger adapters for packages that declare their own Logger interfaces
type searchLoggerAdapter struct {
	logger.Logger
}

func (a *searchLoggerAdapter) With(fields map[string]interface{}) search.Logger {
	return &searchLoggerAdapter{a.Logger.With(fields)}
}

type llmLoggerAdapter struct {
	logger.Logger
}

func (a *llmLoggerAdapter) With(fields map[string]interface{}) llm.Logger {
	return &llmLoggerAdapter{a.Logger.With(fields)}
}
