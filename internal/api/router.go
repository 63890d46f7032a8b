// Package api exposes the analyze and assistant operations over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	apperrors "meeting-intel/internal/common/errors"
	"meeting-intel/internal/common/logger"
	"meeting-intel/internal/common/metrics"
	"meeting-intel/internal/identity"
	"meeting-intel/internal/intel"
	"meeting-intel/internal/models"
)

const readyTimeout = 2 * time.Second

// Analyzer resolves identities and runs the dossier pipeline.
type Analyzer interface {
	ResolveIdentity(ctx context.Context, req models.AnalyzeRequest) (identity.Identity, error)
	Analyze(ctx context.Context, in intel.Input) (*models.AnalyzeResult, error)
}

// Assistant runs the bootstrap and chat operations.
type Assistant interface {
	Bootstrap(ctx context.Context, req models.BootstrapRequest) (*models.BootstrapResponse, error)
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

// Pinger is a backing store checked by /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	ServiceName string
	CORSOrigins []string
}

// Server holds the HTTP handlers.
type Server struct {
	analyzer  Analyzer
	assistant Assistant
	checks    map[string]Pinger
	errs      *apperrors.ErrorHandler
	logger    logger.Logger
}

func NewServer(analyzer Analyzer, assistant Assistant, checks map[string]Pinger, log logger.Logger) *Server {
	log = logger.Component(log, "api")
	return &Server{
		analyzer:  analyzer,
		assistant: assistant,
		checks:    checks,
		errs:      apperrors.NewErrorHandler(log),
		logger:    log,
	}
}

// Router builds the gin engine with CORS, tracing and request metrics.
func (s *Server) Router(opts Options) *gin.Engine {
	if opts.ServiceName == "" {
		opts.ServiceName = "meeting-intel"
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(opts.ServiceName))
	router.Use(cors.New(corsConfig(opts.CORSOrigins)))
	router.Use(requestMetrics())

	router.GET("/health", s.health)
	router.GET("/ready", s.ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/analyze", s.analyze)

		assistant := v1.Group("/assistant")
		{
			assistant.POST("/bootstrap", s.bootstrap)
			assistant.POST("/chat", s.chat)
		}
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", map[string]interface{}{
				"check": name,
				"error": err.Error(),
			})
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	label := "ready"
	if status != http.StatusOK {
		label = "degraded"
	}
	c.JSON(status, gin.H{"status": label, "checks": results})
}
