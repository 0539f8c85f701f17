package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"aulas/internal/core"
	applog "aulas/internal/log"
	"aulas/internal/metrics"
	"aulas/internal/middleware/ratelimit"
	"aulas/internal/middleware/security"
	"aulas/internal/middleware/trace"
	"aulas/internal/services"

	"github.com/prometheus/client_golang/prometheus"
)

// Dashboard is the read and refresh surface the handlers need.
type Dashboard interface {
	Compute(sel core.FilterSelection) core.DerivedMetrics
	Lessons(sel core.FilterSelection) []core.LessonRecord
	AvailableTypes() []string
	Refresh(ctx context.Context) (services.Snapshot, error)
	Status() services.Status
}

// Options configures NewServer.
type Options struct {
	Addr     string
	Defaults core.FilterSelection
	Logger   *applog.Logger
	// Metrics and Gatherer are optional; /metrics is mounted only when
	// Gatherer is set.
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	RefreshLimit   ratelimit.Config
	TrustedProxies []string
}

type Server struct {
	http.Server
	dashboard   Dashboard
	defaults    core.FilterSelection
	logger      *applog.Logger
	metrics     *metrics.Metrics
	ipResolver  *security.IPResolver
	refreshRate *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(d Dashboard, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	defaults := opts.Defaults
	if defaults.Start == "" || defaults.End == "" {
		defaults = core.DefaultFilter()
	}

	limit := opts.RefreshLimit
	if limit.RequestsPerMinute <= 0 {
		limit = ratelimit.DefaultConfig()
	}

	ipResolver := security.NewIPResolver()
	for _, cidr := range opts.TrustedProxies {
		if err := ipResolver.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		dashboard:   d,
		defaults:    defaults,
		logger:      logger,
		metrics:     opts.Metrics,
		ipResolver:  ipResolver,
		refreshRate: ratelimit.NewLimiter(limit),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/types", s.handleTypes)
	mux.HandleFunc("GET /api/lessons", s.handleLessons)
	mux.Handle("POST /api/refresh", s.refreshRate.Middleware(s.ipResolver.ClientIP, s.handleRateLimited)(http.HandlerFunc(s.handleRefresh)))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(opts.Gatherer))
	}

	tracer := trace.NewMiddleware(s.ipResolver.ClientIP, logger, opts.Metrics)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = headers.Middleware(handler)
	handler = tracer.Middleware(handler)
	handler = applog.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.refreshRate.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
