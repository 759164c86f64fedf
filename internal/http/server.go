// Package http serves the transaction dashboard JSON API.
package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"txdash/internal/core"
	"txdash/internal/log"
	"txdash/internal/middleware/ratelimit"
	"txdash/internal/middleware/security"
	"txdash/internal/ports"
	"txdash/internal/services"
)

// Reports is the read API behind the dashboard endpoints.
type Reports interface {
	List(ctx context.Context, q core.ListQuery) (core.TransactionPage, error)
	Statistics(ctx context.Context, month core.Month) (core.Statistics, error)
	BarChart(ctx context.Context, month core.Month) ([]core.BucketCount, error)
	PieChart(ctx context.Context, month core.Month) ([]core.CategoryCount, error)
	Combined(ctx context.Context, month core.Month) (core.CombinedReport, error)
}

// Initializer reloads the dataset.
type Initializer interface {
	Initialize(ctx context.Context) (services.InitializeResult, error)
}

type Config struct {
	Addr           string
	RequestTimeout time.Duration
	AllowedOrigins []string
	// InitRateLimit is the number of /api/initialize calls allowed per
	// client per minute.
	InitRateLimit int
	Logger        *log.Logger
}

type Server struct {
	http.Server
	reports Reports
	seeder  Initializer
	store   ports.Pinger
	limiter *ratelimit.Limiter
	logger  *log.Logger

	shutdownOnce sync.Once
}

func NewServer(cfg Config, reports Reports, seeder Initializer, store ports.Pinger) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.DefaultConfig())
	}
	logger := cfg.Logger

	s := &Server{
		reports: reports,
		seeder:  seeder,
		store:   store,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.InitRateLimit}),
		logger:  logger.WithComponent(log.ComponentHTTP),
	}
	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Total-Count", middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "Not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(requestTimeout(cfg.RequestTimeout))

		r.With(s.limiter.Middleware(clientKey, s.onRateLimit)).Get("/initialize", s.handleInitialize)
		r.Get("/transactions", s.handleTransactions)
		r.Get("/statistics", monthReport(s, log.OpStatistics, "Failed to fetch statistics", s.reports.Statistics))
		r.Get("/bar-chart", monthReport(s, log.OpBarChart, "Failed to fetch bar chart data", s.reports.BarChart))
		r.Get("/pie-chart", monthReport(s, log.OpPieChart, "Failed to fetch pie chart data", s.reports.PieChart))
		r.Get("/combined", monthReport(s, log.OpCombined, "Failed to fetch combined data", s.reports.Combined))
	})

	return r
}

// requestTimeout bounds the request context. Handlers turn the deadline
// into a 504 through fail, so nothing is written here.
func requestTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientKey identifies a caller for rate limiting. RealIP has already
// replaced RemoteAddr when a proxy header was present.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Initialize rate limit exceeded",
		log.FieldClientIP, clientKey(r))
	TooManyRequestsError("Too many initialization requests, try again later").Write(w)
}

// Shutdown gracefully shuts down the server and the rate limiter
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
