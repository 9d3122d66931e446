package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/libervia/gateway/internal/auth"
	"github.com/libervia/gateway/internal/backup"
	"github.com/libervia/gateway/internal/ratelimit"
	"github.com/libervia/gateway/internal/runtime"
	"github.com/libervia/gateway/internal/telemetry"
	"github.com/libervia/gateway/internal/tenant"
)

// Server holds everything NewServer wires together and exposes the
// resulting chi.Mux as a plain http.Handler.
//
// Backup/restore/DR services are built per-request rather than held as
// fields: backup.NewCoreProvider binds to one tenant's live core.Instance,
// so only the process-wide Repository (already tenant-parameterized via
// its method arguments) and the optional callbacks are long-lived.
type Server struct {
	Router *chi.Mux

	logger         *slog.Logger
	registry       *tenant.Registry
	runtime        *runtime.Runtime
	metrics        *telemetry.Registry
	auth           *auth.Authenticator
	pipeline       *Pipeline
	backupRepo     *backup.Repository
	backupCallback backup.Callback
	drProgress     backup.ProgressCallback
	dr             *drProcedures
	startedAt      time.Time
}

// Deps bundles the dependencies NewServer needs. BackupCallback/DRProgress
// may be nil, in which case lifecycle events are simply dropped.
type Deps struct {
	Logger         *slog.Logger
	Registry       *tenant.Registry
	Runtime        *runtime.Runtime
	Metrics        *telemetry.Registry
	Limiter        ratelimit.RateLimiter
	Authenticator  *auth.Authenticator
	BackupRepo     *backup.Repository
	BackupCallback backup.Callback
	DRProgress     backup.ProgressCallback
	CORSOrigins    []string
}

// NewServer assembles the chi router: global middleware, public routes,
// then the three protected route groups, each wrapped in its own
// fixed-order pipeline per the HTTP pipeline contract.
func NewServer(d Deps) *Server {
	s := &Server{
		Router:         chi.NewRouter(),
		logger:         d.Logger,
		registry:       d.Registry,
		runtime:        d.Runtime,
		metrics:        d.Metrics,
		auth:           d.Authenticator,
		pipeline:       &Pipeline{Registry: d.Registry, Limiter: d.Limiter, Metrics: d.Metrics},
		backupRepo:     d.BackupRepo,
		backupCallback: d.BackupCallback,
		drProgress:     d.DRProgress,
		dr:             newDRProcedures(),
		startedAt:      time.Now(),
	}

	r := s.Router
	r.Use(RequestID)
	r.Use(Logger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Tenant-Id", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.mountPublic(r)
	s.mountAdmin(r)
	s.mountInternal(r)
	s.mountPublicAPI(r)
	r.Get("/admin/ui/*", adminUIPlaceholder)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func adminUIPlaceholder(w http.ResponseWriter, r *http.Request) {
	http.NotFound(w, r)
}

func (s *Server) mountPublic(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/health/ready", s.handleHealthReady)
	r.Get("/metrics", s.handlePublicMetrics)
}

// tenantMetrics wraps handlers that need telemetry.Registry.Middleware
// without the rest of the pipeline (public, unauthenticated routes still
// get instrumented).
func (s *Server) instrument(next http.Handler) http.Handler {
	return s.metrics.Middleware(next)
}
