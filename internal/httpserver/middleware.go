package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/libervia/gateway/internal/apierr"
	"github.com/libervia/gateway/internal/ratelimit"
	"github.com/libervia/gateway/internal/router"
	"github.com/libervia/gateway/internal/security"
	"github.com/libervia/gateway/internal/telemetry"
	"github.com/libervia/gateway/internal/tenant"
)

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// RequestID is pipeline stage 1: echo a caller-supplied X-Request-Id if it
// matches the allowed charset, otherwise generate a fresh UUIDv4.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if !requestIDPattern.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// Logger logs every request at info level once it completes.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", w.Header().Get("X-Request-Id"),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// tenantRequiredPrefixes are path prefixes that must resolve to a tenant id
// (via header, since they carry none in the path) or fail MISSING_TENANT.
var tenantRequiredPrefixes = []string{"/api/v1/"}

func requiresTenant(path string) bool {
	for _, p := range tenantRequiredPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Pipeline holds the dependencies the tenant-resolution and rate-limit
// hooks need.
type Pipeline struct {
	Registry *tenant.Registry
	Limiter  ratelimit.RateLimiter
	Metrics  *telemetry.Registry
}

// TenantResolution is pipeline stage 2: extract the tenant id from
// header/path/host, rejecting conflicts, unknown, suspended or malformed
// ids, and attach the resolved id to the request context.
func (p *Pipeline) TenantResolution(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := router.ExtractTenantIDWithConflictDetection(router.Request{
			Headers: r.Header,
			Path:    r.URL.Path,
			Host:    r.Host,
		})

		if res.HasConflict {
			p.Metrics.IncCounter(telemetry.MetricTenantConflictsTotal, nil)
			details := make(map[string]any, len(res.ConflictDetails))
			for k, v := range res.ConflictDetails {
				details[k] = v
			}
			RespondErrorDetails(w, r, apierr.CodeTenantConflict, "conflicting tenant ids across header/path/host", details)
			return
		}

		tenantID := res.TenantID
		if tenantID == "" {
			if requiresTenant(r.URL.Path) {
				RespondError(w, r, apierr.CodeMissingTenant, "no tenant id resolved for this request")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if err := security.ValidateTenantID(tenantID); err != nil {
			RespondError(w, r, apierr.CodeInvalidTenantID, err.Error())
			return
		}

		t, err := p.Registry.Get(tenantID)
		if err != nil {
			RespondError(w, r, apierr.CodeTenantNotFound, "tenant not found")
			return
		}
		if t.Status == tenant.StatusSuspended {
			RespondError(w, r, apierr.CodeTenantSuspended, "tenant is suspended")
			return
		}
		if t.Status == tenant.StatusDeleted {
			RespondError(w, r, apierr.CodeTenantNotFound, "tenant not found")
			return
		}

		ctx := telemetry.WithTenantID(r.Context(), tenantID)
		ctx = withResolvedTenant(ctx, t)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type resolvedTenantCtxKey struct{}

func withResolvedTenant(ctx context.Context, t *tenant.Tenant) context.Context {
	return context.WithValue(ctx, resolvedTenantCtxKey{}, t)
}

// ResolvedTenantFromContext returns the tenant resolved by
// Pipeline.TenantResolution, or nil on a non-tenant-scoped route.
func ResolvedTenantFromContext(ctx context.Context) *tenant.Tenant {
	t, _ := ctx.Value(resolvedTenantCtxKey{}).(*tenant.Tenant)
	return t
}

// TenantFromPath is used on per-tenant /admin and /internal routes, where
// the tenant id is an unambiguous chi URL parameter rather than something
// that needs header/path/host conflict detection. It resolves the tenant
// the same way TenantResolution does (unknown/suspended/deleted checks)
// but skips the router's conflict-detection pass entirely.
func (p *Pipeline) TenantFromPath(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := chi.URLParam(r, param)
			if err := security.ValidateTenantID(tenantID); err != nil {
				RespondError(w, r, apierr.CodeInvalidTenantID, err.Error())
				return
			}
			t, err := p.Registry.Get(tenantID)
			if err != nil {
				RespondError(w, r, apierr.CodeTenantNotFound, "tenant not found")
				return
			}
			if t.Status == tenant.StatusSuspended {
				RespondError(w, r, apierr.CodeTenantSuspended, "tenant is suspended")
				return
			}
			if t.Status == tenant.StatusDeleted {
				RespondError(w, r, apierr.CodeTenantNotFound, "tenant not found")
				return
			}

			ctx := telemetry.WithTenantID(r.Context(), tenantID)
			ctx = withResolvedTenant(ctx, t)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimit is pipeline stage 4: apply the tenant's per-minute quota,
// attaching X-RateLimit-* headers and rejecting with 429 + Retry-After
// once exhausted. Requests without a resolved tenant skip the limiter.
func (p *Pipeline) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := ResolvedTenantFromContext(r.Context())
		if t == nil {
			next.ServeHTTP(w, r)
			return
		}

		decision, err := p.Limiter.Allow(r.Context(), t.ID, t.Quotas.RateLimitRPM)
		if err != nil {
			// A rate limiter outage must not take down the whole gateway;
			// fail open and let the request through unmetered.
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			p.Metrics.IncCounter(telemetry.MetricRateLimitedTotal, map[string]string{"tenant_id": t.ID})
			retryAfter := int(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			RespondError(w, r, apierr.CodeRateLimited, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
