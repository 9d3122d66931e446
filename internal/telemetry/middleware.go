package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

type ctxKey int

const tenantIDCtxKey ctxKey = iota

// WithTenantID attaches the resolved tenant id to the request context, so
// the telemetry middleware can label metrics by tenant without coupling to
// the tenant-resolution hook directly.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDCtxKey, tenantID)
}

// TenantIDFromContext returns the tenant id set by WithTenantID, or "".
func TenantIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(tenantIDCtxKey).(string)
	return v
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// Middleware is the telemetry-start/telemetry-stop pipeline hook: it times
// the handler, then records http_requests_total, http_request_duration_ms
// and (on a 5xx) http_errors_total, labeled by method, route template,
// status code and tenant.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, req)

		routeTemplate := collapseDynamicSegments(req.URL.Path)
		if rc := chi.RouteContext(req.Context()); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				routeTemplate = pattern
			}
		}

		tenantID := TenantIDFromContext(req.Context())
		statusCode := strconv.Itoa(sw.status)
		labels := map[string]string{
			"method":         req.Method,
			"route_template": routeTemplate,
			"status_code":    statusCode,
			"tenant_id":      tenantID,
		}

		r.IncCounter(MetricHTTPRequestsTotal, labels)
		r.ObserveHistogram(MetricHTTPRequestDurationMs, labels, float64(time.Since(start).Milliseconds()))

		if sw.status >= 500 {
			r.IncCounter(MetricHTTPErrorsTotal, map[string]string{
				"error_code": fmt.Sprintf("%dxx", sw.status/100),
				"tenant_id":  tenantID,
			})
		}
	})
}
