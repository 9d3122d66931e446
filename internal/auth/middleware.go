package auth

import (
	"net/http"
	"strings"

	"github.com/libervia/gateway/internal/apierr"
	"github.com/libervia/gateway/internal/telemetry"
	"github.com/libervia/gateway/internal/tenant"
)

// Authenticator implements the route-class authentication and RBAC policy
// of spec §4.6. Rather than dispatching on the request path, each route
// group in the server is wrapped in the specific middleware that matches
// its policy — the tenant id, when one is needed, comes from whatever the
// tenant-resolution stage (or a path-parameter reader) already put in the
// request context.
type Authenticator struct {
	global   *GlobalAdminStore
	registry *tenant.Registry
	metrics  *telemetry.Registry
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(global *GlobalAdminStore, registry *tenant.Registry, metrics *telemetry.Registry) *Authenticator {
	return &Authenticator{global: global, registry: registry, metrics: metrics}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func (a *Authenticator) writeError(w http.ResponseWriter, r *http.Request, code apierr.Code, message string) {
	if a.metrics != nil && (code == apierr.CodeMissingToken || code == apierr.CodeInvalidToken) {
		a.metrics.IncCounter(telemetry.MetricAuthFailuresTotal, map[string]string{"tenant_id": telemetry.TenantIDFromContext(r.Context())})
	}
	apierr.Write(w, r, apierr.New(code, message))
}

// RequireGlobalAdmin accepts only a valid global_admin bearer token. Used
// for tenant CRUD, global metrics/health/query, and any other operation
// that is never delegated to a tenant's own admin.
func (a *Authenticator) RequireGlobalAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearerToken(r)
		if !ok {
			a.writeError(w, r, apierr.CodeMissingToken, "a bearer token is required")
			return
		}
		id := a.global.Validate(tok)
		if id == nil {
			a.writeError(w, r, apierr.CodeInvalidToken, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
	})
}

// RequireTenantAdminOrGlobal accepts a global_admin token, or the matching
// tenant's own tenant_admin key. Any other role — including a valid public
// key for that same tenant — is a 403 INSUFFICIENT_ROLE, never a 401. The
// tenant id is read from the request context (telemetry.TenantIDFromContext),
// which must already be populated by the time this middleware runs.
func (a *Authenticator) RequireTenantAdminOrGlobal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := telemetry.TenantIDFromContext(r.Context())
		tok, ok := bearerToken(r)
		if !ok {
			a.writeError(w, r, apierr.CodeMissingToken, "a bearer token is required")
			return
		}
		if id := a.global.Validate(tok); id != nil {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
			return
		}
		authCtx, err := a.registry.ValidateTenantToken(tenantID, tok)
		if err != nil || authCtx == nil {
			a.writeError(w, r, apierr.CodeInvalidToken, "invalid token")
			return
		}
		if authCtx.Role != tenant.RoleTenantAdmin {
			a.writeError(w, r, apierr.CodeInsufficientRole, "this operation requires tenant_admin or global_admin")
			return
		}
		id := &Identity{Role: authCtx.Role, TenantID: authCtx.TenantID, KeyID: authCtx.KeyID, Method: MethodTenantKey}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
	})
}

// RequireTenantSelfOrGlobal accepts a global_admin token, or any valid key
// (public or tenant_admin) belonging to the tenant named in the request
// context. Used for "self or global_admin" routes such as a tenant's own
// metrics, where any of that tenant's keys should be able to read its own
// numbers but a stranger tenant's key should not.
func (a *Authenticator) RequireTenantSelfOrGlobal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := telemetry.TenantIDFromContext(r.Context())
		tok, ok := bearerToken(r)
		if !ok {
			a.writeError(w, r, apierr.CodeMissingToken, "a bearer token is required")
			return
		}
		if id := a.global.Validate(tok); id != nil {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
			return
		}
		authCtx, err := a.registry.ValidateTenantToken(tenantID, tok)
		if err != nil || authCtx == nil {
			a.writeError(w, r, apierr.CodeInvalidToken, "invalid token")
			return
		}
		id := &Identity{Role: authCtx.Role, TenantID: authCtx.TenantID, KeyID: authCtx.KeyID, Method: MethodTenantKey}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
	})
}

// RequireAPIAccess implements the /api/v1/** policy: the tenant's public
// (or higher) key is required, except in dev mode — a tenant configured
// with no keys and no legacy apiToken passes through unauthenticated.
func (a *Authenticator) RequireAPIAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := telemetry.TenantIDFromContext(r.Context())
		t, err := a.registry.Get(tenantID)
		if err != nil {
			a.writeError(w, r, apierr.CodeTenantNotFound, "tenant not found")
			return
		}
		if len(t.Keys) == 0 && t.APIToken == "" {
			id := &Identity{Role: tenant.RolePublic, TenantID: tenantID, Method: MethodDevBypass}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
			return
		}

		tok, ok := bearerToken(r)
		if !ok {
			a.writeError(w, r, apierr.CodeMissingToken, "a bearer token is required")
			return
		}
		if id := a.global.Validate(tok); id != nil {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
			return
		}
		authCtx, err := a.registry.ValidateTenantToken(tenantID, tok)
		if err != nil || authCtx == nil {
			a.writeError(w, r, apierr.CodeInvalidToken, "invalid token")
			return
		}
		id := &Identity{Role: authCtx.Role, TenantID: authCtx.TenantID, KeyID: authCtx.KeyID, Method: MethodTenantKey}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
	})
}
