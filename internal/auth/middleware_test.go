package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/libervia/gateway/internal/security"
	"github.com/libervia/gateway/internal/telemetry"
	"github.com/libervia/gateway/internal/tenant"
)

func newTestAuthenticator(t *testing.T) (*Authenticator, *tenant.Registry, *GlobalAdminStore) {
	t.Helper()
	t.Setenv("LIBERVIA_AUTH_PEPPER", "a-sufficiently-long-pepper-value")
	reg, err := tenant.NewRegistry(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	globalHash, err := security.HMACToken("global-secret-token")
	if err != nil {
		t.Fatalf("HMACToken: %v", err)
	}
	global := &GlobalAdminStore{keys: []GlobalKey{{KeyID: "g1", TokenHash: globalHash, Status: GlobalKeyActive}}}
	return NewAuthenticator(global, reg, telemetry.NewRegistry()), reg, global
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireGlobalAdmin_MissingToken(t *testing.T) {
	a, _, _ := newTestAuthenticator(t)
	req := httptest.NewRequest(http.MethodGet, "/admin/query/tenants", nil)
	rec := httptest.NewRecorder()
	a.RequireGlobalAdmin(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 missing token, got %d", rec.Code)
	}
}

func TestRequireGlobalAdmin_ValidGlobalToken(t *testing.T) {
	a, _, _ := newTestAuthenticator(t)
	req := httptest.NewRequest(http.MethodGet, "/admin/query/tenants", nil)
	req.Header.Set("Authorization", "Bearer global-secret-token")
	rec := httptest.NewRecorder()
	a.RequireGlobalAdmin(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected global admin token to pass, got %d", rec.Code)
	}
}

func TestRequireTenantAdminOrGlobal_PublicKeyRefusedWithInsufficientRole(t *testing.T) {
	a, reg, _ := newTestAuthenticator(t)
	if _, err := reg.Register(tenant.RegisterInput{ID: "t1", Name: "T1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	created, err := reg.CreateTenantKey("t1", tenant.RolePublic, "")
	if err != nil {
		t.Fatalf("CreateTenantKey: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/tenants/t1/audit/verify", nil)
	req.Header.Set("Authorization", "Bearer "+created.Token)
	req = req.WithContext(telemetry.WithTenantID(req.Context(), "t1"))
	rec := httptest.NewRecorder()
	a.RequireTenantAdminOrGlobal(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 insufficient role for a public key on a tenant_admin route, got %d", rec.Code)
	}
}

func TestRequireTenantAdminOrGlobal_TenantAdminAllowed(t *testing.T) {
	a, reg, _ := newTestAuthenticator(t)
	if _, err := reg.Register(tenant.RegisterInput{ID: "t1", Name: "T1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	created, err := reg.CreateTenantKey("t1", tenant.RoleTenantAdmin, "")
	if err != nil {
		t.Fatalf("CreateTenantKey: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/tenants/t1/audit/verify", nil)
	req.Header.Set("Authorization", "Bearer "+created.Token)
	req = req.WithContext(telemetry.WithTenantID(req.Context(), "t1"))
	rec := httptest.NewRecorder()
	a.RequireTenantAdminOrGlobal(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected tenant_admin to be allowed, got %d", rec.Code)
	}
}

func TestRequireTenantSelfOrGlobal_PublicKeyAllowed(t *testing.T) {
	a, reg, _ := newTestAuthenticator(t)
	if _, err := reg.Register(tenant.RegisterInput{ID: "t1", Name: "T1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	created, err := reg.CreateTenantKey("t1", tenant.RolePublic, "")
	if err != nil {
		t.Fatalf("CreateTenantKey: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/internal/tenants/t1/metrics", nil)
	req.Header.Set("Authorization", "Bearer "+created.Token)
	req = req.WithContext(telemetry.WithTenantID(req.Context(), "t1"))
	rec := httptest.NewRecorder()
	a.RequireTenantSelfOrGlobal(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected a tenant's own public key to read its own metrics, got %d", rec.Code)
	}
}

func TestRequireTenantSelfOrGlobal_OtherTenantKeyRejected(t *testing.T) {
	a, reg, _ := newTestAuthenticator(t)
	if _, err := reg.Register(tenant.RegisterInput{ID: "t1", Name: "T1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := reg.Register(tenant.RegisterInput{ID: "t2", Name: "T2"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	created, err := reg.CreateTenantKey("t2", tenant.RolePublic, "")
	if err != nil {
		t.Fatalf("CreateTenantKey: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/internal/tenants/t1/metrics", nil)
	req.Header.Set("Authorization", "Bearer "+created.Token)
	req = req.WithContext(telemetry.WithTenantID(req.Context(), "t1"))
	rec := httptest.NewRecorder()
	a.RequireTenantSelfOrGlobal(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected another tenant's key to be rejected, got %d", rec.Code)
	}
}

func TestRequireAPIAccess_DevModeBypassWhenNoKeys(t *testing.T) {
	a, reg, _ := newTestAuthenticator(t)
	if _, err := reg.Register(tenant.RegisterInput{ID: "t1", Name: "T1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/eventos", nil)
	req = req.WithContext(telemetry.WithTenantID(req.Context(), "t1"))
	rec := httptest.NewRecorder()
	a.RequireAPIAccess(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected dev-mode bypass for keyless tenant, got %d", rec.Code)
	}
}

func TestRequireAPIAccess_RevokedKeyInvalidatedImmediately(t *testing.T) {
	a, reg, _ := newTestAuthenticator(t)
	if _, err := reg.Register(tenant.RegisterInput{ID: "t1", Name: "T1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	created, err := reg.CreateTenantKey("t1", tenant.RolePublic, "")
	if err != nil {
		t.Fatalf("CreateTenantKey: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/eventos", nil)
	req.Header.Set("Authorization", "Bearer "+created.Token)
	req = req.WithContext(telemetry.WithTenantID(req.Context(), "t1"))
	rec := httptest.NewRecorder()
	a.RequireAPIAccess(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected active key to pass, got %d", rec.Code)
	}

	if err := reg.RevokeTenantKey("t1", created.KeyID); err != nil {
		t.Fatalf("RevokeTenantKey: %v", err)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/eventos", nil)
	req2.Header.Set("Authorization", "Bearer "+created.Token)
	req2 = req2.WithContext(telemetry.WithTenantID(req2.Context(), "t1"))
	rec2 := httptest.NewRecorder()
	a.RequireAPIAccess(okHandler()).ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusUnauthorized {
		t.Fatalf("expected revoked key to be rejected immediately, got %d", rec2.Code)
	}
}
