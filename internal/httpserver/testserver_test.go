package httpserver

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/libervia/gateway/internal/auth"
	"github.com/libervia/gateway/internal/backup"
	"github.com/libervia/gateway/internal/ratelimit"
	"github.com/libervia/gateway/internal/runtime"
	"github.com/libervia/gateway/internal/telemetry"
	"github.com/libervia/gateway/internal/tenant"
)

const testGlobalAdminToken = "global-secret-token"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testHarness bundles a fully wired Server with the registry/runtime
// underneath it, for tests that need to register tenants or inspect state
// directly rather than only through HTTP.
type testHarness struct {
	Server   *Server
	Registry *tenant.Registry
	Runtime  *runtime.Runtime
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	t.Setenv("LIBERVIA_AUTH_PEPPER", "a-sufficiently-long-test-pepper-value")

	baseDir := t.TempDir()
	reg, err := tenant.NewRegistry(baseDir, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	global, err := auth.LoadGlobalAdminStore(filepath.Join(baseDir, "no-such-global.json"))
	if err != nil {
		t.Fatalf("LoadGlobalAdminStore: %v", err)
	}
	global = global.WithLegacyToken(testGlobalAdminToken)

	metrics := telemetry.NewRegistry()
	rt := runtime.New(reg, nil)
	authenticator := auth.NewAuthenticator(global, reg, metrics)

	srv := NewServer(Deps{
		Logger:        testLogger(),
		Registry:      reg,
		Runtime:       rt,
		Metrics:       metrics,
		Limiter:       ratelimit.New().AsRateLimiter(),
		Authenticator: authenticator,
		BackupRepo:    backup.NewRepository(reg.GetBaseDir()),
		CORSOrigins:   []string{"*"},
	})

	return &testHarness{Server: srv, Registry: reg, Runtime: rt}
}

// registerTenant registers a tenant with no keys (dev-bypass access to
// /api/v1) and returns it.
func (h *testHarness) registerTenant(t *testing.T, id string) *tenant.Tenant {
	t.Helper()
	tn, err := h.Registry.Register(tenant.RegisterInput{ID: id, Name: id})
	if err != nil {
		t.Fatalf("Register(%s): %v", id, err)
	}
	return tn
}
