package runtime

import (
	"errors"
	"sync"
	"testing"

	"github.com/libervia/gateway/internal/tenant"
)

func newTestRuntime(t *testing.T) (*Runtime, *tenant.Registry) {
	t.Helper()
	t.Setenv("LIBERVIA_AUTH_PEPPER", "a-sufficiently-long-pepper-value")
	reg, err := tenant.NewRegistry(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	t.Cleanup(reg.Shutdown)
	return New(reg, nil), reg
}

func TestGetOrCreate_ConstructsOnce(t *testing.T) {
	rt, reg := newTestRuntime(t)
	reg.Register(tenant.RegisterInput{ID: "acme", Name: "ACME"})

	ci1, err := rt.GetOrCreate("acme")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	ci2, err := rt.GetOrCreate("acme")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if ci1 != ci2 {
		t.Fatal("expected the same cached instance across calls")
	}
	if rt.GetInstanceCount() != 1 {
		t.Fatalf("expected instance count 1, got %d", rt.GetInstanceCount())
	}
}

func TestGetOrCreate_ConcurrentCallsConstructExactlyOnce(t *testing.T) {
	rt, reg := newTestRuntime(t)
	reg.Register(tenant.RegisterInput{ID: "acme", Name: "ACME"})

	const n = 30
	results := make([]*CoreInstance, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			ci, err := rt.GetOrCreate("acme")
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
				return
			}
			results[i] = ci
		}()
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatal("expected every concurrent caller to observe the same instance")
		}
	}
	if rt.GetInstanceCount() != 1 {
		t.Fatalf("expected exactly one instance constructed, got %d", rt.GetInstanceCount())
	}
}

func TestGetOrCreate_RejectsSuspendedAndUnknown(t *testing.T) {
	rt, reg := newTestRuntime(t)
	reg.Register(tenant.RegisterInput{ID: "acme", Name: "ACME"})
	reg.Suspend("acme")

	if _, err := rt.GetOrCreate("acme"); !errors.Is(err, ErrTenantSuspended) {
		t.Fatalf("expected ErrTenantSuspended, got %v", err)
	}
	if _, err := rt.GetOrCreate("does-not-exist"); !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestShutdown_EvictsFromCache(t *testing.T) {
	rt, reg := newTestRuntime(t)
	reg.Register(tenant.RegisterInput{ID: "acme", Name: "ACME"})
	rt.GetOrCreate("acme")

	if err := rt.Shutdown("acme"); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if rt.IsActive("acme") {
		t.Fatal("expected instance evicted after shutdown")
	}
	if rt.GetInstanceCount() != 0 {
		t.Fatalf("expected instance count 0, got %d", rt.GetInstanceCount())
	}
}

func TestShutdownAll_IsolatesFailuresFromOtherTenants(t *testing.T) {
	rt, reg := newTestRuntime(t)
	reg.Register(tenant.RegisterInput{ID: "a", Name: "A"})
	reg.Register(tenant.RegisterInput{ID: "b", Name: "B"})
	rt.GetOrCreate("a")
	rt.GetOrCreate("b")

	if err := rt.ShutdownAll(); err != nil {
		t.Fatalf("ShutdownAll: %v", err)
	}
	if rt.IsActive("a") || rt.IsActive("b") {
		t.Fatal("expected both instances evicted")
	}
}
