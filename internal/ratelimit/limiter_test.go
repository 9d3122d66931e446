package ratelimit

import "testing"

func TestAllow_WithinLimit(t *testing.T) {
	l := New()
	for i := 0; i < 5; i++ {
		d := l.Allow("acme", 5)
		if !d.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}
}

func TestAllow_ExceedsLimit(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		l.Allow("acme", 3)
	}
	d := l.Allow("acme", 3)
	if d.Allowed {
		t.Fatal("expected 4th request to be denied")
	}
	if d.Remaining != 0 {
		t.Fatalf("expected 0 remaining, got %d", d.Remaining)
	}
}

func TestAllow_ZeroLimitDisablesLimiting(t *testing.T) {
	l := New()
	for i := 0; i < 100; i++ {
		d := l.Allow("acme", 0)
		if !d.Allowed {
			t.Fatal("limit 0 must mean unlimited")
		}
	}
}

func TestAllow_TenantsIsolated(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		l.Allow("acme", 3)
	}
	d := l.Allow("globex", 3)
	if !d.Allowed {
		t.Fatal("expected a different tenant's bucket to be independent")
	}
}
