package runtime

import (
	"sync"
	"time"

	"github.com/libervia/gateway/internal/core"
)

// CoreInstance is the runtime's live handle for one tenant: the opaque
// core API plus bookkeeping the cache needs (when it started, when it was
// last touched, and its optional integration adapter).
type CoreInstance struct {
	TenantID string
	DataDir  string
	Core     *core.Instance
	Adapter  IntegrationAdapter

	StartedAt time.Time

	mu           sync.Mutex
	lastActivity time.Time
}

func newCoreInstance(tenantID, dataDir string, c *core.Instance, adapter IntegrationAdapter) *CoreInstance {
	now := time.Now()
	return &CoreInstance{TenantID: tenantID, DataDir: dataDir, Core: c, Adapter: adapter, StartedAt: now, lastActivity: now}
}

// touch records activity, used every time a cached instance is returned.
func (ci *CoreInstance) touch() {
	ci.mu.Lock()
	ci.lastActivity = time.Now()
	ci.mu.Unlock()
}

// LastActivity returns the last time this instance was touched.
func (ci *CoreInstance) LastActivity() time.Time {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	return ci.lastActivity
}

// Metrics reports a point-in-time snapshot of this instance's activity.
func (ci *CoreInstance) Metrics() core.Metrics {
	status, _ := ci.Core.EventLogStatusReport()
	eventCount := 0
	if status != nil {
		eventCount = status.EntryCount
	}
	return core.Metrics{
		TenantID:     ci.TenantID,
		EventCount:   eventCount,
		StartedAt:    ci.StartedAt,
		LastActivity: ci.LastActivity(),
	}
}
