package runtime

import "github.com/libervia/gateway/internal/core"

// IntegrationAdapter is an optional per-tenant hook the runtime invokes on
// instance creation and shutdown. The runtime never depends on any
// specific adapter implementation — Slack notifications, webhooks, or
// nothing at all.
type IntegrationAdapter interface {
	Init(tenantID, dataDir string, coreAPI *core.Instance) error
	Shutdown() error
}

// AdapterFactory constructs an IntegrationAdapter for a tenant, or returns
// nil if no adapter applies. The runtime calls Init itself after the
// factory returns a non-nil adapter.
type AdapterFactory func(tenantID, dataDir string, coreAPI *core.Instance) (IntegrationAdapter, error)
