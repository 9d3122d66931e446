package integration

import (
	"log/slog"

	"github.com/libervia/gateway/internal/core"
	"github.com/libervia/gateway/internal/runtime"
)

// NewSlackAdapterFactory returns a runtime.AdapterFactory that hands each
// tenant its own SlackAdapter sharing one underlying Slack client and
// channel. Pass an empty botToken to get a factory whose adapters are
// always disabled (useful as the default when Slack isn't configured).
func NewSlackAdapterFactory(botToken, channel string, logger *slog.Logger) runtime.AdapterFactory {
	return func(tenantID, dataDir string, coreAPI *core.Instance) (runtime.IntegrationAdapter, error) {
		adapter := NewSlackAdapter(botToken, channel, logger)
		return adapter, nil
	}
}
