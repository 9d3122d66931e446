package integration

import (
	"context"
	"fmt"
	"log/slog"

	goslack "github.com/slack-go/slack"

	"github.com/libervia/gateway/internal/core"
)

// SlackAdapter posts backup/restore/DR notifications to a Slack channel.
// It implements runtime.IntegrationAdapter; construct it via
// NewSlackAdapterFactory to plug it into a Runtime.
type SlackAdapter struct {
	client   *goslack.Client
	channel  string
	logger   *slog.Logger
	tenantID string
}

// NewSlackAdapter builds a SlackAdapter. If botToken is empty, the adapter
// is a no-op (logging only) — the same disabled-by-default shape used
// elsewhere for optional integrations.
func NewSlackAdapter(botToken, channel string, logger *slog.Logger) *SlackAdapter {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackAdapter{client: client, channel: channel, logger: logger}
}

// IsEnabled reports whether the adapter has a usable Slack client.
func (a *SlackAdapter) IsEnabled() bool {
	return a.client != nil && a.channel != ""
}

// Init satisfies runtime.IntegrationAdapter; SlackAdapter needs no
// per-instance state beyond the tenant id used in notification text.
func (a *SlackAdapter) Init(tenantID, dataDir string, coreAPI *core.Instance) error {
	a.tenantID = tenantID
	return nil
}

// Shutdown satisfies runtime.IntegrationAdapter; nothing to release.
func (a *SlackAdapter) Shutdown() error {
	return nil
}

func (a *SlackAdapter) NotifyBackupCreated(e BackupCreated) {
	a.post(fmt.Sprintf(":floppy_disk: backup %s created for tenant %s", e.BackupID, e.TenantID))
}

func (a *SlackAdapter) NotifyRestoreExecuted(e RestoreExecuted) {
	a.post(fmt.Sprintf(":arrows_counterclockwise: restore %s executed for tenant %s (%d appended, %d already existed)",
		e.BackupID, e.TenantID, e.AppendedCount, e.AlreadyExists))
}

func (a *SlackAdapter) NotifyRestoreRejected(e RestoreRejected) {
	a.post(fmt.Sprintf(":warning: restore %s rejected for tenant %s: %s", e.BackupID, e.TenantID, e.Reason))
}

func (a *SlackAdapter) NotifyDRProgress(e DRProgress) {
	a.post(fmt.Sprintf(":satellite: DR procedure %s (%s) step %s: %s", e.ProcedureID, e.Type, e.Step, e.Status))
}

func (a *SlackAdapter) post(text string) {
	if !a.IsEnabled() {
		a.logger.Debug("slack adapter disabled, skipping notification", "text", text)
		return
	}
	if _, _, err := a.client.PostMessageContext(context.Background(), a.channel, goslack.MsgOptionText(text, false)); err != nil {
		a.logger.Warn("posting slack notification failed", "error", err)
	}
}
