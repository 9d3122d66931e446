package app

import (
	"time"

	"github.com/libervia/gateway/internal/backup"
	"github.com/libervia/gateway/internal/integration"
)

// backupNotifierBridge adapts an integration.Notifier to the narrower
// backup.Callback interface, so the same Slack (or future) notifier backs
// both per-tenant runtime events and backup/restore lifecycle events.
type backupNotifierBridge struct {
	notifier integration.Notifier
}

func (b backupNotifierBridge) OnBackupCreated(tenantID, backupID string, createdAt time.Time) {
	if b.notifier == nil {
		return
	}
	b.notifier.NotifyBackupCreated(integration.BackupCreated{TenantID: tenantID, BackupID: backupID, CreatedAt: createdAt})
}

func (b backupNotifierBridge) OnRestoreRejected(tenantID, backupID, reason string) {
	if b.notifier == nil {
		return
	}
	b.notifier.NotifyRestoreRejected(integration.RestoreRejected{TenantID: tenantID, BackupID: backupID, Reason: reason})
}

func (b backupNotifierBridge) OnRestoreExecuted(tenantID, backupID string, appended, alreadyExists int) {
	if b.notifier == nil {
		return
	}
	b.notifier.NotifyRestoreExecuted(integration.RestoreExecuted{
		TenantID:      tenantID,
		BackupID:      backupID,
		AppendedCount: appended,
		AlreadyExists: alreadyExists,
	})
}

// drProgressBridge adapts an integration.Notifier to backup.ProgressCallback.
func drProgressBridge(notifier integration.Notifier) backup.ProgressCallback {
	return func(procedureID string, procType backup.ProcedureType, step string, status backup.StepStatus) {
		if notifier == nil {
			return
		}
		notifier.NotifyDRProgress(integration.DRProgress{
			ProcedureID: procedureID,
			Type:        string(procType),
			Step:        step,
			Status:      string(status),
		})
	}
}
