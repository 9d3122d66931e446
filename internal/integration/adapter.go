// Package integration defines the event shapes a runtime.IntegrationAdapter
// receives and a Slack-backed sample adapter.
package integration

import "time"

// BackupCreated is emitted after BackupService.Create succeeds.
type BackupCreated struct {
	TenantID  string
	BackupID  string
	CreatedAt time.Time
}

// RestoreExecuted is emitted after a successful effective restore.
type RestoreExecuted struct {
	TenantID     string
	BackupID     string
	AppendedCount int
	AlreadyExists int
}

// RestoreRejected is emitted when a restore aborts due to a failed
// integrity or continuity check.
type RestoreRejected struct {
	TenantID string
	BackupID string
	Reason   string
}

// DRProgress is emitted as a DR procedure advances through its steps.
type DRProgress struct {
	ProcedureID string
	Type        string
	Step        string
	Status      string
}

// Notifier is the subset of behavior an IntegrationAdapter may offer for
// backup/restore/DR notifications. Adapters that don't care about a given
// event simply implement it as a no-op.
type Notifier interface {
	NotifyBackupCreated(BackupCreated)
	NotifyRestoreExecuted(RestoreExecuted)
	NotifyRestoreRejected(RestoreRejected)
	NotifyDRProgress(DRProgress)
}
