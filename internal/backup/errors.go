package backup

import "errors"

var (
	ErrBackupConfigMissing      = errors.New("BACKUP_CONFIG_MISSING")
	ErrBackupSignatureInvalid   = errors.New("BACKUP_SIGNATURE_INVALID")
	ErrBackupHashMismatch       = errors.New("BACKUP_HASH_MISMATCH")
	ErrBackupFormatInvalid      = errors.New("BACKUP_FORMAT_INVALID")
	ErrBackupNotFound           = errors.New("BACKUP_NOT_FOUND")
	ErrRestoreRejected          = errors.New("RESTORE_REJECTED")
	ErrEventLogContinuityBroken = errors.New("EVENTLOG_CONTINUITY_BROKEN")
	ErrRestoreConflict          = errors.New("RESTORE_CONFLICT")
	ErrDRProcedureError         = errors.New("DR_PROCEDURE_ERROR")
)
