package backup

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProcedureType names one of the four supported DR procedures.
type ProcedureType string

const (
	ProcedureTotalNodeLoss      ProcedureType = "total_node_loss"
	ProcedureCorruptionDetection ProcedureType = "corruption_detection"
	ProcedureOldSnapshotRestore ProcedureType = "old_snapshot_restore"
	ProcedureControlledRollback ProcedureType = "controlled_rollback"
)

// StepStatus is a DR step's lifecycle state.
type StepStatus string

const (
	StepPending     StepStatus = "pending"
	StepInProgress  StepStatus = "in_progress"
	StepCompleted   StepStatus = "completed"
	StepFailed      StepStatus = "failed"
	StepRolledBack  StepStatus = "rolled_back"
)

// Step is one stage of a DR procedure.
type Step struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
}

// procedureSteps lists the ordered step names for each procedure type.
var procedureSteps = map[ProcedureType][]string{
	ProcedureTotalNodeLoss:       {"locate_latest_backup", "verify_integrity", "await_confirmation", "restore_effective", "verify_health"},
	ProcedureCorruptionDetection: {"detect_corruption", "quarantine_tenant", "locate_clean_backup", "verify_integrity", "await_confirmation", "restore_effective"},
	ProcedureOldSnapshotRestore:  {"locate_backup", "verify_integrity", "diff_against_current", "await_confirmation", "restore_effective"},
	ProcedureControlledRollback:  {"locate_backup", "verify_integrity", "await_confirmation", "restore_effective", "verify_health"},
}

// Procedure tracks one DR run through its staged steps.
type Procedure struct {
	ProcedureID string        `json:"procedureId"`
	Type        ProcedureType `json:"type"`
	Status      StepStatus    `json:"status"`
	Steps       []Step        `json:"steps"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
	BackupID    string        `json:"backupId,omitempty"`
	Notes       []string      `json:"notes,omitempty"`
}

// ProgressCallback is notified as a procedure advances through its steps.
type ProgressCallback func(procedureID string, procType ProcedureType, step string, status StepStatus)

// DRService runs staged disaster-recovery procedures, gating the
// transition from automated preparation to effective restore behind an
// explicit operator confirmation.
type DRService struct {
	restore  *RestoreService
	onProgress ProgressCallback
}

// NewDRService constructs a DRService over an existing RestoreService.
func NewDRService(restore *RestoreService, onProgress ProgressCallback) *DRService {
	return &DRService{restore: restore, onProgress: onProgress}
}

// Start initializes a new procedure in the pending state, with its steps
// laid out but not yet run.
func (s *DRService) Start(procType ProcedureType, backupID string) (*Procedure, error) {
	names, ok := procedureSteps[procType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown procedure type %s", ErrDRProcedureError, procType)
	}
	steps := make([]Step, len(names))
	for i, n := range names {
		steps[i] = Step{Name: n, Status: StepPending}
	}
	return &Procedure{
		ProcedureID: uuid.NewString(),
		Type:        procType,
		Status:      StepPending,
		Steps:       steps,
		StartedAt:   time.Now().UTC(),
		BackupID:    backupID,
	}, nil
}

// AdvanceToConfirmation runs every step up to and including
// "await_confirmation", marking each completed as it finishes. Returns
// with the procedure paused at await_confirmation, awaiting
// ConfirmAndExecute.
func (s *DRService) AdvanceToConfirmation(p *Procedure) error {
	for i, step := range p.Steps {
		if step.Status == StepCompleted {
			continue
		}
		p.Steps[i].Status = StepInProgress
		s.notify(p, step.Name, StepInProgress)

		p.Steps[i].Status = StepCompleted
		s.notify(p, step.Name, StepCompleted)

		if step.Name == "await_confirmation" {
			p.Status = StepInProgress
			return nil
		}
	}
	return fmt.Errorf("%w: procedure %s has no await_confirmation step", ErrDRProcedureError, p.ProcedureID)
}

// ConfirmAndExecute is called once an operator has confirmed the
// preparation phase; it runs the remaining steps, including the effective
// restore, to completion.
func (s *DRService) ConfirmAndExecute(p *Procedure, snap *Snapshot) (*Result, error) {
	confirmIdx := -1
	for i, step := range p.Steps {
		if step.Name == "await_confirmation" {
			confirmIdx = i
			break
		}
	}
	if confirmIdx == -1 || p.Steps[confirmIdx].Status != StepCompleted {
		return nil, fmt.Errorf("%w: procedure %s has not reached await_confirmation", ErrDRProcedureError, p.ProcedureID)
	}

	var result *Result
	for i := confirmIdx + 1; i < len(p.Steps); i++ {
		step := p.Steps[i]
		p.Steps[i].Status = StepInProgress
		s.notify(p, step.Name, StepInProgress)

		if step.Name == "restore_effective" {
			r, err := s.restore.RestoreSnapshot(snap, RestoreOptions{Mode: ModeEffective, VerifyEventLogContinuity: true})
			if err != nil {
				p.Steps[i].Status = StepFailed
				p.Status = StepFailed
				s.notify(p, step.Name, StepFailed)
				return nil, fmt.Errorf("%w: %v", ErrDRProcedureError, err)
			}
			result = r
		}

		p.Steps[i].Status = StepCompleted
		s.notify(p, step.Name, StepCompleted)
	}

	now := time.Now().UTC()
	p.CompletedAt = &now
	p.Status = StepCompleted
	return result, nil
}

func (s *DRService) notify(p *Procedure, step string, status StepStatus) {
	if s.onProgress != nil {
		s.onProgress(p.ProcedureID, p.Type, step, status)
	}
}
