package httpserver

import (
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/libervia/gateway/internal/apierr"
	"github.com/libervia/gateway/internal/backup"
	"github.com/libervia/gateway/internal/runtime"
)

// drProcedures tracks in-flight DR procedures between the start call and
// the operator's later confirmation call. Keyed by procedure id.
type drProcedures struct {
	mu    sync.Mutex
	byID  map[string]*backup.Procedure
	snaps map[string]*backup.Snapshot
}

func newDRProcedures() *drProcedures {
	return &drProcedures{byID: make(map[string]*backup.Procedure), snaps: make(map[string]*backup.Snapshot)}
}

func (d *drProcedures) put(p *backup.Procedure, snap *backup.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID[p.ProcedureID] = p
	d.snaps[p.ProcedureID] = snap
}

func (d *drProcedures) get(id string) (*backup.Procedure, *backup.Snapshot, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.byID[id]
	return p, d.snaps[id], ok
}

func backupErrorCode(err error) apierr.Code {
	switch {
	case errors.Is(err, backup.ErrBackupNotFound):
		return apierr.CodeBackupNotFound
	case errors.Is(err, backup.ErrBackupFormatInvalid):
		return apierr.CodeBackupFormatInvalid
	case errors.Is(err, backup.ErrBackupSignatureInvalid):
		return apierr.CodeBackupSignatureInvalid
	case errors.Is(err, backup.ErrBackupHashMismatch):
		return apierr.CodeBackupHashMismatch
	case errors.Is(err, backup.ErrRestoreRejected):
		return apierr.CodeRestoreRejected
	case errors.Is(err, backup.ErrEventLogContinuityBroken):
		return apierr.CodeEventLogContinuityBroken
	case errors.Is(err, backup.ErrRestoreConflict):
		return apierr.CodeRestoreConflict
	case errors.Is(err, backup.ErrDRProcedureError):
		return apierr.CodeDRProcedureError
	case errors.Is(err, backup.ErrBackupConfigMissing):
		return apierr.CodeBackupConfigMissing
	default:
		return apierr.CodeInternal
	}
}

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ci, ok := s.tenantCoreInstance(w, r, id)
	if !ok {
		return
	}
	svc := backup.NewService(s.backupRepo, backup.NewCoreProvider(ci.Core), s.backupCallback)
	snap, err := svc.Create(id, nil)
	if err != nil {
		RespondError(w, r, backupErrorCode(err), err.Error())
		return
	}
	Respond(w, http.StatusCreated, snap.Metadata)
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	ids, err := s.backupRepo.ListForTenant(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, apierr.CodeInternal, err.Error())
		return
	}
	Respond(w, http.StatusOK, map[string]any{"backups": ids, "total": len(ids)})
}

func (s *Server) handleGetBackup(w http.ResponseWriter, r *http.Request) {
	snap, err := s.backupRepo.Load(chi.URLParam(r, "backupId"))
	if err != nil {
		RespondError(w, r, backupErrorCode(err), err.Error())
		return
	}
	if err := backup.VerifyIntegrity(snap); err != nil {
		RespondErrorDetails(w, r, apierr.CodeBackupSignatureInvalid, err.Error(), nil)
		return
	}
	Respond(w, http.StatusOK, snap)
}

func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ci, ok := s.tenantCoreInstance(w, r, id)
	if !ok {
		return
	}
	mode := backup.ModeDryRun
	if r.URL.Query().Get("mode") == "effective" {
		mode = backup.ModeEffective
	}
	provider := backup.NewCoreProvider(ci.Core)
	restoreSvc := backup.NewRestoreService(s.backupRepo, provider, s.backupCallback)
	result, err := restoreSvc.Restore(chi.URLParam(r, "backupId"), backup.RestoreOptions{
		Mode:                     mode,
		TenantID:                 id,
		VerifyEventLogContinuity: true,
	})
	if err != nil {
		RespondError(w, r, backupErrorCode(err), err.Error())
		return
	}
	Respond(w, http.StatusOK, result)
}

type drStartInput struct {
	BackupID string `json:"backupId" validate:"required"`
}

func (s *Server) handleDRStart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	procType := backup.ProcedureType(chi.URLParam(r, "procType"))

	var in drStartInput
	if !DecodeAndValidate(w, r, &in) {
		return
	}
	snap, err := s.backupRepo.Load(in.BackupID)
	if err != nil {
		RespondError(w, r, backupErrorCode(err), err.Error())
		return
	}

	ci, ok := s.tenantCoreInstance(w, r, id)
	if !ok {
		return
	}
	restoreSvc := backup.NewRestoreService(s.backupRepo, backup.NewCoreProvider(ci.Core), s.backupCallback)
	drSvc := backup.NewDRService(restoreSvc, s.drProgress)

	proc, err := drSvc.Start(procType, in.BackupID)
	if err != nil {
		RespondError(w, r, backupErrorCode(err), err.Error())
		return
	}
	if err := drSvc.AdvanceToConfirmation(proc); err != nil {
		RespondError(w, r, backupErrorCode(err), err.Error())
		return
	}
	s.dr.put(proc, snap)
	Respond(w, http.StatusAccepted, proc)
}

func (s *Server) handleDRConfirm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	procedureID := chi.URLParam(r, "procedureId")

	proc, snap, ok := s.dr.get(procedureID)
	if !ok {
		RespondError(w, r, apierr.CodeDRProcedureError, "unknown procedure id")
		return
	}

	ci, ok := s.tenantCoreInstance(w, r, id)
	if !ok {
		return
	}
	restoreSvc := backup.NewRestoreService(s.backupRepo, backup.NewCoreProvider(ci.Core), s.backupCallback)
	drSvc := backup.NewDRService(restoreSvc, s.drProgress)

	result, err := drSvc.ConfirmAndExecute(proc, snap)
	if err != nil {
		RespondError(w, r, backupErrorCode(err), err.Error())
		return
	}
	Respond(w, http.StatusOK, map[string]any{"procedure": proc, "result": result})
}

// tenantCoreInstance resolves id's live core instance, mapping runtime's
// sentinel errors onto the apierr envelope.
func (s *Server) tenantCoreInstance(w http.ResponseWriter, r *http.Request, id string) (*runtime.CoreInstance, bool) {
	ci, err := s.runtime.GetOrCreate(id)
	if err != nil {
		switch {
		case errors.Is(err, runtime.ErrTenantSuspended):
			RespondError(w, r, apierr.CodeTenantSuspended, "tenant is suspended")
		case errors.Is(err, runtime.ErrTenantNotFound), errors.Is(err, runtime.ErrTenantDeleted):
			RespondError(w, r, apierr.CodeTenantNotFound, "tenant not found")
		default:
			RespondError(w, r, apierr.CodeInternal, err.Error())
		}
		return nil, false
	}
	return ci, true
}
