package httpserver

import (
	"net/http"
	"strings"
	"testing"

	"github.com/libervia/gateway/internal/backup"
)

func createBackupViaAPI(t *testing.T, h *testHarness, tenantID string) string {
	t.Helper()
	rec := doRequest(h.Server, http.MethodPost, "/admin/tenants/"+tenantID+"/backups",
		map[string]string{"Authorization": "Bearer " + testGlobalAdminToken}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating backup, got %d: %s", rec.Code, rec.Body.String())
	}
	var meta backup.Metadata
	decodeBody(t, rec, &meta)
	if meta.BackupID == "" {
		t.Fatal("expected a non-empty backup id")
	}
	return meta.BackupID
}

// S5: a tampered backup (contentHash no longer matches the stored payload)
// is rejected rather than restored, mentioning contentHash in the reason.
func TestScenario_BackupTamperRejected(t *testing.T) {
	t.Setenv("LIBERVIA_BACKUP_PEPPER", "a-sufficiently-long-test-backup-pepper")
	h := newTestHarness(t)
	h.registerTenant(t, "acme")

	backupID := createBackupViaAPI(t, h, "acme")

	repo := backup.NewRepository(h.Registry.GetBaseDir())
	snap, err := repo.Load(backupID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	snap.ContentHash = "0000000000000000000000000000000000000000000000000000000000000000"
	if _, err := repo.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec := doRequest(h.Server, http.MethodGet, "/admin/tenants/acme/backups/"+backupID,
		map[string]string{"Authorization": "Bearer " + testGlobalAdminToken}, "")
	if !strings.Contains(rec.Body.String(), "contentHash") {
		t.Fatalf("expected contentHash mismatch mentioned in body, got %s", rec.Body.String())
	}

	rec = doRequest(h.Server, http.MethodPost, "/admin/tenants/acme/backups/"+backupID+"/restore?mode=effective",
		map[string]string{"Authorization": "Bearer " + testGlobalAdminToken}, "")
	if rec.Code == http.StatusOK {
		t.Fatalf("expected restore of a tampered backup to be rejected, got 200: %s", rec.Body.String())
	}
}

func TestAdminBackup_CreateListGet(t *testing.T) {
	t.Setenv("LIBERVIA_BACKUP_PEPPER", "a-sufficiently-long-test-backup-pepper")
	h := newTestHarness(t)
	h.registerTenant(t, "acme")

	backupID := createBackupViaAPI(t, h, "acme")

	rec := doRequest(h.Server, http.MethodGet, "/admin/tenants/acme/backups",
		map[string]string{"Authorization": "Bearer " + testGlobalAdminToken}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing backups, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), backupID) {
		t.Fatalf("expected backup id %q in listing, got %s", backupID, rec.Body.String())
	}

	rec = doRequest(h.Server, http.MethodGet, "/admin/tenants/acme/backups/"+backupID,
		map[string]string{"Authorization": "Bearer " + testGlobalAdminToken}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 getting backup, got %d: %s", rec.Code, rec.Body.String())
	}
}
