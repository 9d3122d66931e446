package backup

import (
	"encoding/json"
	"testing"
)

// memProvider is a minimal in-memory Provider for exercising
// BackupService/RestoreService without a real core.Instance.
type memProvider struct {
	data map[EntityType][]json.RawMessage
}

func newMemProvider() *memProvider {
	return &memProvider{data: map[EntityType][]json.RawMessage{}}
}

func (p *memProvider) Fetch(et EntityType) ([]json.RawMessage, error) {
	return p.data[et], nil
}

func (p *memProvider) Exists(et EntityType, id string) (bool, error) {
	for _, raw := range p.data[et] {
		gotID, _ := p.IDOf(et, raw)
		if gotID == id {
			return true, nil
		}
	}
	return false, nil
}

func (p *memProvider) Append(et EntityType, id string, data json.RawMessage) error {
	p.data[et] = append(p.data[et], data)
	return nil
}

func (p *memProvider) IDOf(et EntityType, data json.RawMessage) (string, error) {
	var v struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return "", err
	}
	return v.ID, nil
}

func rec(id string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"id": id})
	return b
}

func newTestEnv(t *testing.T) (*Repository, *memProvider) {
	t.Helper()
	t.Setenv("LIBERVIA_BACKUP_PEPPER", "a-sufficiently-long-pepper-value")
	return NewRepository(t.TempDir()), newMemProvider()
}

func TestBackupRoundTrip_VerifiesClean(t *testing.T) {
	repo, provider := newTestEnv(t)
	provider.data[EntityReviewCases] = []json.RawMessage{rec("r1"), rec("r2")}

	svc := NewService(repo, provider, nil)
	snap, err := svc.Create("acme", []EntityType{EntityReviewCases})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := VerifyIntegrity(snap); err != nil {
		t.Fatalf("expected clean backup to verify, got %v", err)
	}
}

func TestBackupTamper_DetectedAtEveryLevel(t *testing.T) {
	cases := []string{"data", "dataHash", "contentHash", "signature"}
	for _, field := range cases {
		t.Run(field, func(t *testing.T) {
			repo, provider := newTestEnv(t)
			provider.data[EntityReviewCases] = []json.RawMessage{rec("r1")}
			svc := NewService(repo, provider, nil)
			snap, err := svc.Create("acme", []EntityType{EntityReviewCases})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}

			switch field {
			case "data":
				snap.Entities[0].Data[0] = rec("tampered")
			case "dataHash":
				snap.Entities[0].DataHash = flipHex(snap.Entities[0].DataHash)
			case "contentHash":
				snap.ContentHash = flipHex(snap.ContentHash)
			case "signature":
				snap.Signature = flipHex(snap.Signature)
			}

			if err := VerifyIntegrity(snap); err == nil {
				t.Fatalf("expected tampering %s to be detected", field)
			}
		})
	}
}

func flipHex(s string) string {
	b := []byte(s)
	if b[0] == 'a' {
		b[0] = 'b'
	} else {
		b[0] = 'a'
	}
	return string(b)
}

func TestRestore_AppendOnlyIdempotent(t *testing.T) {
	repo, provider := newTestEnv(t)
	provider.data[EntityReviewCases] = []json.RawMessage{rec("r1"), rec("r2")}
	svc := NewService(repo, provider, nil)
	snap, err := svc.Create("acme", []EntityType{EntityReviewCases})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	target := newMemProvider()
	rs := NewRestoreService(repo, target, nil)

	r1, err := rs.RestoreSnapshot(snap, RestoreOptions{Mode: ModeEffective})
	if err != nil {
		t.Fatalf("first restore: %v", err)
	}
	if r1.TotalAppended != 2 {
		t.Fatalf("expected 2 appended on first restore, got %d", r1.TotalAppended)
	}

	r2, err := rs.RestoreSnapshot(snap, RestoreOptions{Mode: ModeEffective})
	if err != nil {
		t.Fatalf("second restore: %v", err)
	}
	if r2.TotalAppended != 0 || r2.TotalAlreadyExists != 2 {
		t.Fatalf("expected second restore to be a no-op append, got %+v", r2)
	}
	if len(target.data[EntityReviewCases]) != 2 {
		t.Fatalf("expected target to still have exactly 2 records, got %d", len(target.data[EntityReviewCases]))
	}
}

func TestRestore_TamperedContentHashRejected(t *testing.T) {
	repo, provider := newTestEnv(t)
	provider.data[EntityReviewCases] = []json.RawMessage{rec("r1")}
	svc := NewService(repo, provider, nil)
	snap, err := svc.Create("acme", []EntityType{EntityReviewCases})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	snap.ContentHash = flipHex(snap.ContentHash)

	rs := NewRestoreService(repo, newMemProvider(), nil)
	_, err = rs.RestoreSnapshot(snap, RestoreOptions{Mode: ModeDryRun})
	if err == nil {
		t.Fatal("expected restore to reject tampered contentHash")
	}
}

func TestRestore_DryRunDoesNotMutate(t *testing.T) {
	repo, provider := newTestEnv(t)
	provider.data[EntityReviewCases] = []json.RawMessage{rec("r1")}
	svc := NewService(repo, provider, nil)
	snap, err := svc.Create("acme", []EntityType{EntityReviewCases})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	target := newMemProvider()
	rs := NewRestoreService(repo, target, nil)

	result, err := rs.RestoreSnapshot(snap, RestoreOptions{Mode: ModeDryRun})
	if err != nil {
		t.Fatalf("RestoreSnapshot: %v", err)
	}
	if result.TotalAppended != 1 {
		t.Fatalf("expected dry-run to report 1 would-be-appended, got %d", result.TotalAppended)
	}
	if len(target.data[EntityReviewCases]) != 0 {
		t.Fatal("dry-run must not mutate the target store")
	}
}

func TestDRService_RequiresConfirmationBeforeRestore(t *testing.T) {
	repo, provider := newTestEnv(t)
	provider.data[EntityReviewCases] = []json.RawMessage{rec("r1")}
	svc := NewService(repo, provider, nil)
	snap, err := svc.Create("acme", []EntityType{EntityReviewCases})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rs := NewRestoreService(repo, newMemProvider(), nil)
	dr := NewDRService(rs, nil)

	proc, err := dr.Start(ProcedureTotalNodeLoss, snap.Metadata.BackupID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := dr.ConfirmAndExecute(proc, snap); err == nil {
		t.Fatal("expected ConfirmAndExecute to fail before reaching await_confirmation")
	}

	if err := dr.AdvanceToConfirmation(proc); err != nil {
		t.Fatalf("AdvanceToConfirmation: %v", err)
	}

	result, err := dr.ConfirmAndExecute(proc, snap)
	if err != nil {
		t.Fatalf("ConfirmAndExecute: %v", err)
	}
	if result.TotalAppended != 1 {
		t.Fatalf("expected 1 record appended by DR restore, got %d", result.TotalAppended)
	}
	if proc.Status != StepCompleted {
		t.Fatalf("expected procedure completed, got %s", proc.Status)
	}
}
