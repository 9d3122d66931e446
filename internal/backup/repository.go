package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio/v2"
)

// Repository persists snapshots under <baseDir>/backups/ as
// backup_<tenantId>_<YYYYMMDD-HHmmss>.json, writing atomically via a
// temp-file-then-rename protocol serialized by an internal write queue so
// concurrent saves never produce a torn file.
type Repository struct {
	baseDir string

	mu sync.Mutex
}

// NewRepository roots a Repository at baseDir (the gateway's base
// directory; snapshots live under <baseDir>/backups).
func NewRepository(baseDir string) *Repository {
	return &Repository{baseDir: baseDir}
}

func (r *Repository) dir() string {
	return filepath.Join(r.baseDir, "backups")
}

// Save persists snap atomically and returns the backupId it was stored
// under (snap.Metadata.BackupID, if set, is reused; otherwise generated).
func (r *Repository) Save(snap *Snapshot) (string, error) {
	if snap.Metadata.BackupID == "" {
		snap.Metadata.BackupID = fmt.Sprintf("backup_%s_%s", snap.Metadata.TenantID, time.Now().UTC().Format("20060102-150405"))
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling snapshot: %w", err)
	}

	// The write queue here is a single mutex rather than the tenant
	// registry's chained-writes pattern: backup saves are infrequent and
	// don't need fire-and-forget semantics, only mutual exclusion against
	// torn concurrent writes to the backups directory.
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.dir(), 0o755); err != nil {
		return "", fmt.Errorf("creating backups dir: %w", err)
	}
	path := filepath.Join(r.dir(), snap.Metadata.BackupID+".json")
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("persisting snapshot: %w", err)
	}
	return snap.Metadata.BackupID, nil
}

// Load reads a snapshot by backup id.
func (r *Repository) Load(backupID string) (*Snapshot, error) {
	path := filepath.Join(r.dir(), backupID+".json")
	return r.loadPath(path)
}

// LoadPath reads a snapshot from an explicit file path.
func (r *Repository) LoadPath(path string) (*Snapshot, error) {
	return r.loadPath(path)
}

func (r *Repository) loadPath(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackupNotFound, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackupFormatInvalid, err)
	}
	if majorVersion(snap.Metadata.FormatVersion) != majorVersion(FormatVersion) {
		return nil, fmt.Errorf("%w: backup format %s incompatible with %s", ErrBackupFormatInvalid, snap.Metadata.FormatVersion, FormatVersion)
	}
	return &snap, nil
}

// ListForTenant returns every backup id stored for tenantID, most recent
// first.
func (r *Repository) ListForTenant(tenantID string) ([]string, error) {
	entries, err := os.ReadDir(r.dir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing backups dir: %w", err)
	}
	prefix := fmt.Sprintf("backup_%s_", tenantID)
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".tmp") {
			continue
		}
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

func majorVersion(v string) string {
	parts := strings.SplitN(v, ".", 2)
	return parts[0]
}
