package backup

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/libervia/gateway/internal/eventlog"
)

// Callback receives lifecycle events from BackupService/RestoreService/
// DRService. Implementations (e.g. integration.SlackAdapter) may be nil,
// in which case events are simply dropped.
type Callback interface {
	OnBackupCreated(tenantID, backupID string, createdAt time.Time)
	OnRestoreRejected(tenantID, backupID, reason string)
	OnRestoreExecuted(tenantID, backupID string, appended, alreadyExists int)
}

// Service is BackupService: snapshot creation over a pluggable Provider.
type Service struct {
	repo     *Repository
	provider Provider
	callback Callback
}

// NewService constructs a BackupService for one tenant's provider.
func NewService(repo *Repository, provider Provider, callback Callback) *Service {
	return &Service{repo: repo, provider: provider, callback: callback}
}

// Create builds, signs, and persists a snapshot of tenantID covering
// includeEntities (defaulting to every entity type if empty).
func (s *Service) Create(tenantID string, includeEntities []EntityType) (*Snapshot, error) {
	if len(includeEntities) == 0 {
		includeEntities = []EntityType{
			EntityEventLog, EntityObservacoesDeConsequencia,
			EntityAutonomyMandates, EntityReviewCases, EntityTenantRegistry,
		}
	}

	entities := make([]EntityRecord, 0, len(includeEntities))
	counts := make(map[EntityType]int, len(includeEntities))
	var lastEventID, lastEventHash string

	for _, et := range includeEntities {
		data, err := s.provider.Fetch(et)
		if err != nil {
			return nil, fmt.Errorf("fetching entity %s: %w", et, err)
		}
		dataHash, err := hashCanonical(data)
		if err != nil {
			return nil, fmt.Errorf("hashing entity %s: %w", et, err)
		}
		entities = append(entities, EntityRecord{EntityType: et, Data: data, DataHash: dataHash})
		counts[et] = len(data)

		if et == EntityEventLog && len(data) > 0 {
			var last eventlog.Entry
			if err := json.Unmarshal(data[len(data)-1], &last); err == nil {
				lastEventID = last.ID
				lastEventHash = last.CurrentHash
			}
		}
	}

	createdAt := time.Now().UTC()
	metadata := Metadata{
		BackupID:         fmt.Sprintf("backup_%s_%s", tenantID, createdAt.Format("20060102-150405")),
		CreatedAt:        createdAt,
		TenantID:         tenantID,
		FormatVersion:    FormatVersion,
		IncludedEntities: includeEntities,
		EntityCounts:     counts,
		LastEventID:      lastEventID,
		LastEventHash:    lastEventHash,
	}

	contentHash, err := computeContentHash(metadata, entities)
	if err != nil {
		return nil, fmt.Errorf("computing content hash: %w", err)
	}
	signature, err := sign(contentHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackupConfigMissing, err)
	}

	snap := &Snapshot{Metadata: metadata, Entities: entities, ContentHash: contentHash, Signature: signature}

	backupID, err := s.repo.Save(snap)
	if err != nil {
		return nil, err
	}
	snap.Metadata.BackupID = backupID

	if s.callback != nil {
		s.callback.OnBackupCreated(tenantID, backupID, metadata.CreatedAt)
	}
	return snap, nil
}
