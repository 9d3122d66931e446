package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
)

// EntityStore is a generic keyed JSON-file store for one of the core's
// per-entity repositories (situacoes.json, episodios.json, decisoes.json,
// contratos.json, autonomy_mandates.json, review_cases.json, ...). The
// gateway treats the file's internal shape as opaque beyond the map keyed
// by entity id; only backup/restore needs to enumerate entries generically.
type EntityStore struct {
	path string

	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// OpenEntityStore loads (or initializes) the store at <dataDir>/<filename>.
func OpenEntityStore(dataDir, filename string) (*EntityStore, error) {
	path := filepath.Join(dataDir, filename)
	data, err := loadEntityFile(path)
	if err != nil {
		return nil, err
	}
	return &EntityStore{path: path, data: data}, nil
}

func loadEntityFile(path string) (map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading entity store %s: %w", path, err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decoding entity store %s: %w", path, err)
	}
	if m == nil {
		m = map[string]json.RawMessage{}
	}
	return m, nil
}

// Get returns the raw record for id, or false if absent.
func (s *EntityStore) Get(id string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[id]
	return v, ok
}

// Exists reports whether id is present.
func (s *EntityStore) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[id]
	return ok
}

// Put inserts or replaces id's record and persists atomically. Used by the
// core's own write paths; restore never calls this directly (it uses
// Append, which refuses to overwrite).
func (s *EntityStore) Put(id string, value json.RawMessage) error {
	s.mu.Lock()
	s.data[id] = value
	snapshot := s.cloneLocked()
	s.mu.Unlock()
	return persistEntityFile(s.path, snapshot)
}

// Append inserts id's record only if absent. Returns (false, nil) if id
// already exists, without modifying the store — the append-only contract
// backup/restore relies on.
func (s *EntityStore) Append(id string, value json.RawMessage) (bool, error) {
	s.mu.Lock()
	if _, exists := s.data[id]; exists {
		s.mu.Unlock()
		return false, nil
	}
	s.data[id] = value
	snapshot := s.cloneLocked()
	s.mu.Unlock()

	if err := persistEntityFile(s.path, snapshot); err != nil {
		return false, err
	}
	return true, nil
}

// All returns every record, keyed by id, as a snapshot safe to range over.
func (s *EntityStore) All() map[string]json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneLocked()
}

// Count returns the number of records in the store.
func (s *EntityStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *EntityStore) cloneLocked() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

func persistEntityFile(path string, data map[string]json.RawMessage) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling entity store: %w", err)
	}
	if err := renameio.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("persisting entity store %s: %w", path, err)
	}
	return nil
}
