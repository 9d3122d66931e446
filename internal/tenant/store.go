package tenant

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

const catalogVersion = 1

// catalogPath returns <baseDir>/config/tenants.json.
func catalogPath(baseDir string) string {
	return filepath.Join(baseDir, "config", "tenants.json")
}

// loadCatalog reads the durable tenant catalog, returning an empty one if
// the file doesn't exist yet.
func loadCatalog(baseDir string) (*catalog, error) {
	path := catalogPath(baseDir)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &catalog{Version: catalogVersion, Tenants: []*Tenant{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading tenant catalog: %w", err)
	}

	var c catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("malformed tenant catalog: %w", err)
	}
	if c.Tenants == nil {
		c.Tenants = []*Tenant{}
	}
	return &c, nil
}

// saveCatalog atomically persists the catalog: marshal, write to a temp
// file in the same directory, rename over the destination. A crash between
// those two steps leaves the previous file intact, never a partial one.
func saveCatalog(baseDir string, c *catalog) error {
	c.UpdatedAt = time.Now()

	dir := filepath.Dir(catalogPath(baseDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling tenant catalog: %w", err)
	}

	if err := renameio.WriteFile(catalogPath(baseDir), data, 0o644); err != nil {
		return fmt.Errorf("persisting tenant catalog: %w", err)
	}
	return nil
}
