// Package modelconfig resolves user-facing model ids to a base model and
// parameter overrides.
package modelconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"openaigateway/internal/core"
	"openaigateway/internal/util"

	"gopkg.in/yaml.v3"
)

// FileStore serves model configurations loaded from a JSON or YAML file.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	configs map[string]core.ModelConfig
}

// NewFileStore loads path. The format follows the extension: .yaml/.yml or JSON.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path}
	if err := fs.Reload(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Reload re-reads the configuration file.
func (fs *FileStore) Reload() error {
	records, err := LoadFile(fs.path)
	if err != nil {
		return err
	}
	configs := make(map[string]core.ModelConfig, len(records))
	for _, record := range records {
		configs[record.ID] = record
	}

	fs.mu.Lock()
	fs.configs = configs
	fs.mu.Unlock()
	return nil
}

func (fs *FileStore) Get(_ context.Context, modelID string) (*core.ModelConfig, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	cfg, ok := fs.configs[modelID]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

// Len returns the number of configured models.
func (fs *FileStore) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.configs)
}

// LoadFile decodes a list of model configurations.
func LoadFile(path string) ([]core.ModelConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path from config, not user input
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []core.ModelConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &records)
	default:
		err = util.UnmarshalJSON(data, &records)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	valid := records[:0]
	for _, record := range records {
		if strings.TrimSpace(record.ID) == "" {
			continue
		}
		valid = append(valid, record)
	}
	return valid, nil
}

// MultiStore consults stores in order and returns the first hit.
type MultiStore []core.ModelConfigStore

func (m MultiStore) Get(ctx context.Context, modelID string) (*core.ModelConfig, error) {
	for _, store := range m {
		cfg, err := store.Get(ctx, modelID)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			return cfg, nil
		}
	}
	return nil, nil
}

type reloader interface {
	Reload() error
}

// Reload re-reads every member store that can reload. It stops at the first error.
func (m MultiStore) Reload() error {
	for _, store := range m {
		if r, ok := store.(reloader); ok {
			if err := r.Reload(); err != nil {
				return err
			}
		}
	}
	return nil
}
