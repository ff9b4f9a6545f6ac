// Package kbfile reads and writes a knowledge base as a single YAML file.
package kbfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/expert/pkg/expert/store"
)

// Save writes a snapshot to path as YAML.
func Save(path string, snap store.Snapshot) error {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a snapshot from a YAML file.
func Load(path string) (store.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return store.Snapshot{}, err
	}
	var snap store.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return store.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
