/*
 * Copyright 2026 The netbox-connector Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aroggek/netbox-connector/pkg/models"
)

// FileStore keeps one JSON file per (source, entity type) key under a
// state directory. Commits write to a temp file and rename it into place,
// so a crash mid-commit leaves the previous checkpoint intact.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint dir: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(sourceID string, entity models.EntityType) string {
	return filepath.Join(s.dir, fmt.Sprintf("checkpoint_%s_%s.json", sourceID, entity))
}

// Load returns the stored checkpoint, or found=false when no cycle has
// committed for the key yet.
func (s *FileStore) Load(sourceID string, entity models.EntityType) (*models.Checkpoint, bool, error) {
	data, err := os.ReadFile(s.path(sourceID, entity))
	if os.IsNotExist(err) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp models.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, false, fmt.Errorf("failed to decode checkpoint: %w", err)
	}

	return &cp, true, nil
}

// Commit atomically replaces the checkpoint for the key.
func (s *FileStore) Commit(sourceID string, entity models.EntityType, cp *models.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "checkpoint_*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write temp checkpoint: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to close temp checkpoint: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path(sourceID, entity)); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}

	return nil
}

var _ Store = (*FileStore)(nil)
