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

// Package checkpoint persists per-(source, entity type) sync cursors.
package checkpoint

import (
	"github.com/aroggek/netbox-connector/pkg/models"
)

// Store loads and commits checkpoints. Commit is atomic: it either fully
// persists the new checkpoint or leaves the previous one observable.
//
// The orchestrator guarantees Commit is never called concurrently for the
// same (source, entity type) key.
type Store interface {
	Load(sourceID string, entity models.EntityType) (*models.Checkpoint, bool, error)
	Commit(sourceID string, entity models.EntityType, cp *models.Checkpoint) error
}
