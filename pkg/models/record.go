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

package models

import (
	"encoding/json"
	"time"
)

// CanonicalRecord is the single record shape every raw entity schema is
// normalized into. ID plus Entity uniquely identify a logical record across
// all sinks and form the upsert key.
type CanonicalRecord struct {
	Entity EntityType `json:"entity_type"`
	ID     string     `json:"id"`

	// Fields holds the fixed per-type canonical field set. Every field of
	// the set is present, possibly as "", so sinks always see a stable
	// column set for a given entity type.
	Fields map[string]string `json:"fields"`

	// LastUpdated is the source-side modification time, used for staleness
	// comparison and checkpoint ordering. Zero when the source did not
	// report one.
	LastUpdated time.Time `json:"last_updated"`

	// Tags and CustomFields are opaque pass-through bags.
	Tags         json.RawMessage `json:"tags,omitempty"`
	CustomFields json.RawMessage `json:"custom_fields,omitempty"`
}

// Key returns the cross-sink identity of the record.
func (r *CanonicalRecord) Key() string {
	return string(r.Entity) + "/" + r.ID
}

// Checkpoint holds the durable per-(source, entity type) sync state. It is
// advanced only after a full page set has been normalized and applied.
type Checkpoint struct {
	SourceID string     `json:"source_id"`
	Entity   EntityType `json:"entity_type"`

	// Cursor is the server-side page continuation token, when the API
	// hands one out. NetBox offset pagination does not survive across
	// runs, so this stays empty for NetBox sources.
	Cursor string `json:"cursor,omitempty"`

	// LastUpdated is the newest record modification time applied so far.
	LastUpdated time.Time `json:"last_updated"`

	LastRun time.Time `json:"last_run"`
}
