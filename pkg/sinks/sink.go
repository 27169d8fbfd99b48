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

// Package sinks applies batches of canonical records to the three output
// backends: an append-only event stream, a keyed lookup table, and a
// document collection.
package sinks

import (
	"context"

	"github.com/aroggek/netbox-connector/pkg/models"
)

// Sink applies one batch of canonical records for one entity type.
//
// Implementations attempt every record: an individual write failure does
// not abort the batch and is reported in the Outcome instead of the error
// return, which is reserved for failures that prevent the batch from being
// attempted at all. The keyed sinks upsert by (entity type, id) and never
// remove rows absent from a batch, since the inventory source does not
// reliably signal deletions.
type Sink interface {
	Name() string
	Apply(ctx context.Context, entity models.EntityType, records []*models.CanonicalRecord) (*Outcome, error)
}

// Outcome reports what happened to a batch.
type Outcome struct {
	Applied int
	Failed  []RecordError
}

// Ok reports whether every record applied.
func (o *Outcome) Ok() bool {
	return len(o.Failed) == 0
}

// RecordError names one record that failed to apply.
type RecordError struct {
	ID  string
	Err error
}
