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

package sinks

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aroggek/netbox-connector/pkg/logger"
	"github.com/aroggek/netbox-connector/pkg/models"
	"github.com/aroggek/netbox-connector/pkg/normalize"
)

// lookupTables maps entity types to their lookup table names.
var lookupTables = map[models.EntityType]string{
	models.EntityDevice: "netbox_devices",
	models.EntityVM:     "netbox_virtual_machines",
	models.EntityIP:     "netbox_ip_addresses",
	models.EntitySite:   "netbox_sites",
}

// pgxExecutor is the slice of pgxpool.Pool the lookup sink needs; narrowed
// so tests can fake it.
type pgxExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// LookupSink writes records as rows of one flat table per entity type,
// keyed by identifier. Applying a batch upserts matching keys and leaves
// rows for identifiers not present in the batch untouched: this is a sync
// of known records, not a mirror of deletions.
type LookupSink struct {
	db        pgxExecutor
	log       logger.Logger
	upsertSQL map[models.EntityType]string
}

func NewLookupSink(db pgxExecutor, log logger.Logger) *LookupSink {
	upserts := make(map[models.EntityType]string, len(lookupTables))
	for _, entity := range models.AllEntityTypes {
		upserts[entity] = buildUpsertSQL(entity)
	}

	return &LookupSink{db: db, log: log, upsertSQL: upserts}
}

func (*LookupSink) Name() string { return "lookup" }

// EnsureSchema creates the lookup tables when missing. Columns follow the
// canonical field set of each entity type.
func (s *LookupSink) EnsureSchema(ctx context.Context) error {
	for _, entity := range models.AllEntityTypes {
		if _, err := s.db.Exec(ctx, buildCreateTableSQL(entity)); err != nil {
			return fmt.Errorf("failed to ensure lookup table for %s: %w", entity, err)
		}
	}

	return nil
}

func (s *LookupSink) Apply(ctx context.Context, entity models.EntityType, records []*models.CanonicalRecord) (*Outcome, error) {
	outcome := &Outcome{}
	sql := s.upsertSQL[entity]
	fields := normalize.FieldSet(entity)

	// Records are written one statement at a time rather than through a
	// pipelined batch: a pipeline aborts the statements queued behind the
	// first failure, and the contract here is to attempt every record.
	for _, rec := range records {
		args := make([]any, 0, len(fields)+3)
		args = append(args, rec.ID)

		for _, f := range fields {
			args = append(args, rec.Fields[f])
		}

		args = append(args, nullableJSON(rec.Tags), nullableJSON(rec.CustomFields))

		if _, err := s.db.Exec(ctx, sql, args...); err != nil {
			s.log.Warn().
				Err(err).
				Str("entity_type", string(entity)).
				Str("record_id", rec.ID).
				Msg("failed to upsert lookup row")

			outcome.Failed = append(outcome.Failed, RecordError{ID: rec.ID, Err: err})

			continue
		}

		outcome.Applied++
	}

	return outcome, nil
}

// nullableJSON maps an absent opaque bag to SQL NULL instead of an empty
// byte slice, which jsonb would reject.
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}

	return raw
}

func buildCreateTableSQL(entity models.EntityType) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", lookupTables[entity])
	b.WriteString("    id TEXT PRIMARY KEY")

	for _, f := range normalize.FieldSet(entity) {
		fmt.Fprintf(&b, ",\n    %s TEXT NOT NULL DEFAULT ''", f)
	}

	b.WriteString(",\n    tags JSONB")
	b.WriteString(",\n    custom_fields JSONB")
	b.WriteString(",\n    synced_at TIMESTAMPTZ NOT NULL DEFAULT now()\n)")

	return b.String()
}

func buildUpsertSQL(entity models.EntityType) string {
	fields := normalize.FieldSet(entity)

	columns := make([]string, 0, len(fields)+3)
	columns = append(columns, "id")
	columns = append(columns, fields...)
	columns = append(columns, "tags", "custom_fields")

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	updates := make([]string, 0, len(columns))
	for _, col := range columns[1:] {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}

	updates = append(updates, "synced_at = now()")

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		lookupTables[entity],
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}

var _ Sink = (*LookupSink)(nil)
