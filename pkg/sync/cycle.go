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

package sync

import (
	"context"
	"errors"
	"time"

	"github.com/aroggek/netbox-connector/pkg/models"
	"github.com/aroggek/netbox-connector/pkg/netbox"
)

// cycleStats counts what one cycle did, for the completion log line.
type cycleStats struct {
	fetched   int
	malformed int
	deduped   int
	applied   int
}

// runCycle performs one fetch → normalize → apply → commit pass for a
// single (source, entity type) key. The per-key lock is held from fetch
// through commit, so cycles for the same key are strictly serialized; a
// tick that finds the previous cycle still in flight is skipped.
//
// The checkpoint is committed only after the sink confirms the full batch
// applied. Any failure leaves it untouched, so the next tick reprocesses
// everything the failed cycle touched (at-least-once, never silent loss).
func (s *Service) runCycle(ctx context.Context, job *Job, entity models.EntityType) {
	key := job.Name + "/" + string(entity)

	mu := s.lockFor(key)
	if !mu.TryLock() {
		s.log.Debug().
			Str("source", job.Name).
			Str("entity_type", string(entity)).
			Msg("previous cycle still in flight, skipping tick")

		return
	}
	defer mu.Unlock()

	started := s.clock.Now()

	cp, _, err := s.store.Load(job.Name, entity)
	if err != nil {
		s.logCycleFailure(job, entity, "loading", err)
		return
	}

	records, maxUpdated, stats, err := s.collect(ctx, job, entity, cp)
	if err != nil {
		stage := "fetching"
		if errors.Is(err, netbox.ErrAuth) {
			stage = "authenticating"
		}

		s.logCycleFailure(job, entity, stage, err)

		return
	}

	outcome, err := job.Sink.Apply(ctx, entity, records)
	if err != nil {
		s.logCycleFailure(job, entity, "applying", err)
		return
	}

	stats.applied = outcome.Applied

	if !outcome.Ok() {
		// Already-applied records stay applied; withholding the commit
		// makes the next tick reprocess the failed ones.
		s.log.Warn().
			Str("source", job.Name).
			Str("entity_type", string(entity)).
			Str("sink", job.Sink.Name()).
			Int("applied", outcome.Applied).
			Int("failed", len(outcome.Failed)).
			Msg("partial sink failure, checkpoint not advanced")

		return
	}

	// A cancelled cycle must not commit.
	if ctx.Err() != nil {
		s.logCycleFailure(job, entity, "applying", ctx.Err())
		return
	}

	newCp := &models.Checkpoint{
		SourceID:    job.Name,
		Entity:      entity,
		LastUpdated: maxUpdated,
		LastRun:     s.clock.Now(),
	}

	if err := s.store.Commit(job.Name, entity, newCp); err != nil {
		s.logCycleFailure(job, entity, "committing", err)
		return
	}

	s.log.Info().
		Str("source", job.Name).
		Str("entity_type", string(entity)).
		Str("sink", job.Sink.Name()).
		Int("fetched", stats.fetched).
		Int("malformed", stats.malformed).
		Int("deduped", stats.deduped).
		Int("applied", stats.applied).
		Dur("duration", s.clock.Now().Sub(started)).
		Msg("sync cycle complete")
}

// collect drives the page iterator to exhaustion, normalizing records as
// pages arrive. Malformed records are skipped and counted. In events mode
// records at or before the checkpoint timestamp are deduped here, since
// the event sink is append-only and has no key to upsert by.
func (s *Service) collect(
	ctx context.Context,
	job *Job,
	entity models.EntityType,
	cp *models.Checkpoint,
) ([]*models.CanonicalRecord, time.Time, *cycleStats, error) {
	stats := &cycleStats{}

	var maxUpdated time.Time
	if cp != nil {
		maxUpdated = cp.LastUpdated
	}

	records := make([]*models.CanonicalRecord, 0)
	it := job.Source.Fetch(entity, cp)

	for {
		page, ok, err := it.Next(ctx)
		if err != nil {
			return nil, time.Time{}, stats, err
		}

		if !ok {
			break
		}

		stats.fetched += len(page)

		for _, raw := range page {
			rec, err := s.normalize(entity, raw)
			if err != nil {
				stats.malformed++

				s.log.Debug().
					Err(err).
					Str("source", job.Name).
					Str("entity_type", string(entity)).
					Msg("skipping malformed record")

				continue
			}

			if job.Config.OutputMode == models.OutputEvents && cp != nil &&
				!rec.LastUpdated.IsZero() && !rec.LastUpdated.After(cp.LastUpdated) {
				stats.deduped++
				continue
			}

			if rec.LastUpdated.After(maxUpdated) {
				maxUpdated = rec.LastUpdated
			}

			records = append(records, rec)
		}
	}

	return records, maxUpdated, stats, nil
}

func (s *Service) logCycleFailure(job *Job, entity models.EntityType, stage string, err error) {
	s.log.Error().
		Err(err).
		Str("source", job.Name).
		Str("entity_type", string(entity)).
		Str("stage", stage).
		Msg("sync cycle failed, will retry next tick")
}
