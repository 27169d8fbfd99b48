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

// Package sync drives the polling cycles that reconcile inventory sources
// into their configured sinks.
package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aroggek/netbox-connector/pkg/checkpoint"
	"github.com/aroggek/netbox-connector/pkg/logger"
	"github.com/aroggek/netbox-connector/pkg/models"
	"github.com/aroggek/netbox-connector/pkg/sinks"
)

// Job binds one configured source to its page source and sink. Under the
// "all" selector the job expands into four independent entity sub-cycles
// sharing the same client but distinct checkpoint state.
type Job struct {
	Name   string
	Config *models.SourceConfig
	Source PageSource
	Sink   sinks.Sink

	entities []models.EntityType
}

// Service owns the polling loops. It is the only writer of the checkpoint
// store and the only caller of the sinks.
type Service struct {
	cfg       *Config
	jobs      []*Job
	store     checkpoint.Store
	clock     Clock
	normalize NormalizeFunc
	log       logger.Logger

	// locks serializes cycles per (source, entity type) key.
	locks sync.Map
}

// New validates the config and prepares the jobs. A nil clock selects the
// real one.
func New(cfg *Config, jobs []*Job, store checkpoint.Store, normalize NormalizeFunc, clock Clock, log logger.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if clock == nil {
		clock = realClock{}
	}

	for _, job := range jobs {
		entities, err := job.Config.Entities()
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", job.Name, err)
		}

		job.entities = entities
	}

	return &Service{
		cfg:       cfg,
		jobs:      jobs,
		store:     store,
		clock:     clock,
		normalize: normalize,
		log:       log.WithComponent("sync"),
	}, nil
}

// Start runs one polling loop per job until ctx is cancelled. Each loop
// syncs immediately, then on every interval tick.
func (s *Service) Start(ctx context.Context) error {
	var wg sync.WaitGroup

	for _, job := range s.jobs {
		wg.Add(1)

		go func(job *Job) {
			defer wg.Done()
			s.runLoop(ctx, job)
		}(job)
	}

	wg.Wait()

	return ctx.Err()
}

func (s *Service) runLoop(ctx context.Context, job *Job) {
	interval := time.Duration(job.Config.PollInterval)
	if interval == 0 {
		interval = time.Duration(s.cfg.PollInterval)
	}

	s.log.Info().
		Str("source", job.Name).
		Str("output_mode", string(job.Config.OutputMode)).
		Dur("interval", interval).
		Msg("starting sync loop")

	s.SyncJob(ctx, job)

	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.SyncJob(ctx, job)
		}
	}
}

// SyncOnce runs a single synchronization pass over every job. Exposed for
// testing and one-shot runs.
func (s *Service) SyncOnce(ctx context.Context) {
	for _, job := range s.jobs {
		s.SyncJob(ctx, job)
	}
}

// SyncJob runs one cycle per entity type of the job. Entity sub-cycles are
// independent: they run concurrently and a failure in one neither blocks
// nor rolls back the others.
func (s *Service) SyncJob(ctx context.Context, job *Job) {
	var wg sync.WaitGroup

	for _, entity := range job.entities {
		wg.Add(1)

		go func(entity models.EntityType) {
			defer wg.Done()
			s.runCycle(ctx, job, entity)
		}(entity)
	}

	wg.Wait()
}

func (s *Service) lockFor(key string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
