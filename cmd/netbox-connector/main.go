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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/aroggek/netbox-connector/pkg/checkpoint"
	"github.com/aroggek/netbox-connector/pkg/config"
	"github.com/aroggek/netbox-connector/pkg/logger"
	"github.com/aroggek/netbox-connector/pkg/models"
	"github.com/aroggek/netbox-connector/pkg/netbox"
	"github.com/aroggek/netbox-connector/pkg/normalize"
	"github.com/aroggek/netbox-connector/pkg/sinks"
	"github.com/aroggek/netbox-connector/pkg/sync"
)

func main() {
	configPath := flag.String("config", "/etc/netbox-connector/config.json", "Path to config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("netbox-connector failed: %v", err)
	}
}

func run(ctx context.Context, configPath string) error {
	var cfg sync.Config

	if err := config.NewLoader().LoadAndValidate(ctx, configPath, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	lg, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	store, err := checkpoint.NewFileStore(cfg.CheckpointDir)
	if err != nil {
		return err
	}

	var nc *nats.Conn

	if needsNATS(&cfg) {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer nc.Close()
	}

	var lookupSink *sinks.LookupSink

	if cfg.Postgres != nil {
		pool, err := sinks.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer pool.Close()

		lookupSink = sinks.NewLookupSink(pool, lg)
		if err := lookupSink.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	jobs, err := buildJobs(ctx, &cfg, nc, lookupSink, lg)
	if err != nil {
		return err
	}

	svc, err := sync.New(&cfg, jobs, store, normalize.Normalize, nil, lg)
	if err != nil {
		return err
	}

	lg.Info().Int("sources", len(jobs)).Msg("netbox-connector started")

	return svc.Start(ctx)
}

func buildJobs(
	ctx context.Context,
	cfg *sync.Config,
	nc *nats.Conn,
	lookupSink *sinks.LookupSink,
	lg logger.Logger,
) ([]*sync.Job, error) {
	jobs := make([]*sync.Job, 0, len(cfg.Sources))

	for name, src := range cfg.Sources {
		client := netbox.NewClient(src, lg.WithComponent("netbox"))

		var (
			sink sinks.Sink
			err  error
		)

		switch src.OutputMode {
		case models.OutputEvents:
			sink, err = sinks.NewEventSink(ctx, nc, cfg.EventStream, name, lg)
		case models.OutputKVStore:
			sink, err = sinks.NewKVStoreSink(ctx, nc, cfg.KVBucket, lg)
		case models.OutputLookup:
			sink = lookupSink
		}

		if err != nil {
			return nil, fmt.Errorf("source %s: %w", name, err)
		}

		jobs = append(jobs, &sync.Job{
			Name:   name,
			Config: src,
			Source: sync.NetboxPageSource(client),
			Sink:   sink,
		})
	}

	return jobs, nil
}

func needsNATS(cfg *sync.Config) bool {
	for _, src := range cfg.Sources {
		if src.OutputMode == models.OutputEvents || src.OutputMode == models.OutputKVStore {
			return true
		}
	}

	return false
}
