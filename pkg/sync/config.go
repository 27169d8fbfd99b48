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
	"errors"
	"fmt"
	"time"

	"github.com/aroggek/netbox-connector/pkg/logger"
	"github.com/aroggek/netbox-connector/pkg/models"
)

const (
	defaultPollInterval  = 5 * time.Minute
	defaultNATSURL       = "nats://localhost:4222"
	defaultCheckpointDir = "/var/lib/netbox-connector/checkpoints"
	defaultEventStream   = "inventory_events"
	defaultKVBucket      = "netbox_inventory"
)

var (
	errMissingSources    = errors.New("at least one source must be defined")
	errMissingFields     = errors.New("source missing required fields (endpoint, api_token)")
	errUnknownOutputMode = errors.New("unknown output mode")
	errMissingPostgres   = errors.New("postgres config is required for lookup output mode")
)

type Config struct {
	Sources       map[string]*models.SourceConfig `json:"sources"`
	NATSURL       string                          `json:"nats_url"`
	Postgres      *models.PostgresConfig          `json:"postgres,omitempty"`
	CheckpointDir string                          `json:"checkpoint_dir"`
	PollInterval  models.Duration                 `json:"poll_interval"`
	EventStream   string                          `json:"event_stream,omitempty"`
	KVBucket      string                          `json:"kv_bucket,omitempty"`
	Logging       logger.Config                   `json:"logging"`
}

func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return errMissingSources
	}

	if c.NATSURL == "" {
		c.NATSURL = defaultNATSURL
	}

	if time.Duration(c.PollInterval) == 0 {
		c.PollInterval = models.Duration(defaultPollInterval)
	}

	if c.CheckpointDir == "" {
		c.CheckpointDir = defaultCheckpointDir
	}

	if c.EventStream == "" {
		c.EventStream = defaultEventStream
	}

	if c.KVBucket == "" {
		c.KVBucket = defaultKVBucket
	}

	needsPostgres := false

	for name, src := range c.Sources {
		if src.Endpoint == "" || src.Credentials["api_token"] == "" {
			return fmt.Errorf("source %s: %w", name, errMissingFields)
		}

		if src.EntityTypes == "" {
			src.EntityTypes = "all"
		}

		if _, err := src.Entities(); err != nil {
			return fmt.Errorf("source %s: %w", name, err)
		}

		switch src.OutputMode {
		case models.OutputEvents, models.OutputKVStore:
		case models.OutputLookup:
			needsPostgres = true
		default:
			return fmt.Errorf("source %s: %w: %q", name, errUnknownOutputMode, src.OutputMode)
		}
	}

	if needsPostgres && c.Postgres == nil {
		return errMissingPostgres
	}

	return nil
}
