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
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/aroggek/netbox-connector/pkg/logger"
	"github.com/aroggek/netbox-connector/pkg/models"
)

// kvBucket is the slice of jetstream.KeyValue the document sink needs;
// narrowed so tests can fake it.
type kvBucket interface {
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

// KVStoreSink writes each record as a JSON document into a JetStream KV
// bucket, keyed by entity type and identifier. Put is an idempotent
// replace, which gives the same upsert-by-key semantics as the lookup
// table. Documents absent from a batch are left untouched.
type KVStoreSink struct {
	kv  kvBucket
	log logger.Logger
}

// NewKVStoreSink creates or binds the KV bucket over an existing NATS
// connection.
func NewKVStoreSink(ctx context.Context, nc *nats.Conn, bucket string, log logger.Logger) (*KVStoreSink, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket})
	if err != nil {
		return nil, fmt.Errorf("failed to create KV bucket %s: %w", bucket, err)
	}

	return &KVStoreSink{kv: kv, log: log}, nil
}

func (*KVStoreSink) Name() string { return "kvstore" }

func (s *KVStoreSink) Apply(ctx context.Context, entity models.EntityType, records []*models.CanonicalRecord) (*Outcome, error) {
	outcome := &Outcome{}

	for _, rec := range records {
		doc, err := json.Marshal(rec)
		if err != nil {
			outcome.Failed = append(outcome.Failed, RecordError{ID: rec.ID, Err: err})
			continue
		}

		if _, err := s.kv.Put(ctx, rec.Key(), doc); err != nil {
			s.log.Warn().
				Err(err).
				Str("entity_type", string(entity)).
				Str("record_id", rec.ID).
				Msg("failed to put inventory document")

			outcome.Failed = append(outcome.Failed, RecordError{ID: rec.ID, Err: err})

			continue
		}

		outcome.Applied++
	}

	return outcome, nil
}

var _ Sink = (*KVStoreSink)(nil)
