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
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/aroggek/netbox-connector/pkg/logger"
	"github.com/aroggek/netbox-connector/pkg/models"
)

const eventSubjectPrefix = "inventory.events."

// jetstreamPublisher is the slice of jetstream.JetStream the event sink
// needs; narrowed so tests can fake it.
type jetstreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// InventoryEvent is the envelope published per record, one event per
// canonical record, tagged with the entity type.
type InventoryEvent struct {
	SpecVersion string                  `json:"specversion"`
	ID          string                  `json:"id"`
	Source      string                  `json:"source"`
	Type        string                  `json:"type"`
	Subject     string                  `json:"subject"`
	Time        time.Time               `json:"time"`
	Data        *models.CanonicalRecord `json:"data"`
}

// EventSink publishes each record as one append-only event on a NATS
// JetStream stream. There is no upsert and no identifier-based dedup here;
// the checkpoint store is the only dedup mechanism for this mode.
type EventSink struct {
	js       jetstreamPublisher
	sourceID string
	log      logger.Logger
}

// NewEventSink creates the JetStream context over an existing connection
// and ensures the inventory stream exists.
func NewEventSink(ctx context.Context, nc *nats.Conn, streamName, sourceID string, log logger.Logger) (*EventSink, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.Stream(ctx, streamName)
	if err != nil {
		streamConfig := jetstream.StreamConfig{
			Name:     streamName,
			Subjects: []string{eventSubjectPrefix + ">"},
		}

		_, err = js.CreateOrUpdateStream(ctx, streamConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create or get stream %s: %w", streamName, err)
		}
	}

	return &EventSink{js: js, sourceID: sourceID, log: log}, nil
}

func (*EventSink) Name() string { return "events" }

func (s *EventSink) Apply(ctx context.Context, entity models.EntityType, records []*models.CanonicalRecord) (*Outcome, error) {
	outcome := &Outcome{}
	subject := eventSubjectPrefix + string(entity)

	for _, rec := range records {
		event := InventoryEvent{
			SpecVersion: "1.0",
			ID:          uuid.New().String(),
			Source:      "netbox-connector/" + s.sourceID,
			Type:        "com.netbox.inventory." + string(entity),
			Subject:     subject,
			Time:        time.Now(),
			Data:        rec,
		}

		payload, err := json.Marshal(event)
		if err != nil {
			outcome.Failed = append(outcome.Failed, RecordError{ID: rec.ID, Err: err})
			continue
		}

		if _, err := s.js.Publish(ctx, subject, payload); err != nil {
			s.log.Warn().
				Err(err).
				Str("entity_type", string(entity)).
				Str("record_id", rec.ID).
				Msg("failed to publish inventory event")

			outcome.Failed = append(outcome.Failed, RecordError{ID: rec.ID, Err: err})

			continue
		}

		outcome.Applied++
	}

	return outcome, nil
}

var _ Sink = (*EventSink)(nil)
