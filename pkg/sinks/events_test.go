package sinks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"github.com/aroggek/netbox-connector/pkg/logger"
	"github.com/aroggek/netbox-connector/pkg/models"
)

type publishedMsg struct {
	subject string
	payload []byte
}

type fakePublisher struct {
	published []publishedMsg
	failOn    map[string]error // record ID -> error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, payload []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	var event InventoryEvent
	if err := json.Unmarshal(payload, &event); err == nil && event.Data != nil {
		if err, ok := f.failOn[event.Data.ID]; ok {
			return nil, err
		}
	}

	f.published = append(f.published, publishedMsg{subject: subject, payload: payload})

	return &jetstream.PubAck{}, nil
}

func deviceRecord(id string) *models.CanonicalRecord {
	return &models.CanonicalRecord{
		Entity:      models.EntityDevice,
		ID:          id,
		Fields:      map[string]string{"name": "device-" + id},
		LastUpdated: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEventSink_PublishesOneEventPerRecord(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	sink := &EventSink{js: pub, sourceID: "netbox-prod", log: logger.NewTestLogger()}

	records := []*models.CanonicalRecord{deviceRecord("1"), deviceRecord("2"), deviceRecord("3")}

	outcome, err := sink.Apply(context.Background(), models.EntityDevice, records)
	require.NoError(t, err)
	require.True(t, outcome.Ok())
	require.Equal(t, 3, outcome.Applied)
	require.Len(t, pub.published, 3)

	for i, msg := range pub.published {
		require.Equal(t, "inventory.events.device", msg.subject)

		var event InventoryEvent

		require.NoError(t, json.Unmarshal(msg.payload, &event))
		require.Equal(t, "1.0", event.SpecVersion)
		require.NotEmpty(t, event.ID)
		require.Equal(t, "netbox-connector/netbox-prod", event.Source)
		require.Equal(t, "com.netbox.inventory.device", event.Type)
		require.Equal(t, records[i].ID, event.Data.ID)
	}
}

func TestEventSink_PartialPublishFailure(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{failOn: map[string]error{"2": errors.New("publish timeout")}}
	sink := &EventSink{js: pub, sourceID: "netbox-prod", log: logger.NewTestLogger()}

	records := []*models.CanonicalRecord{deviceRecord("1"), deviceRecord("2"), deviceRecord("3")}

	outcome, err := sink.Apply(context.Background(), models.EntityDevice, records)
	require.NoError(t, err)
	require.False(t, outcome.Ok())
	require.Equal(t, 2, outcome.Applied)
	require.Len(t, outcome.Failed, 1)
	require.Equal(t, "2", outcome.Failed[0].ID)
	require.Len(t, pub.published, 2)
}

func TestEventSink_EmptyBatch(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	sink := &EventSink{js: pub, sourceID: "netbox-prod", log: logger.NewTestLogger()}

	outcome, err := sink.Apply(context.Background(), models.EntityDevice, nil)
	require.NoError(t, err)
	require.True(t, outcome.Ok())
	require.Zero(t, outcome.Applied)
	require.Empty(t, pub.published)
}
