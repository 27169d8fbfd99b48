package sync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aroggek/netbox-connector/pkg/models"
	"github.com/aroggek/netbox-connector/pkg/netbox"
)

// PageIterator yields one page of raw records per call; ok=false signals
// the end of the sequence.
type PageIterator interface {
	Next(ctx context.Context) ([]json.RawMessage, bool, error)
}

// PageSource starts a lazy paginated fetch for one entity type. The
// checkpoint, when present, lets the source skip records already applied.
type PageSource interface {
	Fetch(entity models.EntityType, since *models.Checkpoint) PageIterator
}

// NormalizeFunc converts one raw record into the canonical shape.
type NormalizeFunc func(models.EntityType, json.RawMessage) (*models.CanonicalRecord, error)

// Clock defines time operations so tests can drive the polling loop.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
}

// Ticker is the tick channel used by the polling loop.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// NetboxPageSource adapts a netbox.Client to the PageSource interface.
func NetboxPageSource(c *netbox.Client) PageSource {
	return netboxSource{c: c}
}

type netboxSource struct {
	c *netbox.Client
}

func (n netboxSource) Fetch(entity models.EntityType, since *models.Checkpoint) PageIterator {
	return n.c.Fetch(entity, since)
}
