package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aroggek/netbox-connector/pkg/logger"
	"github.com/aroggek/netbox-connector/pkg/models"
)

type fakeInventory struct {
	mu      sync.Mutex
	queries int
	hosts   map[string]json.RawMessage // name -> device payload
	ips     map[string]json.RawMessage // address -> ip payload
	err     error
}

func (f *fakeInventory) SearchHost(_ context.Context, value string) (models.EntityType, json.RawMessage, bool, error) {
	f.mu.Lock()
	f.queries++
	f.mu.Unlock()

	if f.err != nil {
		return "", nil, false, f.err
	}

	raw, ok := f.hosts[value]
	if !ok {
		return "", nil, false, nil
	}

	return models.EntityDevice, raw, true, nil
}

func (f *fakeInventory) GetOneByField(_ context.Context, entity models.EntityType, _, value string) (json.RawMessage, bool, error) {
	f.mu.Lock()
	f.queries++
	f.mu.Unlock()

	if f.err != nil {
		return nil, false, f.err
	}

	var pool map[string]json.RawMessage
	if entity == models.EntityIP {
		pool = f.ips
	} else {
		pool = f.hosts
	}

	raw, ok := pool[value]

	return raw, ok, nil
}

func (f *fakeInventory) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.queries
}

func devicePayload(id int, name string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"id": %d, "name": %q, "site": {"name": "dc1"}, "status": {"value": "active"}}`, id, name))
}

func TestResolver_ResolveByHostname(t *testing.T) {
	t.Parallel()

	inv := &fakeInventory{hosts: map[string]json.RawMessage{
		"core-sw-01": devicePayload(42, "core-sw-01"),
	}}
	r := NewResolver(inv, logger.NewTestLogger(), Options{})

	res, err := r.Resolve(context.Background(), "name", "core-sw-01")
	require.NoError(t, err)
	require.True(t, res.Found)
	require.Equal(t, models.EntityDevice, res.Entity)
	require.Equal(t, "42", res.Fields["netbox_id"])
	require.Equal(t, "device", res.Fields["netbox_entity_type"])
	require.Equal(t, "core-sw-01", res.Fields["netbox_name"])
	require.Equal(t, "dc1", res.Fields["netbox_site"])

	// Nothing unprefixed leaks through.
	for name := range res.Fields {
		require.True(t, len(name) > len(FieldPrefix) && name[:len(FieldPrefix)] == FieldPrefix)
	}
}

func TestResolver_ResolveByAddressRoutesToIPEndpoint(t *testing.T) {
	t.Parallel()

	inv := &fakeInventory{ips: map[string]json.RawMessage{
		"192.0.2.10/24": json.RawMessage(`{"id": 12, "address": "192.0.2.10/24", "dns_name": "gw.example.net"}`),
	}}
	r := NewResolver(inv, logger.NewTestLogger(), Options{})

	res, err := r.Resolve(context.Background(), "ip", "192.0.2.10/24")
	require.NoError(t, err)
	require.True(t, res.Found)
	require.Equal(t, models.EntityIP, res.Entity)
	require.Equal(t, "gw.example.net", res.Fields["netbox_dns_name"])
}

func TestResolver_RepeatedLookupsHitCache(t *testing.T) {
	t.Parallel()

	inv := &fakeInventory{hosts: map[string]json.RawMessage{
		"core-sw-01": devicePayload(42, "core-sw-01"),
		"core-sw-02": devicePayload(43, "core-sw-02"),
	}}
	r := NewResolver(inv, logger.NewTestLogger(), Options{})

	// N resolutions over K distinct keys issue at most K upstream queries.
	for i := 0; i < 10; i++ {
		_, err := r.Resolve(context.Background(), "name", "core-sw-01")
		require.NoError(t, err)
		_, err = r.Resolve(context.Background(), "name", "core-sw-02")
		require.NoError(t, err)
	}

	require.Equal(t, 2, inv.queryCount())
}

func TestResolver_NegativeResultIsCached(t *testing.T) {
	t.Parallel()

	inv := &fakeInventory{}
	r := NewResolver(inv, logger.NewTestLogger(), Options{})

	res, err := r.Resolve(context.Background(), "name", "ghost")
	require.NoError(t, err)
	require.False(t, res.Found)
	require.Equal(t, 1, inv.queryCount())

	res, err = r.Resolve(context.Background(), "name", "ghost")
	require.NoError(t, err)
	require.False(t, res.Found)
	require.Equal(t, 1, inv.queryCount())
}

// A lookup failure is distinguishable from a miss and is never cached, so
// the next call retries upstream.
func TestResolver_FailuresAreNotCached(t *testing.T) {
	t.Parallel()

	inv := &fakeInventory{err: errors.New("connection refused")}
	r := NewResolver(inv, logger.NewTestLogger(), Options{})

	_, err := r.Resolve(context.Background(), "name", "core-sw-01")
	require.ErrorIs(t, err, ErrResolve)
	require.Equal(t, 1, inv.queryCount())

	inv.mu.Lock()
	inv.err = nil
	inv.hosts = map[string]json.RawMessage{"core-sw-01": devicePayload(42, "core-sw-01")}
	inv.mu.Unlock()

	res, err := r.Resolve(context.Background(), "name", "core-sw-01")
	require.NoError(t, err)
	require.True(t, res.Found)
	require.Equal(t, 2, inv.queryCount())
}

func TestResolver_CacheIsBounded(t *testing.T) {
	t.Parallel()

	inv := &fakeInventory{hosts: map[string]json.RawMessage{}}
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("device-%d", i)
		inv.hosts[name] = devicePayload(i+1, name)
	}

	r := NewResolver(inv, logger.NewTestLogger(), Options{CacheSize: 4})

	for i := 0; i < 8; i++ {
		_, err := r.Resolve(context.Background(), "name", fmt.Sprintf("device-%d", i))
		require.NoError(t, err)
	}

	require.Equal(t, 4, r.cache.len())
}

func TestResolver_ExpiredEntryIsRefetched(t *testing.T) {
	t.Parallel()

	inv := &fakeInventory{hosts: map[string]json.RawMessage{
		"core-sw-01": devicePayload(42, "core-sw-01"),
	}}
	r := NewResolver(inv, logger.NewTestLogger(), Options{TTL: time.Minute})

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return current }

	_, err := r.Resolve(context.Background(), "name", "core-sw-01")
	require.NoError(t, err)
	require.Equal(t, 1, inv.queryCount())

	// Still inside the TTL.
	current = current.Add(30 * time.Second)
	_, err = r.Resolve(context.Background(), "name", "core-sw-01")
	require.NoError(t, err)
	require.Equal(t, 1, inv.queryCount())

	// Past it.
	current = current.Add(31 * time.Second)
	_, err = r.Resolve(context.Background(), "name", "core-sw-01")
	require.NoError(t, err)
	require.Equal(t, 2, inv.queryCount())
}

func TestResolver_NegativeTTLIsShorter(t *testing.T) {
	t.Parallel()

	inv := &fakeInventory{}
	r := NewResolver(inv, logger.NewTestLogger(), Options{TTL: time.Minute})

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return current }

	_, err := r.Resolve(context.Background(), "name", "ghost")
	require.NoError(t, err)
	require.Equal(t, 1, inv.queryCount())

	// A minute-long positive TTL gives a 12s negative one; 15s later the
	// miss is checked again.
	current = current.Add(15 * time.Second)
	_, err = r.Resolve(context.Background(), "name", "ghost")
	require.NoError(t, err)
	require.Equal(t, 2, inv.queryCount())
}
