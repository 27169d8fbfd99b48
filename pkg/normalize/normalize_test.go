package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aroggek/netbox-connector/pkg/models"
)

func TestNormalize_DeviceFullRecord(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{
		"id": 42,
		"name": "core-sw-01",
		"device_type": {"display": "Catalyst 9300"},
		"device_role": {"name": "access-switch"},
		"site": {"name": "dc1"},
		"rack": {"name": "r12"},
		"status": {"value": "active", "label": "Active"},
		"primary_ip": {"address": "10.1.2.3/24"},
		"serial": "FDO1234",
		"asset_tag": "A-0042",
		"last_updated": "2026-03-01T12:00:00.123456Z",
		"comments": "spine uplink pending",
		"tags": [{"name": "prod"}],
		"custom_fields": {"owner": "netops"}
	}`)

	rec, err := Normalize(models.EntityDevice, raw)
	require.NoError(t, err)

	require.Equal(t, models.EntityDevice, rec.Entity)
	require.Equal(t, "42", rec.ID)
	require.Equal(t, "device/42", rec.Key())
	require.Equal(t, "core-sw-01", rec.Fields["name"])
	require.Equal(t, "Catalyst 9300", rec.Fields["device_type"])
	require.Equal(t, "access-switch", rec.Fields["device_role"])
	require.Equal(t, "dc1", rec.Fields["site"])
	require.Equal(t, "r12", rec.Fields["rack"])
	require.Equal(t, "active", rec.Fields["status"])
	require.Equal(t, "10.1.2.3/24", rec.Fields["primary_ip"])
	require.Equal(t, "FDO1234", rec.Fields["serial"])
	require.Equal(t, "A-0042", rec.Fields["asset_tag"])
	require.Equal(t, "spine uplink pending", rec.Fields["comments"])
	require.Equal(t, 2026, rec.LastUpdated.Year())
	require.JSONEq(t, `[{"name":"prod"}]`, string(rec.Tags))
	require.JSONEq(t, `{"owner":"netops"}`, string(rec.CustomFields))
}

func TestNormalize_DeviceRoleRename(t *testing.T) {
	t.Parallel()

	// NetBox ≥3.6 reports the role under "role".
	rec, err := Normalize(models.EntityDevice, json.RawMessage(`{"id": 1, "role": {"name": "router"}}`))
	require.NoError(t, err)
	require.Equal(t, "router", rec.Fields["device_role"])
}

// Every canonical field must be present for every entity type even when
// the raw record carries nothing but an identifier.
func TestNormalize_TotalOverMissingOptionalFields(t *testing.T) {
	t.Parallel()

	for _, entity := range models.AllEntityTypes {
		rec, err := Normalize(entity, json.RawMessage(`{"id": 9}`))
		require.NoError(t, err, "entity %s", entity)
		require.Equal(t, "9", rec.ID)
		require.True(t, rec.LastUpdated.IsZero())

		for _, field := range FieldSet(entity) {
			v, ok := rec.Fields[field]
			require.True(t, ok, "entity %s missing field %s", entity, field)
			require.Empty(t, v)
		}

		require.Len(t, rec.Fields, len(FieldSet(entity)))
	}
}

func TestNormalize_VMNumericFields(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{
		"id": 7,
		"name": "app-vm-01",
		"cluster": {"name": "esxi-1"},
		"vcpus": 4,
		"memory": 16384,
		"disk": 200,
		"last_updated": "2026-02-10T08:00:00Z"
	}`)

	rec, err := Normalize(models.EntityVM, raw)
	require.NoError(t, err)
	require.Equal(t, "4", rec.Fields["vcpus"])
	require.Equal(t, "16384", rec.Fields["memory"])
	require.Equal(t, "200", rec.Fields["disk"])
	require.Equal(t, "esxi-1", rec.Fields["cluster"])
	require.Equal(t, time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC), rec.LastUpdated)
}

func TestNormalize_IPAssignedObject(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{
		"id": 12,
		"address": "192.0.2.10/24",
		"status": {"value": "active"},
		"dns_name": "gw.example.net",
		"assigned_object_type": "dcim.interface",
		"assigned_object": {"name": "eth0", "object_type": "dcim.interface"},
		"vrf": {"name": "mgmt"},
		"tenant": {"name": "acme"}
	}`)

	rec, err := Normalize(models.EntityIP, raw)
	require.NoError(t, err)
	require.Equal(t, "192.0.2.10/24", rec.Fields["address"])
	require.Equal(t, "dcim.interface", rec.Fields["assigned_object_type"])
	require.Equal(t, "eth0", rec.Fields["assigned_object"])
	require.Equal(t, "mgmt", rec.Fields["vrf"])
	require.Equal(t, "acme", rec.Fields["tenant"])
}

func TestNormalize_IPAssignedObjectTypeFallback(t *testing.T) {
	t.Parallel()

	// Older API payloads only carry the nested object_type.
	raw := json.RawMessage(`{
		"id": 13,
		"address": "192.0.2.11/24",
		"assigned_object": {"name": "eth1", "object_type": "virtualization.vminterface"}
	}`)

	rec, err := Normalize(models.EntityIP, raw)
	require.NoError(t, err)
	require.Equal(t, "virtualization.vminterface", rec.Fields["assigned_object_type"])
}

func TestNormalize_Site(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{
		"id": 3,
		"name": "Frankfurt DC",
		"slug": "fra-dc",
		"status": {"value": "active"},
		"region": {"name": "emea"},
		"facility": "FRA-7",
		"asn": 64512,
		"time_zone": "Europe/Berlin",
		"physical_address": "Hanauer Landstr. 1",
		"latitude": 50.110924,
		"longitude": 8.682127
	}`)

	rec, err := Normalize(models.EntitySite, raw)
	require.NoError(t, err)
	require.Equal(t, "fra-dc", rec.Fields["slug"])
	require.Equal(t, "emea", rec.Fields["region"])
	require.Equal(t, "64512", rec.Fields["asn"])
	require.Equal(t, "50.110924", rec.Fields["latitude"])
	require.Equal(t, "8.682127", rec.Fields["longitude"])
}

func TestNormalize_MissingIdentifierIsMalformed(t *testing.T) {
	t.Parallel()

	for _, entity := range models.AllEntityTypes {
		_, err := Normalize(entity, json.RawMessage(`{"name": "no-id"}`))
		require.ErrorIs(t, err, ErrMalformedRecord, "entity %s", entity)
	}
}

func TestNormalize_UndecodableRecordIsMalformed(t *testing.T) {
	t.Parallel()

	_, err := Normalize(models.EntityDevice, json.RawMessage(`"not an object"`))
	require.ErrorIs(t, err, ErrMalformedRecord)
}

func TestNormalize_UnknownEntityType(t *testing.T) {
	t.Parallel()

	_, err := Normalize(models.EntityType("rack"), json.RawMessage(`{"id": 1}`))
	require.ErrorIs(t, err, ErrMalformedRecord)
}
