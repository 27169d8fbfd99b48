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

// Package normalize maps the four raw NetBox entity schemas into the one
// canonical record shape consumed by the sinks.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aroggek/netbox-connector/pkg/models"
)

// ErrMalformedRecord marks a raw record without a usable identifier.
// Callers skip and count these; they are never fatal to a cycle.
var ErrMalformedRecord = errors.New("malformed record")

// fieldSets is the fixed canonical field set per entity type, in stable
// column order. Every normalized record carries every field of its set,
// possibly empty.
var fieldSets = map[models.EntityType][]string{
	models.EntityDevice: {
		"name", "device_type", "device_role", "site", "rack", "status",
		"primary_ip", "serial", "asset_tag", "last_updated", "comments",
	},
	models.EntityVM: {
		"name", "status", "site", "cluster", "role", "primary_ip",
		"vcpus", "memory", "disk", "last_updated", "comments",
	},
	models.EntityIP: {
		"address", "status", "dns_name", "assigned_object_type",
		"assigned_object", "vrf", "tenant", "description", "last_updated",
	},
	models.EntitySite: {
		"name", "slug", "status", "region", "facility", "asn",
		"time_zone", "description", "physical_address", "latitude",
		"longitude",
	},
}

// FieldSet returns the canonical field names for an entity type in stable
// order. The returned slice must not be modified.
func FieldSet(entity models.EntityType) []string {
	return fieldSets[entity]
}

// Nested reference shapes shared by the raw schemas. Unmarshaling a JSON
// null into any of these is a no-op, which keeps normalization total over
// records with absent optional fields.
type (
	named     struct{ Name string `json:"name"` }
	displayed struct{ Display string `json:"display"` }
	valued    struct{ Value string `json:"value"` }
	addressed struct{ Address string `json:"address"` }
)

type rawDevice struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	DeviceType displayed `json:"device_type"`
	// NetBox renamed device_role to role in 3.6; accept both.
	DeviceRole   named           `json:"device_role"`
	Role         named           `json:"role"`
	Site         named           `json:"site"`
	Rack         named           `json:"rack"`
	Status       valued          `json:"status"`
	PrimaryIP    addressed       `json:"primary_ip"`
	Serial       string          `json:"serial"`
	AssetTag     string          `json:"asset_tag"`
	LastUpdated  string          `json:"last_updated"`
	Comments     string          `json:"comments"`
	Tags         json.RawMessage `json:"tags"`
	CustomFields json.RawMessage `json:"custom_fields"`
}

type rawVM struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Status       valued          `json:"status"`
	Site         named           `json:"site"`
	Cluster      named           `json:"cluster"`
	Role         named           `json:"role"`
	PrimaryIP    addressed       `json:"primary_ip"`
	VCPUs        json.Number     `json:"vcpus"`
	Memory       json.Number     `json:"memory"`
	Disk         json.Number     `json:"disk"`
	LastUpdated  string          `json:"last_updated"`
	Comments     string          `json:"comments"`
	Tags         json.RawMessage `json:"tags"`
	CustomFields json.RawMessage `json:"custom_fields"`
}

type rawIP struct {
	ID                 int64  `json:"id"`
	Address            string `json:"address"`
	Status             valued `json:"status"`
	DNSName            string `json:"dns_name"`
	AssignedObjectType string `json:"assigned_object_type"`
	AssignedObject     struct {
		Name       string `json:"name"`
		ObjectType string `json:"object_type"`
	} `json:"assigned_object"`
	VRF          named           `json:"vrf"`
	Tenant       named           `json:"tenant"`
	Description  string          `json:"description"`
	LastUpdated  string          `json:"last_updated"`
	Tags         json.RawMessage `json:"tags"`
	CustomFields json.RawMessage `json:"custom_fields"`
}

type rawSite struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	Status          valued          `json:"status"`
	Region          named           `json:"region"`
	Facility        string          `json:"facility"`
	ASN             json.Number     `json:"asn"`
	TimeZone        string          `json:"time_zone"`
	Description     string          `json:"description"`
	PhysicalAddress string          `json:"physical_address"`
	Latitude        json.Number     `json:"latitude"`
	Longitude       json.Number     `json:"longitude"`
	LastUpdated     string          `json:"last_updated"`
	Tags            json.RawMessage `json:"tags"`
	CustomFields    json.RawMessage `json:"custom_fields"`
}

// Normalize converts one raw record of the declared entity type into a
// CanonicalRecord. A record that cannot be decoded or lacks an identifier
// yields ErrMalformedRecord.
func Normalize(entity models.EntityType, raw json.RawMessage) (*models.CanonicalRecord, error) {
	switch entity {
	case models.EntityDevice:
		return normalizeDevice(raw)
	case models.EntityVM:
		return normalizeVM(raw)
	case models.EntityIP:
		return normalizeIP(raw)
	case models.EntitySite:
		return normalizeSite(raw)
	default:
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrMalformedRecord, entity)
	}
}

func normalizeDevice(raw json.RawMessage) (*models.CanonicalRecord, error) {
	var d rawDevice
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	if d.ID == 0 {
		return nil, fmt.Errorf("%w: device missing id", ErrMalformedRecord)
	}

	role := d.DeviceRole.Name
	if role == "" {
		role = d.Role.Name
	}

	rec := newRecord(models.EntityDevice, d.ID, d.LastUpdated, d.Tags, d.CustomFields)
	rec.Fields["name"] = d.Name
	rec.Fields["device_type"] = d.DeviceType.Display
	rec.Fields["device_role"] = role
	rec.Fields["site"] = d.Site.Name
	rec.Fields["rack"] = d.Rack.Name
	rec.Fields["status"] = d.Status.Value
	rec.Fields["primary_ip"] = d.PrimaryIP.Address
	rec.Fields["serial"] = d.Serial
	rec.Fields["asset_tag"] = d.AssetTag
	rec.Fields["last_updated"] = d.LastUpdated
	rec.Fields["comments"] = d.Comments

	return rec, nil
}

func normalizeVM(raw json.RawMessage) (*models.CanonicalRecord, error) {
	var v rawVM
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	if v.ID == 0 {
		return nil, fmt.Errorf("%w: virtual machine missing id", ErrMalformedRecord)
	}

	rec := newRecord(models.EntityVM, v.ID, v.LastUpdated, v.Tags, v.CustomFields)
	rec.Fields["name"] = v.Name
	rec.Fields["status"] = v.Status.Value
	rec.Fields["site"] = v.Site.Name
	rec.Fields["cluster"] = v.Cluster.Name
	rec.Fields["role"] = v.Role.Name
	rec.Fields["primary_ip"] = v.PrimaryIP.Address
	rec.Fields["vcpus"] = v.VCPUs.String()
	rec.Fields["memory"] = v.Memory.String()
	rec.Fields["disk"] = v.Disk.String()
	rec.Fields["last_updated"] = v.LastUpdated
	rec.Fields["comments"] = v.Comments

	return rec, nil
}

func normalizeIP(raw json.RawMessage) (*models.CanonicalRecord, error) {
	var ip rawIP
	if err := json.Unmarshal(raw, &ip); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	if ip.ID == 0 {
		return nil, fmt.Errorf("%w: ip address missing id", ErrMalformedRecord)
	}

	objectType := ip.AssignedObjectType
	if objectType == "" {
		objectType = ip.AssignedObject.ObjectType
	}

	rec := newRecord(models.EntityIP, ip.ID, ip.LastUpdated, ip.Tags, ip.CustomFields)
	rec.Fields["address"] = ip.Address
	rec.Fields["status"] = ip.Status.Value
	rec.Fields["dns_name"] = ip.DNSName
	rec.Fields["assigned_object_type"] = objectType
	rec.Fields["assigned_object"] = ip.AssignedObject.Name
	rec.Fields["vrf"] = ip.VRF.Name
	rec.Fields["tenant"] = ip.Tenant.Name
	rec.Fields["description"] = ip.Description
	rec.Fields["last_updated"] = ip.LastUpdated

	return rec, nil
}

func normalizeSite(raw json.RawMessage) (*models.CanonicalRecord, error) {
	var s rawSite
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	if s.ID == 0 {
		return nil, fmt.Errorf("%w: site missing id", ErrMalformedRecord)
	}

	rec := newRecord(models.EntitySite, s.ID, s.LastUpdated, s.Tags, s.CustomFields)
	rec.Fields["name"] = s.Name
	rec.Fields["slug"] = s.Slug
	rec.Fields["status"] = s.Status.Value
	rec.Fields["region"] = s.Region.Name
	rec.Fields["facility"] = s.Facility
	rec.Fields["asn"] = s.ASN.String()
	rec.Fields["time_zone"] = s.TimeZone
	rec.Fields["description"] = s.Description
	rec.Fields["physical_address"] = s.PhysicalAddress
	rec.Fields["latitude"] = s.Latitude.String()
	rec.Fields["longitude"] = s.Longitude.String()

	return rec, nil
}

// newRecord builds a record with every canonical field of the entity's set
// present and empty, ready to be filled in.
func newRecord(entity models.EntityType, id int64, lastUpdated string, tags, customFields json.RawMessage) *models.CanonicalRecord {
	fields := make(map[string]string, len(fieldSets[entity]))
	for _, f := range fieldSets[entity] {
		fields[f] = ""
	}

	return &models.CanonicalRecord{
		Entity:       entity,
		ID:           strconv.FormatInt(id, 10),
		Fields:       fields,
		LastUpdated:  parseTimestamp(lastUpdated),
		Tags:         tags,
		CustomFields: customFields,
	}
}

// parseTimestamp parses the source modification time, returning the zero
// time when absent or unparseable.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}
