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

package models

import (
	"errors"
	"fmt"
)

// EntityType identifies one of the four inventory entity kinds handled by
// the connector. The values are the canonical tags used in sink keys and
// event subjects.
type EntityType string

const (
	EntityDevice EntityType = "device"
	EntityVM     EntityType = "vm"
	EntityIP     EntityType = "ip"
	EntitySite   EntityType = "site"
)

// AllEntityTypes lists every entity type in a stable order.
var AllEntityTypes = []EntityType{EntityDevice, EntityVM, EntityIP, EntitySite}

var errUnknownEntitySelector = errors.New("unknown entity type selector")

// ParseEntitySelector maps a configured selector (devices, virtual_machines,
// ip_addresses, sites, or all) to the entity types it covers.
func ParseEntitySelector(selector string) ([]EntityType, error) {
	switch selector {
	case "devices", "device":
		return []EntityType{EntityDevice}, nil
	case "virtual_machines", "virtual_machine", "vms":
		return []EntityType{EntityVM}, nil
	case "ip_addresses", "ip_address", "ips":
		return []EntityType{EntityIP}, nil
	case "sites", "site":
		return []EntityType{EntitySite}, nil
	case "all":
		return AllEntityTypes, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownEntitySelector, selector)
	}
}
