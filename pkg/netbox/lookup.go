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

package netbox

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/aroggek/netbox-connector/pkg/models"
)

// GetOneByField performs a single filtered, non-paginated query and
// returns the first matching raw record, if any. It is the query path used
// by the enrichment resolver; the retry policy applies as for page fetches.
func (c *Client) GetOneByField(ctx context.Context, entity models.EntityType, field, value string) (json.RawMessage, bool, error) {
	params := url.Values{}
	params.Set(field, value)
	params.Set("limit", "1")

	queryURL := c.endpoint + entityPaths[entity] + "?" + params.Encode()

	resp, err := c.getPage(ctx, entity, queryURL)
	if err != nil {
		return nil, false, err
	}

	if len(resp.Results) == 0 {
		return nil, false, nil
	}

	return resp.Results[0], true, nil
}

// SearchHost looks a host up across entity types: device by name first,
// then virtual machine by name, then IP address by address. It returns the
// entity type of the match alongside the raw record.
func (c *Client) SearchHost(ctx context.Context, value string) (models.EntityType, json.RawMessage, bool, error) {
	raw, found, err := c.GetOneByField(ctx, models.EntityDevice, "name", value)
	if err != nil {
		return "", nil, false, err
	}

	if found {
		return models.EntityDevice, raw, true, nil
	}

	raw, found, err = c.GetOneByField(ctx, models.EntityVM, "name", value)
	if err != nil {
		return "", nil, false, err
	}

	if found {
		return models.EntityVM, raw, true, nil
	}

	raw, found, err = c.GetOneByField(ctx, models.EntityIP, "address", value)
	if err != nil {
		return "", nil, false, err
	}

	if found {
		return models.EntityIP, raw, true, nil
	}

	return "", nil, false, nil
}
