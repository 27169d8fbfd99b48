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

// OutputMode selects which sink a source's records are reconciled into.
type OutputMode string

const (
	OutputEvents  OutputMode = "events"
	OutputLookup  OutputMode = "lookup"
	OutputKVStore OutputMode = "kvstore"
)

// SourceConfig describes one polling job against a remote inventory source.
// It is immutable for the lifetime of the job and supplied by external
// configuration management.
type SourceConfig struct {
	Type               string            `json:"type"` // "netbox"
	Endpoint           string            `json:"endpoint"`
	Credentials        map[string]string `json:"credentials"` // e.g. {"api_token": "..."}
	EntityTypes        string            `json:"entity_types"`
	OutputMode         OutputMode        `json:"output_mode"`
	InsecureSkipVerify bool              `json:"insecure_skip_verify"`

	// PollInterval overrides the global interval for this source.
	PollInterval Duration `json:"poll_interval,omitempty"`

	// PageSize caps results per page. Zero means the client default.
	PageSize int `json:"page_size,omitempty"`
}

// Entities resolves the configured entity selector.
func (s *SourceConfig) Entities() ([]EntityType, error) {
	return ParseEntitySelector(s.EntityTypes)
}

// PostgresConfig describes the lookup-table database.
type PostgresConfig struct {
	Host            string `json:"host"`
	Port            int    `json:"port"`
	Database        string `json:"database"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	SSLMode         string `json:"ssl_mode,omitempty"`
	ApplicationName string `json:"application_name,omitempty"`
	MaxConnections  int32  `json:"max_connections,omitempty"`
}
