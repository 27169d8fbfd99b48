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

// Package enrich resolves single inventory records at query time, with a
// bounded TTL cache so repeated lookups do not issue one API call each.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aroggek/netbox-connector/pkg/logger"
	"github.com/aroggek/netbox-connector/pkg/models"
	"github.com/aroggek/netbox-connector/pkg/normalize"
)

// FieldPrefix is prepended to every returned field name so enrichment
// output never collides with the caller's own fields.
const FieldPrefix = "netbox_"

const (
	defaultCacheSize   = 1024
	defaultTTL         = 5 * time.Minute
	minNegativeTTL     = 5 * time.Second
	negativeTTLDivisor = 5
)

// ErrResolve marks a lookup that could not be completed, as opposed to a
// lookup that completed and found nothing. Callers can distinguish "no
// such record" from "could not check".
var ErrResolve = errors.New("enrich: lookup failed")

// Inventory is the client surface the resolver needs.
type Inventory interface {
	SearchHost(ctx context.Context, value string) (models.EntityType, json.RawMessage, bool, error)
	GetOneByField(ctx context.Context, entity models.EntityType, field, value string) (json.RawMessage, bool, error)
}

// Result is one resolution outcome. Found=false is a valid outcome, not
// an error, and is cached (negative caching) to bound repeated-miss load.
type Result struct {
	Found  bool
	Entity models.EntityType
	Fields map[string]string
}

// Options tunes the resolver cache. Zero values pick defaults; the
// negative TTL defaults to a fraction of the positive one.
type Options struct {
	CacheSize   int
	TTL         time.Duration
	NegativeTTL time.Duration
}

// Resolver performs synchronous per-record lookups. It shares only the
// inventory client and normalizer with the sync path and never touches
// checkpoints or sinks.
type Resolver struct {
	inv    Inventory
	cache  *cache
	posTTL time.Duration
	negTTL time.Duration
	log    logger.Logger
	now    func() time.Time
}

func NewResolver(inv Inventory, log logger.Logger, opts Options) *Resolver {
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}

	posTTL := opts.TTL
	if posTTL <= 0 {
		posTTL = defaultTTL
	}

	negTTL := opts.NegativeTTL
	if negTTL <= 0 {
		negTTL = posTTL / negativeTTLDivisor
		if negTTL < minNegativeTTL {
			negTTL = minNegativeTTL
		}
	}

	return &Resolver{
		inv:    inv,
		cache:  newCache(size),
		posTTL: posTTL,
		negTTL: negTTL,
		log:    log.WithComponent("enrich"),
		now:    time.Now,
	}
}

// Resolve looks up one record by field name and value. Cache first; on a
// miss it performs a single filtered inventory query, normalizes the
// match, caches the outcome (positive or negative), and returns it.
func (r *Resolver) Resolve(ctx context.Context, field, value string) (*Result, error) {
	key := field + "=" + value

	if res, ok := r.cache.get(key, r.now()); ok {
		return res, nil
	}

	entity, raw, found, err := r.query(ctx, field, value)
	if err != nil {
		// Failures are not cached: "could not check" should be retried.
		return nil, fmt.Errorf("%w: %w", ErrResolve, err)
	}

	if !found {
		res := &Result{Found: false}
		r.cache.put(key, res, r.now().Add(r.negTTL))

		return res, nil
	}

	rec, err := normalize.Normalize(entity, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolve, err)
	}

	res := &Result{
		Found:  true,
		Entity: entity,
		Fields: prefixFields(rec),
	}

	r.cache.put(key, res, r.now().Add(r.posTTL))

	return res, nil
}

// query routes the lookup. Hostname-style fields search devices then VMs
// then IPs; address-style fields go straight to the IP endpoint; anything
// else is treated as a device filter.
func (r *Resolver) query(ctx context.Context, field, value string) (models.EntityType, json.RawMessage, bool, error) {
	switch field {
	case "name", "hostname", "host":
		return r.inv.SearchHost(ctx, value)
	case "ip", "address", "primary_ip":
		raw, found, err := r.inv.GetOneByField(ctx, models.EntityIP, "address", value)
		return models.EntityIP, raw, found, err
	default:
		raw, found, err := r.inv.GetOneByField(ctx, models.EntityDevice, field, value)
		return models.EntityDevice, raw, found, err
	}
}

func prefixFields(rec *models.CanonicalRecord) map[string]string {
	fields := make(map[string]string, len(rec.Fields)+2)
	fields[FieldPrefix+"id"] = rec.ID
	fields[FieldPrefix+"entity_type"] = string(rec.Entity)

	for name, v := range rec.Fields {
		fields[FieldPrefix+name] = v
	}

	return fields
}
