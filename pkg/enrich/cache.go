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

package enrich

import (
	"container/heap"
	"sync"
	"time"
)

// cache is a bounded TTL cache for resolution results. Entries past their
// expiry are dropped on access; when the size bound is reached the entry
// with the oldest expiry is evicted first. Negative results are cached
// like positive ones, just with a shorter TTL.
//
// Concurrent get/put is safe. A duplicate miss under race overwrites
// idempotently, which is acceptable for this cache.
type cache struct {
	mu       sync.Mutex
	max      int
	byKey    map[string]*cacheEntry
	byExpiry expiryHeap
}

type cacheEntry struct {
	key     string
	result  *Result
	expires time.Time
	index   int
}

func newCache(max int) *cache {
	return &cache{
		max:   max,
		byKey: make(map[string]*cacheEntry),
	}
}

func (c *cache) get(key string, now time.Time) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.byKey[key]
	if !ok {
		return nil, false
	}

	if !now.Before(e.expires) {
		heap.Remove(&c.byExpiry, e.index)
		delete(c.byKey, key)

		return nil, false
	}

	return e.result, true
}

func (c *cache) put(key string, result *Result, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.byKey[key]; ok {
		e.result = result
		e.expires = expires
		heap.Fix(&c.byExpiry, e.index)

		return
	}

	if c.max > 0 && len(c.byKey) >= c.max {
		evicted := heap.Pop(&c.byExpiry).(*cacheEntry)
		delete(c.byKey, evicted.key)
	}

	e := &cacheEntry{key: key, result: result, expires: expires}
	heap.Push(&c.byExpiry, e)
	c.byKey[key] = e
}

func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.byKey)
}

// expiryHeap orders entries by expiry, oldest first.
type expiryHeap []*cacheEntry

func (h expiryHeap) Len() int { return len(h) }

func (h expiryHeap) Less(i, j int) bool { return h[i].expires.Before(h[j].expires) }

func (h expiryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *expiryHeap) Push(x any) {
	e := x.(*cacheEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]

	return e
}
