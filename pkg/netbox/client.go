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

// Package netbox implements the authenticated, paginated client for the
// NetBox REST API.
package netbox

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aroggek/netbox-connector/pkg/logger"
	"github.com/aroggek/netbox-connector/pkg/models"
)

const (
	defaultPageSize    = 50
	defaultPageTimeout = 30 * time.Second
)

// entityPaths maps entity types to their NetBox list endpoints.
var entityPaths = map[models.EntityType]string{
	models.EntityDevice: "/api/dcim/devices/",
	models.EntityVM:     "/api/virtualization/virtual-machines/",
	models.EntityIP:     "/api/ipam/ip-addresses/",
	models.EntitySite:   "/api/dcim/sites/",
}

// RetryPolicy bounds retries of transient page-fetch failures. Waits grow
// exponentially from InitialWait up to MaxWait.
type RetryPolicy struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     10 * time.Second,
	}
}

// Client talks to one NetBox instance. It is safe for concurrent use.
type Client struct {
	endpoint    string
	token       string
	httpClient  *http.Client
	pageSize    int
	pageTimeout time.Duration
	retry       RetryPolicy
	log         logger.Logger
}

// NewClient builds a client from a source config. Disabling SSL
// verification is honored but logged as a degraded-trust condition.
func NewClient(cfg *models.SourceConfig, log logger.Logger) *Client {
	//nolint:gosec // InsecureSkipVerify is an explicit per-source operator choice.
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}

	if cfg.InsecureSkipVerify {
		log.Warn().
			Str("endpoint", cfg.Endpoint).
			Msg("SSL verification disabled for source; connection trust is degraded")
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Client{
		endpoint:    cfg.Endpoint,
		token:       cfg.Credentials["api_token"],
		httpClient:  &http.Client{Transport: transport},
		pageSize:    pageSize,
		pageTimeout: defaultPageTimeout,
		retry:       DefaultRetryPolicy(),
		log:         log,
	}
}

// SetRetryPolicy overrides the default retry policy.
func (c *Client) SetRetryPolicy(p RetryPolicy) {
	c.retry = p
}

// SetPageTimeout overrides the per-page request timeout.
func (c *Client) SetPageTimeout(d time.Duration) {
	c.pageTimeout = d
}

// listResponse is the NetBox paginated list envelope.
type listResponse struct {
	Count    int               `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Results  []json.RawMessage `json:"results"`
}

// Fetch begins a lazy paginated fetch of one entity type. The returned
// iterator is driven by the caller one page at a time and cannot be
// restarted; a fresh iterator is obtained by calling Fetch again.
//
// When since carries a modification timestamp, it is passed to the server
// as a last_updated filter so unchanged records are not re-fetched.
func (c *Client) Fetch(entity models.EntityType, since *models.Checkpoint) *PageIterator {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(c.pageSize))
	params.Set("offset", "0")

	if since != nil && !since.LastUpdated.IsZero() {
		params.Set("last_updated__gte", since.LastUpdated.UTC().Format(time.RFC3339))
	}

	return &PageIterator{
		client: c,
		entity: entity,
		next:   c.endpoint + entityPaths[entity] + "?" + params.Encode(),
	}
}

// PageIterator yields one page of raw records per Next call. It is not
// safe for concurrent use.
type PageIterator struct {
	client *Client
	entity models.EntityType
	next   string
	done   bool
}

// Next fetches the next page. It returns ok=false once the API signals no
// further page. A returned error is either ErrAuth or ErrFetch and ends
// the iteration.
func (it *PageIterator) Next(ctx context.Context) ([]json.RawMessage, bool, error) {
	if it.done || it.next == "" {
		return nil, false, nil
	}

	resp, err := it.client.getPage(ctx, it.entity, it.next)
	if err != nil {
		it.done = true
		return nil, false, err
	}

	if resp.Next == nil || *resp.Next == "" {
		it.done = true
	} else {
		it.next = *resp.Next
	}

	return resp.Results, true, nil
}

// getPage requests one page URL, retrying transient failures per the
// client's retry policy.
func (c *Client) getPage(ctx context.Context, entity models.EntityType, pageURL string) (*listResponse, error) {
	wait := c.retry.InitialWait

	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		resp, retryable, err := c.getPageOnce(ctx, pageURL)
		if err == nil {
			return resp, nil
		}

		if !retryable {
			return nil, err
		}

		lastErr = err

		if attempt == c.retry.MaxAttempts {
			break
		}

		c.log.Warn().
			Err(err).
			Str("entity_type", string(entity)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("transient fetch failure, retrying")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrFetch, ctx.Err())
		case <-time.After(wait):
		}

		wait *= 2
		if wait > c.retry.MaxWait {
			wait = c.retry.MaxWait
		}
	}

	return nil, fmt.Errorf("%w: %d attempts exhausted: %w", ErrFetch, c.retry.MaxAttempts, lastErr)
}

// getPageOnce performs a single page request. The bool reports whether the
// failure is retryable.
func (c *Client) getPageOnce(ctx context.Context, pageURL string) (*listResponse, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.pageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport errors and per-page timeouts are transient.
		return nil, true, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Warn().Err(cerr).Msg("failed to close response body")
		}
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, fmt.Errorf("%w: %w: %d", ErrAuth, errUnexpectedStatusCode, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, fmt.Errorf("%w: %w: %d", ErrFetch, errUnexpectedStatusCode, resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("%w: %w: %d", ErrFetch, errUnexpectedStatusCode, resp.StatusCode)
	}

	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, true, fmt.Errorf("%w: decode page: %w", ErrFetch, err)
	}

	return &list, false, nil
}
