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

import "errors"

var (
	// ErrAuth marks a rejected or expired credential. It is never retried
	// and aborts the whole cycle without checkpoint advancement.
	ErrAuth = errors.New("netbox: authentication failed")

	// ErrFetch marks a transient transport or server failure that
	// survived all retries. It aborts the cycle for the affected
	// entity type only.
	ErrFetch = errors.New("netbox: fetch failed")

	errUnexpectedStatusCode = errors.New("unexpected status code")
)
