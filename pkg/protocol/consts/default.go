/*
 * Copyright 2023 CloudWeGo Authors
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

package consts

import "time"

const (
	// DefaultDialTimeout is timeout used by Dialer
	// for establishing TCP connections.
	DefaultDialTimeout = time.Second

	// DefaultMaxConnsPerKey is the maximum number of concurrent connections
	// the client may establish per connection key by default.
	DefaultMaxConnsPerKey = 512

	// DefaultMaxIdleConnsPerKey is the maximum number of idle keep-alive
	// connections kept cached per connection key. Releasing a connection
	// into a full cache closes the oldest cached one.
	DefaultMaxIdleConnsPerKey = 16

	// DefaultMaxIdleConnDuration is the default duration before idle
	// keep-alive connection is closed.
	DefaultMaxIdleConnDuration = 10 * time.Second

	// DefaultMaxRedirectsCount is the redirect-following bound used when the
	// caller does not configure one. Exceeding it fails the request.
	DefaultMaxRedirectsCount = 16

	// DefaultContinueTimeout is how long the client waits for a
	// "100 Continue" response before sending the request body anyway.
	DefaultContinueTimeout = time.Second

	// DefaultDrainLimit bounds how many unread response body bytes the
	// client is willing to read and discard so that the connection can be
	// returned to the cache. Larger leftovers close the connection instead.
	DefaultDrainLimit = 16 * 1024

	// DefaultMaxHeaderSize bounds a response header block.
	DefaultMaxHeaderSize = 8 * 1024

	// DefaultMaxIdemponentCallAttempts bounds how many times an idempotent
	// request is replayed over HTTP/2 before giving up.
	DefaultMaxIdemponentCallAttempts = 1

	// DefaultPingTimeout is how long an HTTP/2 connection waits for a PING
	// ack before it is considered dead.
	DefaultPingTimeout = 15 * time.Second

	// MaxSmallFileSize is the bound below which a fixed-size body is copied
	// through the connection's buffer instead of a pooled copy buffer.
	MaxSmallFileSize = 2 * 4096
)
