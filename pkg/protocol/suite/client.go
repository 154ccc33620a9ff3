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

package suite

import (
	"sync"

	"github.com/cloudwego/volt/pkg/protocol/client"
)

// ClientFactory builds a HostClient speaking one concrete protocol.
// The top-level client owns one factory per protocol policy and asks it
// for a HostClient whenever a new connection key shows up.
type ClientFactory interface {
	NewHostClient() (client client.HostClient, err error)
}

// Policy selects how the protocol for a host is chosen.
type Policy int

const (
	// PolicyHTTP1 always speaks HTTP/1.1. This is the default.
	PolicyHTTP1 Policy = iota

	// PolicyH2PriorKnowledge speaks HTTP/2 over plain TCP without any
	// negotiation, assuming the server understands it.
	PolicyH2PriorKnowledge

	// PolicyH2CUpgrade starts with an HTTP/1.1 request carrying the
	// "Upgrade: h2c" header. A 101 response switches the connection to
	// HTTP/2; any other response is served as plain HTTP/1.1.
	PolicyH2CUpgrade

	// PolicyALPN lets the TLS handshake pick between HTTP/2 and
	// HTTP/1.1. Only meaningful for https hosts.
	PolicyALPN
)

func (p Policy) String() string {
	switch p {
	case PolicyHTTP1:
		return "http1"
	case PolicyH2PriorKnowledge:
		return "h2-prior-knowledge"
	case PolicyH2CUpgrade:
		return "h2c-upgrade"
	case PolicyALPN:
		return "alpn"
	}
	return "unknown"
}

// Protocol is a negotiated application protocol name, as used in ALPN.
type Protocol string

const (
	HTTP1 Protocol = "http/1.1"
	HTTP2 Protocol = "h2"
)

// Memo remembers which protocol each host settled on, so that a host
// that already negotiated (or refused) an upgrade is not renegotiated
// on every request.
type Memo struct {
	mu sync.RWMutex
	m  map[string]Protocol
}

func (m *Memo) Load(key string) (Protocol, bool) {
	m.mu.RLock()
	p, ok := m.m[key]
	m.mu.RUnlock()
	return p, ok
}

func (m *Memo) Store(key string, p Protocol) {
	m.mu.Lock()
	if m.m == nil {
		m.m = make(map[string]Protocol)
	}
	m.m[key] = p
	m.mu.Unlock()
}

// Forget drops the memo for key, forcing renegotiation on the next
// request. Useful when a host is redeployed behind the same address.
func (m *Memo) Forget(key string) {
	m.mu.Lock()
	delete(m.m, key)
	m.mu.Unlock()
}
