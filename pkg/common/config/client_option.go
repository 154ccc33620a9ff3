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

package config

import (
	"crypto/tls"
	"time"

	"github.com/cloudwego/volt/pkg/client/retry"
	"github.com/cloudwego/volt/pkg/network"
	"github.com/cloudwego/volt/pkg/protocol/consts"
)

// ContinueWaitPolicy controls how the client treats the wait for a
// "100 Continue" interim response after sending "Expect: 100-continue".
type ContinueWaitPolicy int

const (
	// ContinueWaitPermissive sends the entity when the wait for the interim
	// response times out, treating the timeout as an implicit go-ahead.
	ContinueWaitPermissive ContinueWaitPolicy = iota
	// ContinueWaitStrict fails the request when no interim response arrives
	// within ContinueTimeout.
	ContinueWaitStrict
)

type ConnPoolState struct {
	// The conn num of conn pool. These conns are idle connections.
	PoolConnNum int `json:"pool_conn_num"`
	// Total conn num.
	TotalConnNum int `json:"total_conn_num"`
	// Number of pending connections
	WaitConnNum int `json:"wait_conn_num"`
	// HostClient Addr
	Addr string `json:"addr"`
}

type HostClientState interface {
	ConnPoolState() ConnPoolState
}

type HostClientStateFunc func(HostClientState)

// ClientOption is the only struct that can be used to set ClientOptions.
type ClientOption struct {
	F func(o *ClientOptions)
}

type ClientOptions struct {
	// Timeout for establishing a connection to server
	DialTimeout time.Duration
	// The max connection nums for each connection key
	MaxConnsPerKey int
	// The max idle connections kept for reuse per connection key.
	// When the idle queue is full, the oldest idle connection is closed
	// to make room for the released one.
	MaxIdleConnsPerKey int

	MaxIdleConnDuration time.Duration
	MaxConnDuration     time.Duration
	MaxConnWaitTimeout  time.Duration
	KeepAlive           bool
	ReadTimeout         time.Duration
	TLSConfig           *tls.Config
	ResponseBodyStream  bool

	// Client name. Used in User-Agent request header.
	//
	// Default client name is used if not set.
	Name string

	// NoDefaultUserAgentHeader when set to true, causes the default
	// User-Agent header to be excluded from the Request.
	NoDefaultUserAgentHeader bool

	// Dialer is the custom dialer used to establish connection.
	// Default Dialer is used if not set.
	Dialer network.Dialer

	// Attempt to connect to both ipv4 and ipv6 addresses if set to true.
	//
	// This option is used only if default TCP dialer is used,
	// i.e. if Dialer is blank.
	//
	// By default client connects only to ipv4 addresses,
	// since unfortunately ipv6 remains broken in many networks worldwide :)
	DialDualStack bool

	// Maximum duration for full request writing (including body).
	//
	// By default request write timeout is unlimited.
	WriteTimeout time.Duration

	// Maximum response body size.
	//
	// The client returns ErrBodyTooLarge if this limit is greater than 0
	// and response body is greater than the limit.
	//
	// By default response body size is unlimited.
	MaxResponseBodySize int

	// Header names are passed as-is without normalization
	// if this option is set.
	//
	// By default request and response header names are normalized, i.e.
	// The first letter and the first letters following dashes
	// are uppercased, while all the other letters are lowercased.
	DisableHeaderNamesNormalizing bool

	// Path values are sent as-is without normalization
	// if this option is set.
	DisablePathNormalizing bool

	// Maximum duration to wait for a "100 Continue" interim response
	// after the request headers carry "Expect: 100-continue".
	ContinueTimeout time.Duration

	// ContinueWaitPolicy decides what a timed-out wait for "100 Continue"
	// means. The default is permissive: send the entity anyway.
	ContinueWaitPolicy ContinueWaitPolicy

	// Maximum number of response body bytes drained from a connection
	// before it may be returned to the pool. Connections with more
	// unread body bytes are closed instead of reused.
	DrainLimit int

	// Upper bound on redirect hops followed by DoRedirects when the
	// caller passes a non-positive count.
	//
	// DefaultMaxRedirectsCount is used if not set.
	RedirectLimit int

	// all configurations related to retry
	RetryConfig *retry.Config

	HostClientStateObserve HostClientStateFunc

	// StateObserve execution interval
	ObservationInterval time.Duration

	// Callback hook for re-configuring host client
	// If an error is returned, the request will be terminated.
	HostClientConfigHook func(hc interface{}) error
}

func NewClientOptions(opts []ClientOption) *ClientOptions {
	options := &ClientOptions{
		DialTimeout:         consts.DefaultDialTimeout,
		MaxConnsPerKey:      consts.DefaultMaxConnsPerKey,
		MaxIdleConnsPerKey:  consts.DefaultMaxIdleConnsPerKey,
		MaxIdleConnDuration: consts.DefaultMaxIdleConnDuration,
		ContinueTimeout:     consts.DefaultContinueTimeout,
		DrainLimit:          consts.DefaultDrainLimit,
		KeepAlive:           true,
		ObservationInterval: time.Second * 5,
	}
	options.Apply(opts)

	return options
}

func (o *ClientOptions) Apply(opts []ClientOption) {
	for _, op := range opts {
		op.F(o)
	}
}
