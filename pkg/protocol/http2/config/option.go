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
	"time"

	"github.com/cloudwego/volt/pkg/protocol/consts"
)

// Option is the only struct that can be used to set http2 Config.
type Option struct {
	F func(o *Config)
}

type Config struct {
	// MaxHeaderListSize is the http2 SETTINGS_MAX_HEADER_LIST_SIZE to
	// send in the initial settings frame.
	MaxHeaderListSize uint32

	// ReadIdleTimeout is the timeout after which a health check using ping
	// frame will be carried out if no frame is received on the connection.
	// If zero, no health check is performed.
	ReadIdleTimeout time.Duration

	// PingTimeout is the timeout after which the connection will be closed
	// if a response to Ping is not received.
	PingTimeout time.Duration

	// WriteByteTimeout is the timeout after which the connection will be
	// closed if no data can be written to it. The timeout begins when data
	// is available to write, and is extended whenever any bytes are
	// written.
	WriteByteTimeout time.Duration

	// StrictMaxConcurrentStreams controls whether the server's
	// SETTINGS_MAX_CONCURRENT_STREAMS should be respected globally.
	StrictMaxConcurrentStreams bool

	// AllowHTTP, if true, permits HTTP/2 requests over plain-text TCP,
	// either via the h2c upgrade or with prior knowledge.
	AllowHTTP bool
}

func (o *Config) Apply(opts []Option) {
	for _, op := range opts {
		op.F(o)
	}
}

// WithMaxHeaderListSize sets max header list size.
func WithMaxHeaderListSize(maxHeaderListSize uint32) Option {
	return Option{F: func(o *Config) {
		o.MaxHeaderListSize = maxHeaderListSize
	}}
}

// WithReadIdleTimeout is used to set the timeout after which a health
// check will be carried out.
func WithReadIdleTimeout(readIdleTimeout time.Duration) Option {
	return Option{F: func(o *Config) {
		o.ReadIdleTimeout = readIdleTimeout
	}}
}

// WithWriteByteTimeout is used to set the timeout after which the
// connection will be closed if no data can be written to it.
func WithWriteByteTimeout(writeByteTimeout time.Duration) Option {
	return Option{F: func(o *Config) {
		o.WriteByteTimeout = writeByteTimeout
	}}
}

// WithStrictMaxConcurrentStreams is used to make the server's
// SETTINGS_MAX_CONCURRENT_STREAMS respected globally.
func WithStrictMaxConcurrentStreams(strictMaxConcurrentStreams bool) Option {
	return Option{F: func(o *Config) {
		o.StrictMaxConcurrentStreams = strictMaxConcurrentStreams
	}}
}

// WithPingTimeout is used to set the timeout after which the connection
// will be closed if a response to a ping is not received.
func WithPingTimeout(pt time.Duration) Option {
	return Option{F: func(o *Config) {
		o.PingTimeout = pt
	}}
}

// WithAllowHTTP permits plain-text HTTP/2 connections.
func WithAllowHTTP(allow bool) Option {
	return Option{F: func(o *Config) {
		o.AllowHTTP = allow
	}}
}

func New(opts ...Option) *Config {
	c := &Config{
		PingTimeout: consts.DefaultPingTimeout,
	}

	c.Apply(opts)

	return c
}
