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

import "time"

var preDefinedOpts []RequestOption

type RequestOptions struct {
	readTimeout    time.Duration
	writeTimeout   time.Duration
	requestTimeout time.Duration

	// start record the initial time of a request with a requestTimeout.
	start time.Time
}

// RequestOption is the only struct to set request-level options.
type RequestOption struct {
	F func(o *RequestOptions)
}

// NewRequestOptions create a *RequestOptions according to the given opts.
func NewRequestOptions(opts []RequestOption) *RequestOptions {
	options := &RequestOptions{}
	if preDefinedOpts != nil {
		options.Apply(preDefinedOpts)
	}
	options.Apply(opts)
	return options
}

// WithReadTimeout sets the maximum duration for reading the full response
// (including body) for this request.
func WithReadTimeout(t time.Duration) RequestOption {
	return RequestOption{F: func(o *RequestOptions) {
		o.readTimeout = t
	}}
}

// WithWriteTimeout sets the maximum duration for writing the full request
// (including body) for this request.
func WithWriteTimeout(t time.Duration) RequestOption {
	return RequestOption{F: func(o *RequestOptions) {
		o.writeTimeout = t
	}}
}

// WithRequestTimeout sets the whole duration for this request,
// including the connection establishment, redirects and body reading.
func WithRequestTimeout(t time.Duration) RequestOption {
	return RequestOption{F: func(o *RequestOptions) {
		o.requestTimeout = t
	}}
}

func (o *RequestOptions) Apply(opts []RequestOption) {
	for _, op := range opts {
		op.F(o)
	}
}

func (o *RequestOptions) ReadTimeout() time.Duration {
	return o.readTimeout
}

func (o *RequestOptions) WriteTimeout() time.Duration {
	return o.writeTimeout
}

func (o *RequestOptions) RequestTimeout() time.Duration {
	return o.requestTimeout
}

// StartRequest records the start time of the request when a request
// timeout is set.
func (o *RequestOptions) StartRequest() {
	if o.requestTimeout > 0 {
		o.start = time.Now()
	}
}

func (o *RequestOptions) StartTime() time.Time {
	return o.start
}

func (o *RequestOptions) CopyTo(dst *RequestOptions) {
	dst.readTimeout = o.readTimeout
	dst.writeTimeout = o.writeTimeout
	dst.requestTimeout = o.requestTimeout
	dst.start = o.start
}

// SetPreDefinedOpts Pre define some RequestOption here
func SetPreDefinedOpts(opts ...RequestOption) {
	preDefinedOpts = nil
	preDefinedOpts = append(preDefinedOpts, opts...)
}
