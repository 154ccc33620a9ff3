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

package client

import (
	"crypto/tls"
	"time"

	"github.com/cloudwego/volt/pkg/client/retry"
	"github.com/cloudwego/volt/pkg/common/config"
	"github.com/cloudwego/volt/pkg/common/hlog"
	"github.com/cloudwego/volt/pkg/network"
	"github.com/cloudwego/volt/pkg/network/standard"
	"github.com/cloudwego/volt/pkg/protocol/consts"
)

// WithDialTimeout sets dial timeout.
func WithDialTimeout(dialTimeout time.Duration) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.DialTimeout = dialTimeout
	}}
}

// WithMaxConnsPerKey sets max connections per connection key (host:port,
// tls flag, proxy).
func WithMaxConnsPerKey(mc int) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.MaxConnsPerKey = mc
	}}
}

// WithMaxIdleConns bounds the number of idle connections kept per
// connection key. Releasing a healthy connection above the bound evicts
// the oldest idle one.
func WithMaxIdleConns(mic int) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.MaxIdleConnsPerKey = mic
	}}
}

// WithMaxIdleConnDuration sets max idle connection duration, idle keep-alive
// connections are closed after this duration.
func WithMaxIdleConnDuration(t time.Duration) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.MaxIdleConnDuration = t
	}}
}

// WithMaxConnDuration sets max connection duration, keep-alive connections are
// closed after this duration.
func WithMaxConnDuration(t time.Duration) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.MaxConnDuration = t
	}}
}

// WithMaxConnWaitTimeout sets maximum duration for waiting for a free
// connection.
func WithMaxConnWaitTimeout(t time.Duration) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.MaxConnWaitTimeout = t
	}}
}

// WithKeepAlive sets whether to use keep-alive connection, default is true.
func WithKeepAlive(b bool) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.KeepAlive = b
	}}
}

// WithClientReadTimeout sets maximum duration for full response reading
// (including body).
func WithClientReadTimeout(t time.Duration) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.ReadTimeout = t
	}}
}

// WithWriteTimeout sets maximum duration for writing the full request
// (including body).
func WithWriteTimeout(t time.Duration) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.WriteTimeout = t
	}}
}

// WithTLSConfig sets tlsConfig to create a tls connection, and the client
// takes the standard network transporter for those hosts.
func WithTLSConfig(cfg *tls.Config) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.TLSConfig = cfg
		o.Dialer = standard.NewDialer()
	}}
}

// WithDialer sets the specific dialer.
func WithDialer(d network.Dialer) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.Dialer = d
	}}
}

// WithDialDualStack enables both ipv4 and ipv6 when resolving host addresses.
func WithDialDualStack(b bool) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.DialDualStack = b
	}}
}

// WithResponseBodyStream is used to determine whether read body in stream or
// not, default is false.
func WithResponseBodyStream(b bool) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.ResponseBodyStream = b
	}}
}

// WithMaxResponseBodySize sets the maximum response body size a connection
// will read before erroring. Zero means no limit.
func WithMaxResponseBodySize(n int) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.MaxResponseBodySize = n
	}}
}

// WithDisableHeaderNamesNormalizing is used to set whether disable header
// names normalizing.
func WithDisableHeaderNamesNormalizing(disable bool) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.DisableHeaderNamesNormalizing = disable
	}}
}

// WithDisablePathNormalizing is used to set whether disable path normalizing.
func WithDisablePathNormalizing(disable bool) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.DisablePathNormalizing = disable
	}}
}

// WithName sets client name which used in User-Agent Header.
func WithName(name string) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.Name = name
	}}
}

// WithNoDefaultUserAgentHeader sets whether no default User-Agent header.
func WithNoDefaultUserAgentHeader(isNoDefaultUserAgentHeader bool) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.NoDefaultUserAgentHeader = isNoDefaultUserAgentHeader
	}}
}

// WithRetryConfig sets the retry policy applied to idempotent requests.
func WithRetryConfig(opts ...retry.Option) config.ClientOption {
	retryCfg := &retry.Config{
		MaxAttemptTimes: consts.DefaultMaxIdemponentCallAttempts,
		Delay:           1 * time.Millisecond,
		MaxDelay:        100 * time.Millisecond,
		MaxJitter:       20 * time.Millisecond,
		DelayPolicy:     retry.CombineDelay(retry.DefaultDelayPolicy),
	}
	retryCfg.Apply(opts)

	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.RetryConfig = retryCfg
	}}
}

// WithExpectContinue configures "Expect: 100-continue" handling: timeout is
// the maximum wait for the interim response before the body is sent anyway
// (Permissive) or the request fails (Strict).
func WithExpectContinue(timeout time.Duration, policy config.ContinueWaitPolicy) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.ContinueTimeout = timeout
		o.ContinueWaitPolicy = policy
	}}
}

// WithDrainLimit bounds how many leftover body bytes a released connection
// may drain before it is closed instead of pooled. Negative means drain
// without limit.
func WithDrainLimit(n int) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.DrainLimit = n
	}}
}

// WithRedirectLimit sets the redirect hop bound used by DoRedirects when the
// caller passes a non-positive count.
func WithRedirectLimit(n int) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.RedirectLimit = n
	}}
}

// WithConnStateObserve sets the connection pool state observer together with
// an optional observation interval.
func WithConnStateObserve(hs config.HostClientStateFunc, interval ...time.Duration) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.HostClientStateObserve = hs
		if len(interval) > 0 {
			o.ObservationInterval = interval[0]
		}
	}}
}

// WithHostClientConfigHook sets a hook invoked on every newly created host
// client before its first use.
func WithHostClientConfigHook(h func(hc interface{}) error) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		o.HostClientConfigHook = h
	}}
}

// WithTLSCertReload loads the client certificate from certFile/keyFile and
// watches both paths, picking up re-issued certificates without restarting
// the process. New tls handshakes use the latest successfully loaded pair.
func WithTLSCertReload(certFile, keyFile string) config.ClientOption {
	return config.ClientOption{F: func(o *config.ClientOptions) {
		cw, err := newCertWatcher(certFile, keyFile)
		if err != nil {
			hlog.SystemLogger().Errorf("load client certificate %q/%q: %v", certFile, keyFile, err)
			return
		}
		if o.TLSConfig == nil {
			o.TLSConfig = &tls.Config{}
		}
		o.TLSConfig.GetClientCertificate = cw.getClientCertificate
		o.Dialer = standard.NewDialer()
	}}
}
