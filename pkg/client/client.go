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
 *
 * The MIT License (MIT)
 *
 * Copyright (c) 2015-present Aliaksandr Valialkin, VertaMedia, Kirill Danshin, Erik Dubbelboer, FastHTTP Authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
 * THE SOFTWARE.
 *
 * This file may have been modified by CloudWeGo authors. All CloudWeGo
 * Modifications are Copyright 2023 CloudWeGo Authors.
 */

package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cloudwego/volt/internal/bytestr"
	"github.com/cloudwego/volt/internal/nocopy"
	"github.com/cloudwego/volt/pkg/client/retry"
	"github.com/cloudwego/volt/pkg/common/config"
	errs "github.com/cloudwego/volt/pkg/common/errors"
	"github.com/cloudwego/volt/pkg/common/json"
	"github.com/cloudwego/volt/pkg/common/utils"
	"github.com/cloudwego/volt/pkg/network"
	"github.com/cloudwego/volt/pkg/protocol"
	"github.com/cloudwego/volt/pkg/protocol/client"
	"github.com/cloudwego/volt/pkg/protocol/consts"
	"github.com/cloudwego/volt/pkg/protocol/http1"
	http1factory "github.com/cloudwego/volt/pkg/protocol/http1/factory"
	"github.com/cloudwego/volt/pkg/protocol/http2"
	http2config "github.com/cloudwego/volt/pkg/protocol/http2/config"
	http2factory "github.com/cloudwego/volt/pkg/protocol/http2/factory"
	"github.com/cloudwego/volt/pkg/protocol/suite"
)

var errorInvalidURI = errs.NewPublic("invalid uri")

// Do performs the given http request and fills the given http response.
//
// Request must contain at least non-zero RequestURI with full url (including
// scheme and host) or non-zero Host header + RequestURI.
//
// Client determines the server to be requested in the following order:
//
//   - from RequestURI if it contains full url with scheme and host;
//   - from Host header otherwise.
//
// The function doesn't follow redirects. Use Get* for following redirects.
//
// Response is ignored if resp is nil.
//
// ErrNoFreeConns is returned if all DefaultMaxConnsPerKey connections
// to the requested host are busy.
//
// It is recommended obtaining req and resp via AcquireRequest
// and AcquireResponse in performance-critical code.
func Do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
	return defaultClient.Do(ctx, req, resp)
}

// DoTimeout performs the given request and waits for response during
// the given timeout duration.
//
// The function doesn't follow redirects. Use Get* for following redirects.
//
// Warning: DoTimeout does not terminate the request itself. The request will
// continue in the background and the response will be discarded.
// If requests take too long and the connection pool gets filled up please
// try using a Client and setting a ReadTimeout.
func DoTimeout(ctx context.Context, req *protocol.Request, resp *protocol.Response, timeout time.Duration) error {
	return defaultClient.DoTimeout(ctx, req, resp, timeout)
}

// DoDeadline performs the given request and waits for response until
// the given deadline.
//
// The function doesn't follow redirects. Use Get* for following redirects.
func DoDeadline(ctx context.Context, req *protocol.Request, resp *protocol.Response, deadline time.Time) error {
	return defaultClient.DoDeadline(ctx, req, resp, deadline)
}

// DoRedirects performs the given http request and fills the given http response,
// following up to maxRedirectsCount redirects. When the redirect count exceeds
// maxRedirectsCount, ErrTooManyRedirects is returned.
func DoRedirects(ctx context.Context, req *protocol.Request, resp *protocol.Response, maxRedirectsCount int) error {
	return defaultClient.DoRedirects(ctx, req, resp, maxRedirectsCount)
}

// Get returns the status code and body of url.
//
// The contents of dst will be replaced by the body and returned, if the dst
// is too small a new slice will be allocated.
//
// The function follows redirects. Use Do* for manually handling redirects.
func Get(ctx context.Context, dst []byte, url string) (statusCode int, body []byte, err error) {
	return defaultClient.Get(ctx, dst, url)
}

// GetTimeout returns the status code and body of url.
//
// errTimeout error is returned if url contents couldn't be fetched
// during the given timeout.
func GetTimeout(ctx context.Context, dst []byte, url string, timeout time.Duration) (statusCode int, body []byte, err error) {
	return defaultClient.GetTimeout(ctx, dst, url, timeout)
}

// GetDeadline returns the status code and body of url.
//
// errTimeout error is returned if url contents couldn't be fetched
// until the given deadline.
func GetDeadline(ctx context.Context, dst []byte, url string, deadline time.Time) (statusCode int, body []byte, err error) {
	return defaultClient.GetDeadline(ctx, dst, url, deadline)
}

// Post sends POST request to the given url with the given POST arguments.
//
// Empty POST body is sent if postArgs is nil.
func Post(ctx context.Context, dst []byte, url string, postArgs *protocol.Args) (statusCode int, body []byte, err error) {
	return defaultClient.Post(ctx, dst, url, postArgs)
}

var defaultClient, _ = NewClient(WithDialTimeout(consts.DefaultDialTimeout))

// Client implements http client.
//
// Copying Client by value is prohibited. Create new instance instead.
//
// It is safe calling Client methods from concurrently running goroutines.
type Client struct {
	noCopy nocopy.NoCopy //lint:ignore U1000 until noCopy is used

	options *config.ClientOptions

	// Proxy specifies a function to return a proxy for a given
	// Request. If the function returns a non-nil error, the
	// request is aborted with the provided error.
	//
	// The proxy type is determined by the URL scheme.
	// "http" and "https" are supported. If the scheme is empty,
	// "http" is assumed.
	//
	// If Proxy is nil or returns a nil *URI, no proxy is used.
	Proxy protocol.Proxy

	// RetryConfig All configurations related to retry
	RetryConfig *retry.Config

	clientFactory suite.ClientFactory

	policy suite.Policy
	memo   suite.Memo
	h2Opts []http2config.Option

	// sf collapses concurrent HostClient creation for the same key.
	sf singleflight.Group

	mLock sync.Mutex
	m     map[string]client.HostClient // plain-text hosts
	ms    map[string]client.HostClient // tls hosts
	mH2   map[string]client.HostClient // h2 pools for upgraded cleartext hosts

	mws Middleware
}

func (c *Client) GetOptions() *config.ClientOptions {
	return c.options
}

// SetProxy is used to set client proxy.
//
// Don't SetProxy twice for a client.
// If you want to use another proxy, please create another client and set proxy to it.
func (c *Client) SetProxy(p protocol.Proxy) {
	c.Proxy = p
}

func (c *Client) SetRetryConfig(retryConfig *retry.Config) {
	c.RetryConfig = retryConfig
}

// SetClientFactory overrides protocol selection: every host client is
// built by cf, regardless of the protocol policy.
func (c *Client) SetClientFactory(cf suite.ClientFactory) {
	c.clientFactory = cf
}

// SetProtocolPolicy selects how the protocol for each host is chosen.
// Call it before the first request; hosts already resolved keep their
// protocol.
func (c *Client) SetProtocolPolicy(p suite.Policy) {
	c.policy = p
}

// SetHTTP2Config sets the HTTP/2 specific knobs used when the protocol
// policy routes a host to HTTP/2.
func (c *Client) SetHTTP2Config(opts ...http2config.Option) {
	c.h2Opts = opts
}

// Get returns the status code and body of url.
//
// The contents of dst will be replaced by the body and returned, if the dst
// is too small a new slice will be allocated.
//
// The function follows redirects. Use Do* for manually handling redirects.
func (c *Client) Get(ctx context.Context, dst []byte, url string, requestOptions ...config.RequestOption) (statusCode int, body []byte, err error) {
	return client.GetURL(ctx, dst, url, c, requestOptions...)
}

// GetTimeout returns the status code and body of url.
//
// errTimeout error is returned if url contents couldn't be fetched
// during the given timeout.
func (c *Client) GetTimeout(ctx context.Context, dst []byte, url string, timeout time.Duration, requestOptions ...config.RequestOption) (statusCode int, body []byte, err error) {
	return client.GetURLTimeout(ctx, dst, url, timeout, c, requestOptions...)
}

// GetDeadline returns the status code and body of url.
//
// errTimeout error is returned if url contents couldn't be fetched
// until the given deadline.
func (c *Client) GetDeadline(ctx context.Context, dst []byte, url string, deadline time.Time, requestOptions ...config.RequestOption) (statusCode int, body []byte, err error) {
	return client.GetURLDeadline(ctx, dst, url, deadline, c, requestOptions...)
}

// Post sends POST request to the given url with the given POST arguments.
//
// Empty POST body is sent if postArgs is nil.
func (c *Client) Post(ctx context.Context, dst []byte, url string, postArgs *protocol.Args, requestOptions ...config.RequestOption) (statusCode int, body []byte, err error) {
	return client.PostURL(ctx, dst, url, postArgs, c, requestOptions...)
}

// DoTimeout performs the given request and waits for response during
// the given timeout duration.
//
// The function doesn't follow redirects. Use Get* for following redirects.
//
// Warning: DoTimeout does not terminate the request itself. The request will
// continue in the background and the response will be discarded.
// If requests take too long and the connection pool gets filled up please
// try setting a ReadTimeout.
func (c *Client) DoTimeout(ctx context.Context, req *protocol.Request, resp *protocol.Response, timeout time.Duration) error {
	return client.DoTimeout(ctx, req, resp, timeout, c)
}

// DoDeadline performs the given request and waits for response until
// the given deadline.
//
// The function doesn't follow redirects. Use Get* for following redirects.
func (c *Client) DoDeadline(ctx context.Context, req *protocol.Request, resp *protocol.Response, deadline time.Time) error {
	return client.DoDeadline(ctx, req, resp, deadline, c)
}

// DoRedirects performs the given http request and fills the given http
// response, following up to maxRedirectsCount redirects. When the redirect
// count exceeds maxRedirectsCount, ErrTooManyRedirects is returned.
//
// A non-positive maxRedirectsCount falls back to the client's RedirectLimit
// option, then to DefaultMaxRedirectsCount.
func (c *Client) DoRedirects(ctx context.Context, req *protocol.Request, resp *protocol.Response, maxRedirectsCount int) error {
	if maxRedirectsCount <= 0 {
		maxRedirectsCount = c.options.RedirectLimit
	}
	if maxRedirectsCount <= 0 {
		maxRedirectsCount = consts.DefaultMaxRedirectsCount
	}
	_, _, err := client.DoRequestFollowRedirects(ctx, req, resp, req.URI().String(), maxRedirectsCount, c)
	return err
}

// Do performs the given http request and fills the given http response.
//
// Request must contain at least non-zero RequestURI with full url (including
// scheme and host) or non-zero Host header + RequestURI.
//
// Client determines the server to be requested in the following order:
//
//   - from RequestURI if it contains full url with scheme and host;
//   - from Host header otherwise.
//
// Response is ignored if resp is nil.
//
// The function doesn't follow redirects. Use Get* for following redirects.
//
// ErrNoFreeConns is returned if all Client.MaxConnsPerKey connections
// to the requested host are busy.
//
// It is recommended obtaining req and resp via AcquireRequest
// and AcquireResponse in performance-critical code.
func (c *Client) Do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
	if c.mws == nil {
		return c.do(ctx, req, resp)
	}
	return c.mws(c.do)(ctx, req, resp)
}

func (c *Client) do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
	if !c.options.KeepAlive {
		req.Header.SetConnectionClose(true)
	}
	uri := req.URI()
	if uri == nil {
		return errorInvalidURI
	}

	var proxyURI *protocol.URI
	var err error

	if c.Proxy != nil {
		proxyURI, err = c.Proxy(req)
		if err != nil {
			return fmt.Errorf("proxy error=%w", err)
		}
	}

	isTLS := false
	scheme := uri.Scheme()
	if bytes.Equal(scheme, bytestr.StrHTTPS) {
		isTLS = true
	} else if !bytes.Equal(scheme, bytestr.StrHTTP) {
		return fmt.Errorf("%w %q, http and https are supported", errs.ErrNotSupportProtocol, scheme)
	}
	h := string(uri.Host())

	hc, upgrading, err := c.hostClient(h, isTLS, proxyURI)
	if err != nil {
		return err
	}

	if upgrading {
		req.Header.Set(consts.HeaderUpgrade, "h2c")
		req.Header.Set(consts.HeaderConnection, "Upgrade, HTTP2-Settings")
		req.Header.Set(consts.HeaderHTTP2Settings, http2.UpgradeSettingsHeaderValue())
	}

	err = hc.Do(ctx, req, resp)

	if upgrading && err == nil {
		if _, known := c.memo.Load(h); !known {
			// The switch handler memoizes HTTP2 on a 101. Any other
			// response means the server declined; stop offering.
			c.memo.Store(h, suite.HTTP1)
		}
	}

	if err != nil && errors.Is(err, http2.ErrALPNNotNegotiated) {
		// The server doesn't speak h2. Redo the request over HTTP/1.1
		// and remember the choice for this host.
		c.memo.Store(h, suite.HTTP1)
		c.removeHostClient(h, isTLS)
		hc, _, err = c.hostClient(h, isTLS, proxyURI)
		if err != nil {
			return err
		}
		err = hc.Do(ctx, req, resp)
	}

	return err
}

// hostClient resolves the HostClient serving host h under the configured
// protocol policy. The second return value reports whether the caller
// should decorate the request with h2c upgrade headers.
func (c *Client) hostClient(h string, isTLS bool, proxyURI *protocol.URI) (client.HostClient, bool, error) {
	if c.clientFactory != nil {
		hc, err := c.lookupOrCreate(h, isTLS, proxyURI, c.clientFactory)
		return hc, false, err
	}

	switch c.policy {
	case suite.PolicyH2PriorKnowledge:
		hc, err := c.lookupOrCreate(h, isTLS, proxyURI, http2factory.NewClientFactory(c.newHTTP2Options(isTLS)))
		return hc, false, err

	case suite.PolicyALPN:
		if isTLS {
			if proto, known := c.memo.Load(h); !known || proto == suite.HTTP2 {
				hc, err := c.lookupOrCreate(h, isTLS, proxyURI, http2factory.NewClientFactory(c.newHTTP2Options(isTLS)))
				return hc, false, err
			}
		}
		hc, err := c.lookupOrCreate(h, isTLS, proxyURI, http1factory.NewClientFactory(c.newHTTP1Options()))
		return hc, false, err

	case suite.PolicyH2CUpgrade:
		if isTLS {
			// The upgrade dance is a cleartext mechanism.
			hc, err := c.lookupOrCreate(h, isTLS, proxyURI, http1factory.NewClientFactory(c.newHTTP1Options()))
			return hc, false, err
		}
		h2hc, err := c.lookupOrCreateH2(h, proxyURI)
		if err != nil {
			return nil, false, err
		}
		if proto, known := c.memo.Load(h); known && proto == suite.HTTP2 {
			return h2hc, false, nil
		}
		opt := c.newHTTP1Options()
		upgraded := h2hc.(*http2.HostClient)
		opt.OnProtocolSwitch = func(conn network.Conn, resp *protocol.Response) error {
			c.memo.Store(h, suite.HTTP2)
			if err := upgraded.UpgradedRoundTrip(context.Background(), conn, resp); err != nil {
				return fmt.Errorf("%w: %s", errs.ErrUpgradeFailed, err.Error())
			}
			return nil
		}
		hc, err := c.lookupOrCreate(h, isTLS, proxyURI, http1factory.NewClientFactory(opt))
		if err != nil {
			return nil, false, err
		}
		_, known := c.memo.Load(h)
		return hc, !known, nil
	}

	hc, err := c.lookupOrCreate(h, isTLS, proxyURI, http1factory.NewClientFactory(c.newHTTP1Options()))
	return hc, false, err
}

func (c *Client) getMap(isTLS bool) map[string]client.HostClient {
	if isTLS {
		if c.ms == nil {
			c.ms = make(map[string]client.HostClient)
		}
		return c.ms
	}
	if c.m == nil {
		c.m = make(map[string]client.HostClient)
	}
	return c.m
}

func (c *Client) lookupOrCreate(h string, isTLS bool, proxyURI *protocol.URI, cf suite.ClientFactory) (client.HostClient, error) {
	c.mLock.Lock()
	hc := c.getMap(isTLS)[h]
	c.mLock.Unlock()
	if hc != nil {
		return hc, nil
	}

	sfKey := h
	if isTLS {
		sfKey = "tls\x00" + h
	}
	v, err, _ := c.sf.Do(sfKey, func() (interface{}, error) {
		c.mLock.Lock()
		if hc := c.getMap(isTLS)[h]; hc != nil {
			c.mLock.Unlock()
			return hc, nil
		}
		c.mLock.Unlock()

		hc, err := cf.NewHostClient()
		if err != nil {
			return nil, err
		}
		hc.SetDynamicConfig(&client.DynamicConfig{
			Addr:     utils.AddMissingPort(h, isTLS),
			ProxyURI: proxyURI,
			IsTLS:    isTLS,
		})
		if err := c.register(c.getMapLocked(isTLS), h, hc); err != nil {
			return nil, err
		}
		return hc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(client.HostClient), nil
}

func (c *Client) lookupOrCreateH2(h string, proxyURI *protocol.URI) (client.HostClient, error) {
	c.mLock.Lock()
	if c.mH2 == nil {
		c.mH2 = make(map[string]client.HostClient)
	}
	hc := c.mH2[h]
	c.mLock.Unlock()
	if hc != nil {
		return hc, nil
	}

	v, err, _ := c.sf.Do("h2c\x00"+h, func() (interface{}, error) {
		c.mLock.Lock()
		if hc := c.mH2[h]; hc != nil {
			c.mLock.Unlock()
			return hc, nil
		}
		c.mLock.Unlock()

		hc, err := http2factory.NewClientFactory(c.newHTTP2Options(false)).NewHostClient()
		if err != nil {
			return nil, err
		}
		hc.SetDynamicConfig(&client.DynamicConfig{
			Addr:     utils.AddMissingPort(h, false),
			ProxyURI: proxyURI,
			IsTLS:    false,
		})
		if err := c.register(c.mH2, h, hc); err != nil {
			return nil, err
		}
		return hc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(client.HostClient), nil
}

// register runs the config hook, stores hc, and starts the cleaner when
// the first host client appears.
func (c *Client) register(m map[string]client.HostClient, h string, hc client.HostClient) error {
	if hook := c.options.HostClientConfigHook; hook != nil {
		if err := hook(hc); err != nil {
			return err
		}
	}
	startCleaner := false
	c.mLock.Lock()
	m[h] = hc
	if c.totalLocked() == 1 {
		startCleaner = true
	}
	c.mLock.Unlock()
	if startCleaner {
		go c.mCleaner()
	}
	return nil
}

func (c *Client) getMapLocked(isTLS bool) map[string]client.HostClient {
	c.mLock.Lock()
	defer c.mLock.Unlock()
	return c.getMap(isTLS)
}

func (c *Client) totalLocked() int {
	return len(c.m) + len(c.ms) + len(c.mH2)
}

func (c *Client) removeHostClient(h string, isTLS bool) {
	c.mLock.Lock()
	old := c.getMap(isTLS)[h]
	delete(c.getMap(isTLS), h)
	c.mLock.Unlock()
	if old != nil {
		old.CloseIdleConnections()
	}
}

// CloseIdleConnections closes any connections which were previously
// connected from previous requests but are now sitting idle in a
// "keep-alive" state. It does not interrupt any connections currently
// in use.
func (c *Client) CloseIdleConnections() {
	c.mLock.Lock()
	for _, m := range []map[string]client.HostClient{c.m, c.ms, c.mH2} {
		for _, v := range m {
			v.CloseIdleConnections()
		}
	}
	c.mLock.Unlock()
}

// DumpConnPoolStates reports every host client's connection pool as a
// JSON document keyed by host.
func (c *Client) DumpConnPoolStates() ([]byte, error) {
	states := make(map[string]config.ConnPoolState)
	c.mLock.Lock()
	for _, m := range []map[string]client.HostClient{c.m, c.ms, c.mH2} {
		for k, v := range m {
			if s, ok := v.(config.HostClientState); ok {
				states[k] = s.ConnPoolState()
			}
		}
	}
	c.mLock.Unlock()
	return json.Marshal(states)
}

func (c *Client) mCleaner() {
	for {
		time.Sleep(10 * time.Second)

		c.mLock.Lock()
		for _, m := range []map[string]client.HostClient{c.m, c.ms, c.mH2} {
			for k, v := range m {
				if v.ShouldRemove() {
					delete(m, k)
				}
			}
		}
		done := c.totalLocked() == 0
		c.mLock.Unlock()

		if done {
			break
		}
	}
}

// NewClient return a client with options
func NewClient(opts ...config.ClientOption) (*Client, error) {
	opt := config.NewClientOptions(opts)
	c := &Client{
		options: opt,
	}

	return c, nil
}

func (c *Client) Use(mws ...Middleware) {
	// Put the original middlewares to the first
	middlewares := make([]Middleware, 0, 1+len(mws))
	if c.mws != nil {
		middlewares = append(middlewares, c.mws)
	}
	middlewares = append(middlewares, mws...)
	c.mws = chain(middlewares...)
}

func (c *Client) newHTTP1Options() *http1.ClientOptions {
	rc := c.RetryConfig
	if rc == nil {
		rc = c.options.RetryConfig
	}
	return &http1.ClientOptions{
		Name:                          c.options.Name,
		NoDefaultUserAgentHeader:      c.options.NoDefaultUserAgentHeader,
		Dialer:                        c.options.Dialer,
		DialTimeout:                   c.options.DialTimeout,
		DialDualStack:                 c.options.DialDualStack,
		TLSConfig:                     c.options.TLSConfig,
		MaxConns:                      c.options.MaxConnsPerKey,
		MaxIdleConns:                  c.options.MaxIdleConnsPerKey,
		MaxConnDuration:               c.options.MaxConnDuration,
		MaxIdleConnDuration:           c.options.MaxIdleConnDuration,
		ReadTimeout:                   c.options.ReadTimeout,
		WriteTimeout:                  c.options.WriteTimeout,
		MaxResponseBodySize:           c.options.MaxResponseBodySize,
		DisableHeaderNamesNormalizing: c.options.DisableHeaderNamesNormalizing,
		DisablePathNormalizing:        c.options.DisablePathNormalizing,
		MaxConnWaitTimeout:            c.options.MaxConnWaitTimeout,
		ContinueTimeout:               c.options.ContinueTimeout,
		ContinueWaitPolicy:            c.options.ContinueWaitPolicy,
		DrainLimit:                    c.options.DrainLimit,
		ResponseBodyStream:            c.options.ResponseBodyStream,
		RetryConfig:                   rc,
		StateObserve:                  c.options.HostClientStateObserve,
		ObservationInterval:           c.options.ObservationInterval,
	}
}

func (c *Client) newHTTP2Options(isTLS bool) *http2.ClientOptions {
	h2 := http2config.New(c.h2Opts...)
	return &http2.ClientOptions{
		NoDefaultUserAgentHeader:   c.options.NoDefaultUserAgentHeader,
		Dialer:                     c.options.Dialer,
		DialTimeout:                c.options.DialTimeout,
		TLSConfig:                  c.options.TLSConfig,
		IsTLS:                      isTLS,
		MaxIdleConnDuration:        c.options.MaxIdleConnDuration,
		KeepAlive:                  c.options.KeepAlive,
		MaxHeaderListSize:          h2.MaxHeaderListSize,
		AllowHTTP:                  !isTLS || h2.AllowHTTP,
		ReadIdleTimeout:            h2.ReadIdleTimeout,
		PingTimeout:                h2.PingTimeout,
		WriteByteTimeout:           h2.WriteByteTimeout,
		StrictMaxConcurrentStreams: h2.StrictMaxConcurrentStreams,
	}
}
