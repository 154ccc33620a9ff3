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
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/cloudwego/volt/pkg/client/retry"
	"github.com/cloudwego/volt/pkg/common/config"
	errs "github.com/cloudwego/volt/pkg/common/errors"
	"github.com/cloudwego/volt/pkg/common/test/assert"
	"github.com/cloudwego/volt/pkg/protocol"
	"github.com/cloudwego/volt/pkg/protocol/client"
	"github.com/cloudwego/volt/pkg/protocol/consts"
	"github.com/cloudwego/volt/pkg/protocol/suite"
)

type mockHostClient struct {
	doCalls int
	lastCfg *client.DynamicConfig
	state   config.ConnPoolState
	doErr   error
}

func (m *mockHostClient) Do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
	m.doCalls++
	return m.doErr
}

func (m *mockHostClient) SetDynamicConfig(dc *client.DynamicConfig) {
	m.lastCfg = dc
	m.state.Addr = dc.Addr
}

func (m *mockHostClient) CloseIdleConnections() {}

func (m *mockHostClient) ShouldRemove() bool { return false }

func (m *mockHostClient) ConnectionCount() int { return 0 }

func (m *mockHostClient) ConnPoolState() config.ConnPoolState { return m.state }

type mockFactory struct {
	created []*mockHostClient
}

func (f *mockFactory) NewHostClient() (client.HostClient, error) {
	hc := &mockHostClient{}
	f.created = append(f.created, hc)
	return hc, nil
}

func TestClientFactoryOverride(t *testing.T) {
	c, err := NewClient()
	assert.Nil(t, err)
	cf := &mockFactory{}
	c.SetClientFactory(cf)

	req, resp := protocol.AcquireRequest(), protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()
	req.SetRequestURI("http://example.com/ping")

	assert.Nil(t, c.Do(context.Background(), req, resp))
	assert.DeepEqual(t, 1, len(cf.created))
	hc := cf.created[0]
	assert.DeepEqual(t, 1, hc.doCalls)
	assert.DeepEqual(t, "example.com:80", hc.lastCfg.Addr)
	assert.False(t, hc.lastCfg.IsTLS)

	// Same host reuses the cached client.
	assert.Nil(t, c.Do(context.Background(), req, resp))
	assert.DeepEqual(t, 1, len(cf.created))
	assert.DeepEqual(t, 2, hc.doCalls)
}

func TestClientUnsupportedScheme(t *testing.T) {
	c, _ := NewClient()
	c.SetClientFactory(&mockFactory{})

	req, resp := protocol.AcquireRequest(), protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()
	req.SetRequestURI("ftp://example.com/file")

	err := c.Do(context.Background(), req, resp)
	assert.NotNil(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotSupportProtocol))
}

func TestClientKeepAliveDisabledSetsConnectionClose(t *testing.T) {
	c, _ := NewClient(WithKeepAlive(false))
	c.SetClientFactory(&mockFactory{})

	req, resp := protocol.AcquireRequest(), protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()
	req.SetRequestURI("http://example.com/")

	assert.Nil(t, c.Do(context.Background(), req, resp))
	assert.True(t, req.Header.ConnectionClose())
}

func TestClientMiddlewareOrder(t *testing.T) {
	c, _ := NewClient()
	c.SetClientFactory(&mockFactory{})

	var order []string
	mw := func(tag string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
				order = append(order, "pre-"+tag)
				err := next(ctx, req, resp)
				order = append(order, "post-"+tag)
				return err
			}
		}
	}
	c.Use(mw("a"))
	c.Use(mw("b"))

	req, resp := protocol.AcquireRequest(), protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()
	req.SetRequestURI("http://example.com/")

	assert.Nil(t, c.Do(context.Background(), req, resp))
	assert.DeepEqual(t, []string{"pre-a", "pre-b", "post-b", "post-a"}, order)
}

func TestClientProxyError(t *testing.T) {
	c, _ := NewClient()
	c.SetClientFactory(&mockFactory{})
	c.SetProxy(func(req *protocol.Request) (*protocol.URI, error) {
		return nil, errors.New("no route to proxy")
	})

	req, resp := protocol.AcquireRequest(), protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()
	req.SetRequestURI("http://example.com/")

	err := c.Do(context.Background(), req, resp)
	assert.NotNil(t, err)
}

func TestDumpConnPoolStates(t *testing.T) {
	c, _ := NewClient()
	c.SetClientFactory(&mockFactory{})

	req, resp := protocol.AcquireRequest(), protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()
	req.SetRequestURI("http://example.com/")
	assert.Nil(t, c.Do(context.Background(), req, resp))

	b, err := c.DumpConnPoolStates()
	assert.Nil(t, err)
	addr := gjson.GetBytes(b, `example\.com.addr`)
	assert.True(t, addr.Exists())
	assert.DeepEqual(t, "example.com:80", addr.String())
	assert.DeepEqual(t, int64(0), gjson.GetBytes(b, `example\.com.pool_conn_num`).Int())
}

func TestClientOptionsApplied(t *testing.T) {
	observe := func(config.HostClientState) {}
	c, _ := NewClient(
		WithDialTimeout(2*time.Second),
		WithMaxConnsPerKey(128),
		WithMaxIdleConns(8),
		WithMaxConnDuration(10*time.Second),
		WithMaxIdleConnDuration(30*time.Second),
		WithMaxConnWaitTimeout(time.Second),
		WithClientReadTimeout(3*time.Second),
		WithWriteTimeout(4*time.Second),
		WithMaxResponseBodySize(1<<20),
		WithDisableHeaderNamesNormalizing(true),
		WithDisablePathNormalizing(true),
		WithName("volt-test"),
		WithNoDefaultUserAgentHeader(true),
		WithResponseBodyStream(true),
		WithDialDualStack(true),
		WithExpectContinue(time.Second, config.ContinueWaitStrict),
		WithDrainLimit(4096),
		WithRedirectLimit(3),
		WithConnStateObserve(observe, time.Second),
	)

	o := c.GetOptions()
	assert.DeepEqual(t, 2*time.Second, o.DialTimeout)
	assert.DeepEqual(t, 128, o.MaxConnsPerKey)
	assert.DeepEqual(t, 8, o.MaxIdleConnsPerKey)
	assert.DeepEqual(t, 10*time.Second, o.MaxConnDuration)
	assert.DeepEqual(t, 30*time.Second, o.MaxIdleConnDuration)
	assert.DeepEqual(t, time.Second, o.MaxConnWaitTimeout)
	assert.DeepEqual(t, 3*time.Second, o.ReadTimeout)
	assert.DeepEqual(t, 4*time.Second, o.WriteTimeout)
	assert.DeepEqual(t, 1<<20, o.MaxResponseBodySize)
	assert.True(t, o.DisableHeaderNamesNormalizing)
	assert.True(t, o.DisablePathNormalizing)
	assert.DeepEqual(t, "volt-test", o.Name)
	assert.True(t, o.NoDefaultUserAgentHeader)
	assert.True(t, o.ResponseBodyStream)
	assert.True(t, o.DialDualStack)
	assert.DeepEqual(t, time.Second, o.ContinueTimeout)
	assert.DeepEqual(t, config.ContinueWaitStrict, o.ContinueWaitPolicy)
	assert.DeepEqual(t, 4096, o.DrainLimit)
	assert.DeepEqual(t, 3, o.RedirectLimit)
	assert.NotNil(t, o.HostClientStateObserve)
	assert.DeepEqual(t, time.Second, o.ObservationInterval)
}

func TestClientRetryConfigOption(t *testing.T) {
	c, _ := NewClient(WithRetryConfig(
		retry.WithMaxAttemptTimes(5),
		retry.WithInitDelay(10*time.Millisecond),
	))
	rc := c.GetOptions().RetryConfig
	assert.NotNil(t, rc)
	assert.DeepEqual(t, uint(5), rc.MaxAttemptTimes)
	assert.DeepEqual(t, 10*time.Millisecond, rc.Delay)
}

func TestClientHostClientConfigHook(t *testing.T) {
	var hooked []interface{}
	c, _ := NewClient(WithHostClientConfigHook(func(hc interface{}) error {
		hooked = append(hooked, hc)
		return nil
	}))
	c.SetClientFactory(&mockFactory{})

	req, resp := protocol.AcquireRequest(), protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()
	req.SetRequestURI("http://example.com/")
	assert.Nil(t, c.Do(context.Background(), req, resp))
	assert.DeepEqual(t, 1, len(hooked))
}

func TestDoRedirectsLimitFallback(t *testing.T) {
	c, _ := NewClient(WithRedirectLimit(2))

	hops := 0
	c.SetClientFactory(&redirectFactory{hops: &hops})

	req, resp := protocol.AcquireRequest(), protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()
	req.SetRequestURI("http://example.com/start")

	err := c.DoRedirects(context.Background(), req, resp, 0)
	assert.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "too many redirects"))
	// Initial request plus the configured number of redirect hops.
	assert.DeepEqual(t, 3, hops)
}

type redirectFactory struct {
	hops *int
}

func (f *redirectFactory) NewHostClient() (client.HostClient, error) {
	return &redirectHostClient{hops: f.hops}, nil
}

type redirectHostClient struct {
	mockHostClient
	hops *int
}

func (r *redirectHostClient) Do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
	*r.hops++
	resp.Reset()
	resp.SetStatusCode(consts.StatusFound)
	resp.Header.Set("Location", "http://example.com/next")
	return nil
}

func TestProtocolMemo(t *testing.T) {
	var memo suite.Memo
	_, known := memo.Load("example.com")
	assert.False(t, known)

	memo.Store("example.com", suite.HTTP2)
	proto, known := memo.Load("example.com")
	assert.True(t, known)
	assert.DeepEqual(t, suite.HTTP2, proto)

	memo.Forget("example.com")
	_, known = memo.Load("example.com")
	assert.False(t, known)
}

func writeCertPair(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	assert.Nil(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: "volt-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	assert.Nil(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	assert.Nil(t, err)

	certFile = filepath.Join(dir, "client.crt")
	keyFile = filepath.Join(dir, "client.key")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	assert.Nil(t, os.WriteFile(certFile, certPEM, 0o600))
	assert.Nil(t, os.WriteFile(keyFile, keyPEM, 0o600))
	return certFile, keyFile
}

func TestCertWatcherReload(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeCertPair(t, dir)

	cw, err := newCertWatcher(certFile, keyFile)
	assert.Nil(t, err)
	defer cw.Close()

	first, err := cw.getClientCertificate(&tls.CertificateRequestInfo{})
	assert.Nil(t, err)
	assert.NotNil(t, first)

	// Re-issue the pair in place and wait for the watcher to pick it up.
	writeCertPair(t, dir)
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		cur, _ := cw.getClientCertificate(&tls.CertificateRequestInfo{})
		if cur != first {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("certificate was not reloaded")
}

func TestWithTLSCertReloadOption(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeCertPair(t, dir)

	c, _ := NewClient(WithTLSCertReload(certFile, keyFile))
	o := c.GetOptions()
	assert.NotNil(t, o.TLSConfig)
	assert.NotNil(t, o.TLSConfig.GetClientCertificate)

	cert, err := o.TLSConfig.GetClientCertificate(&tls.CertificateRequestInfo{})
	assert.Nil(t, err)
	assert.NotNil(t, cert)
}
