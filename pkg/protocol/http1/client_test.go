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

package http1

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/volt/pkg/client/retry"
	"github.com/cloudwego/volt/pkg/common/config"
	errs "github.com/cloudwego/volt/pkg/common/errors"
	"github.com/cloudwego/volt/pkg/common/hlog"
	"github.com/cloudwego/volt/pkg/common/test/assert"
	"github.com/cloudwego/volt/pkg/common/test/mock"
	"github.com/cloudwego/volt/pkg/common/utils"
	"github.com/cloudwego/volt/pkg/network"
	"github.com/cloudwego/volt/pkg/protocol"
	"github.com/cloudwego/volt/pkg/protocol/client"
	"github.com/cloudwego/volt/pkg/protocol/consts"
)

func TestHostClientMaxConnWaitTimeoutWithEarlierDeadline(t *testing.T) {
	var (
		wg sync.WaitGroup
		// make deadline reach earlier than conns wait timeout
		timeout = 10 * time.Millisecond
	)

	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: newMockConnDialer(func(network, addr string) (network.Conn, error) {
				return mock.SlowReadDialer(addr)
			}),
			MaxConns:           1,
			MaxConnWaitTimeout: 50 * time.Millisecond,
		},
		Addr: "foobar",
	}

	var errTimeoutCount uint32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			req := protocol.AcquireRequest()
			req.SetRequestURI("http://foobar/baz")
			req.Header.SetMethod(consts.MethodPost)
			req.SetBodyString("bar")
			resp := protocol.AcquireResponse()

			if err := c.DoDeadline(context.Background(), req, resp, time.Now().Add(timeout)); err != nil {
				if !errors.Is(err, errs.ErrTimeout) {
					t.Errorf("unexpected error: %s. Expecting %s", err, errs.ErrTimeout)
				}
				atomic.AddUint32(&errTimeoutCount, 1)
			} else {
				if resp.StatusCode() != consts.StatusOK {
					t.Errorf("unexpected status code %d. Expecting %d", resp.StatusCode(), consts.StatusOK)
				}
			}
		}()
	}
	wg.Wait()

	c.connsLock.Lock()
	for {
		w := c.connsWait.popFront()
		if w == nil {
			break
		}
		w.mu.Lock()
		if w.err != nil && !errors.Is(w.err, errs.ErrNoFreeConns) {
			t.Errorf("unexpected error: %s. Expecting %s", w.err, errs.ErrNoFreeConns)
		}
		w.mu.Unlock()
	}
	c.connsLock.Unlock()
	if errTimeoutCount == 0 {
		t.Errorf("unexpected errTimeoutCount: %d. Expecting > 0", errTimeoutCount)
	}
}

func newMockConnDialer(dialConn func(network, addr string) (network.Conn, error)) network.Dialer {
	return &mockDialer{customDialConn: dialConn}
}

type mockDialer struct {
	customDialConn func(network, addr string) (network.Conn, error)
}

func (m *mockDialer) DialConnection(network, address string, timeout time.Duration, tlsConfig *tls.Config) (conn network.Conn, err error) {
	return m.customDialConn(network, address)
}

func (m *mockDialer) DialTimeout(network, address string, timeout time.Duration, tlsConfig *tls.Config) (conn net.Conn, err error) {
	return nil, nil
}

func (m *mockDialer) AddTLS(conn network.Conn, tlsConfig *tls.Config) (network.Conn, error) {
	return nil, nil
}

// closeRecordConn remembers whether the pool closed it.
type closeRecordConn struct {
	*mock.Conn
	closed bool
}

func (c *closeRecordConn) Close() error {
	c.closed = true
	return nil
}

func singleConnDialer(conn network.Conn) network.Dialer {
	return newMockConnDialer(func(network, addr string) (network.Conn, error) {
		return conn, nil
	})
}

func TestReadTimeoutPriority(t *testing.T) {
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: newMockConnDialer(func(network, addr string) (network.Conn, error) {
				return mock.SlowReadDialer(addr)
			}),
			MaxConns:           1,
			MaxConnWaitTimeout: 50 * time.Millisecond,
			ReadTimeout:        time.Second * 3,
		},
		Addr: "foobar",
	}

	req := protocol.AcquireRequest()
	req.SetRequestURI("http://foobar/baz")
	req.SetOptions(config.WithReadTimeout(time.Second * 1))
	resp := protocol.AcquireResponse()

	ch := make(chan error, 1)
	go func() {
		ch <- c.Do(context.Background(), req, resp)
	}()
	select {
	case <-time.After(time.Second * 2):
		t.Fatalf("should use readTimeout in request options")
	case err := <-ch:
		assert.DeepEqual(t, mock.ErrReadTimeout, err)
	}
}

func TestWriteTimeoutPriority(t *testing.T) {
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: newMockConnDialer(func(network, addr string) (network.Conn, error) {
				return mock.SlowWriteDialer(addr)
			}),
			MaxConns:           1,
			MaxConnWaitTimeout: 50 * time.Millisecond,
			WriteTimeout:       time.Second * 3,
		},
		Addr: "foobar",
	}

	req := protocol.AcquireRequest()
	req.SetRequestURI("http://foobar/baz")
	req.SetOptions(config.WithWriteTimeout(time.Second * 1))
	resp := protocol.AcquireResponse()

	ch := make(chan error, 1)
	go func() {
		ch <- c.Do(context.Background(), req, resp)
	}()
	select {
	case <-time.After(time.Second * 2):
		t.Fatalf("should use writeTimeout in request options")
	case err := <-ch:
		assert.DeepEqual(t, mock.ErrWriteTimeout, err)
	}
}

func TestDoNonNilReqResp(t *testing.T) {
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: newMockConnDialer(func(network, addr string) (network.Conn, error) {
				return &writeErrConn{
						Conn: mock.NewConn("HTTP/1.1 400 OK\nContent-Length: 6\n\n123456"),
					},
					nil
			}),
		},
	}
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	req.SetHost("foobar")
	retry, err := c.doNonNilReqResp(req, resp)
	assert.False(t, retry)
	assert.Nil(t, err)
	assert.DeepEqual(t, resp.StatusCode(), 400)
	assert.DeepEqual(t, resp.Body(), []byte("123456"))
}

func TestDoNonNilReqResp1(t *testing.T) {
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: newMockConnDialer(func(network, addr string) (network.Conn, error) {
				return &writeErrConn{
						Conn: mock.NewConn(""),
					},
					nil
			}),
		},
	}
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	req.SetHost("foobar")
	retry, err := c.doNonNilReqResp(req, resp)
	assert.True(t, retry)
	assert.NotNil(t, err)
}

func TestStateObserve(t *testing.T) {
	syncState := struct {
		mu    sync.Mutex
		state config.ConnPoolState
	}{}
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: newMockConnDialer(func(network, addr string) (network.Conn, error) {
				return mock.SlowReadDialer(addr)
			}),
			StateObserve: func(hcs config.HostClientState) {
				syncState.mu.Lock()
				defer syncState.mu.Unlock()
				syncState.state = hcs.ConnPoolState()
			},
			ObservationInterval: 50 * time.Millisecond,
		},
		Addr:   "foobar",
		closed: make(chan struct{}),
	}

	c.SetDynamicConfig(&client.DynamicConfig{
		Addr: utils.AddMissingPort(c.Addr, true),
	})

	time.Sleep(500 * time.Millisecond)
	assert.Nil(t, c.Close())
	syncState.mu.Lock()
	assert.DeepEqual(t, "foobar:443", syncState.state.Addr)
	syncState.mu.Unlock()
}

func TestCachedTLSConfig(t *testing.T) {
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: newMockConnDialer(func(network, addr string) (network.Conn, error) {
				return mock.SlowReadDialer(addr)
			}),
			TLSConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		},
		Addr:  "foobar",
		IsTLS: true,
	}

	cfg1 := c.cachedTLSConfig("foobar")
	cfg2 := c.cachedTLSConfig("baz")
	assert.NotEqual(t, cfg1, cfg2)
	cfg3 := c.cachedTLSConfig("foobar")
	assert.DeepEqual(t, cfg1, cfg3)
}

func TestRetry(t *testing.T) {
	var times int32
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: newMockConnDialer(func(network, addr string) (network.Conn, error) {
				times++
				if times < 3 {
					return &retryConn{
						Conn: mock.NewConn(""),
					}, nil
				}
				return mock.NewConn("HTTP/1.1 200 OK\r\nContent-Length: 10\r\nContent-Type: foo/bar\r\n\r\n0123456789"), nil
			}),
			RetryConfig: &retry.Config{
				MaxAttemptTimes: 5,
				Delay:           time.Millisecond * 10,
			},
			RetryIfFunc: func(req *protocol.Request, resp *protocol.Response, err error) bool {
				return resp.Header.ContentLength() != 10
			},
		},
		Addr: "foobar",
	}

	req := protocol.AcquireRequest()
	req.SetRequestURI("http://foobar/baz")
	req.SetOptions(config.WithWriteTimeout(time.Millisecond * 100))
	resp := protocol.AcquireResponse()

	ch := make(chan error, 1)
	go func() {
		ch <- c.Do(context.Background(), req, resp)
	}()
	select {
	case <-time.After(time.Second * 2):
		t.Fatalf("should not take this long with a 10ms retry delay")
	case err := <-ch:
		assert.Nil(t, err)
		assert.True(t, times == 3)
		assert.DeepEqual(t, resp.StatusCode(), 200)
		assert.DeepEqual(t, resp.Body(), []byte("0123456789"))
	}
}

// mockConn for getting error when write binary data.
type writeErrConn struct {
	network.Conn
}

func (w writeErrConn) WriteBinary(b []byte) (n int, err error) {
	return 0, errs.ErrConnectionClosed
}

type retryConn struct {
	network.Conn
}

func (w retryConn) SetWriteTimeout(t time.Duration) error {
	return errors.New("should retry")
}

func TestConnInPoolRetry(t *testing.T) {
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: newMockConnDialer(func(network, addr string) (network.Conn, error) {
				return mock.NewOneTimeConn("HTTP/1.1 200 OK\r\nContent-Length: 10\r\nContent-Type: foo/bar\r\n\r\n0123456789"), nil
			}),
			RetryConfig: &retry.Config{MaxAttemptTimes: 1},
		},
		Addr: "foobar",
	}

	req := protocol.AcquireRequest()
	req.SetRequestURI("http://foobar/baz")
	req.SetOptions(config.WithWriteTimeout(time.Millisecond * 100))
	resp := protocol.AcquireResponse()

	logbuf := &bytes.Buffer{}
	hlog.SetOutput(logbuf)

	err := c.Do(context.Background(), req, resp)
	assert.Nil(t, err)
	assert.DeepEqual(t, resp.StatusCode(), 200)
	assert.DeepEqual(t, string(resp.Body()), "0123456789")
	assert.True(t, logbuf.String() == "")
	protocol.ReleaseResponse(resp)
	resp = protocol.AcquireResponse()
	err = c.Do(context.Background(), req, resp)
	assert.Nil(t, err)
	assert.DeepEqual(t, resp.StatusCode(), 200)
	assert.DeepEqual(t, string(resp.Body()), "0123456789")
	assert.True(t, strings.Contains(logbuf.String(), "Client connection attempt times: 1"))
}

func TestConnInPoolNoRetryWithoutOptIn(t *testing.T) {
	dials := 0
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: newMockConnDialer(func(network, addr string) (network.Conn, error) {
				dials++
				return mock.NewOneTimeConn("HTTP/1.1 200 OK\r\nContent-Length: 10\r\nContent-Type: foo/bar\r\n\r\n0123456789"), nil
			}),
		},
		Addr: "foobar",
	}

	req := protocol.AcquireRequest()
	req.SetRequestURI("http://foobar/baz")
	req.SetOptions(config.WithWriteTimeout(time.Millisecond * 100))
	resp := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	assert.Nil(t, c.Do(context.Background(), req, resp))
	assert.DeepEqual(t, resp.StatusCode(), 200)

	// The pooled connection is dead. With no retry configured the
	// failure must reach the caller instead of being replayed on a
	// fresh dial.
	protocol.ReleaseResponse(resp)
	resp = protocol.AcquireResponse()
	err := c.Do(context.Background(), req, resp)
	assert.NotNil(t, err)
	assert.True(t, errors.Is(err, errs.ErrBadPoolConn))
	assert.DeepEqual(t, 1, dials)
}

func TestConnNotRetry(t *testing.T) {
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: newMockConnDialer(func(network, addr string) (network.Conn, error) {
				return mock.NewBrokenConn(""), nil
			}),
		},
		Addr: "foobar",
	}

	req := protocol.AcquireRequest()
	req.SetRequestURI("http://foobar/baz")
	req.SetOptions(config.WithWriteTimeout(time.Millisecond * 100))
	resp := protocol.AcquireResponse()
	logbuf := &bytes.Buffer{}
	hlog.SetOutput(logbuf)
	err := c.Do(context.Background(), req, resp)
	assert.DeepEqual(t, errs.ErrConnectionClosed, err)
	assert.True(t, logbuf.String() == "")
	protocol.ReleaseResponse(resp)
}

func TestDialTimeoutError(t *testing.T) {
	d := newMockConnDialer(func(network, addr string) (network.Conn, error) {
		return nil, &net.DNSError{Err: "i/o timeout", Name: addr, IsTimeout: true}
	})
	_, err := dialAddr("foobar:80", d, false, nil, 10*time.Millisecond, nil, false)
	assert.NotNil(t, err)
	assert.True(t, errors.Is(err, errs.ErrDialTimeout))
	assert.True(t, strings.Contains(err.Error(), "i/o timeout"))
}

func TestStreamNoContent(t *testing.T) {
	conn := &closeRecordConn{Conn: mock.NewConn("HTTP/1.1 204 Foo Bar\r\nContent-Type: aab\r\nTrailer: Foo\r\nContent-Encoding: deflate\r\nTransfer-Encoding: chunked\r\n\r\n0\r\nFoo: bar\r\n\r\nHTTP/1.2")}

	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: singleConnDialer(conn),
		},
		Addr: "foobar",
	}

	c.ResponseBodyStream = true

	req := protocol.AcquireRequest()
	req.SetRequestURI("http://foobar/baz")
	req.Header.SetConnectionClose(true)
	resp := protocol.AcquireResponse()

	c.Do(context.Background(), req, resp)

	assert.True(t, conn.closed)
}

func TestIdleConnsReusedOldestFirst(t *testing.T) {
	c := &HostClient{
		ClientOptions: &ClientOptions{},
		Addr:          "foobar",
	}

	first := acquireClientConn(mock.NewConn(""))
	second := acquireClientConn(mock.NewConn(""))
	c.connsCount = 2
	c.releaseConn(first)
	c.releaseConn(second)

	cc, inPool, err := c.acquireConn(0)
	assert.Nil(t, err)
	assert.True(t, inPool)
	assert.True(t, cc == first)

	cc, inPool, err = c.acquireConn(0)
	assert.Nil(t, err)
	assert.True(t, inPool)
	assert.True(t, cc == second)
}

func TestIdleConnOverflowClosesOldest(t *testing.T) {
	c := &HostClient{
		ClientOptions: &ClientOptions{
			MaxIdleConns: 2,
		},
		Addr: "foobar",
	}

	conns := make([]*closeRecordConn, 3)
	c.connsCount = len(conns)
	for i := range conns {
		conns[i] = &closeRecordConn{Conn: mock.NewConn("")}
		c.releaseConn(acquireClientConn(conns[i]))
	}

	assert.DeepEqual(t, 2, c.ConnectionCount())
	assert.True(t, conns[0].closed)
	assert.False(t, conns[1].closed)
	assert.False(t, conns[2].closed)
	assert.DeepEqual(t, 2, c.connsCount)
}

func testContinueRequest() *protocol.Request {
	req := protocol.AcquireRequest()
	req.SetRequestURI("http://foobar/baz")
	req.Header.SetMethod(consts.MethodPost)
	req.SetExpect100Continue()
	req.SetBodyString("bar")
	return req
}

func TestExpectContinueInterim(t *testing.T) {
	conn := &closeRecordConn{Conn: mock.NewConn("HTTP/1.1 100 Continue\r\n\r\nHTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")}
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: singleConnDialer(conn),
		},
		Addr: "foobar",
	}

	req := testContinueRequest()
	resp := protocol.AcquireResponse()

	err := c.Do(context.Background(), req, resp)
	assert.Nil(t, err)
	assert.DeepEqual(t, consts.StatusOK, resp.StatusCode())
	assert.DeepEqual(t, "ok", string(resp.Body()))

	rec := conn.WriterRecorder()
	written, _ := rec.Peek(rec.WroteLen())
	assert.True(t, strings.Contains(string(written), "Expect: 100-continue"))
	assert.True(t, strings.HasSuffix(string(written), "bar"))
	assert.False(t, conn.closed)
	assert.DeepEqual(t, 1, c.ConnectionCount())
}

func TestExpectContinueEarlyFinalResponse(t *testing.T) {
	conn := &closeRecordConn{Conn: mock.NewConn("HTTP/1.1 413 Request Entity Too Large\r\nContent-Length: 0\r\n\r\n")}
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: singleConnDialer(conn),
		},
		Addr: "foobar",
	}

	req := testContinueRequest()
	resp := protocol.AcquireResponse()

	err := c.Do(context.Background(), req, resp)
	assert.Nil(t, err)
	assert.DeepEqual(t, 413, resp.StatusCode())

	// The entity must not have been sent, and the connection cannot be
	// reused since the server still expects a body on it.
	rec := conn.WriterRecorder()
	written, _ := rec.Peek(rec.WroteLen())
	assert.False(t, strings.HasSuffix(string(written), "bar"))
	assert.True(t, conn.closed)
	assert.DeepEqual(t, 0, c.ConnectionCount())
}

func TestExpectContinueStrictTimeout(t *testing.T) {
	conn := &closeRecordConn{Conn: mock.NewConn("")}
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer:             singleConnDialer(conn),
			ContinueTimeout:    20 * time.Millisecond,
			ContinueWaitPolicy: config.ContinueWaitStrict,
		},
		Addr: "foobar",
	}

	req := testContinueRequest()
	resp := protocol.AcquireResponse()

	err := c.Do(context.Background(), req, resp)
	assert.True(t, errors.Is(err, errs.ErrTimeout))
	assert.True(t, conn.closed)
}

// silentThenRespondConn stays quiet for the first peek, then serves its
// source. It models a server that ignores the Expect header and answers
// only once the entity arrives.
type silentThenRespondConn struct {
	*mock.Conn
	silenced bool
}

func (c *silentThenRespondConn) Peek(n int) ([]byte, error) {
	if !c.silenced {
		c.silenced = true
		return nil, mock.ErrReadTimeout
	}
	return c.Conn.Peek(n)
}

func TestExpectContinuePermissiveTimeout(t *testing.T) {
	conn := &silentThenRespondConn{Conn: mock.NewConn("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")}
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer:          singleConnDialer(conn),
			ContinueTimeout: 20 * time.Millisecond,
		},
		Addr: "foobar",
	}

	req := testContinueRequest()
	resp := protocol.AcquireResponse()

	err := c.Do(context.Background(), req, resp)
	assert.Nil(t, err)
	assert.DeepEqual(t, consts.StatusOK, resp.StatusCode())
	assert.DeepEqual(t, "ok", string(resp.Body()))

	// With the permissive policy a silent server forfeits its veto and
	// the entity goes out anyway.
	rec := conn.WriterRecorder()
	written, _ := rec.Peek(rec.WroteLen())
	assert.True(t, strings.HasSuffix(string(written), "bar"))
}

func TestHeadRequestWithBodyRejected(t *testing.T) {
	conn := mock.NewConn("")
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: singleConnDialer(conn),
		},
		Addr: "foobar",
	}

	req := protocol.AcquireRequest()
	req.SetRequestURI("http://foobar/baz")
	req.Header.SetMethod(consts.MethodHead)
	req.SetBodyString("bar")
	resp := protocol.AcquireResponse()

	err := c.Do(context.Background(), req, resp)
	assert.True(t, errors.Is(err, errs.ErrBodyForbidden))

	// Nothing may reach the wire for a rejected request.
	rec := conn.WriterRecorder()
	assert.DeepEqual(t, 0, rec.WroteLen())
}

func TestBodyWriteFuncChunked(t *testing.T) {
	conn := mock.NewConn("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: singleConnDialer(conn),
		},
		Addr: "foobar",
	}

	req := protocol.AcquireRequest()
	req.SetRequestURI("http://foobar/baz")
	req.Header.SetMethod(consts.MethodPost)
	req.SetBodyWriteFunc(func(w network.ExtWriter) error {
		if _, err := w.Write([]byte("hello")); err != nil {
			return err
		}
		if _, err := w.Write([]byte(" world")); err != nil {
			return err
		}
		return w.Finalize()
	})
	resp := protocol.AcquireResponse()

	err := c.Do(context.Background(), req, resp)
	assert.Nil(t, err)
	assert.DeepEqual(t, consts.StatusOK, resp.StatusCode())

	rec := conn.WriterRecorder()
	written, _ := rec.Peek(rec.WroteLen())
	assert.True(t, strings.Contains(string(written), "Transfer-Encoding: chunked"))
	assert.True(t, strings.Contains(string(written), "5\r\nhello\r\n"))
	assert.True(t, strings.Contains(string(written), "6\r\n world\r\n"))
	assert.True(t, strings.Contains(string(written), "0\r\n\r\n"))
}

func TestBodyWriteFuncFixedSize(t *testing.T) {
	conn := mock.NewConn("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: singleConnDialer(conn),
		},
		Addr: "foobar",
	}

	req := protocol.AcquireRequest()
	req.SetRequestURI("http://foobar/baz")
	req.Header.SetMethod(consts.MethodPost)
	req.Header.SetContentLength(5)
	req.SetBodyWriteFunc(func(w network.ExtWriter) error {
		if _, err := w.Write([]byte("hello")); err != nil {
			return err
		}
		return w.Finalize()
	})
	resp := protocol.AcquireResponse()

	err := c.Do(context.Background(), req, resp)
	assert.Nil(t, err)

	rec := conn.WriterRecorder()
	written, _ := rec.Peek(rec.WroteLen())
	assert.True(t, strings.Contains(string(written), "Content-Length: 5"))
	assert.True(t, strings.HasSuffix(string(written), "hello"))
	assert.False(t, strings.Contains(string(written), "Transfer-Encoding: chunked"))
}

func TestBodyWriteFuncNotFinalized(t *testing.T) {
	conn := mock.NewConn("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: singleConnDialer(conn),
		},
		Addr: "foobar",
	}

	req := protocol.AcquireRequest()
	req.SetRequestURI("http://foobar/baz")
	req.Header.SetMethod(consts.MethodPost)
	req.SetBodyWriteFunc(func(w network.ExtWriter) error {
		_, err := w.Write([]byte("partial"))
		return err
	})
	resp := protocol.AcquireResponse()

	err := c.Do(context.Background(), req, resp)
	assert.True(t, errors.Is(err, errs.ErrStreamNotClosed))
}

func TestProtocolSwitchHandover(t *testing.T) {
	conn := &closeRecordConn{Conn: mock.NewConn("HTTP/1.1 101 Switching Protocols\r\nConnection: Upgrade\r\nUpgrade: h2c\r\n\r\n")}
	var handed network.Conn
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: singleConnDialer(conn),
			OnProtocolSwitch: func(nc network.Conn, resp *protocol.Response) error {
				handed = nc
				resp.SetStatusCode(consts.StatusOK)
				return nil
			},
		},
		Addr: "foobar",
	}

	req := protocol.AcquireRequest()
	req.SetRequestURI("http://foobar/baz")
	resp := protocol.AcquireResponse()

	err := c.Do(context.Background(), req, resp)
	assert.Nil(t, err)
	assert.True(t, handed == network.Conn(conn))
	assert.DeepEqual(t, consts.StatusOK, resp.StatusCode())

	// The socket now belongs to the handler: not closed, not pooled.
	assert.False(t, conn.closed)
	assert.DeepEqual(t, 0, c.ConnectionCount())
	assert.DeepEqual(t, 0, c.connsCount)
}

func TestStreamDrainLimitClosesConn(t *testing.T) {
	body := strings.Repeat("a", 32*1024)
	conn := &closeRecordConn{Conn: mock.NewConn("HTTP/1.1 200 OK\r\nContent-Length: 32768\r\n\r\n" + body)}
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer:             singleConnDialer(conn),
			ResponseBodyStream: true,
			DrainLimit:         64,
		},
		Addr: "foobar",
	}

	req := protocol.AcquireRequest()
	req.SetRequestURI("http://foobar/baz")
	resp := protocol.AcquireResponse()

	err := c.Do(context.Background(), req, resp)
	assert.Nil(t, err)

	p := make([]byte, 16)
	_, err = resp.BodyStream().Read(p)
	assert.Nil(t, err)

	// Closing the stream with far more than DrainLimit bytes left on the
	// wire must drop the connection instead of draining it.
	protocol.ReleaseResponse(resp)
	assert.True(t, conn.closed)
	assert.DeepEqual(t, 0, c.ConnectionCount())
}

func TestStreamDrainWithinLimitReleasesConn(t *testing.T) {
	body := strings.Repeat("a", 512)
	conn := &closeRecordConn{Conn: mock.NewConn("HTTP/1.1 200 OK\r\nContent-Length: 512\r\n\r\n" + body)}
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer:             singleConnDialer(conn),
			ResponseBodyStream: true,
			DrainLimit:         1024,
		},
		Addr: "foobar",
	}

	req := protocol.AcquireRequest()
	req.SetRequestURI("http://foobar/baz")
	resp := protocol.AcquireResponse()

	err := c.Do(context.Background(), req, resp)
	assert.Nil(t, err)

	protocol.ReleaseResponse(resp)
	assert.False(t, conn.closed)
	assert.DeepEqual(t, 1, c.ConnectionCount())
}

func TestStreamTimeoutConnNotReused(t *testing.T) {
	dials := 0
	var conns []*closeRecordConn
	c := &HostClient{
		ClientOptions: &ClientOptions{
			Dialer: newMockConnDialer(func(network, addr string) (network.Conn, error) {
				dials++
				// One full chunk, then the wire goes silent mid-chunk.
				conn := &closeRecordConn{Conn: mock.NewConn("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n5\r\nwo")}
				conns = append(conns, conn)
				return conn, nil
			}),
			ResponseBodyStream: true,
		},
		Addr: "foobar",
	}

	req := protocol.AcquireRequest()
	req.SetRequestURI("http://foobar/baz")
	req.SetOptions(config.WithReadTimeout(10 * time.Millisecond))
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)

	assert.Nil(t, c.Do(context.Background(), req, resp))

	p := make([]byte, 5)
	n, err := resp.BodyStream().Read(p)
	assert.Nil(t, err)
	assert.DeepEqual(t, "hello", string(p[:n]))

	// The second chunk never completes.
	_, err = resp.BodyStream().Read(p)
	assert.NotNil(t, err)

	// Releasing the half-read response must drop the connection rather
	// than pool it, so the next request gets a fresh dial.
	protocol.ReleaseResponse(resp)
	assert.True(t, conns[0].closed)
	assert.DeepEqual(t, 0, c.ConnectionCount())

	resp = protocol.AcquireResponse()
	assert.Nil(t, c.Do(context.Background(), req, resp))
	assert.DeepEqual(t, 2, dials)
	protocol.ReleaseResponse(resp)
}
