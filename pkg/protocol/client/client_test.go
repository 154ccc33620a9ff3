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
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/volt/internal/bytestr"
	errs "github.com/cloudwego/volt/pkg/common/errors"
	"github.com/cloudwego/volt/pkg/protocol"
	"github.com/cloudwego/volt/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var firstTime = true

type MockDoer struct {
	mock.Mock
}

func (m *MockDoer) Do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
	// this is the real logic in (c *HostClient) doNonNilReqResp method
	if len(req.Header.Host()) == 0 {
		req.Header.SetHostBytes(req.URI().Host())
	}

	if firstTime {
		// req.Header.Host() is the real host writing to the wire
		if string(req.Header.Host()) != "example.com" {
			return errors.New("host not match")
		}
		resp.Header.SetCanonical(bytestr.StrLocation, []byte("https://a.b.c/foo"))
		resp.SetStatusCode(301)
		firstTime = false
		return nil
	}

	if string(req.Header.Host()) != "a.b.c" {
		resp.SetStatusCode(400)
		return errors.New("host not match")
	}

	resp.SetStatusCode(200)

	return nil
}

func TestDoRequestFollowRedirects(t *testing.T) {
	mockDoer := new(MockDoer)
	mockDoer.On("Do", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	statusCode, _, err := DoRequestFollowRedirects(context.Background(), &protocol.Request{}, &protocol.Response{}, "https://example.com", consts.DefaultMaxRedirectsCount, mockDoer)
	assert.NoError(t, err)
	assert.Equal(t, 200, statusCode)
}

type doerFunc func(ctx context.Context, req *protocol.Request, resp *protocol.Response) error

func (f doerFunc) Do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
	return f(ctx, req, resp)
}

type hop struct {
	method string
	body   string
	uri    string
}

// redirectingDoer answers each request with the next configured status and
// location, recording what the client actually sent on every hop.
func redirectingDoer(hops *[]hop, statuses []int, locations []string) doerFunc {
	i := 0
	return func(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
		*hops = append(*hops, hop{
			method: string(req.Method()),
			body:   string(req.Body()),
			uri:    req.URI().String(),
		})
		resp.Reset()
		resp.SetStatusCode(statuses[i])
		if locations[i] != "" {
			resp.Header.SetCanonical(bytestr.StrLocation, []byte(locations[i]))
		}
		if i < len(statuses)-1 {
			i++
		}
		return nil
	}
}

func TestRedirectPreservesMethodAndEntity(t *testing.T) {
	for _, status := range []int{consts.StatusTemporaryRedirect, consts.StatusPermanentRedirect} {
		var hops []hop
		d := redirectingDoer(&hops, []int{status, 200}, []string{"https://example.com/next", ""})

		req := protocol.AcquireRequest()
		resp := protocol.AcquireResponse()
		req.SetMethod(consts.MethodPost)
		req.SetBodyString("entity payload")

		statusCode, _, err := DoRequestFollowRedirects(context.Background(), req, resp, "https://example.com/form", consts.DefaultMaxRedirectsCount, d)
		assert.NoError(t, err)
		assert.Equal(t, 200, statusCode)
		assert.Len(t, hops, 2)
		assert.Equal(t, consts.MethodPost, hops[1].method)
		assert.Equal(t, "entity payload", hops[1].body)
		assert.Equal(t, "https://example.com/next", hops[1].uri)

		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}
}

func TestRedirectConvertsToGet(t *testing.T) {
	for _, status := range []int{consts.StatusMovedPermanently, consts.StatusFound, consts.StatusSeeOther} {
		var hops []hop
		d := redirectingDoer(&hops, []int{status, 200}, []string{"https://example.com/next", ""})

		req := protocol.AcquireRequest()
		resp := protocol.AcquireResponse()
		req.SetMethod(consts.MethodPost)
		req.SetBodyString("entity payload")

		statusCode, _, err := DoRequestFollowRedirects(context.Background(), req, resp, "https://example.com/form", consts.DefaultMaxRedirectsCount, d)
		assert.NoError(t, err)
		assert.Equal(t, 200, statusCode)
		assert.Len(t, hops, 2)
		assert.Equal(t, consts.MethodGet, hops[1].method)
		assert.Empty(t, hops[1].body)

		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}
}

func TestRedirectHeadStaysHead(t *testing.T) {
	var hops []hop
	d := redirectingDoer(&hops, []int{consts.StatusFound, 200}, []string{"https://example.com/next", ""})

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	req.SetMethod(consts.MethodHead)

	_, _, err := DoRequestFollowRedirects(context.Background(), req, resp, "https://example.com/form", consts.DefaultMaxRedirectsCount, d)
	assert.NoError(t, err)
	assert.Equal(t, consts.MethodHead, hops[1].method)

	protocol.ReleaseRequest(req)
	protocol.ReleaseResponse(resp)
}

func TestRedirectRelativeLocation(t *testing.T) {
	var hops []hop
	d := redirectingDoer(&hops, []int{consts.StatusFound, 200}, []string{"/other/path?q=1", ""})

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()

	statusCode, _, err := DoRequestFollowRedirects(context.Background(), req, resp, "https://example.com/first", consts.DefaultMaxRedirectsCount, d)
	assert.NoError(t, err)
	assert.Equal(t, 200, statusCode)
	assert.Len(t, hops, 2)
	assert.Equal(t, "https://example.com/other/path?q=1", hops[1].uri)

	protocol.ReleaseRequest(req)
	protocol.ReleaseResponse(resp)
}

func TestRedirectTooMany(t *testing.T) {
	d := doerFunc(func(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
		resp.Reset()
		resp.SetStatusCode(consts.StatusFound)
		resp.Header.SetCanonical(bytestr.StrLocation, []byte("https://example.com/loop"))
		return nil
	})

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()

	_, _, err := DoRequestFollowRedirects(context.Background(), req, resp, "https://example.com/start", 3, d)
	assert.ErrorIs(t, err, errs.ErrTooManyRedirects)
	assert.Contains(t, err.Error(), "limit of 3")

	protocol.ReleaseRequest(req)
	protocol.ReleaseResponse(resp)
}

func TestRedirectMissingLocation(t *testing.T) {
	d := doerFunc(func(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
		resp.Reset()
		resp.SetStatusCode(consts.StatusFound)
		return nil
	})

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()

	_, _, err := DoRequestFollowRedirects(context.Background(), req, resp, "https://example.com/start", consts.DefaultMaxRedirectsCount, d)
	assert.ErrorIs(t, err, errs.ErrMissingLocation)

	protocol.ReleaseRequest(req)
	protocol.ReleaseResponse(resp)
}

func TestStatusCodeIsRedirect(t *testing.T) {
	assert.True(t, StatusCodeIsRedirect(consts.StatusMovedPermanently))
	assert.True(t, StatusCodeIsRedirect(consts.StatusFound))
	assert.True(t, StatusCodeIsRedirect(consts.StatusSeeOther))
	assert.True(t, StatusCodeIsRedirect(consts.StatusTemporaryRedirect))
	assert.True(t, StatusCodeIsRedirect(consts.StatusPermanentRedirect))
	assert.False(t, StatusCodeIsRedirect(consts.StatusOK))
	assert.False(t, StatusCodeIsRedirect(consts.StatusNotModified))
}

func TestDefaultRetryIf(t *testing.T) {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()

	req.SetMethod(consts.MethodGet)
	assert.True(t, DefaultRetryIf(req, resp, nil))

	req.SetMethod(consts.MethodPost)
	assert.False(t, DefaultRetryIf(req, resp, nil))

	req.SetMethod(consts.MethodPut)
	assert.True(t, DefaultRetryIf(req, resp, nil))

	// a consumed body stream cannot be replayed
	req.SetMethod(consts.MethodGet)
	req.SetBodyStream(bytes.NewBufferString("stream"), 6)
	assert.False(t, DefaultRetryIf(req, resp, nil))

	protocol.ReleaseRequest(req)
	protocol.ReleaseResponse(resp)
}

func TestDoTimeoutExpired(t *testing.T) {
	d := doerFunc(func(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
		return nil
	})

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()

	assert.ErrorIs(t, DoTimeout(context.Background(), req, resp, 0, d), errTimeout)
	assert.ErrorIs(t, DoDeadline(context.Background(), req, resp, time.Now().Add(-time.Second), d), errTimeout)
	assert.NoError(t, DoTimeout(context.Background(), req, resp, time.Second, d))

	protocol.ReleaseRequest(req)
	protocol.ReleaseResponse(resp)
}
