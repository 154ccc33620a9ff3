/*
 *	Copyright 2023 CloudWeGo Authors
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
 * Copyright 2014 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style
 * license that can be found in the LICENSE file.
 */

// Package http2 implements the client side of the HTTP/2 protocol on top
// of the golang.org/x/net/http2 frame and HPACK machinery.
package http2

import (
	"encoding/base64"
	"errors"
	"os"
	"strings"

	"golang.org/x/net/http2"
)

// The wire-level types come straight from golang.org/x/net/http2. Aliasing
// them here keeps the rest of the package readable and leaves a single
// place to swap the framer implementation.
type (
	Framer            = http2.Framer
	Setting           = http2.Setting
	SettingID         = http2.SettingID
	ErrCode           = http2.ErrCode
	StreamError       = http2.StreamError
	ConnectionError   = http2.ConnectionError
	GoAwayFrame       = http2.GoAwayFrame
	SettingsFrame     = http2.SettingsFrame
	DataFrame         = http2.DataFrame
	MetaHeadersFrame  = http2.MetaHeadersFrame
	WindowUpdateFrame = http2.WindowUpdateFrame
	RSTStreamFrame    = http2.RSTStreamFrame
	PingFrame         = http2.PingFrame
	PushPromiseFrame  = http2.PushPromiseFrame
	HeadersFrameParam = http2.HeadersFrameParam
)

const (
	SettingEnablePush           = http2.SettingEnablePush
	SettingInitialWindowSize    = http2.SettingInitialWindowSize
	SettingMaxHeaderListSize    = http2.SettingMaxHeaderListSize
	SettingMaxConcurrentStreams = http2.SettingMaxConcurrentStreams
	SettingMaxFrameSize         = http2.SettingMaxFrameSize

	ErrCodeNo            = http2.ErrCodeNo
	ErrCodeProtocol      = http2.ErrCodeProtocol
	ErrCodeFlowControl   = http2.ErrCodeFlowControl
	ErrCodeRefusedStream = http2.ErrCodeRefusedStream
	ErrCodeCancel        = http2.ErrCodeCancel
)

// NextProtoTLS is the NPN/ALPN protocol negotiated during HTTP/2's TLS setup.
const NextProtoTLS = http2.NextProtoTLS

var (
	NewFramer     = http2.NewFramer
	clientPreface = []byte(http2.ClientPreface)
)

const (
	initialWindowSize = 65535 // 6.9.2 Initial Flow Control Window Size

	// initialHeaderTableSize is the maximum size of the HPACK dynamic
	// table as seeded by the protocol, before any SETTINGS frame.
	initialHeaderTableSize = 4096
)

func streamError(id uint32, code ErrCode) StreamError {
	return StreamError{StreamID: id, Code: code}
}

var (
	errClientConnClosed       = errors.New("http2: client conn is closed")
	errClientConnUnusable     = errors.New("http2: client conn not usable")
	errClientConnGotGoAway    = errors.New("http2: Transport received Server's graceful shutdown GOAWAY")
	errStopReqBodyWrite       = errors.New("http2: aborting request body write")
	errReqBodyTooLong         = errors.New("http2: request body larger than specified content length")
	errRequestCanceled        = errors.New("http2: request canceled")
	errNilRequestURL          = errors.New("http2: request has no host")
	errRequestHeaderListSize  = errors.New("http2: request header list larger than peer's advertised limit")
	errResponseHeaderListSize = errors.New("http2: response header list larger than advertised limit")

	// errFromPeer marks a stream error that was initiated by a RST_STREAM
	// frame from the server, as opposed to one generated locally.
	errFromPeer = errors.New("received from peer")
)

// ErrALPNNotNegotiated is returned when a TLS handshake completes without
// the server selecting "h2". Callers may fall back to HTTP/1.1.
var ErrALPNNotNegotiated = errors.New("http2: server did not negotiate h2 via ALPN")

// UpgradeSettingsHeaderValue encodes the settings this client announces in
// its connection preface, in the base64url form the HTTP2-Settings header
// requires (RFC 7540 section 3.2.1).
func UpgradeSettingsHeaderValue() string {
	settings := []Setting{
		{ID: SettingEnablePush, Val: 0},
		{ID: SettingInitialWindowSize, Val: transportDefaultStreamFlow},
	}
	buf := make([]byte, 0, len(settings)*6)
	for _, s := range settings {
		buf = append(buf,
			byte(s.ID>>8), byte(s.ID),
			byte(s.Val>>24), byte(s.Val>>16), byte(s.Val>>8), byte(s.Val))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// VerboseLogs enables noisy per-frame logging. It mirrors the x/net/http2
// GODEBUG knobs so both layers can be switched on together.
var VerboseLogs bool

func init() {
	e := os.Getenv("GODEBUG")
	if strings.Contains(e, "http2debug=1") || strings.Contains(e, "http2debug=2") {
		VerboseLogs = true
	}
}

func validPseudoPath(v string) bool {
	return (len(v) > 0 && v[0] == '/') || v == "*"
}
