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

package consts

const (
	HeaderAuthorization = "Authorization"
	HeaderHost          = "Host"
	HeaderContentType   = "Content-Type"
	HeaderUserAgent     = "User-Agent"
	HeaderExpect        = "Expect"
	HeaderConnection    = "Connection"
	HeaderContentLength = "Content-Length"

	HeaderTransferEncoding = "Transfer-Encoding"
	HeaderContentEncoding  = "Content-Encoding"
	HeaderTrailer          = "Trailer"
	HeaderServer           = "Server"
	HeaderDate             = "Date"

	// Redirects
	HeaderLocation = "Location"

	// Protocol upgrade
	HeaderUpgrade       = "Upgrade"
	HeaderHTTP2Settings = "HTTP2-Settings"

	HeaderProxyConnection    = "Proxy-Connection"
	HeaderProxyAuthenticate  = "Proxy-Authenticate"
	HeaderProxyAuthorization = "Proxy-Authorization"

	// Forbidden trailer keys
	HeaderContentRange    = "Content-Range"
	HeaderMaxForwards     = "Max-Forwards"
	HeaderRange           = "Range"
	HeaderTE              = "TE"
	HeaderWWWAuthenticate = "WWW-Authenticate"

	// Protocol
	HTTP11 = "HTTP/1.1"
	HTTP10 = "HTTP/1.0"
	HTTP20 = "HTTP/2.0"

	// ALPN protocol identifiers.
	ALPNHTTP11 = "http/1.1"
	ALPNHTTP2  = "h2"

	// ClientPreface is the HTTP/2 connection preface sent by a client
	// before any frames, including with prior knowledge.
	ClientPreface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"
)
