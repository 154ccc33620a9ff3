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

package bytestr

import (
	"github.com/cloudwego/volt/pkg/protocol/consts"
)

var (
	DefaultServerName  = []byte("volt")
	DefaultUserAgent   = []byte("volt")
	DefaultContentType = []byte("text/plain; charset=utf-8")

	StrPostArgsContentType = []byte("application/x-www-form-urlencoded")
)

var (
	StrBackSlash       = []byte("\\")
	StrSlash           = []byte("/")
	StrSlashSlash      = []byte("//")
	StrSlashDotDot     = []byte("/..")
	StrSlashDotSlash   = []byte("/./")
	StrSlashDotDotSlash = []byte("/../")
	StrCRLF            = []byte("\r\n")
	StrHTTP            = []byte("http")
	StrHTTPS           = []byte("https")
	StrHTTP10          = []byte("HTTP/1.0")
	StrHTTP11          = []byte("HTTP/1.1")
	StrHTTP2           = []byte("h2")
	StrHTTP2Cleartext  = []byte("h2c")
	StrColon           = []byte(":")
	StrColonSlashSlash = []byte("://")
	StrColonSpace      = []byte(": ")
	StrCommaSpace      = []byte(", ")
	StrAt              = []byte("@")

	StrGet     = []byte(consts.MethodGet)
	StrHead    = []byte(consts.MethodHead)
	StrPost    = []byte(consts.MethodPost)
	StrPut     = []byte(consts.MethodPut)
	StrDelete  = []byte(consts.MethodDelete)
	StrConnect = []byte(consts.MethodConnect)
	StrOptions = []byte(consts.MethodOptions)
	StrTrace   = []byte(consts.MethodTrace)
	StrPatch   = []byte(consts.MethodPatch)

	StrExpect           = []byte(consts.HeaderExpect)
	StrConnection       = []byte(consts.HeaderConnection)
	StrContentLength    = []byte(consts.HeaderContentLength)
	StrContentType      = []byte(consts.HeaderContentType)
	StrHost             = []byte(consts.HeaderHost)
	StrLocation         = []byte(consts.HeaderLocation)
	StrTransferEncoding = []byte(consts.HeaderTransferEncoding)
	StrUserAgent        = []byte(consts.HeaderUserAgent)
	StrUpgrade          = []byte(consts.HeaderUpgrade)
	StrHTTP2Settings    = []byte(consts.HeaderHTTP2Settings)
	StrContentEncoding  = []byte(consts.HeaderContentEncoding)
	StrTrailer          = []byte(consts.HeaderTrailer)
	StrServer           = []byte(consts.HeaderServer)
	StrDate             = []byte(consts.HeaderDate)

	StrAuthorization      = []byte(consts.HeaderAuthorization)
	StrContentRange       = []byte(consts.HeaderContentRange)
	StrMaxForwards        = []byte(consts.HeaderMaxForwards)
	StrProxyConnection    = []byte(consts.HeaderProxyConnection)
	StrProxyAuthenticate  = []byte(consts.HeaderProxyAuthenticate)
	StrProxyAuthorization = []byte(consts.HeaderProxyAuthorization)
	StrRange              = []byte(consts.HeaderRange)
	StrTE                 = []byte(consts.HeaderTE)
	StrWWWAuthenticate    = []byte(consts.HeaderWWWAuthenticate)

	StrClose       = []byte("close")
	StrKeepAlive   = []byte("keep-alive")
	StrChunked     = []byte("chunked")
	StrIdentity    = []byte("identity")
	Str100Continue = []byte("100-continue")
	StrBasicSpace  = []byte("Basic ")

	// http2
	StrClientPreface = []byte(consts.ClientPreface)
)
