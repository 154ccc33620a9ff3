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

import (
	"fmt"
	"sync"
)

// HTTP status codes were copied from net/http.
const (
	StatusContinue           = 100 // RFC 7231, 6.2.1
	StatusSwitchingProtocols = 101 // RFC 7231, 6.2.2

	StatusOK        = 200 // RFC 7231, 6.3.1
	StatusCreated   = 201 // RFC 7231, 6.3.2
	StatusAccepted  = 202 // RFC 7231, 6.3.3
	StatusNoContent = 204 // RFC 7231, 6.3.5

	StatusMovedPermanently  = 301 // RFC 7231, 6.4.2
	StatusFound             = 302 // RFC 7231, 6.4.3
	StatusSeeOther          = 303 // RFC 7231, 6.4.4
	StatusNotModified       = 304 // RFC 7232, 4.1
	StatusTemporaryRedirect = 307 // RFC 7231, 6.4.7
	StatusPermanentRedirect = 308 // RFC 7538, 3

	StatusBadRequest      = 400 // RFC 7231, 6.5.1
	StatusUnauthorized    = 401 // RFC 7235, 3.1
	StatusForbidden       = 403 // RFC 7231, 6.5.3
	StatusNotFound        = 404 // RFC 7231, 6.5.4
	StatusRequestTimeout  = 408 // RFC 7231, 6.5.7
	StatusTooManyRequests = 429 // RFC 6585, 4

	StatusInternalServerError = 500 // RFC 7231, 6.6.1
	StatusNotImplemented      = 501 // RFC 7231, 6.6.2
	StatusBadGateway          = 502 // RFC 7231, 6.6.3
	StatusServiceUnavailable  = 503 // RFC 7231, 6.6.4
	StatusGatewayTimeout      = 504 // RFC 7231, 6.6.5
)

var statusMessages = map[int]string{
	StatusContinue:           "Continue",
	StatusSwitchingProtocols: "Switching Protocols",

	StatusOK:        "OK",
	StatusCreated:   "Created",
	StatusAccepted:  "Accepted",
	StatusNoContent: "No Content",

	StatusMovedPermanently:  "Moved Permanently",
	StatusFound:             "Found",
	StatusSeeOther:          "See Other",
	StatusNotModified:       "Not Modified",
	StatusTemporaryRedirect: "Temporary Redirect",
	StatusPermanentRedirect: "Permanent Redirect",

	StatusBadRequest:      "Bad Request",
	StatusUnauthorized:    "Unauthorized",
	StatusForbidden:       "Forbidden",
	StatusNotFound:        "Not Found",
	StatusRequestTimeout:  "Request Timeout",
	StatusTooManyRequests: "Too Many Requests",

	StatusInternalServerError: "Internal Server Error",
	StatusNotImplemented:      "Not Implemented",
	StatusBadGateway:          "Bad Gateway",
	StatusServiceUnavailable:  "Service Unavailable",
	StatusGatewayTimeout:      "Gateway Timeout",
}

// StatusMessage returns HTTP status message for the given status code.
func StatusMessage(statusCode int) string {
	s := statusMessages[statusCode]
	if s == "" {
		s = fmt.Sprintf("status code %d", statusCode)
	}
	return s
}

var statusLines sync.Map

// StatusLine returns the HTTP/1.1 status line for the given status code.
func StatusLine(statusCode int) []byte {
	if v, ok := statusLines.Load(statusCode); ok {
		return v.([]byte)
	}
	statusLine := []byte(fmt.Sprintf("HTTP/1.1 %d %s\r\n", statusCode, StatusMessage(statusCode)))
	statusLines.Store(statusCode, statusLine)
	return statusLine
}
