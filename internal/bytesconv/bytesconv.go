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

package bytesconv

import (
	"errors"
	"net/http"
	"sync"
	"time"
	"unsafe"

	"github.com/cloudwego/volt/pkg/network"
)

const (
	lowerhex = "0123456789abcdef"
	upperhex = "0123456789ABCDEF"

	// maxHexIntChars is the maximum number of hexadecimal digits
	// fitting into an int on the host platform.
	maxHexIntChars = 15
)

var (
	errEmptyInt            = errors.New("empty integer")
	errUnexpectedFirstChar = errors.New("unexpected first char found. Expecting 0-9")
	errTooLongInt          = errors.New("too long int")
	errEmptyHexNum         = errors.New("empty hex number")
	errTooLargeHexNum      = errors.New("too large hex number")
)

var (
	hexIntBufPool sync.Pool

	// Hex2intTable maps a byte to its hexadecimal value, 16 for non-hex bytes.
	Hex2intTable = func() [256]byte {
		var t [256]byte
		for i := 0; i < 256; i++ {
			c := byte(16)
			switch {
			case i >= '0' && i <= '9':
				c = byte(i) - '0'
			case i >= 'a' && i <= 'f':
				c = byte(i) - 'a' + 10
			case i >= 'A' && i <= 'F':
				c = byte(i) - 'A' + 10
			}
			t[i] = c
		}
		return t
	}()

	// ToLowerTable lowercases ASCII letters, other bytes are kept as-is.
	ToLowerTable = func() [256]byte {
		var t [256]byte
		for i := 0; i < 256; i++ {
			c := byte(i)
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			t[i] = c
		}
		return t
	}()

	// ToUpperTable uppercases ASCII letters, other bytes are kept as-is.
	ToUpperTable = func() [256]byte {
		var t [256]byte
		for i := 0; i < 256; i++ {
			c := byte(i)
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			t[i] = c
		}
		return t
	}()
	// QuotedArgShouldEscapeTable marks bytes that must be escaped in a
	// query argument per RFC 3986 §2.3.
	QuotedArgShouldEscapeTable = func() [256]byte {
		var t [256]byte
		for i := 0; i < 256; i++ {
			t[i] = 1
		}
		for i := 'a'; i <= 'z'; i++ {
			t[i] = 0
		}
		for i := 'A'; i <= 'Z'; i++ {
			t[i] = 0
		}
		for i := '0'; i <= '9'; i++ {
			t[i] = 0
		}
		for _, v := range `-_.~` {
			t[v] = 0
		}
		return t
	}()

	// QuotedPathShouldEscapeTable marks bytes that must be escaped in a
	// path. Matches net/url shouldEscape(s, encodePath).
	QuotedPathShouldEscapeTable = func() [256]byte {
		t := QuotedArgShouldEscapeTable
		for _, v := range `$&+,/:;=@` {
			t[v] = 0
		}
		return t
	}()

	// ValidHeaderFieldNameTable marks RFC 7230 token bytes, the only
	// bytes allowed in a header field name.
	ValidHeaderFieldNameTable = func() [256]byte {
		var t [256]byte
		for i := '0'; i <= '9'; i++ {
			t[i] = 1
		}
		for i := 'a'; i <= 'z'; i++ {
			t[i] = 1
		}
		for i := 'A'; i <= 'Z'; i++ {
			t[i] = 1
		}
		for _, v := range "!#$%&'*+-.^_`|~" {
			t[v] = 1
		}
		return t
	}()

	// ValidHeaderFieldValueTable marks bytes allowed in a header field
	// value: VCHAR, SP, HTAB and obs-text.
	ValidHeaderFieldValueTable = func() [256]byte {
		var t [256]byte
		for i := 0x21; i <= 0x7e; i++ {
			t[i] = 1
		}
		t[' '] = 1
		t['\t'] = 1
		for i := 0x80; i <= 0xff; i++ {
			t[i] = 1
		}
		return t
	}()

	// NewlineToSpaceTable folds CR and LF into spaces so header values
	// cannot smuggle extra header lines.
	NewlineToSpaceTable = func() [256]byte {
		var t [256]byte
		for i := 0; i < 256; i++ {
			t[i] = byte(i)
		}
		t['\r'] = ' '
		t['\n'] = ' '
		return t
	}()
)

func LowercaseBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		p := &b[i]
		*p = ToLowerTable[*p]
	}
}

// B2s converts byte slice to a string without memory allocation.
//
// Note it may break if string and/or slice header will change
// in the future go versions.
func B2s(b []byte) string {
	/* #nosec G103 */
	return *(*string)(unsafe.Pointer(&b))
}

// S2b converts string to a byte slice without memory allocation.
//
// Note it may break if string and/or slice header will change
// in the future go versions.
func S2b(s string) (b []byte) {
	/* #nosec G103 */
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// WriteHexInt writes positive int n as a hexadecimal number to w.
func WriteHexInt(w network.Writer, n int) error {
	if n < 0 {
		panic("BUG: int must be positive")
	}

	v := hexIntBufPool.Get()
	if v == nil {
		v = make([]byte, maxHexIntChars+1)
	}
	buf := v.([]byte)
	i := len(buf) - 1
	for {
		buf[i] = lowerhex[n&0xf]
		n >>= 4
		if n == 0 {
			break
		}
		i--
	}
	safeBuf, err := w.Malloc(maxHexIntChars + 1 - i)
	copy(safeBuf, buf[i:])
	hexIntBufPool.Put(v)
	return err
}

// ReadHexInt reads a hexadecimal number from r, stopping at the first
// non-hex byte without consuming it.
func ReadHexInt(r network.Reader) (int, error) {
	n := 0
	i := 0
	var k int
	for {
		buf, err := r.Peek(1)
		if err != nil {
			r.Skip(1) //nolint:errcheck

			if i > 0 {
				return n, nil
			}
			return -1, err
		}

		c := buf[0]
		k = int(Hex2intTable[c])
		if k == 16 {
			if i == 0 {
				r.Skip(1) //nolint:errcheck
				return -1, errEmptyHexNum
			}
			return n, nil
		}
		if i >= maxHexIntChars {
			r.Skip(1) //nolint:errcheck
			return -1, errTooLargeHexNum
		}

		r.Skip(1) //nolint:errcheck
		n = (n << 4) | k
		i++
	}
}

// ParseUintBuf parses a leading decimal integer in b and returns the value
// and the number of bytes consumed.
func ParseUintBuf(b []byte) (int, int, error) {
	n := len(b)
	if n == 0 {
		return -1, 0, errEmptyInt
	}
	v := 0
	for i := 0; i < n; i++ {
		c := b[i]
		k := c - '0'
		if k > 9 {
			if i == 0 {
				return -1, i, errUnexpectedFirstChar
			}
			return v, i, nil
		}
		vNew := 10*v + int(k)
		// Test for overflow.
		if vNew < v {
			return -1, i, errTooLongInt
		}
		v = vNew
	}
	return v, n, nil
}

// ParseUint parses b as a decimal integer. The whole buffer must be consumed.
func ParseUint(buf []byte) (int, error) {
	v, n, err := ParseUintBuf(buf)
	if n != len(buf) {
		return -1, errUnexpectedFirstChar
	}
	return v, err
}

// AppendUint appends n to dst and returns the extended dst.
func AppendUint(dst []byte, n int) []byte {
	if n < 0 {
		panic("BUG: int must be positive")
	}

	var b [20]byte
	buf := b[:]
	i := len(buf)
	var q int
	for n >= 10 {
		i--
		q = n / 10
		buf[i] = '0' + byte(n-q*10)
		n = q
	}
	i--
	buf[i] = '0' + byte(n)

	dst = append(dst, buf[i:]...)
	return dst
}

// AppendHTTPDate appends HTTP-compliant representation of date
// to dst and returns the extended dst.
func AppendHTTPDate(dst []byte, date time.Time) []byte {
	return date.UTC().AppendFormat(dst, http.TimeFormat)
}

func AppendQuotedPath(dst, src []byte) []byte {
	// Fix issue in https://github.com/golang/go/issues/11202
	if len(src) == 1 && src[0] == '*' {
		return append(dst, '*')
	}

	for _, c := range src {
		if QuotedPathShouldEscapeTable[int(c)] != 0 {
			dst = append(dst, '%', upperhex[c>>4], upperhex[c&15])
		} else {
			dst = append(dst, c)
		}
	}
	return dst
}

// AppendQuotedArg appends url-encoded src to dst and returns appended dst.
func AppendQuotedArg(dst, src []byte) []byte {
	for _, c := range src {
		switch {
		case c == ' ':
			dst = append(dst, '+')
		case QuotedArgShouldEscapeTable[int(c)] != 0:
			dst = append(dst, '%', upperhex[c>>4], upperhex[c&0xf])
		default:
			dst = append(dst, c)
		}
	}
	return dst
}

// ParseHTTPDate parses an HTTP-compliant date.
func ParseHTTPDate(date []byte) (time.Time, error) {
	return time.Parse(http.TimeFormat, B2s(date))
}
