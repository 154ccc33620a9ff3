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

package req

import (
	"strings"
	"testing"

	"github.com/cloudwego/volt/pkg/common/test/assert"
	"github.com/cloudwego/volt/pkg/common/test/mock"
	"github.com/cloudwego/volt/pkg/protocol"
)

func TestReadHeaderBasic(t *testing.T) {
	zr := mock.NewZeroCopyReader("GET /abc HTTP/1.1\r\nHost: example.com\r\nFoo: bar\r\n\r\n")
	h := protocol.RequestHeader{}

	assert.Nil(t, ReadHeader(&h, zr))
	assert.DeepEqual(t, "GET", string(h.Method()))
	assert.DeepEqual(t, "/abc", string(h.RequestURI()))
	assert.DeepEqual(t, "bar", h.Get("Foo"))
}

func TestReadHeaderInvalidMethodByte(t *testing.T) {
	// The first line is incomplete, but the method already contains a
	// byte that can never appear in a token. Parsing must fail right
	// away instead of waiting for the rest of the line.
	zr := mock.NewZeroCopyReader("G@T /abc")
	h := protocol.RequestHeader{}

	err := ReadHeader(&h, zr)
	assert.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "malformed"))
}

func TestValidMethodCharTable(t *testing.T) {
	for _, c := range []byte("GETPOSTDELE-!#$%&'*+.^_`|~") {
		assert.True(t, validMethodCharTable[c] != 0)
	}
	for _, c := range []byte("@ ()<>,;:\\\"/[]?={}\r\n") {
		assert.True(t, validMethodCharTable[c] == 0)
	}
}
