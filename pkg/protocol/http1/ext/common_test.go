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

package ext

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cloudwego/volt/pkg/common/test/assert"
	"github.com/cloudwego/volt/pkg/common/test/mock"
	"github.com/cloudwego/volt/pkg/protocol"
)

func Test_stripSpace(t *testing.T) {
	a := stripSpace([]byte("     a"))
	b := stripSpace([]byte("b       "))
	c := stripSpace([]byte("    c     "))
	assert.DeepEqual(t, []byte("a"), a)
	assert.DeepEqual(t, []byte("b"), b)
	assert.DeepEqual(t, []byte("c"), c)
}

func Test_bufferSnippet(t *testing.T) {
	a := make([]byte, 39)
	b := make([]byte, 41)
	assert.False(t, strings.Contains(BufferSnippet(a), "\"...\""))
	assert.True(t, strings.Contains(BufferSnippet(b), "\"...\""))
}

func Test_isOnlyCRLF(t *testing.T) {
	assert.True(t, isOnlyCRLF([]byte("\r\n")))
	assert.True(t, isOnlyCRLF([]byte("\n")))
}

func TestReadTrailer(t *testing.T) {
	expectedTrailers := map[string]string{"Volt": "test"}
	zr := mock.NewZeroCopyReader("0\r\nVolt: test\r\n\r\n")
	trailer := protocol.Trailer{}
	for k := range expectedTrailers {
		assert.Nil(t, trailer.SetTrailers([]byte(k)))
	}
	err := ReadTrailer(&trailer, zr)
	if err != nil {
		t.Fatalf("Cannot read trailer: %v", err)
	}

	for k, v := range expectedTrailers {
		got := trailer.Peek(k)
		if !bytes.Equal(got, []byte(v)) {
			t.Fatalf("Unexpected trailer %q. Expected %q. Got %q", k, v, got)
		}
	}
}

func TestReadTrailerError(t *testing.T) {
	// with bad trailer
	zr := mock.NewZeroCopyReader("0\r\nVolt: test\r\nContent-Type: aaa\r\n\r\n")
	trailer := protocol.Trailer{}
	err := ReadTrailer(&trailer, zr)
	if err == nil {
		t.Fatalf("expecting error.")
	}
}

func TestReadTrailerEmpty(t *testing.T) {
	zr := mock.NewZeroCopyReader("0\r\n\r\n")
	trailer := protocol.Trailer{}
	err := ReadTrailer(&trailer, zr)
	if err != nil {
		t.Fatalf("Cannot read trailer: %v", err)
	}
	assert.True(t, trailer.Empty())
}

func TestSkipTrailer(t *testing.T) {
	zr := mock.NewZeroCopyReader("0\r\nVolt: test\r\nfoo: bar\r\n\r\nrest")
	err := SkipTrailer(zr)
	assert.Nil(t, err)
	rest, err := zr.Peek(4)
	assert.Nil(t, err)
	assert.DeepEqual(t, "rest", string(rest))
}

func TestReadBodyFixedSize(t *testing.T) {
	body := mock.CreateFixedBody(1024)
	zr := mock.NewZeroCopyReader(string(body))
	dst, err := ReadBody(zr, len(body), 0, nil)
	assert.Nil(t, err)
	assert.DeepEqual(t, body, dst)
}

func TestReadBodyFixedSizeTooLarge(t *testing.T) {
	body := mock.CreateFixedBody(1024)
	zr := mock.NewZeroCopyReader(string(body))
	_, err := ReadBody(zr, len(body), 512, nil)
	assert.True(t, err == errBodyTooLarge)
}

func TestReadBodyChunked(t *testing.T) {
	body := mock.CreateFixedBody(1024)
	chunked := mock.CreateChunkedBody(body, nil, true)
	zr := mock.NewZeroCopyReader(string(chunked))
	dst, err := ReadBody(zr, -1, 0, nil)
	assert.Nil(t, err)
	assert.DeepEqual(t, body, dst)
}

func TestReadBodyIdentity(t *testing.T) {
	body := mock.CreateFixedBody(4097)
	zr := mock.NewZeroCopyReader(string(body))
	dst, err := ReadBody(zr, -2, 0, nil)
	assert.Nil(t, err)
	assert.DeepEqual(t, body, dst)
}

func TestWriteChunkAndWriteTrailer(t *testing.T) {
	conn := mock.NewConn("")
	err := WriteChunk(conn, []byte("hello"), true)
	assert.Nil(t, err)
	err = WriteChunk(conn, nil, false)
	assert.Nil(t, err)

	trailer := protocol.Trailer{}
	assert.Nil(t, trailer.Set("Foo", "bar"))
	err = WriteTrailer(&trailer, conn)
	assert.Nil(t, err)
	assert.Nil(t, conn.Flush())

	out, _ := conn.WriterRecorder().Peek(conn.WriterRecorder().WroteLen())
	assert.DeepEqual(t, "5\r\nhello\r\n0\r\nFoo: bar\r\n\r\n", string(out))
}

func TestChunkedRoundTrip(t *testing.T) {
	body := mock.CreateFixedBody(4096)
	conn := mock.NewConn("")
	for i := 0; i < len(body); i += 1024 {
		assert.Nil(t, WriteChunk(conn, body[i:i+1024], true))
	}
	assert.Nil(t, WriteChunk(conn, nil, true))
	trailer := protocol.Trailer{}
	assert.Nil(t, WriteTrailer(&trailer, conn))
	assert.Nil(t, conn.Flush())

	rec := conn.WriterRecorder()
	wire, err := rec.Peek(rec.WroteLen())
	assert.Nil(t, err)

	// Whatever the writer framed, the chunked reader must hand back.
	zr := mock.NewZeroCopyReader(string(wire))
	dst, err := ReadBody(zr, -1, 0, nil)
	assert.Nil(t, err)
	assert.DeepEqual(t, body, dst)
}

func TestWriteBodyChunked(t *testing.T) {
	body := mock.CreateFixedBody(10)
	conn := mock.NewConn("")
	err := WriteBodyChunked(conn, bytes.NewReader(body))
	assert.Nil(t, err)

	out, _ := conn.WriterRecorder().Peek(conn.WriterRecorder().WroteLen())
	assert.DeepEqual(t, "a\r\n0123456789\r\n0\r\n", string(out))
}

func TestWriteBodyFixedSize(t *testing.T) {
	body := mock.CreateFixedBody(10)
	conn := mock.NewConn("")
	err := WriteBodyFixedSize(conn, bytes.NewReader(body), int64(len(body)))
	assert.Nil(t, err)
	assert.Nil(t, conn.Flush())

	out, _ := conn.WriterRecorder().Peek(conn.WriterRecorder().WroteLen())
	assert.DeepEqual(t, string(body), string(out))
}

func TestReadRawHeaders(t *testing.T) {
	raw := "Foo: bar\r\nBaz: qux\r\n\r\nrest"
	dst, n, err := ReadRawHeaders(nil, []byte(raw))
	assert.Nil(t, err)
	assert.DeepEqual(t, "Foo: bar\r\nBaz: qux\r\n\r\n", string(dst))
	assert.DeepEqual(t, len(raw)-len("rest"), n)
}

func Test_round2(t *testing.T) {
	assert.DeepEqual(t, 0, round2(0))
	assert.DeepEqual(t, 1, round2(1))
	assert.DeepEqual(t, 2, round2(2))
	assert.DeepEqual(t, 4, round2(3))
	assert.DeepEqual(t, 4096, round2(4096))
	assert.DeepEqual(t, 8192, round2(4097))
}
