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
	"github.com/cloudwego/volt/pkg/network"
	"github.com/cloudwego/volt/pkg/protocol"
)

func recorded(t *testing.T, conn *mock.Conn) string {
	t.Helper()
	rec := conn.WriterRecorder()
	b, err := rec.Peek(rec.WroteLen())
	assert.Nil(t, err)
	return string(b)
}

func TestChunkedBodyWriter(t *testing.T) {
	conn := mock.NewConn("")
	var trailer protocol.Trailer
	bw := newChunkedBodyWriter(&trailer, conn)

	n, err := bw.Write([]byte("abc"))
	assert.Nil(t, err)
	assert.DeepEqual(t, 3, n)
	assert.False(t, bw.Finalized())

	assert.Nil(t, bw.Finalize())
	assert.True(t, bw.Finalized())
	assert.Nil(t, bw.Flush())

	assert.DeepEqual(t, "3\r\nabc\r\n0\r\n\r\n", recorded(t, conn))
}

func TestChunkedBodyWriterTrailer(t *testing.T) {
	conn := mock.NewConn("")
	var trailer protocol.Trailer
	assert.Nil(t, trailer.Set("Checksum", "crc32:4a17b156"))
	bw := newChunkedBodyWriter(&trailer, conn)

	_, err := bw.Write([]byte("payload"))
	assert.Nil(t, err)
	assert.Nil(t, bw.Finalize())
	assert.Nil(t, bw.Flush())

	out := recorded(t, conn)
	assert.True(t, strings.HasPrefix(out, "7\r\npayload\r\n0\r\n"))
	assert.True(t, strings.Contains(out, "Checksum: crc32:4a17b156\r\n"))
	assert.True(t, strings.HasSuffix(out, "\r\n\r\n"))
}

func TestChunkedBodyWriterFinalizeIdempotent(t *testing.T) {
	conn := mock.NewConn("")
	var trailer protocol.Trailer
	bw := newChunkedBodyWriter(&trailer, conn)

	assert.Nil(t, bw.Finalize())
	assert.Nil(t, bw.Finalize())
	assert.Nil(t, bw.Flush())

	// The terminal chunk goes out exactly once.
	assert.DeepEqual(t, "0\r\n\r\n", recorded(t, conn))
}

func TestFixedBodyWriterExact(t *testing.T) {
	conn := mock.NewConn("")
	bw := newFixedBodyWriter(conn, 5)

	n, err := bw.Write([]byte("hel"))
	assert.Nil(t, err)
	assert.DeepEqual(t, 3, n)
	n, err = bw.Write([]byte("lo"))
	assert.Nil(t, err)
	assert.DeepEqual(t, 2, n)

	assert.Nil(t, bw.Finalize())
	assert.True(t, bw.Finalized())
	assert.Nil(t, bw.Flush())
	assert.DeepEqual(t, "hello", recorded(t, conn))
}

func TestFixedBodyWriterOverflow(t *testing.T) {
	conn := mock.NewConn("")
	bw := newFixedBodyWriter(conn, 4)

	_, err := bw.Write([]byte("hello"))
	assert.DeepEqual(t, errBodySizeExceed, err)
}

func TestFixedBodyWriterShort(t *testing.T) {
	conn := mock.NewConn("")
	bw := newFixedBodyWriter(conn, 10)

	_, err := bw.Write([]byte("hello"))
	assert.Nil(t, err)
	assert.DeepEqual(t, errBodySizeShort, bw.Finalize())
	// The verdict does not change on a second call.
	assert.DeepEqual(t, errBodySizeShort, bw.Finalize())
}

func TestWriteBodyFromFuncUnfinalized(t *testing.T) {
	req := protocol.AcquireRequest()
	defer protocol.ReleaseRequest(req)
	req.SetBodyWriteFunc(func(w network.ExtWriter) error {
		_, err := w.Write([]byte("partial"))
		return err
	})

	conn := mock.NewConn("")
	err := writeBodyFromFunc(req, conn)
	assert.DeepEqual(t, errStreamNotClosed, err)
}

func TestWriteBodyFromFuncFixed(t *testing.T) {
	req := protocol.AcquireRequest()
	defer protocol.ReleaseRequest(req)
	req.Header.SetContentLength(5)
	req.SetBodyWriteFunc(func(w network.ExtWriter) error {
		if _, err := w.Write([]byte("hello")); err != nil {
			return err
		}
		return w.Finalize()
	})

	conn := mock.NewConn("")
	assert.Nil(t, writeBodyFromFunc(req, conn))
	assert.Nil(t, conn.Flush())
	assert.DeepEqual(t, "hello", recorded(t, conn))
}
