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
	"sync"

	errs "github.com/cloudwego/volt/pkg/common/errors"
	"github.com/cloudwego/volt/pkg/network"
	"github.com/cloudwego/volt/pkg/protocol"
	"github.com/cloudwego/volt/pkg/protocol/http1/ext"
)

var (
	errStreamNotClosed = errs.New(errs.ErrStreamNotClosed, errs.ErrorTypePublic, "http1/req")
	errBodySizeExceed  = errs.NewPublic("body writer received more bytes than the declared Content-Length")
	errBodySizeShort   = errs.NewPublic("body writer finalized before the declared Content-Length was written")

	chunkWriterPool sync.Pool
	fixedWriterPool sync.Pool
)

func init() {
	chunkWriterPool = sync.Pool{
		New: func() interface{} {
			return &chunkedBodyWriter{}
		},
	}
	fixedWriterPool = sync.Pool{
		New: func() interface{} {
			return &fixedBodyWriter{}
		},
	}
}

// requestBodyWriter is handed to a BodyWriteFunc. On top of the plain
// ExtWriter contract it remembers whether the caller finalized the
// stream, which is how an unclosed stream is detected.
type requestBodyWriter interface {
	network.ExtWriter
	Finalized() bool
	release()
}

type chunkedBodyWriter struct {
	sync.Once
	finalizeErr error
	finalized   bool
	trailer     *protocol.Trailer
	w           network.Writer
}

// Write will encode chunked p before writing
// It will only return the length of p and a nil error if the writing is successful or 0, error otherwise.
//
// NOTE: Write will use the user buffer to flush.
// Before flush successfully, the buffer b should be valid.
func (c *chunkedBodyWriter) Write(p []byte) (n int, err error) {
	if err = ext.WriteChunk(c.w, p, false); err != nil {
		return
	}
	return len(p), nil
}

func (c *chunkedBodyWriter) Flush() error {
	return c.w.Flush()
}

// Finalize will write the ending chunk as well as trailer and flush the writer.
func (c *chunkedBodyWriter) Finalize() error {
	c.Do(func() {
		c.finalized = true
		c.finalizeErr = ext.WriteChunk(c.w, nil, true)
		if c.finalizeErr != nil {
			return
		}
		c.finalizeErr = ext.WriteTrailer(c.trailer, c.w)
	})
	return c.finalizeErr
}

func (c *chunkedBodyWriter) Finalized() bool {
	return c.finalized
}

func (c *chunkedBodyWriter) release() {
	c.trailer = nil
	c.w = nil
	c.finalizeErr = nil
	c.finalized = false
	chunkWriterPool.Put(c)
}

func newChunkedBodyWriter(trailer *protocol.Trailer, w network.Writer) requestBodyWriter {
	extWriter := chunkWriterPool.Get().(*chunkedBodyWriter)
	extWriter.trailer = trailer
	extWriter.w = w
	extWriter.Once = sync.Once{}
	return extWriter
}

// fixedBodyWriter writes a body whose length was declared up front. The
// byte count is checked on every write and again on Finalize so a
// mismatch never reaches the wire half-framed.
type fixedBodyWriter struct {
	finalized   bool
	finalizeErr error
	size        int
	written     int
	w           network.Writer
}

func (c *fixedBodyWriter) Write(p []byte) (n int, err error) {
	if c.written+len(p) > c.size {
		return 0, errBodySizeExceed
	}
	n, err = c.w.WriteBinary(p)
	c.written += n
	return
}

func (c *fixedBodyWriter) Flush() error {
	return c.w.Flush()
}

func (c *fixedBodyWriter) Finalize() error {
	if !c.finalized {
		c.finalized = true
		if c.written != c.size {
			c.finalizeErr = errBodySizeShort
		}
	}
	return c.finalizeErr
}

func (c *fixedBodyWriter) Finalized() bool {
	return c.finalized
}

func (c *fixedBodyWriter) release() {
	c.w = nil
	c.size = 0
	c.written = 0
	c.finalized = false
	c.finalizeErr = nil
	fixedWriterPool.Put(c)
}

func newFixedBodyWriter(w network.Writer, size int) requestBodyWriter {
	extWriter := fixedWriterPool.Get().(*fixedBodyWriter)
	extWriter.w = w
	extWriter.size = size
	return extWriter
}

// writeBodyFromFunc drives the caller-supplied BodyWriteFunc. The
// handler has to finalize the writer itself; returning without doing so
// fails the request instead of leaving the peer waiting for a terminal
// chunk that never comes.
func writeBodyFromFunc(req *protocol.Request, w network.Writer) error {
	var bw requestBodyWriter
	if contentLength := req.Header.ContentLength(); contentLength > 0 {
		bw = newFixedBodyWriter(w, contentLength)
	} else {
		bw = newChunkedBodyWriter(req.Header.Trailer(), w)
	}
	defer bw.release()

	if err := req.BodyWriteFunc()(bw); err != nil {
		return err
	}
	if !bw.Finalized() {
		return errStreamNotClosed
	}
	// Finalize is idempotent. Re-running it surfaces an error the
	// handler may have swallowed.
	return bw.Finalize()
}
