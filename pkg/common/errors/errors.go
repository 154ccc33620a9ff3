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

package errors

import (
	"errors"
	"fmt"
)

// These errors are the base errors, which are used for checking in errors.Is().
var (
	ErrNeedMore         = errors.New("need more data")
	ErrChunkedStream    = errors.New("chunked stream")
	ErrBodyTooLarge     = errors.New("body size exceeds the given limit")
	ErrTimeout          = errors.New("timeout")
	ErrDialTimeout      = errors.New("dial timeout")
	ErrNothingRead      = errors.New("nothing read")
	ErrNoFreeConns      = errors.New("no free connections available to host")
	ErrConnectionClosed = errors.New("connection closed")
	ErrBadPoolConn      = errors.New("connection is closed by peer while being in the connection pool")

	ErrTooManyRedirects = errors.New("too many redirects detected when doing the request")
	ErrMissingLocation  = errors.New("missing Location header for http redirect")

	ErrBodyForbidden      = errors.New("request method must not carry a body")
	ErrStreamNotClosed    = errors.New("body stream was not closed by the handler")
	ErrUpgradeFailed      = errors.New("protocol upgrade failed")
	ErrNotSupportProtocol = errors.New("not support protocol")
)

// ErrorType is an unsigned 64-bit error code.
type ErrorType uint64

const (
	// ErrorTypePrivate indicates a private error.
	ErrorTypePrivate ErrorType = 1 << iota
	// ErrorTypePublic indicates a public error.
	ErrorTypePublic
	// ErrorTypeAny indicates any other error.
	ErrorTypeAny
)

type Error struct {
	Err  error
	Type ErrorType
	Meta interface{}
}

var _ error = (*Error)(nil)

func (msg *Error) Error() string {
	return msg.Err.Error()
}

func (msg *Error) Unwrap() error {
	return msg.Err
}

// SetType sets the error's type.
func (msg *Error) SetType(flags ErrorType) *Error {
	msg.Type = flags
	return msg
}

// SetMeta sets the error's meta data.
func (msg *Error) SetMeta(data interface{}) *Error {
	msg.Meta = data
	return msg
}

// IsType judges one error.
func (msg *Error) IsType(flags ErrorType) bool {
	return (msg.Type & flags) > 0
}

func New(err error, t ErrorType, meta interface{}) *Error {
	return &Error{
		Err:  err,
		Type: t,
		Meta: meta,
	}
}

// NewPublic is a shortcut for creating a public *Error from string.
func NewPublic(err string) *Error {
	return New(errors.New(err), ErrorTypePublic, nil)
}

func NewPrivate(err string) *Error {
	return New(errors.New(err), ErrorTypePrivate, nil)
}

func Newf(t ErrorType, meta interface{}, format string, v ...interface{}) *Error {
	return New(fmt.Errorf(format, v...), t, meta)
}

func NewPublicf(format string, v ...interface{}) *Error {
	return New(fmt.Errorf(format, v...), ErrorTypePublic, nil)
}

func NewPrivatef(format string, v ...interface{}) *Error {
	return New(fmt.Errorf(format, v...), ErrorTypePrivate, nil)
}
