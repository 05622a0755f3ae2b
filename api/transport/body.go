// Copyright (c) 2025 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package transport

import (
	"bytes"
	"errors"
	"io"

	"go.uber.org/atomic"
)

// ErrBodyConsumed is returned when a stream body is read a second time.
var ErrBodyConsumed = errors.New("request body was already consumed")

// Body produces the bytes of a request body. Reader is called once per
// attempt.
type Body interface {
	Reader() (io.Reader, error)
}

// LimitedRetryable is implemented by bodies that can only be sent a limited
// number of times. A body that does not implement it is assumed to be
// replayable.
type LimitedRetryable interface {
	// IsRetryable reports whether the body can still be sent again.
	IsRetryable() bool
}

// IsReplayable reports whether b can be sent on another attempt. A nil body
// is always replayable.
func IsReplayable(b Body) bool {
	if lr, ok := b.(LimitedRetryable); ok {
		return lr.IsRetryable()
	}
	return true
}

// BytesBody is an in-memory body. It can be replayed any number of times.
type BytesBody []byte

// Reader returns a fresh reader over the bytes.
func (b BytesBody) Reader() (io.Reader, error) {
	return bytes.NewReader(b), nil
}

// StreamBody wraps a reader that can only be consumed once. It is
// replayable until the first attempt reads it.
type StreamBody struct {
	r    io.Reader
	used atomic.Bool
}

var (
	_ Body             = (*StreamBody)(nil)
	_ LimitedRetryable = (*StreamBody)(nil)
)

// NewStreamBody wraps r.
func NewStreamBody(r io.Reader) *StreamBody {
	return &StreamBody{r: r}
}

// Reader hands out the wrapped reader the first time it is called.
func (b *StreamBody) Reader() (io.Reader, error) {
	if b.used.Swap(true) {
		return nil, ErrBodyConsumed
	}
	return b.r, nil
}

// IsRetryable reports whether the stream has not been handed out yet.
func (b *StreamBody) IsRetryable() bool {
	return !b.used.Load()
}
