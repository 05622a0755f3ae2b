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

// Package transport defines the contract between the balancing client and
// the layer that actually puts a request on the wire.
package transport

import (
	"net/http"
	"net/url"
)

// Request is an HTTP request whose URI is relative to a service. The
// balancing client resolves it against the base URI chosen for each
// attempt.
type Request struct {
	Method  string
	URI     *url.URL
	Headers http.Header
	Body    Body
}

// WithURI returns a shallow copy of r that targets u. Headers are cloned so
// that the transport may add to them without affecting other attempts.
func (r *Request) WithURI(u *url.URL) *Request {
	req := *r
	req.URI = u
	req.Headers = r.Headers.Clone()
	if req.Headers == nil {
		req.Headers = make(http.Header)
	}
	return &req
}
