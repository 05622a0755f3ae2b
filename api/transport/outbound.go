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

import "context"

//go:generate mockgen -destination=transporttest/mocks.go -package=transporttest go.uber.org/httpbalancer/api/transport Outbound,ResponseHandler

// Outbound sends a single request to the absolute URI it carries.
//
// Implementations must give up when ctx is done and must not retry on their
// own. Every HTTP status, including 5xx, is reported as a Response; only a
// failure to obtain a response is an error.
type Outbound interface {
	Call(ctx context.Context, req *Request) (*Response, error)
}

// OutboundFunc adapts a function to the Outbound interface.
type OutboundFunc func(ctx context.Context, req *Request) (*Response, error)

// Call calls f.
func (f OutboundFunc) Call(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
