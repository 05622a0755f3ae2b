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

// Package httpbalancer is a client-side load balancer and retry engine for
// HTTP services.
//
// A Client sends each call to one of a pool of backend URIs chosen by a
// balancer.Balancer, classifies the outcome, and retries failed attempts
// against other backends. Retries are spaced with decorrelated jitter and
// capped both per call and, across all calls, by a retry budget.
//
//	bal, err := balancer.New("users", balancer.DefaultConfig())
//	...
//	bal.UpdateURIs(uris)
//	client, err := httpbalancer.New(bal, http.NewOutbound(), httpbalancer.DefaultConfig())
//	...
//	if err := client.Start(); err != nil { ... }
//	defer client.Stop()
//
//	res, err := client.Execute(ctx, &transport.Request{
//		Method: "GET",
//		URI:    &url.URL{Path: "v1/users/42"},
//	}, handler)
//
// Request URIs are relative and are resolved against the URI chosen for each
// attempt.
package httpbalancer
