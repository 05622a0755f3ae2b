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

package balancer

import (
	"time"

	"github.com/uber-go/tally"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

type metrics struct {
	scope          tally.Scope
	maxConcurrency tally.Gauge
}

func newMetrics(scope tally.Scope) *metrics {
	return &metrics{
		scope:          scope,
		maxConcurrency: scope.Gauge("max_concurrency"),
	}
}

func (m *metrics) requestTime(uri, status string, d time.Duration) {
	m.scope.Tagged(map[string]string{
		"uri":    uri,
		"status": status,
	}).Timer("request_time").Record(d)
}

func (m *metrics) failure(uri, category, handlerCategory string) {
	tags := map[string]string{
		"uri":              uri,
		"failure_category": category,
	}
	if handlerCategory != "" {
		tags["handler_category"] = handlerCategory
	}
	m.scope.Tagged(tags).Counter("failures").Inc(1)
}

func (m *metrics) probe(uri string) {
	m.uriScope(uri).Counter("probes").Inc(1)
}

func (m *metrics) revival(uri string) {
	m.uriScope(uri).Counter("revivals").Inc(1)
}

func (m *metrics) removal(uri string, deadTime time.Duration) {
	m.uriScope(uri).Timer("removals").Record(deadTime)
}

func (m *metrics) uriScope(uri string) tally.Scope {
	return m.scope.Tagged(map[string]string{"uri": uri})
}
