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

package httpbalancer

import (
	"github.com/opentracing/opentracing-go"
	"github.com/uber-go/tally"
	"go.uber.org/httpbalancer/internal/clock"
	"go.uber.org/zap"
)

// Option customizes a Client.
type Option interface {
	apply(*clientOptions)
}

type optionFunc func(*clientOptions)

func (f optionFunc) apply(o *clientOptions) { f(o) }

type clientOptions struct {
	logger       *zap.Logger
	scope        tally.Scope
	tracer       opentracing.Tracer
	clock        clock.Clock
	retryWorkers int
}

var defaultClientOptions = clientOptions{
	logger:       zap.NewNop(),
	scope:        tally.NoopScope,
	clock:        clock.NewReal(),
	retryWorkers: 4,
}

// WithLogger sets the logger for failed attempts.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(o *clientOptions) {
		o.logger = logger
	})
}

// WithTally sets the scope for call, attempt and retry budget metrics.
func WithTally(scope tally.Scope) Option {
	return optionFunc(func(o *clientOptions) {
		o.scope = scope
	})
}

// WithTracer sets the tracer for attempt spans. It defaults to the global
// tracer.
func WithTracer(tracer opentracing.Tracer) Option {
	return optionFunc(func(o *clientOptions) {
		o.tracer = tracer
	})
}

// WithClock sets the clock for backoff delays and the retry budget.
func WithClock(c clock.Clock) Option {
	return optionFunc(func(o *clientOptions) {
		o.clock = c
	})
}

// WithRetryWorkers sets how many goroutines run asynchronous retries.
func WithRetryWorkers(n int) Option {
	return optionFunc(func(o *clientOptions) {
		o.retryWorkers = n
	})
}
