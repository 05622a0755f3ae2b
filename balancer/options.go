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
	"github.com/uber-go/tally"
	"go.uber.org/httpbalancer/internal/clock"
	"go.uber.org/zap"
)

// Option customizes a Balancer.
type Option func(*options)

type options struct {
	clock    clock.Clock
	scope    tally.Scope
	logger   *zap.Logger
	nextRand func(int) int
}

func defaultOptions() options {
	return options{
		clock:  clock.NewReal(),
		scope:  tally.NoopScope,
		logger: zap.NewNop(),
	}
}

// WithClock sets the clock used for dead-time and request latency.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithTally sets the scope that receives the balancer's metrics.
func WithTally(scope tally.Scope) Option {
	return func(o *options) {
		o.scope = scope
	}
}

// WithLogger sets the logger for liveness changes.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRand replaces the function used to break ties between equally loaded
// URIs. It must return a number in [0, n).
func WithRand(f func(n int) int) Option {
	return func(o *options) {
		o.nextRand = f
	}
}
