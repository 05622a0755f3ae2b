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

import "github.com/uber-go/tally"

// Reasons a call ended without a successful response.
const (
	reasonUnretryable       = "unretryable"
	reasonBodyNotReplayable = "body_not_replayable"
	reasonBudgetExhausted   = "budget_exhausted"
	reasonMaxAttempts       = "max_attempts"
	reasonPoolUnavailable   = "pool_unavailable"
	reasonHandlerFailure    = "handler_failure"
	reasonCanceled          = "canceled"

	reasonSchedulerUnavailable = "scheduler_unavailable"
)

type observer struct {
	scope tally.Scope

	callCounter    tally.Counter
	attemptCounter tally.Counter
	retryCounter   tally.Counter
	successCounter tally.Counter
}

func newObserver(scope tally.Scope) *observer {
	return &observer{
		scope:          scope,
		callCounter:    scope.Counter("calls"),
		attemptCounter: scope.Counter("attempts"),
		retryCounter:   scope.Counter("retries"),
		successCounter: scope.Counter("successes"),
	}
}

func (o *observer) call() {
	o.callCounter.Inc(1)
}

func (o *observer) attempt() {
	o.attemptCounter.Inc(1)
}

func (o *observer) retry() {
	o.retryCounter.Inc(1)
}

func (o *observer) success() {
	o.successCounter.Inc(1)
}

func (o *observer) failure(reason string) {
	o.scope.Tagged(map[string]string{"reason": reason}).Counter("failures").Inc(1)
}
