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
	"net/url"
	"time"

	"go.uber.org/atomic"
)

type attempt struct {
	balancer  *Balancer
	entry     poolEntry
	attempted map[string]struct{}
	start     time.Time

	inProgress atomic.Bool
	advanced   atomic.Bool
}

var _ Attempt = (*attempt)(nil)

func (a *attempt) URI() *url.URL {
	return a.entry.uri
}

func (a *attempt) MarkGood() {
	a.complete(false)
	a.balancer.metrics.requestTime(a.entry.key, statusSuccess, a.elapsed())
}

func (a *attempt) MarkBad(failureCategory string) {
	a.MarkBadWithHandlerCategory(failureCategory, "")
}

func (a *attempt) MarkBadWithHandlerCategory(failureCategory, handlerCategory string) {
	a.complete(true)
	m := a.balancer.metrics
	m.requestTime(a.entry.key, statusFailure, a.elapsed())
	m.failure(a.entry.key, failureCategory, handlerCategory)
}

func (a *attempt) Next() (Attempt, error) {
	if a.inProgress.Load() {
		panic(ErrAttemptInProgress)
	}
	if a.advanced.Swap(true) {
		panic(ErrAttemptAdvanced)
	}

	attempted := make(map[string]struct{}, len(a.attempted)+1)
	for k := range a.attempted {
		attempted[k] = struct{}{}
	}
	attempted[a.entry.key] = struct{}{}

	next, err := a.balancer.newAttempt(attempted)
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (a *attempt) complete(failed bool) {
	if !a.inProgress.CompareAndSwap(true, false) {
		panic(ErrAttemptCompleted)
	}
	a.balancer.finish(a, failed)
}

func (a *attempt) elapsed() time.Duration {
	return a.balancer.clock.Now().Sub(a.start)
}
