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
	"context"
	"sync"
	"time"

	"go.uber.org/httpbalancer/api/backoff"
	"go.uber.org/httpbalancer/api/transport"
	"go.uber.org/httpbalancer/balancer"
	"go.uber.org/httpbalancer/internal/scheduler"
	"go.uber.org/httpbalancer/tracetoken"
	"go.uber.org/zap"
)

// ExecuteAsync is the non-blocking form of Execute.
//
// Each attempt runs on its own goroutine and retries wait on the Client's
// scheduler, so h may be invoked from any goroutine. ctx, along with its
// trace token, is carried across retries.
func (c *Client) ExecuteAsync(ctx context.Context, req *transport.Request, h transport.ResponseHandler) *Future {
	f := newFuture()
	if err := validateRequest(req); err != nil {
		f.complete(nil, err)
		return f
	}
	ctx = tracetoken.Ensure(ctx)
	c.observer.call()

	a, err := c.balancer.CreateAttempt()
	if err != nil {
		c.observer.failure(reasonPoolUnavailable)
		f.complete(h.HandleException(req, err))
		return f
	}
	c.budget.InitialAttempt()

	call := &asyncCall{
		client:  c,
		future:  f,
		req:     req,
		handler: h,
		policy:  c.backoff,
	}
	call.launch(ctx, a, 1)
	return f
}

// asyncCall is the state of one ExecuteAsync call. Attempts are strictly
// sequential so policy and previous are only touched by one goroutine at a
// time.
type asyncCall struct {
	client  *Client
	future  *Future
	req     *transport.Request
	handler transport.ResponseHandler

	policy   backoff.Policy
	previous time.Duration
}

func (c *asyncCall) launch(ctx context.Context, a balancer.Attempt, n int) {
	actx, cancel := context.WithCancel(ctx)
	if !c.future.setActive(cancel) {
		a.MarkBad(reasonCanceled)
		return
	}
	go c.run(ctx, actx, cancel, a, n)
}

func (c *asyncCall) run(ctx, actx context.Context, cancel context.CancelFunc, a balancer.Attempt, n int) {
	defer cancel()

	rh := c.client.newRetryingHandler(ctx, c.handler, a, n)
	r := c.client.roundTrip(actx, a, n, c.req, func(req *transport.Request, res *transport.Response, err error) attemptResult {
		if c.future.isDone() {
			_ = res.Close()
			return attemptResult{kind: outcomeCanceled, category: reasonCanceled}
		}
		return rh.classify(req, res, err)
	})

	switch r.kind {
	case outcomeCanceled:
		a.MarkBad(reasonCanceled)
		c.client.observer.failure(reasonCanceled)
	case outcomeRetry:
		c.retry(ctx, a, n, r)
	default:
		c.future.complete(c.client.finish(a, r))
	}
}

// retry schedules the attempt after a.
//
// The retry's canceler is installed on the Future before the task is
// handed to the scheduler, so the next attempt's canceler always replaces
// it and never the other way around.
func (c *asyncCall) retry(ctx context.Context, a balancer.Attempt, n int, r attemptResult) {
	client := c.client
	a.MarkBad(r.category)
	client.observer.retry()

	delay := c.policy.Backoff(c.previous, r.suggested)
	c.previous, c.policy = delay, c.policy.NextAttempt()

	p := &pendingRetry{}
	if !c.future.setActive(func() { p.stop() }) {
		client.observer.failure(reasonCanceled)
		return
	}
	stopWatch := context.AfterFunc(ctx, func() {
		if p.stop() {
			c.fail(reasonCanceled, ctx.Err())
		}
	})
	p.watching(stopWatch)

	sc, err := client.scheduler.Schedule(ctx, delay, func(sctx context.Context) {
		stopWatch()
		c.resume(sctx, a, n+1)
	})
	if err != nil {
		stopWatch()
		client.errLogger.Error(err.Error(), "could not schedule retry", zap.Error(err))
		c.fail(reasonSchedulerUnavailable, err)
		return
	}
	p.set(sc)
}

// pendingRetry is the scheduler's handle on a retry. stop may be called
// before the handle is known, in which case set cancels the task as soon
// as it arrives.
type pendingRetry struct {
	mu      sync.Mutex
	cancel  scheduler.Cancel
	unwatch func() bool
	stopped bool
}

// stop cancels the retry and reports whether it was kept from running.
// Only the first call can report true.
func (p *pendingRetry) stop() bool {
	p.mu.Lock()
	cancel, unwatch := p.cancel, p.unwatch
	first := !p.stopped
	p.stopped = true
	p.mu.Unlock()

	if unwatch != nil {
		unwatch()
	}
	if cancel == nil {
		return first
	}
	return cancel() && first
}

// watching records how to stop watching the caller's context.
func (p *pendingRetry) watching(unwatch func() bool) {
	p.mu.Lock()
	p.unwatch = unwatch
	stopped := p.stopped
	p.mu.Unlock()

	if stopped {
		unwatch()
	}
}

func (p *pendingRetry) set(cancel scheduler.Cancel) {
	p.mu.Lock()
	p.cancel = cancel
	stopped := p.stopped
	p.mu.Unlock()

	if stopped {
		cancel()
	}
}

// resume obtains the next attempt once a retry's delay has passed.
func (c *asyncCall) resume(ctx context.Context, a balancer.Attempt, n int) {
	if err := context.Cause(ctx); err != nil {
		c.fail(reasonCanceled, err)
		return
	}
	if c.future.isDone() {
		return
	}

	next, err := a.Next()
	if err != nil {
		c.fail(reasonPoolUnavailable, err)
		return
	}
	c.launch(ctx, next, n)
}

// fail completes the call through the handler's HandleException.
func (c *asyncCall) fail(reason string, err error) {
	if c.future.isDone() {
		return
	}
	c.client.observer.failure(reason)
	c.future.complete(c.handler.HandleException(c.req, err))
}
