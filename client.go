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
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"go.uber.org/httpbalancer/api/backoff"
	"go.uber.org/httpbalancer/api/transport"
	"go.uber.org/httpbalancer/balancer"
	ibackoff "go.uber.org/httpbalancer/internal/backoff"
	"go.uber.org/httpbalancer/internal/clock"
	"go.uber.org/httpbalancer/internal/sampledlogger"
	"go.uber.org/httpbalancer/internal/scheduler"
	"go.uber.org/httpbalancer/pkg/lifecycle"
	"go.uber.org/httpbalancer/retrybudget"
	"go.uber.org/httpbalancer/tracetoken"
	"go.uber.org/zap"
)

// Transport errors of the same type are logged at most once per window.
const errorLogInterval = 30 * time.Second

const attemptOperationName = "httpbalancer.attempt"

// Balancer chooses the backend for each attempt of a call.
//
// *balancer.Balancer satisfies this interface.
type Balancer interface {
	CreateAttempt() (balancer.Attempt, error)
}

var _ Balancer = (*balancer.Balancer)(nil)

// Client sends requests to a service through a Balancer, retrying failed
// attempts against other backends.
//
// Execute may be used without starting the Client. ExecuteAsync needs a
// started Client to retry.
type Client struct {
	once *lifecycle.Once

	balancer    Balancer
	outbound    transport.Outbound
	maxAttempts int
	backoff     backoff.Policy
	budget      retrybudget.Budget
	scheduler   *scheduler.Scheduler

	observer  *observer
	logger    *zap.Logger
	errLogger *sampledlogger.Keyed
	tracer    opentracing.Tracer
	clock     clock.Clock
}

// New builds a Client that sends every attempt through out.
func New(b Balancer, out transport.Outbound, cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultClientOptions
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.retryWorkers < 1 {
		return nil, fmt.Errorf("invalid retry workers %d, need at least 1", o.retryWorkers)
	}

	policy, err := ibackoff.NewDecorrelatedJitter(
		ibackoff.MinBackoff(cfg.MinBackoff),
		ibackoff.MaxBackoff(cfg.MaxBackoff),
	)
	if err != nil {
		return nil, err
	}

	budget, err := retrybudget.New(cfg.RetryBudget,
		retrybudget.WithClock(o.clock),
		retrybudget.WithTally(o.scope),
	)
	if err != nil {
		return nil, err
	}

	return &Client{
		once:        lifecycle.NewOnce(),
		balancer:    b,
		outbound:    out,
		maxAttempts: cfg.MaxAttempts,
		backoff:     policy,
		budget:      budget,
		scheduler: scheduler.New(
			scheduler.WithClock(o.clock),
			scheduler.Workers(o.retryWorkers),
		),
		observer:  newObserver(o.scope),
		logger:    o.logger,
		errLogger: sampledlogger.NewKeyed(errorLogInterval, o.logger),
		tracer:    o.tracer,
		clock:     o.clock,
	}, nil
}

// Start starts the retry scheduler.
func (c *Client) Start() error {
	return c.once.Start(c.scheduler.Start)
}

// Stop stops the retry scheduler. Asynchronous calls waiting to retry are
// completed through their handler's HandleException.
func (c *Client) Stop() error {
	return c.once.Stop(c.scheduler.Stop)
}

// IsRunning reports whether the Client has been started and not stopped.
func (c *Client) IsRunning() bool {
	return c.once.IsRunning()
}

// Execute sends req, retrying failures on other backends, and returns what
// h produced for the last attempt.
//
// h is invoked exactly once. If no backend is available or ctx ends while
// waiting to retry, that is through HandleException.
func (c *Client) Execute(ctx context.Context, req *transport.Request, h transport.ResponseHandler) (interface{}, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	ctx = tracetoken.Ensure(ctx)
	c.observer.call()

	a, err := c.balancer.CreateAttempt()
	if err != nil {
		c.observer.failure(reasonPoolUnavailable)
		return h.HandleException(req, err)
	}
	c.budget.InitialAttempt()

	var (
		policy   = c.backoff
		previous time.Duration
	)
	for n := 1; ; n++ {
		rh := c.newRetryingHandler(ctx, h, a, n)
		r := c.roundTrip(ctx, a, n, req, rh.classify)
		if r.kind != outcomeRetry {
			return c.finish(a, r)
		}

		a.MarkBad(r.category)
		c.observer.retry()
		delay := policy.Backoff(previous, r.suggested)
		if err := c.sleep(ctx, delay); err != nil {
			c.observer.failure(reasonCanceled)
			return h.HandleException(req, err)
		}

		next, err := a.Next()
		if err != nil {
			c.observer.failure(reasonPoolUnavailable)
			return h.HandleException(req, err)
		}
		a, previous, policy = next, delay, policy.NextAttempt()
	}
}

// newRetryingHandler wraps h for the nth attempt. The last allowed attempt
// may not retry, so h always sees it.
func (c *Client) newRetryingHandler(ctx context.Context, h transport.ResponseHandler, a balancer.Attempt, n int) *retryingHandler {
	rh := &retryingHandler{
		ctx:    ctx,
		inner:  h,
		budget: c.budget,
		final:  n >= c.maxAttempts,
		clock:  c.clock,
		logger: c.errLogger,
		base:   a.URI().String(),
	}
	if rh.final {
		rh.budget = retrybudget.None
	}
	return rh
}

// roundTrip sends the nth attempt of req to the backend chosen by a and
// classifies the result.
func (c *Client) roundTrip(
	ctx context.Context,
	a balancer.Attempt,
	n int,
	req *transport.Request,
	classify func(*transport.Request, *transport.Response, error) attemptResult,
) attemptResult {
	tracer := c.tracer
	if tracer == nil {
		tracer = opentracing.GlobalTracer()
	}

	attemptReq := req.WithURI(resolve(a.URI(), req.URI))
	span, ctx := opentracing.StartSpanFromContextWithTracer(ctx, tracer, attemptOperationName)
	defer span.Finish()
	ext.SpanKindRPCClient.Set(span)
	ext.HTTPUrl.Set(span, attemptReq.URI.String())
	span.SetTag("attempt", n)

	c.observer.attempt()
	res, err := c.outbound.Call(ctx, attemptReq)
	r := classify(attemptReq, res, err)
	if r.kind != outcomeSuccess {
		ext.Error.Set(span, true)
		span.SetTag("failure_category", r.category)
	}
	return r
}

// finish records the outcome of a call's last attempt.
func (c *Client) finish(a balancer.Attempt, r attemptResult) (interface{}, error) {
	if r.kind == outcomeSuccess {
		a.MarkGood()
		c.observer.success()
		return r.value, nil
	}

	if r.handlerCategory != "" {
		a.MarkBadWithHandlerCategory(r.category, r.handlerCategory)
	} else {
		a.MarkBad(r.category)
	}
	c.observer.failure(r.reason)
	return r.value, r.err
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	t := c.clock.Timer(d)
	defer t.Stop()
	select {
	case <-t.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func validateRequest(req *transport.Request) error {
	if req == nil || req.URI == nil {
		return &InvalidRequestError{Reason: "request has no URI"}
	}
	u := req.URI
	switch {
	case u.IsAbs() || u.Host != "":
		return &InvalidRequestError{URI: u.String(), Reason: "URI must be relative"}
	case strings.HasPrefix(u.Path, "/"):
		return &InvalidRequestError{URI: u.String(), Reason: "URI must not start with a slash"}
	}
	return nil
}

// resolve resolves rel against base as if base were a directory.
func resolve(base, rel *url.URL) *url.URL {
	dir := *base
	if !strings.HasSuffix(dir.Path, "/") {
		dir.Path += "/"
		if dir.RawPath != "" {
			dir.RawPath += "/"
		}
	}
	return dir.ResolveReference(rel)
}
