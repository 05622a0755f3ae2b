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
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/httpbalancer/api/backoff"
	"go.uber.org/httpbalancer/api/transport"
	"go.uber.org/httpbalancer/internal/clock"
	"go.uber.org/httpbalancer/internal/sampledlogger"
	"go.uber.org/httpbalancer/retrybudget"
	"go.uber.org/zap"
)

const (
	// retryHeader set to "no" on a response forbids retrying it.
	retryHeader = "X-Retry"

	retryAfterHeader = "Retry-After"
)

var retryableStatuses = map[int]struct{}{
	http.StatusRequestTimeout:      {},
	499:                            {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
	598:                            {},
	599:                            {},
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeTerminal
	outcomeRetry
	// The call was canceled while the attempt was in flight. The handler
	// was not invoked.
	outcomeCanceled
)

// attemptResult is the classified outcome of one attempt.
type attemptResult struct {
	kind  outcome
	value interface{}
	err   error

	// category and handlerCategory are reported to the balancer when the
	// attempt failed. handlerCategory is set only if the caller's handler
	// returned an error.
	category        string
	handlerCategory string

	// reason is why a failed call was not retried.
	reason string

	// suggested is the server's delay hint for a retry.
	suggested time.Duration
}

// retryingHandler decides for a single attempt whether a failure is handed
// to the caller's handler or retried.
type retryingHandler struct {
	ctx    context.Context
	inner  transport.ResponseHandler
	budget retrybudget.Budget
	final  bool

	clock  clock.Clock
	logger *sampledlogger.Keyed
	base   string
}

func (h *retryingHandler) classify(req *transport.Request, res *transport.Response, err error) attemptResult {
	if err != nil {
		return h.handleError(req, err)
	}
	return h.handleResponse(req, res)
}

func (h *retryingHandler) handleError(req *transport.Request, err error) attemptResult {
	category := fmt.Sprintf("%T", err)
	h.logger.Warn(category, "request attempt failed",
		zap.String("uri", h.base),
		zap.String("category", category),
		zap.Error(err),
	)

	if reason := h.retryDenied(req); reason != "" {
		v, herr := h.inner.HandleException(req, err)
		return terminal(v, herr, category, reason)
	}
	return attemptResult{
		kind:      outcomeRetry,
		category:  category,
		suggested: backoff.NoSuggestedBackoff,
	}
}

func (h *retryingHandler) handleResponse(req *transport.Request, res *transport.Response) attemptResult {
	category := statusCategory(res.StatusCode)

	if _, ok := retryableStatuses[res.StatusCode]; !ok {
		v, err := h.inner.Handle(req, res)
		if err != nil {
			return terminal(v, err, category, reasonHandlerFailure)
		}
		return attemptResult{kind: outcomeSuccess, value: v}
	}
	h.logger.Warn(category, "request attempt failed",
		zap.String("uri", h.base),
		zap.String("category", category),
		zap.Int("status", res.StatusCode),
	)

	reason := reasonUnretryable
	if !strings.EqualFold(res.Header(retryHeader), "no") {
		reason = h.retryDenied(req)
	}
	if reason != "" {
		v, err := h.inner.Handle(req, res)
		return terminal(v, err, category, reason)
	}

	suggested := retryAfter(res.Header(retryAfterHeader), h.clock.Now())
	_ = res.Close()
	return attemptResult{
		kind:      outcomeRetry,
		category:  category,
		suggested: suggested,
	}
}

// retryDenied returns why the request may not be retried, or "" if it may.
// The budget is consulted last since asking it spends a token.
func (h *retryingHandler) retryDenied(req *transport.Request) string {
	switch {
	case !transport.IsReplayable(req.Body):
		return reasonBodyNotReplayable
	case h.final:
		return reasonMaxAttempts
	case h.ctx.Err() != nil:
		return reasonCanceled
	case !h.budget.CanRetry():
		return reasonBudgetExhausted
	}
	return ""
}

func terminal(v interface{}, err error, category, reason string) attemptResult {
	r := attemptResult{
		kind:     outcomeTerminal,
		value:    v,
		err:      err,
		category: category,
		reason:   reason,
	}
	if err != nil {
		r.handlerCategory = fmt.Sprintf("%T", err)
	}
	return r
}

func statusCategory(code int) string {
	return strconv.Itoa(code) + " status code"
}

// retryAfter parses a Retry-After header given either in seconds or as an
// HTTP date.
func retryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return backoff.NoSuggestedBackoff
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		if secs <= 0 {
			return backoff.NoSuggestedBackoff
		}
		if secs > int64(math.MaxInt64/time.Second) {
			return time.Duration(math.MaxInt64)
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return backoff.NoSuggestedBackoff
}
