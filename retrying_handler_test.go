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
	"errors"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/httpbalancer/api/backoff"
	"go.uber.org/httpbalancer/api/transport/transporttest"
	"go.uber.org/httpbalancer/internal/clock"
	"go.uber.org/httpbalancer/internal/sampledlogger"
	"go.uber.org/httpbalancer/retrybudget"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobserver "go.uber.org/zap/zaptest/observer"
)

type allowAll struct{}

func (allowAll) InitialAttempt() {}
func (allowAll) CanRetry() bool  { return true }

func TestRetryAfter(t *testing.T) {
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		msg  string
		give string
		want time.Duration
	}{
		{msg: "absent", give: "", want: backoff.NoSuggestedBackoff},
		{msg: "seconds", give: "120", want: 2 * time.Minute},
		{msg: "padded", give: " 3 ", want: 3 * time.Second},
		{msg: "negative", give: "-1", want: backoff.NoSuggestedBackoff},
		{msg: "date", give: now.Add(time.Minute).Format(http.TimeFormat), want: time.Minute},
		{msg: "date in the past", give: now.Add(-time.Minute).Format(http.TimeFormat), want: backoff.NoSuggestedBackoff},
		{msg: "garbage", give: "soon", want: backoff.NoSuggestedBackoff},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, retryAfter(tt.give, now))
		})
	}
}

func TestRetryingHandlerClassifiesStatuses(t *testing.T) {
	tests := []struct {
		give int
		want outcome
	}{
		{give: 200, want: outcomeSuccess},
		{give: 404, want: outcomeSuccess},
		{give: 501, want: outcomeSuccess},
		{give: 408, want: outcomeRetry},
		{give: 499, want: outcomeRetry},
		{give: 500, want: outcomeRetry},
		{give: 502, want: outcomeRetry},
		{give: 503, want: outcomeRetry},
		{give: 504, want: outcomeRetry},
		{give: 598, want: outcomeRetry},
		{give: 599, want: outcomeRetry},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.give), func(t *testing.T) {
			mockCtrl := gomock.NewController(t)
			defer mockCtrl.Finish()

			inner := transporttest.NewMockResponseHandler(mockCtrl)
			if tt.want == outcomeSuccess {
				inner.EXPECT().Handle(gomock.Any(), gomock.Any()).Return("handled", nil)
			}

			h := &retryingHandler{
				ctx:    context.Background(),
				inner:  inner,
				budget: allowAll{},
				clock:  clock.NewFake(),
				logger: sampledlogger.NewKeyed(time.Minute, zap.NewNop()),
			}
			r := h.classify(newRequest("v1"), transporttest.NewResponse(tt.give, ""), nil)
			assert.Equal(t, tt.want, r.kind)
			if tt.want == outcomeRetry {
				assert.Equal(t, statusCategory(tt.give), r.category)
			}
		})
	}
}

func TestRetryingHandlerFinalAttempt(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	inner := transporttest.NewMockResponseHandler(mockCtrl)
	giveErr := errors.New("still broken")
	inner.EXPECT().HandleException(gomock.Any(), giveErr).Return(nil, giveErr)

	h := &retryingHandler{
		ctx:    context.Background(),
		inner:  inner,
		budget: retrybudget.None,
		final:  true,
		clock:  clock.NewFake(),
		logger: sampledlogger.NewKeyed(time.Minute, zap.NewNop()),
	}
	r := h.classify(newRequest("v1"), nil, giveErr)
	assert.Equal(t, outcomeTerminal, r.kind)
	assert.Equal(t, reasonMaxAttempts, r.reason)
	assert.Equal(t, "*errors.errorString", r.category)
	assert.Equal(t, "*errors.errorString", r.handlerCategory)
	assert.Equal(t, giveErr, r.err)
}

func TestRetryingHandlerSamplesErrorLogs(t *testing.T) {
	core, logs := zapobserver.New(zapcore.WarnLevel)
	h := &retryingHandler{
		ctx:    context.Background(),
		budget: allowAll{},
		clock:  clock.NewFake(),
		logger: sampledlogger.NewKeyed(errorLogInterval, zap.New(core)),
		base:   "http://a.example.com/",
	}

	for i := 0; i < 10; i++ {
		r := h.classify(newRequest("v1"), nil, errors.New("connection reset"))
		require.Equal(t, outcomeRetry, r.kind)
	}
	r := h.classify(newRequest("v1"), nil, &net.OpError{Op: "dial", Err: errors.New("refused")})
	require.Equal(t, outcomeRetry, r.kind)
	assert.Equal(t, "*net.OpError", r.category)

	entries := logs.FilterMessage("request attempt failed").AllUntimed()
	require.Len(t, entries, 2, "one entry per error type")
	assert.Equal(t, "*errors.errorString", entries[0].ContextMap()["category"])
	assert.Equal(t, "*net.OpError", entries[1].ContextMap()["category"])
	assert.Equal(t, "http://a.example.com/", entries[1].ContextMap()["uri"])
}

func TestRetryingHandlerLogsRetryableStatuses(t *testing.T) {
	core, logs := zapobserver.New(zapcore.WarnLevel)
	h := &retryingHandler{
		ctx:    context.Background(),
		budget: allowAll{},
		clock:  clock.NewFake(),
		logger: sampledlogger.NewKeyed(errorLogInterval, zap.New(core)),
		base:   "http://a.example.com/",
	}

	for _, code := range []int{503, 503, 503, 502} {
		r := h.classify(newRequest("v1"), transporttest.NewResponse(code, ""), nil)
		require.Equal(t, outcomeRetry, r.kind)
	}

	entries := logs.FilterMessage("request attempt failed").AllUntimed()
	require.Len(t, entries, 2, "one entry per status code")
	assert.Equal(t, "503 status code", entries[0].ContextMap()["category"])
	assert.Equal(t, int64(503), entries[0].ContextMap()["status"])
	assert.Equal(t, "502 status code", entries[1].ContextMap()["category"])
}
