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

// Package http provides a transport.Outbound backed by net/http.
//
// The outbound sends exactly one request per Call. It does not interpret
// status codes: a 503 is returned as a response like any other, and the
// balancing client decides what to do with it.
package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"go.uber.org/httpbalancer/api/transport"
	"go.uber.org/httpbalancer/tracetoken"
	"go.uber.org/zap"
	"golang.org/x/net/context/ctxhttp"
)

// OutboundOption customizes an Outbound.
type OutboundOption func(*Outbound)

// WithClient sets the HTTP client used to send requests. It defaults to
// http.DefaultClient.
func WithClient(c *http.Client) OutboundOption {
	return func(o *Outbound) {
		o.client = c
	}
}

// WithTracer sets the tracer for client spans. It defaults to the global
// tracer.
func WithTracer(t opentracing.Tracer) OutboundOption {
	return func(o *Outbound) {
		o.tracer = t
	}
}

// WithLogger sets the logger for failed requests.
func WithLogger(l *zap.Logger) OutboundOption {
	return func(o *Outbound) {
		o.logger = l
	}
}

// Outbound sends transport requests with an http.Client.
type Outbound struct {
	client *http.Client
	tracer opentracing.Tracer
	logger *zap.Logger
}

var _ transport.Outbound = (*Outbound)(nil)

// NewOutbound builds an Outbound.
func NewOutbound(opts ...OutboundOption) *Outbound {
	o := &Outbound{
		client: http.DefaultClient,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Call sends treq to its absolute URI.
func (o *Outbound) Call(ctx context.Context, treq *transport.Request) (*transport.Response, error) {
	start := time.Now()

	var body io.Reader
	if treq.Body != nil {
		r, err := treq.Body.Reader()
		if err != nil {
			return nil, err
		}
		body = r
	}

	req, err := http.NewRequest(treq.Method, treq.URI.String(), body)
	if err != nil {
		return nil, err
	}
	if treq.Headers != nil {
		req.Header = treq.Headers.Clone()
	}
	if token, ok := tracetoken.FromContext(ctx); ok {
		req.Header.Set(tracetoken.Header, token)
	}

	ctx, span := o.withOpentracingSpan(ctx, req, start)
	defer span.Finish()

	res, err := ctxhttp.Do(ctx, o.client, req)
	if err != nil {
		ext.Error.Set(span, true)
		span.LogKV("event", "error", "message", err.Error())
		o.logger.Debug("http request failed",
			zap.String("method", req.Method),
			zap.String("uri", req.URL.String()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	ext.HTTPStatusCode.Set(span, uint16(res.StatusCode))
	if res.StatusCode >= 500 {
		ext.Error.Set(span, true)
	}
	return &transport.Response{
		StatusCode: res.StatusCode,
		Headers:    res.Header,
		Body:       res.Body,
	}, nil
}

func (o *Outbound) withOpentracingSpan(ctx context.Context, req *http.Request, start time.Time) (context.Context, opentracing.Span) {
	tracer := o.tracer
	if tracer == nil {
		tracer = opentracing.GlobalTracer()
	}

	var parent opentracing.SpanContext // ok to be nil
	if parentSpan := opentracing.SpanFromContext(ctx); parentSpan != nil {
		parent = parentSpan.Context()
	}
	span := tracer.StartSpan(
		"http "+req.Method,
		opentracing.StartTime(start),
		opentracing.ChildOf(parent),
	)
	ext.SpanKindRPCClient.Set(span)
	ext.HTTPMethod.Set(span, req.Method)
	ext.HTTPUrl.Set(span, req.URL.String())
	ctx = opentracing.ContextWithSpan(ctx, span)

	_ = tracer.Inject(
		span.Context(),
		opentracing.HTTPHeaders,
		opentracing.HTTPHeadersCarrier(req.Header),
	)
	return ctx, span
}
