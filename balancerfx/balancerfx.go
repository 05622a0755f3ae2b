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

// Package balancerfx builds a balanced HTTP client for every configured
// service and ties their lifetimes to an Fx application.
//
//	fx.New(
//		balancerfx.LoadConfig("balancer.yaml"),
//		balancerfx.Module,
//		fx.Invoke(func(c *balancerfx.Clients) { ... }),
//	)
package balancerfx

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/uber-go/tally"
	"go.uber.org/fx"
	"go.uber.org/httpbalancer"
	"go.uber.org/httpbalancer/api/transport"
	"go.uber.org/httpbalancer/balancer"
	"go.uber.org/httpbalancer/balancerconfig"
	"go.uber.org/httpbalancer/transport/http"
	"go.uber.org/zap"
)

// Module provides *Clients.
var Module = fx.Provide(New)

// LoadConfig provides the balancerconfig.Config read from path.
func LoadConfig(path string) fx.Option {
	return fx.Provide(func() (balancerconfig.Config, error) {
		return balancerconfig.Load(path)
	})
}

// Params are the dependencies of New.
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    balancerconfig.Config

	// Outbound defaults to an HTTP outbound over http.DefaultClient.
	Outbound transport.Outbound `optional:"true"`
	Logger   *zap.Logger        `optional:"true"`
	Scope    tally.Scope        `optional:"true"`
	Tracer   opentracing.Tracer `optional:"true"`
}

// Result is the output of New.
type Result struct {
	fx.Out

	Clients *Clients
}

// Clients holds the client and balancer of each configured service.
type Clients struct {
	clients   map[string]*httpbalancer.Client
	balancers map[string]*balancer.Balancer
}

// Client returns the client for the named service.
func (c *Clients) Client(service string) (*httpbalancer.Client, bool) {
	client, ok := c.clients[service]
	return client, ok
}

// Balancer returns the balancer for the named service. Its URIs may be
// replaced at any time, for instance by a discovery.Listener.
func (c *Clients) Balancer(service string) (*balancer.Balancer, bool) {
	b, ok := c.balancers[service]
	return b, ok
}

// New builds a balancer and a client for every service in p.Config and
// seeds each balancer with the service's static URIs. Clients are started
// and stopped with the application.
func New(p Params) (Result, error) {
	if err := p.Config.Validate(); err != nil {
		return Result{}, err
	}

	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	scope := p.Scope
	if scope == nil {
		scope = tally.NoopScope
	}
	out := p.Outbound
	if out == nil {
		opts := []http.OutboundOption{http.WithLogger(logger)}
		if p.Tracer != nil {
			opts = append(opts, http.WithTracer(p.Tracer))
		}
		out = http.NewOutbound(opts...)
	}

	clients := &Clients{
		clients:   make(map[string]*httpbalancer.Client, len(p.Config.Services)),
		balancers: make(map[string]*balancer.Balancer, len(p.Config.Services)),
	}
	for name, cfg := range p.Config.Services {
		svcLogger := logger.With(zap.String("service", name))
		svcScope := scope.Tagged(map[string]string{"service": name})

		b, err := balancer.New(name, cfg.Balancer,
			balancer.WithLogger(svcLogger),
			balancer.WithTally(svcScope.SubScope("balancer")),
		)
		if err != nil {
			return Result{}, fmt.Errorf("service %q: %v", name, err)
		}
		uris, err := cfg.StaticURIs()
		if err != nil {
			return Result{}, fmt.Errorf("service %q: %v", name, err)
		}
		b.UpdateURIs(uris)

		opts := []httpbalancer.Option{
			httpbalancer.WithLogger(svcLogger),
			httpbalancer.WithTally(svcScope.SubScope("client")),
		}
		if p.Tracer != nil {
			opts = append(opts, httpbalancer.WithTracer(p.Tracer))
		}
		client, err := httpbalancer.New(b, out, cfg.Client, opts...)
		if err != nil {
			return Result{}, fmt.Errorf("service %q: %v", name, err)
		}

		p.Lifecycle.Append(fx.Hook{
			OnStart: func(context.Context) error {
				return client.Start()
			},
			OnStop: func(context.Context) error {
				return client.Stop()
			},
		})
		clients.clients[name] = client
		clients.balancers[name] = b
	}

	return Result{Clients: clients}, nil
}
