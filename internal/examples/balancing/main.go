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

// Command balancing runs two local backends, one of them broken, and calls
// them through a balanced client built from a YAML configuration.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/fx"
	"go.uber.org/httpbalancer"
	"go.uber.org/httpbalancer/api/transport"
	"go.uber.org/httpbalancer/balancerfx"
	"go.uber.org/httpbalancer/discovery"
	"go.uber.org/zap"
)

const configTemplate = `
services:
  greeter:
    uris: %s, %s
    client:
      maxAttempts: 3
      minBackoff: 5ms
      maxBackoff: 50ms
    balancer:
      consecutiveFailures: 1
      minBackoff: 1s
      maxBackoff: 5s
`

var (
	flagSet   = flag.NewFlagSet("balancing", flag.ExitOnError)
	flagCalls = flagSet.Int("calls", 5, "number of calls of each kind to make")
	flagDebug = flagSet.Bool("debug", false, "log balancer events")
)

func main() {
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
	if err := do(os.Stdout, *flagCalls, *flagDebug); err != nil {
		log.Fatal(err)
	}
}

func do(w io.Writer, calls int, debug bool) error {
	healthy, err := startBackend("healthy", http.StatusOK)
	if err != nil {
		return err
	}
	defer healthy.Close()

	broken, err := startBackend("broken", http.StatusServiceUnavailable)
	if err != nil {
		return err
	}
	defer broken.Close()

	dir, err := os.MkdirTemp("", "balancing")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "balancer.yaml")
	contents := fmt.Sprintf(configTemplate, broken.uri(), healthy.uri())
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		return err
	}

	logger := zap.NewNop()
	if debug {
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
	}

	var clients *balancerfx.Clients
	app := fx.New(
		fx.NopLogger,
		fx.Supply(logger),
		balancerfx.LoadConfig(path),
		balancerfx.Module,
		fx.Populate(&clients),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = app.Stop(context.Background()) }()

	client, ok := clients.Client("greeter")
	if !ok {
		return errors.New("greeter is not configured")
	}
	req := &transport.Request{
		Method: http.MethodGet,
		URI:    &url.URL{Path: "v1/hello"},
	}

	for i := 0; i < calls; i++ {
		got, err := client.Execute(ctx, req, greetingHandler)
		fmt.Fprintf(w, "sync %d: %v %v\n", i, got, err)
	}

	// Pretend discovery reported a new pool in which the healthy backend
	// has twice the weight.
	b, _ := clients.Balancer("greeter")
	discovery.NewBalancerListener(b, discovery.WithLogger(logger)).UpdateServiceDescriptors([]discovery.ServiceDescriptor{
		{Type: "greeter", Properties: map[string]string{discovery.PropertyHTTP: healthy.uri(), discovery.PropertyWeight: "2"}},
		{Type: "greeter", Properties: map[string]string{discovery.PropertyHTTP: broken.uri(), discovery.PropertyWeight: "1"}},
	})

	futures := make([]*httpbalancer.Future, 0, calls)
	for i := 0; i < calls; i++ {
		futures = append(futures, client.ExecuteAsync(ctx, req, greetingHandler))
	}
	for i, f := range futures {
		got, err := f.Get(ctx)
		fmt.Fprintf(w, "async %d: %v %v\n", i, got, err)
	}
	return nil
}

var greetingHandler = transport.HandlerFuncs{
	OnResponse: func(_ *transport.Request, res *transport.Response) (interface{}, error) {
		defer res.Close()
		b, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, err
		}
		if res.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d: %s", res.StatusCode, b)
		}
		return string(b), nil
	},
}

type backend struct {
	addr   string
	server *http.Server
}

func (b *backend) uri() string {
	return "http://" + b.addr + "/api"
}

func (b *backend) Close() {
	_ = b.server.Close()
}

func startBackend(name string, status int) (*backend, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/hello", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		fmt.Fprintf(w, "hello from %s", name)
	}).Methods(http.MethodGet)

	srv := &http.Server{Handler: r, ReadHeaderTimeout: time.Second}
	go func() { _ = srv.Serve(ln) }()
	return &backend{addr: ln.Addr().String(), server: srv}, nil
}
