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

// Package balancerconfig reads the configuration of balanced HTTP clients
// from YAML files or already-parsed maps.
//
//	services:
//	  users:
//	    uris: http://10.0.0.1:8080/api, http://10.0.0.2:8080/api
//	    client:
//	      maxAttempts: 2
//	      retryBudget:
//	        ratio: 0.1
//	    balancer:
//	      consecutiveFailures: 3
//
// Anything left out takes its default value.
package balancerconfig

import (
	"errors"
	"fmt"
	"net/url"
	"sort"

	"go.uber.org/httpbalancer"
	"go.uber.org/httpbalancer/balancer"
	"go.uber.org/httpbalancer/discovery"
	"go.uber.org/httpbalancer/internal/config"
	"go.uber.org/multierr"
)

// ClientConfig configures the retries of one service's client.
type ClientConfig = httpbalancer.Config

// BalancerConfig configures how one service's backends are taken out of
// rotation.
type BalancerConfig = balancer.Config

// Config holds every configured service by name.
type Config struct {
	Services map[string]ServiceConfig `config:"services"`
}

// ServiceConfig configures one service.
type ServiceConfig struct {
	// URIs is a comma-separated list of absolute backend URIs. A URI listed
	// more than once gets a proportionally larger share of traffic.
	URIs string `config:"uris"`

	Client   ClientConfig   `config:"client"`
	Balancer BalancerConfig `config:"balancer"`
}

// DefaultServiceConfig returns the configuration of a service with no
// backends.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Client:   httpbalancer.DefaultConfig(),
		Balancer: balancer.DefaultConfig(),
	}
}

// StaticURIs parses URIs.
func (c ServiceConfig) StaticURIs() ([]*url.URL, error) {
	if c.URIs == "" {
		return nil, nil
	}
	return discovery.ParseStaticURIs(c.URIs)
}

// Validate reports every problem with the service.
func (c ServiceConfig) Validate() error {
	_, err := c.StaticURIs()
	err = multierr.Append(err, c.Client.Validate())
	return multierr.Append(err, c.Balancer.Validate())
}

// Decode builds a Config from a map such as one parsed from YAML. Each
// service starts out with DefaultServiceConfig.
func Decode(raw map[string]interface{}) (Config, error) {
	var top struct {
		Services map[string]interface{} `config:"services"`
	}
	if err := config.DecodeInto(&top, raw); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %v", err)
	}

	cfg := Config{Services: make(map[string]ServiceConfig, len(top.Services))}
	var errs error
	for _, name := range sortedKeys(top.Services) {
		svc := DefaultServiceConfig()
		if err := config.DecodeInto(&svc, top.Services[name]); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to decode service %q: %v", name, err))
			continue
		}
		cfg.Services[name] = svc
	}
	if errs != nil {
		return Config{}, errs
	}
	return cfg, nil
}

// Validate reports every problem with every service, each prefixed with
// the service's name.
func (c Config) Validate() error {
	if len(c.Services) == 0 {
		return errors.New("no services configured")
	}

	var errs error
	for _, name := range sortedKeys(c.Services) {
		for _, err := range multierr.Errors(c.Services[name].Validate()) {
			errs = multierr.Append(errs, fmt.Errorf("service %q: %v", name, err))
		}
	}
	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
