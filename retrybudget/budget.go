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

// Package retrybudget limits retries to a fraction of recent traffic so that
// retries cannot turn a partial outage into a full one.
//
// Every first attempt deposits into a budget and every retry withdraws from
// it. Deposits expire after a configured period.
package retrybudget

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/httpbalancer/internal/clock"
	"go.uber.org/multierr"
)

// Budget decides whether a retry may be spent. Implementations must be safe
// for concurrent use.
type Budget interface {
	// InitialAttempt records a first attempt of a logical call.
	InitialAttempt()

	// CanRetry reports whether one retry may be attempted, consuming the
	// budget for it when it returns true.
	CanRetry() bool
}

// None is a Budget that never allows a retry.
var None Budget = noBudget{}

type noBudget struct{}

func (noBudget) InitialAttempt() {}

func (noBudget) CanRetry() bool { return false }

// Config describes a token budget.
type Config struct {
	// Ratio is the fraction of initial attempts that may be retried,
	// between 0 and 1.
	Ratio float64 `config:"ratio"`

	// Period is how long an initial attempt keeps funding retries.
	Period time.Duration `config:"period"`

	// MinPerSecond is the number of retries per second allowed regardless
	// of traffic.
	MinPerSecond int `config:"minPerSecond"`
}

// DefaultConfig returns the budget used when nothing else is configured.
func DefaultConfig() Config {
	return Config{
		Ratio:        0.2,
		Period:       10 * time.Second,
		MinPerSecond: 10,
	}
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var err error
	if c.Ratio < 0 || c.Ratio > 1 || math.IsNaN(c.Ratio) {
		err = multierr.Append(err, fmt.Errorf("invalid retry budget ratio %v, need between 0 and 1", c.Ratio))
	}
	if c.Period < time.Second {
		err = multierr.Append(err, fmt.Errorf("invalid retry budget period %v, need at least 1s", c.Period))
	}
	if c.Period > time.Minute {
		err = multierr.Append(err, fmt.Errorf("invalid retry budget period %v, need at most 60s", c.Period))
	}
	if c.MinPerSecond < 0 {
		err = multierr.Append(err, errors.New("invalid retry budget minimum per second, need greater than or equal to zero"))
	}
	return err
}

// Option customizes a token budget.
type Option func(*options)

type options struct {
	clock clock.Clock
	scope tally.Scope
}

// WithClock sets the clock the budget uses to expire deposits.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithTally sets the scope that receives the retry_budget_exhausted counter.
func WithTally(scope tally.Scope) Option {
	return func(o *options) {
		o.scope = scope
	}
}

// New builds a Budget from cfg. A configuration that allows neither a
// ratio nor a minimum returns None.
func New(cfg Config, opts ...Option) (Budget, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Ratio == 0 && cfg.MinPerSecond == 0 {
		return None, nil
	}

	o := options{
		clock: clock.NewReal(),
		scope: tally.NoopScope,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return newTokenBudget(cfg, o), nil
}
