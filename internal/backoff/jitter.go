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

package backoff

import (
	"errors"
	"math/rand"
	"time"

	"go.uber.org/httpbalancer/api/backoff"
	"go.uber.org/multierr"
)

// JitterOption defines options that can be applied to a decorrelated jitter
// backoff policy.
type JitterOption func(*jitterOptions)

type jitterOptions struct {
	min, max time.Duration

	// int63n MUST return a number in [0, n). It is called concurrently.
	int63n func(n int64) int64
}

func (o jitterOptions) validate() (err error) {
	if o.min < 0 {
		err = multierr.Append(err, errors.New("invalid min for decorrelated jitter backoff, need greater than or equal to zero"))
	}
	if o.max < 0 {
		err = multierr.Append(err, errors.New("invalid max for decorrelated jitter backoff, need greater than or equal to zero"))
	}
	if o.max < o.min {
		err = multierr.Append(err, errors.New("decorrelated jitter max value must be greater than or equal to min value"))
	}
	return err
}

var defaultJitterOpts = jitterOptions{
	min:    10 * time.Millisecond,
	max:    10 * time.Second,
	int63n: rand.Int63n,
}

// MinBackoff sets the smallest delay the policy will ever return.
func MinBackoff(t time.Duration) JitterOption {
	return func(options *jitterOptions) {
		options.min = t
	}
}

// MaxBackoff sets the largest delay the policy will ever return.
func MaxBackoff(t time.Duration) JitterOption {
	return func(options *jitterOptions) {
		options.max = t
	}
}

// randInt63n is an internal option for overriding the random number
// generator.
func randInt63n(f func(int64) int64) JitterOption {
	return func(options *jitterOptions) {
		options.int63n = f
	}
}

// DecorrelatedJitter is a "Decorrelated Jitter" backoff policy as described in
// https://www.awsarchitectureblog.com/2015/03/backoff.html, bounded to a
// closed [Min, Max] interval.
//
// Each delay is drawn from a range derived from the caller's own previous
// delay, so independent callers drift apart instead of retrying in lockstep.
// It is stateless and safe to use concurrently.
type DecorrelatedJitter struct {
	opts jitterOptions
}

var _ backoff.Policy = (*DecorrelatedJitter)(nil)

// NewDecorrelatedJitter returns a new decorrelated jitter backoff policy.
func NewDecorrelatedJitter(opts ...JitterOption) (*DecorrelatedJitter, error) {
	options := defaultJitterOpts
	for _, opt := range opts {
		opt(&options)
	}

	if err := options.validate(); err != nil {
		return nil, err
	}
	return &DecorrelatedJitter{opts: options}, nil
}

// Min returns the lower bound of the policy.
func (d *DecorrelatedJitter) Min() time.Duration { return d.opts.min }

// Max returns the upper bound of the policy.
func (d *DecorrelatedJitter) Max() time.Duration { return d.opts.max }

// NextAttempt returns the receiver.
func (d *DecorrelatedJitter) NextAttempt() backoff.Policy { return d }

// Backoff returns a delay in [min, max] that is at least suggested (as long as
// suggested itself does not exceed max).
func (d *DecorrelatedJitter) Backoff(previous, suggested time.Duration) time.Duration {
	min := d.opts.min.Nanoseconds()
	max := d.opts.max.Nanoseconds()

	prev := previous.Nanoseconds()
	if prev > max {
		// Keeps prev*3 from overflowing. The result is clamped to max anyway.
		prev = max
	}

	span := prev*3 - min
	if span < 0 {
		span = -span
	}

	delay := min
	if span > 0 {
		delay = min + d.opts.int63n(span)
	}
	if s := suggested.Nanoseconds(); s > delay {
		delay = s
	}
	if delay > max {
		delay = max
	}
	return time.Duration(delay)
}
