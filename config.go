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
	"errors"
	"fmt"
	"time"

	"go.uber.org/httpbalancer/retrybudget"
	"go.uber.org/multierr"
)

// Config controls how a Client retries.
type Config struct {
	// MaxAttempts is the maximum number of attempts per call, including the
	// first.
	MaxAttempts int `config:"maxAttempts"`

	// MinBackoff and MaxBackoff bound the delay between attempts.
	MinBackoff time.Duration `config:"minBackoff"`
	MaxBackoff time.Duration `config:"maxBackoff"`

	// RetryBudget limits retries across all calls made by the client.
	RetryBudget retrybudget.Config `config:"retryBudget"`
}

// DefaultConfig returns the configuration used when nothing else is
// specified.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		MinBackoff:  10 * time.Millisecond,
		MaxBackoff:  10 * time.Second,
		RetryBudget: retrybudget.DefaultConfig(),
	}
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var err error
	if c.MaxAttempts < 1 {
		err = multierr.Append(err, fmt.Errorf("invalid max attempts %d, need at least 1", c.MaxAttempts))
	}
	if c.MinBackoff < 0 {
		err = multierr.Append(err, errors.New("invalid retry min backoff, need greater than or equal to zero"))
	}
	if c.MaxBackoff < c.MinBackoff {
		err = multierr.Append(err, fmt.Errorf("retry max backoff %v must be greater than or equal to min backoff %v", c.MaxBackoff, c.MinBackoff))
	}
	return multierr.Append(err, c.RetryBudget.Validate())
}
