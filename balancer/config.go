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

package balancer

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config controls when a backend is taken out of rotation and for how long.
type Config struct {
	// ConsecutiveFailures is the number of failures in a row after which a
	// backend is considered dead.
	ConsecutiveFailures int `config:"consecutiveFailures"`

	// MinBackoff and MaxBackoff bound the time a dead backend waits before
	// it is probed again.
	MinBackoff time.Duration `config:"minBackoff"`
	MaxBackoff time.Duration `config:"maxBackoff"`
}

// DefaultConfig returns the configuration used when nothing else is
// specified.
func DefaultConfig() Config {
	return Config{
		ConsecutiveFailures: 5,
		MinBackoff:          5 * time.Second,
		MaxBackoff:          2 * time.Minute,
	}
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var err error
	if c.ConsecutiveFailures < 1 {
		err = multierr.Append(err, fmt.Errorf("invalid consecutive failures %d, need at least 1", c.ConsecutiveFailures))
	}
	if c.MinBackoff < 0 {
		err = multierr.Append(err, errors.New("invalid dead-time min backoff, need greater than or equal to zero"))
	}
	if c.MaxBackoff < c.MinBackoff {
		err = multierr.Append(err, fmt.Errorf("dead-time max backoff %v must be greater than or equal to min backoff %v", c.MaxBackoff, c.MinBackoff))
	}
	return err
}
