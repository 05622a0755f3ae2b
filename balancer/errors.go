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
)

var (
	// ErrAttemptCompleted is the panic value when an attempt is marked good
	// or bad more than once.
	ErrAttemptCompleted = errors.New("balancer: attempt outcome already recorded")

	// ErrAttemptInProgress is the panic value when Next is called before
	// the attempt's outcome was recorded.
	ErrAttemptInProgress = errors.New("balancer: attempt is still in progress")

	// ErrAttemptAdvanced is the panic value when Next is called twice on
	// the same attempt.
	ErrAttemptAdvanced = errors.New("balancer: next attempt already created")
)

// ServiceUnavailableError is returned when a balancer has no URIs to choose
// from.
type ServiceUnavailableError struct {
	// Service is the description of the balancer.
	Service string
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("service %q is unavailable: no URIs in pool", e.Service)
}

// IsServiceUnavailable reports whether err is, or wraps, a
// ServiceUnavailableError.
func IsServiceUnavailable(err error) bool {
	var target *ServiceUnavailableError
	return errors.As(err, &target)
}
