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
	"sync"
)

// Future is the pending result of ExecuteAsync.
type Future struct {
	done chan struct{}

	mu       sync.Mutex
	finished bool
	canceled bool
	value    interface{}
	err      error
	// cancelActive stops whatever the call is currently waiting on: the
	// in-flight attempt or the scheduled retry.
	cancelActive func()
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Done returns a channel that is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Get waits for the result of the call, or for ctx to end.
func (f *Future) Get(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel stops the call and completes the Future with ErrCanceled. It
// reports false if the call had already completed.
//
// A request that already reached a backend is not undone.
func (f *Future) Cancel() bool {
	f.mu.Lock()
	if f.finished {
		f.mu.Unlock()
		return false
	}
	f.finished = true
	f.canceled = true
	f.err = ErrCanceled
	cancel := f.cancelActive
	f.cancelActive = nil
	f.mu.Unlock()

	close(f.done)
	if cancel != nil {
		cancel()
	}
	return true
}

// State describes the Future: "pending", "succeeded", "failed" or
// "canceled".
func (f *Future) State() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case !f.finished:
		return "pending"
	case f.canceled:
		return "canceled"
	case f.err != nil:
		return "failed"
	default:
		return "succeeded"
	}
}

func (f *Future) complete(v interface{}, err error) bool {
	f.mu.Lock()
	if f.finished {
		f.mu.Unlock()
		return false
	}
	f.finished = true
	f.value, f.err = v, err
	f.cancelActive = nil
	f.mu.Unlock()

	close(f.done)
	return true
}

func (f *Future) isDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finished
}

// setActive installs cancel as the way to stop the current step. If the
// Future is already done, cancel is called right away and setActive
// reports false.
func (f *Future) setActive(cancel func()) bool {
	f.mu.Lock()
	if f.finished {
		f.mu.Unlock()
		cancel()
		return false
	}
	f.cancelActive = cancel
	f.mu.Unlock()
	return true
}
