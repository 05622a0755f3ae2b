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

// Package lifecycle helps components that start once and stop once, such as
// the retry scheduler and the balancing client.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/atomic"
)

// State is a point in a component's life, from Idle to Stopped.
type State int32

const (
	// Idle indicates the component has not been started or stopped yet.
	Idle State = iota

	// Starting indicates Start is running its start function.
	Starting

	// Running indicates the component started successfully.
	Running

	// Stopping indicates Stop is running its stop function.
	Stopping

	// Stopped indicates the component stopped.
	Stopped

	// Errored indicates a start or stop function failed.
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ErrNotRunning is returned by WaitUntilRunning when the component moved
// past Running, or failed to get there.
var ErrNotRunning = errors.New("lifecycle is not running")

// Once runs a start function and a stop function at most once each and
// tracks the resulting state. The zero value is not usable; use NewOnce.
//
// Stop before Start skips both functions and moves straight to Stopped.
// Concurrent callers of Start or Stop block until the winning call finishes
// and then share its error.
type Once struct {
	state atomic.Int32

	startCh    chan struct{}
	stoppingCh chan struct{}
	stopCh     chan struct{}

	errMu sync.Mutex
	err   error
}

// NewOnce returns a lifecycle in the Idle state.
func NewOnce() *Once {
	return &Once{
		startCh:    make(chan struct{}),
		stoppingCh: make(chan struct{}),
		stopCh:     make(chan struct{}),
	}
}

// Start runs f if no one has started or stopped this lifecycle yet.
func (o *Once) Start(f func() error) error {
	if !o.state.CompareAndSwap(int32(Idle), int32(Starting)) {
		<-o.startCh
		return o.loadError()
	}

	var err error
	if f != nil {
		err = f()
	}
	if err != nil {
		o.setError(err)
		o.state.Store(int32(Errored))
		close(o.stoppingCh)
		close(o.stopCh)
	} else {
		o.state.Store(int32(Running))
	}
	close(o.startCh)
	return err
}

// Stop runs f if the lifecycle is Running. A lifecycle that never started
// becomes Stopped without calling f.
func (o *Once) Stop(f func() error) error {
	if o.state.CompareAndSwap(int32(Idle), int32(Stopped)) {
		close(o.startCh)
		close(o.stoppingCh)
		close(o.stopCh)
		return nil
	}

	<-o.startCh
	if !o.state.CompareAndSwap(int32(Running), int32(Stopping)) {
		<-o.stopCh
		return o.loadError()
	}
	close(o.stoppingCh)

	var err error
	if f != nil {
		err = f()
	}
	if err != nil {
		o.setError(err)
		o.state.Store(int32(Errored))
	} else {
		o.state.Store(int32(Stopped))
	}
	close(o.stopCh)
	return err
}

// WaitUntilRunning blocks until the lifecycle is Running or ctx is done.
func (o *Once) WaitUntilRunning(ctx context.Context) error {
	if s := o.State(); s == Running {
		return nil
	} else if s > Running {
		return fmt.Errorf("%w: current state is %v", ErrNotRunning, s)
	}

	select {
	case <-o.startCh:
		if s := o.State(); s != Running {
			return fmt.Errorf("%w: current state is %v", ErrNotRunning, s)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for lifecycle to start: %w", ctx.Err())
	}
}

// Started closes once the lifecycle is Running or beyond.
func (o *Once) Started() <-chan struct{} { return o.startCh }

// Stopping closes once the lifecycle is Stopping or beyond.
func (o *Once) Stopping() <-chan struct{} { return o.stoppingCh }

// Stopped closes once the lifecycle is Stopped or Errored.
func (o *Once) Stopped() <-chan struct{} { return o.stopCh }

// State returns the current state. The lifecycle may have moved on by the
// time the caller looks at it.
func (o *Once) State() State {
	return State(o.state.Load())
}

// IsRunning reports whether the lifecycle is Running.
func (o *Once) IsRunning() bool {
	return o.State() == Running
}

func (o *Once) setError(err error) {
	o.errMu.Lock()
	o.err = err
	o.errMu.Unlock()
}

func (o *Once) loadError() error {
	o.errMu.Lock()
	defer o.errMu.Unlock()
	return o.err
}
