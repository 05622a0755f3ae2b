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

// Package scheduler runs delayed tasks on a fixed pool of workers.
//
// The balancing client uses it to wait out the backoff between asynchronous
// attempts without parking a goroutine per waiting call.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/httpbalancer/internal/clock"
	"go.uber.org/httpbalancer/pkg/lifecycle"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotStarted is returned when scheduling on a scheduler that was
	// never started.
	ErrNotStarted = errors.New("scheduler has not been started")

	// ErrStopped is returned when scheduling on a stopped scheduler. It is
	// also the cause of the context passed to tasks that were still
	// pending when the scheduler stopped.
	ErrStopped = errors.New("scheduler has been stopped")
)

const (
	_defaultWorkers   = 4
	_defaultQueueSize = 1024
)

// Cancel prevents a scheduled task from running. It reports whether it did
// so; false means the task already started or was already canceled.
type Cancel func() bool

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used for delays.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// Workers sets the number of goroutines that run tasks.
func Workers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// QueueSize sets how many due tasks may wait for a free worker before the
// timers that release them block.
func QueueSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// Scheduler runs functions after a delay. It must be started before use.
type Scheduler struct {
	clock     clock.Clock
	workers   int
	queueSize int

	once   *lifecycle.Once
	queue  chan *task
	stopCh chan struct{}
	group  errgroup.Group

	mu      sync.Mutex
	stopped bool
	pending map[*task]struct{}
}

// New builds a Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:     clock.NewReal(),
		workers:   _defaultWorkers,
		queueSize: _defaultQueueSize,
		once:      lifecycle.NewOnce(),
		stopCh:    make(chan struct{}),
		pending:   make(map[*task]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queue = make(chan *task, s.queueSize)
	return s
}

// Start launches the workers.
func (s *Scheduler) Start() error {
	return s.once.Start(func() error {
		for i := 0; i < s.workers; i++ {
			s.group.Go(s.work)
		}
		return nil
	})
}

// Stop waits for running tasks to return and stops the workers. Tasks that
// have not started yet are called on the stopping goroutine with a context
// canceled with ErrStopped, so that whoever is waiting on them can finish.
func (s *Scheduler) Stop() error {
	return s.once.Stop(func() error {
		close(s.stopCh)
		err := s.group.Wait()

		s.mu.Lock()
		s.stopped = true
		leftover := make([]*task, 0, len(s.pending))
		for t := range s.pending {
			leftover = append(leftover, t)
		}
		s.pending = nil
		s.mu.Unlock()

		for _, t := range leftover {
			if !t.claim() {
				continue
			}
			t.stopTimer()
			ctx, cancel := context.WithCancelCause(t.ctx)
			cancel(ErrStopped)
			t.fn(ctx)
		}
		return err
	})
}

// Schedule calls fn with ctx on a worker once delay has passed.
func (s *Scheduler) Schedule(ctx context.Context, delay time.Duration, fn func(context.Context)) (Cancel, error) {
	switch s.once.State() {
	case lifecycle.Idle, lifecycle.Starting:
		return nil, ErrNotStarted
	case lifecycle.Running:
	default:
		return nil, ErrStopped
	}

	t := &task{ctx: ctx, fn: fn}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, ErrStopped
	}
	s.pending[t] = struct{}{}
	s.mu.Unlock()

	t.setTimer(s.clock.AfterFunc(delay, func() { s.release(t) }))

	return func() bool {
		if !t.claim() {
			return false
		}
		t.stopTimer()
		s.forget(t)
		return true
	}, nil
}

func (s *Scheduler) release(t *task) {
	select {
	case s.queue <- t:
	case <-s.stopCh:
		// Stop takes care of it.
	}
}

func (s *Scheduler) work() error {
	for {
		select {
		case t := <-s.queue:
			if t.claim() {
				s.forget(t)
				t.fn(t.ctx)
			}
		case <-s.stopCh:
			return nil
		}
	}
}

func (s *Scheduler) forget(t *task) {
	s.mu.Lock()
	delete(s.pending, t)
	s.mu.Unlock()
}

type task struct {
	ctx context.Context
	fn  func(context.Context)

	// claimed is set by whichever of the worker, Cancel or Stop gets to
	// the task first.
	claimed atomic.Bool

	timerMu sync.Mutex
	timer   clock.Timer
}

func (t *task) claim() bool {
	return t.claimed.CompareAndSwap(false, true)
}

func (t *task) setTimer(timer clock.Timer) {
	t.timerMu.Lock()
	defer t.timerMu.Unlock()
	t.timer = timer
	if t.claimed.Load() {
		timer.Stop()
	}
}

func (t *task) stopTimer() {
	t.timerMu.Lock()
	defer t.timerMu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
}
