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

package clock

import (
	"container/heap"
	"sync"
	"time"
)

// FakeClock is a Clock that only moves forward when Add or Set is called.
//
// Timers that become due are fired from within Add or Set, in deadline
// order, before the call returns. AfterFunc callbacks therefore run on the
// goroutine advancing the clock, which keeps tests deterministic.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers fakeTimers
	seq    int
}

var _ Clock = (*FakeClock)(nil)

// NewFake returns a fake clock set to the Unix epoch.
func NewFake() *FakeClock {
	return &FakeClock{now: time.Unix(0, 0)}
}

// Now returns the current time on the fake clock.
func (fc *FakeClock) Now() time.Time {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.now
}

// Add moves the clock forward by d, firing every timer that becomes due.
func (fc *FakeClock) Add(d time.Duration) {
	fc.Set(fc.Now().Add(d))
}

// Set moves the clock forward to end, firing every timer that becomes due.
// Setting a time in the past only fires timers that are already due.
func (fc *FakeClock) Set(end time.Time) {
	for {
		fc.mu.Lock()
		if len(fc.timers) == 0 || fc.timers[0].when.After(end) {
			if fc.now.Before(end) {
				fc.now = end
			}
			fc.mu.Unlock()
			return
		}
		t := heap.Pop(&fc.timers).(*FakeTimer)
		if fc.now.Before(t.when) {
			fc.now = t.when
		}
		fc.mu.Unlock()

		t.fire()
	}
}

// Timer produces a timer that will emit a time some duration after now.
func (fc *FakeClock) Timer(d time.Duration) Timer {
	return fc.schedule(d, nil)
}

// AfterFunc runs f once the clock has moved forward by d.
func (fc *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	return fc.schedule(d, f)
}

// Pending returns the number of timers that have not fired or been stopped.
func (fc *FakeClock) Pending() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return len(fc.timers)
}

func (fc *FakeClock) schedule(d time.Duration, f func()) *FakeTimer {
	t := &FakeTimer{clock: fc, fn: f}
	if f == nil {
		t.c = make(chan time.Time, 1)
	}

	fc.mu.Lock()
	t.when = fc.now.Add(d)
	fc.seq++
	t.seq = fc.seq
	heap.Push(&fc.timers, t)
	fc.mu.Unlock()

	if d <= 0 {
		fc.Set(fc.Now())
	}
	return t
}

// FakeTimer is a single event on a FakeClock.
type FakeTimer struct {
	clock *FakeClock
	when  time.Time
	seq   int
	index int

	c  chan time.Time
	fn func()
}

// C returns the channel that receives the fake time when the timer fires.
func (t *FakeTimer) C() <-chan time.Time { return t.c }

// Stop removes the timer from the clock.
func (t *FakeTimer) Stop() bool {
	fc := t.clock
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&fc.timers, t.index)
	return true
}

func (t *FakeTimer) fire() {
	if t.fn != nil {
		t.fn()
		return
	}
	select {
	case t.c <- t.when:
	default:
	}
}

// fakeTimers is a min-heap of timers ordered by deadline, then by creation.
type fakeTimers []*FakeTimer

func (ts fakeTimers) Len() int { return len(ts) }

func (ts fakeTimers) Less(i, j int) bool {
	if ts[i].when.Equal(ts[j].when) {
		return ts[i].seq < ts[j].seq
	}
	return ts[i].when.Before(ts[j].when)
}

func (ts fakeTimers) Swap(i, j int) {
	ts[i], ts[j] = ts[j], ts[i]
	ts[i].index = i
	ts[j].index = j
}

func (ts *fakeTimers) Push(x interface{}) {
	t := x.(*FakeTimer)
	t.index = len(*ts)
	*ts = append(*ts, t)
}

func (ts *fakeTimers) Pop() interface{} {
	old := *ts
	t := old[len(old)-1]
	*ts = old[:len(old)-1]
	t.index = -1
	return t
}
