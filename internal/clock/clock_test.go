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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClockAdd(t *testing.T) {
	clock := NewFake()
	start := clock.Now()
	clock.Add(time.Second)
	assert.Equal(t, start.Add(time.Second), clock.Now())
}

func TestFakeClockSet(t *testing.T) {
	clock := NewFake()
	end := time.Unix(100, 0)
	clock.Set(end)
	assert.Equal(t, end, clock.Now())

	clock.Set(time.Unix(50, 0))
	assert.Equal(t, end, clock.Now(), "fake clock must not move backwards")
}

func TestFakeClockTimer(t *testing.T) {
	clock := NewFake()
	timer := clock.Timer(time.Second)

	clock.Add(500 * time.Millisecond)
	select {
	case <-timer.C():
		t.Fatal("timer fired early")
	default:
	}

	clock.Add(500 * time.Millisecond)
	select {
	case when := <-timer.C():
		assert.Equal(t, time.Unix(1, 0), when)
	default:
		t.Fatal("timer did not fire")
	}
	assert.False(t, timer.Stop(), "fired timer cannot be stopped")
}

func TestFakeAfterFuncOrder(t *testing.T) {
	clock := NewFake()

	var fired []string
	clock.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })
	clock.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	clock.AfterFunc(2*time.Second, func() { fired = append(fired, "b1") })
	clock.AfterFunc(2*time.Second, func() { fired = append(fired, "b2") })
	require.Equal(t, 4, clock.Pending())

	clock.Add(2 * time.Second)
	assert.Equal(t, []string{"a", "b1", "b2"}, fired)

	clock.Add(time.Second)
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, fired)
	assert.Equal(t, 0, clock.Pending())
}

func TestFakeAfterFuncSeesDeadline(t *testing.T) {
	clock := NewFake()
	var seen time.Time
	clock.AfterFunc(time.Second, func() { seen = clock.Now() })
	clock.Add(time.Minute)
	assert.Equal(t, time.Unix(1, 0), seen)
	assert.Equal(t, time.Unix(60, 0), clock.Now())
}

func TestFakeAfterFuncChained(t *testing.T) {
	clock := NewFake()
	count := 0
	var tick func()
	tick = func() {
		count++
		clock.AfterFunc(time.Second, tick)
	}
	clock.AfterFunc(time.Second, tick)

	clock.Add(5 * time.Second)
	assert.Equal(t, 5, count)
}

func TestFakeTimerStop(t *testing.T) {
	clock := NewFake()
	called := false
	timer := clock.AfterFunc(time.Second, func() { called = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	clock.Add(time.Minute)
	assert.False(t, called)
}

func TestFakeAfterFuncNonPositive(t *testing.T) {
	clock := NewFake()
	called := false
	clock.AfterFunc(0, func() { called = true })
	assert.True(t, called, "zero delay fires immediately")
}

func TestRealClock(t *testing.T) {
	clock := NewReal()
	done := make(chan struct{})
	clock.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("real AfterFunc did not fire")
	}

	timer := clock.Timer(time.Hour)
	assert.True(t, timer.Stop())
	assert.False(t, clock.Now().IsZero())
}
