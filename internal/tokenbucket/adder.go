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

// Package tokenbucket implements a token bucket whose deposits leak out
// after a fixed time-to-live. The retry budget uses it to remember how many
// calls were made recently.
package tokenbucket

import (
	"fmt"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/httpbalancer/internal/clock"
)

// Adder keeps an approximate sum of everything added over a sliding window.
//
// Recent additions go into a live accumulator. Once the accumulator has been
// open for a full slice of the window it is moved into a ring of historical
// slots and the oldest slot is forgotten. The rotation happens lazily on Add
// and Sum; whichever caller wins a compare-and-swap on the generation
// counter performs it, so no background goroutine is needed.
type Adder struct {
	clock  clock.Clock
	window time.Duration // duration of one slot

	writer atomic.Int64
	slots  []atomic.Int64

	gen        atomic.Int64
	expiredGen atomic.Int64

	// Only touched by the caller that won the generation CAS.
	idx  int
	last atomic.Int64 // unix nanos of the last rotation
}

// NewAdder builds an Adder covering span, divided into slices parts. It
// panics if slices is less than two or span is too short to divide.
func NewAdder(span time.Duration, slices int, clk clock.Clock) *Adder {
	if slices < 2 {
		panic(fmt.Sprintf("tokenbucket: slices must be greater than one, got %d", slices))
	}
	window := span / time.Duration(slices)
	if window <= 0 {
		panic(fmt.Sprintf("tokenbucket: span %v is too short for %d slices", span, slices))
	}
	a := &Adder{
		clock:  clk,
		window: window,
		slots:  make([]atomic.Int64, slices-1),
	}
	a.last.Store(clk.Now().UnixNano())
	return a
}

// Add adds n, which may be negative.
func (a *Adder) Add(n int64) {
	a.maybeExpire()
	a.writer.Add(n)
}

// Sum returns the total of the additions still inside the window.
func (a *Adder) Sum() int64 {
	a.maybeExpire()
	_ = a.gen.Load() // pairs with the store at the end of expire
	sum := a.writer.Load()
	for i := range a.slots {
		sum += a.slots[i].Load()
	}
	return sum
}

func (a *Adder) maybeExpire() {
	if a.clock.Now().UnixNano()-a.last.Load() >= int64(a.window) {
		a.expire()
	}
}

func (a *Adder) expire() {
	gen := a.gen.Load()
	if !a.expiredGen.CompareAndSwap(gen, gen+1) {
		return
	}

	// The live value was probably current when it was written, so it is
	// credited to the slot that is closing now.
	n := len(a.slots)
	a.slots[a.idx].Store(a.writer.Swap(0))
	a.idx = (a.idx + 1) % n

	now := a.clock.Now().UnixNano()
	skipped := int((now-a.last.Load())/int64(a.window)) - 1
	if skipped > n {
		skipped = n
	}
	if skipped > 0 {
		head := skipped
		if head > n-a.idx {
			head = n - a.idx
		}
		for i := a.idx; i < a.idx+head; i++ {
			a.slots[i].Store(0)
		}
		for i := 0; i < skipped-head; i++ {
			a.slots[i].Store(0)
		}
		a.idx = (a.idx + skipped) % n
	}

	a.last.Store(now)
	a.gen.Store(gen + 1)
}
