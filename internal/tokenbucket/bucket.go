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

package tokenbucket

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/httpbalancer/internal/clock"
)

const slices = 10

// Bucket is a token bucket whose deposits expire after a time-to-live. A
// fixed reserve is always available on top of the live deposits.
type Bucket struct {
	mu      sync.Mutex
	adder   *Adder
	reserve int64
}

// New builds a Bucket whose deposits expire after ttl.
func New(ttl time.Duration, reserve int64, clk clock.Clock) *Bucket {
	return &Bucket{
		adder:   NewAdder(ttl, slices, clk),
		reserve: reserve,
	}
}

// Put deposits n tokens. It panics if n is negative.
func (b *Bucket) Put(n int64) {
	checkAmount(n)
	b.adder.Add(n)
}

// TryGet withdraws n tokens if that many are available, and reports whether
// it did. It panics if n is negative.
func (b *Bucket) TryGet(n int64) bool {
	checkAmount(n)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.adder.Sum()+b.reserve < n {
		return false
	}
	b.adder.Add(-n)
	return true
}

// Count returns the number of tokens currently available.
func (b *Bucket) Count() int64 {
	return b.adder.Sum() + b.reserve
}

func checkAmount(n int64) {
	if n < 0 {
		panic(fmt.Sprintf("tokenbucket: amount must be non-negative, got %d", n))
	}
}
