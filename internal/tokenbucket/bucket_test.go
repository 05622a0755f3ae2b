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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/httpbalancer/internal/clock"
)

func TestAdderForgetsOldValues(t *testing.T) {
	clk := clock.NewFake()
	adder := NewAdder(time.Second, 10, clk)

	adder.Add(1)
	clk.Add(100 * time.Millisecond)
	adder.Add(2)
	clk.Add(100 * time.Millisecond)
	adder.Add(4)
	assert.Equal(t, int64(7), adder.Sum())

	clk.Add(800 * time.Millisecond)
	assert.Equal(t, int64(6), adder.Sum(), "first slot left the window")

	clk.Add(100 * time.Millisecond)
	assert.Equal(t, int64(4), adder.Sum())

	clk.Add(100 * time.Millisecond)
	assert.Equal(t, int64(0), adder.Sum())
}

func TestAdderLongIdle(t *testing.T) {
	clk := clock.NewFake()
	adder := NewAdder(time.Second, 10, clk)

	adder.Add(5)
	clk.Add(time.Hour)
	assert.Equal(t, int64(0), adder.Sum())

	adder.Add(3)
	assert.Equal(t, int64(3), adder.Sum())
}

func TestAdderPanicsOnBadArguments(t *testing.T) {
	clk := clock.NewFake()
	assert.Panics(t, func() { NewAdder(time.Second, 1, clk) })
	assert.Panics(t, func() { NewAdder(5*time.Nanosecond, 10, clk) })
}

func TestBucketIsLeaky(t *testing.T) {
	clk := clock.NewFake()
	bucket := New(3*time.Second, 0, clk)

	bucket.Put(100)
	assert.True(t, bucket.TryGet(1))

	clk.Add(3 * time.Second)
	assert.False(t, bucket.TryGet(1))
}

func TestBucketFailsWhenEmpty(t *testing.T) {
	bucket := New(3*time.Second, 0, clock.NewFake())

	bucket.Put(100)
	assert.True(t, bucket.TryGet(50))
	assert.True(t, bucket.TryGet(49))
	assert.True(t, bucket.TryGet(1))
	assert.False(t, bucket.TryGet(1))
	assert.False(t, bucket.TryGet(50))

	bucket.Put(1)
	assert.False(t, bucket.TryGet(2))
	assert.True(t, bucket.TryGet(1))
	assert.False(t, bucket.TryGet(1))
}

func TestBucketProvisionsReserves(t *testing.T) {
	clk := clock.NewFake()
	bucket := New(3*time.Second, 100, clk)

	assert.True(t, bucket.TryGet(50)) // -50 + 100
	assert.True(t, bucket.TryGet(50)) // -100 + 100
	assert.False(t, bucket.TryGet(1)) // empty
	bucket.Put(1)                     // -99 + 100
	assert.True(t, bucket.TryGet(1))  // back to empty
	assert.Equal(t, int64(0), bucket.Count())

	for i := 0; i < 3; i++ {
		clk.Add(time.Second)
		assert.False(t, bucket.TryGet(1), "withdrawals have not expired after %d seconds", i+1)
	}

	clk.Add(time.Second)
	assert.True(t, bucket.TryGet(50), "the -100 expired")

	clk.Add(3 * time.Second)
	assert.True(t, bucket.TryGet(100), "the -50 expired")
	assert.False(t, bucket.TryGet(1))
}

func TestBucketRejectsNegativeAmounts(t *testing.T) {
	bucket := New(time.Second, 0, clock.NewFake())
	assert.Panics(t, func() { bucket.Put(-1) })
	assert.Panics(t, func() { bucket.TryGet(-1) })
}
