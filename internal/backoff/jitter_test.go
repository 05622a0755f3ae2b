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

package backoff

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestDecorrelatedJitterValidation(t *testing.T) {
	tests := []struct {
		msg        string
		giveMin    time.Duration
		giveMax    time.Duration
		wantErrors []string
	}{
		{
			msg:     "valid",
			giveMin: time.Millisecond,
			giveMax: time.Second,
		},
		{
			msg:     "equal bounds",
			giveMin: time.Second,
			giveMax: time.Second,
		},
		{
			msg:     "invalid min",
			giveMin: -time.Millisecond,
			giveMax: time.Second,
			wantErrors: []string{
				"invalid min for decorrelated jitter backoff, need greater than or equal to zero",
			},
		},
		{
			msg:     "invalid max and min",
			giveMin: -time.Millisecond,
			giveMax: -2 * time.Millisecond,
			wantErrors: []string{
				"invalid min for decorrelated jitter backoff, need greater than or equal to zero",
				"invalid max for decorrelated jitter backoff, need greater than or equal to zero",
				"decorrelated jitter max value must be greater than or equal to min value",
			},
		},
		{
			msg:     "max less than min",
			giveMin: time.Second,
			giveMax: time.Millisecond,
			wantErrors: []string{
				"decorrelated jitter max value must be greater than or equal to min value",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			policy, err := NewDecorrelatedJitter(MinBackoff(tt.giveMin), MaxBackoff(tt.giveMax))
			if len(tt.wantErrors) == 0 {
				require.NoError(t, err)
				assert.Equal(t, tt.giveMin, policy.Min())
				assert.Equal(t, tt.giveMax, policy.Max())
				return
			}
			require.Error(t, err)
			errs := multierr.Errors(err)
			require.Len(t, errs, len(tt.wantErrors))
			for i, want := range tt.wantErrors {
				assert.EqualError(t, errs[i], want)
			}
		})
	}
}

func TestDecorrelatedJitterBackoff(t *testing.T) {
	type backoffCall struct {
		msg           string
		givePrevious  time.Duration
		giveSuggested time.Duration
		giveRand      int64
		wantRange     int64
		wantBackoff   time.Duration
	}

	tests := []backoffCall{
		{
			msg:         "first retry draws from [min, 2*min)",
			giveRand:    3,
			wantRange:   10,
			wantBackoff: 13,
		},
		{
			msg:          "previous delay triples the range",
			givePrevious: 20,
			giveRand:     0,
			wantRange:    50,
			wantBackoff:  10,
		},
		{
			msg:          "upper end of the range",
			givePrevious: 20,
			giveRand:     49,
			wantRange:    50,
			wantBackoff:  59,
		},
		{
			msg:          "clamped to max",
			givePrevious: 90,
			giveRand:     250,
			wantRange:    260,
			wantBackoff:  100,
		},
		{
			msg:           "suggested raises the floor",
			givePrevious:  20,
			giveSuggested: 70,
			giveRand:      1,
			wantRange:     50,
			wantBackoff:   70,
		},
		{
			msg:           "suggested above max yields max",
			giveSuggested: 1000,
			giveRand:      1,
			wantRange:     10,
			wantBackoff:   100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			var gotRange int64
			policy, err := NewDecorrelatedJitter(
				MinBackoff(10),
				MaxBackoff(100),
				randInt63n(func(n int64) int64 {
					gotRange = n
					return tt.giveRand
				}),
			)
			require.NoError(t, err)

			assert.Equal(t, tt.wantBackoff, policy.Backoff(tt.givePrevious, tt.giveSuggested))
			assert.Equal(t, tt.wantRange, gotRange)
		})
	}
}

func TestDecorrelatedJitterZeroRange(t *testing.T) {
	policy, err := NewDecorrelatedJitter(
		MinBackoff(0),
		MaxBackoff(time.Second),
		randInt63n(func(int64) int64 {
			t.Fatal("random source must not be consulted for an empty range")
			return 0
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), policy.Backoff(0, 0))
}

func TestDecorrelatedJitterBounds(t *testing.T) {
	min := time.Millisecond
	max := 5 * time.Second
	policy, err := NewDecorrelatedJitter(MinBackoff(min), MaxBackoff(max))
	require.NoError(t, err)

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		var previous time.Duration
		prevBound := min
		suggested := time.Duration(r.Int63n(int64(2 * max)))
		for j := 0; j < 100; j++ {
			next := policy.Backoff(previous, suggested)
			assert.True(t, next >= min, "backoff %v below min", next)
			assert.True(t, next <= max, "backoff %v above max", next)
			if suggested <= max {
				assert.True(t, next >= suggested, "backoff %v below suggested %v", next, suggested)
			}
			if next > suggested {
				assert.True(t, next <= 3*prevBound, "backoff %v above three times %v", next, prevBound)
			}
			prevBound = next
			previous = next
		}
	}
}

func TestDecorrelatedJitterHugePrevious(t *testing.T) {
	policy, err := NewDecorrelatedJitter(MinBackoff(time.Millisecond), MaxBackoff(time.Minute))
	require.NoError(t, err)
	got := policy.Backoff(time.Duration(1<<62), 0)
	assert.True(t, got >= time.Millisecond && got <= time.Minute, "got %v", got)
}

func TestDecorrelatedJitterNextAttempt(t *testing.T) {
	policy, err := NewDecorrelatedJitter()
	require.NoError(t, err)
	assert.True(t, policy.NextAttempt() == policy)
	assert.Equal(t, 10*time.Millisecond, policy.Min())
	assert.Equal(t, 10*time.Second, policy.Max())
}
