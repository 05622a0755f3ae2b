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

package retrybudget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/httpbalancer/internal/clock"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		msg     string
		give    Config
		wantErr []string
	}{
		{
			msg:  "defaults",
			give: DefaultConfig(),
		},
		{
			msg:  "zero ratio",
			give: Config{Ratio: 0, Period: time.Second, MinPerSecond: 0},
		},
		{
			msg:  "full ratio and longest period",
			give: Config{Ratio: 1, Period: time.Minute, MinPerSecond: 1},
		},
		{
			msg:     "negative ratio",
			give:    Config{Ratio: -0.1, Period: time.Second},
			wantErr: []string{"invalid retry budget ratio -0.1"},
		},
		{
			msg:     "ratio above one",
			give:    Config{Ratio: 1.5, Period: time.Second},
			wantErr: []string{"invalid retry budget ratio 1.5"},
		},
		{
			msg:     "short period",
			give:    Config{Ratio: 0.2, Period: 999 * time.Millisecond},
			wantErr: []string{"need at least 1s"},
		},
		{
			msg:     "long period",
			give:    Config{Ratio: 0.2, Period: 61 * time.Second},
			wantErr: []string{"need at most 60s"},
		},
		{
			msg:  "everything wrong",
			give: Config{Ratio: 2, Period: 0, MinPerSecond: -1},
			wantErr: []string{
				"invalid retry budget ratio 2",
				"need at least 1s",
				"invalid retry budget minimum per second",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := tt.give.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}

			_, err = New(tt.give)
			assert.Error(t, err, "New must validate")
		})
	}
}

func TestNoRetryBudget(t *testing.T) {
	budget, err := New(Config{Ratio: 0, Period: 10 * time.Second, MinPerSecond: 0})
	require.NoError(t, err)
	assert.Equal(t, None, budget)

	for i := 0; i < 100; i++ {
		budget.InitialAttempt()
	}
	assert.False(t, budget.CanRetry())
}

func TestRatioFundsRetries(t *testing.T) {
	scope := tally.NewTestScope("", nil)
	budget, err := New(
		Config{Ratio: 0.2, Period: 10 * time.Second, MinPerSecond: 0},
		WithClock(clock.NewFake()),
		WithTally(scope),
	)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		budget.InitialAttempt()
	}
	assert.True(t, budget.CanRetry(), "five initial attempts fund one retry")
	assert.False(t, budget.CanRetry())
	assert.False(t, budget.CanRetry())

	token, ok := budget.(*TokenBudget)
	require.True(t, ok)
	assert.Equal(t, int64(2), token.Exhausted())

	counters := scope.Snapshot().Counters()
	require.Contains(t, counters, "retry_budget_exhausted+")
	assert.Equal(t, int64(2), counters["retry_budget_exhausted+"].Value())
}

func TestPartialDepositsDoNotFundRetry(t *testing.T) {
	budget, err := New(
		Config{Ratio: 0.2, Period: 10 * time.Second},
		WithClock(clock.NewFake()),
	)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		budget.InitialAttempt()
	}
	assert.False(t, budget.CanRetry())
	budget.InitialAttempt()
	assert.True(t, budget.CanRetry())
}

func TestDepositsExpire(t *testing.T) {
	clk := clock.NewFake()
	budget, err := New(
		Config{Ratio: 1, Period: time.Second},
		WithClock(clk),
	)
	require.NoError(t, err)

	budget.InitialAttempt()
	clk.Add(time.Second)
	assert.False(t, budget.CanRetry(), "deposit expired with the period")

	budget.InitialAttempt()
	assert.True(t, budget.CanRetry())
}

func TestMinimumPerSecond(t *testing.T) {
	clk := clock.NewFake()
	budget, err := New(
		Config{Ratio: 0, Period: time.Second, MinPerSecond: 2},
		WithClock(clk),
	)
	require.NoError(t, err)

	assert.True(t, budget.CanRetry())
	assert.True(t, budget.CanRetry())
	assert.False(t, budget.CanRetry(), "reserve spent")

	budget.InitialAttempt()
	assert.False(t, budget.CanRetry(), "initial attempts earn nothing without a ratio")

	clk.Add(time.Second)
	assert.True(t, budget.CanRetry(), "withdrawals expire with the period")
}

func TestMinimumScalesWithRatio(t *testing.T) {
	budget, err := New(
		Config{Ratio: 0.5, Period: 2 * time.Second, MinPerSecond: 1},
		WithClock(clock.NewFake()),
	)
	require.NoError(t, err)

	// The reserve covers MinPerSecond retries for each second of the
	// period before any traffic arrives.
	assert.True(t, budget.CanRetry())
	assert.True(t, budget.CanRetry())
	assert.False(t, budget.CanRetry())

	budget.InitialAttempt()
	budget.InitialAttempt()
	assert.True(t, budget.CanRetry())
}
