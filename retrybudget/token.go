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
	"math"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/atomic"
	"go.uber.org/httpbalancer/internal/tokenbucket"
)

// Deposits and withdrawals are fixed-point so that fractional ratios can be
// represented with integer tokens.
const scaleFactor = 1000

// TokenBudget is the Budget returned by New for any non-trivial Config.
type TokenBudget struct {
	deposit    int64
	withdrawal int64
	bucket     *tokenbucket.Bucket

	exhausted        atomic.Int64
	exhaustedCounter tally.Counter
}

var _ Budget = (*TokenBudget)(nil)

func newTokenBudget(cfg Config, o options) *TokenBudget {
	// With no ratio every retry costs one token and all tokens come from
	// the reserve.
	deposit, withdrawal := int64(0), int64(1)
	if cfg.Ratio > 0 {
		deposit = scaleFactor
		withdrawal = int64(math.Round(scaleFactor / cfg.Ratio))
	}

	periodSeconds := int64(cfg.Period.Round(time.Second) / time.Second)
	reserve := int64(cfg.MinPerSecond) * periodSeconds * withdrawal

	return &TokenBudget{
		deposit:          deposit,
		withdrawal:       withdrawal,
		bucket:           tokenbucket.New(cfg.Period, reserve, o.clock),
		exhaustedCounter: o.scope.Counter("retry_budget_exhausted"),
	}
}

// InitialAttempt deposits the credit for one first attempt.
func (b *TokenBudget) InitialAttempt() {
	b.bucket.Put(b.deposit)
}

// CanRetry withdraws the cost of one retry if the budget allows it.
func (b *TokenBudget) CanRetry() bool {
	if b.bucket.TryGet(b.withdrawal) {
		return true
	}
	b.exhausted.Inc()
	b.exhaustedCounter.Inc(1)
	return false
}

// Exhausted returns how many retries this budget has refused.
func (b *TokenBudget) Exhausted() int64 {
	return b.exhausted.Load()
}
