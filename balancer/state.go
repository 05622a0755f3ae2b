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

package balancer

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/httpbalancer/api/backoff"
)

// Liveness is the health of one URI as seen by a balancer.
type Liveness int

const (
	// Alive URIs take traffic normally.
	Alive Liveness = iota

	// Probing URIs were dead, their dead time has passed and they are
	// being tried with a single request.
	Probing

	// Dead URIs are avoided until their dead time passes.
	Dead
)

func (l Liveness) String() string {
	switch l {
	case Alive:
		return "alive"
	case Probing:
		return "probing"
	case Dead:
		return "dead"
	default:
		return fmt.Sprintf("Liveness(%d)", int(l))
	}
}

// instanceState is guarded by Balancer.mu.
type instanceState struct {
	liveness    Liveness
	weight      int
	concurrency int
	numFailures int

	// Only meaningful while Dead or Probing.
	policy      backoff.Policy
	lastBackoff time.Duration
	deadUntil   time.Time
}

// worstState ranks below every real state.
var worstState = &instanceState{liveness: Dead, weight: 1, concurrency: math.MaxInt}

// bad reports whether the state should only be chosen when nothing better
// exists. A probing URI is bad once its probe is in flight.
func (s *instanceState) bad() bool {
	return s.liveness == Dead || (s.liveness == Probing && s.concurrency > 0)
}

func (s *instanceState) load() int {
	return s.concurrency / s.weight
}

// compare returns a negative number if s is a better choice than other, a
// positive one if it is worse, and 0 if they tie.
func (s *instanceState) compare(other *instanceState) int {
	if sb, ob := s.bad(), other.bad(); sb != ob {
		if sb {
			return 1
		}
		return -1
	}
	switch sl, ol := s.load(), other.load(); {
	case sl < ol:
		return -1
	case sl > ol:
		return 1
	default:
		return 0
	}
}

func (s *instanceState) revive() {
	s.liveness = Alive
	s.numFailures = 0
	s.policy = nil
	s.lastBackoff = 0
	s.deadUntil = time.Time{}
}
