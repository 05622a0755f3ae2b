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

// Package balancer chooses which backend URI each attempt of a call goes to.
//
// A Balancer holds a weighted pool of URIs and the health of each one. Every
// attempt increments the chosen URI's concurrency and must be finished with
// exactly one of MarkGood or MarkBad. Failures in a row take a URI out of
// rotation for a jittered dead time, after which it is probed with a single
// request and revived if the probe succeeds.
//
// Among healthy URIs the balancer prefers the one with the fewest in-flight
// attempts relative to its weight, breaking ties at random in proportion to
// how far each URI is below its share.
package balancer

import (
	"math/rand"
	"net/url"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/httpbalancer/api/backoff"
	intbackoff "go.uber.org/httpbalancer/internal/backoff"
	"go.uber.org/httpbalancer/internal/clock"
	"go.uber.org/zap"
)

// Attempt is one selection of a URI for one try of a call.
type Attempt interface {
	// URI is the base URI chosen for this attempt.
	URI() *url.URL

	// MarkGood records that the attempt succeeded.
	MarkGood()

	// MarkBad records that the attempt failed.
	MarkBad(failureCategory string)

	// MarkBadWithHandlerCategory records that the attempt failed because
	// the response handler failed.
	MarkBadWithHandlerCategory(failureCategory, handlerCategory string)

	// Next selects the URI for the following attempt of the same call,
	// avoiding URIs this call already tried while others remain.
	Next() (Attempt, error)
}

type poolEntry struct {
	key    string
	uri    *url.URL
	weight int
}

// pool is an immutable multiset of URIs, in order of first appearance.
type pool struct {
	entries []poolEntry
}

func newPool(uris []*url.URL) *pool {
	index := make(map[string]int, len(uris))
	p := &pool{entries: make([]poolEntry, 0, len(uris))}
	for _, u := range uris {
		if u == nil {
			continue
		}
		key := u.String()
		if i, ok := index[key]; ok {
			p.entries[i].weight++
			continue
		}
		index[key] = len(p.entries)
		p.entries = append(p.entries, poolEntry{key: key, uri: u, weight: 1})
	}
	return p
}

// Balancer selects URIs from a pool. It is safe for concurrent use.
type Balancer struct {
	description         string
	consecutiveFailures int
	deadBackoff         backoff.Policy
	clock               clock.Clock
	logger              *zap.Logger
	metrics             *metrics

	pool atomic.Pointer[pool]

	mu       sync.Mutex
	states   map[string]*instanceState
	nextRand func(int) int

	maxConcurrency atomic.Int64
}

// New builds a Balancer with an empty pool.
func New(description string, cfg Config, opts ...Option) (*Balancer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	deadBackoff, err := intbackoff.NewDecorrelatedJitter(
		intbackoff.MinBackoff(cfg.MinBackoff),
		intbackoff.MaxBackoff(cfg.MaxBackoff),
	)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.nextRand == nil {
		r := rand.New(rand.NewSource(time.Now().UnixNano()))
		// Only called with mu held.
		o.nextRand = r.Intn
	}

	b := &Balancer{
		description:         description,
		consecutiveFailures: cfg.ConsecutiveFailures,
		deadBackoff:         deadBackoff,
		clock:               o.clock,
		logger:              o.logger.With(zap.String("service", description)),
		metrics:             newMetrics(o.scope),
		states:              make(map[string]*instanceState),
		nextRand:            o.nextRand,
	}
	b.pool.Store(newPool(nil))
	return b, nil
}

// Description returns the name the balancer was built with.
func (b *Balancer) Description() string {
	return b.description
}

// UpdateURIs replaces the pool. A URI listed more than once gets a
// proportionally larger share of traffic. Attempts already in flight are
// unaffected.
func (b *Balancer) UpdateURIs(uris []*url.URL) {
	b.pool.Store(newPool(uris))
}

// CreateAttempt selects a URI for the first attempt of a call. It returns a
// ServiceUnavailableError if the pool is empty.
func (b *Balancer) CreateAttempt() (Attempt, error) {
	a, err := b.newAttempt(nil)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// MaxConcurrency returns the highest number of in-flight attempts on any
// single URI.
func (b *Balancer) MaxConcurrency() int64 {
	return b.maxConcurrency.Load()
}

// Liveness returns the current liveness of u. URIs the balancer has no
// state for are Alive.
func (b *Balancer) Liveness(u *url.URL) Liveness {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.states[u.String()]; ok {
		return s.liveness
	}
	return Alive
}

func (b *Balancer) newAttempt(attempted map[string]struct{}) (*attempt, error) {
	all := b.pool.Load().entries
	candidates := all
	if len(attempted) > 0 {
		candidates = make([]poolEntry, 0, len(all))
		for _, e := range all {
			if _, ok := attempted[e.key]; !ok {
				candidates = append(candidates, e)
			}
		}
	}
	if len(candidates) == 0 {
		// Every URI was tried; start over.
		candidates = all
		attempted = nil
	}
	if len(candidates) == 0 {
		return nil, &ServiceUnavailableError{Service: b.description}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	var (
		best *instanceState
		ties []poolEntry
	)
	for {
		best, ties = worstState, ties[:0]
		for _, e := range candidates {
			s, ok := b.states[e.key]
			if !ok {
				s = &instanceState{liveness: Alive}
				b.states[e.key] = s
			}
			s.weight = e.weight
			if s.liveness == Dead && !s.deadUntil.After(now) {
				s.liveness = Probing
			}

			c := s.compare(best)
			if c > 0 {
				continue
			}
			if c < 0 {
				best = s
				ties = ties[:0]
			}
			for i := s.weight - s.concurrency%s.weight; i > 0; i-- {
				ties = append(ties, e)
			}
		}

		if best.liveness != Dead || len(attempted) == 0 {
			break
		}
		// Everything left to try is dead. Look at the whole pool instead.
		candidates = b.pool.Load().entries
		attempted = nil
	}
	if len(ties) == 0 {
		return nil, &ServiceUnavailableError{Service: b.description}
	}

	chosen := ties[b.nextRand(len(ties))]
	s := b.states[chosen.key]
	if s.liveness == Probing && s.concurrency == 0 {
		b.metrics.probe(chosen.key)
	}
	s.concurrency++
	if int64(s.concurrency) > b.maxConcurrency.Load() {
		b.setMaxConcurrency(int64(s.concurrency))
	}

	a := &attempt{
		balancer:  b,
		entry:     chosen,
		attempted: attempted,
		start:     now,
	}
	a.inProgress.Store(true)
	return a, nil
}

func (b *Balancer) finish(a *attempt, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.states[a.entry.key]
	if !ok {
		return
	}
	b.mark(s, a.entry.key, failed)

	old := s.concurrency
	if old > 0 {
		s.concurrency--
	}
	if old == 1 && !failed && s.liveness == Alive {
		delete(b.states, a.entry.key)
		if len(b.states) == 0 {
			b.setMaxConcurrency(0)
			return
		}
	}

	if b.maxConcurrency.Load() != int64(old) {
		return
	}
	for _, other := range b.states {
		if other.concurrency == old {
			return
		}
	}
	b.setMaxConcurrency(int64(old - 1))
}

// mark drives the liveness machine for one outcome. Called with mu held.
func (b *Balancer) mark(s *instanceState, uri string, failed bool) {
	switch s.liveness {
	case Alive:
		if !failed {
			s.numFailures = 0
			return
		}
		s.numFailures++
		if s.numFailures >= b.consecutiveFailures {
			s.policy = b.deadBackoff
			b.kill(s, uri, s.policy.Backoff(0, backoff.NoSuggestedBackoff))
		}

	case Dead:
		if !failed {
			b.revive(s, uri)
		}

	case Probing:
		if !failed {
			b.revive(s, uri)
			return
		}
		s.policy = s.policy.NextAttempt()
		b.kill(s, uri, s.policy.Backoff(s.lastBackoff, backoff.NoSuggestedBackoff))
	}
}

func (b *Balancer) kill(s *instanceState, uri string, deadTime time.Duration) {
	s.liveness = Dead
	s.lastBackoff = deadTime
	s.deadUntil = b.clock.Now().Add(deadTime)
	b.metrics.removal(uri, deadTime)
	b.logger.Warn("removing URI from rotation",
		zap.String("uri", uri),
		zap.Int("consecutiveFailures", s.numFailures),
		zap.Duration("deadTime", deadTime))
}

func (b *Balancer) revive(s *instanceState, uri string) {
	s.revive()
	b.metrics.revival(uri)
	b.logger.Info("URI revived", zap.String("uri", uri))
}

func (b *Balancer) setMaxConcurrency(n int64) {
	b.maxConcurrency.Store(n)
	b.metrics.maxConcurrency.Update(float64(n))
}
