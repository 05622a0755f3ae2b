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

// Package sampledlogger provides loggers that drop repeated messages so a
// failing dependency cannot flood the log.
package sampledlogger

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Keyed logs at most one message per key in each interval. Keys are
// sampled independently of each other.
type Keyed struct {
	logger   *zap.Logger
	interval time.Duration
	samplers sync.Map // string -> *rate.Sometimes
}

// NewKeyed builds a Keyed logger. A nil logger discards everything.
func NewKeyed(interval time.Duration, logger *zap.Logger) *Keyed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Keyed{logger: logger, interval: interval}
}

// Warn logs msg at warn level unless a message for key was already logged
// in the current interval.
func (k *Keyed) Warn(key, msg string, fields ...zap.Field) {
	k.sampler(key).Do(func() {
		k.logger.Warn(msg, fields...)
	})
}

// Error logs msg at error level, sampled the same way as Warn.
func (k *Keyed) Error(key, msg string, fields ...zap.Field) {
	k.sampler(key).Do(func() {
		k.logger.Error(msg, fields...)
	})
}

func (k *Keyed) sampler(key string) *rate.Sometimes {
	if s, ok := k.samplers.Load(key); ok {
		return s.(*rate.Sometimes)
	}
	s, _ := k.samplers.LoadOrStore(key, &rate.Sometimes{Interval: k.interval})
	return s.(*rate.Sometimes)
}
