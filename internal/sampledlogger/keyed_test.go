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

package sampledlogger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestKeyedDropsRepeats(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewKeyed(time.Hour, zap.New(core))

	for i := 0; i < 10; i++ {
		logger.Warn("*net.OpError", "request failed", zap.Int("i", i))
	}

	entries := logs.TakeAll()
	require.Len(t, entries, 1)
	assert.Equal(t, "request failed", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, int64(0), entries[0].ContextMap()["i"])
}

func TestKeyedKeysAreIndependent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewKeyed(time.Hour, zap.New(core))

	logger.Warn("a", "first")
	logger.Warn("b", "second")
	logger.Error("c", "third")
	logger.Warn("a", "dropped")

	var messages []string
	for _, e := range logs.TakeAll() {
		messages = append(messages, e.Message)
	}
	assert.Equal(t, []string{"first", "second", "third"}, messages)
}

func TestKeyedNilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewKeyed(time.Second, nil).Warn("k", "msg")
	})
}
