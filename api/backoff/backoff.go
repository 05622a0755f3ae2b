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

import "time"

// NoSuggestedBackoff is passed to Policy.Backoff when the failed attempt did
// not come with a server-provided delay hint.
const NoSuggestedBackoff time.Duration = 0

// Policy is an algorithm for determining how long to wait before the next
// attempt of some action.
//
// A Policy holds no per-call state: callers track the previous delay and pass
// it back in. This lets a single instance be shared by every concurrent call.
// Implementations that do need state may return a new Policy from
// NextAttempt.
type Policy interface {
	// Backoff returns the delay before the next attempt given the delay used
	// before the previous one (zero for the first retry) and a suggested
	// minimum. The result is bounded by the policy's configured range and is
	// no less than suggested unless suggested exceeds that range.
	Backoff(previous, suggested time.Duration) time.Duration

	// NextAttempt returns the policy to use for the attempt after this one.
	NextAttempt() Policy
}
