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

package discovery

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/multierr"
)

// ParseStaticURIs parses a comma-separated list of absolute URIs. A URI
// listed more than once appears more than once in the result, which gives
// it a larger share of traffic.
func ParseStaticURIs(s string) ([]*url.URL, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var (
		uris []*url.URL
		err  error
	)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		u, perr := url.Parse(part)
		if perr != nil {
			err = multierr.Append(err, perr)
			continue
		}
		if !u.IsAbs() || u.Host == "" {
			err = multierr.Append(err, fmt.Errorf("static URI %q must be absolute", part))
			continue
		}
		uris = append(uris, u)
	}
	if err != nil {
		return nil, err
	}
	return uris, nil
}
