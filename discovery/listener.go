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

// Package discovery turns service announcements and static configuration
// into the URI pools that balancers choose from.
package discovery

import (
	"math"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Properties that an announced service may carry.
const (
	PropertyHTTP   = "http"
	PropertyHTTPS  = "https"
	PropertyWeight = "weight"
)

// maxWeight caps the weight a single announcement may claim.
const maxWeight = 1000

// ServiceDescriptor is one announced instance of a service.
type ServiceDescriptor struct {
	ID         uuid.UUID
	NodeID     string
	Type       string
	Pool       string
	Location   string
	State      string
	Properties map[string]string
}

// Listener receives the full set of instances whenever it changes.
type Listener interface {
	UpdateServiceDescriptors(descriptors []ServiceDescriptor)
}

// URIUpdater accepts a new pool. *balancer.Balancer implements it.
type URIUpdater interface {
	UpdateURIs(uris []*url.URL)
}

// ListenerOption customizes a balancer listener.
type ListenerOption func(*balancerListener)

// WithLogger sets the logger for descriptors that had to be skipped.
func WithLogger(logger *zap.Logger) ListenerOption {
	return func(l *balancerListener) {
		l.logger = logger
	}
}

// NewBalancerListener returns a Listener that feeds a balancer.
//
// Each descriptor contributes its https URI, or its http URI when it has no
// usable https one, repeated according to its weight property. A missing,
// negative or unreadable weight counts as 1; a weight of 0 removes the
// instance from the pool.
func NewBalancerListener(u URIUpdater, opts ...ListenerOption) Listener {
	l := &balancerListener{updater: u, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type balancerListener struct {
	updater URIUpdater
	logger  *zap.Logger
}

func (l *balancerListener) UpdateServiceDescriptors(descriptors []ServiceDescriptor) {
	var uris []*url.URL
	for _, d := range descriptors {
		u := descriptorURI(d.Properties)
		if u == nil {
			l.logger.Debug("skipping service descriptor without a usable URI",
				zap.Stringer("id", d.ID),
				zap.String("type", d.Type))
			continue
		}
		for i := weight(d.Properties); i > 0; i-- {
			uris = append(uris, u)
		}
	}
	l.updater.UpdateURIs(uris)
}

func descriptorURI(props map[string]string) *url.URL {
	for _, key := range []string{PropertyHTTPS, PropertyHTTP} {
		s, ok := props[key]
		if !ok {
			continue
		}
		if u, err := url.Parse(s); err == nil {
			return u
		}
	}
	return nil
}

func weight(props map[string]string) int {
	s, ok := props[PropertyWeight]
	if !ok {
		return 1
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 1
	}
	w := int(math.Trunc(f))
	switch {
	case w < 0:
		return 1
	case w > maxWeight:
		return maxWeight
	default:
		return w
	}
}
