// Copyright 2022 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package call

import "go.opentelemetry.io/otel/trace"

// Chain is the state shared by all the calls of one call chain, as seen by a
// single hop. A Chain is a value: every hop builds its own, so a Chain can be
// read from multiple goroutines without locking.
type Chain struct {
	depth   int               // number of hops from the chain origin
	service string            // service owning the current hop
	header  Header            // headers received by the current hop
	span    trace.SpanContext // span of the current hop, if any
}

// NewChain returns the Chain of a call chain originating at service. The
// provided header is inherited by every call made in the chain.
func NewChain(service string, header Header) Chain {
	return Chain{service: service, header: header.Clone()}
}

// Depth returns the number of hops between the chain origin and the current
// hop. The origin has depth 0.
func (c Chain) Depth() int { return c.depth }

// Service returns the name of the service that owns the current hop.
func (c Chain) Service() string { return c.service }

// SpanContext returns the span context of the current hop. It is invalid at
// the chain origin.
func (c Chain) SpanContext() trace.SpanContext { return c.span }

// Header returns the value of the inherited header with the provided key.
func (c Chain) Header(key string) string { return c.header[key] }

// Headers returns a copy of the inherited headers.
func (c Chain) Headers() Header { return c.header.Clone() }
