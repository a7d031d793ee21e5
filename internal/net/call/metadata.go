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

import (
	"sort"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/exp/maps"
)

// Header is a flat set of string headers that travels with a call. Keys are
// case-sensitive, matching NATS header semantics.
type Header map[string]string

var _ propagation.TextMapCarrier = Header{}

// Get implements the propagation.TextMapCarrier interface.
func (h Header) Get(key string) string {
	return h[key]
}

// Set implements the propagation.TextMapCarrier interface.
func (h Header) Set(key, value string) {
	h[key] = value
}

// Keys implements the propagation.TextMapCarrier interface. Keys are
// returned in sorted order.
func (h Header) Keys() []string {
	keys := maps.Keys(h)
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of h. The copy of a nil Header is an empty Header.
func (h Header) Clone() Header {
	c := make(Header, len(h))
	for k, v := range h {
		c[k] = v
	}
	return c
}

// Merge returns a new Header holding the entries of h overlaid with the
// entries of explicit. On a key collision the value in explicit wins.
// Neither h nor explicit is modified.
func (h Header) Merge(explicit Header) Header {
	merged := h.Clone()
	for k, v := range explicit {
		merged[k] = v
	}
	return merged
}

// headerOf snapshots a NATS header into a Header, keeping the first value of
// every key.
func headerOf(nh nats.Header) Header {
	h := make(Header, len(nh))
	for k, vs := range nh {
		if len(vs) > 0 {
			h[k] = vs[0]
		}
	}
	return h
}

// natsCarrier adapts a nats.Header to the propagation.TextMapCarrier
// interface.
type natsCarrier nats.Header

var _ propagation.TextMapCarrier = natsCarrier{}

// Get implements the propagation.TextMapCarrier interface.
func (c natsCarrier) Get(key string) string {
	return nats.Header(c).Get(key)
}

// Set implements the propagation.TextMapCarrier interface.
func (c natsCarrier) Set(key, value string) {
	nats.Header(c).Set(key, value)
}

// Keys implements the propagation.TextMapCarrier interface.
func (c natsCarrier) Keys() []string {
	keys := maps.Keys(c)
	sort.Strings(keys)
	return keys
}

// writeHeader copies the non-empty entries of h into nh, skipping every key
// in reserved.
func writeHeader(nh nats.Header, h Header, reserved map[string]bool) {
	for _, k := range h.Keys() {
		v := h[k]
		if v == "" || reserved[k] {
			continue
		}
		nh.Set(k, v)
	}
}
