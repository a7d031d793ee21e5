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

package kmicro

import (
	"log/slog"
	"time"

	"github.com/kmicro-go/kmicro/internal/net/call"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Options configure a Node.
type Options struct {
	// Description of the service, published through the NATS micro API.
	Description string

	// Metadata published through the NATS micro API, in addition to the
	// "instance" key that holds the id of the node and the "protocol" key
	// that holds the wire protocol version.
	Metadata map[string]string

	// Logger. If nil, the node logs to stderr.
	Logger *slog.Logger

	// TracerProvider used to trace calls. If nil, the node creates one that
	// exports spans as configured by Exporter, and shuts it down on Stop.
	TracerProvider trace.TracerProvider

	// Exporter of the tracer provider created by the node: "otlp" (the
	// default), "stdout", "log", or "none".
	Exporter string

	// OTLPEndpoint and OTLPInsecure configure the "otlp" exporter. By
	// default the standard OTEL_EXPORTER_OTLP_* environment variables apply.
	OTLPEndpoint string
	OTLPInsecure bool

	// Propagator used to read and write trace headers. Defaults to W3C
	// trace context plus baggage.
	Propagator propagation.TextMapPropagator

	// Registerer with which the node registers its metrics. If nil, the
	// metrics are not registered.
	Registerer prometheus.Registerer

	// Timeout of calls that do not specify one. Defaults to 5s.
	Timeout time.Duration

	// ConnectAttempts is the number of times the node tries to connect to
	// NATS before giving up. Defaults to 1.
	ConnectAttempts int

	// NATSOptions are passed to nats.Connect. A nats.ClosedHandler among
	// them is called after the node's own.
	NATSOptions []nats.Option
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = call.DefaultTimeout
	}
	if o.ConnectAttempts <= 0 {
		o.ConnectAttempts = 1
	}
	if o.Propagator == nil {
		o.Propagator = call.DefaultPropagator()
	}
	return o
}

// CallOptions are the options of a single call.
//
//	Timeout  - timeout of the call; the node's default if zero
//	Header   - headers sent with the call, and inherited by every call made
//	           while handling it; they override inherited headers
//	Foreign  - a foreign trace continued by the call, if the caller is not
//	           already part of a trace
type CallOptions = call.CallOptions

// Header is a set of headers inherited along a call chain. Keys are
// case-sensitive.
type Header = call.Header

// ForeignTrace identifies a span of a tracing system that uses 64-bit ids,
// like Moleculer. See CallOptions.Foreign.
type ForeignTrace = call.ForeignTrace
