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
	"log/slog"
	"time"

	"github.com/kmicro-go/kmicro/internal/metrics"
	"github.com/kmicro-go/kmicro/runtime/logging"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DepthHeader is the header that carries the depth of a call chain.
	DepthHeader = "kmc-depth"

	// MaxDepth is the depth at which a call chain is rejected.
	MaxDepth = 20

	// DefaultTimeout is the timeout of calls that do not specify one.
	DefaultTimeout = 5 * time.Second
)

// Options are the options shared by a Dispatcher and a Server.
type Options struct {
	// Logger. Defaults to a logger that logs to stderr.
	Logger *slog.Logger

	// Tracer. Defaults to a no-op tracer.
	Tracer trace.Tracer

	// Propagator used to read and write trace headers. Defaults to W3C
	// trace context plus baggage.
	Propagator propagation.TextMapPropagator

	// Metrics. Defaults to unregistered metrics.
	Metrics *metrics.Metrics
}

// CallOptions are call-specific options.
type CallOptions struct {
	// Timeout of the call. Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// Header holds headers sent with the call and inherited by the calls
	// the remote handler makes. On a key collision they take precedence
	// over the headers inherited from the call chain.
	Header Header

	// Foreign, if not nil, is the trace that the call continues. It is
	// used only when the call chain does not carry a trace already.
	Foreign *ForeignTrace
}

// withDefaults returns a copy of the Options with zero values replaced with
// default values.
func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logging.StderrLogger(logging.Options{})
	}
	if o.Tracer == nil {
		o.Tracer = trace.NewNoopTracerProvider().Tracer("")
	}
	if o.Propagator == nil {
		o.Propagator = DefaultPropagator()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New(nil)
	}
	return o
}

// DefaultPropagator returns the propagator used when none is configured.
func DefaultPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
}

// reservedHeaders returns the headers that calls never inherit because the
// dispatcher writes them itself.
func reservedHeaders(prop propagation.TextMapPropagator) map[string]bool {
	reserved := map[string]bool{DepthHeader: true}
	for _, f := range prop.Fields() {
		reserved[f] = true
	}
	return reserved
}
