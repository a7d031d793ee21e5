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
	"context"
	"strings"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// traceparentHeader is the W3C trace context header. Foreign traces are
// always bridged through it, whatever propagator a node is configured with.
const traceparentHeader = "traceparent"

// ForeignTrace identifies a span in a tracing system that uses 64-bit trace
// and span ids (e.g., Moleculer or Jaeger in 64-bit mode). Ids are hex
// strings and may contain dashes.
type ForeignTrace struct {
	TraceID  string // id of the whole foreign trace
	ParentID string // id of the calling span, as known by the caller
}

// ForeignTraceParent returns a W3C traceparent value that continues the
// provided foreign trace. Both ids are stripped of dashes and normalized to
// 16 hex characters (truncated, or left-padded with zeros). The 64-bit trace
// id is then widened to 128 bits by left-padding it with 16 zeros. The
// resulting context is marked as sampled.
func ForeignTraceParent(f ForeignTrace) string {
	const version = "00"
	const flags = "01" // sampled
	traceID := strings.Repeat("0", 16) + normalizeID(f.TraceID)
	parentID := normalizeID(f.ParentID)
	return version + "-" + traceID + "-" + parentID + "-" + flags
}

func normalizeID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 16 {
		id = id[:16]
	}
	return strings.Repeat("0", 16-len(id)) + strings.ToLower(id)
}

// Extract returns a copy of ctx holding the trace context (if any) carried
// in carrier. If the carrier holds no recognizable trace context, ctx is
// returned unchanged.
func Extract(ctx context.Context, prop propagation.TextMapPropagator, carrier propagation.TextMapCarrier) context.Context {
	return prop.Extract(ctx, carrier)
}

// Inject writes the trace context (if any) contained in ctx into carrier.
func Inject(ctx context.Context, prop propagation.TextMapPropagator, carrier propagation.TextMapCarrier) {
	prop.Inject(ctx, carrier)
}

// callingContext returns the context that parents the client span of an
// outbound call. In order of preference it uses the span of the call chain,
// the foreign trace, and finally whatever span ctx already carries.
func callingContext(ctx context.Context, chain Chain, foreign *ForeignTrace) context.Context {
	if chain.span.IsValid() {
		return trace.ContextWithSpanContext(ctx, chain.span)
	}
	if foreign != nil {
		carrier := propagation.MapCarrier{traceparentHeader: ForeignTraceParent(*foreign)}
		return propagation.TraceContext{}.Extract(ctx, carrier)
	}
	return ctx
}
