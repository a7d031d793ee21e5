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
	"testing"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestForeignTraceParent(t *testing.T) {
	for _, test := range []struct {
		name    string
		foreign ForeignTrace
		want    string
	}{
		{
			name:    "16 hex",
			foreign: ForeignTrace{TraceID: "0123456789abcdef", ParentID: "fedcba9876543210"},
			want:    "00-00000000000000000123456789abcdef-fedcba9876543210-01",
		},
		{
			name:    "uuid",
			foreign: ForeignTrace{TraceID: "6f1c6e9e-1b0f-4d3a-9c4e-7a2b1c3d4e5f", ParentID: "0b7f4a2e-91c3-4b6d-8e2a-5c9d1f3e7a6b"},
			want:    "00-00000000000000006f1c6e9e1b0f4d3a-0b7f4a2e91c34b6d-01",
		},
		{
			name:    "short",
			foreign: ForeignTrace{TraceID: "abc", ParentID: "1"},
			want:    "00-00000000000000000000000000000abc-0000000000000001-01",
		},
		{
			name:    "upper case",
			foreign: ForeignTrace{TraceID: "ABCDEF", ParentID: "ABCDEF"},
			want:    "00-00000000000000000000000000abcdef-0000000000abcdef-01",
		},
		{
			name:    "empty",
			foreign: ForeignTrace{},
			want:    "00-00000000000000000000000000000000-0000000000000000-01",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			if got := ForeignTraceParent(test.foreign); got != test.want {
				t.Fatalf("got %q, want %q", got, test.want)
			}
		})
	}
}

func TestInvalidForeignTrace(t *testing.T) {
	// Ids that are not hex, or are all zeros, start a fresh trace.
	for _, foreign := range []ForeignTrace{
		{},
		{TraceID: "not-hex!", ParentID: "zz"},
		{TraceID: "0", ParentID: "1234"},
	} {
		ctx := callingContext(context.Background(), Chain{}, &foreign)
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			t.Errorf("%+v: got valid span context %v", foreign, sc)
		}
	}
}

func TestExtractInject(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID(uuid.New()),
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	prop := DefaultPropagator()

	for _, test := range []struct {
		name    string
		carrier propagation.TextMapCarrier
	}{
		{"Header", Header{}},
		{"nats", natsCarrier(nats.Header{})},
	} {
		t.Run(test.name, func(t *testing.T) {
			Inject(ctx, prop, test.carrier)
			if test.carrier.Get(traceparentHeader) == "" {
				t.Fatalf("no %s header injected", traceparentHeader)
			}
			got := trace.SpanContextFromContext(Extract(context.Background(), prop, test.carrier))
			if !got.Equal(sc.WithRemote(true)) {
				t.Fatalf("got %v, want %v", got, sc)
			}
		})
	}
}

func TestExtractEmpty(t *testing.T) {
	ctx := Extract(context.Background(), DefaultPropagator(), Header{"X-AUTH": "abc"})
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		t.Fatalf("got valid span context %v from an empty carrier", sc)
	}
}
