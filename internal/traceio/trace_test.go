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

package traceio

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

func TestUnknownExporter(t *testing.T) {
	if _, err := NewTracerProvider(context.Background(), Options{Exporter: "carrier-pigeon"}); err == nil {
		t.Fatal("unexpected success")
	}
}

func TestNoneExporter(t *testing.T) {
	ctx := context.Background()
	tp, err := NewTracerProvider(ctx, Options{Service: "svc", Exporter: ExporterNone})
	if err != nil {
		t.Fatal(err)
	}
	defer tp.Shutdown(ctx)

	// Spans must carry valid contexts so they can be propagated.
	_, span := tp.Tracer("test").Start(ctx, "op")
	defer span.End()
	if !span.SpanContext().IsValid() {
		t.Fatal("span context is not valid")
	}
}

func TestStdoutExporter(t *testing.T) {
	ctx := context.Background()
	var b bytes.Buffer
	tp, err := NewTracerProvider(ctx, Options{Service: "svc", Exporter: ExporterStdout, Writer: &b})
	if err != nil {
		t.Fatal(err)
	}
	_, span := tp.Tracer("test").Start(ctx, "op")
	span.End()
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), `"Name": "op"`) {
		t.Fatalf("span not exported:\n%s", b.String())
	}
}

func TestLogExporter(t *testing.T) {
	// Test plan: export a parent and a failed child span through the log
	// exporter and check the resulting JSON log entries.
	ctx := context.Background()
	var b bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&b, nil))
	tp, err := NewTracerProvider(ctx, Options{Service: "svc", Exporter: ExporterLog, Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	tracer := tp.Tracer("test")
	ctx, parent := tracer.Start(ctx, "parent")
	_, child := tracer.Start(ctx, "child", trace.WithSpanKind(trace.SpanKindClient))
	child.SetStatus(codes.Error, "boom")
	child.End()
	parent.End()
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}

	entries := map[string]map[string]any{}
	for _, line := range strings.Split(strings.TrimSpace(b.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		entries[entry["name"].(string)] = entry
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2:\n%s", len(entries), b.String())
	}
	got := entries["child"]
	want := map[string]any{
		"level":    "WARN",
		"kind":     "client",
		"traceId":  parent.SpanContext().TraceID().String(),
		"parentId": parent.SpanContext().SpanID().String(),
		"error":    "boom",
	}
	for k, v := range want {
		if diff := cmp.Diff(v, got[k]); diff != "" {
			t.Errorf("child[%q] (-want +got):\n%s", k, diff)
		}
	}
	if _, ok := entries["parent"]["parentId"]; ok {
		t.Error("root span has a parent")
	}
}

func TestResource(t *testing.T) {
	res := Resource(Options{Service: "svc", Version: "v1", Instance: "1234"})
	got := map[string]string{}
	for _, kv := range res.Attributes() {
		got[string(kv.Key)] = kv.Value.Emit()
	}
	for k, v := range map[string]string{
		string(semconv.ServiceNameKey):       "svc",
		string(semconv.ServiceVersionKey):    "v1",
		string(semconv.ServiceInstanceIDKey): "1234",
		string(semconv.MessagingSystemKey):   "nats",
	} {
		if got[k] != v {
			t.Errorf("%s: got %q, want %q", k, got[k], v)
		}
	}
}

func TestTestProvider(t *testing.T) {
	tp, recorder := TestProvider()
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.End()
	ended := recorder.Ended()
	if len(ended) != 1 || ended[0].Name() != "op" {
		t.Fatalf("got %v, want one span named op", ended)
	}
}
