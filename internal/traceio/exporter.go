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
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/codes"
	sdk "go.opentelemetry.io/otel/sdk/trace"
)

// LogExporter is a span exporter that writes one log entry per span.
type LogExporter struct {
	mu     sync.Mutex
	logger *slog.Logger
	closed bool
}

var _ sdk.SpanExporter = &LogExporter{}

// NewLogExporter returns a LogExporter that logs to logger.
func NewLogExporter(logger *slog.Logger) *LogExporter {
	return &LogExporter{logger: logger}
}

// ExportSpans implements the sdk.SpanExporter interface.
func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdk.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	for _, span := range spans {
		level, attrs := spanAttrs(span)
		e.logger.LogAttrs(ctx, level, "span", attrs...)
	}
	return nil
}

// Shutdown implements the sdk.SpanExporter interface.
func (e *LogExporter) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func spanAttrs(span sdk.ReadOnlySpan) (slog.Level, []slog.Attr) {
	sc := span.SpanContext()
	attrs := []slog.Attr{
		slog.String("name", span.Name()),
		slog.String("kind", span.SpanKind().String()),
		slog.String("traceId", sc.TraceID().String()),
		slog.String("spanId", sc.SpanID().String()),
		slog.Duration("duration", span.EndTime().Sub(span.StartTime())),
	}
	if parent := span.Parent(); parent.IsValid() {
		attrs = append(attrs, slog.String("parentId", parent.SpanID().String()))
	}
	for _, kv := range span.Attributes() {
		attrs = append(attrs, slog.String(string(kv.Key), kv.Value.Emit()))
	}
	if status := span.Status(); status.Code == codes.Error {
		return slog.LevelWarn, append(attrs, slog.String("error", status.Description))
	}
	return slog.LevelInfo, attrs
}
