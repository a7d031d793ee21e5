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

// Package traceio builds the tracer providers used by kmicro nodes.
package traceio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Exporter names.
const (
	ExporterOTLP   = "otlp"   // OTLP over HTTP (protobuf)
	ExporterStdout = "stdout" // pretty printed JSON
	ExporterLog    = "log"    // one log entry per span
	ExporterNone   = "none"   // spans are created but not exported
)

// Options configure a tracer provider.
type Options struct {
	Service  string // service name
	Version  string // service version
	Instance string // id of the node

	// Exporter is one of ExporterOTLP, ExporterStdout, ExporterLog, or
	// ExporterNone. Defaults to ExporterOTLP.
	Exporter string

	// OTLPEndpoint is the host:port of the OTLP collector. If empty, the
	// OTEL_EXPORTER_OTLP_* environment variables (or their defaults) apply.
	OTLPEndpoint string

	// OTLPInsecure disables TLS when talking to the OTLP collector.
	OTLPInsecure bool

	// Logger used by ExporterLog. Defaults to slog.Default().
	Logger *slog.Logger

	// Writer used by ExporterStdout. Defaults to os.Stdout.
	Writer io.Writer
}

// NewTracerProvider returns a tracer provider that exports spans as
// configured by opts. The caller owns the provider and must shut it down.
func NewTracerProvider(ctx context.Context, opts Options) (*sdktrace.TracerProvider, error) {
	exporter, err := newExporter(ctx, opts)
	if err != nil {
		return nil, err
	}
	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(Resource(opts)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	}
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	return sdktrace.NewTracerProvider(tpOpts...), nil
}

func newExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	switch opts.Exporter {
	case "", ExporterOTLP:
		var httpOpts []otlptracehttp.Option
		if opts.OTLPEndpoint != "" {
			httpOpts = append(httpOpts, otlptracehttp.WithEndpoint(opts.OTLPEndpoint))
		}
		if opts.OTLPInsecure {
			httpOpts = append(httpOpts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, httpOpts...)
	case ExporterStdout:
		w := opts.Writer
		if w == nil {
			w = os.Stdout
		}
		return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	case ExporterLog:
		logger := opts.Logger
		if logger == nil {
			logger = slog.Default()
		}
		return NewLogExporter(logger), nil
	case ExporterNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", opts.Exporter)
	}
}

// Resource returns the resource attached to the spans of a node.
func Resource(opts Options) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(opts.Service),
		semconv.ServiceVersionKey.String(opts.Version),
		semconv.ServiceInstanceIDKey.String(opts.Instance),
		semconv.MessagingSystemKey.String("nats"),
		semconv.ProcessPIDKey.Int(os.Getpid()),
	)
}

// TestProvider returns a tracer provider suitable for tests, along with a
// recorder of the spans it ends.
func TestProvider() (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(recorder),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	return tp, recorder
}
