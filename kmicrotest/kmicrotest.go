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

// Package kmicrotest provides a way to test kmicro services.
//
// Use [NewEnv] to start a NATS server for the duration of a test, and
// [Init] or [InitCodec] to create nodes connected to it. For example:
//
//	func TestGreeter(t *testing.T) {
//	    ctx := context.Background()
//	    env := kmicrotest.NewEnv(t)
//	    node := kmicrotest.Init(ctx, env, "greeter")
//	    node.AddEndpoint("hello", hello)
//	    got, err := node.Call(ctx, "greeter.hello", []byte("World"), kmicro.CallOptions{})
//	    ...
//	}
//
// Nodes are stopped when the test ends. All the spans created by the nodes
// of an Env are recorded and can be inspected with [Env.Spans].
package kmicrotest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kmicro-go/kmicro"
	"github.com/kmicro-go/kmicro/internal/traceio"
	"github.com/kmicro-go/kmicro/runtime/logging"
	"github.com/nats-io/nats-server/v2/server"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// Env is a test environment: a NATS server, and a tracer provider shared by
// all the nodes created in the environment.
type Env struct {
	t        testing.TB
	url      string
	tp       *sdktrace.TracerProvider
	recorder *tracetest.SpanRecorder
}

// NewEnv returns an environment backed by an embedded NATS server. The
// server is shut down when the test ends.
func NewEnv(t testing.TB) *Env {
	t.Helper()
	return NewEnvAt(t, NATSServer(t))
}

// NewEnvAt returns an environment backed by the NATS server at url.
func NewEnvAt(t testing.TB, url string) *Env {
	tp, recorder := traceio.TestProvider()
	t.Cleanup(func() { tp.Shutdown(context.Background()) })
	return &Env{t: t, url: url, tp: tp, recorder: recorder}
}

// URL returns the URL of the environment's NATS server.
func (e *Env) URL() string { return e.url }

// Options returns the options of the nodes created by Init and InitCodec.
func (e *Env) Options() kmicro.Options {
	return kmicro.Options{
		Logger:         logging.NewTestSlogger(e.t, testing.Verbose()),
		TracerProvider: e.tp,
	}
}

// Spans returns the spans ended so far by the nodes of the environment.
func (e *Env) Spans() []sdktrace.ReadOnlySpan {
	return e.recorder.Ended()
}

// Span returns the ended span with the provided name. Server spans end
// after the response is sent, so Span waits up to five seconds for the span
// to end before failing the test.
func (e *Env) Span(name string) sdktrace.ReadOnlySpan {
	e.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		for _, span := range e.recorder.Ended() {
			if span.Name() == name {
				return span
			}
		}
		if time.Now().After(deadline) {
			e.t.Fatalf("span %q not found", name)
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Init returns a node of the provided service, connected to the
// environment's NATS server. If service is empty, a unique name is picked.
// The node is stopped when the test ends.
func Init(ctx context.Context, env *Env, service string) *kmicro.Node[[]byte] {
	env.t.Helper()
	return InitCodec(ctx, env, kmicro.Raw, service)
}

// InitCodec is like Init, but the node uses the provided codec.
func InitCodec[T any](ctx context.Context, env *Env, codec kmicro.Codec[T], service string) *kmicro.Node[T] {
	t := env.t
	t.Helper()
	if service == "" {
		service = ServiceName()
	}
	node, err := kmicro.InitCodec(ctx, codec, env.url, service, "0.0.1", env.Options())
	if err != nil {
		t.Fatalf("init %s: %v", service, err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := node.Stop(ctx); err != nil {
			t.Errorf("stop %s: %v", service, err)
		}
	})
	return node
}

// ServiceName returns a unique service name.
func ServiceName() string {
	return "svc-" + uuid.New().String()[:8]
}

// NATSServer starts an embedded NATS server listening on a random local
// port, and returns its client URL. The server is shut down when the test
// ends.
func NATSServer(t testing.TB) string {
	t.Helper()
	s, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   server.RANDOM_PORT,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("create NATS server: %v", err)
	}
	s.Start()
	if !s.ReadyForConnections(10 * time.Second) {
		s.Shutdown()
		t.Fatal("NATS server not ready for connections")
	}
	t.Cleanup(func() {
		s.Shutdown()
		s.WaitForShutdown()
	})
	return s.ClientURL()
}
