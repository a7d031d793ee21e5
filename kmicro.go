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

// Package kmicro provides remote procedure calls between services connected
// to a NATS server, with distributed tracing built in.
//
// A service is hosted by one or more nodes. A node exposes endpoints, and
// calls the endpoints of other services by their "<service>.<endpoint>"
// address:
//
//	node, err := kmicro.Init(ctx, "nats://localhost:4222", "greeter", "1.0.0", kmicro.Options{})
//	if err != nil {
//	    ...
//	}
//	defer node.Stop(ctx)
//
//	node.AddEndpoint("hello", func(ctx context.Context, rc *kmicro.RequestContext[[]byte], name []byte) ([]byte, error) {
//	    return append([]byte("Hello, "), name...), nil
//	})
//	greeting, err := node.Call(ctx, "greeter.hello", []byte("World"), kmicro.CallOptions{})
//
// Calls made while handling a call form a call chain. Every call of a chain
// is traced as a child of the call that caused it, carries the headers of
// the call that caused it, and counts towards the maximum depth of a chain
// (see MaxDepth).
package kmicro

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kmicro-go/kmicro/internal/metrics"
	"github.com/kmicro-go/kmicro/internal/net/call"
	"github.com/kmicro-go/kmicro/internal/traceio"
	rt "github.com/kmicro-go/kmicro/runtime"
	"github.com/kmicro-go/kmicro/runtime/logging"
	"github.com/kmicro-go/kmicro/runtime/retry"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// tracerShutdownGrace bounds the shutdown of an owned tracer provider when
// the context passed to Stop is already done.
const tracerShutdownGrace = 5 * time.Second

// Handler handles the calls made to an endpoint.
type Handler[T any] func(ctx context.Context, rc *RequestContext[T], payload T) (T, error)

// Node is a member of a service. It hosts endpoints and makes calls.
type Node[T any] struct {
	name     string
	version  string
	instance string
	codec    Codec[T]
	timeout  time.Duration
	logger   *slog.Logger

	conn       *nats.Conn
	closed     chan struct{} // closed when conn is closed
	closeOnce  sync.Once
	svc        micro.Service
	group      micro.Group
	server     *call.Server
	dispatcher *call.Dispatcher
	metrics    *metrics.Metrics
	ownedTP    *sdktrace.TracerProvider // nil if provided by the user

	// Handlers run with ctx, which is cancelled by Stop.
	ctx    context.Context
	cancel context.CancelFunc

	stopOnce sync.Once
	stopErr  error
}

// Init returns a node of the provided service, connected to the NATS server
// at natsURI. Payloads are passed to handlers and callers as raw bytes.
func Init(ctx context.Context, natsURI, name, version string, opts Options) (*Node[[]byte], error) {
	return InitCodec(ctx, Raw, natsURI, name, version, opts)
}

// InitCodec is like Init, but payloads are converted with the provided
// codec.
func InitCodec[T any](ctx context.Context, codec Codec[T], natsURI, name, version string, opts Options) (*Node[T], error) {
	opts = opts.withDefaults()
	n := &Node[T]{
		name:     name,
		version:  version,
		instance: uuid.New().String(),
		codec:    codec,
		timeout:  opts.Timeout,
		closed:   make(chan struct{}),
	}
	if opts.Logger == nil {
		n.logger = logging.StderrLogger(logging.Options{Service: name, Node: n.instance})
	} else {
		n.logger = opts.Logger.With(logging.ServiceKey, name, logging.NodeKey, n.instance)
	}

	tp := opts.TracerProvider
	if tp == nil {
		owned, err := traceio.NewTracerProvider(ctx, traceio.Options{
			Service:      name,
			Version:      version,
			Instance:     n.instance,
			Exporter:     opts.Exporter,
			OTLPEndpoint: opts.OTLPEndpoint,
			OTLPInsecure: opts.OTLPInsecure,
			Logger:       n.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create tracer provider: %w", err)
		}
		n.ownedTP, tp = owned, owned
	}

	if err := n.connect(ctx, natsURI, opts); err != nil {
		n.shutdownTracer(ctx)
		return nil, err
	}

	md := map[string]string{"instance": n.instance, "protocol": rt.ProtocolVersion()}
	for k, v := range opts.Metadata {
		md[k] = v
	}
	svc, err := micro.AddService(n.conn, micro.Config{
		Name:        name,
		Version:     version,
		Description: opts.Description,
		Metadata:    md,
	})
	if err != nil {
		n.conn.Close()
		n.shutdownTracer(ctx)
		return nil, fmt.Errorf("add service %q: %w", name, err)
	}
	n.svc = svc
	n.group = svc.AddGroup(name)

	n.metrics = metrics.New(opts.Registerer, "service", name, "node", n.instance)
	callOpts := call.Options{
		Logger:     n.logger,
		Tracer:     tp.Tracer(name, trace.WithInstrumentationVersion(version)),
		Propagator: opts.Propagator,
		Metrics:    n.metrics,
	}
	n.server = call.NewServer(name, callOpts)
	n.dispatcher = call.NewDispatcher(n.conn, callOpts)
	n.ctx, n.cancel = context.WithCancel(context.Background())

	n.logger.Debug("Node started", "version", version, "nats", n.conn.ConnectedUrlRedacted())
	return n, nil
}

// connect connects to NATS, retrying up to opts.ConnectAttempts times.
func (n *Node[T]) connect(ctx context.Context, natsURI string, opts Options) error {
	// The node needs its own ClosedHandler; chain the user's, if any.
	var user nats.Options
	for _, opt := range opts.NATSOptions {
		if err := opt(&user); err != nil {
			return fmt.Errorf("NATS option: %w", err)
		}
	}
	natsOpts := append([]nats.Option{nats.Name(n.name)}, opts.NATSOptions...)
	natsOpts = append(natsOpts, nats.ClosedHandler(func(conn *nats.Conn) {
		n.closeOnce.Do(func() { close(n.closed) })
		if user.ClosedCB != nil {
			user.ClosedCB(conn)
		}
	}))
	attempt := 0
	err := retry.Do(ctx, retry.Options{MaxAttempts: opts.ConnectAttempts}, func() error {
		attempt++
		conn, err := nats.Connect(natsURI, natsOpts...)
		if err != nil {
			n.logger.Warn("Cannot connect to NATS", "attempt", attempt, "err", err)
			return err
		}
		n.conn = conn
		return nil
	})
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	return nil
}

// Name returns the name of the node's service.
func (n *Node[T]) Name() string { return n.name }

// Instance returns the unique id of the node.
func (n *Node[T]) Instance() string { return n.instance }

// Logger returns the node's logger. If module is not empty, the logger is
// annotated with it.
func (n *Node[T]) Logger(module string) *slog.Logger {
	if module == "" {
		return n.logger
	}
	return n.logger.With("module", module)
}

// AddEndpoint registers h as the handler of the endpoint with the provided
// name. The endpoint is reachable at "<service>.<name>". Every call is
// handled in its own goroutine.
func (n *Node[T]) AddEndpoint(name string, h Handler[T]) error {
	handler := func(ctx context.Context, chain call.Chain, data []byte) ([]byte, error) {
		payload, err := n.codec.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		rc := &RequestContext[T]{
			node:   n,
			action: name,
			chain:  chain,
			logger: n.handlerLogger(name, chain.SpanContext()),
		}
		result, err := h(ctx, rc, payload)
		if err != nil {
			return nil, err
		}
		return n.codec.Encode(result)
	}
	if err := n.group.AddEndpoint(name, n.server.Endpoint(n.ctx, name, handler)); err != nil {
		return fmt.Errorf("add endpoint %s.%s: %w", n.name, name, err)
	}
	return nil
}

func (n *Node[T]) handlerLogger(action string, sc trace.SpanContext) *slog.Logger {
	logger := n.logger.With("action", action)
	if sc.IsValid() {
		logger = logger.With("traceId", sc.TraceID().String(), "spanId", sc.SpanID().String())
	}
	return logger
}

// Call calls the endpoint at target ("<service>.<endpoint>"), starting a
// new call chain.
//
// Call returns a *CallError if the remote handler failed, an error wrapping
// ErrMaxDepth if the call chain is too deep, and the transport error (e.g.,
// nats.ErrNoResponders) if no response was received.
func (n *Node[T]) Call(ctx context.Context, target string, payload T, opts CallOptions) (T, error) {
	return n.call(ctx, call.NewChain(n.name, nil), target, payload, opts)
}

func (n *Node[T]) call(ctx context.Context, chain call.Chain, target string, payload T, opts CallOptions) (T, error) {
	var zero T
	data, err := n.codec.Encode(payload)
	if err != nil {
		return zero, fmt.Errorf("encode payload for %s: %w", target, err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = n.timeout
	}
	resp, err := n.dispatcher.Call(ctx, chain, target, data, opts)
	if err != nil {
		return zero, err
	}
	result, err := n.codec.Decode(resp)
	if err != nil {
		return zero, fmt.Errorf("decode response from %s: %w", target, err)
	}
	return result, nil
}

// Stop stops the node: it unregisters the service, cancels and waits for
// the running handlers, drains the NATS connection, and shuts down the
// tracer provider created by the node. Every step is attempted even if a
// previous one failed or ctx expired; the returned error joins the errors of
// all steps. Requests that arrive while the node stops are answered with
// code 503. Stop is idempotent.
func (n *Node[T]) Stop(ctx context.Context) error {
	n.stopOnce.Do(func() { n.stopErr = n.stop(ctx) })
	return n.stopErr
}

func (n *Node[T]) stop(ctx context.Context) error {
	var errs []error
	if err := n.svc.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop service: %w", err))
	}
	n.cancel()
	if err := n.server.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("wait for handlers: %w", err))
	}
	if err := n.conn.Drain(); err != nil {
		if !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, fmt.Errorf("drain connection: %w", err))
		}
		n.conn.Close()
	}
	select {
	case <-n.closed:
	case <-ctx.Done():
		n.conn.Close()
		errs = append(errs, fmt.Errorf("drain connection: %w", ctx.Err()))
	}
	// The tracer provider is flushed even if the previous steps used up ctx.
	tctx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), tracerShutdownGrace)
		defer cancel()
	}
	if err := n.shutdownTracer(tctx); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		n.logger.Debug("Node stopped")
	}
	return errors.Join(errs...)
}

func (n *Node[T]) shutdownTracer(ctx context.Context) error {
	if n.ownedTP == nil {
		return nil
	}
	if err := n.ownedTP.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown tracer provider: %w", err)
	}
	return nil
}
