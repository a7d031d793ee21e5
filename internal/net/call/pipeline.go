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
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/kmicro-go/kmicro/runtime/logging"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// Outcomes reported to metrics.
const (
	outcomeOK             = "ok"
	outcomeHandlerError   = "handler_error"
	outcomeRemoteError    = "remote_error"
	outcomeTransportError = "transport_error"
	outcomeMaxDepth       = "max_depth"
	outcomeBadRequest     = "bad_request"
	outcomeStopping       = "stopping"
)

// Handler is a function that handles a call. It receives the Chain of the
// current hop and the payload of the call. A non-nil error is sent back to
// the caller as an error response.
type Handler func(ctx context.Context, chain Chain, payload []byte) ([]byte, error)

// Server handles the calls delivered to the endpoints of a service.
type Server struct {
	service string
	opts    Options

	mu       sync.Mutex
	stopping bool           // set by Wait; no handler starts afterwards
	running  sync.WaitGroup // in-progress handlers; Add only under mu
}

// NewServer returns a Server for the endpoints of the provided service.
// opts.Logger is expected to be annotated with the service name already;
// the default logger is.
func NewServer(service string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.StderrLogger(logging.Options{Service: service})
	}
	return &Server{service: service, opts: opts.withDefaults()}
}

// Endpoint returns a micro.Handler that handles every request delivered to
// endpoint with h, each one in its own goroutine. Handlers run with a
// context derived from ctx. Once Wait has been called, requests are
// rejected with code 503 instead.
func (s *Server) Endpoint(ctx context.Context, endpoint string, h Handler) micro.Handler {
	return micro.HandlerFunc(func(req micro.Request) {
		s.mu.Lock()
		if s.stopping {
			s.mu.Unlock()
			s.reject(endpoint, req)
			return
		}
		s.running.Add(1)
		s.mu.Unlock()
		go func() {
			defer s.running.Done()
			s.Handle(ctx, endpoint, h, req)
		}()
	})
}

// reject answers a request that arrived after Wait was called.
func (s *Server) reject(endpoint string, req micro.Request) {
	start := time.Now()
	logger := s.opts.Logger.With("action", endpoint)
	logger.Debug("rejecting call", "err", errStopping)
	respondError(logger, req, codeUnavailable, errStopping.Error())
	s.opts.Metrics.Handled(endpoint, outcomeStopping, time.Since(start))
}

// Wait stops the handlers returned by Endpoint from starting new work, and
// waits for the ones already running to finish, or for ctx to be done.
func (s *Server) Wait(ctx context.Context) error {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handle handles req with h and sends exactly one response back.
func (s *Server) Handle(ctx context.Context, endpoint string, h Handler, req micro.Request) {
	start := time.Now()
	header := nats.Header(req.Headers())
	logger := s.opts.Logger.With("action", endpoint)

	// Reject looping call chains before doing any work.
	depth, err := parseDepth(header)
	if err != nil {
		logger.Error("rejecting call", "err", err)
		respondError(logger, req, codeBadRequest, err.Error())
		s.opts.Metrics.Handled(endpoint, outcomeBadRequest, time.Since(start))
		return
	}
	if depth >= MaxDepth {
		err := maxDepthError(depth)
		logger.Error("rejecting call", "err", err)
		respondError(logger, req, codeLoopDetected, err.Error())
		s.opts.Metrics.Handled(endpoint, outcomeMaxDepth, time.Since(start))
		return
	}

	// Extract trace context and create a new child span to trace the call
	// on the server.
	ctx = Extract(ctx, s.opts.Propagator, natsCarrier(header))
	ctx, span := s.opts.Tracer.Start(ctx, "handle:"+s.service+"."+endpoint,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			semconv.RPCSystemKey.String("nats"),
			semconv.RPCServiceKey.String(s.service),
			semconv.RPCMethodKey.String(endpoint),
		))
	defer span.End()

	sc := span.SpanContext()
	if sc.IsValid() {
		logger = logger.With("traceId", sc.TraceID().String(), "spanId", sc.SpanID().String())
	}
	chain := Chain{
		depth:   depth,
		service: s.service,
		header:  headerOf(header),
		span:    sc,
	}

	result, err := invoke(ctx, h, chain, req.Data())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("handler failed", "err", err)
		respondError(logger, req, codeHandlerError, err.Error())
		s.opts.Metrics.Handled(endpoint, outcomeHandlerError, time.Since(start))
		return
	}
	if err := req.Respond(result); err != nil {
		logger.Error("respond", "err", err)
	}
	span.SetStatus(codes.Ok, "")
	s.opts.Metrics.Handled(endpoint, outcomeOK, time.Since(start))
}

// respondError sends an error response to req.
func respondError(logger *slog.Logger, req micro.Request, code, description string) {
	if description == "" {
		description = "unknown error"
	}
	if err := req.Error(code, headerSafe(description), nil); err != nil {
		logger.Error("respond error", "err", err)
	}
}

// invoke calls h, turning a panic into an error.
func invoke(ctx context.Context, h Handler, chain Chain, payload []byte) (result []byte, err error) {
	defer func() {
		if x := recover(); x != nil {
			result, err = nil, fmt.Errorf("handler panic: %v", x)
		}
	}()
	return h(ctx, chain, payload)
}

// parseDepth returns the call chain depth stored in header. A missing header
// means depth 0.
func parseDepth(header nats.Header) (int, error) {
	v := header.Get(DepthHeader)
	if v == "" {
		return 0, nil
	}
	depth, err := strconv.Atoi(v)
	if err != nil || depth < 0 {
		return 0, fmt.Errorf("invalid %s header %q", DepthHeader, v)
	}
	return depth, nil
}
