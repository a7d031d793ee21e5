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

// Package call implements an RPC mechanism on top of NATS request/reply.
package call

// # Overview
//
// A call is a NATS request sent to the subject "<service>.<action>". Besides
// the payload, a request carries a set of headers:
//	kmc-depth	-- The number of hops since the call chain started
//	traceparent	-- The trace context of the calling span (W3C format)
//	...		-- Application headers inherited along the chain
// A response is either a regular NATS reply, or a reply carrying the
// Nats-Service-Error-Code and Nats-Service-Error headers, which signal that
// the remote handler failed.
//
// # Server operation
//
// A Server handles the requests delivered to a registered endpoint. Every
// request is handled in its own goroutine: the depth header is checked, the
// trace context is extracted, a server span is started, and the handler is
// invoked with a Chain describing the current hop. The result (or error) of
// the handler is sent back as the response.
//
// # Client operation
//
// A Dispatcher sends one call on behalf of a Chain. It starts a client span,
// writes the inherited and explicit headers, increments the depth header,
// injects the trace context, and waits for the response. A response carrying
// an error signal is turned into a *CallError.

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// Requester sends a request and waits for its response. *nats.Conn
// implements Requester.
type Requester interface {
	RequestMsgWithContext(ctx context.Context, msg *nats.Msg) (*nats.Msg, error)
}

// Dispatcher sends calls.
type Dispatcher struct {
	conn     Requester
	opts     Options
	reserved map[string]bool
}

// NewDispatcher returns a Dispatcher that sends calls over conn.
func NewDispatcher(conn Requester, opts Options) *Dispatcher {
	opts = opts.withDefaults()
	return &Dispatcher{
		conn:     conn,
		opts:     opts,
		reserved: reservedHeaders(opts.Propagator),
	}
}

// Call sends payload to target on behalf of chain and returns the response.
//
// Call returns an error wrapping ErrMaxDepth without sending anything if
// chain is too deep, a *CallError if the remote handler failed, and the
// transport error unchanged if no response was received.
func (d *Dispatcher) Call(ctx context.Context, chain Chain, target string, payload []byte, opts CallOptions) ([]byte, error) {
	start := time.Now()
	if chain.depth >= MaxDepth {
		d.opts.Metrics.Call(target, outcomeMaxDepth, time.Since(start))
		return nil, maxDepthError(chain.depth)
	}

	service, action, _ := strings.Cut(target, ".")
	ctx, span := d.opts.Tracer.Start(callingContext(ctx, chain, opts.Foreign), "call:"+target,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.RPCSystemKey.String("nats"),
			semconv.RPCServiceKey.String(service),
			semconv.RPCMethodKey.String(action),
		))
	defer span.End()

	msg := nats.NewMsg(target)
	msg.Data = payload
	writeHeader(msg.Header, chain.header.Merge(opts.Header), d.reserved)
	msg.Header.Set(DepthHeader, strconv.Itoa(chain.depth+1))
	Inject(ctx, d.opts.Propagator, natsCarrier(msg.Header))

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := d.conn.RequestMsgWithContext(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.opts.Metrics.Call(target, outcomeTransportError, time.Since(start))
		return nil, err
	}
	if cerr := remoteError(resp, target, payload); cerr != nil {
		span.RecordError(cerr)
		span.SetStatus(codes.Error, cerr.Message)
		d.opts.Metrics.Call(target, outcomeRemoteError, time.Since(start))
		return nil, cerr
	}
	span.SetStatus(codes.Ok, "")
	d.opts.Metrics.Call(target, outcomeOK, time.Since(start))
	return resp.Data, nil
}
