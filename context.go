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

package kmicro

import (
	"context"
	"log/slog"

	"github.com/kmicro-go/kmicro/internal/net/call"
	"go.opentelemetry.io/otel/trace"
)

// RequestContext describes the call being handled. Calls made through it
// continue the call chain: they carry its trace, its depth, and its headers.
type RequestContext[T any] struct {
	node   *Node[T]
	action string
	chain  call.Chain
	logger *slog.Logger
}

// Call calls target on behalf of the call being handled.
func (rc *RequestContext[T]) Call(ctx context.Context, target string, payload T, opts CallOptions) (T, error) {
	return rc.node.call(ctx, rc.chain, target, payload, opts)
}

// Depth returns the number of hops between the origin of the call chain and
// the call being handled. A call made directly by Node.Call has depth 1.
func (rc *RequestContext[T]) Depth() int { return rc.chain.Depth() }

// Service returns the name of the service handling the call.
func (rc *RequestContext[T]) Service() string { return rc.chain.Service() }

// Action returns the name of the endpoint handling the call.
func (rc *RequestContext[T]) Action() string { return rc.action }

// Header returns the value of the header with the provided key, or "".
func (rc *RequestContext[T]) Header(key string) string { return rc.chain.Header(key) }

// Headers returns a copy of the headers received with the call.
func (rc *RequestContext[T]) Headers() Header { return rc.chain.Headers() }

// SpanContext returns the span context of the span tracing the call.
func (rc *RequestContext[T]) SpanContext() trace.SpanContext { return rc.chain.SpanContext() }

// Logger returns a logger annotated with the call's action and trace ids. If
// module is not empty, the logger is annotated with it too.
func (rc *RequestContext[T]) Logger(module string) *slog.Logger {
	if module == "" {
		return rc.logger
	}
	return rc.logger.With("module", module)
}
