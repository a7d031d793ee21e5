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

import "github.com/kmicro-go/kmicro/internal/net/call"

// CallError is returned by a call when the remote handler failed, or when
// the remote node rejected the call. Here's an illustrative example:
//
//	_, err := node.Call(ctx, "orders.create", payload, kmicro.CallOptions{})
//	var cerr *kmicro.CallError
//	if errors.As(err, &cerr) {
//	    // The handler of orders.create returned an error.
//	}
//
// Transport errors (e.g., nats.ErrNoResponders, nats.ErrTimeout,
// context.DeadlineExceeded) are returned unwrapped instead.
type CallError = call.CallError

// ErrMaxDepth is returned when a call chain grows MaxDepth hops deep, which
// usually means that services call each other in a loop. A call rejected by
// the remote node for that reason returns a *CallError that also matches
// errors.Is(err, ErrMaxDepth).
var ErrMaxDepth = call.ErrMaxDepth

// MaxDepth is the maximum length of a call chain.
const MaxDepth = call.MaxDepth

// DepthHeader is the header carrying the depth of a call chain.
const DepthHeader = call.DepthHeader
