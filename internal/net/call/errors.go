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
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
)

// Error codes sent in the Nats-Service-Error-Code response header.
const (
	codeBadRequest   = "400" // malformed protocol headers
	codeHandlerError = "500" // the handler returned an error or panicked
	codeLoopDetected = "508" // the call chain reached MaxDepth
	codeUnavailable  = "503" // the node is stopping
)

// ErrMaxDepth is the error returned when a call chain reaches MaxDepth. It
// signals a recursive call graph (e.g., A calls B calls A ...). Check for it
// via errors.Is(err, call.ErrMaxDepth).
var ErrMaxDepth = errors.New("max call depth reached")

// errStopping is sent to callers whose request reached a stopping node.
var errStopping = errors.New("service stopping")

func maxDepthError(depth int) error {
	return fmt.Errorf("%w: %d", ErrMaxDepth, depth)
}

// CallError is the error returned by a call when the remote handler failed.
// It is distinct from the transport errors (e.g., nats.ErrTimeout,
// nats.ErrNoResponders) that are returned when no response was received.
type CallError struct {
	Message string // error description
	Target  string // "service.action" that produced the error
	Payload []byte // payload sent to Target
	Code    string // error code sent by the remote side
}

// Error implements the error interface.
func (e *CallError) Error() string {
	return e.Message
}

// Unwrap returns ErrMaxDepth if the remote side rejected the call because
// the call chain was too deep.
func (e *CallError) Unwrap() error {
	if e.Code == codeLoopDetected {
		return ErrMaxDepth
	}
	return nil
}

// remoteError returns the CallError signaled by the headers of resp, or nil
// if resp is a regular response.
func remoteError(resp *nats.Msg, target string, payload []byte) *CallError {
	if resp.Header == nil {
		return nil
	}
	code := resp.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}
	return &CallError{
		Message: "received error: " + resp.Header.Get(micro.ErrorHeader),
		Target:  target,
		Payload: payload,
		Code:    code,
	}
}

// headerSafe flattens s onto one line so that it can be sent as a header
// value.
func headerSafe(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
