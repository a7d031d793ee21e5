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
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
)

func TestRemoteError(t *testing.T) {
	ok := &nats.Msg{Data: []byte("fine")}
	if err := remoteError(ok, "svc.ep", nil); err != nil {
		t.Fatalf("regular response reported as %v", err)
	}

	h := nats.Header{}
	h.Set(micro.ErrorCodeHeader, "500")
	h.Set(micro.ErrorHeader, "boom")
	err := remoteError(&nats.Msg{Header: h}, "svc.ep", []byte("req"))
	if err == nil {
		t.Fatal("error response not detected")
	}
	if err.Error() != "received error: boom" || err.Target != "svc.ep" || string(err.Payload) != "req" {
		t.Fatalf("unexpected error %+v", err)
	}
}

func TestCallErrorUnwrap(t *testing.T) {
	for _, test := range []struct {
		code string
		want bool
	}{
		{codeLoopDetected, true},
		{codeHandlerError, false},
		{codeBadRequest, false},
	} {
		var err error = &CallError{Message: "x", Code: test.code}
		if got := errors.Is(err, ErrMaxDepth); got != test.want {
			t.Errorf("code %s: errors.Is(err, ErrMaxDepth) = %t, want %t", test.code, got, test.want)
		}
	}
}

func TestMaxDepthError(t *testing.T) {
	err := maxDepthError(20)
	if !errors.Is(err, ErrMaxDepth) {
		t.Fatalf("%v does not wrap ErrMaxDepth", err)
	}
	if got, want := err.Error(), "max call depth reached: 20"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestHeaderSafe(t *testing.T) {
	if got, want := headerSafe("a\r\nb\nc\rd"), "a b c d"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
