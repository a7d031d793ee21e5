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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nats-io/nats.go"
)

func TestHeaderMerge(t *testing.T) {
	inherited := Header{"a": "1", "b": "2"}
	explicit := Header{"b": "override", "c": "3"}
	got := inherited.Merge(explicit)
	want := Header{"a": "1", "b": "override", "c": "3"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Merge (-want +got):\n%s", diff)
	}

	// Neither input is modified.
	if diff := cmp.Diff(Header{"a": "1", "b": "2"}, inherited); diff != "" {
		t.Errorf("inherited modified (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Header{"b": "override", "c": "3"}, explicit); diff != "" {
		t.Errorf("explicit modified (-want +got):\n%s", diff)
	}
}

func TestHeaderMergeNil(t *testing.T) {
	var h Header
	got := h.Merge(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("got %v, want empty header", got)
	}
}

func TestHeaderKeysSorted(t *testing.T) {
	h := Header{"c": "", "a": "", "B": ""}
	if diff := cmp.Diff([]string{"B", "a", "c"}, h.Keys()); diff != "" {
		t.Fatalf("Keys (-want +got):\n%s", diff)
	}
}

func TestWriteHeader(t *testing.T) {
	nh := nats.Header{}
	h := Header{
		"X-AUTH":    "abc",
		"empty":     "",
		DepthHeader: "7",
		"x-auth":    "lower",
	}
	writeHeader(nh, h, map[string]bool{DepthHeader: true})
	want := nats.Header{"X-AUTH": {"abc"}, "x-auth": {"lower"}}
	if diff := cmp.Diff(want, nh); diff != "" {
		t.Fatalf("writeHeader (-want +got):\n%s", diff)
	}
}

func TestHeaderOf(t *testing.T) {
	nh := nats.Header{"a": {"1", "2"}, "b": {"3"}, "c": nil}
	if diff := cmp.Diff(Header{"a": "1", "b": "3"}, headerOf(nh)); diff != "" {
		t.Fatalf("headerOf (-want +got):\n%s", diff)
	}
}

func TestChainHeadersAreCopies(t *testing.T) {
	h := Header{"X-AUTH": "abc"}
	chain := NewChain("svc", h)
	h["X-AUTH"] = "changed"
	if got := chain.Header("X-AUTH"); got != "abc" {
		t.Fatalf("chain sees caller mutation: %q", got)
	}
	chain.Headers()["X-AUTH"] = "changed"
	if got := chain.Header("X-AUTH"); got != "abc" {
		t.Fatalf("chain sees mutation of Headers(): %q", got)
	}
	if chain.Depth() != 0 || chain.Service() != "svc" || chain.SpanContext().IsValid() {
		t.Fatalf("unexpected origin chain %+v", chain)
	}
}
