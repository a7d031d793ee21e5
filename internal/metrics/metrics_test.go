// Copyright 2023 Google LLC
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

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "service", "svc")
	m.Call("a.b", "ok", time.Millisecond)
	m.Call("a.b", "ok", time.Millisecond)
	m.Call("a.b", "remote_error", time.Millisecond)
	m.Handled("b", "ok", time.Millisecond)

	for _, c := range []struct {
		name string
		got  prometheus.Counter
		want float64
	}{
		{"calls/ok", m.Calls("a.b", "ok"), 2},
		{"calls/remote_error", m.Calls("a.b", "remote_error"), 1},
		{"calls/other", m.Calls("x.y", "ok"), 0},
		{"handled/ok", m.HandledCalls("b", "ok"), 1},
	} {
		t.Run(c.name, func(t *testing.T) {
			if got := testutil.ToFloat64(c.got); got != c.want {
				t.Fatalf("got %v, want %v", got, c.want)
			}
		})
	}

	// Four metric families are registered.
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(families), 4; got != want {
		t.Fatalf("got %d metric families, want %d", got, want)
	}
}

func TestUnregistered(t *testing.T) {
	// Metrics that are not registered must still be usable.
	m := New(nil)
	m.Call("a.b", "ok", time.Second)
	if got := testutil.ToFloat64(m.Calls("a.b", "ok")); got != 1 {
		t.Fatalf("got %v, want 1", got)
	}
}
