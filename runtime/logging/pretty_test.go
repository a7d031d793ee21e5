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

package logging

import (
	"strings"
	"testing"
	"time"
)

func TestFormat(t *testing.T) {
	pp := NewPrettyPrinter(false)
	now := time.Date(2023, 10, 18, 10, 7, 31, 733831000, time.UTC)
	got := pp.Format(&Entry{
		Time:    now,
		Level:   "INFO",
		Service: "service1",
		Node:    "076cb5f1-aaaa",
		File:    "/src/kmicro/kmicro.go",
		Line:    164,
		Msg:     "Node started",
		Attrs:   []string{"b", "2", "a", "1"},
	})
	want := `I1018 10:07:31.733831 service1 076cb5f1 kmicro.go:164] Node started a="1" b="2"`
	if got != want {
		t.Fatalf("Format:\ngot  %q\nwant %q", got, want)
	}
}

func TestFormatColors(t *testing.T) {
	pp := NewPrettyPrinter(true)
	got := pp.Format(&Entry{Time: time.Now(), Level: "ERROR", Service: "s", Line: -1, Msg: "boom"})
	if !strings.Contains(got, string(errorColor)) {
		t.Fatalf("error entry %q is not colored", got)
	}
	if !strings.HasSuffix(got, string(Reset)) {
		t.Fatalf("entry %q does not reset colors", got)
	}
}

func TestShorten(t *testing.T) {
	for _, c := range []struct{ in, want string }{
		{"", ""},
		{"abc", "abc"},
		{"12345678", "12345678"},
		{"123456789", "12345678"},
	} {
		if got := Shorten(c.in); got != c.want {
			t.Errorf("Shorten(%q): got %q, want %q", c.in, got, c.want)
		}
	}
}
