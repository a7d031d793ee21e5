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

package tool

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRun(t *testing.T) {
	var gotArgs []string
	var gotName string
	flags := flag.NewFlagSet("greet", flag.ContinueOnError)
	name := flags.String("name", "world", "Who to greet")
	commands := map[string]*Command{
		"greet": {
			Name:        "greet",
			Flags:       flags,
			Description: "Greet someone",
			Fn: func(_ context.Context, args []string) error {
				gotName, gotArgs = *name, args
				return nil
			},
		},
		"fail": {
			Name:        "fail",
			Description: "Always fail",
			Fn: func(context.Context, []string) error {
				return fmt.Errorf("failed")
			},
		},
	}
	ctx := context.Background()

	if code := Run(ctx, "tool", "A tool.", commands, []string{"greet", "-name", "alice", "a", "b"}); code != 0 {
		t.Fatalf("greet: exit code %d", code)
	}
	if gotName != "alice" {
		t.Errorf("name: got %q, want alice", gotName)
	}
	if diff := cmp.Diff([]string{"a", "b"}, gotArgs); diff != "" {
		t.Errorf("args (-want +got):\n%s", diff)
	}

	for _, test := range []struct {
		args []string
		want int
	}{
		{[]string{"fail"}, 1},
		{[]string{"unknown"}, 1},
		{[]string{"greet", "-bad"}, 1},
		{[]string{"greet", "-h"}, 0},
		{[]string{"help", "greet"}, 0},
		{[]string{"help", "unknown"}, 1},
	} {
		if got := Run(ctx, "tool", "A tool.", commands, test.args); got != test.want {
			t.Errorf("Run(%v): got exit code %d, want %d", test.args, got, test.want)
		}
	}
}

func TestMainHelp(t *testing.T) {
	commands := map[string]*Command{
		"b":      {Name: "b", Description: "Second"},
		"a":      {Name: "a", Description: "First"},
		"hidden": {Name: "hidden", Description: "Hidden", Hidden: true},
	}
	help := MainHelp("tool", "A tool.", commands)
	if !strings.HasPrefix(help, "A tool.\n") {
		t.Errorf("help does not start with the description:\n%s", help)
	}
	a, b := strings.Index(help, "  a "), strings.Index(help, "  b ")
	if a < 0 || b < 0 || a > b {
		t.Errorf("commands missing or unsorted:\n%s", help)
	}
	if strings.Contains(help, "hidden") {
		t.Errorf("hidden command listed:\n%s", help)
	}
}

func TestFlagsHelp(t *testing.T) {
	flags := flag.NewFlagSet("test", flag.ContinueOnError)
	flags.String("H", "", "Header")
	flags.String("nats", "nats://127.0.0.1:4222", "URL of the NATS server")
	want := "  -H\tHeader (default )\n  --nats\tURL of the NATS server (default nats://127.0.0.1:4222)"
	if got := FlagsHelp(flags); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestVersionCmd(t *testing.T) {
	var buf bytes.Buffer
	cmd := VersionCmd("kmicro", &buf)
	if err := cmd.Fn(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); !strings.HasPrefix(got, "kmicro ") || !strings.Contains(got, "protocol=v") {
		t.Errorf("unexpected version %q", got)
	}
}
