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

package logging

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestTestLogger(t *testing.T) {
	// Test plan: Launch a goroutine that continues to write to a TestLogger
	// after the test ends. The logger should stop logging when the test ends.
	t.Run("sub", func(t *testing.T) {
		logger := NewTestSlogger(t, testing.Verbose())
		go func() {
			for {
				logger.Debug("Ping")
				time.Sleep(200 * time.Microsecond)
			}
		}()
		// Give the logger a chance to log something.
		time.Sleep(1 * time.Millisecond)
	})
	// Allow the goroutine to keep running, even though the test has finished.
	time.Sleep(5 * time.Millisecond)
}

func TestPrettyHandlerAttributes(t *testing.T) {
	var b bytes.Buffer
	logger := slog.New(NewPrettyHandler(&b, false, slog.LevelInfo))
	logger = logger.With(ServiceKey, "svc", NodeKey, "0123456789")
	logger.WithGroup("g").Info("hello", "foo", "bar", slog.Group("h", "x", 1))

	line := b.String()
	for _, want := range []string{
		"svc", "01234567", "] hello", `g.foo="bar"`, `g.h.x="1"`,
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q does not contain %q", line, want)
		}
	}
	if strings.Contains(line, "service=") || strings.Contains(line, "node=") {
		t.Errorf("line %q contains lifted attributes", line)
	}
}

func TestPrettyHandlerLevel(t *testing.T) {
	var b bytes.Buffer
	logger := slog.New(NewPrettyHandler(&b, false, slog.LevelWarn))
	logger.Info("dropped")
	logger.Error("kept")
	if got := strings.Count(b.String(), "\n"); got != 1 {
		t.Fatalf("got %d lines, want 1:\n%s", got, b.String())
	}
	if !strings.HasPrefix(b.String(), "E") {
		t.Fatalf("line %q does not start with the error level", b.String())
	}
}

func TestConcurrentLogging(t *testing.T) {
	// Test plan: start a number of goroutines that log with sequential
	// values. Confirm that no line is interleaved with another.
	var b bytes.Buffer
	logger := slog.New(NewPrettyHandler(&b, false, slog.LevelInfo))
	var wait sync.WaitGroup
	const parallelism = 5
	const n = 1000
	wait.Add(parallelism)
	for i := 0; i < parallelism; i++ {
		i := i
		go func() {
			defer wait.Done()
			for j := 0; j < n; j++ {
				logger.Info("msg", fmt.Sprintf("routine%d", i), j)
			}
		}()
	}
	wait.Wait()

	lines := strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")
	if got, want := len(lines), parallelism*n; got != want {
		t.Fatalf("got %d lines, want %d", got, want)
	}
	for _, line := range lines {
		if strings.Count(line, "routine") != 1 {
			t.Fatalf("malformed line %q", line)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for _, c := range []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	} {
		got, err := ParseLevel(c.in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", c.in, err)
		}
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Errorf("ParseLevel(%q) (-want +got):\n%s", c.in, diff)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal(`ParseLevel("loud"): unexpected success`)
	}
}
