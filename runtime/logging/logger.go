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

// Package logging contains the loggers used by kmicro nodes and tools.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"testing"
)

// Attribute keys that PrettyHandler lifts out of the attribute list.
const (
	ServiceKey = "service"
	NodeKey    = "node"
)

// Options configures the loggers returned by StderrLogger.
type Options struct {
	Service string       // service name
	Node    string       // node id
	Level   slog.Leveler // minimum level; defaults to slog.LevelInfo
	JSON    bool         // if true, log JSON instead of pretty text
	Attrs   []string     // additional name, value pairs
}

// StderrLogger returns a logger that logs to stderr.
func StderrLogger(opts Options) *slog.Logger {
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: opts.Level, AddSource: true})
	} else {
		h = NewPrettyHandler(os.Stderr, ColorsEnabled(os.Stderr), opts.Level)
	}
	logger := slog.New(h)
	if opts.Service != "" {
		logger = logger.With(ServiceKey, opts.Service)
	}
	if opts.Node != "" {
		logger = logger.With(NodeKey, opts.Node)
	}
	for i := 0; i+1 < len(opts.Attrs); i += 2 {
		logger = logger.With(opts.Attrs[i], opts.Attrs[i+1])
	}
	return logger
}

// ParseLevel parses a level name ("debug", "info", "warn", "error").
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// NewTestSlogger returns a logger that logs to t. The logger stops logging
// when the test ends, so it is safe to use from goroutines that outlive the
// test. If verbose is true, debug entries are logged too.
func NewTestSlogger(t testing.TB, verbose bool) *slog.Logger {
	w := &testWriter{t: t}
	t.Cleanup(w.finish)
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(NewPrettyHandler(w, false, level))
}

type testWriter struct {
	t    testing.TB
	mu   sync.Mutex
	done bool
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.done {
		w.t.Log(strings.TrimSuffix(string(p), "\n"))
	}
	return len(p), nil
}

func (w *testWriter) finish() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.done = true
}

// PrettyHandler is a slog.Handler that pretty prints entries.
type PrettyHandler struct {
	out   *syncWriter
	pp    *PrettyPrinter
	level slog.Leveler
	group string      // prefix of attribute names, e.g. "a.b."
	attrs []slog.Attr // attributes added with WithAttrs, already prefixed
}

var _ slog.Handler = &PrettyHandler{}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrettyHandler returns a handler that writes pretty printed entries at
// or above level to w. If level is nil, slog.LevelInfo is used.
func NewPrettyHandler(w io.Writer, color bool, level slog.Leveler) *PrettyHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &PrettyHandler{
		out:   &syncWriter{w: w},
		pp:    NewPrettyPrinter(color),
		level: level,
	}
}

// Enabled implements the slog.Handler interface.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements the slog.Handler interface.
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	e := &Entry{
		Time:  r.Time,
		Level: r.Level.String(),
		Msg:   r.Message,
		Line:  -1,
	}
	if r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := frames.Next()
		e.File, e.Line = f.File, f.Line
	}
	for _, a := range h.attrs {
		addAttr(e, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(e, h.group, a)
		return true
	})

	line := h.pp.Format(e)
	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	_, err := fmt.Fprintln(h.out.w, line)
	return err
}

// WithAttrs implements the slog.Handler interface.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.group + a.Key
		c.attrs = append(c.attrs, a)
	}
	return &c
}

// WithGroup implements the slog.Handler interface.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.group = h.group + name + "."
	return &c
}

// addAttr adds a to e, flattening groups into dotted names.
func addAttr(e *Entry, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range v.Group() {
			addAttr(e, p, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	switch key := prefix + a.Key; key {
	case ServiceKey:
		e.Service = v.String()
	case NodeKey:
		e.Node = v.String()
	default:
		e.Attrs = append(e.Attrs, key, v.String())
	}
}
