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
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	dimColor       = Color256(245) // dimmed text color (a light gray)
	errorColor     = Color256(9)   // error color (a light red)
	attrNameColor  = Color256(245) // attribute name color (a light gray)
	attrValueColor = Color256(245) // attribute value color (a light gray)
)

// Entry is a single log entry.
type Entry struct {
	Time    time.Time
	Level   string
	Service string   // service that produced the entry
	Node    string   // id of the node that produced the entry
	File    string   // source file, or "" if unknown
	Line    int      // source line, or -1 if unknown
	Msg     string   // message
	Attrs   []string // name, value pairs
}

// PrettyPrinter pretty prints log entries. You can safely use a PrettyPrinter
// from multiple goroutines.
type PrettyPrinter struct {
	colorize func(Code, string) string // colors the provided string

	mu             sync.Mutex      // guards the following fields
	b              strings.Builder // used to format entries
	prev           *Entry          // previously printed entry
	servicePadding int             // service padding
	sourcePadding  int             // file:line padding
}

// NewPrettyPrinter returns a new PrettyPrinter. If color is true, the pretty
// printer colorizes its output using ANSI escape codes.
func NewPrettyPrinter(color bool) *PrettyPrinter {
	pp := &PrettyPrinter{
		colorize:       func(_ Code, s string) string { return s },
		servicePadding: 7,
		sourcePadding:  10,
	}
	if color {
		pp.colorize = func(code Code, s string) string {
			return fmt.Sprintf("%s%s%s", code, s, Reset)
		}
	}
	return pp
}

// Format formats a log entry as a single line of human-readable text. Here are
// some examples of what pretty printed log entries look like:
//
//	I1018 10:07:31.733831 service1 076cb5f1 kmicro.go:164 ] Node started
//	I1018 10:07:31.759352 service1 076cb5f1 pipeline.go:92] Handled call action="hello"
//	E1018 10:07:31.759696 service2 9ae6d01b pipeline.go:137] handler failed action="gather" err="boom"
func (pp *PrettyPrinter) Format(e *Entry) string {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	pp.b.Reset()

	// Compute some diffs for dimming.
	sameService := pp.prev != nil && e.Service == pp.prev.Service
	sameNode := pp.prev != nil && e.Node == pp.prev.Node
	sameLevel := pp.prev != nil && e.Level == pp.prev.Level
	sameFile := pp.prev != nil && e.File == pp.prev.File
	sameLine := pp.prev != nil && e.Line == pp.prev.Line

	// Write the abbreviated level and time. If the level is "error", we color
	// the level and time. Otherwise, we don't.
	level := " "
	if len(e.Level) > 0 {
		level = strings.ToUpper(e.Level[:1])
	}
	levelColor := Reset
	if strings.ToLower(e.Level) == "error" {
		levelColor = errorColor
	}

	cur := e.Time
	if !sameService || !sameNode || !sameLevel || pp.prev == nil {
		pp.b.WriteString(pp.colorize(levelColor, level))
		pp.b.WriteString(pp.colorize(levelColor, cur.Format("0102 15:04:05.000000")))
	} else {
		pp.b.WriteString(pp.colorize(dimColor, level))
		prevTime := pp.prev.Time
		switch {
		case cur.Month() != prevTime.Month():
			pp.b.WriteString(pp.colorize(levelColor, cur.Format("0102 15:04:05.000000")))
		case cur.Day() != prevTime.Day():
			pp.b.WriteString(pp.colorize(dimColor, cur.Format("01")))
			pp.b.WriteString(pp.colorize(levelColor, cur.Format("02 15:04:05.000000")))
		case cur.Hour() != prevTime.Hour():
			pp.b.WriteString(pp.colorize(dimColor, cur.Format("0102")))
			pp.b.WriteString(pp.colorize(levelColor, cur.Format("15:04:05.000000")))
		case cur.Minute() != prevTime.Minute():
			pp.b.WriteString(pp.colorize(dimColor, cur.Format("0102 15:")))
			pp.b.WriteString(pp.colorize(levelColor, cur.Format("04:05.000000")))
		default:
			pp.b.WriteString(pp.colorize(dimColor, cur.Format("0102 15:04:")))
			pp.b.WriteString(pp.colorize(levelColor, cur.Format("05.000000")))
		}
	}
	pp.b.WriteByte(' ')

	// Write the service.
	s := e.Service
	if s == "" {
		s = "-"
	}
	if len(s) > pp.servicePadding {
		pp.servicePadding = len(s)
	}
	pp.b.WriteString(pp.colorize(ColorHash(s), fmt.Sprintf("%*s", -pp.servicePadding, s)))

	// Write the node.
	if len(e.Node) > 0 {
		pp.b.WriteByte(' ')
		if sameNode {
			pp.b.WriteString(pp.colorize(dimColor, Shorten(e.Node)))
		} else {
			pp.b.WriteString(pp.colorize(ColorHash(e.Node), Shorten(e.Node)))
		}
	}

	// Write the file and line, if present.
	pp.b.WriteByte(' ')
	if e.File != "" && e.Line != -1 {
		src := fmt.Sprintf("%s:%d", filepath.Base(e.File), e.Line)
		if len(src) > pp.sourcePadding {
			pp.sourcePadding = len(src)
		}
		if sameFile && sameLine {
			pp.b.WriteString(pp.colorize(dimColor, fmt.Sprintf("%*s", -pp.sourcePadding, src)))
		} else {
			fmt.Fprintf(&pp.b, "%*s", -pp.sourcePadding, src)
		}
	} else {
		fmt.Fprintf(&pp.b, "%*s", -pp.sourcePadding, "")
	}

	// Write the message.
	pp.b.WriteString("] ")
	pp.b.WriteString(pp.colorize(ColorHash(s), e.Msg))

	// Write the attributes, if present.
	if len(e.Attrs) > 0 {
		type attr struct{ name, value string }
		attrs := make([]attr, 0, len(e.Attrs)/2)
		for i := 0; i+1 < len(e.Attrs); i += 2 {
			attrs = append(attrs, attr{e.Attrs[i], e.Attrs[i+1]})
		}
		sort.SliceStable(attrs, func(i, j int) bool {
			return attrs[i].name < attrs[j].name
		})
		for _, attr := range attrs {
			pp.b.WriteString(" ")
			pp.b.WriteString(pp.colorize(attrNameColor, attr.name+"="))
			pp.b.WriteString(pp.colorize(attrValueColor, fmt.Sprintf("%q", attr.value)))
		}
	}

	prev := *e
	prev.Attrs = nil
	pp.prev = &prev
	return pp.b.String()
}

// Shorten returns a short prefix of the provided string.
func Shorten(s string) string {
	const n = 8
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
