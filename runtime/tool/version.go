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
	"context"
	"flag"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	rt "github.com/kmicro-go/kmicro/runtime"
)

// VersionCmd returns a command to show a tool's version.
func VersionCmd(tool string, w io.Writer) *Command {
	return &Command{
		Name:        "version",
		Flags:       flag.NewFlagSet("version", flag.ContinueOnError),
		Description: fmt.Sprintf("Show %q version", tool),
		Help:        fmt.Sprintf("Usage:\n  %s version", tool),
		Fn: func(context.Context, []string) error {
			fmt.Fprintln(w, Version(tool))
			return nil
		},
	}
}

// Version returns a one-line description of the version of the running
// binary.
func Version(tool string) string {
	module, commit := "(devel)", "?"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" {
			module = info.Main.Version
		}
		for _, setting := range info.Settings {
			// vcs.revision stores the commit at which the tool was built.
			// See [1] for more information.
			//
			// [1]: https://pkg.go.dev/runtime/debug#BuildSetting
			if setting.Key == "vcs.revision" {
				commit = setting.Value
				break
			}
		}
	}
	return fmt.Sprintf("%s %s protocol=%s commit=%s target=%s/%s", tool, module, rt.ProtocolVersion(), commit, runtime.GOOS, runtime.GOARCH)
}
