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

// Kmicro calls and hosts kmicro services. Run "kmicro help" for more
// information.
package main

import (
	"context"
	"os"

	"github.com/kmicro-go/kmicro/runtime/tool"
)

const description = "Call and host kmicro services."

func main() {
	commands := map[string]*tool.Command{
		"call":    callCmd(),
		"echo":    echoCmd(),
		"version": tool.VersionCmd("kmicro", os.Stdout),
	}
	os.Exit(tool.Run(context.Background(), "kmicro", description, commands, os.Args[1:]))
}
