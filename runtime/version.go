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

package runtime

import "fmt"

const (
	// The version of the kmicro wire protocol in semantic version format
	// (Major.Minor.Patch): the kmc-depth header, the trace headers, and the
	// error headers exchanged by nodes.
	//
	// Every node publishes the version in the "protocol" metadata entry of
	// its service, so that nodes speaking different protocols can be told
	// apart with "nats micro info".
	Major = 0
	Minor = 1
	Patch = 0
)

// ProtocolVersion returns the wire protocol version, e.g. "v0.1.0".
func ProtocolVersion() string {
	return fmt.Sprintf("v%d.%d.%d", Major, Minor, Patch)
}
