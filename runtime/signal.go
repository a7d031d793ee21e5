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

// Package runtime contains process level helpers shared by kmicro tools.
package runtime

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var (
	mu     sync.Mutex
	nextID int
	fns    = map[int]func(){}
	order  []int
	notify sync.Once
)

// OnExitSignal arranges to run fn() when SIGINT or SIGTERM is delivered,
// before the process exits. Cleanup functions run in the reverse order of
// registration. The returned function unregisters fn; call it when fn has
// already run for another reason (e.g., a node that stopped normally).
func OnExitSignal(fn func()) (unregister func()) {
	mu.Lock()
	defer mu.Unlock()
	id := nextID
	nextID++
	fns[id] = fn
	order = append(order, id)
	notify.Do(installHandler)
	return func() {
		mu.Lock()
		defer mu.Unlock()
		delete(fns, id)
	}
}

func installHandler() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		mu.Lock()
		defer mu.Unlock()
		for i := len(order) - 1; i >= 0; i-- {
			if fn, ok := fns[order[i]]; ok {
				fn()
			}
		}
		if num, ok := s.(syscall.Signal); ok {
			os.Exit(128 + int(num))
		}
		os.Exit(1)
	}()
}
