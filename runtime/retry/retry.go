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

// Package retry runs setup steps (e.g., establishing a connection) with
// exponential backoff. Calls themselves are never retried.
//
// Example: connect, trying at most five times.
//
//	err := retry.Do(ctx, retry.Options{MaxAttempts: 5}, func() error {
//	    nc, err = nats.Connect(url)
//	    return err
//	})
package retry

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Options configure a retry loop. Before the ith attempt (i >= 1), the loop
// sleeps for MinDelay * Multiplier^i, minus up to 40% of jitter.
type Options struct {
	MaxAttempts int           // if <= 0, retry until the context is done
	Multiplier  float64       // if < 1, defaults to 1.3
	MinDelay    time.Duration // if <= 0, defaults to 10ms
}

func (o Options) withDefaults() Options {
	if o.Multiplier < 1 {
		o.Multiplier = 1.3
	}
	if o.MinDelay <= 0 {
		o.MinDelay = 10 * time.Millisecond
	}
	return o
}

var (
	rngMu sync.Mutex
	rng   *rand.Rand
)

// Do calls fn until it succeeds, MaxAttempts attempts have failed, or ctx is
// done. It returns the error of the last attempt, or ctx.Err() if ctx was
// done before fn was ever called.
func Do(ctx context.Context, opts Options, fn func() error) error {
	opts = opts.withDefaults()
	var err error
	for attempt := 0; opts.MaxAttempts <= 0 || attempt < opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			randomized(ctx, backoffDelay(attempt, opts))
		}
		if ctx.Err() != nil {
			if err == nil {
				err = ctx.Err()
			}
			return err
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}

func backoffDelay(i int, opts Options) time.Duration {
	mult := math.Pow(opts.Multiplier, float64(i))
	return time.Duration(float64(opts.MinDelay) * mult)
}

// randomized sleeps for a random duration close to d, or until context is
// done, whichever occurs first.
func randomized(ctx context.Context, d time.Duration) {
	const jitter = 0.4
	mult := 1 - jitter*randomFloat() // Subtract up to 40%
	sleep(ctx, time.Duration(float64(d)*mult))
}

// sleep sleeps for the specified duration d, or until context is done,
// whichever occurs first.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func randomFloat() float64 {
	// Do not use the default rng since we do not want different processes
	// to pick the same deterministic random sequence.
	rngMu.Lock()
	defer rngMu.Unlock()
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return rng.Float64()
}
