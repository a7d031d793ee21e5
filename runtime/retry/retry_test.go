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

package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoEventuallySucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Options{MaxAttempts: 5, MinDelay: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("got %d calls, want 3", calls)
	}
}

func TestDoGivesUp(t *testing.T) {
	want := errors.New("unreachable")
	calls := 0
	err := Do(context.Background(), Options{MaxAttempts: 3, MinDelay: time.Millisecond}, func() error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("Do: got %v, want %v", err, want)
	}
	if calls != 3 {
		t.Fatalf("got %d calls, want 3", calls)
	}
}

func TestDoCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Do(ctx, Options{}, func() error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do: got %v, want %v", err, context.Canceled)
	}
	if calls != 0 {
		t.Fatalf("got %d calls, want 0", calls)
	}
}

func TestBackoffIncreases(t *testing.T) {
	opts := Options{}.withDefaults()
	prev := time.Duration(0)
	for i := 1; i < 10; i++ {
		d := backoffDelay(i, opts)
		if d <= prev {
			t.Fatalf("delay %d (%v) is not larger than delay %d (%v)", i, d, i-1, prev)
		}
		prev = d
	}
}

func TestSleepCancellation(t *testing.T) {
	const cancelDelay = time.Millisecond * 10
	const sleepDelay = time.Second
	ctx, cf := context.WithTimeout(context.Background(), cancelDelay)
	defer cf()
	start := time.Now()
	sleep(ctx, sleepDelay)
	elapsed := time.Since(start)
	if elapsed >= sleepDelay {
		t.Errorf("sleep not cancelled")
	}
}
