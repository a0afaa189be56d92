// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeNowAndSince(t *testing.T) {
	c := Fake(epoch)
	if !c.Now().Equal(epoch) {
		t.Fatalf("Now = %v, want %v", c.Now(), epoch)
	}

	c.Advance(90 * time.Second)
	if got := c.Since(epoch); got != 90*time.Second {
		t.Errorf("Since = %v, want 90s", got)
	}
}

func TestFakeAfterFiresInOrder(t *testing.T) {
	c := Fake(epoch)

	early := c.After(1 * time.Second)
	late := c.After(5 * time.Second)

	c.Advance(2 * time.Second)
	select {
	case <-early:
	default:
		t.Fatal("1s waiter did not fire after advancing 2s")
	}
	select {
	case <-late:
		t.Fatal("5s waiter fired after advancing only 2s")
	default:
	}

	c.Advance(3 * time.Second)
	select {
	case <-late:
	default:
		t.Fatal("5s waiter did not fire after advancing 5s total")
	}
}

func TestFakeAfterNonPositive(t *testing.T) {
	c := Fake(epoch)
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeSleepWakesOnAdvance(t *testing.T) {
	c := Fake(epoch)

	done := make(chan struct{})
	go func() {
		c.Sleep(3 * time.Second)
		close(done)
	}()

	c.WaitForTimers(1)
	c.Advance(3 * time.Second)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep did not return after Advance")
	}
}
