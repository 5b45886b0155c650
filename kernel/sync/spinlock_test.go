package sync

import (
	"testing"
	"time"
)

func TestSpinlock(t *testing.T) {
	origYield := yieldFn
	defer func() {
		yieldFn = origYield
	}()

	var (
		yieldCalls int
		sl         Spinlock
	)

	yieldFn = func() {
		yieldCalls++
		if yieldCalls == 10 {
			sl.Release()
		}
	}

	sl.Acquire()

	if sl.TryToAcquire() {
		// Lock is already held; a second attempt must fail without
		// blocking.
		t.Error("expected TryToAcquire to return false when lock is held")
	}

	sl.Acquire()
	if yieldCalls != 10 {
		t.Errorf("expected Acquire to yield 10 times while contended; got %d", yieldCalls)
	}

	sl.Release()
	if !sl.TryToAcquire() {
		t.Error("expected TryToAcquire to return true when lock is free")
	}
}

func TestGuardedMutexExcludesConcurrentHolders(t *testing.T) {
	var (
		m     GuardedMutex
		value int
		done  = make(chan struct{})
	)

	m.Acquire()

	go func() {
		m.Acquire()
		value = 2
		m.Release()
		close(done)
	}()

	value = 1
	m.Release()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for second holder to acquire the mutex")
	}

	if value != 2 {
		t.Fatalf("expected second holder to observe the released mutex; value %d", value)
	}
}
