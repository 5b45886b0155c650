// Package sync provides the synchronization primitives used by the memory
// manager.
package sync

import (
	"runtime"
	"sync/atomic"
)

// yieldFn hands the processor to another runnable thread while a lock is
// contended. It is overridable by tests.
var yieldFn = runtime.Gosched

// Spinlock implements a lock where each task trying to acquire it busy-waits,
// yielding between attempts, until the lock becomes available.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
func (l *Spinlock) Acquire() {
	for !atomic.CompareAndSwapUint32(&l.state, 0, 1) {
		yieldFn()
	}
}

// TryToAcquire attempts to acquire the lock returning true on success or
// false if the lock is currently held by another task.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.CompareAndSwapUint32(&l.state, 0, 1)
}

// Release relinquishes a held lock allowing other tasks to acquire it.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
