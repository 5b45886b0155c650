package sync

// GuardedMutex is a mutex acquired at a raised execution level so that the
// holder cannot be rescheduled while inside the protected region. The
// simulated environment has no execution levels; contention handling is the
// same spin-and-yield strategy used by Spinlock.
type GuardedMutex struct {
	lock Spinlock
}

// Acquire blocks until the mutex can be acquired.
func (m *GuardedMutex) Acquire() { m.lock.Acquire() }

// Release relinquishes a held mutex.
func (m *GuardedMutex) Release() { m.lock.Release() }

// PushLock is a lightweight lock protecting rarely contended state such as
// the physical memory descriptor block.
type PushLock struct {
	lock Spinlock
}

// AcquireExclusive blocks until the lock can be acquired for writing.
func (l *PushLock) AcquireExclusive() { l.lock.Acquire() }

// ReleaseExclusive relinquishes a held lock.
func (l *PushLock) ReleaseExclusive() { l.lock.Release() }

// Mutant is a kernel mutex protecting long-running operations such as the
// system loader address range registry.
type Mutant struct {
	lock Spinlock
}

// Wait blocks until the mutant is signaled and acquires it.
func (m *Mutant) Wait() { m.lock.Acquire() }

// Release signals the mutant.
func (m *Mutant) Release() { m.lock.Release() }
