package threadx

import (
	"time"

	"github.com/IntergatedCircuits/threadx-go/kernel"
)

// Mutex is an exclusive lock with priority inheritance. The holder may lock
// it recursively (each Lock needs a matching Unlock), and every locking
// operation has a timed variant, so the same type serves the plain, timed,
// and recursive contracts.
type Mutex struct {
	_ [0]func()
	m *kernel.Mutex
}

const mutexName = "mutex"

// NewMutex constructs a mutex. Priority inheritance is always enabled.
func NewMutex() *Mutex {
	m, st := kern().MutexCreate(mutexName, true)
	if !st.OK() {
		panic("threadx: mutex create failed: " + st.String())
	}
	return &Mutex{m: m}
}

// Lock locks the mutex, blocking until it is lockable.
func (m *Mutex) Lock() {
	if st := m.m.Get(Forever); !st.OK() {
		panic("threadx: mutex lock failed: " + st.String())
	}
}

// TryLock attempts to lock the mutex without blocking.
func (m *Mutex) TryLock() bool {
	return m.m.Get(0).OK()
}

// TryLockFor locks the mutex, waiting up to rel for it to become unlocked.
func (m *Mutex) TryLockFor(rel time.Duration) bool {
	return m.m.Get(ToTicks(rel)).OK()
}

// TryLockUntil locks the mutex, waiting until the given deadline.
func (m *Mutex) TryLockUntil(abs Time) bool {
	return m.m.Get(until(abs)).OK()
}

// Unlock releases one level of ownership. Calling it from a thread that
// does not hold the mutex is a contract violation and is asserted.
func (m *Mutex) Unlock() {
	if st := m.m.Put(); !st.OK() {
		panic("threadx: mutex unlock failed: " + st.String())
	}
}

// LockingThread returns the thread currently holding the mutex, or nil if
// it is unlocked. Never blocks.
func (m *Mutex) LockingThread() *Thread {
	o := m.m.Owner()
	if o == nil {
		return nil
	}
	return wrapThread(o)
}

// TimedMutex is an alias: Mutex already implements the timed contract.
type TimedMutex = Mutex

// RecursiveMutex is an alias: Mutex is recursive.
type RecursiveMutex = Mutex

// RecursiveTimedMutex is an alias: RecursiveMutex already implements the
// timed contract.
type RecursiveTimedMutex = RecursiveMutex
