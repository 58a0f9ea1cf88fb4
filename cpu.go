package threadx

import "github.com/IntergatedCircuits/threadx-go/kernel"

// CriticalSection prevents thread and interrupt context switches while
// locked. It satisfies sync.Locker.
//
// It is strictly a short-lived guard around a handful of operations: it is
// not re-entrant (a second Lock without an Unlock is asserted), and holding
// it across any call that can block is a programming error.
type CriticalSection struct {
	_      [0]func()
	saved  kernel.IntState
	locked bool
}

// Lock masks interrupts and preemption, capturing the prior state.
func (cs *CriticalSection) Lock() {
	if cs.locked {
		panic("threadx: critical section locked recursively")
	}
	cs.saved = kern().Disable()
	cs.locked = true
}

// Unlock restores exactly the state captured by the matching Lock.
func (cs *CriticalSection) Unlock() {
	if !cs.locked {
		panic("threadx: critical section is not locked")
	}
	cs.locked = false
	kern().Restore(cs.saved)
}

// InISR reports whether the current execution context is an interrupt
// service routine. Safe in any context; before the kernel has started it
// is always false.
func InISR() bool {
	k := defaultKernel.Load()
	if k == nil {
		return false
	}
	return k.InISR()
}
