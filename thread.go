// Package threadx is a synchronization-primitives layer over a preemptive,
// priority-based real-time kernel: thread lifecycle control with join,
// priority-inheriting mutexes, counting and binary semaphores, a monotonic
// tick clock, and interrupt-safe critical sections, all under a common
// timeout-aware blocking contract.
//
// The kernel underneath is the simulated one in the kernel package; the
// types here add the portable contracts (assertion of misuse, timeout
// conversion, join emulation) the raw kernel objects do not carry.
package threadx

import (
	"sync/atomic"
	"time"

	"github.com/IntergatedCircuits/threadx-go/kernel"
)

// Priority is a thread scheduling priority. Lower values are more urgent.
type Priority uint32

const (
	// HighestPriority is the most urgent level.
	HighestPriority Priority = 0
	// LowestPriority is the least urgent level.
	LowestPriority Priority = kernel.TopPriority
	// DefaultPriority is 1, to stay ahead of the kernel's idle level.
	DefaultPriority Priority = 1
)

// ID identifies a thread. The zero value is reserved as invalid.
type ID uint64

// State is an observed thread lifecycle state.
type State uint8

const (
	StateRunning State = iota
	StateReady
	StateCompleted
	StateTerminated
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateReady:
		return "ready"
	case StateCompleted:
		return "completed"
	case StateTerminated:
		return "terminated"
	case StateSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

const (
	// DefaultStackSize is the stack request used by NewThread.
	DefaultStackSize = kernel.MinStackSize

	defaultName = "anonym"
)

// Thread is a schedulable unit of execution. It is eligible to run before
// its constructor returns: a sufficiently urgent thread may have started
// executing by then.
//
// Each thread carries a dedicated one-shot exit signal, released through
// the kernel's exit notification, so joining does not consume the
// notification slot.
type Thread struct {
	_        [0]func()
	kt       *kernel.Thread
	exitCond *BinarySemaphore
	joined   atomic.Bool
}

// NewThread constructs a thread with the default stack size.
func NewThread(entry func(), prio Priority, name string) *Thread {
	return NewThreadStack(entry, DefaultStackSize, prio, name)
}

// NewThreadStack constructs a thread with an explicit stack size request.
// The entry function runs with prio as the thread's priority; name may be
// empty.
func NewThreadStack(entry func(), stackSize uint32, prio Priority, name string) *Thread {
	if entry == nil {
		panic("threadx: nil thread entry")
	}
	if name == "" {
		name = defaultName
	}
	t := &Thread{exitCond: NewBinarySemaphore(0)}
	kt, st := kern().ThreadCreate(name, entry, stackSize, uint32(prio), false)
	if !st.OK() {
		panic("threadx: thread create failed: " + st.String())
	}
	t.kt = kt
	kt.EnsureExt(func() any { return t })
	kt.SetNotify(func(_ *kernel.Thread, reason kernel.NotifyReason) {
		if reason == kernel.NotifyExit {
			t.exitCond.Release(1)
		}
	})
	if st := kt.Resume(); !st.OK() {
		panic("threadx: thread start failed: " + st.String())
	}
	return t
}

// wrapThread returns the Thread facade for a kernel thread, making a
// non-joinable view for threads not created through this package.
func wrapThread(kt *kernel.Thread) *Thread {
	w := kt.EnsureExt(func() any {
		t := &Thread{kt: kt}
		t.joined.Store(true)
		return t
	})
	return w.(*Thread)
}

// ID returns the thread's unique identifier.
func (t *Thread) ID() ID {
	return ID(t.kt.ID())
}

// Name returns the thread's label.
func (t *Thread) Name() string {
	return t.kt.Name()
}

// State returns the thread's current lifecycle state. A terminal state can
// still be queried until the thread is destroyed.
func (t *Thread) State() State {
	switch t.kt.State() {
	case kernel.StateReady:
		if kern().Current() == t.kt {
			return StateRunning
		}
		return StateReady
	case kernel.StateCompleted:
		return StateCompleted
	case kernel.StateTerminated:
		return StateTerminated
	default:
		return StateSuspended
	}
}

// Suspend suspends the thread's execution until Resume. Not reference
// counted; redundant or out-of-order use is the caller's responsibility.
func (t *Thread) Suspend() {
	if st := t.kt.Suspend(); !st.OK() {
		panic("threadx: thread suspend failed: " + st.String())
	}
}

// Resume resumes the suspended thread.
func (t *Thread) Resume() {
	if st := t.kt.Resume(); !st.OK() {
		panic("threadx: thread resume failed: " + st.String())
	}
}

// Priority returns the thread's assigned priority. Callable from thread or
// interrupt context.
func (t *Thread) Priority() Priority {
	return Priority(t.kt.Priority())
}

// SetPriority changes the thread's priority. Takes effect immediately and
// may preempt the caller; thread context only.
func (t *Thread) SetPriority(prio Priority) {
	if _, st := t.kt.SetPriority(uint32(prio)); !st.OK() {
		panic("threadx: priority change failed: " + st.String())
	}
}

// Joinable reports whether the thread can be waited on: it has not been
// joined yet and has not reached a terminal state. Callable from thread or
// interrupt context.
func (t *Thread) Joinable() bool {
	if t.exitCond == nil || t.joined.Load() {
		return false
	}
	return !t.kt.State().Terminal()
}

// Join waits for the thread to finish execution. It may only be called
// once, while the thread is joinable, and never from the thread itself.
func (t *Thread) Join() {
	if !t.Joinable() {
		panic("threadx: thread is not joinable")
	}
	if kern().Current() == t.kt {
		panic("threadx: join would deadlock the calling thread")
	}
	if !t.joined.CompareAndSwap(false, true) {
		panic("threadx: thread is not joinable")
	}
	t.exitCond.Acquire()
}

// Destroy stops the thread and releases its kernel resources: a thread
// that has not completed is terminated first. Destroying a thread from its
// own context is asserted.
func (t *Thread) Destroy() {
	if kern().Current() == t.kt {
		panic("threadx: a thread cannot destroy itself")
	}
	if t.kt.State() != kernel.StateCompleted {
		if st := t.kt.Terminate(); !st.OK() {
			panic("threadx: thread terminate failed: " + st.String())
		}
	}
	if st := t.kt.Delete(); !st.OK() {
		panic("threadx: thread delete failed: " + st.String())
	}
}

// Current returns the currently executing thread, or nil in interrupt
// context.
func Current() *Thread {
	kt := kern().Current()
	if kt == nil {
		return nil
	}
	return wrapThread(kt)
}

// CurrentID returns the unique identifier of the current thread.
func CurrentID() ID {
	kt := kern().Current()
	if kt == nil {
		return 0
	}
	return ID(kt.ID())
}

// Yield gives up the remainder of the current thread's time slice so other
// ready threads can run.
func Yield() {
	kern().Relinquish()
}

// SleepFor blocks the current thread for the given duration, truncated to
// tick granularity.
func SleepFor(rel time.Duration) {
	sleepTicks(ToTicks(rel))
}

// SleepUntil blocks the current thread until the given deadline.
func SleepUntil(abs Time) {
	sleepTicks(until(abs))
}

func sleepTicks(n Ticks) {
	if st := kern().Sleep(n); !st.OK() {
		panic("threadx: sleep failed: " + st.String())
	}
}
