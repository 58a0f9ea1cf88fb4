// Package kernel is a simulated real-time kernel: a strict-priority thread
// model with tick-based timeouts, counting semaphores with a put ceiling,
// priority-inheriting mutexes, and a global interrupt lockout.
//
// It supplies the primitive surface a synchronization wrapper layer needs,
// not a full scheduler: threads execute on goroutines, and the kernel
// enforces the contracts that are observable through its objects (wake
// order, inheritance, timeouts, the thread state machine). Suspension and
// termination of a thread that is mid-computation take effect at its next
// kernel call, as in any cooperative scheduling point model.
package kernel

import (
	"sync"
	"sync/atomic"
)

// Phase is the kernel lifecycle phase.
type Phase uint32

const (
	PhaseNotStarted Phase = iota
	PhaseInitializing
	PhaseRunning
)

// System state words reported outside the running phase. In the running
// phase the system state is the interrupt nesting depth, so any value below
// StateInitInProgress with a non-zero count means a live ISR.
const (
	StateInitInProgress uint32 = 0xF0F0F0F0
	StateInitNotStarted uint32 = 0xF0F0F0F1
)

// IntState is the interrupt posture captured by Disable and handed back to
// Restore. Zero means interrupts were enabled at capture time.
type IntState uint32

// Kernel is one simulated kernel instance.
type Kernel struct {
	// mu is the interrupt+preemption lockout. Holding it stops simulated
	// interrupts (including the timer tick) and every other context's
	// kernel calls. lockOwner makes kernel-internal locking reentrant per
	// goroutine so services compose with Disable and with ISR dispatch.
	mu        sync.Mutex
	lockOwner atomic.Uint64

	phase   atomic.Uint32
	nesting atomic.Int32

	disableDepth uint32

	ticks  atomic.Uint32
	timers []*waiter
	stop   chan struct{}

	threads map[uint64]*Thread
}

// New creates a kernel instance in the not-started phase.
func New() *Kernel {
	return &Kernel{
		threads: make(map[uint64]*Thread),
		stop:    make(chan struct{}),
	}
}

// Start moves the kernel to the running phase and starts the timer tick
// interrupt source. Unlike a native kernel enter, it returns; the callers'
// goroutines stand in for the scheduler dispatch loop.
func (k *Kernel) Start() {
	if !k.phase.CompareAndSwap(uint32(PhaseNotStarted), uint32(PhaseInitializing)) {
		return
	}
	k.phase.Store(uint32(PhaseRunning))
	go k.tickLoop()
}

// Stop halts the timer tick source. For tests that create many kernels.
func (k *Kernel) Stop() {
	select {
	case <-k.stop:
	default:
		close(k.stop)
	}
}

// Phase returns the current lifecycle phase.
func (k *Kernel) Phase() Phase {
	return Phase(k.phase.Load())
}

// SystemState returns the kernel system state word: the interrupt nesting
// depth while running, or a reserved marker before that.
func (k *Kernel) SystemState() uint32 {
	switch Phase(k.phase.Load()) {
	case PhaseRunning:
		return uint32(k.nesting.Load())
	case PhaseInitializing:
		return StateInitInProgress
	default:
		return StateInitNotStarted
	}
}

// InISR reports whether an interrupt handler is live. Before the kernel is
// running it is always false.
func (k *Kernel) InISR() bool {
	s := k.SystemState()
	return s != 0 && s < StateInitInProgress
}

// Disable masks interrupts and preemption, returning the prior posture.
// Nested Disable/Restore pairs are allowed as long as each Restore receives
// the matching captured state.
func (k *Kernel) Disable() IntState {
	gid := curGID()
	if k.lockOwner.Load() == gid {
		prior := IntState(k.disableDepth)
		k.disableDepth++
		return prior
	}
	k.mu.Lock()
	k.lockOwner.Store(gid)
	k.disableDepth = 1
	return 0
}

// Restore reverts the interrupt posture captured by the matching Disable.
func (k *Kernel) Restore(s IntState) {
	k.disableDepth = uint32(s)
	if s == 0 {
		k.lockOwner.Store(0)
		k.mu.Unlock()
	}
}

// Interrupt dispatches fn as a simulated interrupt service routine: it runs
// with the lockout held and the nesting depth raised, so it is atomic
// against every thread's kernel calls and visible through InISR.
func (k *Kernel) Interrupt(fn func()) {
	gid := curGID()
	k.mu.Lock()
	k.lockOwner.Store(gid)
	k.nesting.Add(1)
	fn()
	k.nesting.Add(-1)
	k.lockOwner.Store(0)
	k.mu.Unlock()
}

// lock acquires the kernel lockout unless the calling goroutine already
// holds it (via Disable or ISR dispatch). It reports whether it locked.
func (k *Kernel) lock() bool {
	gid := curGID()
	if k.lockOwner.Load() == gid {
		return false
	}
	k.mu.Lock()
	k.lockOwner.Store(gid)
	return true
}

func (k *Kernel) unlock(locked bool) {
	if locked {
		k.lockOwner.Store(0)
		k.mu.Unlock()
	}
}

// release fully drops the lockout before a blocking wait. Only valid when
// the calling goroutine is the outermost owner.
func (k *Kernel) release() {
	k.lockOwner.Store(0)
	k.mu.Unlock()
}

func (k *Kernel) reacquire() {
	k.mu.Lock()
	k.lockOwner.Store(curGID())
}

// inISRContext reports whether the calling goroutine is executing inside an
// ISR dispatched by this kernel. Services use it to reject waits from
// interrupt context.
func (k *Kernel) inISRContext() bool {
	return k.nesting.Load() > 0 && k.lockOwner.Load() == curGID()
}

// Current returns the thread executing on the calling goroutine.
//
// A goroutine that was not created through ThreadCreate is attached on first
// lookup as an anonymous external thread, so ownership checks hold for it.
// Inside an ISR there is no current thread and Current returns nil.
func (k *Kernel) Current() *Thread {
	if k.inISRContext() {
		return nil
	}
	gid := curGID()
	locked := k.lock()
	t := k.threads[gid]
	if t == nil && Phase(k.phase.Load()) == PhaseRunning {
		t = newExternalThread(k, gid)
		k.threads[gid] = t
	}
	k.unlock(locked)
	return t
}
