package kernel

import (
	"runtime"
	"sync/atomic"
)

const (
	// TopPriority is the largest (least urgent) valid priority value.
	// Priority 0 is the most urgent.
	TopPriority = 31

	// MinStackSize is the smallest accepted stack request.
	MinStackSize = 1024

	// ExternalPriority is assigned to goroutines attached on first lookup.
	ExternalPriority = 16
)

// ThreadState is the kernel-level thread state.
type ThreadState uint8

const (
	StateReady ThreadState = iota
	StateCompleted
	StateTerminated
	StateSuspended
	StateSleeping
	StateWaitSemaphore
	StateWaitMutex
)

func (s ThreadState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateCompleted:
		return "completed"
	case StateTerminated:
		return "terminated"
	case StateSuspended:
		return "suspended"
	case StateSleeping:
		return "sleeping"
	case StateWaitSemaphore:
		return "semaphore wait"
	case StateWaitMutex:
		return "mutex wait"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is one a thread never leaves.
func (s ThreadState) Terminal() bool {
	return s == StateCompleted || s == StateTerminated
}

// NotifyReason tells an entry/exit notification callback why it ran.
type NotifyReason uint8

const (
	NotifyEntry NotifyReason = iota
	NotifyExit
)

// killSignal unwinds a terminated thread's goroutine out of a kernel call.
type killSignal struct{}

var threadIDs atomic.Uint64

// Thread is a thread control block. One goroutine executes its entry
// function; the kernel tracks its state, priority, and wait status.
//
// Terminating a thread aborts any wait it is blocked in and unwinds its
// goroutine at its next kernel call; a terminated thread that never calls
// back into the kernel runs its entry function to the end, but its state is
// already terminal.
type Thread struct {
	_ [0]func() // control blocks are address-bound, no copying

	k         *Kernel
	id        uint64
	name      string
	entry     func()
	stackSize uint32
	external  bool

	// the remaining fields are guarded by the kernel lockout
	state          ThreadState
	basePriority   uint32
	priority       uint32 // effective: base or an inherited boost
	suspendPending bool
	started        bool
	exitNotified   bool
	wait           *waiter
	notify         func(*Thread, NotifyReason)
	ext            any

	gid       uint64
	startGate chan struct{}
	resumeCh  chan struct{}
}

// ThreadCreate makes a thread eligible to run. With autoStart false the
// thread stays suspended until its first Resume. The entry function runs on
// a dedicated goroutine; the stack size request is validated and recorded
// (the runtime sizes the actual stack).
func (k *Kernel) ThreadCreate(name string, entry func(), stackSize uint32, priority uint32, autoStart bool) (*Thread, Status) {
	if Phase(k.phase.Load()) != PhaseRunning {
		return nil, StatusCallerError
	}
	if entry == nil {
		return nil, StatusThreadError
	}
	if priority > TopPriority {
		return nil, StatusPriorityError
	}
	if stackSize == 0 {
		stackSize = MinStackSize
	}
	if stackSize < MinStackSize {
		return nil, StatusNoMemory
	}

	t := &Thread{
		k:            k,
		id:           threadIDs.Add(1),
		name:         name,
		entry:        entry,
		stackSize:    stackSize,
		basePriority: priority,
		priority:     priority,
		startGate:    make(chan struct{}),
		resumeCh:     make(chan struct{}, 1),
	}
	if autoStart {
		t.state = StateReady
		t.started = true
		close(t.startGate)
	} else {
		t.state = StateSuspended
	}
	go t.run()
	return t, StatusSuccess
}

func newExternalThread(k *Kernel, gid uint64) *Thread {
	return &Thread{
		k:            k,
		id:           threadIDs.Add(1),
		name:         "external",
		basePriority: ExternalPriority,
		priority:     ExternalPriority,
		state:        StateReady,
		started:      true,
		external:     true,
		gid:          gid,
		resumeCh:     make(chan struct{}, 1),
	}
}

func (t *Thread) run() {
	k := t.k
	gid := curGID()
	locked := k.lock()
	t.gid = gid
	k.threads[gid] = t
	k.unlock(locked)

	<-t.startGate

	defer t.finish()
	k.schedulePoint() // honor a terminate or suspend issued before the first run
	t.runNotify(NotifyEntry)
	t.entry()
}

func (t *Thread) finish() {
	if r := recover(); r != nil {
		if _, ok := r.(killSignal); !ok {
			panic(r)
		}
	}
	k := t.k
	locked := k.lock()
	if t.state != StateTerminated {
		t.state = StateCompleted
	}
	t.notifyExitLocked()
	delete(k.threads, t.gid)
	k.unlock(locked)
}

func (t *Thread) runNotify(reason NotifyReason) {
	locked := t.k.lock()
	if fn := t.notify; fn != nil {
		fn(t, reason)
	}
	t.k.unlock(locked)
}

// notifyExitLocked invokes the exit notification exactly once.
// Caller holds the lockout.
func (t *Thread) notifyExitLocked() {
	if t.exitNotified {
		return
	}
	t.exitNotified = true
	if fn := t.notify; fn != nil {
		fn(t, NotifyExit)
	}
}

// ID returns the thread's unique non-zero identifier.
func (t *Thread) ID() uint64 { return t.id }

// Name returns the thread's label.
func (t *Thread) Name() string { return t.name }

// StackSize returns the recorded stack request.
func (t *Thread) StackSize() uint32 { return t.stackSize }

// State returns the kernel-level state. Callable from any context.
func (t *Thread) State() ThreadState {
	locked := t.k.lock()
	s := t.state
	t.k.unlock(locked)
	return s
}

// Priority returns the thread's assigned priority. Callable from any
// context.
func (t *Thread) Priority() uint32 {
	locked := t.k.lock()
	p := t.basePriority
	t.k.unlock(locked)
	return p
}

// EffectivePriority returns the priority the thread is scheduled at, which
// may be more urgent than the assigned one while inheritance is in effect.
func (t *Thread) EffectivePriority() uint32 {
	locked := t.k.lock()
	p := t.priority
	t.k.unlock(locked)
	return p
}

// SetPriority changes the assigned priority, returning the previous one.
// Takes effect immediately; an inherited boost more urgent than the new
// value stays in effect until the boosting mutex is released.
func (t *Thread) SetPriority(priority uint32) (uint32, Status) {
	if priority > TopPriority {
		return 0, StatusPriorityError
	}
	k := t.k
	locked := k.lock()
	old := t.basePriority
	t.basePriority = priority
	if t.priority == old || priority < t.priority {
		t.priority = priority
	}
	k.unlock(locked)
	return old, StatusSuccess
}

// SetNotify installs the entry/exit notification callback. The callback
// runs in kernel context with the lockout held and must not block.
func (t *Thread) SetNotify(fn func(*Thread, NotifyReason)) Status {
	locked := t.k.lock()
	t.notify = fn
	t.k.unlock(locked)
	return StatusSuccess
}

// Ext returns the opaque user extension slot.
func (t *Thread) Ext() any {
	locked := t.k.lock()
	e := t.ext
	t.k.unlock(locked)
	return e
}

// EnsureExt installs mk() into the extension slot if it is empty, and
// returns the slot's value.
func (t *Thread) EnsureExt(mk func() any) any {
	locked := t.k.lock()
	if t.ext == nil {
		t.ext = mk()
	}
	e := t.ext
	t.k.unlock(locked)
	return e
}

// Suspend suspends the thread until Resume. Suspending the calling thread
// parks it here; suspending another thread that is mid-computation takes
// effect at its next kernel call, and suspending a thread blocked in a wait
// is delayed until the wait completes. Not reference counted.
func (t *Thread) Suspend() Status {
	k := t.k
	locked := k.lock()
	switch t.state {
	case StateCompleted, StateTerminated:
		k.unlock(locked)
		return StatusThreadError
	case StateSuspended:
		k.unlock(locked)
		return StatusSuccess
	case StateReady:
		t.state = StateSuspended
		if t.started && t.gid == curGID() {
			if !locked {
				k.unlock(locked)
				panic("kernel: suspend inside interrupt lockout")
			}
			t.parkLocked()
			if t.state == StateTerminated {
				k.release()
				panic(killSignal{})
			}
		} else {
			t.suspendPending = true
		}
	default:
		t.suspendPending = true
	}
	k.unlock(locked)
	return StatusSuccess
}

// Resume lifts a suspension. Resuming a thread that is not suspended is an
// error; redundant use is the caller's responsibility.
func (t *Thread) Resume() Status {
	k := t.k
	locked := k.lock()
	defer k.unlock(locked)
	switch {
	case t.state.Terminal():
		return StatusThreadError
	case !t.started:
		t.started = true
		t.state = StateReady
		close(t.startGate)
	case t.state == StateSuspended:
		t.state = StateReady
		t.suspendPending = false
		select {
		case t.resumeCh <- struct{}{}:
		default:
		}
	case t.suspendPending:
		t.suspendPending = false
	default:
		return StatusThreadError
	}
	return StatusSuccess
}

// Terminate moves the thread to the terminated state, aborts any wait it is
// blocked in, and fires the exit notification. The thread's goroutine
// unwinds at its next kernel call. Terminating a completed or terminated
// thread is a no-op.
func (t *Thread) Terminate() Status {
	k := t.k
	locked := k.lock()
	if t.state.Terminal() {
		k.unlock(locked)
		return StatusSuccess
	}
	t.state = StateTerminated
	t.suspendPending = false
	if !t.started {
		t.started = true
		close(t.startGate)
	}
	if w := t.wait; w != nil {
		w.deliver(StatusWaitAborted)
	}
	select {
	case t.resumeCh <- struct{}{}:
	default:
	}
	t.notifyExitLocked()
	self := t.started && t.gid == curGID() && !k.inISRContext()
	k.unlock(locked)
	if self {
		panic(killSignal{})
	}
	return StatusSuccess
}

// Delete releases the thread's kernel resources. The thread must be
// completed or terminated first.
func (t *Thread) Delete() Status {
	k := t.k
	locked := k.lock()
	defer k.unlock(locked)
	if !t.state.Terminal() {
		return StatusThreadError
	}
	t.notify = nil
	t.ext = nil
	return StatusSuccess
}

// parkLocked blocks the calling thread while it is suspended. Caller holds
// the lockout as the outermost owner; it is reacquired before returning.
func (t *Thread) parkLocked() {
	for t.state == StateSuspended {
		t.k.release()
		<-t.resumeCh
		t.k.reacquire()
	}
}

// schedulePoint is the cooperative scheduling point at the top of every
// kernel service: a pending termination unwinds the caller here, and a
// pending suspension parks it.
func (k *Kernel) schedulePoint() {
	if k.inISRContext() {
		return
	}
	t := k.Current()
	if t == nil {
		return
	}
	locked := k.lock()
	if t.state == StateTerminated {
		k.unlock(locked)
		panic(killSignal{})
	}
	if t.suspendPending {
		t.suspendPending = false
		t.state = StateSuspended
		if !locked {
			k.unlock(locked)
			panic("kernel: blocking call inside interrupt lockout")
		}
		t.parkLocked()
		if t.state == StateTerminated {
			k.release()
			panic(killSignal{})
		}
	}
	k.unlock(locked)
}

// blockOn parks cur on w until a status is delivered. Caller holds the
// lockout as the outermost owner and has already queued w; the lockout is
// held again when blockOn returns.
func (k *Kernel) blockOn(cur *Thread, w *waiter, state ThreadState) Status {
	cur.state = state
	cur.wait = w
	k.addTimer(w)
	k.release()
	res := <-w.ch
	k.reacquire()
	cur.wait = nil
	if cur.state == StateTerminated {
		k.release()
		panic(killSignal{})
	}
	cur.state = StateReady
	if cur.suspendPending {
		// suspension requested during the wait, apply it now
		cur.suspendPending = false
		cur.state = StateSuspended
		cur.parkLocked()
		if cur.state == StateTerminated {
			k.release()
			panic(killSignal{})
		}
	}
	return res
}

// Sleep blocks the calling thread for the given tick count. Zero yields the
// processor without blocking; Forever sleeps until terminated.
func (k *Kernel) Sleep(ticks Ticks) Status {
	if k.inISRContext() {
		return StatusCallerError
	}
	k.schedulePoint()
	cur := k.Current()
	if cur == nil {
		return StatusCallerError
	}
	if ticks == 0 {
		runtime.Gosched()
		return StatusSuccess
	}
	locked := k.lock()
	if !locked {
		panic("kernel: sleep inside interrupt lockout")
	}
	deadline := Forever
	if ticks != Forever {
		deadline = k.TickCount() + ticks
	}
	w := newWaiter(cur, deadline)
	st := k.blockOn(cur, w, StateSleeping)
	k.unlock(locked)
	if st == StatusTimeout {
		// the expiry is the wakeup
		return StatusSuccess
	}
	return st
}

// Relinquish yields the processor to other ready work.
func (k *Kernel) Relinquish() {
	if k.inISRContext() {
		return
	}
	k.schedulePoint()
	runtime.Gosched()
}
