package kernel

import "sync/atomic"

// Semaphore is a counting semaphore control block with a put ceiling.
//
// Put hands a unit directly to the highest-urgency waiter when one is
// queued, so the count is only touched when nobody is waiting and a late
// arrival can never jump the queue. Put gives a single unit per call and
// fails once the count is at the ceiling.
type Semaphore struct {
	_ [0]func()

	k       *Kernel
	name    string
	ceiling uint32
	count   atomic.Uint32
	waiters waitQueue
}

// SemaphoreCreate makes a semaphore with the given initial count and
// ceiling. The ceiling must be at least 1 and at least the initial count.
func (k *Kernel) SemaphoreCreate(name string, initial, ceiling uint32) (*Semaphore, Status) {
	if ceiling == 0 || initial > ceiling {
		return nil, StatusCeilingExceeded
	}
	s := &Semaphore{k: k, name: name, ceiling: ceiling}
	s.count.Store(initial)
	return s, StatusSuccess
}

// Name returns the semaphore's label.
func (s *Semaphore) Name() string { return s.name }

// Ceiling returns the maximum count.
func (s *Semaphore) Ceiling() uint32 { return s.ceiling }

// Count returns a snapshot of the current count. Callable from any
// context; never blocks.
func (s *Semaphore) Count() uint32 {
	return s.count.Load()
}

// Get takes one unit, waiting up to timeout ticks for one to become
// available. Zero means do not block; Forever means wait indefinitely.
// Waits are not allowed from interrupt context, but a zero-timeout attempt
// is.
func (s *Semaphore) Get(timeout Ticks) Status {
	k := s.k
	if k.inISRContext() && timeout != 0 {
		return StatusCallerError
	}
	k.schedulePoint()

	locked := k.lock()
	if c := s.count.Load(); c > 0 {
		s.count.Store(c - 1)
		k.unlock(locked)
		return StatusSuccess
	}
	if timeout == 0 {
		k.unlock(locked)
		return StatusTimeout
	}
	if !locked {
		panic("kernel: blocking call inside interrupt lockout")
	}
	cur := k.Current()

	deadline := Forever
	if timeout != Forever {
		deadline = k.TickCount() + timeout
	}
	w := newWaiter(cur, deadline)
	s.waiters.push(w)
	st := k.blockOn(cur, w, StateWaitSemaphore)
	k.unlock(locked)
	return st
}

// Put gives back one unit. If a thread is waiting, the unit is handed to
// the highest-urgency waiter; otherwise the count is incremented, failing
// with StatusCeilingExceeded when already at the ceiling. Callable from
// interrupt context.
func (s *Semaphore) Put() Status {
	k := s.k
	locked := k.lock()
	if w := s.waiters.popBest(); w != nil {
		w.deliver(StatusSuccess)
		k.unlock(locked)
		return StatusSuccess
	}
	if s.count.Load() >= s.ceiling {
		k.unlock(locked)
		return StatusCeilingExceeded
	}
	s.count.Add(1)
	k.unlock(locked)
	return StatusSuccess
}
