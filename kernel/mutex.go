package kernel

// Mutex is a recursive mutex control block with optional priority
// inheritance. Waiters are queued by priority with FIFO ties; ownership is
// handed directly to the best waiter on release.
type Mutex struct {
	_ [0]func()

	k       *Kernel
	name    string
	inherit bool

	owner     *Thread
	ownCount  uint32
	inherited bool
	waiters   waitQueue
}

// MutexCreate makes a mutex, optionally with priority inheritance.
func (k *Kernel) MutexCreate(name string, inherit bool) (*Mutex, Status) {
	return &Mutex{k: k, name: name, inherit: inherit}, StatusSuccess
}

// Name returns the mutex's label.
func (m *Mutex) Name() string { return m.name }

// Owner returns the thread currently holding the mutex, or nil. Callable
// from any context; never blocks.
func (m *Mutex) Owner() *Thread {
	locked := m.k.lock()
	o := m.owner
	m.k.unlock(locked)
	return o
}

// Get locks the mutex, waiting up to timeout ticks. The holder may lock
// recursively; each Get needs a matching Put. While a more urgent thread
// waits, the holder runs at the waiter's priority. Not callable from
// interrupt context.
func (m *Mutex) Get(timeout Ticks) Status {
	k := m.k
	if k.inISRContext() {
		return StatusCallerError
	}
	k.schedulePoint()
	cur := k.Current()
	if cur == nil {
		return StatusCallerError
	}

	locked := k.lock()
	if m.owner == nil {
		m.owner = cur
		m.ownCount = 1
		k.unlock(locked)
		return StatusSuccess
	}
	if m.owner == cur {
		m.ownCount++
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

	if m.inherit && cur.priority < m.owner.priority {
		m.inherited = true
		m.owner.priority = cur.priority
	}

	deadline := Forever
	if timeout != Forever {
		deadline = k.TickCount() + timeout
	}
	w := newWaiter(cur, deadline)
	m.waiters.push(w)
	st := k.blockOn(cur, w, StateWaitMutex)
	k.unlock(locked)
	return st
}

// Put releases one level of ownership. Only the holder may call it. On the
// final release any inherited boost is dropped and ownership passes to the
// highest-urgency waiter.
func (m *Mutex) Put() Status {
	k := m.k
	if k.inISRContext() {
		return StatusCallerError
	}
	k.schedulePoint()
	cur := k.Current()

	locked := k.lock()
	if m.owner == nil || m.owner != cur {
		k.unlock(locked)
		return StatusNotOwned
	}
	m.ownCount--
	if m.ownCount > 0 {
		k.unlock(locked)
		return StatusSuccess
	}

	if m.inherited {
		m.owner.priority = m.owner.basePriority
		m.inherited = false
	}
	m.owner = nil

	if w := m.waiters.popBest(); w != nil {
		m.owner = w.thread
		m.ownCount = 1
		if m.inherit {
			if next := m.waiters.peek(); next != nil && next.thread.priority < m.owner.priority {
				m.inherited = true
				m.owner.priority = next.thread.priority
			}
		}
		w.deliver(StatusSuccess)
	}
	k.unlock(locked)
	return StatusSuccess
}
