package kernel

// waiter is one blocked acquisition: a thread parked on an object's wait
// queue and, for bounded waits, on the timer list. Exactly one Status is
// ever delivered on ch; done guards against a wake/expiry race.
type waiter struct {
	thread   *Thread
	ch       chan Status
	deadline Ticks // absolute tick, Forever for unbounded
	queue    *waitQueue
	done     bool
}

func newWaiter(t *Thread, deadline Ticks) *waiter {
	return &waiter{thread: t, ch: make(chan Status, 1), deadline: deadline}
}

// deliver hands the waiter its result and detaches it from its queue.
// Caller holds the lockout.
func (w *waiter) deliver(st Status) {
	if w.done {
		return
	}
	w.done = true
	if w.queue != nil {
		w.queue.remove(w)
		w.queue = nil
	}
	w.ch <- st
}

func (w *waiter) expire() {
	w.deliver(StatusTimeout)
}

// waitQueue orders blocked threads by priority (lower value first), FIFO
// within a priority level. Objects delegate their wake order to it.
type waitQueue struct {
	items []*waiter
}

// push inserts w behind every waiter of equal or higher urgency.
func (q *waitQueue) push(w *waiter) {
	i := len(q.items)
	for i > 0 && q.items[i-1].thread.priority > w.thread.priority {
		i--
	}
	q.items = append(q.items, nil)
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = w
	w.queue = q
}

// popBest removes and returns the highest-urgency waiter, or nil.
func (q *waitQueue) popBest() *waiter {
	if len(q.items) == 0 {
		return nil
	}
	w := q.items[0]
	q.remove(w)
	return w
}

// peek returns the highest-urgency waiter without removing it.
func (q *waitQueue) peek() *waiter {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

func (q *waitQueue) remove(w *waiter) {
	for i, it := range q.items {
		if it == w {
			copy(q.items[i:], q.items[i+1:])
			q.items[len(q.items)-1] = nil
			q.items = q.items[:len(q.items)-1]
			w.queue = nil
			return
		}
	}
}

func (q *waitQueue) len() int { return len(q.items) }
