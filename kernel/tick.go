package kernel

import "time"

// Ticks counts kernel timer ticks. The counter width is the kernel's native
// word; arithmetic on it wraps like the native counter does.
type Ticks uint32

// TickRateHz is the fixed timer tick rate.
const TickRateHz = 1000

// Forever is the reserved tick count requesting an unbounded wait. It is
// distinct from every finite count, including zero ("do not block").
const Forever Ticks = ^Ticks(0)

// TickCount returns the monotonic tick counter. Callable from any context;
// never blocks.
func (k *Kernel) TickCount() Ticks {
	return Ticks(k.ticks.Load())
}

// tickLoop drives the timer interrupt at TickRateHz until Stop.
func (k *Kernel) tickLoop() {
	t := time.NewTicker(time.Second / TickRateHz)
	defer t.Stop()
	for {
		select {
		case <-k.stop:
			return
		case <-t.C:
			k.Interrupt(k.timerTick)
		}
	}
}

// timerTick is the timer ISR body: advance the counter, expire timed waits.
func (k *Kernel) timerTick() {
	now := Ticks(k.ticks.Add(1))
	if len(k.timers) == 0 {
		return
	}
	kept := k.timers[:0]
	for _, w := range k.timers {
		switch {
		case w.done:
			// already satisfied or aborted, drop from the list
		case w.deadline <= now:
			w.expire()
		default:
			kept = append(kept, w)
		}
	}
	for i := len(kept); i < len(k.timers); i++ {
		k.timers[i] = nil
	}
	k.timers = kept
}

// addTimer registers a waiter for expiry. Caller holds the lockout.
func (k *Kernel) addTimer(w *waiter) {
	if w.deadline != Forever {
		k.timers = append(k.timers, w)
	}
}
