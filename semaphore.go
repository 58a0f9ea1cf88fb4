package threadx

import (
	"time"

	"github.com/IntergatedCircuits/threadx-go/kernel"
)

// Semaphore holds the counting-semaphore operations shared by the concrete
// variants. Construct one through NewBinarySemaphore or
// NewCountingSemaphore.
type Semaphore struct {
	_   [0]func()
	s   *kernel.Semaphore
	max uint32
}

func newSemaphore(max, desired uint32, name string) Semaphore {
	s, st := kern().SemaphoreCreate(name, desired, max)
	if !st.OK() {
		panic("threadx: semaphore create failed: " + st.String())
	}
	return Semaphore{s: s, max: max}
}

// Acquire waits indefinitely until the semaphore is available, then takes
// one unit.
func (s *Semaphore) Acquire() {
	if st := s.s.Get(Forever); !st.OK() {
		panic("threadx: semaphore acquire failed: " + st.String())
	}
}

// TryAcquire takes one unit if one is available, without blocking.
func (s *Semaphore) TryAcquire() bool {
	return s.s.Get(0).OK()
}

// TryAcquireFor takes one unit, waiting up to rel for one to become
// available. A non-positive duration is an immediate check.
func (s *Semaphore) TryAcquireFor(rel time.Duration) bool {
	return s.s.Get(ToTicks(rel)).OK()
}

// TryAcquireUntil takes one unit, waiting until the given deadline. A
// deadline already in the past is an immediate check.
func (s *Semaphore) TryAcquireUntil(abs Time) bool {
	return s.s.Get(until(abs)).OK()
}

// Release makes the semaphore available update times, one unit per
// underlying give. It stops at the first failed give (the count is at its
// maximum) and reports whether every give succeeded; units already given
// are not taken back.
func (s *Semaphore) Release(update uint32) bool {
	for ; update > 0; update-- {
		if !s.s.Put().OK() {
			return false
		}
	}
	return true
}

// Count returns the semaphore's acquirable count. Callable from any
// context; never blocks.
func (s *Semaphore) Count() uint32 {
	return s.s.Count()
}

// Max returns the maximum value of the counter.
func (s *Semaphore) Max() uint32 {
	return s.max
}

// CountingSemaphore is a semaphore with a fixed maximum count.
type CountingSemaphore struct {
	Semaphore
}

// NewCountingSemaphore constructs a counting semaphore with the given
// maximum and initial count.
func NewCountingSemaphore(max, desired uint32) *CountingSemaphore {
	return &CountingSemaphore{newSemaphore(max, desired, "counting_semaphore")}
}

// BinarySemaphore is a semaphore whose count is at most 1.
type BinarySemaphore struct {
	Semaphore
}

// NewBinarySemaphore constructs a binary semaphore with the given initial
// count (0 or 1).
func NewBinarySemaphore(desired uint32) *BinarySemaphore {
	return &BinarySemaphore{newSemaphore(1, desired, "binary_semaphore")}
}
