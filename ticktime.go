package threadx

import (
	"time"

	"github.com/IntergatedCircuits/threadx-go/kernel"
)

// Ticks counts kernel timer ticks.
type Ticks = kernel.Ticks

// TickRateHz is the kernel timer tick rate.
const TickRateHz = kernel.TickRateHz

// Forever requests an unbounded wait. It is distinct from every finite
// tick count; zero means "do not block".
const Forever = kernel.Forever

// Time is a point on the kernel tick clock. The clock is monotonic and
// readable from any context.
type Time kernel.Ticks

// Now returns the current tick clock reading. Never blocks.
func Now() Time {
	return Time(kern().TickCount())
}

// Add returns the time d past t, truncated to tick granularity.
func (t Time) Add(d time.Duration) Time {
	return t + Time(ToTicks(d))
}

// ToTicks converts a duration to whole ticks. Sub-tick residue is lost;
// negative durations convert to zero (an immediate check), and values too
// large for the counter saturate below Forever so a finite request can
// never become an unbounded one.
func ToTicks(d time.Duration) Ticks {
	if d <= 0 {
		return 0
	}
	n := uint64(d) / uint64(time.Second/TickRateHz)
	if n >= uint64(Forever) {
		return Forever - 1
	}
	return Ticks(n)
}

// until converts a deadline to a relative tick count, clamping deadlines
// already in the past to zero.
func until(t Time) Ticks {
	d := uint32(t) - uint32(Now())
	if d == 0 || d > 1<<31 {
		return 0
	}
	return Ticks(d)
}
