package threadx

import (
	"sync"
	"sync/atomic"

	"github.com/IntergatedCircuits/threadx-go/kernel"
)

var (
	defaultKernel atomic.Pointer[kernel.Kernel]
	startOnce     sync.Once
)

// kern returns the process-wide kernel, starting it on first use.
func kern() *kernel.Kernel {
	startOnce.Do(func() {
		k := kernel.New()
		k.Start()
		defaultKernel.Store(k)
	})
	return defaultKernel.Load()
}

// Start brings the kernel to the running phase. Creating any object does
// this implicitly; calling Start first only makes the moment explicit.
func Start() {
	kern()
}

// SchedulerState describes the kernel scheduler lifecycle.
type SchedulerState uint8

const (
	SchedulerUninitialized SchedulerState = iota
	SchedulerRunning
)

// GetSchedulerState reports whether the kernel has been started.
func GetSchedulerState() SchedulerState {
	k := defaultKernel.Load()
	if k == nil || k.Phase() != kernel.PhaseRunning {
		return SchedulerUninitialized
	}
	return SchedulerRunning
}
