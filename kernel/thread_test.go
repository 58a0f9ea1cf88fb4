package kernel

import (
	"testing"
	"time"
)

func TestThreadCreateValidation(t *testing.T) {
	k := startedKernel(t)
	if _, st := k.ThreadCreate("t", nil, 0, 1, true); st != StatusThreadError {
		t.Fatalf("expected StatusThreadError for nil entry, got %s", st)
	}
	if _, st := k.ThreadCreate("t", func() {}, 0, TopPriority+1, true); st != StatusPriorityError {
		t.Fatalf("expected StatusPriorityError, got %s", st)
	}
	if _, st := k.ThreadCreate("t", func() {}, MinStackSize/2, 1, true); st != StatusNoMemory {
		t.Fatalf("expected StatusNoMemory for a tiny stack, got %s", st)
	}

	cold := New()
	if _, st := cold.ThreadCreate("t", func() {}, 0, 1, true); st != StatusCallerError {
		t.Fatalf("expected StatusCallerError before start, got %s", st)
	}
}

func TestThreadRunsAndCompletes(t *testing.T) {
	k := startedKernel(t)
	ran := make(chan struct{})
	th, st := k.ThreadCreate("worker", func() { close(ran) }, 0, 5, true)
	if !st.OK() {
		t.Fatalf("expected create success, got %s", st)
	}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the entry function")
	}
	waitForState(t, th, StateCompleted)
	if th.ID() == 0 {
		t.Fatal("expected a non-zero thread id")
	}
	if th.Name() != "worker" {
		t.Fatalf("expected name %q, got %q", "worker", th.Name())
	}
}

func TestThreadIdentifyInsideEntry(t *testing.T) {
	k := startedKernel(t)
	idCh := make(chan *Thread, 1)
	th, _ := k.ThreadCreate("self", func() {
		idCh <- k.Current()
	}, 0, 5, true)

	select {
	case got := <-idCh:
		if got != th {
			t.Fatal("expected Current inside the entry to be the created thread")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the entry function")
	}
}

func TestThreadNotifyEntryAndExit(t *testing.T) {
	k := startedKernel(t)
	reasons := make(chan NotifyReason, 2)
	th, _ := k.ThreadCreate("notified", func() {}, 0, 5, false)
	th.SetNotify(func(_ *Thread, reason NotifyReason) {
		reasons <- reason
	})
	if st := th.Resume(); !st.OK() {
		t.Fatalf("expected resume success, got %s", st)
	}

	want := []NotifyReason{NotifyEntry, NotifyExit}
	for i, exp := range want {
		select {
		case got := <-reasons:
			if got != exp {
				t.Fatalf("expected notify %d to be %d, got %d", i, exp, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for notify %d", i)
		}
	}
}

func TestThreadSleepBlocksForTicks(t *testing.T) {
	k := startedKernel(t)
	elapsed := make(chan Ticks, 1)
	th, _ := k.ThreadCreate("sleeper", func() {
		start := k.TickCount()
		if st := k.Sleep(25); !st.OK() {
			elapsed <- 0
			return
		}
		elapsed <- k.TickCount() - start
	}, 0, 5, true)
	defer th.Terminate()

	select {
	case d := <-elapsed:
		if d < 25 {
			t.Fatalf("expected at least 25 ticks of sleep, got %d", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the sleeper")
	}
}

func TestThreadSuspendResume(t *testing.T) {
	k := startedKernel(t)
	step := make(chan int, 4)
	th, _ := k.ThreadCreate("pausable", func() {
		step <- 1
		k.Sleep(20) // scheduling point where the suspension lands
		step <- 2
	}, 0, 5, true)

	select {
	case <-step:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the first step")
	}

	if st := th.Suspend(); !st.OK() {
		t.Fatalf("expected suspend success, got %s", st)
	}
	waitForState(t, th, StateSuspended)

	select {
	case <-step:
		t.Fatal("expected no progress while suspended")
	case <-time.After(50 * time.Millisecond):
	}

	if st := th.Resume(); !st.OK() {
		t.Fatalf("expected resume success, got %s", st)
	}
	select {
	case <-step:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for progress after resume")
	}
	waitForState(t, th, StateCompleted)

	if st := th.Resume(); st != StatusThreadError {
		t.Fatalf("expected StatusThreadError resuming a completed thread, got %s", st)
	}
}

func TestThreadDontStartWaitsForResume(t *testing.T) {
	k := startedKernel(t)
	ran := make(chan struct{})
	th, _ := k.ThreadCreate("held", func() { close(ran) }, 0, 5, false)

	select {
	case <-ran:
		t.Fatal("expected no execution before the first resume")
	case <-time.After(50 * time.Millisecond):
	}
	if got := th.State(); got != StateSuspended {
		t.Fatalf("expected StateSuspended, got %s", got)
	}

	th.Resume()
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the entry function after resume")
	}
}

func TestTerminateAbortsBlockedThread(t *testing.T) {
	k := startedKernel(t)
	s, _ := k.SemaphoreCreate("never", 0, 1)
	reached := make(chan struct{})
	th, _ := k.ThreadCreate("doomed", func() {
		s.Get(Forever)
		close(reached) // must not run: the wait is aborted by termination
	}, 0, 5, true)

	waitForState(t, th, StateWaitSemaphore)
	if st := th.Terminate(); !st.OK() {
		t.Fatalf("expected terminate success, got %s", st)
	}
	waitForState(t, th, StateTerminated)

	select {
	case <-reached:
		t.Fatal("expected the entry function not to continue past the aborted wait")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTerminateFiresExitNotifyOnce(t *testing.T) {
	k := startedKernel(t)
	exits := make(chan struct{}, 4)
	block := make(chan struct{})
	th, _ := k.ThreadCreate("observed", func() { <-block }, 0, 5, false)
	th.SetNotify(func(_ *Thread, reason NotifyReason) {
		if reason == NotifyExit {
			exits <- struct{}{}
		}
	})
	th.Resume()

	th.Terminate()
	close(block)
	time.Sleep(50 * time.Millisecond)

	if got := len(exits); got != 1 {
		t.Fatalf("expected exactly one exit notification, got %d", got)
	}
}

func TestSetPriorityTakesEffectImmediately(t *testing.T) {
	k := startedKernel(t)
	th, _ := k.ThreadCreate("adjusted", func() {
		k.Sleep(Forever)
	}, 0, 20, true)
	defer th.Terminate()

	old, st := th.SetPriority(10)
	if !st.OK() {
		t.Fatalf("expected priority change success, got %s", st)
	}
	if old != 20 {
		t.Fatalf("expected previous priority 20, got %d", old)
	}
	if got := th.Priority(); got != 10 {
		t.Fatalf("expected priority 10, got %d", got)
	}
	if got := th.EffectivePriority(); got != 10 {
		t.Fatalf("expected effective priority 10, got %d", got)
	}
	if _, st := th.SetPriority(TopPriority + 1); st != StatusPriorityError {
		t.Fatalf("expected StatusPriorityError, got %s", st)
	}
}

func TestDeleteRequiresTerminalState(t *testing.T) {
	k := startedKernel(t)
	th, _ := k.ThreadCreate("persistent", func() {
		k.Sleep(Forever)
	}, 0, 5, true)

	if st := th.Delete(); st != StatusThreadError {
		t.Fatalf("expected StatusThreadError deleting a live thread, got %s", st)
	}
	th.Terminate()
	waitForState(t, th, StateTerminated)
	if st := th.Delete(); !st.OK() {
		t.Fatalf("expected delete success, got %s", st)
	}
}
