package kernel

import (
	"testing"
	"time"
)

func TestMutexOwnershipRoundTrip(t *testing.T) {
	k := startedKernel(t)
	m, st := k.MutexCreate("m", true)
	if !st.OK() {
		t.Fatalf("expected create success, got %s", st)
	}

	if got := m.Owner(); got != nil {
		t.Fatalf("expected no owner, got %q", got.Name())
	}
	if st := m.Get(0); !st.OK() {
		t.Fatalf("expected lock success, got %s", st)
	}
	if got := m.Owner(); got != k.Current() {
		t.Fatal("expected the calling thread as owner")
	}
	if st := m.Put(); !st.OK() {
		t.Fatalf("expected unlock success, got %s", st)
	}
	if got := m.Owner(); got != nil {
		t.Fatalf("expected no owner after unlock, got %q", got.Name())
	}
}

func TestMutexRecursiveLocking(t *testing.T) {
	k := startedKernel(t)
	m, _ := k.MutexCreate("m", true)

	for i := 0; i < 3; i++ {
		if st := m.Get(Forever); !st.OK() {
			t.Fatalf("expected recursive lock %d to succeed, got %s", i, st)
		}
	}
	for i := 0; i < 2; i++ {
		if st := m.Put(); !st.OK() {
			t.Fatalf("expected unlock %d to succeed, got %s", i, st)
		}
		if got := m.Owner(); got != k.Current() {
			t.Fatal("expected ownership to be retained while the count is non-zero")
		}
	}
	if st := m.Put(); !st.OK() {
		t.Fatalf("expected final unlock to succeed, got %s", st)
	}
	if got := m.Owner(); got != nil {
		t.Fatal("expected no owner after the final unlock")
	}
}

func TestMutexPutByNonOwner(t *testing.T) {
	k := startedKernel(t)
	m, _ := k.MutexCreate("m", true)

	if st := m.Put(); st != StatusNotOwned {
		t.Fatalf("expected StatusNotOwned on an unlocked mutex, got %s", st)
	}

	locked := make(chan struct{})
	release := make(chan struct{})
	th, _ := k.ThreadCreate("holder", func() {
		m.Get(Forever)
		close(locked)
		<-release
		m.Put()
	}, 0, 5, true)
	defer func() { close(release); th.Terminate() }()

	<-locked
	if st := m.Put(); st != StatusNotOwned {
		t.Fatalf("expected StatusNotOwned from a non-owner, got %s", st)
	}
}

func TestMutexTimedGetExpires(t *testing.T) {
	k := startedKernel(t)
	m, _ := k.MutexCreate("m", true)

	locked := make(chan struct{})
	release := make(chan struct{})
	th, _ := k.ThreadCreate("holder", func() {
		m.Get(Forever)
		close(locked)
		<-release
		m.Put()
	}, 0, 5, true)
	defer func() { close(release); th.Terminate() }()

	<-locked
	start := k.TickCount()
	st := m.Get(20)
	if st != StatusTimeout {
		t.Fatalf("expected StatusTimeout, got %s", st)
	}
	if elapsed := k.TickCount() - start; elapsed < 20 {
		t.Fatalf("expected at least 20 ticks to elapse, got %d", elapsed)
	}
	if got := m.Owner(); got != th {
		t.Fatal("expected the holder to retain ownership after the timeout")
	}
}

func TestMutexRejectedInISR(t *testing.T) {
	k := startedKernel(t)
	m, _ := k.MutexCreate("m", true)

	var get, put Status
	k.Interrupt(func() {
		get = m.Get(0)
		put = m.Put()
	})
	if get != StatusCallerError || put != StatusCallerError {
		t.Fatalf("expected StatusCallerError for ISR get/put, got %s/%s", get, put)
	}
}

func TestMutexPriorityInheritance(t *testing.T) {
	k := startedKernel(t)
	m, _ := k.MutexCreate("m", true)

	locked := make(chan struct{})
	release := make(chan struct{})
	holder, _ := k.ThreadCreate("holder", func() {
		m.Get(Forever)
		close(locked)
		<-release
		m.Put()
		k.Sleep(Forever) // keep the thread observable after release
	}, 0, 20, true)
	defer holder.Terminate()

	<-locked
	urgent, _ := k.ThreadCreate("urgent", func() {
		m.Get(Forever)
		m.Put()
	}, 0, 4, true)
	defer urgent.Terminate()

	waitForState(t, urgent, StateWaitMutex)
	if got := holder.EffectivePriority(); got != 4 {
		t.Fatalf("expected the holder boosted to priority 4, got %d", got)
	}
	if got := holder.Priority(); got != 20 {
		t.Fatalf("expected the assigned priority to stay 20, got %d", got)
	}

	close(release)
	waitForState(t, urgent, StateCompleted)
	if got := holder.EffectivePriority(); got != 20 {
		t.Fatalf("expected the boost dropped after release, got %d", got)
	}
}

func TestMutexHandsOffInPriorityOrder(t *testing.T) {
	k := startedKernel(t)
	m, _ := k.MutexCreate("m", true)

	locked := make(chan struct{})
	release := make(chan struct{})
	holder, _ := k.ThreadCreate("holder", func() {
		m.Get(Forever)
		close(locked)
		<-release
		m.Put()
	}, 0, 25, true)
	defer holder.Terminate()
	<-locked

	order := make(chan uint32, 2)
	mk := func(prio uint32) *Thread {
		th, _ := k.ThreadCreate("contender", func() {
			m.Get(Forever)
			order <- prio
			m.Put()
		}, 0, prio, true)
		return th
	}
	// arrival order: less urgent first
	second := mk(12)
	waitForState(t, second, StateWaitMutex)
	first := mk(3)
	waitForState(t, first, StateWaitMutex)
	defer second.Terminate()
	defer first.Terminate()

	close(release)
	want := []uint32{3, 12}
	for i, exp := range want {
		select {
		case prio := <-order:
			if prio != exp {
				t.Fatalf("expected handoff %d to priority %d, got %d", i, exp, prio)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for handoff %d", i)
		}
	}
}
