// rtosdemo runs a small producer/consumer workload on the threadx layer:
// a bounded queue guarded by a priority-inheriting mutex, counting
// semaphores for the full/empty handshake, a critical-section event
// counter, and a join on every worker.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	threadx "github.com/IntergatedCircuits/threadx-go"
)

const queueDepth = 4

type queue struct {
	mu    *threadx.Mutex
	items *threadx.CountingSemaphore
	space *threadx.CountingSemaphore
	buf   [queueDepth]int
	head  int
	tail  int
}

func newQueue() *queue {
	return &queue{
		mu:    threadx.NewMutex(),
		items: threadx.NewCountingSemaphore(queueDepth, 0),
		space: threadx.NewCountingSemaphore(queueDepth, queueDepth),
	}
}

func (q *queue) put(v int) {
	q.space.Acquire()
	q.mu.Lock()
	q.buf[q.head%queueDepth] = v
	q.head++
	q.mu.Unlock()
	q.items.Release(1)
}

func (q *queue) get() int {
	q.items.Acquire()
	q.mu.Lock()
	v := q.buf[q.tail%queueDepth]
	q.tail++
	q.mu.Unlock()
	q.space.Release(1)
	return v
}

func main() {
	count := flag.Int("n", 64, "items to pass through the queue")
	flag.Parse()
	if *count <= 0 {
		fmt.Fprintln(os.Stderr, "rtosdemo: item count must be positive")
		os.Exit(2)
	}

	threadx.Start()
	start := threadx.Now()
	q := newQueue()

	// Counter shared between the two workers, guarded only by critical
	// sections. Each locking scope carries its own CriticalSection.
	events := 0
	countEvent := func() {
		var cs threadx.CriticalSection
		cs.Lock()
		events++
		cs.Unlock()
	}

	sum := 0
	consumer := threadx.NewThread(func() {
		threadx.SleepFor(2 * time.Millisecond)
		for i := 0; i < *count; i++ {
			sum += q.get()
			countEvent()
		}
	}, threadx.Priority(4), "consumer")

	producer := threadx.NewThread(func() {
		threadx.SleepFor(2 * time.Millisecond)
		fmt.Printf("producer is thread %q (id %d)\n",
			threadx.Current().Name(), threadx.CurrentID())
		for i := 1; i <= *count; i++ {
			q.put(i)
			countEvent()
			threadx.Yield()
		}
	}, threadx.Priority(8), "producer")

	// Join both workers while their startup sleep still has them alive.
	producer.Join()
	consumer.Join()

	elapsed := uint32(threadx.Now()) - uint32(start)
	fmt.Printf("passed %d items, sum %d, %d guarded events, in %d ticks (%d Hz tick clock)\n",
		*count, sum, events, elapsed, threadx.TickRateHz)
	fmt.Printf("producer finished %s, consumer finished %s, queue owner %v\n",
		producer.State(), consumer.State(), q.mu.LockingThread())

	producer.Destroy()
	consumer.Destroy()
}
