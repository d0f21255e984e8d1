/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package scheduler

import (
	"container/heap"
	"sync"
	"time"

	"github.com/chirp-im/chirp/log"
)

// Scheduler executes deferred tasks on a single background goroutine.
// One instance is shared by every keepalive manager across all
// connections, so background resource usage stays constant no matter
// how many connections are alive. Tasks are expected to be short.
type Scheduler struct {
	name string

	mu    sync.Mutex
	tasks taskHeap
	seq   int64

	wakeCh   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// Task represents a scheduled task handle.
type Task struct {
	s     *Scheduler
	fn    func()
	due   time.Time
	seq   int64
	index int
}

// New returns a new initialized scheduler.
func New(name string) *Scheduler {
	s := &Scheduler{
		name:   name,
		wakeCh: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Schedule arranges for fn to run on the scheduler goroutine once d elapses.
func (s *Scheduler) Schedule(d time.Duration, fn func()) *Task {
	s.mu.Lock()
	t := &Task{
		s:   s,
		fn:  fn,
		due: time.Now().Add(d),
		seq: s.seq,
	}
	s.seq++
	heap.Push(&s.tasks, t)
	s.mu.Unlock()

	s.wake()
	return t
}

// Shutdown stops the scheduler goroutine. Pending tasks never run.
func (s *Scheduler) Shutdown() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Cancel removes the task from its scheduler. Cancelling an already
// executed or cancelled task has no effect.
func (t *Task) Cancel() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.index >= 0 {
		heap.Remove(&t.s.tasks, t.index)
	}
}

// runs on its own goroutine
func (s *Scheduler) loop() {
	for {
		var due []func()

		s.mu.Lock()
		now := time.Now()
		for len(s.tasks) > 0 && !s.tasks[0].due.After(now) {
			t := heap.Pop(&s.tasks).(*Task)
			due = append(due, t.fn)
		}
		var wait time.Duration
		hasNext := len(s.tasks) > 0
		if hasNext {
			wait = s.tasks[0].due.Sub(now)
		}
		s.mu.Unlock()

		for _, fn := range due {
			s.run(fn)
		}
		if hasNext {
			tm := time.NewTimer(wait)
			select {
			case <-tm.C:
			case <-s.wakeCh:
				tm.Stop()
			case <-s.stopCh:
				tm.Stop()
				return
			}
		} else {
			select {
			case <-s.wakeCh:
			case <-s.stopCh:
				return
			}
		}
	}
}

func (s *Scheduler) run(fn func()) {
	defer func() {
		if err := recover(); err != nil {
			log.Errorf("scheduler %s task panicked with error: %v", s.name, err)
		}
	}()
	fn()
}

func (s *Scheduler) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x interface{}) {
	t := x.(*Task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
