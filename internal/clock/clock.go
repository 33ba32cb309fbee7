// Package clock schedules fixed-interval callbacks that can be stopped at any time.
//
// Real drives callbacks from wall-clock tickers. Manual only moves when Advance
// is called, which makes timer-driven code deterministic under test.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Task is a running periodic callback. Stop is idempotent and safe to call from
// inside the callback itself.
type Task interface {
	Stop()
}

// Scheduler starts periodic callbacks.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Task
}

// =============================================================================
// REAL
// =============================================================================

// Real is a Scheduler backed by time.Ticker. Each task owns one goroutine that
// exits once the task is stopped.
type Real struct{}

// Every implements Scheduler.
func (Real) Every(interval time.Duration, fn func()) Task {
	t := &realTask{done: make(chan struct{})}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-t.done:
				return
			case <-ticker.C:
				// Stop may have raced with the tick.
				select {
				case <-t.done:
					return
				default:
				}
				fn()
			}
		}
	}()
	return t
}

type realTask struct {
	once sync.Once
	done chan struct{}
}

func (t *realTask) Stop() {
	t.once.Do(func() { close(t.done) })
}

// =============================================================================
// MANUAL
// =============================================================================

// Manual is a Scheduler whose time only moves on Advance.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*manualTask
}

// NewManual returns a Manual clock at time zero.
func NewManual() *Manual {
	return &Manual{}
}

type manualTask struct {
	m        *Manual
	seq      int
	interval time.Duration
	next     time.Duration
	fn       func()
	stopped  bool
}

// Every implements Scheduler.
func (m *Manual) Every(interval time.Duration, fn func()) Task {
	if interval <= 0 {
		interval = time.Nanosecond
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{m: m, seq: m.seq, interval: interval, next: m.now + interval, fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

func (t *manualTask) Stop() {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.stopped = true
}

// Advance moves time forward by d, firing due callbacks in time order. Callbacks
// run without the clock's lock held, so they may start or stop tasks.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		m.now = t.next
		t.next += t.interval
		m.mu.Unlock()
		t.fn()
		m.mu.Lock()
	}
	m.now = target
	m.mu.Unlock()
}

// nextDue must be called with m.mu held.
func (m *Manual) nextDue(limit time.Duration) *manualTask {
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.stopped {
			live = append(live, t)
		}
	}
	m.tasks = live

	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].next != m.tasks[j].next {
			return m.tasks[i].next < m.tasks[j].next
		}
		return m.tasks[i].seq < m.tasks[j].seq
	})
	if len(m.tasks) == 0 || m.tasks[0].next > limit {
		return nil
	}
	return m.tasks[0]
}

// Active returns the number of running tasks.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Now returns the elapsed manual time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}
