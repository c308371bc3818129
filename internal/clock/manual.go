package clock

import (
	"sync"
	"time"
)

// Manual is a Timer that only fires when told to. its time only moves when
// Fire is called.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	waiters []waiter
}

type waiter struct {
	ch chan time.Time
	d  time.Duration
}

func NewManual() *Manual {
	return &Manual{now: time.Unix(0, 0)}
}

func (m *Manual) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)

	m.mu.Lock()
	m.waiters = append(m.waiters, waiter{ch: ch, d: d})
	m.mu.Unlock()

	return ch
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Waiting reports how many After calls have not fired yet.
func (m *Manual) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}

// Fire waits up to timeout for at least one pending After call and then fires
// all of them, moving the time forward by the longest wait. it returns false
// if nobody was waiting.
func (m *Manual) Fire(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for m.Waiting() == 0 {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}

	m.mu.Lock()
	waiters := m.waiters
	m.waiters = nil
	var step time.Duration
	for _, w := range waiters {
		step = max(step, w.d)
	}
	m.now = m.now.Add(step)
	now := m.now
	m.mu.Unlock()

	for _, w := range waiters {
		w.ch <- now
	}
	return true
}
