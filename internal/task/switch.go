// Package task runs at most one background job at a time per Switch. starting
// a new job cancels the previous one and waits for it to return first.
package task

import (
	"context"
	"sync"
)

type Switch struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Go cancels the running job (if any), waits for it, then starts fn in a new
// goroutine with a context derived from parent.
func (s *Switch) Go(parent context.Context, fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		fn(ctx)
	}()
}

// Stop cancels the running job and blocks until it has returned. safe to call
// when nothing is running.
func (s *Switch) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Wait blocks until the running job (if any) returns on its own.
func (s *Switch) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (s *Switch) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

// Group tracks long-lived goroutines so they can all be joined on shutdown.
type Group struct {
	wg sync.WaitGroup
}

func (g *Group) Go(fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn()
	}()
}

func (g *Group) Wait() {
	g.wg.Wait()
}
