// Package live holds conflated values: subscribers only ever see the latest
// value, intermediate ones are dropped when a reader falls behind.
package live

import (
	"context"
	"sync"
)

type Value[T any] struct {
	mu      sync.Mutex
	value   T
	set     bool
	version uint64
	subs    map[*subscriber[T]]struct{}
}

type subscriber[T any] struct {
	ch chan T
}

// New returns a Value that already holds v.
func New[T any](v T) *Value[T] {
	return &Value[T]{value: v, set: true}
}

// Set stores v and offers it to every subscriber without blocking.
func (l *Value[T]) Set(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.value = v
	l.set = true
	l.version++

	for sub := range l.subs {
		offer(sub.ch, v)
	}
}

// Get returns the current value and whether one was ever set.
func (l *Value[T]) Get() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.set
}

// Version increases by one on every Set.
func (l *Value[T]) Version() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

// Subscribe returns a channel that first receives the current value (if any)
// and then every later one, conflated. it is closed once ctx is done.
func (l *Value[T]) Subscribe(ctx context.Context) <-chan T {
	sub := &subscriber[T]{ch: make(chan T, 1)}

	l.mu.Lock()
	if l.subs == nil {
		l.subs = make(map[*subscriber[T]]struct{})
	}
	l.subs[sub] = struct{}{}
	if l.set {
		sub.ch <- l.value
	}
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		delete(l.subs, sub)
		close(sub.ch)
		l.mu.Unlock()
	}()

	return sub.ch
}

// offer replaces whatever is buffered in ch with v. callers hold the lock, so
// nobody else sends on ch concurrently.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- v
}
