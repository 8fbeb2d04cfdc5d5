// Package events provides typed observer registration on top of the main loop.
package events

import (
	"sync"

	"github.com/brizzai/imagefeed/internal/mainloop"
)

// Bus fans a value of type T out to every registered observer. Observers
// always run on the dispatcher, one after another, in registration order.
type Bus[T any] struct {
	dispatcher mainloop.Dispatcher

	mu        sync.Mutex
	nextID    int
	observers []observer[T]
}

type observer[T any] struct {
	id int
	fn func(T)
}

// NewBus creates a bus delivering on d
func NewBus[T any](d mainloop.Dispatcher) *Bus[T] {
	return &Bus[T]{dispatcher: d}
}

// Subscribe registers fn and returns a function that removes it again.
// An observer removed before a pending delivery runs is not called.
func (b *Bus[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.observers = append(b.observers, observer[T]{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, o := range b.observers {
				if o.id == id {
					b.observers = append(b.observers[:i:i], b.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish schedules delivery of v to the observers registered right now
func (b *Bus[T]) Publish(v T) {
	b.dispatcher.Async(func() {
		for _, o := range b.snapshot() {
			if b.registered(o.id) {
				o.fn(v)
			}
		}
	})
}

// Chan returns a channel receiving every published value plus a function
// that unsubscribes and closes it. Values are dropped when the channel is
// full, so a slow reader only misses notifications.
func (b *Bus[T]) Chan(size int) (<-chan T, func()) {
	ch := make(chan T, size)
	var mu sync.Mutex
	closed := false
	unsubscribe := b.Subscribe(func(v T) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- v:
		default:
		}
	})
	return ch, func() {
		unsubscribe()
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(ch)
		}
	}
}

func (b *Bus[T]) snapshot() []observer[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]observer[T], len(b.observers))
	copy(out, b.observers)
	return out
}

func (b *Bus[T]) registered(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, o := range b.observers {
		if o.id == id {
			return true
		}
	}
	return false
}
