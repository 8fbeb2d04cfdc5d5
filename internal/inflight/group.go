// Package inflight coalesces requests for the same resource key and lets a
// newer key supersede an older one.
package inflight

import (
	"context"
	"sync"

	"github.com/brizzai/imagefeed/internal/logger"
	"github.com/brizzai/imagefeed/internal/mainloop"
	"go.uber.org/zap"
)

// Group allows at most one call in flight. A call for the key already in
// flight joins it; a call for another key cancels the running one, whose
// completions are then never invoked. Completions run on the dispatcher.
type Group[T any] struct {
	name       string
	dispatcher mainloop.Dispatcher

	mu  sync.Mutex
	cur *call[T]
}

type call[T any] struct {
	key     string
	cancel  context.CancelFunc
	waiters []func(T, error)
}

// NewGroup creates a group; name only shows up in logs
func NewGroup[T any](name string, d mainloop.Dispatcher) *Group[T] {
	return &Group[T]{name: name, dispatcher: d}
}

// Do starts fn for key, or joins the call already running for key.
//
// commit, when non-nil, runs after fn succeeds and only if the call was not
// superseded in the meantime; an error from commit becomes the result.
// commit runs under the group lock and must not call back into the group.
//
// Do reports whether the caller joined an existing call.
func (g *Group[T]) Do(key string, fn func(ctx context.Context) (T, error), commit func(T) error, done func(T, error)) bool {
	if done == nil {
		done = func(T, error) {}
	}

	g.mu.Lock()
	if c := g.cur; c != nil {
		if c.key == key {
			c.waiters = append(c.waiters, done)
			g.mu.Unlock()
			logger.Debug("joined in-flight request", zap.String("group", g.name), zap.String("key", key))
			return true
		}
		c.cancel()
		logger.Debug("superseding in-flight request",
			zap.String("group", g.name),
			zap.String("old_key", c.key),
			zap.String("new_key", key),
			zap.Int("dropped_waiters", len(c.waiters)),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &call[T]{key: key, cancel: cancel, waiters: []func(T, error){done}}
	g.cur = c
	g.mu.Unlock()

	go g.run(ctx, c, fn, commit)
	return false
}

func (g *Group[T]) run(ctx context.Context, c *call[T], fn func(context.Context) (T, error), commit func(T) error) {
	result, err := fn(ctx)

	g.mu.Lock()
	if g.cur != c {
		g.mu.Unlock()
		logger.Debug("dropping superseded result", zap.String("group", g.name), zap.String("key", c.key))
		return
	}
	g.cur = nil
	c.cancel()
	if err == nil && commit != nil {
		if commitErr := commit(result); commitErr != nil {
			var zero T
			result, err = zero, commitErr
		}
	}
	waiters := c.waiters
	g.mu.Unlock()

	g.dispatcher.Async(func() {
		for _, w := range waiters {
			w(result, err)
		}
	})
}

// Cancel aborts the call in flight, if any, without invoking its completions
func (g *Group[T]) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cur != nil {
		g.cur.cancel()
		g.cur = nil
	}
}

// Await adapts a completion-style operation to a blocking call. If ctx ends
// first Await returns ctx.Err(); the operation itself keeps running.
func Await[T any](ctx context.Context, start func(done func(T, error))) (T, error) {
	type outcome struct {
		value T
		err   error
	}
	ch := make(chan outcome, 1)
	start(func(v T, err error) {
		ch <- outcome{value: v, err: err}
	})

	select {
	case o := <-ch:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
