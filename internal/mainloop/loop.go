// Package mainloop provides the serial executor every completion and
// notification in imagefeed is delivered on.
package mainloop

import (
	"context"
	"sync"

	"go.uber.org/fx"
)

// Dispatcher schedules work on a single serial context
type Dispatcher interface {
	// Async enqueues fn and returns immediately. It never blocks.
	Async(fn func())
}

// Loop is a FIFO Dispatcher drained by a single goroutine running Run.
// Jobs enqueued before Run starts are kept and executed once it does.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
}

// New creates an idle loop; call Run to start draining it
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Async implements Dispatcher
func (l *Loop) Async(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Sync enqueues fn and waits for it to run. It must not be called from a
// job already running on the loop.
func (l *Loop) Sync(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Async(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue until ctx is done. Jobs still queued at that point
// are discarded.
func (l *Loop) Run(ctx context.Context) {
	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			fn()
			if ctx.Err() != nil {
				break
			}
		}

		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.stopped = true
			l.queue = nil
			l.mu.Unlock()
			return
		case <-l.wake:
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// Module provides a Loop, started and stopped with the fx application
var Module = fx.Options(
	fx.Provide(
		New,
		func(l *Loop) Dispatcher { return l },
	),
	fx.Invoke(func(lc fx.Lifecycle, l *Loop) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					defer close(done)
					l.Run(ctx)
				}()
				return nil
			},
			OnStop: func(stopCtx context.Context) error {
				cancel()
				select {
				case <-done:
					return nil
				case <-stopCtx.Done():
					return stopCtx.Err()
				}
			},
		})
	}),
)
