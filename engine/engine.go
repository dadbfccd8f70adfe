// Package engine dispatches completed I/O operations to callbacks on a fixed
// pool of workers that share a single ready queue.
//
// I/O is started with Read or Write. The operation waits on the runtime
// netpoller, so no worker is held while a socket is idle. Once it finishes
// its handler is posted to the ready queue and run by whichever worker
// dequeues it first.
package engine

import (
	"context"
	"io"
	"log/slog"
	"net"
	"runtime"
	"sync/atomic"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"golang.org/x/sync/errgroup"
)

const name = "github.com/freekieb7/hello/engine"

// IOHandler receives the result of a Read or Write.
type IOHandler func(n int, err error)

type Engine struct {
	ready   *RingBuffer[task]
	signal  chan struct{}
	stopped atomic.Bool
	logger  *slog.Logger
}

// task is a queued completion. Once the engine has stopped, owner is closed
// instead of running fn.
type task struct {
	fn    func()
	owner io.Closer
}

func (t task) discard() {
	if t.owner != nil {
		t.owner.Close()
	}
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		ready:  NewRingBuffer[task](),
		signal: make(chan struct{}, QueueSize),
		logger: otelslog.NewLogger(name),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Post queues fn to run on a worker. When the queue is full the caller yields
// until a slot frees up; completions are never dropped while the engine runs.
// It reports false once Run has returned, in which case fn never runs.
func (e *Engine) Post(fn func()) bool {
	return e.post(task{fn: fn})
}

// PostConn is Post for a completion that owns conn. If the engine has
// stopped, conn is closed instead.
func (e *Engine) PostConn(conn io.Closer, fn func()) bool {
	return e.post(task{fn: fn, owner: conn})
}

func (e *Engine) post(t task) bool {
	for e.ready.Enqueue(t) != nil {
		if e.stopped.Load() {
			t.discard()
			return false
		}
		runtime.Gosched()
	}

	// Run may have drained the queue between the check and the enqueue.
	if e.stopped.Load() {
		e.drain()
		return false
	}

	// One signal per queued item, so there is always room while running.
	select {
	case e.signal <- struct{}{}:
	default:
	}
	return true
}

// Read issues a single read into p and posts handler with the result.
func (e *Engine) Read(conn net.Conn, p []byte, handler IOHandler) {
	go func() {
		n, err := conn.Read(p)
		e.PostConn(conn, func() { handler(n, err) })
	}()
}

// Write writes all of p and posts handler with the result.
func (e *Engine) Write(conn net.Conn, p []byte, handler IOHandler) {
	go func() {
		n, err := conn.Write(p)
		e.PostConn(conn, func() { handler(n, err) })
	}()
}

// Run executes completions on threads workers until ctx is done. The calling
// goroutine is one of the workers. An engine runs once: completions still
// queued when ctx ends, or posted afterwards, are discarded and their
// connections closed.
func (e *Engine) Run(ctx context.Context, threads int) error {
	if threads < 1 {
		threads = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 1; i < threads; i++ {
		g.Go(func() error {
			e.work(ctx)
			return nil
		})
	}

	e.work(ctx)

	err := g.Wait()

	e.stopped.Store(true)
	e.drain()

	return err
}

func (e *Engine) drain() {
	for {
		t, err := e.ready.Dequeue()
		if err != nil {
			return
		}
		t.discard()
	}
}

func (e *Engine) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.signal:
		}

		// The signal guarantees an item was queued, but the producer that
		// owns the head slot may not have published it yet.
		for {
			t, err := e.ready.Dequeue()
			if err == nil {
				e.dispatch(ctx, t.fn)
				break
			}
			runtime.Gosched()
		}
	}
}

func (e *Engine) dispatch(ctx context.Context, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "completion panicked", "panic", r)
		}
	}()

	fn()
}
