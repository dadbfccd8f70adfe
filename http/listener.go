package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/freekieb7/hello/engine"
)

const (
	acceptRetryMin = 5 * time.Millisecond
	acceptRetryMax = time.Second
)

// Listener owns the passive socket. It keeps exactly one accept outstanding
// while open and hands every accepted socket to the engine.
type Listener struct {
	addr    string
	backlog int

	engine  *engine.Engine
	handle  func(net.Conn)
	logger  *slog.Logger
	metrics *metrics
	retry   backoff.BackOff

	ln   net.Listener
	open atomic.Bool
	done chan struct{}
}

// Start binds and listens, then begins accepting. A bind or listen failure is
// returned and nothing is ever accepted.
func (l *Listener) Start() error {
	ln, err := listen(l.addr, l.backlog)
	if err != nil {
		l.logger.Error("failed to bind the acceptor", "addr", l.addr, "error", err)
		return fmt.Errorf("http: listen on %s: %w", l.addr, err)
	}

	l.serve(ln)
	return nil
}

func (l *Listener) serve(ln net.Listener) {
	if l.retry == nil {
		retry := backoff.NewExponentialBackOff()
		retry.InitialInterval = acceptRetryMin
		retry.MaxInterval = acceptRetryMax
		retry.MaxElapsedTime = 0
		retry.Reset()
		l.retry = retry
	}

	l.ln = ln
	l.done = make(chan struct{})
	l.open.Store(true)

	go l.acceptLoop()
}

func (l *Listener) acceptLoop() {
	defer close(l.done)

	for {
		conn, err := l.ln.Accept()
		if !l.open.Load() {
			if conn != nil {
				conn.Close()
			}
			return
		}

		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			// Accept failures are transient, skip and keep accepting
			delay := l.retry.NextBackOff()
			l.metrics.acceptErrors.Add(context.Background(), 1)
			l.logger.Debug("accept failed", "error", err, "retry_in", delay)
			time.Sleep(delay)
			continue
		}
		l.retry.Reset()

		l.engine.PostConn(conn, func() { l.handle(conn) })
	}
}

func (l *Listener) Address() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Close stops accepting and waits for the accept loop to exit.
func (l *Listener) Close() error {
	if !l.open.CompareAndSwap(true, false) {
		return nil
	}

	err := l.ln.Close()
	<-l.done
	return err
}
