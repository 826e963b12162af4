package workloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// WorkLoop runs a body function in a goroutine, and lets the body sleep
// between iterations until it is woken, the poll interval elapses or
// shutdown is requested. Shutdown is cooperative: the body is expected to
// check ShuttingDown at each iteration boundary and return.
type WorkLoop struct {
	name     string
	interval time.Duration
	state    atomic.Int32
	wake     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	err      error
}

// Func is the body of a loop. The loop is stopped when it returns.
type Func func(context.Context, *WorkLoop) error

// State of a loop
type State int32

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	Idle State = iota
	Running
	Sleeping
	ShuttingDown
	Stopped
)

var (
	ErrInvalidInterval = errors.New("interval must be > 0")
	ErrAlreadyStarted  = errors.New("loop has already been started")
)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New returns a loop which polls at the given interval
func New(name string, interval time.Duration) (*WorkLoop, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	return &WorkLoop{
		name:     name,
		interval: interval,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Run starts the body in a goroutine. A panic in the body stops the loop
// and is returned as an error from ShutDown and Err.
func (w *WorkLoop) Run(ctx context.Context, body Func) error {
	if !w.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return fmt.Errorf("%s: %w", w.name, ErrAlreadyStarted)
	}
	go func() {
		defer close(w.done)
		defer w.state.Store(int32(Stopped))
		defer func() {
			if r := recover(); r != nil {
				w.err = fmt.Errorf("%s: panic: %v", w.name, r)
			}
		}()
		w.err = body(ctx, w)
	}()
	return nil
}

// ShutDown requests the loop to stop, wakes it, and waits for the body to
// return. Returns the error returned by the body. Calling ShutDown on a
// loop which was never started marks it as stopped.
func (w *WorkLoop) ShutDown() error {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	if w.state.CompareAndSwap(int32(Idle), int32(Stopped)) {
		close(w.done)
		return nil
	}
	for {
		s := w.State()
		if s == ShuttingDown || s == Stopped || w.compareAndSet(s, ShuttingDown) {
			break
		}
	}
	<-w.done
	return w.err
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (w *WorkLoop) String() string {
	return fmt.Sprintf("<workloop %q interval=%v state=%v>", w.name, w.interval, w.State())
}

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Sleeping:
		return "sleeping"
	case ShuttingDown:
		return "shutting-down"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Name returns the name of the loop
func (w *WorkLoop) Name() string {
	return w.name
}

// State returns the current state of the loop
func (w *WorkLoop) State() State {
	return State(w.state.Load())
}

// Wake interrupts a sleeping loop. If the loop is not sleeping, the next
// call to Sleep returns immediately. Multiple wakes before a sleep are
// coalesced into one.
func (w *WorkLoop) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Sleep blocks until Wake is called, the interval elapses, shutdown is
// requested or the context is done. Returns immediately when shutting down.
func (w *WorkLoop) Sleep(ctx context.Context) {
	if w.ShuttingDown() {
		return
	}

	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	w.compareAndSet(Running, Sleeping)
	defer w.compareAndSet(Sleeping, Running)

	select {
	case <-w.wake:
	case <-timer.C:
	case <-w.stop:
	case <-ctx.Done():
	}
}

// ShuttingDown returns true once ShutDown has been called
func (w *WorkLoop) ShuttingDown() bool {
	select {
	case <-w.stop:
		return true
	default:
		return false
	}
}

// Done returns a channel which is closed when the loop has stopped
func (w *WorkLoop) Done() <-chan struct{} {
	return w.done
}

// Err returns the error returned by the body, once the loop has stopped
func (w *WorkLoop) Err() error {
	select {
	case <-w.done:
		return w.err
	default:
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (w *WorkLoop) compareAndSet(from, to State) bool {
	return w.state.CompareAndSwap(int32(from), int32(to))
}
