package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrRunnerClosed is returned by Do after Close.
var ErrRunnerClosed = errors.New("pipeline: runner closed")

// Runner executes jobs one at a time on a single goroutine locked to its OS
// thread, which is what GL contexts require.
type Runner struct {
	jobs chan func()
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// NewRunner starts the runner goroutine and runs setup on it before any job,
// e.g. to make a GL context current. If setup fails the goroutine exits and
// the error is returned.
func NewRunner(setup func() error) (*Runner, error) {
	r := &Runner{
		jobs: make(chan func()),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	ready := make(chan error, 1)
	go r.loop(setup, ready)
	if err := <-ready; err != nil {
		<-r.done
		return nil, err
	}
	return r, nil
}

func (r *Runner) loop(setup func() error, ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(r.done)

	if setup != nil {
		if err := setup(); err != nil {
			ready <- err
			return
		}
	}
	ready <- nil

	for {
		select {
		case job := <-r.jobs:
			job()
		case <-r.quit:
			return
		}
	}
}

// Do runs fn on the runner thread and waits for it to finish. ctx only bounds
// the wait for the runner to pick the job up. A panic in fn is returned as an
// error.
func (r *Runner) Do(ctx context.Context, fn func()) error {
	var panicErr error
	finished := make(chan struct{})
	job := func() {
		defer close(finished)
		defer func() {
			if p := recover(); p != nil {
				panicErr = fmt.Errorf("pipeline: job panicked: %v", p)
			}
		}()
		fn()
	}

	select {
	case r.jobs <- job:
	case <-r.quit:
		return ErrRunnerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return panicErr
}

// Close stops the runner after the job in progress, if any. It is safe to call
// more than once.
func (r *Runner) Close() {
	r.once.Do(func() { close(r.quit) })
	<-r.done
}
