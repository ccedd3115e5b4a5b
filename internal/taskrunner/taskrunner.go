// Package taskrunner provides a single-goroutine task loop. Each Runner is one
// execution context: tasks posted to it run strictly in arrival order, one at
// a time, on the loop goroutine. The pipeline uses one runner as the control
// context and one per rendering backend, so drawing never blocks control.
package taskrunner

import (
	"errors"
	"sync"
)

var ErrAlreadyStarted = errors.New("taskrunner: already started")

// Runner is a named task loop. Zero value is not usable; call New.
type Runner struct {
	name string

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	started bool
	stopped bool
	wg      sync.WaitGroup
}

func New(name string) *Runner {
	r := &Runner{name: name}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Name identifies the runner in logs.
func (r *Runner) Name() string { return r.name }

// Start spawns the loop goroutine. Only the first call succeeds.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrAlreadyStarted
	}
	r.started = true
	r.wg.Add(1)
	go r.loop()
	return nil
}

// Post enqueues a task for the loop goroutine. It never blocks on task
// execution. Tasks posted before Start run once the loop starts. Returns
// false once the runner has been stopped; the task is discarded in that case.
func (r *Runner) Post(task func()) bool {
	if task == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}
	r.queue = append(r.queue, task)
	r.cond.Signal()
	return true
}

// Stop rejects further posts, drains tasks already queued, and waits for the
// loop goroutine to exit. Idempotent.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started || r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.cond.Broadcast()
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Runner) loop() {
	defer r.wg.Done()
	for {
		r.mu.Lock()
		for len(r.queue) == 0 && !r.stopped {
			r.cond.Wait()
		}
		if len(r.queue) == 0 {
			// Stopped and drained.
			r.mu.Unlock()
			return
		}
		task := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()

		task()
	}
}
