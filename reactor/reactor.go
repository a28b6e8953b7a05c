// Copyright (c) 2014 PIX System, LLC. and Eric Reinecke
//
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

package reactor

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/reinecke/iou"
)

// defaultIdleDelay is how long the worker sleeps when all queues are empty.
const defaultIdleDelay = 100 * time.Millisecond

const nilExecutorPanicMsg = "reactor: the provided executor is nil"

// Executor runs a single submitted request and returns its result.
// Implementations own the transport; the engine owns the queues, the worker,
// and the IOU settlement.
type Executor interface {
	Execute(req any) (any, error)
}

// Engine is a single-worker task runner. Submitted tasks wait in
// per-priority FIFO queues; the worker depletes them from High down to
// Background, runs each task through the Executor, and settles the task's
// IOU with the outcome.
//
// Handlers registered on a task's IOU therefore run on the worker
// goroutine. Handler failures are contained by the IOU dispatch rules and
// never take the worker down.
type Engine struct {
	exec      Executor
	log       hclog.Logger
	idleDelay time.Duration

	mu      sync.Mutex
	queues  map[Priority][]*Task
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. The default discards everything.
func WithLogger(l hclog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithIdleDelay sets how long the worker sleeps between queue polls when
// there's nothing to run.
func WithIdleDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.idleDelay = d
		}
	}
}

// New returns a stopped Engine that will run tasks through exec.
// It panics if exec is nil.
func New(exec Executor, opts ...Option) *Engine {
	if exec == nil {
		panic(nilExecutorPanicMsg)
	}

	e := &Engine{
		exec:      exec,
		log:       hclog.NewNullLogger(),
		idleDelay: defaultIdleDelay,
		queues:    make(map[Priority][]*Task, len(priorities)),
	}
	for _, pri := range priorities {
		e.queues[pri] = nil
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit queues req at the given priority and returns the task, whose IOU
// will be settled once the task has run. Unknown priorities fold into
// Normal.
//
// Submitting to a stopped engine is fine; the task waits until Start.
func (e *Engine) Submit(req any, pri Priority) *Task {
	if _, ok := e.queues[pri]; !ok {
		pri = Normal
	}

	t := &Task{
		ID:        uuid.New(),
		Req:       req,
		Priority:  pri,
		Scheduled: time.Now().UTC(),
	}
	t.IOU = iou.NewNamed(fmt.Sprintf("task-%s", t.ID))

	e.mu.Lock()
	e.queues[pri] = append(e.queues[pri], t)
	e.mu.Unlock()

	e.log.Debug("task submitted", "task", t.ID, "priority", pri)
	return t
}

// Start spins the worker up. It's a no-op on a running engine.
// The engine can be started again after a Stop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	stop, done := e.stop, e.done
	e.mu.Unlock()

	e.log.Debug("engine started")
	go e.run(stop, done)
}

// Stop signals the worker to shut down after its current task, if any.
// It doesn't wait; use Done for that. It's a no-op on a stopped engine.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	stop := e.stop
	e.mu.Unlock()

	e.log.Debug("engine stopping")
	close(stop)
}

// Done returns a channel that's closed once the worker has shut down.
// For an engine that was never started, the channel is already closed.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return e.done
}

func (e *Engine) run(stop, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		default:
		}

		t := e.pop()
		if t == nil {
			select {
			case <-stop:
				return
			case <-time.After(e.idleDelay):
			}
			continue
		}

		e.execute(t)
	}
}

// pop returns the next task to run, depleting the queues from High down to
// Background, or nil when all of them are empty.
func (e *Engine) pop() *Task {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, pri := range priorities {
		q := e.queues[pri]
		if len(q) == 0 {
			continue
		}
		e.queues[pri] = q[1:]
		return q[0]
	}
	return nil
}

// execute runs one task and makes good on its IOU.
func (e *Engine) execute(t *Task) {
	t.Started = time.Now().UTC()
	e.log.Debug("task started", "task", t.ID, "priority", t.Priority)

	res, err := e.exec.Execute(t.Req)
	t.Completed = time.Now().UTC()

	if err != nil {
		e.log.Debug("task failed", "task", t.ID, "error", err)
		if serr := t.IOU.Reject(err); serr != nil {
			// someone settled the task's IOU out from under the engine
			e.log.Warn("task rejection dropped", "task", t.ID, "error", serr)
		}
		return
	}

	e.log.Debug("task completed", "task", t.ID)
	if serr := t.IOU.Fulfill(res); serr != nil {
		e.log.Warn("task fulfillment dropped", "task", t.ID, "error", serr)
	}
}
