// Copyright (c) 2014 PIX System, LLC. and Eric Reinecke
//
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

package reactor

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/reinecke/iou"
)

// fakeExecutor records the order requests were executed in.
type fakeExecutor struct {
	mu    sync.Mutex
	order []string

	// fn, when set, decides the outcome; otherwise requests echo back.
	fn func(req any) (any, error)
}

func (f *fakeExecutor) Execute(req any) (any, error) {
	f.mu.Lock()
	f.order = append(f.order, fmt.Sprint(req))
	f.mu.Unlock()

	if f.fn != nil {
		return f.fn(req)
	}
	return req, nil
}

func (f *fakeExecutor) executed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.order...)
}

func waitSettled(t *testing.T, p *iou.IOU) {
	t.Helper()

	select {
	case <-p.WaitChan():
	case <-time.After(5 * time.Second):
		t.Fatal("iou not settled in time")
	}
}

func newTestEngine(t *testing.T, exec Executor) *Engine {
	t.Helper()

	e := New(exec, WithIdleDelay(time.Millisecond))
	t.Cleanup(func() {
		e.Stop()
		<-e.Done()
	})
	return e
}

func TestNewNilExecutor(t *testing.T) {
	require.PanicsWithValue(t, nilExecutorPanicMsg, func() { New(nil) })
}

func TestSubmit(t *testing.T) {
	e := New(&fakeExecutor{})

	task := e.Submit("req", Normal)
	require.NotEqual(t, uuid.Nil, task.ID)
	require.Equal(t, Normal, task.Priority)
	require.Equal(t, "req", task.Req)
	require.False(t, task.Scheduled.IsZero())
	require.NotNil(t, task.IOU)

	// the engine isn't running, so the task just waits
	require.False(t, task.IOU.IsSettled())
}

func TestSubmitUnknownPriority(t *testing.T) {
	e := New(&fakeExecutor{})

	task := e.Submit("req", Priority(7))
	require.Equal(t, Normal, task.Priority)
}

func TestExecuteFulfills(t *testing.T) {
	exec := &fakeExecutor{
		fn: func(req any) (any, error) { return "result of " + req.(string), nil },
	}
	e := newTestEngine(t, exec)

	task := e.Submit("req", Normal)
	e.Start()
	waitSettled(t, task.IOU)

	require.True(t, task.IOU.IsFulfilled())
	v, err := task.IOU.Value()
	require.NoError(t, err)
	require.Equal(t, "result of req", v)

	require.False(t, task.Started.IsZero())
	require.False(t, task.Completed.IsZero())
	require.False(t, task.Completed.Before(task.Started))
}

func TestExecuteRejects(t *testing.T) {
	cause := errors.New("transport down")
	exec := &fakeExecutor{
		fn: func(req any) (any, error) { return nil, cause },
	}
	e := newTestEngine(t, exec)

	task := e.Submit("req", Normal)
	e.Start()
	waitSettled(t, task.IOU)

	require.True(t, task.IOU.IsRejected())
	require.Same(t, cause, task.IOU.Err())
}

func TestPriorityOrdering(t *testing.T) {
	exec := &fakeExecutor{}
	e := newTestEngine(t, exec)

	// submit out of order, before the worker runs
	bg := e.Submit("bg", Background)
	nm := e.Submit("nm", Normal)
	hi := e.Submit("hi", High)

	e.Start()
	waitSettled(t, bg.IOU)
	waitSettled(t, nm.IOU)
	waitSettled(t, hi.IOU)

	require.Equal(t, []string{"hi", "nm", "bg"}, exec.executed())
}

func TestHandlerChainsRunOnWorker(t *testing.T) {
	exec := &fakeExecutor{}
	e := newTestEngine(t, exec)

	task := e.Submit(41, Normal)
	derived := task.IOU.Then(func(payload any) (any, error) {
		return payload.(int) + 1, nil
	})

	e.Start()
	waitSettled(t, derived)

	v, err := derived.Value()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestHandlerPanicDoesNotKillWorker(t *testing.T) {
	exec := &fakeExecutor{}
	e := newTestEngine(t, exec)

	first := e.Submit("first", Normal)
	derived := first.IOU.Then(func(payload any) (any, error) {
		panic("handler blew up")
	})

	e.Start()
	waitSettled(t, derived)
	require.True(t, derived.IsRejected())

	// the worker must still be alive and running tasks
	second := e.Submit("second", Normal)
	waitSettled(t, second.IOU)
	require.True(t, second.IOU.IsFulfilled())
}

func TestStop(t *testing.T) {
	t.Run("never started", func(t *testing.T) {
		e := New(&fakeExecutor{})
		select {
		case <-e.Done():
		default:
			t.Fatal("Done not closed for a never-started engine")
		}

		// stopping a stopped engine is a no-op
		e.Stop()
	})

	t.Run("started", func(t *testing.T) {
		e := New(&fakeExecutor{}, WithIdleDelay(time.Millisecond))
		e.Start()
		// double start is a no-op
		e.Start()

		e.Stop()
		select {
		case <-e.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("worker didn't shut down in time")
		}
	})

	t.Run("restart", func(t *testing.T) {
		exec := &fakeExecutor{}
		e := newTestEngine(t, exec)

		e.Start()
		e.Stop()
		<-e.Done()

		task := e.Submit("after restart", Normal)
		e.Start()
		waitSettled(t, task.IOU)
		require.True(t, task.IOU.IsFulfilled())
	})
}
