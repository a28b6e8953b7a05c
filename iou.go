// Copyright (c) 2014 PIX System, LLC. and Eric Reinecke
//
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

package iou

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/reinecke/iou/internal/status"
)

// State describes the settlement state of an IOU.
type State int

const (
	// Pending means the IOU hasn't been settled yet.
	Pending State = iota

	// Fulfilled means the IOU was settled with a success payload.
	Fulfilled

	// Rejected means the IOU was settled with a failure payload.
	Rejected
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "<unknown>"
	}
}

// IOU is a single-assignment container for a value that's not known yet.
//
// It starts out Pending, and is settled exactly once, by either Fulfill or
// Reject. Handlers registered against either outcome fire in registration
// order once the IOU settles, each producing a new, derived IOU for further
// chaining.
//
// An IOU must be created by New or NewNamed.
// The zero value has no settled channel, so Wait and WaitChan calls on it
// will block forever.
type IOU struct {
	// name identifies the IOU in trace output.
	name string

	// hold the settlement state of the IOU.
	// refer to the docs of the IOUStatus type for more info.
	status status.IOUStatus

	// closed when this IOU is settled.
	// it has one writer, the settlement call that won the status
	// reservation, but can have any number of waiting readers.
	settled chan struct{}

	// mu guards entries, and the write of payload.
	// it's never held while a handler runs.
	mu sync.Mutex

	// entries is the handler registry. it grows while Pending, and is
	// drained, in insertion order, exactly once, at settlement.
	entries []entry

	// payload holds either the success value or the failure value.
	// written once, before the final state is committed.
	//
	// don't read it unless the status is known to be settled.
	payload any
}

// iouCount feeds the default "#N" names.
var iouCount int64

// New returns a fresh, Pending IOU with an empty handler registry.
func New() *IOU {
	return NewNamed("")
}

// NewNamed is like New, but gives the IOU an explicit name for trace output.
// An empty name is replaced with an auto-generated "#N" one.
func NewNamed(name string) *IOU {
	if name == "" {
		name = "#" + strconv.FormatInt(atomic.AddInt64(&iouCount, 1), 10)
	}
	p := &IOU{
		name:    name,
		settled: make(chan struct{}),
	}
	logger.Trace("iou created", "iou", p.name)
	return p
}

// Name returns the IOU's name.
func (p *IOU) Name() string {
	return p.name
}

func (p *IOU) String() string {
	return fmt.Sprintf("<IOU %s>", p.name)
}

// State returns the current settlement state.
func (p *IOU) State() State {
	s := p.status.Load()
	switch {
	case status.IsFulfilled(s):
		return Fulfilled
	case status.IsRejected(s):
		return Rejected
	default:
		return Pending
	}
}

// IsSettled returns true once the IOU has been either fulfilled or rejected.
func (p *IOU) IsSettled() bool {
	return status.IsSettled(p.status.Load())
}

// IsFulfilled returns true, only if the IOU was settled with Fulfill.
func (p *IOU) IsFulfilled() bool {
	return status.IsFulfilled(p.status.Load())
}

// IsRejected returns true, only if the IOU was settled with Reject.
func (p *IOU) IsRejected() bool {
	return status.IsRejected(p.status.Load())
}

// Value returns the payload the IOU was settled with, whichever the outcome.
// For a rejected IOU, the payload is the failure value passed to Reject, so
// a rejection is never silently dropped, even with no rejection handlers.
//
// It returns ErrNotSettled while the IOU is still Pending. Callers should
// check IsSettled first, call Wait, or register handlers instead of polling.
func (p *IOU) Value() (any, error) {
	if !status.IsSettled(p.status.Load()) {
		return nil, ErrNotSettled
	}
	// the payload write happens before the final state commit, so a settled
	// status load makes the payload safe to read without the lock.
	return p.payload, nil
}

// Err returns the failure value of a rejected IOU, and nil otherwise.
func (p *IOU) Err() error {
	if !status.IsRejected(p.status.Load()) {
		return nil
	}
	err, _ := p.payload.(error)
	return err
}

// Wait blocks until the IOU is settled.
//
// A permanently pending IOU never unblocks its waiters. Bounding how long to
// wait is the caller's business, typically by selecting on WaitChan.
func (p *IOU) Wait() {
	<-p.settled
}

// WaitChan returns a channel that's closed once the IOU is settled.
// It's meant for select-based waiting.
func (p *IOU) WaitChan() <-chan struct{} {
	return p.settled
}
