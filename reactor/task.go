// Copyright (c) 2014 PIX System, LLC. and Eric Reinecke
//
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

package reactor

import (
	"time"

	"github.com/google/uuid"

	"github.com/reinecke/iou"
)

// Priority decides which queue a task lands in. Lower values run first.
type Priority int

const (
	High       Priority = 10
	Normal     Priority = 50
	Background Priority = 90
)

func (p Priority) String() string {
	switch p {
	case High:
		return "high"
	case Normal:
		return "normal"
	case Background:
		return "background"
	default:
		return "<unknown>"
	}
}

// priorities lists the queues in depletion order.
var priorities = [...]Priority{High, Normal, Background}

// Task is a single submitted unit of work, with the IOU that will be made
// good on once the work completes.
type Task struct {
	// ID identifies the task in logs.
	ID uuid.UUID

	// Req is the transport-specific request, handed to the Executor as-is.
	Req any

	// Priority is the queue the task was submitted to.
	Priority Priority

	// IOU is fulfilled with the Executor's result, or rejected with its
	// error, when the task completes.
	IOU *iou.IOU

	// Scheduled, Started, and Completed are set by the engine as the task
	// moves through its life, in UTC.
	Scheduled time.Time
	Started   time.Time
	Completed time.Time
}

// TransportError is the base failure reported by reactor transports.
// Specific transports wrap it with versions carrying transport-specific
// details(the HTTP transport adds the status code, for example).
type TransportError struct {
	// Op names the operation that failed.
	Op string

	// Err is the underlying failure.
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "reactor: " + e.Op
	}
	return "reactor: " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
