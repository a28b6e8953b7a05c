// Copyright (c) 2014 PIX System, LLC. and Eric Reinecke
//
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

package iou

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadySettled is returned from Fulfill and Reject when the IOU has
	// already left the Pending state. The payload from the first settlement
	// is retained unchanged.
	ErrAlreadySettled = errors.New("iou already settled")

	// ErrNotSettled is returned from Value when the IOU is still Pending.
	ErrNotSettled = errors.New("iou not settled")

	// ErrSelfSettle is returned from Fulfill when an IOU is passed as its
	// own payload. An IOU cannot pay itself.
	ErrSelfSettle = errors.New("iou cannot be settled with itself")
)

// PanicError wraps a panic that happened inside a handler.
// The derived IOU of that handler is rejected with it, so the panic never
// escapes to the settling goroutine.
type PanicError struct {
	// V is the value the handler panicked with.
	V any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("iou handler panicked: %v", e.V)
}
