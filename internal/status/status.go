// Copyright (c) 2014 PIX System, LLC. and Eric Reinecke
//
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

package status

import (
	"runtime"
	"sync/atomic"
)

var (
	cas  = atomic.CompareAndSwapUint32
	load = atomic.LoadUint32
	swap = atomic.SwapUint32
)

// IOUStatus holds the settlement state of the corresponding IOU.
// It's read and written/updated atomically.
type IOUStatus uint32

// the lock's related value, using the 1st bit
const (
	// lockAcquired is the value of the status while some update call is
	// running(the TrySettling, SetFulfilled, or SetRejected methods).
	lockAcquired uint32 = 1
)

// the state's related values and constants, using 2 bits(the [2nd : 3rd] bits)
const (
	// starting with a shift amount of 1, which is the number of bits used by
	// the previous section.

	// state modes, using 2 bits.
	// statePending is the initial state.
	// stateSettling is a transient state, owned exclusively by the settlement
	// call that won the TrySettling race, until it commits the final state.
	statePending   uint32 = iota << 1
	stateSettling  uint32 = iota << 1
	stateFulfilled uint32 = iota << 1
	stateRejected  uint32 = iota << 1

	// stateBitsSetMask and stateBitsClrMask are &-ed with the status to get
	// the state value and clear the state value, respectively.
	stateBitsSetMask = stateRejected
	stateBitsClrMask = ^stateBitsSetMask
)

func (s *IOUStatus) readAndAcquireLock() (currentStatus uint32) {
	// read the current status value, and acquire the update lock, by
	// checking if there's any other, previous, update call still
	// processing, and wait for it to finish.
	cs := swap((*uint32)(s), lockAcquired)
	for cs == lockAcquired {
		// don't actively wait for concurrent update calls, instead,
		// tell the go scheduler to run other goroutines(including the
		// one which has the lock) instead of the current(waiting) one.
		runtime.Gosched()
		cs = swap((*uint32)(s), lockAcquired)
	}
	// at this point, the value of the current status, cs, here is
	// only available to this method and its caller.
	return cs
}

func (s *IOUStatus) saveAndReleaseLock(newStatus uint32) {
	// save the new status value, and release the update lock
	if !cas((*uint32)(s), lockAcquired, newStatus) {
		// panic if the status value has been changed unexpectedly
		panic("iou: internal: unexpected status change")
	}
}

// Load returns the current status value, if it's not being updated right now,
// and if it's, it waits until it's updated then returns the value.
func (s *IOUStatus) Load() (currentStatus uint32) {
	cs := load((*uint32)(s))
	for cs == lockAcquired {
		cs = load((*uint32)(s))
	}
	return cs
}

// TrySettling attempts to move the state from Pending to Settling, which
// reserves the one-and-only settlement for the calling settlement call.
// It returns ok = true only for the single caller that wins that
// reservation. All later(or concurrently losing) calls get ok = false.
func (s *IOUStatus) TrySettling() (ok bool, status uint32) {
	cs := s.readAndAcquireLock()
	ns := cs

	if ns&stateBitsSetMask != statePending {
		// the reservation has already been taken, nothing to update
		s.saveAndReleaseLock(ns)
		return false, ns
	}

	ns &= stateBitsClrMask
	ns |= stateSettling
	s.saveAndReleaseLock(ns)
	return true, ns
}

// SetFulfilled commits the Fulfilled state.
// It must be called only by the settlement call that owns the Settling
// reservation, after the payload has been stored.
func (s *IOUStatus) SetFulfilled() (status uint32) {
	return s.commitState(stateFulfilled)
}

// SetRejected commits the Rejected state.
// It must be called only by the settlement call that owns the Settling
// reservation, after the payload has been stored.
func (s *IOUStatus) SetRejected() (status uint32) {
	return s.commitState(stateRejected)
}

func (s *IOUStatus) commitState(state uint32) (status uint32) {
	cs := s.readAndAcquireLock()
	ns := cs

	if ns&stateBitsSetMask != stateSettling {
		// committing without holding the settling reservation is an
		// internal bug, not a caller error
		s.saveAndReleaseLock(ns)
		panic("iou: internal: state committed without a settling reservation")
	}

	ns &= stateBitsClrMask
	ns |= state
	s.saveAndReleaseLock(ns)
	return ns
}

// IsPending returns true if the state hasn't left Pending yet.
func IsPending(status uint32) bool {
	return status&stateBitsSetMask == statePending
}

// IsSettling returns true if some settlement call holds the reservation but
// hasn't committed the final state yet.
func IsSettling(status uint32) bool {
	return status&stateBitsSetMask == stateSettling
}

// IsFulfilled returns true, only if the state is Fulfilled.
func IsFulfilled(status uint32) bool {
	return status&stateBitsSetMask == stateFulfilled
}

// IsRejected returns true, only if the state is Rejected.
func IsRejected(status uint32) bool {
	return status&stateBitsSetMask == stateRejected
}

// IsSettled returns true, only if the state is Fulfilled or Rejected.
// A Settling status is not settled yet: its payload may not be visible.
func IsSettled(status uint32) bool {
	return status&stateBitsSetMask >= stateFulfilled
}
