// Copyright (c) 2014 PIX System, LLC. and Eric Reinecke
//
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

// Package status represents values for the IOU's settlement status.
//
// The value is split into 2 sections, state, and lock, as follows, starting
// from the right:
// - The lock section takes 1 bit.
// - The state section takes 2 bits.
//
// Description of the sections:
//
//   - The lock section.
//     = Although it's named 'lock', it doesn't use any Mutexes.
//     = The lock is implemented through atomic writing, reading, and updating
//     of the status value.
//     = The lock logic is just a way to tell newcomers(that want to update
//     the status) that: "the value is currently being updated by some
//     previous update call, so wait here until it finishes, then you can get
//     your chance to update the status too".
//     = The whole waiting behaviour is passed to the go scheduler(through a
//     call to runtime.Gosched) to decide which goroutine should run now(and
//     hence acquire the lock first).
//     = The lock is acquired for only a small period of time by any call,
//     because the operations done while the lock is acquired are very basic
//     (and, or, assign, compare).
//
//   - The state section describes the settlement state of the IOU.
//     = 4 mutually exclusive possible values, represented by 2 bits:
//
//   - Pending: the IOU hasn't been settled yet.
//
//   - Settling: some settlement call won the TrySettling reservation, and is
//     about to store the payload and commit the final state.
//     It's an internal state that makes the Pending -> settled
//     transition exactly-once: concurrent settlement calls race on
//     the reservation, and exactly one wins.
//     Observers must treat it as not settled, since the payload may
//     not be stored yet.
//
//   - Fulfilled: the IOU was settled with a success payload.
//
//   - Rejected: the IOU was settled with a failure payload.
//     = The state value is written at most twice: once when reserving the
//     settlement, and once when committing the final state.
//     = Once the state is Fulfilled or Rejected it never changes again, and
//     the payload is immutable.
package status
