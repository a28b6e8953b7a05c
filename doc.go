// Copyright (c) 2014 PIX System, LLC. and Eric Reinecke
//
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

// Package iou provides a deferred-value primitive: a single-assignment
// container, the IOU, that starts out empty and is later settled exactly
// once, with either a success value or a failure value.
//
// An IOU has three states, and it can be in only one of them, at any time:
// Pending: the IOU hasn't been settled yet.
// Fulfilled: the IOU was settled with a success payload, by Fulfill.
// Rejected: the IOU was settled with a failure payload, by Reject.
// The transition out of Pending is one-way and exactly-once; a second
// settlement attempt fails with ErrAlreadySettled, whichever combination of
// Fulfill and Reject is used. The payload is opaque to the package: it's
// carried, never interpreted.
//
// Handlers are registered against a specific outcome channel, with Then,
// Catch, Finally, or Handle, while the IOU is Pending, and fire in
// registration order once it settles. Every registration returns a new,
// derived IOU representing the handler's eventual outcome, which is what
// makes IOUs composable into dependency graphs:
//
//   - An absent handler passes the settlement through to the derived IOU
//     unmodified.
//   - A handler returning a non-nil error, or panicking, rejects the derived
//     IOU.
//   - A handler returning normally fulfills the derived IOU with its result,
//     even when the handler was registered against the rejected channel.
//   - A handler returning another IOU binds the derived IOU to that IOU's
//     eventual settlement, however long it stays pending(flattening).
//
// Registering on an already-settled IOU fires the matching handler
// immediately, synchronously, before the registration call returns.
//
// An IOU can also be chained to another one wholesale, with PipeTo: the
// target is then settled with the same outcome and payload, whichever kind
// it is.
//
// # Execution model
//
// The package owns no goroutines and no scheduler. Handlers run on
// whichever goroutine settles the IOU(or registers late), and the whole
// chain reaction of derived settlements is driven by an explicit FIFO work
// queue in that same call, so arbitrarily long chains don't grow the call
// stack. Producers wanting asynchrony settle IOUs from goroutines they
// manage themselves; the reactor package is one such producer.
//
// Settlement is safe to race: concurrent Fulfill/Reject calls on one IOU
// resolve to exactly one winner, and a registration racing with settlement
// is either queued before the dispatch drain or dispatched synchronously,
// never lost and never run twice.
//
// Cyclic chains(an IOU transitively chained to itself) are a caller error.
// The work queue keeps them from crashing or looping: a chain settlement
// arriving at an already-settled IOU is dropped. Direct self-references
// fail fast instead(ErrSelfSettle, and the PipeTo self-chain panic).
//
// There is no cancellation, no timeout, and no multi-IOU aggregation; a
// permanently pending IOU simply never fires its handlers, and bounding
// that risk belongs to the caller.
package iou
