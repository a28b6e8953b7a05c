// Copyright (c) 2014 PIX System, LLC. and Eric Reinecke
//
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

package iou

import "github.com/reinecke/iou/internal/status"

// panic messages
const (
	nilCallbackPanicMsg = "iou: the provided handler is nil"
	nilTargetPanicMsg   = "iou: the provided chain target is nil"
	selfChainPanicMsg   = "iou: an iou cannot handle itself"
)

// Handler is a callback registered against one outcome channel of an IOU.
//
// It receives the payload the IOU was settled with. Returning a non-nil err
// rejects the handler's derived IOU with it. Returning a nil err fulfills
// the derived IOU with res, even when the handler was registered against the
// rejected channel(that's how a rejection handler recovers). Returning
// another IOU as res binds the derived IOU to that IOU's eventual outcome
// instead.
//
// A panic inside a Handler is captured and converted into a rejection of the
// derived IOU, with a PanicError payload. It never reaches the settling
// goroutine.
type Handler func(payload any) (res any, err error)

// slot is one outcome channel of a registry entry.
// It's a tagged variant: absent(both fields nil), a callback, or a chain
// target IOU that must mirror the settlement.
type slot struct {
	cb    Handler
	chain *IOU
}

func (s slot) absent() bool {
	return s.cb == nil && s.chain == nil
}

// entry is a single handler registration: one slot per outcome channel, and
// the derived IOU that represents the selected handler's eventual outcome.
// The entry and its derived IOU are created together, atomically.
type entry struct {
	onFulfilled slot
	onRejected  slot
	derived     *IOU
}

// Handle registers a handler pair against both outcome channels, and returns
// a new, derived IOU representing the outcome of whichever handler ends up
// selected at settlement.
//
// Either handler may be nil. An absent handler passes the settlement through
// to the derived IOU unmodified, which is how unhandled outcomes propagate
// down a chain.
//
// If the IOU is already settled, the matching handler fires immediately,
// synchronously, before Handle returns.
func (p *IOU) Handle(onFulfilled, onRejected Handler) *IOU {
	return p.register(slot{cb: onFulfilled}, slot{cb: onRejected})
}

// Then registers a handler for the fulfilled outcome, and returns the
// derived IOU. A rejection passes through the derived IOU unmodified,
// without invoking h.
//
// It panics if h is nil; use Handle for optional handlers.
func (p *IOU) Then(h Handler) *IOU {
	if h == nil {
		panic(nilCallbackPanicMsg)
	}
	return p.register(slot{cb: h}, slot{})
}

// Catch registers a handler for the rejected outcome, and returns the
// derived IOU. A fulfillment passes through the derived IOU unmodified,
// without invoking h.
//
// Note that a Catch handler returning a nil error recovers: its derived IOU
// is fulfilled with the returned value.
//
// It panics if h is nil; use Handle for optional handlers.
func (p *IOU) Catch(h Handler) *IOU {
	if h == nil {
		panic(nilCallbackPanicMsg)
	}
	return p.register(slot{}, slot{cb: h})
}

// Finally registers a handler for both outcome channels at once, and returns
// the derived IOU. The handler fires exactly once, with whichever payload
// the IOU settles with.
//
// It panics if h is nil.
func (p *IOU) Finally(h Handler) *IOU {
	if h == nil {
		panic(nilCallbackPanicMsg)
	}
	return p.register(slot{cb: h}, slot{cb: h})
}

// PipeTo chains target to this IOU: whenever, and however, this IOU settles,
// target is settled with the same outcome and payload. The returned derived
// IOU mirrors the settlement as well, since the supplied target is,
// conceptually, the handler's output placeholder.
//
// Chaining is outcome-agnostic: a rejection propagates into target the same
// way a fulfillment does.
//
// It panics if target is nil, or if target is the IOU itself.
func (p *IOU) PipeTo(target *IOU) *IOU {
	if target == nil {
		panic(nilTargetPanicMsg)
	}
	if target == p {
		panic(selfChainPanicMsg)
	}
	logger.Trace("iou chained", "iou", p.name, "target", target.name)
	return p.register(slot{chain: target}, slot{chain: target})
}

// register creates the derived IOU and appends the registry entry, as a
// single atomic step with respect to settlement: the entry is either queued
// before the drain, or dispatched synchronously right here, when the IOU is
// observed settled. It's never dropped, and never dispatched twice.
func (p *IOU) register(onFulfilled, onRejected slot) *IOU {
	derived := New()
	e := entry{
		onFulfilled: onFulfilled,
		onRejected:  onRejected,
		derived:     derived,
	}

	p.mu.Lock()
	s := p.status.Load()
	if !status.IsSettled(s) {
		// covers the Settling status too: the drain happens under mu,
		// after the final state commit, so the entry will be picked up.
		p.entries = append(p.entries, e)
		p.mu.Unlock()
		return derived
	}
	payload := p.payload
	p.mu.Unlock()

	// late registration: dispatch this single entry now, on the calling
	// goroutine, instead of queuing it.
	st := Fulfilled
	if status.IsRejected(s) {
		st = Rejected
	}
	pump([]job{{kind: jobDispatch, ent: e, state: st, payload: payload}})
	return derived
}
