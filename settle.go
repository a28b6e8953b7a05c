// Copyright (c) 2014 PIX System, LLC. and Eric Reinecke
//
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

package iou

import "github.com/reinecke/iou/internal/status"

// Fulfill settles the IOU with a success payload.
//
// It may be called at most once per IOU, across both Fulfill and Reject.
// Any later settlement attempt returns ErrAlreadySettled, and the payload
// from the first settlement is retained unchanged. Concurrent settlement
// calls race on an atomic reservation, so exactly one of them wins.
//
// All handlers registered so far fire before Fulfill returns, in
// registration order, on the calling goroutine.
func (p *IOU) Fulfill(value any) error {
	if v, ok := value.(*IOU); ok && v == p {
		return ErrSelfSettle
	}
	if ok, _ := p.status.TrySettling(); !ok {
		return ErrAlreadySettled
	}
	logger.Trace("iou fulfilling", "iou", p.name)
	pump(p.commit(Fulfilled, value))
	return nil
}

// Reject settles the IOU with a failure payload.
// It follows the same exactly-once and dispatch rules as Fulfill.
func (p *IOU) Reject(cause error) error {
	if ok, _ := p.status.TrySettling(); !ok {
		return ErrAlreadySettled
	}
	logger.Trace("iou rejecting", "iou", p.name, "cause", cause)
	pump(p.commit(Rejected, cause))
	return nil
}

// commit stores the payload, commits the final state, unblocks the waiters,
// and drains the handler registry. It must be called only by the settlement
// call that owns the status reservation.
//
// It returns the dispatch work for the drained entries instead of running
// it, so the caller's pump can process it without growing the call stack.
func (p *IOU) commit(st State, payload any) []job {
	p.mu.Lock()
	p.payload = payload
	if st == Fulfilled {
		p.status.SetFulfilled()
	} else {
		p.status.SetRejected()
	}
	entries := p.entries
	p.entries = nil
	p.mu.Unlock()

	if p.settled != nil {
		close(p.settled)
	}
	logger.Trace("iou settled", "iou", p.name, "state", st)

	if st == Rejected && len(entries) == 0 {
		// not an error by contract: the payload stays readable via Value
		logger.Trace("iou rejection unhandled", "iou", p.name, "cause", payload)
	}

	jobs := make([]job, 0, len(entries))
	for _, e := range entries {
		jobs = append(jobs, job{kind: jobDispatch, ent: e, state: st, payload: payload})
	}
	return jobs
}

type jobKind int

const (
	// jobSettle settles target with state/payload, unless it's already
	// settled.
	jobSettle jobKind = iota

	// jobDispatch runs a drained registry entry against state/payload.
	jobDispatch
)

// job is one unit of settlement work.
type job struct {
	kind    jobKind
	target  *IOU  // jobSettle only
	ent     entry // jobDispatch only
	state   State
	payload any
}

// pump processes settlement work in FIFO order until the queue is empty.
//
// Settling an IOU drains its registry, and each dispatched entry may settle
// further IOUs, which is the chain-reaction evaluation. None of that
// recurses: every step only appends more work to the queue, so the call
// stack stays flat no matter how long the chain is, and per-IOU registration
// order is preserved.
func pump(q []job) {
	for i := 0; i < len(q); i++ {
		j := q[i]
		switch j.kind {
		case jobSettle:
			ok, _ := j.target.status.TrySettling()
			if !ok {
				// the target is already settled: a duplicate, or cyclic,
				// chain. the settlement is dropped rather than crashing
				// the drain.
				logger.Trace("iou chain settlement dropped",
					"iou", j.target.name, "state", j.state)
				continue
			}
			q = append(q, j.target.commit(j.state, j.payload)...)
		case jobDispatch:
			q = append(q, dispatch(j.ent, j.state, j.payload)...)
		}
	}
}

// dispatch runs a single registry entry against the settlement outcome, and
// returns the follow-up settlement work it produced.
func dispatch(e entry, st State, payload any) []job {
	h := e.onFulfilled
	if st == Rejected {
		h = e.onRejected
	}

	switch {
	case h.absent():
		// pass-through: an unhandled outcome propagates down the chain
		// unmodified
		return []job{{kind: jobSettle, target: e.derived, state: st, payload: payload}}

	case h.chain != nil:
		// chain target: the target and the derived IOU both mirror the
		// settlement
		return []job{
			{kind: jobSettle, target: h.chain, state: st, payload: payload},
			{kind: jobSettle, target: e.derived, state: st, payload: payload},
		}
	}

	logger.Trace("iou running handler", "derived", e.derived.name, "state", st)
	res, err := invoke(h.cb, payload)
	if err != nil {
		// a handler failure is contained as a rejection of the derived IOU,
		// so it can't crash sibling dispatches, or the settling goroutine
		return []job{{kind: jobSettle, target: e.derived, state: Rejected, payload: err}}
	}
	if r, ok := res.(*IOU); ok && r != nil {
		// flattening: the derived IOU's fate becomes bound to r's eventual
		// fate, even if r is still pending right now
		return bind(r, e.derived)
	}

	// a successful handler return always fulfills the derived IOU, even when
	// the triggering settlement was a rejection. that's how a rejection
	// handler recovers.
	return []job{{kind: jobSettle, target: e.derived, state: Fulfilled, payload: res}}
}

// invoke runs a handler, converting a panic into an error return.
func invoke(h Handler, payload any) (res any, err error) {
	defer func() {
		if v := recover(); v != nil {
			res, err = nil, PanicError{V: v}
		}
	}()
	return h(payload)
}

// bind links derived to r, so that r's eventual settlement, whatever it
// turns out to be, is replayed onto derived.
func bind(r *IOU, derived *IOU) []job {
	r.mu.Lock()
	s := r.status.Load()
	if !status.IsSettled(s) {
		// both slots absent: a pure pass-through entry
		r.entries = append(r.entries, entry{derived: derived})
		r.mu.Unlock()
		return nil
	}
	payload := r.payload
	r.mu.Unlock()

	st := Fulfilled
	if status.IsRejected(s) {
		st = Rejected
	}
	return []job{{kind: jobSettle, target: derived, state: st, payload: payload}}
}
