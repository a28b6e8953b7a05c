// Copyright (c) 2014 PIX System, LLC. and Eric Reinecke
//
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

package iou

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChainedArithmetic(t *testing.T) {
	// iou1 gets two independent handlers; the second one's derived IOU
	// carries the handler's own result
	iou1 := New()
	iou1.Then(func(x any) (any, error) { return x, nil })
	p := iou1.Then(func(x any) (any, error) { return x.(int) + 7, nil })

	require.NoError(t, iou1.Fulfill(10))

	require.True(t, p.IsFulfilled())
	v, err := p.Value()
	require.NoError(t, err)
	require.Equal(t, 17, v)
}

func TestFlattening(t *testing.T) {
	t.Run("pending at handler-return time", func(t *testing.T) {
		r := NewNamed("inner")
		p := New()
		derived := p.Then(func(payload any) (any, error) {
			return r, nil
		})

		require.NoError(t, p.Fulfill("outer"))

		// the handler already ran, but its derived IOU must stay pending
		// until r settles
		require.False(t, derived.IsSettled())

		require.NoError(t, r.Fulfill("inner result"))
		require.True(t, derived.IsFulfilled())
		v, err := derived.Value()
		require.NoError(t, err)
		require.Equal(t, "inner result", v)
	})

	t.Run("inner rejection", func(t *testing.T) {
		cause := errors.New("inner failure")
		r := New()
		p := New()
		derived := p.Then(func(payload any) (any, error) {
			return r, nil
		})

		require.NoError(t, p.Fulfill("outer"))
		require.NoError(t, r.Reject(cause))

		require.True(t, derived.IsRejected())
		require.Same(t, cause, derived.Err())
	})

	t.Run("already settled at handler-return time", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Fulfill("ready"))

		p := New()
		derived := p.Then(func(payload any) (any, error) {
			return r, nil
		})

		require.NoError(t, p.Fulfill("outer"))
		require.True(t, derived.IsFulfilled())
		v, err := derived.Value()
		require.NoError(t, err)
		require.Equal(t, "ready", v)
	})
}

func TestPipeTo(t *testing.T) {
	t.Run("fulfillment mirrors", func(t *testing.T) {
		rec := &callRecorder{}
		iou2 := New()
		iou2.Then(rec.handler("iou2 handler", nil))

		iou1 := New()
		derived := iou1.PipeTo(iou2)

		require.NoError(t, iou1.Fulfill(6))

		require.True(t, iou2.IsFulfilled())
		v, err := iou2.Value()
		require.NoError(t, err)
		require.Equal(t, 6, v)

		// the chained target's own handlers fire as part of the same
		// settlement drain
		require.Equal(t, "iou2 handler", rec.summary())

		// the derived IOU mirrors the settlement too
		require.True(t, derived.IsFulfilled())
	})

	t.Run("rejection propagates through an outcome-agnostic target", func(t *testing.T) {
		cause := errors.New("upstream failure")
		rec := &callRecorder{}

		iou2 := New()
		iou2.Then(rec.handler("never", nil))

		iou1 := New()
		derived := iou1.PipeTo(iou2)

		require.NoError(t, iou1.Reject(cause))

		// iou2 was registered on the fulfilled channel, yet it must mirror
		// the rejection
		require.True(t, iou2.IsRejected())
		require.Same(t, cause, iou2.Err())
		require.Empty(t, rec.summary())

		require.True(t, derived.IsRejected())
		require.Same(t, cause, derived.Err())
	})

	t.Run("late chaining settles immediately", func(t *testing.T) {
		iou1 := New()
		require.NoError(t, iou1.Fulfill("done"))

		iou2 := New()
		derived := iou1.PipeTo(iou2)

		require.True(t, iou2.IsFulfilled())
		require.True(t, derived.IsFulfilled())
	})

	t.Run("already-settled target drops the mirror", func(t *testing.T) {
		iou2 := New()
		require.NoError(t, iou2.Fulfill("mine"))

		iou1 := New()
		iou1.PipeTo(iou2)
		require.NoError(t, iou1.Fulfill("yours"))

		// iou2 keeps its own payload; the dropped mirror must not crash
		// the drain
		v, err := iou2.Value()
		require.NoError(t, err)
		require.Equal(t, "mine", v)
	})

	t.Run("self and nil targets fail fast", func(t *testing.T) {
		p := New()
		require.PanicsWithValue(t, selfChainPanicMsg, func() { p.PipeTo(p) })
		require.PanicsWithValue(t, nilTargetPanicMsg, func() { p.PipeTo(nil) })
	})
}

func TestCyclicChain(t *testing.T) {
	// a cyclic chain is a caller error; it must degrade to a no-op on the
	// second visit, not crash or loop
	a := New()
	b := New()
	a.PipeTo(b)
	b.PipeTo(a)

	require.NoError(t, a.Fulfill("round"))

	require.True(t, a.IsFulfilled())
	require.True(t, b.IsFulfilled())
	v, err := b.Value()
	require.NoError(t, err)
	require.Equal(t, "round", v)
}

func TestLongChain(t *testing.T) {
	// dispatch runs off an explicit work queue, so chain length must not
	// translate into call-stack depth
	const chainLen = 100_000

	head := New()
	tail := head
	for i := 0; i < chainLen; i++ {
		tail = tail.Then(func(x any) (any, error) {
			return x.(int) + 1, nil
		})
	}

	require.NoError(t, head.Fulfill(0))

	require.True(t, tail.IsFulfilled())
	v, err := tail.Value()
	require.NoError(t, err)
	require.Equal(t, chainLen, v)
}

func TestLongChainRejectionPassThrough(t *testing.T) {
	const chainLen = 10_000

	cause := errors.New("head failure")
	head := New()
	tail := head
	for i := 0; i < chainLen; i++ {
		tail = tail.Then(func(x any) (any, error) {
			t.Fatal("fulfilled handler fired on a rejection")
			return nil, nil
		})
	}

	require.NoError(t, head.Reject(cause))

	// the rejection propagates down the whole chain unmodified
	require.True(t, tail.IsRejected())
	require.Same(t, cause, tail.Err())
}
