package srtgo

/*
#cgo LDFLAGS: -lsrt
#include <srt/srt.h>
*/
import "C"

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestReactor builds a bare, non-singleton Reactor around a real epoll
// group so P2–P5 can be driven directly against (*Reactor).wait/deliver/
// cancelWaiter/forgetHandle without a live pollLoop or any network
// activity. It only starts runLoop (X); nothing ever posts events onto it
// except the test itself.
func newTestReactor(t *testing.T) *Reactor {
	t.Helper()
	srtStartup()
	eid := C.srt_epoll_create()
	require.GreaterOrEqual(t, int(eid), 0)
	r := &Reactor{
		epollID: eid,
		cmdQ:    make(chan func(), 16),
		pending: make(map[C.SRTSOCKET]*pendingOps),
		log:     logrus.StandardLogger(),
	}
	go r.runLoop()
	t.Cleanup(func() {
		close(r.cmdQ)
		C.srt_epoll_release(r.epollID)
		srtCleanup()
	})
	return r
}

// syncPost runs fn on X and blocks until it has completed, for assertions
// that need to read/write the pending table from the test goroutine.
func syncPost(r *Reactor, fn func()) {
	done := make(chan struct{})
	r.post(func() {
		fn()
		close(done)
	})
	<-done
}

func newTestHandle(t *testing.T) C.SRTSOCKET {
	t.Helper()
	h, err := createSocket()
	require.NoError(t, err)
	t.Cleanup(func() { closeSocket(h) })
	return h
}

func TestEventMaskBitComposition(t *testing.T) {
	m := EventRead | EventWrite
	assert.NotZero(t, m&EventRead)
	assert.NotZero(t, m&EventWrite)
	assert.Zero(t, m & EventError)
}

func TestPendingOpsDesiredMaskEmpty(t *testing.T) {
	p := &pendingOps{}
	assert.Equal(t, C.int(0), p.desiredMask())
}

func TestPendingOpsDesiredMaskReadOnly(t *testing.T) {
	p := &pendingOps{readWaiter: newWaiter()}
	want := C.int(C.SRT_EPOLL_IN | C.SRT_EPOLL_ERR)
	assert.Equal(t, want, p.desiredMask())
}

func TestPendingOpsDesiredMaskBothDirections(t *testing.T) {
	p := &pendingOps{readWaiter: newWaiter(), writeWaiter: newWaiter()}
	want := C.int(C.SRT_EPOLL_IN | C.SRT_EPOLL_OUT | C.SRT_EPOLL_ERR)
	assert.Equal(t, want, p.desiredMask())
}

// TestWaiterCompletesExactlyOnce checks the one-shot result channel: a
// single complete call hands exactly one result, with the mask it was
// given, to the receiver. No completers race here; at-most-once comes
// from removing the waiter from its slot on X before complete is called.
func TestWaiterCompletesExactlyOnce(t *testing.T) {
	w := newWaiter()
	w.complete(waitResult{mask: EventRead})
	res := <-w.result
	assert.Equal(t, EventRead, res.mask)
	assert.NoError(t, res.err)
}

// TestDeliverReadResolvesAndClearsSlot exercises spec.md P2 along the
// success path: once deliver resolves a waiter, its slot (and, since no
// other waiter remains, the handle's whole pendingOps entry) is gone from
// the table — a second deliver or cancelWaiter for the same handle finds
// nothing to act on.
func TestDeliverReadResolvesAndClearsSlot(t *testing.T) {
	r := newTestReactor(t)
	h := newTestHandle(t)

	w := newWaiter()
	syncPost(r, func() { r.pending[h] = &pendingOps{readWaiter: w} })
	syncPost(r, func() { r.deliver(h, C.SRT_EPOLL_IN) })

	res := <-w.result
	assert.Equal(t, EventRead, res.mask)
	assert.NoError(t, res.err)

	var stillPending bool
	syncPost(r, func() { _, stillPending = r.pending[h] })
	assert.False(t, stillPending)
}

// TestDeliverErrorResolvesBothWaitersWithSameKind exercises spec.md P3: a
// single SRT_EPOLL_ERR event resolves both the read and write waiter for
// a handle, with the same error kind, and clears the table entry (P2).
func TestDeliverErrorResolvesBothWaitersWithSameKind(t *testing.T) {
	r := newTestReactor(t)
	h := newTestHandle(t)

	rw := newWaiter()
	ww := newWaiter()
	syncPost(r, func() { r.pending[h] = &pendingOps{readWaiter: rw, writeWaiter: ww} })
	syncPost(r, func() { r.deliver(h, C.SRT_EPOLL_ERR) })

	readRes := <-rw.result
	writeRes := <-ww.result
	require.Error(t, readRes.err)
	require.Error(t, writeRes.err)
	assert.Equal(t, readRes.err, writeRes.err)

	var stillPending bool
	syncPost(r, func() { _, stillPending = r.pending[h] })
	assert.False(t, stillPending)
}

// TestWaitSecondConcurrentFailsInvalidArgument exercises spec.md P4: a
// second wait for the same (handle, direction) while one is already
// outstanding fails immediately with InvalidArgument, and leaves the
// first waiter's slot untouched. No live epoll wait is needed — the
// install branch in (*Reactor).wait is what's under test.
func TestWaitSecondConcurrentFailsInvalidArgument(t *testing.T) {
	r := newTestReactor(t)
	h := newTestHandle(t)

	existing := newWaiter()
	syncPost(r, func() { r.pending[h] = &pendingOps{readWaiter: existing} })

	_, err := r.wait(context.Background(), h, true)
	assert.True(t, IsInvalidArgument(err))

	var ops *pendingOps
	syncPost(r, func() { ops = r.pending[h] })
	require.NotNil(t, ops)
	assert.Same(t, existing, ops.readWaiter)
}

// TestCancelWaiterClearsSlot exercises spec.md P2 along the
// cancellation/timeout path: cancelWaiter resolves the waiter with the
// given reason and removes the handle from the pending table once no
// direction remains outstanding.
func TestCancelWaiterClearsSlot(t *testing.T) {
	r := newTestReactor(t)
	h := newTestHandle(t)

	w := newWaiter()
	syncPost(r, func() { r.pending[h] = &pendingOps{readWaiter: w} })
	syncPost(r, func() { r.cancelWaiter(h, w, true, Canceled(context.Canceled)) })

	res := <-w.result
	assert.True(t, IsCanceled(res.err))

	var stillPending bool
	syncPost(r, func() { _, stillPending = r.pending[h] })
	assert.False(t, stillPending)
}

// TestForgetHandleResolvesWaiterAndClearsSlot exercises spec.md P5:
// forgetHandle (used by Socket/Acceptor.Close) removes a handle from the
// pending table and epoll group outright, resolving any outstanding
// waiter with the given reason.
func TestForgetHandleResolvesWaiterAndClearsSlot(t *testing.T) {
	r := newTestReactor(t)
	h := newTestHandle(t)

	w := newWaiter()
	syncPost(r, func() { r.pending[h] = &pendingOps{readWaiter: w} })

	r.forgetHandle(h, ConnectionAborted(nil))

	res := <-w.result
	assert.True(t, IsConnectionAborted(res.err))

	var stillPending bool
	syncPost(r, func() { _, stillPending = r.pending[h] })
	assert.False(t, stillPending)
}
