package srtgo

/*
#cgo LDFLAGS: -lsrt
#include <srt/srt.h>
*/
import "C"

import (
	"context"
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"
)

// EventMask reports which interests fired for a completed wait.
type EventMask int

const (
	EventRead EventMask = 1 << iota
	EventWrite
	EventError
)

// waiter is the single owned completion handler installed for one
// (handle, direction). Sending on result transfers ownership out of the
// slot it was installed in; it is buffered so X, which performs every
// completion (poll deliveries, cancellations and timeouts posted by the
// watcher, forgetHandle), never blocks sending it.
type waiter struct {
	result chan waitResult
}

type waitResult struct {
	mask EventMask
	err  error
}

func newWaiter() *waiter {
	return &waiter{result: make(chan waitResult, 1)}
}

// complete hands the result to whichever goroutine is blocked receiving
// it. It must only ever be called once per waiter, by whichever of
// {poll-thread delivery, timer, cancellation} wins the race to remove the
// waiter from its slot on X — that removal is what enforces "at most
// once".
func (w *waiter) complete(res waitResult) {
	w.result <- res
}

// pendingOps is PendingOps in spec.md §3: at most one waiter per
// direction for a given handle, plus the epoll mask currently registered
// for it. All fields are only ever touched from within a closure running
// on the Reactor's command queue (X).
type pendingOps struct {
	readWaiter  *waiter
	writeWaiter *waiter
	mask        C.int
}

func (p *pendingOps) desiredMask() C.int {
	var m C.int
	if p.readWaiter != nil {
		m |= C.SRT_EPOLL_IN
	}
	if p.writeWaiter != nil {
		m |= C.SRT_EPOLL_OUT
	}
	if p.readWaiter != nil || p.writeWaiter != nil {
		m |= C.SRT_EPOLL_ERR
	}
	return m
}

// Reactor owns one SRT epoll group and one poll goroutine per process.
// All mutation of its pending-operations table happens inside closures
// sent to cmdQ (the serializing execution context X named throughout
// spec.md); the poll goroutine never touches the table directly.
type Reactor struct {
	epollID C.int

	cmdQ chan func()

	pending map[C.SRTSOCKET]*pendingOps

	pollStop    chan struct{}
	pollStopped chan struct{}

	log logrus.FieldLogger

	shutdownOnce sync.Once
}

var (
	reactorOnce sync.Once
	reactor     *Reactor
)

// reactorInstance returns the process-wide Reactor, constructing it
// (SRT startup, epoll group, command-queue goroutine, poll goroutine) on
// first use. Whether to expose the Reactor as a true global rather than a
// per-runtime instance is an Open Question in spec.md §9; this module
// resolves it as a true global, matching the source, since Go has one
// goroutine scheduler per process and no "per-runtime" concept to bridge.
func reactorInstance() *Reactor {
	reactorOnce.Do(func() {
		srtStartup()
		eid := C.srt_epoll_create()
		C.srt_epoll_set(eid, C.SRT_EPOLL_ENABLE_EMPTY)
		reactor = &Reactor{
			epollID:     eid,
			cmdQ:        make(chan func(), 256),
			pending:     make(map[C.SRTSOCKET]*pendingOps),
			pollStop:    make(chan struct{}),
			pollStopped: make(chan struct{}),
			log:         logrus.StandardLogger(),
		}
		go reactor.runLoop()
		go reactor.pollLoop()
		bridgeNativeLog(reactor.log)
		reactor.log.Info("srtgo: reactor started")
	})
	return reactor
}

// SetLogger overrides the adapter's own structured logger. Since
// reactorInstance bridges the native SRT library's own log output into
// this same logger (see logging.go's bridgeNativeLog), replacing it here
// also redirects where native log lines go from now on; call
// SrtSetLogHandler directly afterwards to point the native bridge
// elsewhere instead. SetLogger itself starts the Reactor if it is not
// running yet, so startup's own log line always goes to the default
// logrus.StandardLogger().
func SetLogger(l logrus.FieldLogger) {
	r := reactorInstance()
	r.log = l
	bridgeNativeLog(l)
}

// runLoop is X: a single goroutine draining cmdQ in FIFO order. Every
// mutation of pending and every epoll add/update/remove call happens
// here, which is what removes the need for fine-grained locking on the
// pending-operations table.
func (r *Reactor) runLoop() {
	for cmd := range r.cmdQ {
		cmd()
	}
}

// post sends a closure onto X and returns immediately; it never blocks
// on the closure's completion.
func (r *Reactor) post(fn func()) {
	r.cmdQ <- fn
}

// WaitReadable parks the calling goroutine until h becomes readable (or
// errored), ctx is done, or (if ctx carries a deadline) the deadline
// passes. At most one WaitReadable may be outstanding per handle; a
// second concurrent call fails immediately with ErrInvalidArgument.
func (r *Reactor) WaitReadable(ctx context.Context, h C.SRTSOCKET) (EventMask, error) {
	return r.wait(ctx, h, true)
}

// WaitWritable is the write-direction twin of WaitReadable.
func (r *Reactor) WaitWritable(ctx context.Context, h C.SRTSOCKET) (EventMask, error) {
	return r.wait(ctx, h, false)
}

func (r *Reactor) wait(ctx context.Context, h C.SRTSOCKET, readDir bool) (EventMask, error) {
	w := newWaiter()
	installErr := make(chan error, 1)

	r.post(func() {
		ops, ok := r.pending[h]
		if !ok {
			ops = &pendingOps{}
			r.pending[h] = ops
		}
		var already *waiter
		if readDir {
			already = ops.readWaiter
		} else {
			already = ops.writeWaiter
		}
		if already != nil {
			installErr <- InvalidArgument("a wait is already outstanding for this handle and direction")
			if ops.readWaiter == nil && ops.writeWaiter == nil {
				delete(r.pending, h)
			}
			return
		}
		if readDir {
			ops.readWaiter = w
		} else {
			ops.writeWaiter = w
		}
		newMask := ops.desiredMask()
		if err := r.updateEpoll(h, ops.mask, newMask); err != nil {
			if readDir {
				ops.readWaiter = nil
			} else {
				ops.writeWaiter = nil
			}
			if ops.readWaiter == nil && ops.writeWaiter == nil {
				delete(r.pending, h)
			}
			installErr <- EpollFailure(err)
			return
		}
		ops.mask = newMask
		installErr <- nil
		r.log.WithField("handle", int(h)).Debug("srtgo: waiter installed")
	})

	if err := <-installErr; err != nil {
		return 0, err
	}

	// Route both context cancellation and deadline expiry through a
	// single watcher goroutine that itself only ever posts a cancellation
	// closure onto X; X decides, by observing whether the slot is still
	// occupied, whether the watcher or the poll goroutine won the race.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			reason := Canceled(ctx.Err())
			if ctx.Err() == context.DeadlineExceeded {
				reason = Timeout(ctx.Err())
			}
			r.post(func() { r.cancelWaiter(h, w, readDir, reason) })
		case <-watchDone:
		}
	}()

	res := <-w.result
	close(watchDone)
	return res.mask, res.err
}

// cancelWaiter runs on X. If the named slot no longer holds w (it was
// already completed by the poll goroutine), this is a no-op: the
// completion that got there first wins.
func (r *Reactor) cancelWaiter(h C.SRTSOCKET, w *waiter, readDir bool, reason error) {
	ops, ok := r.pending[h]
	if !ok {
		return
	}
	var cur *waiter
	if readDir {
		cur = ops.readWaiter
	} else {
		cur = ops.writeWaiter
	}
	if cur != w {
		return
	}
	if readDir {
		ops.readWaiter = nil
	} else {
		ops.writeWaiter = nil
	}
	newMask := ops.desiredMask()
	if newMask == 0 {
		r.removeFromEpoll(h)
		delete(r.pending, h)
	} else if newMask != ops.mask {
		r.updateEpoll(h, ops.mask, newMask)
		ops.mask = newMask
	}
	w.complete(waitResult{err: reason})
	r.log.WithField("handle", int(h)).Debug("srtgo: waiter canceled")
}

// deliver runs on X for every (handle, mask) the poll goroutine reports.
func (r *Reactor) deliver(h C.SRTSOCKET, events C.int) {
	ops, ok := r.pending[h]
	if !ok {
		return
	}
	if events&C.SRT_EPOLL_ERR != 0 {
		kind := srtGetAndClearError().Kind()
		if kind == nil {
			kind = ConnectionReset(nil)
		}
		if ops.readWaiter != nil {
			w := ops.readWaiter
			ops.readWaiter = nil
			w.complete(waitResult{err: kind})
		}
		if ops.writeWaiter != nil {
			w := ops.writeWaiter
			ops.writeWaiter = nil
			w.complete(waitResult{err: kind})
		}
		r.removeFromEpoll(h)
		delete(r.pending, h)
		r.log.WithField("handle", int(h)).Warn("srtgo: socket error observed on epoll")
		return
	}
	if events&C.SRT_EPOLL_IN != 0 && ops.readWaiter != nil {
		w := ops.readWaiter
		ops.readWaiter = nil
		w.complete(waitResult{mask: EventRead})
	}
	if events&C.SRT_EPOLL_OUT != 0 && ops.writeWaiter != nil {
		w := ops.writeWaiter
		ops.writeWaiter = nil
		w.complete(waitResult{mask: EventWrite})
	}
	newMask := ops.desiredMask()
	if newMask == 0 {
		r.removeFromEpoll(h)
		delete(r.pending, h)
		return
	}
	if newMask != ops.mask {
		r.updateEpoll(h, ops.mask, newMask)
		ops.mask = newMask
	}
}

// updateEpoll adds h to the epoll group if it wasn't registered
// (oldMask == 0) or updates its interest mask otherwise.
func (r *Reactor) updateEpoll(h C.SRTSOCKET, oldMask, newMask C.int) error {
	events := C.uint(newMask) | C.uint(C.SRT_EPOLL_ET)
	var ret C.int
	if oldMask == 0 {
		ret = C.srt_epoll_add_usock(r.epollID, h, (*C.int)(unsafe.Pointer(&events)))
	} else {
		ret = C.srt_epoll_update_usock(r.epollID, h, (*C.int)(unsafe.Pointer(&events)))
	}
	if ret == SRT_ERROR {
		return srtGetAndClearError()
	}
	return nil
}

func (r *Reactor) removeFromEpoll(h C.SRTSOCKET) {
	C.srt_epoll_remove_usock(r.epollID, h)
}

// forgetHandle drops h from the pending table and epoll group outright,
// completing any outstanding waiters with the given reason. Used by
// Socket/Acceptor.Close so a closed handle never lingers in P (spec.md
// invariant P5).
func (r *Reactor) forgetHandle(h C.SRTSOCKET, reason error) {
	done := make(chan struct{})
	r.post(func() {
		defer close(done)
		ops, ok := r.pending[h]
		if !ok {
			return
		}
		if ops.readWaiter != nil {
			ops.readWaiter.complete(waitResult{err: reason})
		}
		if ops.writeWaiter != nil {
			ops.writeWaiter.complete(waitResult{err: reason})
		}
		r.removeFromEpoll(h)
		delete(r.pending, h)
	})
	<-done
}

// Shutdown stops the poll goroutine, tears down the epoll group, and
// releases this module's SRT startup reference. It is idempotent: a
// second call is a no-op (spec.md §8 "Idempotence of shutdown").
func (r *Reactor) Shutdown() {
	r.shutdownOnce.Do(func() {
		close(r.pollStop)
		<-r.pollStopped
		close(r.cmdQ)
		C.srt_epoll_release(r.epollID)
		srtCleanup()
		r.log.Info("srtgo: reactor stopped")
	})
}
