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

	gopointer "github.com/mattn/go-pointer"
)

type acceptorPhase int

const (
	acceptorUnbound acceptorPhase = iota
	acceptorBound
	acceptorListening
	acceptorClosed
)

// Acceptor is spec.md's C5: a listening socket. Bind must precede Listen,
// and Accept may only be called once Listen has succeeded; SetListenHook
// has no phase check and may be called before or after Bind/Listen.
type Acceptor struct {
	mu      sync.Mutex
	handle  C.SRTSOCKET
	reactor *Reactor
	phase   acceptorPhase
	opts    *pendingOptions

	hookPtr unsafe.Pointer
}

// NewAcceptor creates an unbound listening socket, applying PreBind
// options immediately and buffering the rest, mirroring NewSocket.
func NewAcceptor(opts map[string]string) (*Acceptor, error) {
	h, err := createSocket()
	if err != nil {
		return nil, err
	}
	if err := forceNonBlocking(h); err != nil {
		closeSocket(h)
		return nil, err
	}
	a := &Acceptor{
		handle:  h,
		reactor: reactorInstance(),
		phase:   acceptorUnbound,
		opts:    newPendingOptions(opts),
	}
	if err := a.opts.applyPhase(h, LifecyclePrebind, LifecyclePrebind); err != nil {
		closeSocket(h)
		return nil, err
	}
	return a, nil
}

// Bind applies buffered Pre options and binds to address:port.
func (a *Acceptor) Bind(address string, port uint16) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != acceptorUnbound {
		return InvalidArgument("Bind: acceptor is not in the unbound phase")
	}
	addr, err := ResolveSRTAddr(address, port)
	if err != nil {
		return err
	}
	if err := a.opts.applyPhase(a.handle, LifecyclePre, LifecyclePre); err != nil {
		return err
	}
	if err := bindSocket(a.handle, addr); err != nil {
		return err
	}
	a.phase = acceptorBound
	return nil
}

// Listen transitions a bound acceptor into listening mode with the given
// backlog.
func (a *Acceptor) Listen(backlog int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != acceptorBound {
		return InvalidArgument("Listen: acceptor is not in the bound phase")
	}
	if err := listenSocket(a.handle, backlog); err != nil {
		return err
	}
	a.phase = acceptorListening
	return nil
}

// ListenAndServe is the common-case convenience combining Bind and
// Listen, matching the teacher's original single-call Listen(backlog)
// shape for callers that don't need the two phases separated.
func (a *Acceptor) ListenAndServe(address string, port uint16, backlog int) error {
	if err := a.Bind(address, port); err != nil {
		return err
	}
	return a.Listen(backlog)
}

// SetListenHook registers hook as the handshake accept/reject decision,
// called synchronously on SRT's own protocol thread for every incoming
// connection attempt (spec.md §4.5): it must never block or call back
// into the Reactor, and returning false rejects the handshake before a
// Socket is ever created for it.
func (a *Acceptor) SetListenHook(hook func(callerH SRTSocket, hsVersion int, streamID string) bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hookPtr != nil {
		gopointer.Unref(a.hookPtr)
	}
	ptr := gopointer.Save(listenHook(hook))
	a.hookPtr = ptr
	C.srt_listen_callback(a.handle, (*C.srt_listen_callback_fn)(C.srtListenCB), ptr)
}

// Accept blocks until an incoming connection completes its handshake,
// ctx is done, or the acceptor errors, returning a Socket already in the
// Connected phase. The options the acceptor was created with are not
// applied to the accepted Socket; it starts with an empty option buffer.
func (a *Acceptor) Accept(ctx context.Context) (*Socket, error) {
	a.mu.Lock()
	if a.phase != acceptorListening {
		a.mu.Unlock()
		return nil, InvalidArgument("Accept: acceptor is not listening")
	}
	h := a.handle
	a.mu.Unlock()

	nh, werr, ok := acceptSocket(h)
	if !ok {
		if !werr.wouldBlock() {
			return nil, werr.Kind()
		}
		if _, err := a.reactor.WaitReadable(ctx, h); err != nil {
			return nil, err
		}
		nh, werr, ok = acceptSocket(h)
		if !ok {
			return nil, werr.Kind()
		}
	}

	return wrapAccepted(nh, a.reactor, newPendingOptions(nil))
}

// Close closes the listening handle and forgets it on the Reactor.
func (a *Acceptor) Close() error {
	a.mu.Lock()
	if a.phase == acceptorClosed {
		a.mu.Unlock()
		return nil
	}
	a.phase = acceptorClosed
	h := a.handle
	hookPtr := a.hookPtr
	a.hookPtr = nil
	a.mu.Unlock()

	if hookPtr != nil {
		gopointer.Unref(hookPtr)
	}
	a.reactor.forgetHandle(h, ConnectionAborted(nil))
	return closeSocket(h)
}
