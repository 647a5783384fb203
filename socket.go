package srtgo

/*
#cgo LDFLAGS: -lsrt
#include <srt/srt.h>
*/
import "C"

import (
	"context"
	"sync"
	"time"
	"unsafe"

	gopointer "github.com/mattn/go-pointer"
)

type socketPhase int

const (
	phaseUnconnected socketPhase = iota
	phaseConnecting
	phaseConnected
	phaseClosed
)

// Socket is a single SRT connection, in the sense of spec.md's C4: a
// native handle plus the pending option buffer, deadlines, and phase
// state needed to drive it through the Reactor. The zero value is not
// usable; construct with NewSocket or via Acceptor.Accept.
type Socket struct {
	mu      sync.Mutex
	handle  C.SRTSOCKET
	reactor *Reactor
	phase   socketPhase
	opts    *pendingOptions

	// OnConnect, if non-nil before Connect is called, receives the
	// asynchronous native connect-callback notification in addition to
	// Connect's own synchronous return value.
	OnConnect func(err error)

	readDeadline  time.Time
	writeDeadline time.Time

	connectHookPtr unsafe.Pointer
	closed         bool
}

// NewSocket creates an unconnected socket with PreBind-phase options
// applied immediately and all other supplied options buffered for replay
// as the socket advances phase. Options are a name -> text-value map,
// names matching LookupOption (case-insensitive, "SRTO_" prefix
// optional).
func NewSocket(opts map[string]string) (*Socket, error) {
	h, err := createSocket()
	if err != nil {
		return nil, err
	}
	if err := forceNonBlocking(h); err != nil {
		closeSocket(h)
		return nil, err
	}
	s := &Socket{
		handle:  h,
		reactor: reactorInstance(),
		phase:   phaseUnconnected,
		opts:    newPendingOptions(opts),
	}
	if err := s.opts.applyPhase(h, LifecyclePrebind, LifecyclePrebind); err != nil {
		closeSocket(h)
		return nil, err
	}
	return s, nil
}

// wrapAccepted builds a Socket around a handle produced by
// srt_accept, already past the handshake and therefore already in
// phaseConnected; Post-phase options are applied immediately since no
// earlier phase remains to defer to.
func wrapAccepted(h C.SRTSOCKET, r *Reactor, opts *pendingOptions) (*Socket, error) {
	if err := forceNonBlocking(h); err != nil {
		closeSocket(h)
		return nil, err
	}
	s := &Socket{
		handle:  h,
		reactor: r,
		phase:   phaseConnected,
		opts:    opts,
	}
	if err := s.opts.applyPhase(h, LifecyclePost, LifecyclePost); err != nil {
		closeSocket(h)
		return nil, err
	}
	return s, nil
}

// Close releases the native handle and forgets it on the Reactor,
// completing any outstanding wait with ErrConnectionAborted. Close is
// idempotent (spec.md invariant P5): a second call is a no-op.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.phase = phaseClosed
	h := s.handle
	hookPtr := s.connectHookPtr
	s.connectHookPtr = nil
	s.mu.Unlock()

	if hookPtr != nil {
		gopointer.Unref(hookPtr)
	}
	s.reactor.forgetHandle(h, ConnectionAborted(nil))
	return closeSocket(h)
}

// SetDeadline sets both the read and write deadlines used by Read/Write
// (but not by RecvPacket/SendPacket, which take an explicit context).
func (s *Socket) SetDeadline(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readDeadline = t
	s.writeDeadline = t
	return nil
}

// SetReadDeadline sets the deadline used by Read.
func (s *Socket) SetReadDeadline(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readDeadline = t
	return nil
}

// SetWriteDeadline sets the deadline used by Write.
func (s *Socket) SetWriteDeadline(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeDeadline = t
	return nil
}

func (s *Socket) readContext() (context.Context, context.CancelFunc) {
	s.mu.Lock()
	dl := s.readDeadline
	s.mu.Unlock()
	return deadlineContext(dl)
}

func (s *Socket) writeContext() (context.Context, context.CancelFunc) {
	s.mu.Lock()
	dl := s.writeDeadline
	s.mu.Unlock()
	return deadlineContext(dl)
}

func deadlineContext(dl time.Time) (context.Context, context.CancelFunc) {
	if dl.IsZero() {
		return context.Background(), func() {}
	}
	return context.WithDeadline(context.Background(), dl)
}

func (s *Socket) setPhase(p socketPhase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}
