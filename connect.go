package srtgo

/*
#cgo LDFLAGS: -lsrt
#include <srt/srt.h>
*/
import "C"

import (
	"context"
	"net"
	"unsafe"
)

// Connect drives the socket through SRT's handshake against host:port. It
// implements spec.md §4.4's connect sequence: apply buffered Pre options,
// kick off a non-blocking srt_connect, wait for writability (the
// handshake-complete signal on a connecting socket), confirm the library
// agrees the socket reached SRTS_CONNECTED, then apply buffered Post
// options and flip phase.
//
// OnConnect, if set before Connect is called, additionally receives an
// asynchronous notification from the native connect callback; this
// exists for parity with srt_connect_callback and is independent of the
// synchronous result Connect itself returns.
func (s *Socket) Connect(ctx context.Context, host string, port uint16) error {
	s.mu.Lock()
	if s.phase != phaseUnconnected {
		s.mu.Unlock()
		return InvalidArgument("Connect: socket is not in the unconnected phase")
	}
	s.phase = phaseConnecting
	h := s.handle
	s.mu.Unlock()

	addr, err := ResolveSRTAddr(host, port)
	if err != nil {
		s.setPhase(phaseUnconnected)
		return err
	}

	if err := s.opts.applyPhase(h, LifecyclePre, LifecyclePre); err != nil {
		s.setPhase(phaseUnconnected)
		return err
	}

	if s.OnConnect != nil {
		ptr := registerConnectCallback(h, s.OnConnect)
		s.mu.Lock()
		s.connectHookPtr = ptr
		s.mu.Unlock()
	}

	if werr, ok := connectSocket(h, addr); !ok {
		if !werr.wouldBlock() {
			s.setPhase(phaseUnconnected)
			return werr.Kind()
		}
	}

	if _, err := s.reactor.WaitWritable(ctx, h); err != nil {
		closeSocket(h)
		s.setPhase(phaseClosed)
		if IsTimeout(err) {
			return Timeout(err)
		}
		return err
	}

	if getSockState(h) != C.SRTS_CONNECTED {
		kind := srtGetAndClearError().Kind()
		closeSocket(h)
		s.setPhase(phaseClosed)
		if kind == nil {
			kind = ConnectionRefused(nil)
		}
		return kind
	}

	if err := s.opts.applyPhase(h, LifecyclePost, LifecyclePost); err != nil {
		s.setPhase(phaseConnected)
		return err
	}
	s.setPhase(phaseConnected)
	return nil
}

// RemoteAddr reports the confirmed peer address of a connected socket, or
// nil if the socket never completed a connect/accept.
func (s *Socket) RemoteAddr() net.Addr {
	var sa C.struct_sockaddr_storage
	sz := C.int(unsafe.Sizeof(sa))
	if C.srt_getpeername(s.handle, (*C.struct_sockaddr)(unsafe.Pointer(&sa)), &sz) == SRT_ERROR {
		return nil
	}
	return sockaddrToUDP(&sa)
}
