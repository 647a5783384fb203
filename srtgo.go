// Package srtgo bridges the SRT (Secure Reliable Transport) library's
// epoll-style readiness mechanism into goroutine-friendly, blocking I/O.
//
// Callers never see the native epoll handle: Socket and Acceptor expose
// ordinary blocking methods (Connect, SendPacket/RecvPacket, Accept) that
// internally try the native call once and, on a would-block indication,
// park the calling goroutine in the package-global Reactor until the
// socket becomes ready, the context's deadline passes, or the context is
// canceled.
package srtgo

/*
#cgo LDFLAGS: -lsrt
#include <srt/srt.h>
#include <netinet/in.h>
#include <arpa/inet.h>

extern void srtConnectCB(void* opaque, SRTSOCKET sock, int errorcode, const struct sockaddr* peeraddr, int token);
extern int srtListenCB(void* opaque, SRTSOCKET sock, int hsversion, const struct sockaddr* peeraddr, const char* streamid);
*/
import "C"

import (
	"net"
	"sync"
	"unsafe"

	gopointer "github.com/mattn/go-pointer"
)

// SRTSocket is the native SRT socket handle. It is never owned by the
// Reactor: the Reactor only indexes its internal tables by this value.
type SRTSocket = C.SRTSOCKET

// SRT_ERROR is the native library's generic failure return value for
// int-returning calls (srt_setsockopt, srt_bind, srt_listen, ...).
const SRT_ERROR = -1

const invalidSocket C.SRTSOCKET = C.SRT_INVALID_SOCK

var (
	srtLifecycleMu sync.Mutex
	srtLifecycleN  int
)

// srtStartup initializes the SRT library. It is reference-counted so that
// many Sockets/Acceptors/Reactors across a process share one
// srt_startup/srt_cleanup pair, matching the library's own expectation
// that startup and cleanup are process-wide, not per-object.
func srtStartup() {
	srtLifecycleMu.Lock()
	defer srtLifecycleMu.Unlock()
	if srtLifecycleN == 0 {
		C.srt_startup()
	}
	srtLifecycleN++
}

// srtCleanup releases one reference taken by srtStartup, calling
// srt_cleanup only when the last reference is released.
func srtCleanup() {
	srtLifecycleMu.Lock()
	defer srtLifecycleMu.Unlock()
	srtLifecycleN--
	if srtLifecycleN <= 0 {
		srtLifecycleN = 0
		C.srt_cleanup()
	}
}

// createSocket creates a new SRT socket handle.
func createSocket() (C.SRTSOCKET, error) {
	h := C.srt_create_socket()
	if h == invalidSocket {
		return h, srtGetAndClearError().Kind()
	}
	return h, nil
}

// closeSocket closes a native handle. Closing an already-closed or
// otherwise invalid handle is treated as success: Close is idempotent at
// the adapter layer.
func closeSocket(h C.SRTSOCKET) error {
	if C.srt_close(h) == SRT_ERROR {
		werr := srtGetAndClearError()
		if werr.srt == srtErrInvSock {
			return nil
		}
		return werr.Kind()
	}
	return nil
}

func getSockState(h C.SRTSOCKET) C.SRT_SOCKSTATUS {
	return C.srt_getsockstate(h)
}

// forceNonBlocking disables the library's own synchronous send/recv mode
// regardless of anything the caller requested: every blocking wait in
// this module goes through the Reactor, never through the library's own
// blocking mode.
func forceNonBlocking(h C.SRTSOCKET) error {
	var off C.int32_t = 0
	if C.srt_setsockflag(h, C.SRTO_RCVSYN, unsafe.Pointer(&off), C.int32_t(unsafe.Sizeof(off))) == SRT_ERROR {
		return srtGetAndClearError().Kind()
	}
	if C.srt_setsockflag(h, C.SRTO_SNDSYN, unsafe.Pointer(&off), C.int32_t(unsafe.Sizeof(off))) == SRT_ERROR {
		return srtGetAndClearError().Kind()
	}
	return nil
}

// sockaddrFromUDP marshals addr into the raw sockaddr bytes srt_bind/
// srt_connect expect, returning a pointer into the backing array and its
// length. The caller must keep buf alive until after the call.
func sockaddrFromUDP(addr *net.UDPAddr) (buf []byte, clen C.int) {
	if ip4 := addr.IP.To4(); ip4 != nil {
		var sa C.struct_sockaddr_in
		sa.sin_family = C.AF_INET
		sa.sin_port = C.in_port_t(htons(uint16(addr.Port)))
		copy((*[4]byte)(unsafe.Pointer(&sa.sin_addr))[:], ip4)
		buf = make([]byte, unsafe.Sizeof(sa))
		copy(buf, (*[1 << 20]byte)(unsafe.Pointer(&sa))[:unsafe.Sizeof(sa):unsafe.Sizeof(sa)])
		return buf, C.int(unsafe.Sizeof(sa))
	}
	var sa C.struct_sockaddr_in6
	sa.sin6_family = C.AF_INET6
	sa.sin6_port = C.in_port_t(htons(uint16(addr.Port)))
	copy((*[16]byte)(unsafe.Pointer(&sa.sin6_addr))[:], addr.IP.To16())
	buf = make([]byte, unsafe.Sizeof(sa))
	copy(buf, (*[1 << 20]byte)(unsafe.Pointer(&sa))[:unsafe.Sizeof(sa):unsafe.Sizeof(sa)])
	return buf, C.int(unsafe.Sizeof(sa))
}

func htons(v uint16) uint16 {
	return (v << 8) | (v >> 8)
}

// sockaddrToUDP converts a raw sockaddr_storage filled in by
// srt_getpeername/srt_getsockname back into a net.UDPAddr.
func sockaddrToUDP(sa *C.struct_sockaddr_storage) *net.UDPAddr {
	family := *(*C.sa_family_t)(unsafe.Pointer(sa))
	switch family {
	case C.AF_INET:
		in := (*C.struct_sockaddr_in)(unsafe.Pointer(sa))
		ip := make(net.IP, 4)
		copy(ip, (*[4]byte)(unsafe.Pointer(&in.sin_addr))[:])
		return &net.UDPAddr{IP: ip, Port: int(htons(uint16(in.sin_port)))}
	case C.AF_INET6:
		in6 := (*C.struct_sockaddr_in6)(unsafe.Pointer(sa))
		ip := make(net.IP, 16)
		copy(ip, (*[16]byte)(unsafe.Pointer(&in6.sin6_addr))[:])
		return &net.UDPAddr{IP: ip, Port: int(htons(uint16(in6.sin6_port)))}
	default:
		return nil
	}
}

// bindSocket binds h to addr.
func bindSocket(h C.SRTSOCKET, addr *net.UDPAddr) error {
	buf, clen := sockaddrFromUDP(addr)
	if C.srt_bind(h, (*C.struct_sockaddr)(unsafe.Pointer(&buf[0])), clen) == SRT_ERROR {
		return srtGetAndClearError().Kind()
	}
	return nil
}

// listenSocket puts an already-bound h into listening mode with the
// given backlog.
func listenSocket(h C.SRTSOCKET, backlog int) error {
	if C.srt_listen(h, C.int(backlog)) == SRT_ERROR {
		return srtGetAndClearError().Kind()
	}
	return nil
}

// connectSocket issues a non-blocking connect attempt to addr. The
// caller is expected to have already forced non-blocking mode on h, so a
// would-block indication (rather than immediate success or failure) is
// the expected outcome and is reported via the returned wrappedErrno.
func connectSocket(h C.SRTSOCKET, addr *net.UDPAddr) (wrappedErrno, bool) {
	buf, clen := sockaddrFromUDP(addr)
	if C.srt_connect(h, (*C.struct_sockaddr)(unsafe.Pointer(&buf[0])), clen) == SRT_ERROR {
		return srtGetAndClearError(), false
	}
	return wrappedErrno{}, true
}

// registerConnectCallback installs cb as h's native connect-callback and
// returns the gopointer handle, which the caller keeps so Close can
// release it.
func registerConnectCallback(h C.SRTSOCKET, cb func(err error)) unsafe.Pointer {
	ptr := gopointer.Save(connectCallback(cb))
	C.srt_connect_callback(h, (*C.srt_connect_callback_fn)(C.srtConnectCB), ptr)
	return ptr
}

// acceptSocket accepts one pending connection on a listening h.
func acceptSocket(h C.SRTSOCKET) (C.SRTSOCKET, wrappedErrno, bool) {
	nh := C.srt_accept(h, nil, nil)
	if nh == invalidSocket {
		return nh, srtGetAndClearError(), false
	}
	return nh, wrappedErrno{}, true
}

// connectCallback is the Go shape of spec.md's "connect done" native
// notification: err is nil on success, otherwise the mapped error kind
// from errdefs.go.
type connectCallback func(err error)

//export srtConnectCBWrapper
func srtConnectCBWrapper(arg unsafe.Pointer, sock C.SRTSOCKET, errorcode C.int, peeraddr *C.struct_sockaddr, token C.int) {
	cb := gopointer.Restore(arg).(connectCallback)
	// The native thread that raised this is not the Reactor's command
	// goroutine; hand off to a fresh goroutine so the user callback can
	// safely call back into this package (e.g. Socket.Close) without
	// risking a deadlock against the thread that's running the native
	// protocol engine.
	go func() {
		if errorcode != 0 {
			cb(SRTErrno(errorcode).Kind())
			return
		}
		cb(nil)
	}()
}

// listenHook is the Go shape of the synchronous accept-or-reject
// decision spec.md's Acceptor.SetListenHook installs; it runs on the
// native protocol thread and must never block or call into the Reactor.
type listenHook func(callerH C.SRTSOCKET, hsVersion int, streamID string) bool

//export srtListenCBWrapper
func srtListenCBWrapper(arg unsafe.Pointer, sock C.SRTSOCKET, hsversion C.int, peeraddr *C.struct_sockaddr, streamid *C.char) C.int {
	hook := gopointer.Restore(arg).(listenHook)
	if hook(sock, int(hsversion), C.GoString(streamid)) {
		return 0
	}
	return -1
}
