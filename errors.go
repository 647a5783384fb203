package srtgo

/*
#cgo LDFLAGS: -lsrt
#include <srt/srt.h>
*/
import "C"

import (
	"fmt"
	"syscall"
)

// SRTErrno is the native SRT_ERRNO value observed by the calling
// goroutine. The native library stores its last error per-thread, so it
// must be fetched immediately by srtGetAndClearError on the same
// goroutine that saw the failing call return, before any other cgo call
// on that goroutine has a chance to overwrite it.
type SRTErrno int

// Well-known SRT_ERRNO values this package treats specially. The rest
// fall through to IoError via (SRTErrno).Kind.
const (
	srtErrUnknown        SRTErrno = -1
	srtErrSuccess        SRTErrno = 0
	srtErrConnSetup      SRTErrno = 1000
	srtErrNoServer       SRTErrno = 1001
	srtErrConnRej        SRTErrno = 1002
	srtErrSockFail       SRTErrno = 1003
	srtErrSecFail        SRTErrno = 1004
	srtErrClosed         SRTErrno = 1005
	srtErrConnFail       SRTErrno = 2000
	srtErrConnLost       SRTErrno = 2001
	srtErrNoConn         SRTErrno = 2002
	srtErrResource       SRTErrno = 3000
	srtErrThread         SRTErrno = 3001
	srtErrNoBuf          SRTErrno = 3002
	srtErrSysObj         SRTErrno = 3003
	srtErrInvSock        SRTErrno = 5004
	srtErrUnboundSock    SRTErrno = 5005
	srtErrNoListen       SRTErrno = 5006
	srtErrRdvNoServ      SRTErrno = 5007
	srtErrRdvUnbound     SRTErrno = 5008
	srtErrInvalMsgAPI    SRTErrno = 5009
	srtErrInvalBufferAPI SRTErrno = 5010
	srtErrEAsyncFail     SRTErrno = 6000
	srtErrEAsyncSnd      SRTErrno = 6001
	srtErrEAsyncRcv      SRTErrno = 6002
	srtErrETimeout       SRTErrno = 6003
	srtErrECongest       SRTErrno = 6004
	srtErrEPeerErr       SRTErrno = 7000
)

// wouldBlock reports whether errno is one of the would-block indications
// that the try-then-wait loops in Socket/Acceptor recover from
// internally; such an error is never surfaced to a caller.
func (e SRTErrno) wouldBlock() bool {
	return e == srtErrEAsyncSnd || e == srtErrEAsyncRcv
}

// Kind maps the native error to the stable error-kind taxonomy of
// errdefs.go (nil for success), per the
// policy in spec.md §4.2/§7.
func (e SRTErrno) Kind() error {
	switch {
	case e == srtErrSuccess:
		return nil
	case e == srtErrConnRej || e == srtErrConnSetup || e == srtErrNoServer || e == srtErrSecFail || e == srtErrRdvNoServ:
		return ConnectionRefused(e)
	case e == srtErrConnLost || e == srtErrConnFail:
		return ConnectionReset(e)
	case e == srtErrClosed || e == srtErrNoConn:
		return ConnectionAborted(e)
	case e == srtErrInvSock || e == srtErrUnboundSock:
		return InvalidSocket(e)
	case e == srtErrResource || e == srtErrThread || e == srtErrNoBuf || e == srtErrSysObj:
		return ResourceExhausted(e)
	case e == srtErrETimeout:
		return Timeout(e)
	case e == srtErrInvalMsgAPI || e == srtErrInvalBufferAPI || e == srtErrNoListen || e == srtErrRdvUnbound:
		return InvalidArgument(e.Error())
	default:
		return IoError(e)
	}
}

// Error implements the error interface, pulling the human-readable
// message from the native library where available.
func (e SRTErrno) Error() string {
	if e == srtErrUnknown {
		return "srt: unknown error"
	}
	msg := C.GoString(C.srt_strerror(C.int(e), 0))
	return fmt.Sprintf("srt: %s (code %d)", msg, int(e))
}

// wrappedErrno pairs a native SRT_ERRNO with an optional underlying
// syscall errno, used when the native error is a thin wrapper over a
// system call failure (e.g. ESYSOBJ).
type wrappedErrno struct {
	srt SRTErrno
	sys syscall.Errno
}

func (w wrappedErrno) Error() string {
	if w.sys != 0 {
		return fmt.Sprintf("%s: %s", w.srt.Error(), w.sys.Error())
	}
	return w.srt.Error()
}

func (w wrappedErrno) wouldBlock() bool { return w.srt.wouldBlock() }
func (w wrappedErrno) Kind() error { return w.srt.Kind() }

// srtGetAndClearError fetches the native per-thread last error. It must
// be called immediately after observing a failing return value from any
// srt_* call, on the same goroutine, before any other srt_* call runs on
// that goroutine.
func srtGetAndClearError() wrappedErrno {
	var sysErr C.int
	code := C.srt_getlasterror(&sysErr)
	w := wrappedErrno{srt: SRTErrno(code)}
	if sysErr != 0 {
		w.sys = syscall.Errno(sysErr)
	}
	return w
}
