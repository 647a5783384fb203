package srtgo

/*
#cgo LDFLAGS: -lsrt
#include <srt/srt.h>

int srt_recvmsg2_wrapped(SRTSOCKET u, char* buf, int len, SRT_MSGCTRL *mctrl, int *srterror, int *syserror)
{
	int ret = srt_recvmsg2(u, buf, len, mctrl);
	if (ret < 0) {
		*srterror = srt_getlasterror(syserror);
	}
	return ret;
}

*/
import "C"
import (
	"context"
	"syscall"
	"unsafe"
)

func srtRecvMsg2Impl(u C.SRTSOCKET, buf []byte) (int, wrappedErrno, bool) {
	srterr := C.int(0)
	syserr := C.int(0)
	n := int(C.srt_recvmsg2_wrapped(u, (*C.char)(unsafe.Pointer(&buf[0])), C.int(len(buf)), nil, &srterr, &syserr))
	if n < 0 {
		w := wrappedErrno{srt: SRTErrno(srterr)}
		if syserr != 0 {
			w.sys = syscall.Errno(syserr)
		}
		return 0, w, false
	}
	return n, wrappedErrno{}, true
}

// RecvPacket reads one message into buf, blocking until data arrives, ctx
// is done, or the socket errors. It implements spec.md §4.4's "try once,
// then wait once" pattern: a would-block indication from the native call
// parks the calling goroutine on the Reactor rather than retrying in a
// loop, so a caller that cancels ctx while parked returns promptly
// instead of spinning.
func (s *Socket) RecvPacket(ctx context.Context, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, InvalidArgument("RecvPacket: zero-length buffer")
	}
	n, werr, ok := srtRecvMsg2Impl(s.handle, buf)
	if ok {
		return n, nil
	}
	if !werr.wouldBlock() {
		return 0, werr.Kind()
	}

	if _, err := s.reactor.WaitReadable(ctx, s.handle); err != nil {
		return 0, err
	}

	n, werr, ok = srtRecvMsg2Impl(s.handle, buf)
	if ok {
		return n, nil
	}
	return 0, werr.Kind()
}

// Read implements io.Reader, building a context from the socket's read
// deadline (if any) when the caller has not supplied one via
// RecvPacket.
func (s *Socket) Read(b []byte) (int, error) {
	ctx, cancel := s.readContext()
	defer cancel()
	return s.RecvPacket(ctx, b)
}
