package srtgo

/*
#cgo LDFLAGS: -lsrt
#include <srt/srt.h>

int srt_sendmsg2_wrapped(SRTSOCKET u, const char* buf, int len, SRT_MSGCTRL *mctrl, int *srterror, int *syserror)
{
	int ret = srt_sendmsg2(u, buf, len, mctrl);
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

func srtSendMsg2Impl(u C.SRTSOCKET, buf []byte) (int, wrappedErrno, bool) {
	srterr := C.int(0)
	syserr := C.int(0)
	n := int(C.srt_sendmsg2_wrapped(u, (*C.char)(unsafe.Pointer(&buf[0])), C.int(len(buf)), nil, &srterr, &syserr))
	if n < 0 {
		w := wrappedErrno{srt: SRTErrno(srterr)}
		if syserr != 0 {
			w.sys = syscall.Errno(syserr)
		}
		return 0, w, false
	}
	return n, wrappedErrno{}, true
}

// SendPacket writes one message from buf, blocking until the socket is
// writable, ctx is done, or the socket errors. Mirrors RecvPacket's
// try-once-then-wait-once shape.
func (s *Socket) SendPacket(ctx context.Context, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, InvalidArgument("SendPacket: zero-length buffer")
	}
	n, werr, ok := srtSendMsg2Impl(s.handle, buf)
	if ok {
		return n, nil
	}
	if !werr.wouldBlock() {
		return 0, werr.Kind()
	}

	if _, err := s.reactor.WaitWritable(ctx, s.handle); err != nil {
		return 0, err
	}

	n, werr, ok = srtSendMsg2Impl(s.handle, buf)
	if ok {
		return n, nil
	}
	return 0, werr.Kind()
}

// Write implements io.Writer, building a context from the socket's write
// deadline (if any) when the caller has not supplied one via SendPacket.
func (s *Socket) Write(b []byte) (int, error) {
	ctx, cancel := s.writeContext()
	defer cancel()
	return s.SendPacket(ctx, b)
}
