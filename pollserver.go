package srtgo

/*
#cgo LDFLAGS: -lsrt
#include <srt/srt.h>
*/
import "C"

import "time"

// pollLoop is the reactor's dedicated poll goroutine. It mirrors the
// shape this package started from (a single goroutine looping on
// srt_epoll_uwait into a stack-sized SRT_EPOLL_EVENT buffer, with a
// bounded timeout so it can observe a stop signal), with one deliberate
// change: it never mutates the pending-operations table itself. Every
// (handle, mask) pair it observes is handed to X via (*Reactor).deliver,
// posted as a closure — spec.md §4.3 is explicit that "the poll thread
// never touches P directly; it only posts work onto X", which is the one
// respect in which this differs from a plain mutex-guarded snapshot.
func (r *Reactor) pollLoop() {
	defer close(r.pollStopped)
	const batch = 512
	fds := make([]C.SRT_EPOLL_EVENT, batch)
	for {
		select {
		case <-r.pollStop:
			return
		default:
		}

		// SRT refuses srt_epoll_uwait on an empty epoll set, so while
		// nobody is waiting on anything we sleep briefly instead; this
		// doubles as the opportunity to observe the stop signal.
		empty := make(chan bool, 1)
		r.post(func() { empty <- (len(r.pending) == 0) })
		if <-empty {
			select {
			case <-r.pollStop:
				return
			case <-time.After(10 * time.Millisecond):
				continue
			}
		}

		res := C.srt_epoll_uwait(r.epollID, &fds[0], C.int(batch), 100)
		switch {
		case res == 0:
			// Timeout: normal with a bounded wait, loop to re-check pollStop.
			continue
		case res < 0:
			errno := srtGetAndClearError()
			if errno.srt == srtErrETimeout {
				continue
			}
			r.log.WithError(errno).Warn("srtgo: epoll_uwait failed")
			time.Sleep(10 * time.Millisecond)
		default:
			n := int(res)
			if n > batch {
				n = batch
			}
			// Copy out of the C-owned buffer before posting: fds is
			// reused on the next loop iteration.
			events := make([]polledEvent, n)
			for i := 0; i < n; i++ {
				events[i].h = fds[i].fd
				events[i].mask = C.int(fds[i].events)
			}
			r.post(func() {
				for _, e := range events {
					r.deliver(e.h, e.mask)
				}
			})
		}
	}
}

type polledEvent struct {
	h    C.SRTSOCKET
	mask C.int
}
