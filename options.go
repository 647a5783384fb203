package srtgo

/*
#cgo LDFLAGS: -lsrt
#include <srt/srt.h>
*/
import "C"

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"
)

// SrtOptionLifecycle orders the phase at which an option may legally be
// applied: PreBind < Pre < Post. An option legal at an earlier phase is
// also legal at every later one once its own phase has passed is NOT
// true in general (PreBind options can only ever be set pre-bind); see
// (socketOption).CanSetAt for the exact rule.
type SrtOptionLifecycle int

const (
	LifecyclePrebind SrtOptionLifecycle = iota
	LifecyclePre
	LifecyclePost
)

func (s SrtOptionLifecycle) String() string {
	switch s {
	case LifecyclePrebind:
		return "prebind"
	case LifecyclePre:
		return "pre"
	case LifecyclePost:
		return "post"
	default:
		return "unknown"
	}
}

const (
	tInteger32 = iota
	tInteger64
	tString
	tBoolean
	tTransType
)

type socketOption struct {
	name      string
	option    C.SRT_SOCKOPT
	lifecycle SrtOptionLifecycle
	dataType  int
}

func (so *socketOption) Name() string { return so.name }
func (so *socketOption) Lifecycle() SrtOptionLifecycle { return so.lifecycle }

// CanSetAt reports whether this option may be applied while the socket
// is in the given lifecycle stage: a PreBind-only option may only be set
// at PreBind; a Pre option may be set at PreBind or Pre; a Post option
// may be set at any stage (spec.md §4.1).
func (so *socketOption) CanSetAt(stage SrtOptionLifecycle) bool {
	switch so.lifecycle {
	case LifecyclePrebind:
		return stage == LifecyclePrebind
	case LifecyclePre:
		return stage == LifecyclePrebind || stage == LifecyclePre
	default:
		return true
	}
}

// socketOptions is the registry: name -> {native option id, value type,
// legal application phase}. It must include at minimum every option
// named in spec.md §4.1.
var socketOptions = []socketOption{
	// PreBind: buffer allocation and binding behavior.
	{"mss", C.SRTO_MSS, LifecyclePrebind, tInteger32},
	{"sndbuf", C.SRTO_SNDBUF, LifecyclePrebind, tInteger32},
	{"rcvbuf", C.SRTO_RCVBUF, LifecyclePrebind, tInteger32},
	{"udp_sndbuf", C.SRTO_UDP_SNDBUF, LifecyclePrebind, tInteger32},
	{"udp_rcvbuf", C.SRTO_UDP_RCVBUF, LifecyclePrebind, tInteger32},
	{"ipttl", C.SRTO_IPTTL, LifecyclePrebind, tInteger32},
	{"iptos", C.SRTO_IPTOS, LifecyclePrebind, tInteger32},
	{"reuseaddr", C.SRTO_REUSEADDR, LifecyclePrebind, tBoolean},
	{"transtype", C.SRTO_TRANSTYPE, LifecyclePrebind, tTransType},

	// Pre: handshake, encryption, negotiation.
	{"fc", C.SRTO_FC, LifecyclePre, tInteger32},
	{"tsbpdmode", C.SRTO_TSBPDMODE, LifecyclePre, tBoolean},
	{"latency", C.SRTO_LATENCY, LifecyclePre, tInteger32},
	{"rcvlatency", C.SRTO_RCVLATENCY, LifecyclePre, tInteger32},
	{"peerlatency", C.SRTO_PEERLATENCY, LifecyclePre, tInteger32},
	{"passphrase", C.SRTO_PASSPHRASE, LifecyclePre, tString},
	{"pbkeylen", C.SRTO_PBKEYLEN, LifecyclePre, tInteger32},
	{"tlpktdrop", C.SRTO_TLPKTDROP, LifecyclePre, tBoolean},
	{"nakreport", C.SRTO_NAKREPORT, LifecyclePre, tBoolean},
	{"conntimeo", C.SRTO_CONNTIMEO, LifecyclePre, tInteger32},
	{"streamid", C.SRTO_STREAMID, LifecyclePre, tString},
	{"payloadsize", C.SRTO_PAYLOADSIZE, LifecyclePre, tInteger32},
	{"messageapi", C.SRTO_MESSAGEAPI, LifecyclePre, tBoolean},
	{"minversion", C.SRTO_MINVERSION, LifecyclePre, tInteger32},
	{"enforcedencryption", C.SRTO_ENFORCEDENCRYPTION, LifecyclePre, tBoolean},
	{"peeridletimeo", C.SRTO_PEERIDLETIMEO, LifecyclePre, tInteger32},
	{"packetfilter", C.SRTO_PACKETFILTER, LifecyclePre, tString},
	{"congestion", C.SRTO_CONGESTION, LifecyclePre, tString},
	{"kmrefreshrate", C.SRTO_KMREFRESHRATE, LifecyclePre, tInteger32},
	{"kmpreannounce", C.SRTO_KMPREANNOUNCE, LifecyclePre, tInteger32},
	// Forced by NewSocket/NewAcceptor regardless of caller input; still
	// registered so ApplyOption can reject an explicit attempt to flip
	// them back to synchronous at the right phase.
	{"syncsend", C.SRTO_SNDSYN, LifecyclePre, tBoolean},
	{"syncrecv", C.SRTO_RCVSYN, LifecyclePre, tBoolean},

	// Post: bandwidth, loss handling, may be adjusted any time.
	{"maxbw", C.SRTO_MAXBW, LifecyclePost, tInteger64},
	{"inputbw", C.SRTO_INPUTBW, LifecyclePost, tInteger64},
	{"mininputbw", C.SRTO_MININPUTBW, LifecyclePost, tInteger64},
	{"oheadbw", C.SRTO_OHEADBW, LifecyclePost, tInteger32},
	{"snddropdelay", C.SRTO_SNDDROPDELAY, LifecyclePost, tInteger32},
	{"lossmaxttl", C.SRTO_LOSSMAXTTL, LifecyclePost, tInteger32},
}

// LookupOption resolves a canonical option name to its registry entry.
// Lookup is case-insensitive and strips a leading "SRTO_" prefix, so
// "SRTO_LATENCY", "srto_latency", and "latency" are equivalent.
func LookupOption(name string) (*socketOption, bool) {
	norm := strings.ToLower(name)
	norm = strings.TrimPrefix(norm, "srto_")
	for i := range socketOptions {
		if socketOptions[i].name == norm {
			return &socketOptions[i], true
		}
	}
	return nil, false
}

// ParseOptionValue parses text into opt's native type. Booleans accept
// {0,1,true,false,yes,no} case-insensitively; transtype accepts
// {live,file}.
func ParseOptionValue(opt *socketOption, text string) (any, error) {
	switch opt.dataType {
	case tInteger32:
		v, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return nil, InvalidArgument(fmt.Sprintf("%s: invalid int32 value %q", opt.name, text))
		}
		return int32(v), nil
	case tInteger64:
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, InvalidArgument(fmt.Sprintf("%s: invalid int64 value %q", opt.name, text))
		}
		return v, nil
	case tString:
		return text, nil
	case tBoolean:
		switch strings.ToLower(text) {
		case "1", "true", "yes":
			return true, nil
		case "0", "false", "no":
			return false, nil
		default:
			return nil, InvalidArgument(fmt.Sprintf("%s: invalid boolean value %q", opt.name, text))
		}
	case tTransType:
		switch strings.ToLower(text) {
		case "live":
			return C.int32_t(C.SRTT_LIVE), nil
		case "file":
			return C.int32_t(C.SRTT_FILE), nil
		default:
			return nil, InvalidArgument(fmt.Sprintf("%s: transtype must be 'live' or 'file', got %q", opt.name, text))
		}
	default:
		return nil, InvalidArgument(fmt.Sprintf("%s: unsupported data type", opt.name))
	}
}

// ApplyOption validates opt's phase against the socket's current phase
// and, if legal, calls srt_setsockflag. A phase violation returns
// ErrInvalidArgument distinguishing "too early" (never becomes legal
// before phase advances) from "too late" (already passed the only legal
// window), so Socket/Acceptor construction can decide whether to defer
// the option into the pending buffer.
func ApplyOption(h C.SRTSOCKET, opt *socketOption, text string, phase SrtOptionLifecycle) error {
	if !opt.CanSetAt(phase) {
		if phase < opt.lifecycle {
			return InvalidArgument(fmt.Sprintf("%s: too early (requires %s, currently %s)", opt.name, opt.lifecycle, phase))
		}
		return InvalidArgument(fmt.Sprintf("%s: too late (requires %s, currently %s)", opt.name, opt.lifecycle, phase))
	}
	val, err := ParseOptionValue(opt, text)
	if err != nil {
		return err
	}
	if (opt.name == "syncsend" || opt.name == "syncrecv") && val == true {
		return InvalidArgument(fmt.Sprintf("%s: sockets are always non-blocking", opt.name))
	}
	return setNativeOption(h, opt, val)
}

func setNativeOption(h C.SRTSOCKET, opt *socketOption, val any) error {
	var res C.int
	switch v := val.(type) {
	case int32:
		res = C.srt_setsockflag(h, opt.option, unsafe.Pointer(&v), C.int32_t(unsafe.Sizeof(v)))
	case int64:
		res = C.srt_setsockflag(h, opt.option, unsafe.Pointer(&v), C.int32_t(unsafe.Sizeof(v)))
	case bool:
		var c C.char
		if v {
			c = 1
		}
		res = C.srt_setsockflag(h, opt.option, unsafe.Pointer(&c), C.int32_t(unsafe.Sizeof(c)))
	case string:
		cstr := C.CString(v)
		defer C.free(unsafe.Pointer(cstr))
		res = C.srt_setsockflag(h, opt.option, unsafe.Pointer(cstr), C.int32_t(len(v)))
	case C.int32_t:
		res = C.srt_setsockflag(h, opt.option, unsafe.Pointer(&v), C.int32_t(unsafe.Sizeof(v)))
	default:
		return InvalidArgument(fmt.Sprintf("%s: unsupported value type %T", opt.name, val))
	}
	if res == SRT_ERROR {
		return srtGetAndClearError().Kind()
	}
	return nil
}

// pendingOptions buffers option=value pairs that could not be applied
// yet because their phase has not arrived; they are replayed by Socket/
// Acceptor as the object advances through PreBind -> Pre -> Post.
type pendingOptions struct {
	values map[string]string
}

func newPendingOptions(opts map[string]string) *pendingOptions {
	p := &pendingOptions{values: make(map[string]string, len(opts))}
	for k, v := range opts {
		p.values[k] = v
	}
	return p
}

// applyPhase applies every buffered option whose lifecycle is exactly
// target, removing it from the buffer regardless of success so a later
// phase does not retry an option that already failed.
func (p *pendingOptions) applyPhase(h C.SRTSOCKET, target SrtOptionLifecycle, current SrtOptionLifecycle) error {
	for name, text := range p.values {
		opt, ok := LookupOption(name)
		if !ok {
			delete(p.values, name)
			return InvalidArgument(fmt.Sprintf("unknown option: %s", name))
		}
		if opt.lifecycle != target {
			continue
		}
		delete(p.values, name)
		if err := ApplyOption(h, opt, text, current); err != nil {
			return err
		}
	}
	return nil
}
