package srtgo

import (
	"net"
	"strconv"
)

// ResolveSRTAddr resolves host and port into the net.UDPAddr SRT's wire
// addressing uses. SRT addresses carry nothing beyond what UDPAddr
// already models (IP, port, zone), so this package never defines its own
// address type, unlike gosrt's SRTAddr wrapper.
func ResolveSRTAddr(host string, port uint16) (*net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		return nil, InvalidArgument("invalid address: " + err.Error())
	}
	return addr, nil
}
