package model

import (
	"net/netip"
	"strconv"
)

type Family uint8

const (
	FamilyIPv4 Family = 4
	FamilyIPv6 Family = 6
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "IPv4"
	case FamilyIPv6:
		return "IPv6"
	}
	return "unknown"
}

// Endpoint is one side of a TCP 4-tuple. Build it with NewEndpoint so that
// IPv4-mapped IPv6 addresses and zones are normalized and two endpoints for
// the same socket address compare equal with ==.
type Endpoint struct {
	Addr netip.Addr
	Port uint16
}

func NewEndpoint(addr netip.Addr, port uint16) Endpoint {
	return Endpoint{Addr: addr.Unmap().WithZone(""), Port: port}
}

func EndpointFromAddrPort(ap netip.AddrPort) Endpoint {
	return NewEndpoint(ap.Addr(), ap.Port())
}

func (e Endpoint) Family() Family {
	if e.Addr.Is4() {
		return FamilyIPv4
	}
	return FamilyIPv6
}

// Bytes returns the address as 4 or 16 bytes depending on the family.
func (e Endpoint) Bytes() []byte {
	return e.Addr.AsSlice()
}

func (e Endpoint) IsValid() bool {
	return e.Addr.IsValid()
}

func (e Endpoint) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(e.Addr, e.Port)
}

func (e Endpoint) String() string {
	if !e.Addr.IsValid() {
		return "invalid:" + strconv.Itoa(int(e.Port))
	}
	return e.AddrPort().String()
}
