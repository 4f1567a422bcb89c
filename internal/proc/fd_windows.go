//go:build windows

package proc

import (
	"errors"
	"net/netip"
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/pranshuparmar/remotepid/pkg/model"
)

// Winsock codes not exported by x/sys/windows.
const (
	wsaeNotSock = syscall.Errno(10038)
	wsaeNotConn = syscall.Errno(10057)
)

// SocketEndpoints returns the bound and peer addresses of a connected TCP
// SOCKET handle.
func SocketEndpoints(fd uintptr) (local, remote model.Endpoint, err error) {
	h := windows.Handle(fd)
	if h == windows.InvalidHandle {
		return local, remote, model.Errorf(model.KindInvalidDescriptor, "invalid socket handle")
	}

	lsa, err := windows.Getsockname(h)
	if err != nil {
		return local, remote, descriptorError(err, fd, "getsockname")
	}
	local, ok := endpointFromSockaddr(lsa)
	if !ok {
		return local, remote, model.Errorf(model.KindInvalidDescriptor, "handle %d is not an IP socket", fd)
	}

	rsa, err := windows.Getpeername(h)
	if err != nil {
		return local, remote, descriptorError(err, fd, "getpeername")
	}
	remote, ok = endpointFromSockaddr(rsa)
	if !ok {
		return local, remote, model.Errorf(model.KindNotConnected, "handle %d has no IP peer", fd)
	}
	return local, remote, nil
}

func endpointFromSockaddr(sa windows.Sockaddr) (model.Endpoint, bool) {
	switch v := sa.(type) {
	case *windows.SockaddrInet4:
		return model.NewEndpoint(netip.AddrFrom4(v.Addr), uint16(v.Port)), true
	case *windows.SockaddrInet6:
		return model.NewEndpoint(netip.AddrFrom16(v.Addr), uint16(v.Port)), true
	}
	return model.Endpoint{}, false
}

func descriptorError(err error, fd uintptr, op string) error {
	switch {
	case errors.Is(err, wsaeNotConn):
		return model.Wrap(model.KindNotConnected, err, "%s on handle %d", op, fd)
	case errors.Is(err, wsaeNotSock):
		return model.Wrap(model.KindInvalidDescriptor, err, "%s on handle %d: not a socket", op, fd)
	}
	return model.Wrap(model.KindInvalidDescriptor, err, "%s on handle %d", op, fd)
}
