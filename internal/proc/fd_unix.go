//go:build unix

package proc

import (
	"errors"
	"math"
	"net/netip"

	"golang.org/x/sys/unix"

	"github.com/pranshuparmar/remotepid/pkg/model"
)

// SocketEndpoints returns the bound and peer addresses of a connected TCP
// socket descriptor.
func SocketEndpoints(fd uintptr) (local, remote model.Endpoint, err error) {
	if fd > math.MaxInt32 {
		return local, remote, model.Errorf(model.KindInvalidDescriptor, "descriptor %d out of range", fd)
	}
	n := int(fd)

	typ, err := unix.GetsockoptInt(n, unix.SOL_SOCKET, unix.SO_TYPE)
	if err != nil {
		return local, remote, descriptorError(err, fd, "query socket type")
	}
	if typ != unix.SOCK_STREAM {
		return local, remote, model.Errorf(model.KindInvalidDescriptor, "descriptor %d is not a stream socket", fd)
	}

	lsa, err := unix.Getsockname(n)
	if err != nil {
		return local, remote, descriptorError(err, fd, "getsockname")
	}
	local, ok := endpointFromSockaddr(lsa)
	if !ok {
		return local, remote, model.Errorf(model.KindInvalidDescriptor, "descriptor %d is not an IP socket", fd)
	}

	rsa, err := unix.Getpeername(n)
	if err != nil {
		return local, remote, descriptorError(err, fd, "getpeername")
	}
	remote, ok = endpointFromSockaddr(rsa)
	if !ok {
		return local, remote, model.Errorf(model.KindNotConnected, "descriptor %d has no IP peer", fd)
	}
	return local, remote, nil
}

func endpointFromSockaddr(sa unix.Sockaddr) (model.Endpoint, bool) {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return model.NewEndpoint(netip.AddrFrom4(v.Addr), uint16(v.Port)), true
	case *unix.SockaddrInet6:
		return model.NewEndpoint(netip.AddrFrom16(v.Addr), uint16(v.Port)), true
	}
	return model.Endpoint{}, false
}

func descriptorError(err error, fd uintptr, op string) error {
	if errors.Is(err, unix.ENOTCONN) {
		return model.Wrap(model.KindNotConnected, err, "%s on descriptor %d", op, fd)
	}
	// EBADF, ENOTSOCK and anything else the kernel rejects the descriptor with
	return model.Wrap(model.KindInvalidDescriptor, err, "%s on descriptor %d", op, fd)
}
