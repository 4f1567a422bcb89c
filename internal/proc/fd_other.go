//go:build !unix && !windows

package proc

import "github.com/pranshuparmar/remotepid/pkg/model"

func SocketEndpoints(fd uintptr) (local, remote model.Endpoint, err error) {
	return local, remote, model.Errorf(model.KindSystemUnavailable, "socket descriptors are not supported on this platform")
}
