//go:build !linux

package port

import (
	"errors"
	"net"
)

func peerPID(conn *net.UnixConn) (uint32, error) {
	return 0, errors.ErrUnsupported
}
