package port

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// peerPID returns the PID of the process on the other end of conn as recorded by the kernel when the
// connection was established.
func peerPID(conn *net.UnixConn) (uint32, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, err
	}

	var cred *unix.Ucred
	var credErr error
	err = raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return 0, err
	}
	if credErr != nil {
		return 0, fmt.Errorf("reading peer credentials: %w", credErr)
	}
	return uint32(cred.Pid), nil
}
