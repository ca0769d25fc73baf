//go:build linux

package qdemux

import (
	"net"

	"golang.org/x/sys/unix"
)

// setReceiveBuffer sets the socket receive buffer, bypassing the
// net.core.rmem_max limit if the process has CAP_NET_ADMIN.
func setReceiveBuffer(c *net.UDPConn, size int) error {
	raw, err := c.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	if err := raw.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUFFORCE, size)
		if serr != nil {
			serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, size)
		}
	}); err != nil {
		return err
	}
	return serr
}
