//go:build !linux

package qdemux

import "net"

func setReceiveBuffer(c *net.UDPConn, size int) error {
	return c.SetReadBuffer(size)
}
