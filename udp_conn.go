package qdemux

import (
	"errors"
	"net"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/qdemux/qdemux/internal/utils"
)

// The kernel default is far too small for a busy QUIC server. Bumping it is
// best-effort; a warning is logged if the OS caps the request.
const desiredReceiveBufferSize = (1 << 20) * 7 // 7 MB

// A UDPConn wraps a *net.UDPConn for use with the dispatcher.
// It requests per-datagram destination addresses from the kernel, so that a
// socket bound to a wildcard address still knows which local IP every packet
// arrived on, and it hands out pooled receive buffers.
//
// UDPConn implements PacketSender.
type UDPConn struct {
	conn      *net.UDPConn
	localAddr *net.UDPAddr
	ipv4      bool

	oobBuffer []byte

	// writeBlocked is set when a write fails with EAGAIN on a non-blocking
	// socket, and cleared by the next successful write.
	writeBlocked bool

	logger utils.Logger
}

var _ PacketSender = &UDPConn{}

// NewUDPConn wraps the given UDP socket.
func NewUDPConn(c *net.UDPConn) (*UDPConn, error) {
	localAddr, ok := c.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, errors.New("not a UDP socket")
	}
	isIPv4 := localAddr.IP.To4() != nil

	logger := utils.DefaultLogger.WithPrefix("udp")
	if err := setReceiveBuffer(c, desiredReceiveBufferSize); err != nil {
		logger.Infof("Setting the receive buffer to %d kiB failed: %s", desiredReceiveBufferSize/1024, err)
	}
	if isIPv4 {
		if err := ipv4.NewPacketConn(c).SetControlMessage(ipv4.FlagDst, true); err != nil {
			return nil, err
		}
	} else {
		if err := ipv6.NewPacketConn(c).SetControlMessage(ipv6.FlagDst, true); err != nil {
			return nil, err
		}
	}
	return &UDPConn{
		conn:      c,
		localAddr: localAddr,
		ipv4:      isIPv4,
		oobBuffer: make([]byte, 128),
		logger:    logger,
	}, nil
}

// ReadPacket reads the next datagram. The returned packet's data is backed by
// a pooled buffer owned by the dispatcher after HandlePacket is called.
func (c *UDPConn) ReadPacket() (ReceivedPacket, error) {
	buf := getPacketBuffer()
	n, oobn, _, addr, err := c.conn.ReadMsgUDP(buf.Slice, c.oobBuffer)
	if err != nil {
		buf.Release()
		return ReceivedPacket{}, err
	}
	return ReceivedPacket{
		Data:       buf.Slice[:n],
		LocalAddr:  c.packetLocalAddr(c.oobBuffer[:oobn]),
		RemoteAddr: addr,
		RcvTime:    time.Now(),
		buffer:     buf,
	}, nil
}

// packetLocalAddr recovers the destination address of a datagram from the
// control messages, falling back to the socket's bind address.
func (c *UDPConn) packetLocalAddr(oob []byte) net.Addr {
	if len(oob) == 0 {
		return c.localAddr
	}
	var dst net.IP
	if c.ipv4 {
		var cm ipv4.ControlMessage
		if err := cm.Parse(oob); err == nil {
			dst = cm.Dst
		}
	} else {
		var cm ipv6.ControlMessage
		if err := cm.Parse(oob); err == nil {
			dst = cm.Dst
		}
	}
	if dst == nil {
		return c.localAddr
	}
	return &net.UDPAddr{IP: dst, Port: c.localAddr.Port, Zone: c.localAddr.Zone}
}

// WriteTo sends a datagram.
func (c *UDPConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	n, err := c.conn.WriteTo(b, addr)
	if err != nil && (errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)) {
		c.writeBlocked = true
		return n, err
	}
	c.writeBlocked = false
	return n, err
}

// IsWriteBlocked says if the last write failed because the socket's send
// buffer was full. Only meaningful for sockets in non-blocking mode.
func (c *UDPConn) IsWriteBlocked() bool { return c.writeBlocked }

// LocalAddr returns the socket's bind address.
func (c *UDPConn) LocalAddr() net.Addr { return c.localAddr }

func (c *UDPConn) Close() error { return c.conn.Close() }
