package qdemux

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUDPConnReadAndWrite(t *testing.T) {
	raw, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	conn, err := NewUDPConn(raw)
	require.NoError(t, err)
	defer conn.Close()

	client, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.WriteTo([]byte("foobar"), conn.LocalAddr())
	require.NoError(t, err)

	require.NoError(t, raw.SetReadDeadline(time.Now().Add(time.Second)))
	p, err := conn.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte("foobar"), p.Data)
	require.Equal(t, client.LocalAddr().String(), p.RemoteAddr.String())
	require.False(t, p.RcvTime.IsZero())
	localAddr, ok := p.LocalAddr.(*net.UDPAddr)
	require.True(t, ok)
	require.True(t, localAddr.IP.Equal(net.IPv4(127, 0, 0, 1)))
	p.release()

	_, err = conn.WriteTo([]byte("pong"), p.RemoteAddr)
	require.NoError(t, err)
	require.False(t, conn.IsWriteBlocked())

	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	b := make([]byte, 100)
	n, _, err := client.ReadFrom(b)
	require.NoError(t, err)
	require.Equal(t, []byte("pong"), b[:n])
}
