package wire

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/qdemux/qdemux/internal/protocol"
	"github.com/qdemux/qdemux/quicvarint"

	"github.com/stretchr/testify/require"
)

func composeLongHeader(t *testing.T, typeByte byte, version protocol.Version, destConnID, srcConnID []byte, token []byte, payloadLen int) []byte {
	t.Helper()
	b := []byte{typeByte}
	b = binary.BigEndian.AppendUint32(b, uint32(version))
	b = append(b, uint8(len(destConnID)))
	b = append(b, destConnID...)
	b = append(b, uint8(len(srcConnID)))
	b = append(b, srcConnID...)
	if typeByte&0x30 == 0 { // Initial (v1)
		b = quicvarint.Append(b, uint64(len(token)))
		b = append(b, token...)
	}
	b = quicvarint.Append(b, uint64(payloadLen))
	return append(b, make([]byte, payloadLen)...)
}

func TestParseConnectionIDLongHeader(t *testing.T) {
	b := composeLongHeader(t, 0xc0, protocol.Version1, []byte{1, 2, 3, 4, 5, 6, 7, 8}, []byte{0xa, 0xb}, nil, 42)
	connID, err := ParseConnectionID(b, 4)
	require.NoError(t, err)
	require.Equal(t, protocol.ParseConnectionID([]byte{1, 2, 3, 4, 5, 6, 7, 8}), connID)
}

func TestParseConnectionIDShortHeader(t *testing.T) {
	b := append([]byte{0x40}, []byte{0xde, 0xad, 0xbe, 0xef, 1, 2, 3, 4}...)
	connID, err := ParseConnectionID(b, 4)
	require.NoError(t, err)
	require.Equal(t, protocol.ParseConnectionID([]byte{0xde, 0xad, 0xbe, 0xef}), connID)

	_, err = ParseConnectionID(b[:4], 4)
	require.Equal(t, io.EOF, err)
}

func TestParseConnectionIDTooLong(t *testing.T) {
	b := []byte{0xc0, 0, 0, 0, 1, 21}
	b = append(b, make([]byte, 21)...)
	_, err := ParseConnectionID(b, 8)
	require.Equal(t, protocol.ErrInvalidConnectionIDLen, err)
}

func TestParsePacketInitial(t *testing.T) {
	destConnID := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	srcConnID := []byte{0xa, 0xb, 0xc}
	token := []byte{0xf0, 0x0d}
	b := composeLongHeader(t, 0xc0, protocol.Version1, destConnID, srcConnID, token, 123)
	rest := []byte{0x40, 1, 2, 3} // coalesced short header packet
	hdr, data, remaining, err := ParsePacket(append(b, rest...))
	require.NoError(t, err)
	require.Equal(t, protocol.PacketTypeInitial, hdr.Type)
	require.Equal(t, protocol.Version1, hdr.Version)
	require.Equal(t, protocol.ParseConnectionID(destConnID), hdr.DestConnectionID)
	require.Equal(t, protocol.ParseConnectionID(srcConnID), hdr.SrcConnectionID)
	require.Equal(t, token, hdr.Token)
	require.Equal(t, b, data)
	require.Equal(t, rest, remaining)
}

func TestParsePacketTypesVersion2(t *testing.T) {
	// in v2 the Initial packet uses type 0b01
	b := []byte{0xc0 | 0b01<<4}
	b = binary.BigEndian.AppendUint32(b, uint32(protocol.Version2))
	b = append(b, 0)       // dest conn ID
	b = append(b, 0)       // src conn ID
	b = quicvarint.Append(b, 0) // token
	b = quicvarint.Append(b, 0) // length
	hdr, _, _, err := ParsePacket(b)
	require.NoError(t, err)
	require.Equal(t, protocol.PacketTypeInitial, hdr.Type)
}

func TestParsePacketUnsupportedVersion(t *testing.T) {
	b := []byte{0xc0}
	b = binary.BigEndian.AppendUint32(b, 0xaaaaaaaa)
	b = append(b, 4, 0xde, 0xad, 0xbe, 0xef)
	b = append(b, 1, 0x42)
	hdr, _, _, err := ParsePacket(b)
	require.Equal(t, ErrUnsupportedVersion, err)
	// the invariant part of the header was parsed
	require.Equal(t, protocol.Version(0xaaaaaaaa), hdr.Version)
	require.Equal(t, protocol.ParseConnectionID([]byte{0xde, 0xad, 0xbe, 0xef}), hdr.DestConnectionID)
	require.Equal(t, protocol.ParseConnectionID([]byte{0x42}), hdr.SrcConnectionID)
}

func TestParsePacketTruncated(t *testing.T) {
	b := composeLongHeader(t, 0xc0, protocol.Version1, []byte{1, 2, 3, 4, 5, 6, 7, 8}, nil, nil, 1000)
	for i := 1; i < len(b)-1000; i++ {
		_, _, _, err := ParsePacket(b[:i])
		require.Error(t, err)
	}
	// length field announces more bytes than available
	_, _, _, err := ParsePacket(b[:len(b)-1])
	require.Error(t, err)
}

func TestParsePacketNotLongHeader(t *testing.T) {
	_, _, _, err := ParsePacket([]byte{0x40, 1, 2, 3})
	require.Error(t, err)
	_, _, _, err = ParsePacket(nil)
	require.Error(t, err)
	// fixed bit not set for a known version
	b := composeLongHeader(t, 0x80, protocol.Version1, nil, nil, nil, 0)
	_, _, _, err = ParsePacket(b)
	require.Error(t, err)
}

func TestVersionNegotiationPacketDetection(t *testing.T) {
	require.False(t, IsVersionNegotiationPacket(nil))
	require.False(t, IsVersionNegotiationPacket([]byte{0x80, 0, 0, 0}))
	require.True(t, IsVersionNegotiationPacket([]byte{0x80, 0, 0, 0, 0}))
	require.False(t, IsVersionNegotiationPacket([]byte{0x80, 0, 0, 0, 1}))
	require.False(t, IsVersionNegotiationPacket([]byte{0x40, 0, 0, 0, 0}))
}
