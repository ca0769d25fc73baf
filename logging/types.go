package logging

import (
	"github.com/qdemux/qdemux/internal/protocol"
	"github.com/qdemux/qdemux/internal/wire"
)

type (
	// A ByteCount in QUIC.
	ByteCount = protocol.ByteCount
	// A ConnectionID is a QUIC Connection ID.
	ConnectionID = protocol.ConnectionID
	// An ArbitraryLenConnectionID is a QUIC Connection ID of arbitrary length.
	ArbitraryLenConnectionID = protocol.ArbitraryLenConnectionID
	// The Version of a QUIC connection.
	Version = protocol.Version
	// The PacketType is the type of a QUIC packet.
	PacketType = protocol.PacketType

	// A Header is the long header of a QUIC packet.
	Header = wire.Header
	// A ConnectionCloseFrame is a CONNECTION_CLOSE frame.
	ConnectionCloseFrame = wire.ConnectionCloseFrame
	// A StatelessResetToken is a stateless reset token.
	StatelessResetToken = wire.StatelessResetToken
)

const (
	// PacketTypeInitial is the packet type of an Initial packet
	PacketTypeInitial = protocol.PacketTypeInitial
	// PacketTypeRetry is the packet type of a Retry packet
	PacketTypeRetry = protocol.PacketTypeRetry
	// PacketTypeHandshake is the packet type of a Handshake packet
	PacketTypeHandshake = protocol.PacketTypeHandshake
	// PacketType0RTT is the packet type of a 0-RTT packet
	PacketType0RTT = protocol.PacketType0RTT
)

// PacketDropReason is the reason why a packet is dropped.
type PacketDropReason uint8

const (
	// PacketDropHeaderParseError is used when a packet is dropped because header parsing failed
	PacketDropHeaderParseError PacketDropReason = iota
	// PacketDropUnknownConnectionID is used when a packet is dropped because the connection ID is unknown
	PacketDropUnknownConnectionID
	// PacketDropProtocolViolation is used when a packet is dropped due to a protocol violation
	PacketDropProtocolViolation
	// PacketDropDOSPrevention is used when a packet is dropped to mitigate a DoS attack
	PacketDropDOSPrevention
	// PacketDropUnsupportedVersion is used when a packet is dropped because the version is not supported
	PacketDropUnsupportedVersion
	// PacketDropUnexpectedPacket is used when an unexpected packet is received
	PacketDropUnexpectedPacket
	// PacketDropBufferFull is used when a packet is dropped because the early-packet buffer is full
	PacketDropBufferFull
)

func (r PacketDropReason) String() string {
	switch r {
	case PacketDropHeaderParseError:
		return "header_parse_error"
	case PacketDropUnknownConnectionID:
		return "unknown_connection_id"
	case PacketDropProtocolViolation:
		return "protocol_violation"
	case PacketDropDOSPrevention:
		return "dos_prevention"
	case PacketDropUnsupportedVersion:
		return "unsupported_version"
	case PacketDropUnexpectedPacket:
		return "unexpected_packet"
	case PacketDropBufferFull:
		return "buffer_full"
	default:
		panic("unknown packet drop reason")
	}
}
