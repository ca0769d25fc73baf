package qdemux

import (
	"encoding/binary"

	"github.com/qdemux/qdemux/internal/handshake"
	"github.com/qdemux/qdemux/internal/protocol"
	"github.com/qdemux/qdemux/internal/qerr"
	"github.com/qdemux/qdemux/internal/wire"
	"github.com/qdemux/qdemux/quicvarint"
)

// statelessTerminator builds the packets used to reject a connection attempt
// that never produced a session: a sealed Initial packet carrying a
// CONNECTION_CLOSE frame, encrypted with the keys any client can derive from
// its own first Initial packet.
type statelessTerminator struct{}

// composeConnectionClose seals a server Initial with a CONNECTION_CLOSE
// frame. keyConnID is the destination connection ID of the client's first
// Initial packet, from which the Initial keys are derived. destConnID is the
// client's source connection ID.
// The frame is returned alongside the packet, for logging.
func (statelessTerminator) composeConnectionClose(
	destConnID ConnectionID,
	keyConnID ConnectionID,
	v Version,
	transportErr *qerr.TransportError,
) ([]byte, *wire.ConnectionCloseFrame, error) {
	sealer, _ := handshake.NewInitialAEAD(keyConnID, protocol.PerspectiveServer, v)

	ccf := &wire.ConnectionCloseFrame{
		ErrorCode:    uint64(transportErr.ErrorCode),
		ReasonPhrase: transportErr.ErrorMessage,
	}
	if transportErr.ErrorCode.IsCryptoError() {
		// crypto errors must not leak the reason to an observer
		ccf.ReasonPhrase = ""
	}
	payload := ccf.Append(nil)

	const pnLen = 4
	typeByte := byte(0xc0 | pnLen-1)
	if v == protocol.Version2 {
		typeByte |= 0b01 << 4
	}
	hdr := []byte{typeByte}
	hdr = binary.BigEndian.AppendUint32(hdr, uint32(v))
	hdr = append(hdr, uint8(destConnID.Len()))
	hdr = append(hdr, destConnID.Bytes()...)
	hdr = append(hdr, uint8(keyConnID.Len()))
	hdr = append(hdr, keyConnID.Bytes()...)
	hdr = quicvarint.Append(hdr, 0) // no token
	hdr = quicvarint.AppendWithLen(hdr, uint64(pnLen+len(payload)+sealer.Overhead()), 2)
	pnOffset := len(hdr)
	hdr = binary.BigEndian.AppendUint32(hdr, 0) // packet number 0

	packet := sealer.Seal(hdr, payload, 0, hdr)
	sealer.EncryptHeader(packet[pnOffset+4:pnOffset+4+16], &packet[0], packet[pnOffset:pnOffset+4])
	return packet, ccf, nil
}

// composeUnsupportedVersionTermination builds the reply for terminating a
// connection attempt with a version this server doesn't speak: a version
// negotiation packet with an empty version list, which no version is allowed
// to interpret as an invitation to retry.
func (statelessTerminator) composeUnsupportedVersionTermination(destConnID, srcConnID protocol.ArbitraryLenConnectionID) []byte {
	return wire.ComposeVersionNegotiation(destConnID, srcConnID, nil)
}
