// Package testutils composes valid client Initial packets for tests.
package testutils

import (
	"encoding/binary"

	"golang.org/x/crypto/cryptobyte"

	"github.com/qdemux/qdemux/internal/handshake"
	"github.com/qdemux/qdemux/internal/protocol"
	"github.com/qdemux/qdemux/internal/wire"
	"github.com/qdemux/qdemux/quicvarint"
)

// ClientHelloConfig describes the TLS ClientHello composed by ComposeClientHello.
type ClientHelloConfig struct {
	ServerName string
	ALPNs      []string
	Resumption bool
	EarlyData  bool
}

// ComposeClientHello builds a minimal but well-formed TLS ClientHello handshake message.
func ComposeClientHello(conf ClientHelloConfig) []byte {
	var b cryptobyte.Builder
	b.AddUint8(1) // client_hello
	b.AddUint24LengthPrefixed(func(body *cryptobyte.Builder) {
		body.AddUint16(0x0303) // legacy_version
		var random [32]byte
		body.AddBytes(random[:])
		body.AddUint8LengthPrefixed(func(*cryptobyte.Builder) {}) // legacy_session_id
		body.AddUint16LengthPrefixed(func(suites *cryptobyte.Builder) {
			suites.AddUint16(0x1301) // TLS_AES_128_GCM_SHA256
		})
		body.AddUint8LengthPrefixed(func(compression *cryptobyte.Builder) {
			compression.AddUint8(0)
		})
		body.AddUint16LengthPrefixed(func(exts *cryptobyte.Builder) {
			if conf.ServerName != "" {
				exts.AddUint16(0) // server_name
				exts.AddUint16LengthPrefixed(func(ext *cryptobyte.Builder) {
					ext.AddUint16LengthPrefixed(func(list *cryptobyte.Builder) {
						list.AddUint8(0) // host_name
						list.AddUint16LengthPrefixed(func(name *cryptobyte.Builder) {
							name.AddBytes([]byte(conf.ServerName))
						})
					})
				})
			}
			if len(conf.ALPNs) > 0 {
				exts.AddUint16(16) // application_layer_protocol_negotiation
				exts.AddUint16LengthPrefixed(func(ext *cryptobyte.Builder) {
					ext.AddUint16LengthPrefixed(func(list *cryptobyte.Builder) {
						for _, alpn := range conf.ALPNs {
							list.AddUint8LengthPrefixed(func(proto *cryptobyte.Builder) {
								proto.AddBytes([]byte(alpn))
							})
						}
					})
				})
			}
			if conf.EarlyData {
				exts.AddUint16(42)
				exts.AddUint16LengthPrefixed(func(*cryptobyte.Builder) {})
			}
			if conf.Resumption {
				exts.AddUint16(41) // pre_shared_key must be the last extension
				exts.AddUint16LengthPrefixed(func(*cryptobyte.Builder) {})
			}
		})
	})
	return b.BytesOrPanic()
}

// ComposeInitialPacket seals a client Initial packet carrying the given CRYPTO
// stream fragment, padded to padToSize bytes.
func ComposeInitialPacket(destConnID, srcConnID protocol.ConnectionID, v protocol.Version, cryptoOffset int64, cryptoData []byte, keyConnID protocol.ConnectionID, padToSize int) []byte {
	sealer, _ := handshake.NewInitialAEAD(keyConnID, protocol.PerspectiveClient, v)

	frame := &wire.CryptoFrame{Offset: cryptoOffset, Data: cryptoData}
	payload := frame.Append(nil)

	const pnLen = 4
	hdrLen := 1 + 4 + 1 + destConnID.Len() + 1 + srcConnID.Len() + 1 /* token length */ + 4 /* length field, 4-byte varint */
	// pad the payload so that the whole packet reaches padToSize
	if size := hdrLen + pnLen + len(payload) + sealer.Overhead(); size < padToSize {
		payload = append(payload, make([]byte, padToSize-size)...)
	}

	typeByte := byte(0xc0 | pnLen-1)
	if v == protocol.Version2 {
		typeByte |= 0b01 << 4
	}
	hdr := []byte{typeByte}
	hdr = binary.BigEndian.AppendUint32(hdr, uint32(v))
	hdr = append(hdr, uint8(destConnID.Len()))
	hdr = append(hdr, destConnID.Bytes()...)
	hdr = append(hdr, uint8(srcConnID.Len()))
	hdr = append(hdr, srcConnID.Bytes()...)
	hdr = quicvarint.Append(hdr, 0) // no token
	hdr = quicvarint.AppendWithLen(hdr, uint64(pnLen+len(payload)+sealer.Overhead()), 4)
	pnOffset := len(hdr)
	hdr = binary.BigEndian.AppendUint32(hdr, 0x2) // packet number

	packet := sealer.Seal(hdr, payload, 0x2, hdr)
	sealer.EncryptHeader(packet[pnOffset+4:pnOffset+4+16], &packet[0], packet[pnOffset:pnOffset+4])
	return packet
}

// ComposeChloPackets splits a ClientHello into numPackets Initial packets.
// The first packet is padded to the minimum Initial size, as a client would.
func ComposeChloPackets(destConnID, srcConnID protocol.ConnectionID, v protocol.Version, chlo []byte, numPackets int) [][]byte {
	packets := make([][]byte, 0, numPackets)
	fragmentLen := (len(chlo) + numPackets - 1) / numPackets
	var offset int64
	for i := 0; i < numPackets; i++ {
		fragment := chlo[offset:min(int(offset)+fragmentLen, len(chlo))]
		packets = append(packets, ComposeInitialPacket(destConnID, srcConnID, v, offset, fragment, destConnID, protocol.MinInitialPacketSize))
		offset += int64(len(fragment))
	}
	return packets
}
