package handshake

import (
	"golang.org/x/crypto/cryptobyte"

	"github.com/qdemux/qdemux/internal/protocol"
	"github.com/qdemux/qdemux/internal/wire"
	"github.com/qdemux/qdemux/quicvarint"
)

// TLS alert descriptions surfaced when ClientHello extraction fails fatally
const (
	AlertUnexpectedMessage uint8 = 10
	AlertDecodeError       uint8 = 50
	AlertInternalError     uint8 = 80
)

type chloExtractorState uint8

const (
	stateInitial chloExtractorState = iota
	stateParsedPartialChlo
	stateParsedFullChlo
	stateUnrecoverableFailure
)

// A ChloExtractor parses the TLS ClientHello out of Initial packets.
// The ClientHello may be spread over multiple Initial packets (and arrive out
// of order); the extractor reassembles the CRYPTO stream until the full
// handshake message is available. Packets that cannot contribute (short
// header packets, 0-RTT packets, undecryptable packets) are ignored, since a
// client is allowed to send those before the server has seen the ClientHello.
type ChloExtractor struct {
	state   chloExtractorState
	version protocol.Version
	opener  LongHeaderOpener

	chunks     map[int64][]byte
	contiguous []byte

	alpns               []string
	serverName          string
	resumptionAttempted bool
	earlyDataAttempted  bool

	tlsAlert    uint8
	hasTLSAlert bool
}

// IngestPacket ingests one UDP datagram, which may contain multiple coalesced QUIC packets.
func (e *ChloExtractor) IngestPacket(v protocol.Version, data []byte) {
	if e.state == stateParsedFullChlo || e.state == stateUnrecoverableFailure {
		return
	}
	for len(data) > 0 {
		if !wire.IsLongHeaderPacket(data[0]) {
			// the remainder of the datagram is a short header packet, which we can't decrypt
			return
		}
		hdr, packetData, rest, err := wire.ParsePacket(data)
		if err != nil {
			return
		}
		data = rest
		if hdr.Type != protocol.PacketTypeInitial {
			continue
		}
		e.processInitial(v, hdr, packetData)
		if e.state == stateParsedFullChlo || e.state == stateUnrecoverableFailure {
			return
		}
	}
}

// HasParsedFullChlo says if the full ClientHello was reassembled and parsed.
func (e *ChloExtractor) HasParsedFullChlo() bool { return e.state == stateParsedFullChlo }

// Alpns returns the ALPN protocols offered by the client, in offer order.
func (e *ChloExtractor) Alpns() []string { return e.alpns }

// ServerName returns the SNI value, if any.
func (e *ChloExtractor) ServerName() string { return e.serverName }

// ResumptionAttempted says if the ClientHello carried a pre_shared_key extension.
func (e *ChloExtractor) ResumptionAttempted() bool { return e.resumptionAttempted }

// EarlyDataAttempted says if the ClientHello carried an early_data extension.
func (e *ChloExtractor) EarlyDataAttempted() bool { return e.earlyDataAttempted }

// TLSAlert returns the fatal TLS alert encountered during extraction, if any.
func (e *ChloExtractor) TLSAlert() (uint8, bool) { return e.tlsAlert, e.hasTLSAlert }

func (e *ChloExtractor) fail(alert uint8) {
	e.state = stateUnrecoverableFailure
	e.tlsAlert = alert
	e.hasTLSAlert = true
}

func (e *ChloExtractor) processInitial(v protocol.Version, hdr *wire.Header, packetData []byte) {
	if e.opener == nil {
		// Initial keys are derived from the destination connection ID of the
		// first Initial packet observed for this connection attempt.
		_, e.opener = NewInitialAEAD(hdr.DestConnectionID, protocol.PerspectiveServer, v)
		e.version = v
	}
	hdrLen := int(hdr.ParsedLen())
	if len(packetData) < hdrLen+4+16 {
		return
	}
	// packetData points into the receive buffer, and removing header
	// protection mutates the header bytes
	pkt := make([]byte, len(packetData))
	copy(pkt, packetData)

	sample := pkt[hdrLen+4 : hdrLen+4+16]
	e.opener.DecryptHeader(sample, &pkt[0], pkt[hdrLen:hdrLen+4])
	pnLen := int(pkt[0]&0b11) + 1
	var pn int64
	for _, b := range pkt[hdrLen : hdrLen+pnLen] {
		pn = pn<<8 | int64(b)
	}
	payload, err := e.opener.Open(nil, pkt[hdrLen+pnLen:], pn, pkt[:hdrLen+pnLen])
	if err != nil {
		// undecryptable, possibly garbage or a stray packet for different keys
		return
	}
	e.parsePayload(payload)
}

func (e *ChloExtractor) parsePayload(p []byte) {
	for len(p) > 0 {
		typ, n, err := quicvarint.Parse(p)
		if err != nil {
			e.fail(AlertDecodeError)
			return
		}
		p = p[n:]
		switch typ {
		case 0x0: // PADDING
		case 0x1: // PING
		case 0x2, 0x3: // ACK, ACK_ECN
			n, ok := skipAckFrame(p, typ == 0x3)
			if !ok {
				e.fail(AlertDecodeError)
				return
			}
			p = p[n:]
		case 0x6: // CRYPTO
			f, n, err := wire.ParseCryptoFrame(p)
			if err != nil {
				e.fail(AlertDecodeError)
				return
			}
			p = p[n:]
			if !e.addCryptoData(f.Offset, f.Data) {
				return
			}
		case 0x1c: // CONNECTION_CLOSE: the client is aborting the attempt
			ccLen, ok := skipConnectionClose(p)
			if !ok {
				e.fail(AlertDecodeError)
				return
			}
			p = p[ccLen:]
		default:
			// no other frame type is allowed in Initial packets
			e.fail(AlertUnexpectedMessage)
			return
		}
	}
	if len(e.contiguous) > 0 {
		e.tryParseChlo()
	}
}

// addCryptoData inserts a CRYPTO stream fragment and extends the contiguous prefix.
// It reports whether processing should continue.
func (e *ChloExtractor) addCryptoData(offset int64, data []byte) bool {
	if offset+int64(len(data)) > protocol.MaxCHLOSize {
		e.fail(AlertInternalError)
		return false
	}
	if e.chunks == nil {
		e.chunks = make(map[int64][]byte)
	}
	if _, ok := e.chunks[offset]; !ok {
		e.chunks[offset] = data
	}
	// drain everything that is now contiguous
	for {
		extended := false
		for off, chunk := range e.chunks {
			if off > int64(len(e.contiguous)) {
				continue
			}
			end := off + int64(len(chunk))
			if end > int64(len(e.contiguous)) {
				e.contiguous = append(e.contiguous, chunk[int64(len(e.contiguous))-off:]...)
				extended = true
			}
			delete(e.chunks, off)
		}
		if !extended {
			break
		}
	}
	return true
}

func (e *ChloExtractor) tryParseChlo() {
	if len(e.contiguous) < 4 {
		e.state = stateParsedPartialChlo
		return
	}
	if e.contiguous[0] != 1 { // not a ClientHello
		e.fail(AlertUnexpectedMessage)
		return
	}
	bodyLen := int(uint32(e.contiguous[1])<<16 | uint32(e.contiguous[2])<<8 | uint32(e.contiguous[3]))
	if 4+bodyLen > protocol.MaxCHLOSize {
		e.fail(AlertInternalError)
		return
	}
	if len(e.contiguous) < 4+bodyLen {
		e.state = stateParsedPartialChlo
		return
	}
	if !e.parseClientHello(e.contiguous[4 : 4+bodyLen]) {
		e.fail(AlertDecodeError)
		return
	}
	e.state = stateParsedFullChlo
}

func (e *ChloExtractor) parseClientHello(body []byte) bool {
	s := cryptobyte.String(body)
	var legacyVersion uint16
	var sessionID, cipherSuites, compressionMethods cryptobyte.String
	if !s.ReadUint16(&legacyVersion) ||
		!s.Skip(32) || // random
		!s.ReadUint8LengthPrefixed(&sessionID) ||
		!s.ReadUint16LengthPrefixed(&cipherSuites) ||
		!s.ReadUint8LengthPrefixed(&compressionMethods) {
		return false
	}
	if s.Empty() { // no extensions
		return true
	}
	var extensions cryptobyte.String
	if !s.ReadUint16LengthPrefixed(&extensions) || !s.Empty() {
		return false
	}
	for !extensions.Empty() {
		var extType uint16
		var extData cryptobyte.String
		if !extensions.ReadUint16(&extType) || !extensions.ReadUint16LengthPrefixed(&extData) {
			return false
		}
		switch extType {
		case 0: // server_name
			var nameList cryptobyte.String
			if !extData.ReadUint16LengthPrefixed(&nameList) {
				return false
			}
			for !nameList.Empty() {
				var nameType uint8
				var name cryptobyte.String
				if !nameList.ReadUint8(&nameType) || !nameList.ReadUint16LengthPrefixed(&name) {
					return false
				}
				if nameType == 0 {
					e.serverName = string(name)
				}
			}
		case 16: // application_layer_protocol_negotiation
			var protoList cryptobyte.String
			if !extData.ReadUint16LengthPrefixed(&protoList) {
				return false
			}
			for !protoList.Empty() {
				var proto cryptobyte.String
				if !protoList.ReadUint8LengthPrefixed(&proto) || proto.Empty() {
					return false
				}
				e.alpns = append(e.alpns, string(proto))
			}
		case 41: // pre_shared_key
			e.resumptionAttempted = true
		case 42: // early_data
			e.earlyDataAttempted = true
		}
	}
	return true
}

func skipAckFrame(p []byte, ecn bool) (int, bool) {
	startLen := len(p)
	var rangeCount uint64
	for i := 0; i < 3; i++ { // largest acked, ack delay, range count
		v, n, err := quicvarint.Parse(p)
		if err != nil {
			return 0, false
		}
		p = p[n:]
		if i == 2 {
			rangeCount = v
		}
	}
	// first ACK range, then gap/length pairs
	numVarints := 1 + 2*rangeCount
	if ecn {
		numVarints += 3
	}
	for i := uint64(0); i < numVarints; i++ {
		_, n, err := quicvarint.Parse(p)
		if err != nil {
			return 0, false
		}
		p = p[n:]
	}
	return startLen - len(p), true
}

func skipConnectionClose(p []byte) (int, bool) {
	startLen := len(p)
	// error code, frame type
	for i := 0; i < 2; i++ {
		_, n, err := quicvarint.Parse(p)
		if err != nil {
			return 0, false
		}
		p = p[n:]
	}
	reasonLen, n, err := quicvarint.Parse(p)
	if err != nil {
		return 0, false
	}
	p = p[n:]
	if reasonLen > uint64(len(p)) {
		return 0, false
	}
	return startLen - len(p) + int(reasonLen), true
}
