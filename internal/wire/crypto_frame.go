package wire

import (
	"io"

	"github.com/qdemux/qdemux/quicvarint"
)

const cryptoFrameType = 0x6

// A CryptoFrame is a CRYPTO frame
type CryptoFrame struct {
	Offset int64
	Data   []byte
}

// ParseCryptoFrame parses a CRYPTO frame, starting after the frame type byte.
// It returns the frame and the number of bytes consumed.
func ParseCryptoFrame(b []byte) (*CryptoFrame, int, error) {
	startLen := len(b)
	frame := &CryptoFrame{}
	offset, l, err := quicvarint.Parse(b)
	if err != nil {
		return nil, 0, err
	}
	b = b[l:]
	frame.Offset = int64(offset)
	dataLen, l, err := quicvarint.Parse(b)
	if err != nil {
		return nil, 0, err
	}
	b = b[l:]
	if dataLen > uint64(len(b)) {
		return nil, 0, io.EOF
	}
	frame.Data = make([]byte, dataLen)
	copy(frame.Data, b)
	return frame, startLen - len(b) + int(dataLen), nil
}

// Append appends a serialized representation of this frame.
func (f *CryptoFrame) Append(b []byte) []byte {
	b = quicvarint.Append(b, cryptoFrameType)
	b = quicvarint.Append(b, uint64(f.Offset))
	b = quicvarint.Append(b, uint64(len(f.Data)))
	return append(b, f.Data...)
}
