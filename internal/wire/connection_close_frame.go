package wire

import (
	"errors"
	"io"

	"github.com/qdemux/qdemux/quicvarint"
)

const connectionCloseFrameType = 0x1c
const applicationCloseFrameType = 0x1d

// A ConnectionCloseFrame is a CONNECTION_CLOSE frame
type ConnectionCloseFrame struct {
	IsApplicationError bool
	ErrorCode          uint64
	FrameType          uint64
	ReasonPhrase       string
}

func parseConnectionCloseFrame(b []byte, typ uint64) (*ConnectionCloseFrame, int, error) {
	startLen := len(b)
	f := &ConnectionCloseFrame{IsApplicationError: typ == applicationCloseFrameType}
	ec, l, err := quicvarint.Parse(b)
	if err != nil {
		return nil, 0, err
	}
	b = b[l:]
	f.ErrorCode = ec
	// read the Frame Type, if this is not an application error
	if !f.IsApplicationError {
		ft, l, err := quicvarint.Parse(b)
		if err != nil {
			return nil, 0, err
		}
		b = b[l:]
		f.FrameType = ft
	}
	var reasonPhraseLen uint64
	reasonPhraseLen, l, err = quicvarint.Parse(b)
	if err != nil {
		return nil, 0, err
	}
	b = b[l:]
	if int(reasonPhraseLen) > len(b) {
		return nil, 0, io.EOF
	}
	reasonPhrase := make([]byte, reasonPhraseLen)
	copy(reasonPhrase, b)
	f.ReasonPhrase = string(reasonPhrase)
	return f, startLen - len(b) + int(reasonPhraseLen), nil
}

// ParseConnectionCloseFrame parses a CONNECTION_CLOSE frame (either flavor).
// It returns the frame and the number of bytes consumed.
func ParseConnectionCloseFrame(b []byte) (*ConnectionCloseFrame, int, error) {
	typ, l, err := quicvarint.Parse(b)
	if err != nil {
		return nil, 0, err
	}
	if typ != connectionCloseFrameType && typ != applicationCloseFrameType {
		return nil, 0, errors.New("not a CONNECTION_CLOSE frame")
	}
	f, n, err := parseConnectionCloseFrame(b[l:], typ)
	if err != nil {
		return nil, 0, err
	}
	return f, l + n, nil
}

// Append appends a serialized representation of this frame.
func (f *ConnectionCloseFrame) Append(b []byte) []byte {
	if f.IsApplicationError {
		b = quicvarint.Append(b, applicationCloseFrameType)
	} else {
		b = quicvarint.Append(b, connectionCloseFrameType)
	}
	b = quicvarint.Append(b, f.ErrorCode)
	if !f.IsApplicationError {
		b = quicvarint.Append(b, f.FrameType)
	}
	b = quicvarint.Append(b, uint64(len(f.ReasonPhrase)))
	return append(b, []byte(f.ReasonPhrase)...)
}

// Length of a written frame
func (f *ConnectionCloseFrame) Length() int {
	length := 1 + quicvarint.Len(f.ErrorCode) + quicvarint.Len(uint64(len(f.ReasonPhrase))) + len(f.ReasonPhrase)
	if !f.IsApplicationError {
		length += quicvarint.Len(f.FrameType)
	}
	return length
}
