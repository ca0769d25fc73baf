package wire

import (
	"crypto/rand"
	"errors"

	"github.com/qdemux/qdemux/internal/protocol"
)

// A StatelessResetToken is a stateless reset token.
type StatelessResetToken [16]byte

// ComposeStatelessReset builds a stateless reset packet of the given total size.
// The packet is indistinguishable from a regular short header packet: random
// bits with the fixed bit set, followed by random payload, ending in the token.
// The size must leave room for the token and at least the minimal unpredictable
// prefix, and it must be smaller than the packet that triggered the reset so
// that two endpoints cannot bounce resets back and forth indefinitely.
func ComposeStatelessReset(token StatelessResetToken, size int) ([]byte, error) {
	if size < protocol.MinReceivedStatelessResetSize {
		return nil, errors.New("stateless reset size too small")
	}
	b := make([]byte, size)
	if _, err := rand.Read(b[:size-16]); err != nil {
		return nil, err
	}
	b[0] = (b[0] &^ 0x80) | 0x40 // short header format, fixed bit set
	copy(b[size-16:], token[:])
	return b, nil
}
