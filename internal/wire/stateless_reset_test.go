package wire

import (
	"testing"

	"github.com/qdemux/qdemux/internal/protocol"

	"github.com/stretchr/testify/require"
)

func TestComposeStatelessReset(t *testing.T) {
	token := StatelessResetToken{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	b, err := ComposeStatelessReset(token, 100)
	require.NoError(t, err)
	require.Len(t, b, 100)
	// looks like a short header packet
	require.False(t, IsLongHeaderPacket(b[0]))
	require.EqualValues(t, 0x40, b[0]&0x40)
	// the token is the trailing 16 bytes
	require.Equal(t, token[:], b[len(b)-16:])
}

func TestComposeStatelessResetTooSmall(t *testing.T) {
	_, err := ComposeStatelessReset(StatelessResetToken{}, protocol.MinReceivedStatelessResetSize-1)
	require.Error(t, err)
}
