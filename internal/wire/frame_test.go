package wire

import (
	"testing"

	"github.com/qdemux/qdemux/quicvarint"

	"github.com/stretchr/testify/require"
)

func TestConnectionCloseFrame(t *testing.T) {
	f := &ConnectionCloseFrame{
		ErrorCode:    0x12a, // CRYPTO_ERROR: unexpected_message
		FrameType:    0x6,
		ReasonPhrase: "TLS handshake failure",
	}
	b := f.Append(nil)
	require.Len(t, b, f.Length())
	parsed, n, err := ParseConnectionCloseFrame(b)
	require.NoError(t, err)
	require.Equal(t, len(b), n)
	require.Equal(t, f, parsed)
}

func TestApplicationCloseFrame(t *testing.T) {
	f := &ConnectionCloseFrame{
		IsApplicationError: true,
		ErrorCode:          0x42,
		ReasonPhrase:       "bye",
	}
	b := f.Append(nil)
	require.Len(t, b, f.Length())
	parsed, n, err := ParseConnectionCloseFrame(b)
	require.NoError(t, err)
	require.Equal(t, len(b), n)
	require.True(t, parsed.IsApplicationError)
	require.Equal(t, f, parsed)
}

func TestConnectionCloseFrameErrors(t *testing.T) {
	f := &ConnectionCloseFrame{ErrorCode: 1, ReasonPhrase: "reason"}
	b := f.Append(nil)
	// truncated reason phrase
	_, _, err := ParseConnectionCloseFrame(b[:len(b)-3])
	require.Error(t, err)
	// not a CONNECTION_CLOSE frame
	_, _, err = ParseConnectionCloseFrame(quicvarint.Append(nil, 0x8))
	require.Error(t, err)
}

func TestCryptoFrame(t *testing.T) {
	f := &CryptoFrame{Offset: 1337, Data: []byte("client hello fragment")}
	b := f.Append(nil)
	typ, l, err := quicvarint.Parse(b)
	require.NoError(t, err)
	require.EqualValues(t, 0x6, typ)
	parsed, n, err := ParseCryptoFrame(b[l:])
	require.NoError(t, err)
	require.Equal(t, len(b)-l, n)
	require.Equal(t, f, parsed)
}

func TestCryptoFrameTruncated(t *testing.T) {
	f := &CryptoFrame{Offset: 0, Data: make([]byte, 100)}
	b := f.Append(nil)
	_, l, err := quicvarint.Parse(b)
	require.NoError(t, err)
	for i := 0; i < len(b)-l-1; i++ {
		_, _, err := ParseCryptoFrame(b[l : l+i])
		require.Error(t, err)
	}
}
