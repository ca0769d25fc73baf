package qerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransportError(t *testing.T) {
	err := &TransportError{
		ErrorCode:    FlowControlError,
		ErrorMessage: "foobar",
	}
	require.Equal(t, "FLOW_CONTROL_ERROR (local): foobar", err.Error())
	require.True(t, errors.Is(err, &TransportError{ErrorCode: FlowControlError}))
	require.False(t, errors.Is(err, &TransportError{ErrorCode: ProtocolViolation}))

	err = &TransportError{Remote: true, ErrorCode: ProtocolViolation}
	require.Equal(t, "PROTOCOL_VIOLATION (remote)", err.Error())

	err = &TransportError{ErrorCode: FrameEncodingError, FrameType: 0x1337}
	require.Equal(t, "FRAME_ENCODING_ERROR (local) (frame type: 0x1337)", err.Error())
}

func TestCryptoError(t *testing.T) {
	myErr := fmt.Errorf("tls: no application protocol")
	err := NewLocalCryptoError(0x78, myErr) // no_application_protocol
	require.True(t, err.ErrorCode.IsCryptoError())
	require.ErrorIs(t, err, &TransportError{ErrorCode: 0x178})
	require.Equal(t, myErr, err.Unwrap())
	require.Contains(t, err.Error(), "tls: no application protocol")
}

func TestErrorCodeStringer(t *testing.T) {
	require.Equal(t, "NO_ERROR", NoError.String())
	require.Equal(t, "PROTOCOL_VIOLATION", ProtocolViolation.String())
	require.Equal(t, "CRYPTO_ERROR 0x16a", TransportErrorCode(0x16a).String())
	require.Equal(t, "unknown error code: 0x1337", TransportErrorCode(0x1337).String())
	require.Empty(t, ProtocolViolation.Message())
	require.NotEmpty(t, TransportErrorCode(0x132).Message()) // unexpected_message
}
