package qdemux

import (
	"errors"

	"github.com/qdemux/qdemux/internal/qerr"
)

type (
	TransportError          = qerr.TransportError
	ApplicationError        = qerr.ApplicationError
	VersionNegotiationError = qerr.VersionNegotiationError
	StatelessResetError     = qerr.StatelessResetError
	IdleTimeoutError        = qerr.IdleTimeoutError
	HandshakeTimeoutError   = qerr.HandshakeTimeoutError
)

type TransportErrorCode = qerr.TransportErrorCode

const (
	NoError                   TransportErrorCode = qerr.NoError
	InternalError             TransportErrorCode = qerr.InternalError
	ConnectionRefused         TransportErrorCode = qerr.ConnectionRefused
	FlowControlError          TransportErrorCode = qerr.FlowControlError
	StreamLimitError          TransportErrorCode = qerr.StreamLimitError
	StreamStateError          TransportErrorCode = qerr.StreamStateError
	FinalSizeError            TransportErrorCode = qerr.FinalSizeError
	FrameEncodingError        TransportErrorCode = qerr.FrameEncodingError
	TransportParameterError   TransportErrorCode = qerr.TransportParameterError
	ConnectionIDLimitError    TransportErrorCode = qerr.ConnectionIDLimitError
	ProtocolViolation         TransportErrorCode = qerr.ProtocolViolation
	InvalidToken              TransportErrorCode = qerr.InvalidToken
	ApplicationErrorErrorCode TransportErrorCode = qerr.ApplicationErrorErrorCode
	CryptoBufferExceeded      TransportErrorCode = qerr.CryptoBufferExceeded
	KeyUpdateError            TransportErrorCode = qerr.KeyUpdateError
	AEADLimitReached          TransportErrorCode = qerr.AEADLimitReached
	NoViablePathError         TransportErrorCode = qerr.NoViablePathError
)

// ErrServerClosed is passed to Session.Close for every session still alive
// when the dispatcher shuts down.
var ErrServerClosed = errors.New("qdemux: server closed")
