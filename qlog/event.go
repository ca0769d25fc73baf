package qlog

import (
	"fmt"
	"net"
	"time"

	"github.com/francoispqt/gojay"

	"github.com/qdemux/qdemux/logging"
)

func milliseconds(d time.Duration) float64 { return float64(d.Nanoseconds()) / 1e6 }

type eventDetails interface {
	Name() string
	gojay.MarshalerJSONObject
}

type event struct {
	RelativeTime time.Duration
	eventDetails
}

var _ gojay.MarshalerJSONObject = event{}

func (e event) IsNil() bool { return false }
func (e event) MarshalJSONObject(enc *gojay.Encoder) {
	enc.Float64Key("time", milliseconds(e.RelativeTime))
	enc.StringKey("name", "transport:"+e.Name())
	enc.ObjectKey("data", e.eventDetails)
}

type versions []logging.Version

func (v versions) IsNil() bool { return len(v) == 0 }
func (v versions) MarshalJSONArray(enc *gojay.Encoder) {
	for _, ver := range v {
		enc.String(fmt.Sprintf("%x", uint32(ver)))
	}
}

type connectionIDs []logging.ConnectionID

func (c connectionIDs) IsNil() bool { return len(c) == 0 }
func (c connectionIDs) MarshalJSONArray(enc *gojay.Encoder) {
	for _, id := range c {
		enc.String(id.String())
	}
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}

type eventConnectionStarted struct {
	SrcAddr          net.Addr
	DestAddr         net.Addr
	Version          logging.Version
	DestConnectionID logging.ConnectionID
}

var _ eventDetails = &eventConnectionStarted{}

func (e eventConnectionStarted) Name() string { return "connection_started" }
func (e eventConnectionStarted) IsNil() bool  { return false }
func (e eventConnectionStarted) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("src", addrString(e.SrcAddr))
	enc.StringKey("dst", addrString(e.DestAddr))
	enc.StringKey("quic_version", fmt.Sprintf("%x", uint32(e.Version)))
	enc.StringKey("dst_cid", e.DestConnectionID.String())
}

type eventConnectionClosed struct {
	ConnectionID logging.ConnectionID
	Err          error
}

var _ eventDetails = &eventConnectionClosed{}

func (e eventConnectionClosed) Name() string { return "connection_closed" }
func (e eventConnectionClosed) IsNil() bool  { return false }
func (e eventConnectionClosed) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("cid", e.ConnectionID.String())
	if e.Err != nil {
		enc.StringKey("trigger", e.Err.Error())
	}
}

type eventConnectionRejected struct {
	RemoteAddr net.Addr
	Err        error
}

var _ eventDetails = &eventConnectionRejected{}

func (e eventConnectionRejected) Name() string { return "connection_rejected" }
func (e eventConnectionRejected) IsNil() bool  { return false }
func (e eventConnectionRejected) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("remote", addrString(e.RemoteAddr))
	if e.Err != nil {
		enc.StringKey("trigger", e.Err.Error())
	}
}

type eventPacketDropped struct {
	PacketType logging.PacketType
	PacketSize logging.ByteCount
	Trigger    logging.PacketDropReason
}

var _ eventDetails = eventPacketDropped{}

func (e eventPacketDropped) Name() string { return "packet_dropped" }
func (e eventPacketDropped) IsNil() bool  { return false }
func (e eventPacketDropped) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("packet_type", packetTypeString(e.PacketType))
	enc.Uint64Key("packet_size", uint64(e.PacketSize))
	enc.StringKey("trigger", e.Trigger.String())
}

type eventPacketBuffered struct {
	PacketType logging.PacketType
	PacketSize logging.ByteCount
}

var _ eventDetails = eventPacketBuffered{}

func (e eventPacketBuffered) Name() string { return "packet_buffered" }
func (e eventPacketBuffered) IsNil() bool  { return false }
func (e eventPacketBuffered) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("packet_type", packetTypeString(e.PacketType))
	enc.Uint64Key("packet_size", uint64(e.PacketSize))
	enc.StringKey("trigger", "keys_unavailable")
}

type eventVersionNegotiationSent struct {
	DestConnectionID  logging.ArbitraryLenConnectionID
	SrcConnectionID   logging.ArbitraryLenConnectionID
	SupportedVersions versions
}

var _ eventDetails = eventVersionNegotiationSent{}

func (e eventVersionNegotiationSent) Name() string { return "version_negotiation_sent" }
func (e eventVersionNegotiationSent) IsNil() bool  { return false }
func (e eventVersionNegotiationSent) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("dst_cid", e.DestConnectionID.String())
	enc.StringKey("src_cid", e.SrcConnectionID.String())
	enc.ArrayKey("supported_versions", e.SupportedVersions)
}

type eventStatelessResetSent struct {
	PacketSize logging.ByteCount
}

var _ eventDetails = eventStatelessResetSent{}

func (e eventStatelessResetSent) Name() string { return "stateless_reset_sent" }
func (e eventStatelessResetSent) IsNil() bool  { return false }
func (e eventStatelessResetSent) MarshalJSONObject(enc *gojay.Encoder) {
	enc.Uint64Key("packet_size", uint64(e.PacketSize))
}

type eventTimeWaitCreated struct {
	ConnectionIDs connectionIDs
}

var _ eventDetails = eventTimeWaitCreated{}

func (e eventTimeWaitCreated) Name() string { return "time_wait_created" }
func (e eventTimeWaitCreated) IsNil() bool  { return false }
func (e eventTimeWaitCreated) MarshalJSONObject(enc *gojay.Encoder) {
	enc.ArrayKey("connection_ids", e.ConnectionIDs)
}

type eventGeneric struct {
	name string
	msg  string
}

var _ eventDetails = eventGeneric{}

func (e eventGeneric) Name() string { return e.name }
func (e eventGeneric) IsNil() bool  { return false }
func (e eventGeneric) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("details", e.msg)
}

func packetTypeString(t logging.PacketType) string {
	switch t {
	case logging.PacketTypeInitial:
		return "initial"
	case logging.PacketTypeHandshake:
		return "handshake"
	case logging.PacketTypeRetry:
		return "retry"
	case logging.PacketType0RTT:
		return "0RTT"
	default:
		return "1RTT"
	}
}
