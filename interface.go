// Package qdemux implements a server-side QUIC packet dispatcher.
//
// The dispatcher receives every inbound UDP datagram for a listening
// endpoint, determines which connection (if any) it belongs to, and routes it
// accordingly. For packets that don't belong to any connection yet it
// performs the stateless work of a QUIC server: buffering packets that arrive
// before the ClientHello is complete, negotiating versions, sending stateless
// resets, and answering packets for recently terminated connections.
//
// The dispatcher itself never does I/O scheduling. It is driven by an
// external event loop (see EventLoop for a ready-made one) that feeds it
// packets, fires its alarms, and tells it when the socket becomes writable.
package qdemux

import (
	"net"
	"time"

	"github.com/qdemux/qdemux/internal/protocol"
)

type (
	// A ConnectionID is a QUIC Connection ID.
	ConnectionID = protocol.ConnectionID
	// A Version is a QUIC version number.
	Version = protocol.Version
)

const (
	// Version1 is RFC 9000
	Version1 = protocol.Version1
	// Version2 is RFC 9369
	Version2 = protocol.Version2
)

// A ReceivedPacket is a UDP datagram handed to the dispatcher.
type ReceivedPacket struct {
	Data []byte
	// LocalAddr is the address the datagram was received on.
	LocalAddr net.Addr
	// RemoteAddr is the address the datagram was sent from.
	RemoteAddr net.Addr
	RcvTime    time.Time

	buffer *packetBuffer
}

// Size returns the size of the datagram.
func (p ReceivedPacket) Size() protocol.ByteCount { return protocol.ByteCount(len(p.Data)) }

// A ParsedClientHello carries the routing-relevant fields of a TLS ClientHello.
type ParsedClientHello struct {
	SNI                 string
	ALPNs               []string
	ResumptionAttempted bool
	EarlyDataAttempted  bool
}

// A Session is the per-connection state machine, created by the
// SessionFactory once the dispatcher has a complete ClientHello.
// The dispatcher references sessions, it doesn't own them.
//
// Sessions are BlockedWriters: a session that called
// SessionEvents.OnWriteBlocked gets an OnCanWrite call when the socket
// becomes writable.
type Session interface {
	BlockedWriter
	// HandlePacket passes a packet that was routed to this session.
	// Buffered early packets are replayed through this method, in arrival
	// order, before any packet that arrives after session creation.
	// The packet data is only valid during the call.
	HandlePacket(ReceivedPacket)
	// ConnectionID is the canonical (possibly dispatcher-replaced) connection ID.
	ConnectionID() ConnectionID
	// ActiveConnectionIDs returns every connection ID the session is
	// currently reachable under.
	ActiveConnectionIDs() []ConnectionID
	Version() Version
	HandshakeComplete() bool
	// TerminationPackets returns the packets (if any) the session wants
	// replayed to the peer after it is gone.
	TerminationPackets() [][]byte
	SmoothedRTT() time.Duration
	// Close closes the session. It must synchronously call the
	// SessionEvents.OnClosed capability exactly once.
	Close(error)
}

// SessionEvents is the set of callbacks a session uses to talk back to the
// dispatcher. The dispatcher fills it in before calling the factory; the
// session must invoke the callbacks on the dispatcher's event loop.
type SessionEvents struct {
	// OnClosed must be called exactly once, when the session is closed
	// (locally or by the peer). It triggers teardown: removal from the
	// connection ID table and registration in the time-wait registry.
	OnClosed func(error)
	// OnWriteBlocked registers the session for a writability notification.
	OnWriteBlocked func()
	// AddConnectionID makes the session reachable under an additional
	// connection ID. It reports whether the ID could be claimed.
	AddConnectionID func(ConnectionID) bool
	// RetireConnectionID removes a single connection ID issued earlier.
	RetireConnectionID func(ConnectionID)
}

// A SessionRequest carries everything the factory needs to create a session.
type SessionRequest struct {
	// ConnectionID is the ID the session must use, possibly a
	// dispatcher-assigned replacement of the client's choice.
	ConnectionID ConnectionID
	// OriginalConnectionID is the destination connection ID of the first
	// Initial packet. Equal to ConnectionID if no replacement happened.
	OriginalConnectionID ConnectionID
	LocalAddr            net.Addr
	RemoteAddr           net.Addr
	Version              Version
	// ALPN is the application protocol selected by the dispatcher.
	ALPN        string
	ClientHello *ParsedClientHello
	Events      SessionEvents
}

// A SessionFactory creates sessions for accepted connection attempts.
type SessionFactory interface {
	CreateSession(SessionRequest) (Session, error)
}

// A PacketSender writes the dispatcher's stateless replies to the network.
type PacketSender interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
	// IsWriteBlocked says if the underlying socket can't accept writes right
	// now. Blocked replies are queued and flushed on Dispatcher.OnCanWrite.
	IsWriteBlocked() bool
}

// An Alarm is a one-shot timer whose callback fires on the dispatcher's
// event loop.
type Alarm interface {
	// Update (re)schedules the alarm. Updating an already-set alarm moves
	// the deadline.
	Update(time.Time)
	Cancel()
}

// An AlarmFactory creates alarms. The callback must be invoked serialized
// with packet processing (same goroutine or equivalent ordering).
type AlarmFactory interface {
	NewAlarm(callback func()) Alarm
}

// A BlockedWriter is notified, in registration order, when the outbound path
// becomes writable again.
type BlockedWriter interface {
	OnCanWrite()
	IsWriteBlocked() bool
}
