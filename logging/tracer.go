// Package logging defines the logging interface of the dispatcher.
// This package should not be considered stable.
package logging

import "net"

// A Tracer traces events that happen before a session exists, or outside of
// any session. Fields set to nil are ignored.
type Tracer struct {
	SentPacket                   func(dest net.Addr, hdr *Header, size ByteCount, ccf *ConnectionCloseFrame)
	SentVersionNegotiationPacket func(dest net.Addr, destConnID, srcConnID ArbitraryLenConnectionID, versions []Version)
	SentStatelessReset           func(dest net.Addr, size ByteCount)
	DroppedPacket                func(addr net.Addr, pt PacketType, size ByteCount, reason PacketDropReason)
	BufferedPacket               func(addr net.Addr, pt PacketType, size ByteCount)
	ConnectionStarted            func(local, remote net.Addr, version Version, destConnID ConnectionID)
	ConnectionRejected           func(remote net.Addr, err error)
	ConnectionClosed             func(destConnID ConnectionID, err error)
	ConnectionAddedToTimeWait    func(connIDs []ConnectionID)
	Debug                        func(name, msg string)
	Close                        func()
}

// NewMultiplexedTracer creates a new tracer that multiplexes events to
// multiple tracers.
func NewMultiplexedTracer(tracers ...*Tracer) *Tracer {
	if len(tracers) == 0 {
		return nil
	}
	if len(tracers) == 1 {
		return tracers[0]
	}
	return &Tracer{
		SentPacket: func(dest net.Addr, hdr *Header, size ByteCount, ccf *ConnectionCloseFrame) {
			for _, t := range tracers {
				if t.SentPacket != nil {
					t.SentPacket(dest, hdr, size, ccf)
				}
			}
		},
		SentVersionNegotiationPacket: func(dest net.Addr, destConnID, srcConnID ArbitraryLenConnectionID, versions []Version) {
			for _, t := range tracers {
				if t.SentVersionNegotiationPacket != nil {
					t.SentVersionNegotiationPacket(dest, destConnID, srcConnID, versions)
				}
			}
		},
		SentStatelessReset: func(dest net.Addr, size ByteCount) {
			for _, t := range tracers {
				if t.SentStatelessReset != nil {
					t.SentStatelessReset(dest, size)
				}
			}
		},
		DroppedPacket: func(addr net.Addr, pt PacketType, size ByteCount, reason PacketDropReason) {
			for _, t := range tracers {
				if t.DroppedPacket != nil {
					t.DroppedPacket(addr, pt, size, reason)
				}
			}
		},
		BufferedPacket: func(addr net.Addr, pt PacketType, size ByteCount) {
			for _, t := range tracers {
				if t.BufferedPacket != nil {
					t.BufferedPacket(addr, pt, size)
				}
			}
		},
		ConnectionStarted: func(local, remote net.Addr, version Version, destConnID ConnectionID) {
			for _, t := range tracers {
				if t.ConnectionStarted != nil {
					t.ConnectionStarted(local, remote, version, destConnID)
				}
			}
		},
		ConnectionRejected: func(remote net.Addr, err error) {
			for _, t := range tracers {
				if t.ConnectionRejected != nil {
					t.ConnectionRejected(remote, err)
				}
			}
		},
		ConnectionClosed: func(destConnID ConnectionID, err error) {
			for _, t := range tracers {
				if t.ConnectionClosed != nil {
					t.ConnectionClosed(destConnID, err)
				}
			}
		},
		ConnectionAddedToTimeWait: func(connIDs []ConnectionID) {
			for _, t := range tracers {
				if t.ConnectionAddedToTimeWait != nil {
					t.ConnectionAddedToTimeWait(connIDs)
				}
			}
		},
		Debug: func(name, msg string) {
			for _, t := range tracers {
				if t.Debug != nil {
					t.Debug(name, msg)
				}
			}
		},
		Close: func() {
			for _, t := range tracers {
				if t.Close != nil {
					t.Close()
				}
			}
		},
	}
}
