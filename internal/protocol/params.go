package protocol

import "time"

// DefaultConnectionIDLength is the connection ID length that is used for self-assigned connection IDs
const DefaultConnectionIDLength = 8

// MaxConnectionIDLen is the maximum connection ID length for QUIC v1 and v2
const MaxConnectionIDLen = 20

// MinConnectionIDLenInitial is the minimum length of the destination connection ID on an Initial packet
const MinConnectionIDLenInitial = 8

// MinInitialPacketSize is the minimum size an Initial packet is required to have
const MinInitialPacketSize = 1200

// MinPacketSizeForVersionNegotiation is the minimum size a packet needs to have
// before we answer it with a Version Negotiation packet.
// Replying to smaller packets would open an amplification vector.
const MinPacketSizeForVersionNegotiation = 1200

// MaxReceivePacketSize is the maximum packet size we expect to receive in a single UDP datagram
const MaxReceivePacketSize ByteCount = 1452

// MinStatelessResetSize is the minimum size of a stateless reset packet we send:
// 1 (header byte) + 20 (max. conn ID length) + 4 (max. packet number length) + 1 (min. payload) + 16 (token)
const MinStatelessResetSize = 1 + 20 + 4 + 1 + 16

// MinReceivedStatelessResetSize is the size a packet needs to exceed
// before we answer it with a stateless reset
const MinReceivedStatelessResetSize = 5 + 16

// MaxBufferedPacketsPerConnection is the maximum number of early packets
// buffered for a single connection ID while waiting for the full client hello
const MaxBufferedPacketsPerConnection = 20

// MaxBufferedConnections is the maximum number of connection IDs with buffered packets
const MaxBufferedConnections = 1024

// MaxBufferedConnectionsWithoutCHLO is the maximum number of connection IDs
// with buffered packets that have not yet completed a client hello
const MaxBufferedConnectionsWithoutCHLO = 512

// MaxEarlyPacketAge is how long packets are buffered before the half-open
// connection attempt is given up on and terminated
const MaxEarlyPacketAge = 10 * time.Second

// MaxTimeWaitEntries is the maximum number of terminated connections tracked in time-wait
const MaxTimeWaitEntries = 10000

// TimeWaitPeriod is how long a terminated connection ID is kept in time-wait
const TimeWaitPeriod = 200 * time.Second

// MaxRecentStatelessResetAddresses is the maximum number of peer addresses
// we remember having sent a stateless reset to
const MaxRecentStatelessResetAddresses = 1024

// RecentStatelessResetAddressesLifetime is how long the set of recently reset
// peer addresses is kept before it is cleared wholesale
const RecentStatelessResetAddressesLifetime = time.Second

// TimeWaitResponsesPerSecond caps the rate of stateless replies sent for
// connections in time-wait
const TimeWaitResponsesPerSecond = 50

// TimeWaitResponsesBurst is the burst allowance of the time-wait reply rate limit
const TimeWaitResponsesBurst = 100

// MaxCHLOSize is the maximum accepted size of a reassembled TLS ClientHello
const MaxCHLOSize = 16 << 10

// DefaultMaxSessionsPerTick is the default number of sessions created from
// buffered client hellos in a single event loop iteration
const DefaultMaxSessionsPerTick = 16
