// Package metrics exposes dispatcher events as Prometheus metrics.
package metrics

import (
	"errors"
	"fmt"
	"net"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/qdemux/qdemux/internal/qerr"
	"github.com/qdemux/qdemux/logging"
)

const metricNamespace = "qdemux"

func getIPVersion(addr net.Addr) string {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return ""
	}
	if udpAddr.IP.To4() != nil {
		return "ipv4"
	}
	return "ipv6"
}

var (
	connsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "server_connections_started_total",
			Help:      "Connections Started",
		},
		[]string{"ip_version"},
	)
	connsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "server_connections_rejected_total",
			Help:      "Connections Rejected",
		},
		[]string{"ip_version", "reason"},
	)
	packetDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "server_received_packets_dropped_total",
			Help:      "packets dropped",
		},
		[]string{"ip_version", "reason"},
	)
	packetBuffered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "server_packets_buffered_total",
			Help:      "packets buffered before session creation",
		},
		[]string{"ip_version"},
	)
	statelessResets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "server_stateless_resets_sent_total",
			Help:      "stateless resets sent",
		},
		[]string{"ip_version"},
	)
	timeWaitAdded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "server_time_wait_entries_total",
			Help:      "connections added to the time-wait registry",
		},
	)
)

// NewTracer creates a new tracer using the default Prometheus registerer.
// The Tracer returned from this function collects metrics for dispatcher
// events. It can be set on the Tracer field of the Config.
func NewTracer() *logging.Tracer {
	return NewTracerWithRegisterer(prometheus.DefaultRegisterer)
}

// NewTracerWithRegisterer creates a new tracer using a given Prometheus registerer.
func NewTracerWithRegisterer(registerer prometheus.Registerer) *logging.Tracer {
	for _, c := range [...]prometheus.Collector{
		connsStarted,
		connsRejected,
		packetDropped,
		packetBuffered,
		statelessResets,
		timeWaitAdded,
	} {
		if err := registerer.Register(c); err != nil {
			if ok := errors.As(err, &prometheus.AlreadyRegisteredError{}); !ok {
				panic(err)
			}
		}
	}

	return &logging.Tracer{
		ConnectionStarted: func(_, remote net.Addr, _ logging.Version, _ logging.ConnectionID) {
			tags := getStringSlice()
			defer putStringSlice(tags)

			*tags = append(*tags, getIPVersion(remote))
			connsStarted.WithLabelValues(*tags...).Inc()
		},
		ConnectionRejected: func(remote net.Addr, err error) {
			tags := getStringSlice()
			defer putStringSlice(tags)

			reason := "unknown"
			var terr *qerr.TransportError
			if errors.As(err, &terr) {
				switch {
				case terr.ErrorCode == qerr.ConnectionRefused:
					reason = "connection_refused"
				case terr.ErrorCode == qerr.ProtocolViolation:
					reason = "protocol_violation"
				case terr.ErrorCode.IsCryptoError():
					reason = "crypto_error"
				default:
					reason = fmt.Sprintf("transport_error: %d", uint64(terr.ErrorCode))
				}
			}
			*tags = append(*tags, getIPVersion(remote))
			*tags = append(*tags, reason)
			connsRejected.WithLabelValues(*tags...).Inc()
		},
		SentVersionNegotiationPacket: func(remote net.Addr, _, _ logging.ArbitraryLenConnectionID, _ []logging.Version) {
			tags := getStringSlice()
			defer putStringSlice(tags)

			*tags = append(*tags, getIPVersion(remote))
			*tags = append(*tags, "version_negotiation")
			connsRejected.WithLabelValues(*tags...).Inc()
		},
		DroppedPacket: func(remote net.Addr, _ logging.PacketType, _ logging.ByteCount, reason logging.PacketDropReason) {
			tags := getStringSlice()
			defer putStringSlice(tags)

			var dropReason string
			switch reason {
			case logging.PacketDropHeaderParseError:
				dropReason = "header_parsing"
			case logging.PacketDropUnknownConnectionID:
				dropReason = "unknown_connection_id"
			case logging.PacketDropProtocolViolation:
				dropReason = "protocol_violation"
			case logging.PacketDropDOSPrevention:
				dropReason = "dos_prevention"
			case logging.PacketDropUnsupportedVersion:
				dropReason = "unsupported_version"
			case logging.PacketDropUnexpectedPacket:
				dropReason = "unexpected_packet"
			case logging.PacketDropBufferFull:
				dropReason = "buffer_full"
			default:
				dropReason = "unknown"
			}

			*tags = append(*tags, getIPVersion(remote))
			*tags = append(*tags, dropReason)
			packetDropped.WithLabelValues(*tags...).Inc()
		},
		BufferedPacket: func(remote net.Addr, _ logging.PacketType, _ logging.ByteCount) {
			tags := getStringSlice()
			defer putStringSlice(tags)

			*tags = append(*tags, getIPVersion(remote))
			packetBuffered.WithLabelValues(*tags...).Inc()
		},
		SentStatelessReset: func(remote net.Addr, _ logging.ByteCount) {
			tags := getStringSlice()
			defer putStringSlice(tags)

			*tags = append(*tags, getIPVersion(remote))
			statelessResets.WithLabelValues(*tags...).Inc()
		},
		ConnectionAddedToTimeWait: func([]logging.ConnectionID) {
			timeWaitAdded.Inc()
		},
	}
}
