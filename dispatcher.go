package qdemux

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"time"

	"github.com/qdemux/qdemux/internal/protocol"
	"github.com/qdemux/qdemux/internal/qerr"
	"github.com/qdemux/qdemux/internal/utils"
	"github.com/qdemux/qdemux/internal/wire"
	"github.com/qdemux/qdemux/logging"
)

// UDP source ports associated with reflection / amplification abuse.
// Sorted, so the lookup can bail out early: almost all traffic comes from
// ephemeral ports above the highest entry.
var blockedSourcePorts = [...]uint16{0, 17, 19, 53, 111, 123, 137, 138, 161, 389, 500, 1900, 3702, 5353, 5355, 11211}

func isBlockedSourcePort(port uint16) bool {
	if port > blockedSourcePorts[len(blockedSourcePorts)-1] {
		return false
	}
	for _, p := range blockedSourcePorts {
		if p == port {
			return true
		}
		if p > port {
			return false
		}
	}
	return false
}

// receivedPacketInfo is the classifier output for one datagram: the header
// fields that can be decoded without any per-connection state.
type receivedPacketInfo struct {
	packet ReceivedPacket
	// hasVersion says if the packet carries a version field (long header).
	hasVersion bool
	version    Version
	// versionSupported says if this dispatcher accepts the version.
	versionSupported bool
	// packetType is only valid for long header packets of supported versions.
	packetType protocol.PacketType
	destConnID ConnectionID
	srcConnID  ConnectionID
	// arbDestConnID and arbSrcConnID carry the connection IDs of packets
	// with unsupported versions, which may be up to 255 bytes long.
	arbDestConnID protocol.ArbitraryLenConnectionID
	arbSrcConnID  protocol.ArbitraryLenConnectionID
}

// A Dispatcher routes inbound packets to sessions, creating sessions from
// complete ClientHellos and doing the stateless work for everything that
// doesn't belong to a session.
//
// A Dispatcher is not goroutine-safe. All methods, alarm callbacks and
// session event callbacks must run serialized on one event loop.
type Dispatcher struct {
	config  *Config
	factory SessionFactory
	sender  PacketSender
	alarms  AlarmFactory

	sessions       *sessionMap
	store          *bufferedPacketStore
	timeWait       *timeWaitManager
	terminator     statelessTerminator
	blockedWriters *blockedWriterList
	connIDGen      connIDGenerator
	resetter       *statelessResetter

	accepting     bool
	sessionBudget int

	// closedSessions defers dropping the last session reference to the next
	// tick, so a session is never destroyed while its own close call stack
	// is still executing.
	closedSessions []Session
	deleteAlarm    Alarm

	// recentResetAddrs remembers which addresses were recently sent a
	// stateless reset, so a burst of short header packets from one peer
	// triggers one reset, not one per packet. Cleared wholesale by an alarm.
	recentResetAddrs   map[string]struct{}
	resetAddrsAlarm    Alarm
	resetAddrsAlarmSet bool

	lastError error

	tracer *logging.Tracer
	logger utils.Logger
}

// NewDispatcher creates a dispatcher.
// All I/O collaborators are injected: the factory creates sessions, the
// sender writes stateless replies, the alarm factory schedules callbacks
// back onto the caller's event loop.
func NewDispatcher(conf *Config, factory SessionFactory, sender PacketSender, alarms AlarmFactory) (*Dispatcher, error) {
	if err := validateConfig(conf); err != nil {
		return nil, err
	}
	conf = populateConfig(conf)
	d := &Dispatcher{
		config:           conf,
		factory:          factory,
		sender:           sender,
		alarms:           alarms,
		blockedWriters:   newBlockedWriterList(),
		connIDGen:        connIDGenerator{expectedLen: conf.ConnectionIDLength},
		resetter:         newStatelessResetter(conf.StatelessResetKey),
		accepting:        true,
		sessionBudget:    conf.MaxSessionsPerTick,
		recentResetAddrs: make(map[string]struct{}),
		tracer:           conf.Tracer,
		logger:           utils.DefaultLogger.WithPrefix("dispatcher"),
	}
	d.sessions = newSessionMap(d.logger)
	d.store = newBufferedPacketStore(alarms, d.onBufferedPacketsExpired, d.logger)
	d.timeWait = newTimeWaitManager(sender, d.resetter, alarms, func(w BlockedWriter) { d.blockedWriters.Add(w) }, conf.Tracer, d.logger)
	d.deleteAlarm = alarms.NewAlarm(d.deleteClosedSessions)
	d.resetAddrsAlarm = alarms.NewAlarm(d.clearRecentResetAddresses)
	return d, nil
}

// HandlePacket processes one inbound UDP datagram.
func (d *Dispatcher) HandlePacket(p ReceivedPacket) {
	if p.RcvTime.IsZero() {
		p.RcvTime = time.Now()
	}
	info, ok := d.classifyPacket(p)
	if !ok {
		p.release()
		return
	}
	if buffered := d.maybeDispatchPacket(info); !buffered {
		p.release()
	}
}

// classifyPacket decodes the invariant header fields.
func (d *Dispatcher) classifyPacket(p ReceivedPacket) (receivedPacketInfo, bool) {
	info := receivedPacketInfo{packet: p}
	data := p.Data
	if len(data) == 0 {
		d.dropPacket(p, 0, logging.PacketDropHeaderParseError)
		return info, false
	}
	if !wire.IsLongHeaderPacket(data[0]) {
		connID, err := wire.ParseConnectionID(data, d.config.ConnectionIDLength)
		if err != nil {
			d.recordError(fmt.Errorf("error parsing short header connection ID: %w", err))
			d.dropPacket(p, 0, logging.PacketDropHeaderParseError)
			return info, false
		}
		info.destConnID = connID
		return info, true
	}

	if wire.IsVersionNegotiationPacket(data) {
		// sent by servers, never processed by servers
		d.dropPacket(p, 0, logging.PacketDropUnexpectedPacket)
		return info, false
	}
	v, err := wire.ParseVersion(data)
	if err != nil {
		d.recordError(fmt.Errorf("error parsing version: %w", err))
		d.dropPacket(p, 0, logging.PacketDropHeaderParseError)
		return info, false
	}
	info.hasVersion = true
	info.version = v
	if !protocol.IsSupportedVersion(d.config.Versions, v) {
		// A version this dispatcher doesn't speak allows connection IDs of
		// up to 255 bytes, so only the RFC 8999 invariant fields are parsed.
		// The packet must still make it to version negotiation.
		_, dest, src, err := wire.ParseArbitraryLenConnectionIDs(data)
		if err != nil {
			d.recordError(fmt.Errorf("error parsing connection IDs: %w", err))
			d.dropPacket(p, 0, logging.PacketDropHeaderParseError)
			return info, false
		}
		info.arbDestConnID = dest
		info.arbSrcConnID = src
		if len(dest) <= protocol.MaxConnectionIDLen {
			info.destConnID = protocol.ParseConnectionID(dest)
		}
		if len(src) <= protocol.MaxConnectionIDLen {
			info.srcConnID = protocol.ParseConnectionID(src)
		}
		return info, true
	}
	hdr, _, _, err := wire.ParsePacket(data)
	if err != nil {
		d.recordError(fmt.Errorf("error parsing packet: %w", err))
		d.dropPacket(p, 0, logging.PacketDropHeaderParseError)
		return info, false
	}
	info.versionSupported = true
	info.packetType = hdr.Type
	info.destConnID = hdr.DestConnectionID
	info.srcConnID = hdr.SrcConnectionID
	return info, true
}

// maybeDispatchPacket is the central decision procedure. It reports whether
// the packet was put into the early-packet buffer (and must not be released
// by the caller).
func (d *Dispatcher) maybeDispatchPacket(info receivedPacketInfo) bool {
	p := info.packet

	if addr, ok := p.RemoteAddr.(*net.UDPAddr); ok && isBlockedSourcePort(uint16(addr.Port)) {
		d.dropPacket(p, info.packetType, logging.PacketDropDOSPrevention)
		return false
	}

	// fast path: the connection ID is known
	if s, ok := d.sessions.Lookup(info.destConnID); ok {
		s.HandlePacket(p)
		return false
	}

	// The session may have been created under a dispatcher-assigned
	// replacement of this ID. The replacement is deterministic, so recompute
	// it and look again.
	if info.hasVersion && info.versionSupported {
		if replacement := d.connIDGen.Replace(info.destConnID, info.version); replacement != info.destConnID {
			if s, ok := d.sessions.Lookup(replacement); ok {
				s.HandlePacket(p)
				return false
			}
		}
	}

	// a pending connection whose ClientHello is already complete: queue the
	// packet, the session will be created when the budget allows
	if d.store.HasChloForConnection(info.destConnID) {
		if res := d.store.Enqueue(info.destConnID, p, info.version, nil); res != EnqueueSuccess {
			d.logger.Debugf("Dropping packet for %s: %s", info.destConnID, res)
			d.dropPacket(p, info.packetType, logging.PacketDropBufferFull)
			return false
		}
		d.tracePacketBuffered(p, info.packetType)
		return true
	}

	if d.timeWait.IsConnectionIDInTimeWait(info.destConnID) {
		d.timeWait.ProcessPacket(info.destConnID, p.RemoteAddr, len(p.Data))
		return false
	}

	if !d.accepting && info.hasVersion {
		d.statelesslyTerminateConnection(info, &qerr.TransportError{
			ErrorCode:    qerr.ConnectionRefused,
			ErrorMessage: "stopped accepting new connections",
		})
		return false
	}

	if info.hasVersion && !info.versionSupported {
		// too-small packets don't get a reply: the version negotiation
		// packet could be larger than the packet that triggered it
		if len(p.Data) >= protocol.MinPacketSizeForVersionNegotiation {
			d.timeWait.SendVersionNegotiationPacket(info.arbSrcConnID, info.arbDestConnID, d.config.Versions, p.RemoteAddr)
		}
		d.dropPacket(p, 0, logging.PacketDropUnsupportedVersion)
		return false
	}

	// a short header packet for an unknown connection: the peer may hold
	// state for a connection this server has forgotten, tell it to let go
	if !info.hasVersion {
		d.maybeSendStatelessReset(p, info.destConnID)
		d.dropPacket(p, 0, logging.PacketDropUnknownConnectionID)
		return false
	}

	if info.packetType == protocol.PacketTypeInitial {
		if info.destConnID.Len() < protocol.MinConnectionIDLenInitial {
			d.dropPacket(p, info.packetType, logging.PacketDropProtocolViolation)
			return false
		}
		if len(p.Data) < protocol.MinInitialPacketSize {
			d.dropPacket(p, info.packetType, logging.PacketDropDOSPrevention)
			return false
		}
	}

	return d.processHeader(info)
}

// processHeader handles long header packets of supported versions for
// unknown connection IDs.
func (d *Dispatcher) processHeader(info receivedPacketInfo) bool {
	p := info.packet
	switch info.packetType {
	case protocol.PacketTypeInitial:
		return d.tryExtractChloOrBufferEarlyPacket(info)
	case protocol.PacketType0RTT:
		// 0-RTT arriving before the ClientHello completed: buffer it for
		// the session this connection attempt may still become
		if res := d.store.Enqueue(info.destConnID, p, info.version, nil); res != EnqueueSuccess {
			d.logger.Debugf("Dropping 0-RTT packet for %s: %s", info.destConnID, res)
			d.dropPacket(p, info.packetType, logging.PacketDropBufferFull)
			return false
		}
		d.tracePacketBuffered(p, info.packetType)
		return true
	default:
		// Handshake or Retry packets for a connection this server doesn't
		// know can't ever become a connection; ignore this ID from now on
		d.timeWait.Add([]ConnectionID{info.destConnID}, ActionDoNothing, nil, 0)
		d.dropPacket(p, info.packetType, logging.PacketDropUnexpectedPacket)
		return false
	}
}

func (d *Dispatcher) tryExtractChloOrBufferEarlyPacket(info receivedPacketInfo) bool {
	p := info.packet
	res, chlo, tlsAlert, hasAlert := d.store.IngestPacketForTLSCHLO(info.destConnID, info.version, p.Data)
	if res != EnqueueSuccess {
		d.logger.Debugf("Dropping Initial packet for %s: %s", info.destConnID, res)
		d.dropPacket(p, info.packetType, logging.PacketDropBufferFull)
		return false
	}
	if hasAlert {
		d.store.DiscardPackets(info.destConnID)
		d.statelesslyTerminateConnection(info, qerr.NewLocalCryptoError(tlsAlert, errors.New("TLS alert while extracting the ClientHello")))
		return false
	}
	if res := d.store.Enqueue(info.destConnID, p, info.version, chlo); res != EnqueueSuccess {
		d.logger.Debugf("Dropping Initial packet for %s: %s", info.destConnID, res)
		d.dropPacket(p, info.packetType, logging.PacketDropBufferFull)
		return false
	}
	if chlo == nil {
		// ClientHello still incomplete, wait for more packets
		d.tracePacketBuffered(p, info.packetType)
		return true
	}
	if d.sessionBudget <= 0 {
		// out of budget for this tick; the complete ClientHello stays
		// buffered until ProcessBufferedChlos
		d.tracePacketBuffered(p, info.packetType)
		return true
	}
	list, ok := d.store.DeliverPackets(info.destConnID)
	if !ok {
		return true // unreachable, the list was just written to
	}
	d.createSessionFromChlo(list, p.LocalAddr, p.RemoteAddr)
	return true
}

// ProcessBufferedChlos replenishes the per-tick session creation budget and
// creates sessions for buffered complete ClientHellos, in the order the
// ClientHellos completed. Call once per event loop cycle.
func (d *Dispatcher) ProcessBufferedChlos(n int) {
	d.sessionBudget = n
	for d.sessionBudget > 0 {
		list, ok := d.store.DeliverPacketsForNextConnection()
		if !ok {
			return
		}
		if len(list.packets) == 0 {
			continue
		}
		first := list.packets[0]
		d.createSessionFromChlo(list, first.LocalAddr, first.RemoteAddr)
	}
}

// createSessionFromChlo creates a session for a connection attempt with a
// complete ClientHello and replays the buffered packets to it.
// It consumes the list.
func (d *Dispatcher) createSessionFromChlo(list *bufferedPacketList, local, remote net.Addr) {
	originalID := list.connID
	v := list.version
	clientSrcConnID := d.srcConnIDFromList(list)
	connID := d.connIDGen.Replace(originalID, v)
	if connID != originalID {
		if _, ok := d.sessions.Lookup(connID); ok {
			// a different session already uses the replacement ID; refusing
			// the connection is the only option that can't merge two
			// connections into one
			d.logger.Errorf("Replacement connection ID %s for %s collides with an existing session", connID, originalID)
			d.statelesslyTerminateConnectionForID(originalID, clientSrcConnID, v, remote, len(list.packets[0].Data), &qerr.TransportError{
				ErrorCode:    qerr.ProtocolViolation,
				ErrorMessage: "connection ID collision",
			})
			list.Release()
			return
		}
	}

	var s Session
	events := SessionEvents{
		OnClosed: func(err error) {
			d.onSessionClosed(s, originalID, clientSrcConnID, err)
		},
		OnWriteBlocked: func() {
			d.blockedWriters.Add(s)
		},
		AddConnectionID: func(id ConnectionID) bool {
			return d.sessions.AddAlias(s.ConnectionID(), id)
		},
		RetireConnectionID: func(id ConnectionID) {
			d.sessions.Retire(id)
		},
	}
	created, err := d.factory.CreateSession(SessionRequest{
		ConnectionID:         connID,
		OriginalConnectionID: originalID,
		LocalAddr:            local,
		RemoteAddr:           remote,
		Version:              v,
		ALPN:                 d.selectALPN(list.chlo.ALPNs),
		ClientHello:          list.chlo,
		Events:               events,
	})
	if err != nil || created == nil {
		d.logger.Errorf("Creating session for %s failed: %s", originalID, err)
		list.Release()
		return
	}
	s = created

	if !d.sessions.Insert(connID, s) {
		// the collision check above should have excluded this
		d.recordError(fmt.Errorf("connection ID %s is already in the session map", connID))
		d.logger.Errorf("Connection ID %s is already in the session map", connID)
		list.Release()
		return
	}
	if connID != originalID {
		// keep packets still addressed to the client-chosen ID routable;
		// if this fails, the worst case is losing some early packets
		if !d.sessions.AddAlias(connID, originalID) {
			d.logger.Infof("Could not register the original connection ID %s for %s", originalID, connID)
		}
	}
	d.sessionBudget--
	if d.tracer != nil && d.tracer.ConnectionStarted != nil {
		d.tracer.ConnectionStarted(local, remote, v, connID)
	}

	for i := range list.packets {
		s.HandlePacket(list.packets[i])
		list.packets[i].release()
	}
	list.packets = nil
}

func (d *Dispatcher) selectALPN(offered []string) string {
	for _, alpn := range offered {
		if slices.Contains(d.config.ALPNs, alpn) {
			return alpn
		}
	}
	// no overlap: hand the client's first offer to the session, which owns
	// the decision whether to refuse
	if len(offered) > 0 {
		return offered[0]
	}
	return ""
}

// onSessionClosed runs teardown when a session fires OnClosed.
func (d *Dispatcher) onSessionClosed(s Session, originalID, clientSrcConnID ConnectionID, err error) {
	d.blockedWriters.Remove(s)
	ids := d.sessions.RemoveAllIDs(s)
	if len(ids) == 0 {
		ids = s.ActiveConnectionIDs()
	}

	srtt := s.SmoothedRTT()
	switch {
	case len(s.TerminationPackets()) > 0:
		d.timeWait.Add(ids, ActionSendTerminationPackets, s.TerminationPackets(), srtt)
	case !s.HandshakeComplete():
		// the peer never finished the handshake, so it can't decrypt a
		// stateless reset; synthesize a CONNECTION_CLOSE it can read
		packet, _, cerr := d.terminator.composeConnectionClose(clientSrcConnID, originalID, s.Version(), transportErrorFor(err))
		if cerr != nil {
			d.logger.Errorf("Composing CONNECTION_CLOSE for %s failed: %s", originalID, cerr)
			d.timeWait.Add(ids, ActionDoNothing, nil, srtt)
		} else {
			d.timeWait.Add(ids, ActionSendConnectionClosePackets, [][]byte{packet}, srtt)
		}
	default:
		d.timeWait.Add(ids, ActionSendStatelessReset, nil, srtt)
	}

	if d.tracer != nil && d.tracer.ConnectionClosed != nil {
		d.tracer.ConnectionClosed(s.ConnectionID(), err)
	}

	// escape the session's own call stack before dropping the last reference
	d.closedSessions = append(d.closedSessions, s)
	d.deleteAlarm.Update(time.Now())
}

func (d *Dispatcher) deleteClosedSessions() {
	d.closedSessions = nil
}

// statelesslyTerminateConnection rejects the connection attempt the packet
// belongs to: it registers a termination entry in time-wait and answers the
// triggering packet from it.
func (d *Dispatcher) statelesslyTerminateConnection(info receivedPacketInfo, transportErr *qerr.TransportError) {
	if info.versionSupported {
		d.statelesslyTerminateConnectionForID(info.destConnID, info.srcConnID, info.version, info.packet.RemoteAddr, len(info.packet.Data), transportErr)
		return
	}
	// for a version this server doesn't speak, no common CONNECTION_CLOSE
	// encoding exists; an empty version negotiation packet ends the attempt
	packet := d.terminator.composeUnsupportedVersionTermination(info.arbSrcConnID, info.arbDestConnID)
	d.timeWait.Add([]ConnectionID{info.destConnID}, ActionSendTerminationPackets, [][]byte{packet}, 0)
	d.timeWait.ProcessPacket(info.destConnID, info.packet.RemoteAddr, len(info.packet.Data))
	if d.tracer != nil && d.tracer.ConnectionRejected != nil {
		d.tracer.ConnectionRejected(info.packet.RemoteAddr, transportErr)
	}
}

func (d *Dispatcher) statelesslyTerminateConnectionForID(destConnID, srcConnID ConnectionID, v Version, remote net.Addr, triggerSize int, transportErr *qerr.TransportError) {
	d.logger.Debugf("Statelessly terminating %s: %s", destConnID, transportErr)
	packet, ccf, err := d.terminator.composeConnectionClose(srcConnID, destConnID, v, transportErr)
	if err != nil {
		d.logger.Errorf("Composing CONNECTION_CLOSE for %s failed: %s", destConnID, err)
		return
	}
	d.timeWait.Add([]ConnectionID{destConnID}, ActionSendConnectionClosePackets, [][]byte{packet}, 0)
	if triggerSize > 0 {
		d.timeWait.ProcessPacket(destConnID, remote, triggerSize)
		if d.tracer != nil && d.tracer.SentPacket != nil {
			hdr := &logging.Header{
				Type:             protocol.PacketTypeInitial,
				Version:          v,
				DestConnectionID: srcConnID,
				SrcConnectionID:  destConnID,
			}
			d.tracer.SentPacket(remote, hdr, logging.ByteCount(len(packet)), ccf)
		}
	}
	if d.tracer != nil && d.tracer.ConnectionRejected != nil {
		d.tracer.ConnectionRejected(remote, transportErr)
	}
}

// onBufferedPacketsExpired is called by the store when a half-open
// connection attempt aged out of the buffer.
func (d *Dispatcher) onBufferedPacketsExpired(connID ConnectionID, list *bufferedPacketList) {
	d.logger.Debugf("Buffered packets for %s expired", connID)
	var srcConnID ConnectionID
	var remote net.Addr
	if len(list.packets) > 0 {
		srcConnID = d.srcConnIDFromList(list)
		remote = list.packets[0].RemoteAddr
	}
	d.statelesslyTerminateConnectionForID(connID, srcConnID, list.version, remote, 0, &qerr.TransportError{
		ErrorCode:    qerr.ConnectionRefused,
		ErrorMessage: "handshake did not complete in time",
	})
}

// srcConnIDFromList recovers the client's source connection ID from the
// first buffered Initial packet.
func (d *Dispatcher) srcConnIDFromList(list *bufferedPacketList) ConnectionID {
	if list == nil || len(list.packets) == 0 {
		return ConnectionID{}
	}
	hdr, _, _, err := wire.ParsePacket(list.packets[0].Data)
	if err != nil {
		return ConnectionID{}
	}
	return hdr.SrcConnectionID
}

// maybeSendStatelessReset answers a short header packet for an unknown
// connection ID with a stateless reset, with per-address suppression so a
// packet burst doesn't turn into a reset burst.
func (d *Dispatcher) maybeSendStatelessReset(p ReceivedPacket, connID ConnectionID) {
	// smaller packets can't be answered: the reset must be strictly smaller
	if len(p.Data) <= protocol.MinReceivedStatelessResetSize {
		return
	}
	addrKey := p.RemoteAddr.String()
	if _, ok := d.recentResetAddrs[addrKey]; ok {
		return
	}
	if len(d.recentResetAddrs) >= protocol.MaxRecentStatelessResetAddresses {
		return
	}
	d.recentResetAddrs[addrKey] = struct{}{}
	if !d.resetAddrsAlarmSet {
		d.resetAddrsAlarm.Update(p.RcvTime.Add(protocol.RecentStatelessResetAddressesLifetime))
		d.resetAddrsAlarmSet = true
	}

	token := d.resetter.Token(connID)
	data, err := wire.ComposeStatelessReset(token, len(p.Data)-1)
	if err != nil {
		d.logger.Debugf("Not sending stateless reset to %s: %s", p.RemoteAddr, err)
		return
	}
	d.logger.Debugf("Sending stateless reset to %s (%d bytes)", p.RemoteAddr, len(data))
	d.timeWait.SendPacket(data, p.RemoteAddr)
	if d.tracer != nil && d.tracer.SentStatelessReset != nil {
		d.tracer.SentStatelessReset(p.RemoteAddr, protocol.ByteCount(len(data)))
	}
}

func (d *Dispatcher) clearRecentResetAddresses() {
	clear(d.recentResetAddrs)
	d.resetAddrsAlarmSet = false
}

func (d *Dispatcher) dropPacket(p ReceivedPacket, pt protocol.PacketType, reason logging.PacketDropReason) {
	if d.tracer != nil && d.tracer.DroppedPacket != nil {
		d.tracer.DroppedPacket(p.RemoteAddr, pt, p.Size(), reason)
	}
}

func (d *Dispatcher) tracePacketBuffered(p ReceivedPacket, pt protocol.PacketType) {
	if d.tracer != nil && d.tracer.BufferedPacket != nil {
		d.tracer.BufferedPacket(p.RemoteAddr, pt, p.Size())
	}
}

func (d *Dispatcher) recordError(err error) {
	d.lastError = err
}

// LastError returns the last header parse or invariant error.
func (d *Dispatcher) LastError() error { return d.lastError }

// StartAcceptingNewConnections makes the dispatcher accept new connection
// attempts again.
func (d *Dispatcher) StartAcceptingNewConnections() { d.accepting = true }

// StopAcceptingNewConnections makes the dispatcher reject all new connection
// attempts. Already buffered connection attempts are discarded.
func (d *Dispatcher) StopAcceptingNewConnections() {
	d.accepting = false
	d.store.DiscardAllPackets()
}

// OnCanWrite tells the dispatcher that the socket became writable again.
func (d *Dispatcher) OnCanWrite() { d.blockedWriters.OnCanWrite() }

// HasPendingWrites says if any writer is waiting for the socket to become
// writable.
func (d *Dispatcher) HasPendingWrites() bool { return d.blockedWriters.HasPending() }

// NumSessions returns the number of live sessions.
func (d *Dispatcher) NumSessions() int { return d.sessions.NumSessions() }

// PerformActionOnSessions visits every live session exactly once.
func (d *Dispatcher) PerformActionOnSessions(action func(Session)) {
	d.sessions.PerformActionOnSessions(action)
}

// SessionsSnapshot returns every live session exactly once.
func (d *Dispatcher) SessionsSnapshot() []Session { return d.sessions.SessionsSnapshot() }

// HasBufferedPackets says if early packets are buffered for the connection ID.
func (d *Dispatcher) HasBufferedPackets(connID ConnectionID) bool {
	return d.store.HasBufferedPackets(connID)
}

// HasChlosBuffered says if any buffered connection attempt has a complete
// ClientHello waiting for session creation.
func (d *Dispatcher) HasChlosBuffered() bool { return d.store.HasChlosBuffered() }

// Shutdown synchronously closes every session and releases all dispatcher
// state. No session outlives the dispatcher.
func (d *Dispatcher) Shutdown() {
	for _, s := range d.sessions.SessionsSnapshot() {
		s.Close(ErrServerClosed)
	}
	d.deleteClosedSessions()
	d.store.DiscardAllPackets()
	d.deleteAlarm.Cancel()
	d.resetAddrsAlarm.Cancel()
	d.timeWait.Shutdown()
	if d.tracer != nil && d.tracer.Close != nil {
		d.tracer.Close()
	}
}

// transportErrorFor maps a session close error to the transport error sent
// on the wire.
func transportErrorFor(err error) *qerr.TransportError {
	var terr *qerr.TransportError
	if errors.As(err, &terr) {
		return terr
	}
	var aerr *qerr.ApplicationError
	if errors.As(err, &aerr) {
		return &qerr.TransportError{ErrorCode: qerr.ApplicationErrorErrorCode}
	}
	return &qerr.TransportError{ErrorCode: qerr.InternalError}
}
