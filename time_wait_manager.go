package qdemux

import (
	"math/bits"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/qdemux/qdemux/internal/protocol"
	"github.com/qdemux/qdemux/internal/utils"
	"github.com/qdemux/qdemux/internal/utils/ringbuffer"
	"github.com/qdemux/qdemux/internal/wire"
	"github.com/qdemux/qdemux/logging"
)

// TimeWaitAction says how packets for a connection in time-wait are answered.
type TimeWaitAction uint8

const (
	// ActionSendTerminationPackets resends the packets the session produced
	// when it closed.
	ActionSendTerminationPackets TimeWaitAction = iota
	// ActionSendConnectionClosePackets resends a CONNECTION_CLOSE the
	// dispatcher synthesized for a connection that never completed its
	// handshake.
	ActionSendConnectionClosePackets
	// ActionSendStatelessReset answers with a stateless reset.
	ActionSendStatelessReset
	// ActionDoNothing ignores the packets.
	ActionDoNothing
)

func (a TimeWaitAction) String() string {
	switch a {
	case ActionSendTerminationPackets:
		return "send termination packets"
	case ActionSendConnectionClosePackets:
		return "send CONNECTION_CLOSE packets"
	case ActionSendStatelessReset:
		return "send stateless reset"
	case ActionDoNothing:
		return "do nothing"
	default:
		panic("unknown time-wait action")
	}
}

type timeWaitEntry struct {
	connIDs       []ConnectionID
	action        TimeWaitAction
	packets       [][]byte
	insertionTime time.Time
	// numReceived counts packets received for this entry, for the
	// exponential response backoff.
	numReceived uint32
	// srtt is the smoothed RTT the connection measured before it died.
	// Zero if it never completed a round trip.
	srtt         time.Duration
	lastResponse time.Time
}

type queuedReply struct {
	data []byte
	addr net.Addr
}

// timeWaitManager remembers recently terminated connections and answers
// further packets for them without reviving any state: it replays stored
// termination packets, sends stateless resets, or stays silent.
//
// It also owns the dispatcher's stateless send path: replies that can't be
// written because the socket is blocked are queued and flushed on
// OnCanWrite, and all replies pass a shared rate limiter.
type timeWaitManager struct {
	entries    map[ConnectionID]*timeWaitEntry
	order      ringbuffer.RingBuffer[*timeWaitEntry]
	numEntries int

	period time.Duration
	alarm  Alarm

	sender   PacketSender
	resetter *statelessResetter
	limiter  *rate.Limiter
	queued   []queuedReply
	// onWriteBlocked registers the manager with the write-blocked list.
	onWriteBlocked func(BlockedWriter)

	nowFunc func() time.Time
	tracer  *logging.Tracer
	logger  utils.Logger
}

var _ BlockedWriter = &timeWaitManager{}

func newTimeWaitManager(
	sender PacketSender,
	resetter *statelessResetter,
	alarms AlarmFactory,
	onWriteBlocked func(BlockedWriter),
	tracer *logging.Tracer,
	logger utils.Logger,
) *timeWaitManager {
	m := &timeWaitManager{
		entries:        make(map[ConnectionID]*timeWaitEntry),
		period:         protocol.TimeWaitPeriod,
		sender:         sender,
		resetter:       resetter,
		limiter:        rate.NewLimiter(rate.Limit(protocol.TimeWaitResponsesPerSecond), protocol.TimeWaitResponsesBurst),
		onWriteBlocked: onWriteBlocked,
		nowFunc:        time.Now,
		tracer:         tracer,
		logger:         logger.WithPrefix("time-wait"),
	}
	m.alarm = alarms.NewAlarm(m.onExpiryTimer)
	return m
}

// Add puts every connection ID of a dying connection into time-wait, sharing
// one entry. Re-adding an ID refreshes the entry: the stored packets and the
// action are replaced and the clock restarts.
// srtt is the RTT the connection measured, used to pace replies; pass 0 if
// the connection never completed a round trip.
func (m *timeWaitManager) Add(connIDs []ConnectionID, action TimeWaitAction, packets [][]byte, srtt time.Duration) {
	if len(connIDs) == 0 {
		return
	}
	for _, id := range connIDs {
		if old, ok := m.entries[id]; ok {
			m.removeEntry(old)
		}
	}
	for m.numEntries >= protocol.MaxTimeWaitEntries {
		if !m.evictOldest() {
			break
		}
	}
	entry := &timeWaitEntry{
		connIDs:       connIDs,
		action:        action,
		packets:       packets,
		insertionTime: m.nowFunc(),
		srtt:          srtt,
	}
	for _, id := range connIDs {
		m.entries[id] = entry
	}
	wasEmpty := m.order.Empty()
	m.order.PushBack(entry)
	m.numEntries++
	if wasEmpty {
		m.alarm.Update(entry.insertionTime.Add(m.period))
	}
	if m.tracer != nil && m.tracer.ConnectionAddedToTimeWait != nil {
		m.tracer.ConnectionAddedToTimeWait(connIDs)
	}
}

func (m *timeWaitManager) IsConnectionIDInTimeWait(id ConnectionID) bool {
	_, ok := m.entries[id]
	return ok
}

// ProcessPacket answers a packet for a connection in time-wait.
// Responses back off exponentially: only the 1st, 2nd, 4th, 8th, ... packet
// received for an entry is answered.
func (m *timeWaitManager) ProcessPacket(connID ConnectionID, remoteAddr net.Addr, packetSize int) {
	entry, ok := m.entries[connID]
	if !ok {
		return
	}
	entry.numReceived++
	if bits.OnesCount32(entry.numReceived) != 1 {
		return
	}
	// packets arriving within one RTT of the last reply belong to the same
	// flight as the packet that triggered it and don't warrant another one
	if entry.srtt > 0 {
		now := m.nowFunc()
		if !entry.lastResponse.IsZero() && now.Sub(entry.lastResponse) < entry.srtt {
			return
		}
		entry.lastResponse = now
	}
	switch entry.action {
	case ActionSendTerminationPackets, ActionSendConnectionClosePackets:
		m.logger.Debugf("Replaying %d termination packets for %s after receiving %d packets", len(entry.packets), connID, entry.numReceived)
		for _, p := range entry.packets {
			m.sendOrQueue(p, remoteAddr)
		}
	case ActionSendStatelessReset:
		m.sendStatelessReset(connID, remoteAddr, packetSize)
	case ActionDoNothing:
	}
}

func (m *timeWaitManager) sendStatelessReset(connID ConnectionID, remoteAddr net.Addr, packetSize int) {
	// a reset larger than the packet that triggered it would be an
	// amplification vector, and too small a packet can't be reset at all
	if packetSize <= protocol.MinReceivedStatelessResetSize {
		return
	}
	token := m.resetter.Token(connID)
	data, err := wire.ComposeStatelessReset(token, packetSize-1)
	if err != nil {
		m.logger.Debugf("Not sending stateless reset to %s: %s", remoteAddr, err)
		return
	}
	m.logger.Debugf("Sending stateless reset to %s (%d bytes)", remoteAddr, len(data))
	m.sendOrQueue(data, remoteAddr)
	if m.tracer != nil && m.tracer.SentStatelessReset != nil {
		m.tracer.SentStatelessReset(remoteAddr, protocol.ByteCount(len(data)))
	}
}

// SendVersionNegotiationPacket sends a version negotiation packet offering
// the given versions.
func (m *timeWaitManager) SendVersionNegotiationPacket(destConnID, srcConnID protocol.ArbitraryLenConnectionID, versions []Version, remoteAddr net.Addr) {
	data := wire.ComposeVersionNegotiation(destConnID, srcConnID, versions)
	m.logger.Debugf("Sending version negotiation to %s, offering %v", remoteAddr, versions)
	m.sendOrQueue(data, remoteAddr)
	if m.tracer != nil && m.tracer.SentVersionNegotiationPacket != nil {
		m.tracer.SentVersionNegotiationPacket(remoteAddr, destConnID, srcConnID, versions)
	}
}

// SendPacket sends a stateless packet, subject to the same rate limiting and
// write-blocked queueing as time-wait replies.
func (m *timeWaitManager) SendPacket(data []byte, remoteAddr net.Addr) {
	m.sendOrQueue(data, remoteAddr)
}

func (m *timeWaitManager) sendOrQueue(data []byte, addr net.Addr) {
	if !m.limiter.Allow() {
		m.logger.Debugf("Dropping stateless reply to %s: rate limited", addr)
		return
	}
	if m.sender.IsWriteBlocked() {
		m.queued = append(m.queued, queuedReply{data: data, addr: addr})
		m.onWriteBlocked(m)
		return
	}
	if _, err := m.sender.WriteTo(data, addr); err != nil {
		m.logger.Errorf("Sending stateless reply to %s failed: %s", addr, err)
	}
}

// OnCanWrite flushes replies queued while the socket was blocked.
func (m *timeWaitManager) OnCanWrite() {
	for len(m.queued) > 0 {
		if m.sender.IsWriteBlocked() {
			m.onWriteBlocked(m)
			return
		}
		p := m.queued[0]
		m.queued = m.queued[1:]
		if _, err := m.sender.WriteTo(p.data, p.addr); err != nil {
			m.logger.Errorf("Sending stateless reply to %s failed: %s", p.addr, err)
		}
	}
}

func (m *timeWaitManager) IsWriteBlocked() bool { return len(m.queued) > 0 }

func (m *timeWaitManager) Shutdown() { m.alarm.Cancel() }

// live reports whether the entry is still current: a refresh replaces the
// entry object, leaving a stale pointer in the eviction order.
func (m *timeWaitManager) live(e *timeWaitEntry) bool {
	return m.entries[e.connIDs[0]] == e
}

func (m *timeWaitManager) removeEntry(e *timeWaitEntry) {
	if !m.live(e) {
		return
	}
	for _, id := range e.connIDs {
		delete(m.entries, id)
	}
	m.numEntries--
}

func (m *timeWaitManager) evictOldest() bool {
	for !m.order.Empty() {
		e := m.order.PopFront()
		if !m.live(e) {
			continue
		}
		m.removeEntry(e)
		return true
	}
	return false
}

func (m *timeWaitManager) onExpiryTimer() {
	now := m.nowFunc()
	for !m.order.Empty() {
		e := m.order.PeekFront()
		if !m.live(e) {
			m.order.PopFront()
			continue
		}
		expiry := e.insertionTime.Add(m.period)
		if expiry.After(now) {
			m.alarm.Update(expiry)
			return
		}
		m.order.PopFront()
		m.removeEntry(e)
	}
}
