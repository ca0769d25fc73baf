package qdemux

import (
	"time"

	"github.com/qdemux/qdemux/internal/handshake"
	"github.com/qdemux/qdemux/internal/protocol"
	"github.com/qdemux/qdemux/internal/utils"
	"github.com/qdemux/qdemux/internal/utils/ringbuffer"
)

// EnqueueResult is the outcome of buffering an early packet.
type EnqueueResult uint8

const (
	EnqueueSuccess EnqueueResult = iota
	// EnqueueTooManyConnections: the store holds packets for too many
	// connection IDs already.
	EnqueueTooManyConnections
	// EnqueueTooManyPackets: this connection ID reached its packet cap.
	EnqueueTooManyPackets
	// EnqueueNotEnoughBytes: the packet was empty.
	EnqueueNotEnoughBytes
)

func (r EnqueueResult) String() string {
	switch r {
	case EnqueueSuccess:
		return "success"
	case EnqueueTooManyConnections:
		return "too many connections"
	case EnqueueTooManyPackets:
		return "too many packets"
	case EnqueueNotEnoughBytes:
		return "not enough bytes"
	default:
		panic("unknown enqueue result")
	}
}

// A bufferedPacketList holds the packets that arrived for one connection ID
// before a session existed.
type bufferedPacketList struct {
	connID      ConnectionID
	serial      uint64
	packets     []ReceivedPacket
	arrivalTime time.Time
	version     Version
	// chlo is set once the ClientHello is fully reassembled.
	chlo      *ParsedClientHello
	extractor *handshake.ChloExtractor
}

// Release returns the backing buffers of all queued packets to the pool.
func (l *bufferedPacketList) Release() {
	for i := range l.packets {
		l.packets[i].release()
	}
	l.packets = nil
}

// storeRef is a lazily-deleted ring buffer reference to a list. The serial
// disambiguates a connection ID that was delivered and later buffered again.
type storeRef struct {
	connID ConnectionID
	serial uint64
}

// bufferedPacketStore is the early-packet buffer: per-connection-ID queues of
// packets that arrived before a session exists, with capacity and aging
// limits. Not goroutine-safe; owned by the dispatcher's event loop.
type bufferedPacketStore struct {
	lists map[ConnectionID]*bufferedPacketList

	// arrivalOrder orders lists by creation for expiry, front is oldest.
	arrivalOrder ringbuffer.RingBuffer[storeRef]
	// chloOrder orders connections whose ClientHello completed, for
	// budgeted FIFO session creation.
	chloOrder ringbuffer.RingBuffer[storeRef]

	numWithoutChlo int
	numChlos       int
	nextSerial     uint64

	maxAge      time.Duration
	expiryAlarm Alarm
	// onExpired is called for every list evicted by age, so the engine can
	// register a time-wait termination instead of silently dropping state.
	onExpired func(ConnectionID, *bufferedPacketList)

	nowFunc func() time.Time
	logger  utils.Logger
}

func newBufferedPacketStore(alarms AlarmFactory, onExpired func(ConnectionID, *bufferedPacketList), logger utils.Logger) *bufferedPacketStore {
	s := &bufferedPacketStore{
		lists:     make(map[ConnectionID]*bufferedPacketList),
		maxAge:    protocol.MaxEarlyPacketAge,
		onExpired: onExpired,
		nowFunc:   time.Now,
		logger:    logger,
	}
	s.expiryAlarm = alarms.NewAlarm(s.onExpiryTimer)
	return s
}

// Enqueue appends a packet to the queue for the given connection ID,
// creating the queue if capacity allows. A non-nil chlo marks the queue as
// having a complete ClientHello.
func (s *bufferedPacketStore) Enqueue(connID ConnectionID, p ReceivedPacket, v Version, chlo *ParsedClientHello) EnqueueResult {
	if len(p.Data) == 0 {
		return EnqueueNotEnoughBytes
	}
	list, ok := s.lists[connID]
	if !ok {
		list = s.createList(connID, v, chlo != nil)
		if list == nil {
			return EnqueueTooManyConnections
		}
	}
	if len(list.packets) >= protocol.MaxBufferedPacketsPerConnection {
		return EnqueueTooManyPackets
	}
	list.packets = append(list.packets, p)
	if chlo != nil && list.chlo == nil {
		s.setChlo(list, chlo)
	}
	return EnqueueSuccess
}

// IngestPacketForTLSCHLO feeds an Initial packet into the per-connection
// ClientHello reassembler, creating the queue if capacity allows.
// It does not enqueue the packet itself.
func (s *bufferedPacketStore) IngestPacketForTLSCHLO(connID ConnectionID, v Version, data []byte) (res EnqueueResult, chlo *ParsedClientHello, tlsAlert uint8, hasAlert bool) {
	list, ok := s.lists[connID]
	if !ok {
		list = s.createList(connID, v, false)
		if list == nil {
			return EnqueueTooManyConnections, nil, 0, false
		}
	}
	if list.chlo != nil {
		return EnqueueSuccess, list.chlo, 0, false
	}
	if list.extractor == nil {
		list.extractor = &handshake.ChloExtractor{}
	}
	list.extractor.IngestPacket(v, data)
	if alert, ok := list.extractor.TLSAlert(); ok {
		return EnqueueSuccess, nil, alert, true
	}
	if !list.extractor.HasParsedFullChlo() {
		return EnqueueSuccess, nil, 0, false
	}
	chlo = &ParsedClientHello{
		SNI:                 list.extractor.ServerName(),
		ALPNs:               list.extractor.Alpns(),
		ResumptionAttempted: list.extractor.ResumptionAttempted(),
		EarlyDataAttempted:  list.extractor.EarlyDataAttempted(),
	}
	s.setChlo(list, chlo)
	return EnqueueSuccess, chlo, 0, false
}

func (s *bufferedPacketStore) HasBufferedPackets(connID ConnectionID) bool {
	_, ok := s.lists[connID]
	return ok
}

func (s *bufferedPacketStore) HasChloForConnection(connID ConnectionID) bool {
	list, ok := s.lists[connID]
	return ok && list.chlo != nil
}

func (s *bufferedPacketStore) HasChlosBuffered() bool { return s.numChlos > 0 }

// DeliverPackets removes and returns the queue for the given connection ID.
func (s *bufferedPacketStore) DeliverPackets(connID ConnectionID) (*bufferedPacketList, bool) {
	list, ok := s.lists[connID]
	if !ok {
		return nil, false
	}
	s.removeList(list)
	return list, true
}

// DeliverPacketsForNextConnection pops the next connection with a complete
// ClientHello, in the order the ClientHellos completed.
func (s *bufferedPacketStore) DeliverPacketsForNextConnection() (*bufferedPacketList, bool) {
	for !s.chloOrder.Empty() {
		ref := s.chloOrder.PopFront()
		list, ok := s.lists[ref.connID]
		if !ok || list.serial != ref.serial || list.chlo == nil {
			continue // stale reference
		}
		s.removeList(list)
		return list, true
	}
	return nil, false
}

// DiscardPackets drops all buffered state for the given connection ID.
func (s *bufferedPacketStore) DiscardPackets(connID ConnectionID) {
	list, ok := s.lists[connID]
	if !ok {
		return
	}
	s.removeList(list)
	list.Release()
}

// DiscardAllPackets drops all buffered state.
func (s *bufferedPacketStore) DiscardAllPackets() {
	for _, list := range s.lists {
		list.Release()
	}
	s.lists = make(map[ConnectionID]*bufferedPacketList)
	s.arrivalOrder.Clear()
	s.chloOrder.Clear()
	s.numWithoutChlo = 0
	s.numChlos = 0
	s.expiryAlarm.Cancel()
}

func (s *bufferedPacketStore) createList(connID ConnectionID, v Version, hasChlo bool) *bufferedPacketList {
	if len(s.lists) >= protocol.MaxBufferedConnections {
		return nil
	}
	if !hasChlo && s.numWithoutChlo >= protocol.MaxBufferedConnectionsWithoutCHLO {
		return nil
	}
	s.nextSerial++
	list := &bufferedPacketList{
		connID:      connID,
		serial:      s.nextSerial,
		arrivalTime: s.nowFunc(),
		version:     v,
	}
	s.lists[connID] = list
	s.numWithoutChlo++
	wasEmpty := s.arrivalOrder.Empty()
	s.arrivalOrder.PushBack(storeRef{connID: connID, serial: list.serial})
	if wasEmpty {
		s.expiryAlarm.Update(list.arrivalTime.Add(s.maxAge))
	}
	return list
}

func (s *bufferedPacketStore) setChlo(list *bufferedPacketList, chlo *ParsedClientHello) {
	list.chlo = chlo
	list.extractor = nil
	s.numWithoutChlo--
	s.numChlos++
	s.chloOrder.PushBack(storeRef{connID: list.connID, serial: list.serial})
}

func (s *bufferedPacketStore) removeList(list *bufferedPacketList) {
	delete(s.lists, list.connID)
	if list.chlo == nil {
		s.numWithoutChlo--
	} else {
		s.numChlos--
	}
}

func (s *bufferedPacketStore) onExpiryTimer() {
	now := s.nowFunc()
	for !s.arrivalOrder.Empty() {
		ref := s.arrivalOrder.PeekFront()
		list, ok := s.lists[ref.connID]
		if !ok || list.serial != ref.serial {
			s.arrivalOrder.PopFront()
			continue
		}
		expiry := list.arrivalTime.Add(s.maxAge)
		if expiry.After(now) {
			s.expiryAlarm.Update(expiry)
			return
		}
		s.arrivalOrder.PopFront()
		s.removeList(list)
		if s.onExpired != nil {
			s.onExpired(list.connID, list)
		}
		list.Release()
	}
}
