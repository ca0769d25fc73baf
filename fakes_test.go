package qdemux

import (
	"net"
	"time"
)

// fakeSession records the packets routed to it.
type fakeSession struct {
	connID             ConnectionID
	activeIDs          []ConnectionID
	version            Version
	handshakeComplete  bool
	terminationPackets [][]byte
	events             SessionEvents

	srtt time.Duration

	handled       [][]byte
	closed        bool
	closeErr      error
	canWriteCalls int
	writeBlocked  bool
	onCanWrite    func()
}

var _ Session = &fakeSession{}

func (s *fakeSession) HandlePacket(p ReceivedPacket) {
	s.handled = append(s.handled, append([]byte(nil), p.Data...))
}
func (s *fakeSession) ConnectionID() ConnectionID { return s.connID }
func (s *fakeSession) ActiveConnectionIDs() []ConnectionID {
	if len(s.activeIDs) > 0 {
		return s.activeIDs
	}
	return []ConnectionID{s.connID}
}
func (s *fakeSession) OnCanWrite() {
	s.canWriteCalls++
	if s.onCanWrite != nil {
		s.onCanWrite()
	}
}
func (s *fakeSession) IsWriteBlocked() bool         { return s.writeBlocked }
func (s *fakeSession) Version() Version             { return s.version }
func (s *fakeSession) HandshakeComplete() bool      { return s.handshakeComplete }
func (s *fakeSession) TerminationPackets() [][]byte { return s.terminationPackets }
func (s *fakeSession) SmoothedRTT() time.Duration   { return s.srtt }
func (s *fakeSession) Close(err error) {
	if s.closed {
		return
	}
	s.closed = true
	s.closeErr = err
	if s.events.OnClosed != nil {
		s.events.OnClosed(err)
	}
}

type fakeSessionFactory struct {
	createSession func(SessionRequest) (Session, error)
	requests      []SessionRequest
}

var _ SessionFactory = &fakeSessionFactory{}

func (f *fakeSessionFactory) CreateSession(req SessionRequest) (Session, error) {
	f.requests = append(f.requests, req)
	return f.createSession(req)
}

// newFakeSessionFactory creates a factory producing fakeSessions that wire up
// the dispatcher's event callbacks.
func newFakeSessionFactory() (*fakeSessionFactory, *[]*fakeSession) {
	sessions := &[]*fakeSession{}
	f := &fakeSessionFactory{}
	f.createSession = func(req SessionRequest) (Session, error) {
		s := &fakeSession{
			connID:  req.ConnectionID,
			version: req.Version,
			events:  req.Events,
		}
		if req.OriginalConnectionID != req.ConnectionID {
			s.activeIDs = []ConnectionID{req.ConnectionID, req.OriginalConnectionID}
		}
		*sessions = append(*sessions, s)
		return s, nil
	}
	return f, sessions
}

type sentPacket struct {
	data []byte
	addr net.Addr
}

// fakeSender records all packets written through it.
type fakeSender struct {
	packets []sentPacket
	blocked bool
}

var _ PacketSender = &fakeSender{}

func (s *fakeSender) WriteTo(b []byte, addr net.Addr) (int, error) {
	s.packets = append(s.packets, sentPacket{data: append([]byte(nil), b...), addr: addr})
	return len(b), nil
}
func (s *fakeSender) IsWriteBlocked() bool { return s.blocked }

// manualAlarm is fired explicitly by the test.
type manualAlarm struct {
	cb       func()
	deadline time.Time
	set      bool
}

func (a *manualAlarm) Update(t time.Time) { a.deadline, a.set = t, true }
func (a *manualAlarm) Cancel()            { a.set = false }

type manualAlarmFactory struct {
	alarms []*manualAlarm
}

var _ AlarmFactory = &manualAlarmFactory{}

func (f *manualAlarmFactory) NewAlarm(cb func()) Alarm {
	a := &manualAlarm{cb: cb}
	f.alarms = append(f.alarms, a)
	return a
}

// fire runs the callback of every alarm whose deadline has been reached.
func (f *manualAlarmFactory) fire(now time.Time) {
	for _, a := range f.alarms {
		if a.set && !a.deadline.After(now) {
			a.set = false
			a.cb()
		}
	}
}

func (f *manualAlarmFactory) hasPending() bool {
	for _, a := range f.alarms {
		if a.set {
			return true
		}
	}
	return false
}
