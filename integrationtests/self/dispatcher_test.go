package self_test

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"go.uber.org/mock/gomock"

	"github.com/qdemux/qdemux"
	"github.com/qdemux/qdemux/internal/mocks"
	"github.com/qdemux/qdemux/internal/protocol"
	"github.com/qdemux/qdemux/internal/testutils"
	"github.com/qdemux/qdemux/internal/wire"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type sessionFactoryFunc func(qdemux.SessionRequest) (qdemux.Session, error)

func (f sessionFactoryFunc) CreateSession(req qdemux.SessionRequest) (qdemux.Session, error) {
	return f(req)
}

var _ = Describe("Dispatcher", func() {
	var (
		mockCtrl   *gomock.Controller
		loop       *qdemux.EventLoop
		conn       *qdemux.UDPConn
		dispatcher *qdemux.Dispatcher
		serverAddr *net.UDPAddr
	)

	// newMockSession creates a session whose packets are forwarded to the
	// returned channel.
	newMockSession := func(req qdemux.SessionRequest) (*mocks.MockSession, chan []byte) {
		packets := make(chan []byte, 100)
		s := mocks.NewMockSession(mockCtrl)
		s.EXPECT().HandlePacket(gomock.Any()).Do(func(p qdemux.ReceivedPacket) {
			packets <- append([]byte(nil), p.Data...)
		}).AnyTimes()
		s.EXPECT().ConnectionID().Return(req.ConnectionID).AnyTimes()
		s.EXPECT().ActiveConnectionIDs().Return([]qdemux.ConnectionID{req.ConnectionID}).AnyTimes()
		s.EXPECT().Version().Return(req.Version).AnyTimes()
		s.EXPECT().HandshakeComplete().Return(true).AnyTimes()
		s.EXPECT().TerminationPackets().Return(nil).AnyTimes()
		s.EXPECT().SmoothedRTT().Return(time.Duration(0)).AnyTimes()
		s.EXPECT().IsWriteBlocked().Return(false).AnyTimes()
		s.EXPECT().OnCanWrite().AnyTimes()
		s.EXPECT().Close(gomock.Any()).AnyTimes()
		return s, packets
	}

	startServer := func(factory qdemux.SessionFactory, conf *qdemux.Config) {
		raw, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
		Expect(err).ToNot(HaveOccurred())
		conn, err = qdemux.NewUDPConn(raw)
		Expect(err).ToNot(HaveOccurred())
		serverAddr = raw.LocalAddr().(*net.UDPAddr)

		loop = qdemux.NewEventLoop()
		dispatcher, err = qdemux.NewDispatcher(conf, factory, conn, loop)
		Expect(err).ToNot(HaveOccurred())
		go loop.Run()
		go func() {
			defer GinkgoRecover()
			for {
				p, err := conn.ReadPacket()
				if err != nil {
					return
				}
				loop.Post(func() {
					dispatcher.HandlePacket(p)
					dispatcher.ProcessBufferedChlos(protocol.DefaultMaxSessionsPerTick)
				})
			}
		}()
	}

	numSessions := func() int {
		ch := make(chan int, 1)
		loop.Post(func() { ch <- dispatcher.NumSessions() })
		return <-ch
	}

	newClient := func() *net.UDPConn {
		c, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(func() { c.Close() })
		return c
	}

	readReply := func(c *net.UDPConn) []byte {
		Expect(c.SetReadDeadline(time.Now().Add(time.Second))).To(Succeed())
		b := make([]byte, 2048)
		n, _, err := c.ReadFrom(b)
		Expect(err).ToNot(HaveOccurred())
		return b[:n]
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
	})

	AfterEach(func() {
		done := make(chan struct{})
		loop.Post(func() { dispatcher.Shutdown(); close(done) })
		Eventually(done).Should(BeClosed())
		loop.Close()
		conn.Close()
		mockCtrl.Finish()
	})

	It("creates a session for a complete ClientHello", func() {
		var mx sync.Mutex
		var packetChans []chan []byte
		startServer(sessionFactoryFunc(func(req qdemux.SessionRequest) (qdemux.Session, error) {
			defer GinkgoRecover()
			Expect(req.ClientHello.SNI).To(Equal("example.com"))
			Expect(req.ALPN).To(Equal("h3"))
			s, packets := newMockSession(req)
			mx.Lock()
			packetChans = append(packetChans, packets)
			mx.Unlock()
			return s, nil
		}), &qdemux.Config{ALPNs: []string{"h3"}})

		client := newClient()
		connID := protocol.ParseConnectionID([]byte{1, 2, 3, 4, 5, 6, 7, 8})
		srcConnID := protocol.ParseConnectionID([]byte{8, 7, 6, 5, 4, 3, 2, 1})
		chlo := testutils.ComposeClientHello(testutils.ClientHelloConfig{ServerName: "example.com", ALPNs: []string{"h3", "h2"}})
		packet := testutils.ComposeInitialPacket(connID, srcConnID, qdemux.Version1, 0, chlo, connID, protocol.MinInitialPacketSize)
		_, err := client.WriteTo(packet, serverAddr)
		Expect(err).ToNot(HaveOccurred())

		Eventually(numSessions).Should(Equal(1))
		mx.Lock()
		packets := packetChans[0]
		mx.Unlock()
		Eventually(packets).Should(Receive(Equal(packet)))
	})

	It("reassembles a ClientHello split across multiple Initial packets", func() {
		var mx sync.Mutex
		var packetChans []chan []byte
		startServer(sessionFactoryFunc(func(req qdemux.SessionRequest) (qdemux.Session, error) {
			s, packets := newMockSession(req)
			mx.Lock()
			packetChans = append(packetChans, packets)
			mx.Unlock()
			return s, nil
		}), nil)

		client := newClient()
		connID := protocol.ParseConnectionID([]byte{1, 2, 3, 4, 5, 6, 7, 8})
		srcConnID := protocol.ParseConnectionID([]byte{8, 7, 6, 5, 4, 3, 2, 1})
		chlo := testutils.ComposeClientHello(testutils.ClientHelloConfig{ServerName: "example.com"})
		for _, p := range testutils.ComposeChloPackets(connID, srcConnID, qdemux.Version1, chlo, 3) {
			_, err := client.WriteTo(p, serverAddr)
			Expect(err).ToNot(HaveOccurred())
		}

		Eventually(numSessions).Should(Equal(1))
		mx.Lock()
		packets := packetChans[0]
		mx.Unlock()
		// all three Initial packets are replayed to the session
		for i := 0; i < 3; i++ {
			Eventually(packets).Should(Receive())
		}
	})

	It("answers unsupported versions with a Version Negotiation packet", func() {
		startServer(sessionFactoryFunc(func(qdemux.SessionRequest) (qdemux.Session, error) {
			Fail("should not create a session")
			return nil, nil
		}), nil)

		client := newClient()
		b := []byte{0xc0}
		b = binary.BigEndian.AppendUint32(b, 0xaaaaaaaa)
		b = append(b, 8, 1, 2, 3, 4, 5, 6, 7, 8)
		b = append(b, 4, 9, 10, 11, 12)
		b = append(b, make([]byte, protocol.MinPacketSizeForVersionNegotiation-len(b))...)
		_, err := client.WriteTo(b, serverAddr)
		Expect(err).ToNot(HaveOccurred())

		reply := readReply(client)
		Expect(wire.IsVersionNegotiationPacket(reply)).To(BeTrue())
		_, _, versions, err := wire.ParseVersionNegotiationPacket(reply)
		Expect(err).ToNot(HaveOccurred())
		Expect(versions).To(Equal(protocol.SupportedVersions))
	})

	It("sends a stateless reset for an unknown connection ID", func() {
		startServer(sessionFactoryFunc(func(qdemux.SessionRequest) (qdemux.Session, error) {
			Fail("should not create a session")
			return nil, nil
		}), nil)

		client := newClient()
		packet := make([]byte, 100)
		packet[0] = 0x40
		_, err := client.WriteTo(packet, serverAddr)
		Expect(err).ToNot(HaveOccurred())

		reply := readReply(client)
		Expect(reply).To(HaveLen(99))
		Expect(wire.IsLongHeaderPacket(reply[0])).To(BeFalse())
	})

	It("handles many concurrent connection attempts", func() {
		const numClients = 50
		startServer(sessionFactoryFunc(func(req qdemux.SessionRequest) (qdemux.Session, error) {
			s, _ := newMockSession(req)
			return s, nil
		}), nil)

		var g errgroup.Group
		for i := 0; i < numClients; i++ {
			i := i
			g.Go(func() error {
				c, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
				if err != nil {
					return err
				}
				defer c.Close()
				connID := protocol.ParseConnectionID(fmt.Appendf(nil, "%08d", i))
				srcConnID := protocol.ParseConnectionID([]byte{8, 7, 6, 5, 4, 3, 2, 1})
				chlo := testutils.ComposeClientHello(testutils.ClientHelloConfig{ServerName: "example.com"})
				packet := testutils.ComposeInitialPacket(connID, srcConnID, qdemux.Version1, 0, chlo, connID, protocol.MinInitialPacketSize)
				_, err = c.WriteTo(packet, serverAddr)
				return err
			})
		}
		Expect(g.Wait()).To(Succeed())
		Eventually(numSessions).Should(Equal(numClients))
	})

	It("moves closed connections to time-wait", func() {
		events := make(chan qdemux.SessionEvents, 1)
		startServer(sessionFactoryFunc(func(req qdemux.SessionRequest) (qdemux.Session, error) {
			s, _ := newMockSession(req)
			events <- req.Events
			return s, nil
		}), nil)

		client := newClient()
		connID := protocol.ParseConnectionID([]byte{1, 2, 3, 4, 5, 6, 7, 8})
		srcConnID := protocol.ParseConnectionID([]byte{8, 7, 6, 5, 4, 3, 2, 1})
		chlo := testutils.ComposeClientHello(testutils.ClientHelloConfig{ServerName: "example.com"})
		packet := testutils.ComposeInitialPacket(connID, srcConnID, qdemux.Version1, 0, chlo, connID, protocol.MinInitialPacketSize)
		_, err := client.WriteTo(packet, serverAddr)
		Expect(err).ToNot(HaveOccurred())

		var ev qdemux.SessionEvents
		Eventually(events).Should(Receive(&ev))
		loop.Post(func() { ev.OnClosed(nil) })
		Eventually(numSessions).Should(BeZero())

		// packets for the dead connection now trigger a stateless reset
		shp := append([]byte{0x40}, connID.Bytes()...)
		shp = append(shp, make([]byte, 100-len(shp))...)
		_, err = client.WriteTo(shp, serverAddr)
		Expect(err).ToNot(HaveOccurred())
		reply := readReply(client)
		Expect(reply).To(HaveLen(99))
		Expect(wire.IsLongHeaderPacket(reply[0])).To(BeFalse())
	})
})
