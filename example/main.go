// Command example runs a dispatcher on a UDP socket and logs what it routes.
// The sessions it creates don't implement a real QUIC handshake; they count
// the packets routed to them and close after an idle period.
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qdemux/qdemux"
	"github.com/qdemux/qdemux/internal/utils"
	"github.com/qdemux/qdemux/logging"
	"github.com/qdemux/qdemux/metrics"
	"github.com/qdemux/qdemux/qlog"
)

const sessionIdleTimeout = 30 * time.Second

// countingSession is a placeholder for a real QUIC connection: it counts the
// packets the dispatcher routes to it.
type countingSession struct {
	connID     qdemux.ConnectionID
	version    qdemux.Version
	events     qdemux.SessionEvents
	idleAlarm  qdemux.Alarm
	logger     utils.Logger
	numPackets int
	closed     bool
}

var _ qdemux.Session = &countingSession{}

func newCountingSession(req qdemux.SessionRequest, loop *qdemux.EventLoop, logger utils.Logger) *countingSession {
	s := &countingSession{
		connID:  req.ConnectionID,
		version: req.Version,
		events:  req.Events,
		logger:  logger,
	}
	s.idleAlarm = loop.NewAlarm(func() { s.Close(nil) })
	s.idleAlarm.Update(time.Now().Add(sessionIdleTimeout))
	logger.Infof("session %s: ALPN %q, SNI %q", s.connID, req.ALPN, req.ClientHello.SNI)
	return s
}

func (s *countingSession) HandlePacket(p qdemux.ReceivedPacket) {
	s.numPackets++
	s.idleAlarm.Update(time.Now().Add(sessionIdleTimeout))
	s.logger.Debugf("session %s: packet %d (%d bytes)", s.connID, s.numPackets, p.Size())
}

func (s *countingSession) ConnectionID() qdemux.ConnectionID { return s.connID }
func (s *countingSession) ActiveConnectionIDs() []qdemux.ConnectionID {
	return []qdemux.ConnectionID{s.connID}
}
func (s *countingSession) Version() qdemux.Version      { return s.version }
func (s *countingSession) HandshakeComplete() bool      { return false }
func (s *countingSession) TerminationPackets() [][]byte { return nil }
func (s *countingSession) SmoothedRTT() time.Duration   { return 0 }
func (s *countingSession) OnCanWrite()                  {}
func (s *countingSession) IsWriteBlocked() bool         { return false }

func (s *countingSession) Close(err error) {
	if s.closed {
		return
	}
	s.closed = true
	s.idleAlarm.Cancel()
	s.logger.Infof("session %s: closed after %d packets", s.connID, s.numPackets)
	s.events.OnClosed(err)
}

type countingSessionFactory struct {
	loop   *qdemux.EventLoop
	logger utils.Logger
}

func (f *countingSessionFactory) CreateSession(req qdemux.SessionRequest) (qdemux.Session, error) {
	return newCountingSession(req, f.loop, f.logger), nil
}

func main() {
	addr := flag.String("addr", "0.0.0.0:4433", "address to listen on")
	metricsAddr := flag.String("metrics", "", "address to expose Prometheus metrics on (e.g. :9090)")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	logger := utils.DefaultLogger
	if *verbose {
		logger.SetLogLevel(utils.LogLevelDebug)
	} else {
		logger.SetLogLevel(utils.LogLevelInfo)
	}

	var tracers []*logging.Tracer
	if qlogTracer := qlog.DefaultTracer(); qlogTracer != nil {
		tracers = append(tracers, qlogTracer)
	}
	if *metricsAddr != "" {
		tracers = append(tracers, metrics.NewTracer())
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				fmt.Fprintf(os.Stderr, "metrics server failed: %s\n", err)
			}
		}()
	}

	udpAddr, err := net.ResolveUDPAddr("udp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid address %s: %s\n", *addr, err)
		os.Exit(1)
	}
	raw, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listening on %s failed: %s\n", *addr, err)
		os.Exit(1)
	}
	conn, err := qdemux.NewUDPConn(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up the socket failed: %s\n", err)
		os.Exit(1)
	}

	loop := qdemux.NewEventLoop()
	dispatcher, err := qdemux.NewDispatcher(
		&qdemux.Config{
			ALPNs:  []string{"h3"},
			Tracer: logging.NewMultiplexedTracer(tracers...),
		},
		&countingSessionFactory{loop: loop, logger: logger},
		conn,
		loop,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating the dispatcher failed: %s\n", err)
		os.Exit(1)
	}
	go loop.Run()

	go func() {
		for {
			p, err := conn.ReadPacket()
			if err != nil {
				return
			}
			loop.Post(func() {
				dispatcher.HandlePacket(p)
				dispatcher.ProcessBufferedChlos(16)
			})
		}
	}()

	logger.Infof("listening on %s", conn.LocalAddr())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	done := make(chan struct{})
	loop.Post(func() {
		dispatcher.Shutdown()
		close(done)
	})
	<-done
	loop.Close()
	conn.Close()
}
