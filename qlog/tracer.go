// Package qlog exports dispatcher events in the qlog format, as a JSON text
// sequence (one record per event, separated by the RS character).
package qlog

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/qdemux/qdemux/logging"
)

// NewTracer creates a tracer writing a qlog event stream to w.
// Closing the tracer (via logging.Tracer.Close) flushes and closes w.
func NewTracer(w io.WriteCloser) *logging.Tracer {
	tr := &trace{
		VantagePoint: vantagePoint{Type: "server"},
		CommonFields: commonFields{ReferenceTime: time.Now()},
	}
	wr := newWriter(w, tr)
	go wr.Run()
	return &logging.Tracer{
		ConnectionStarted: func(local, remote net.Addr, v logging.Version, destConnID logging.ConnectionID) {
			wr.RecordEvent(time.Now(), eventConnectionStarted{
				SrcAddr:          remote,
				DestAddr:         local,
				Version:          v,
				DestConnectionID: destConnID,
			})
		},
		ConnectionRejected: func(remote net.Addr, err error) {
			wr.RecordEvent(time.Now(), eventConnectionRejected{RemoteAddr: remote, Err: err})
		},
		ConnectionClosed: func(connID logging.ConnectionID, err error) {
			wr.RecordEvent(time.Now(), eventConnectionClosed{ConnectionID: connID, Err: err})
		},
		ConnectionAddedToTimeWait: func(connIDs []logging.ConnectionID) {
			wr.RecordEvent(time.Now(), eventTimeWaitCreated{ConnectionIDs: connIDs})
		},
		DroppedPacket: func(_ net.Addr, pt logging.PacketType, size logging.ByteCount, reason logging.PacketDropReason) {
			wr.RecordEvent(time.Now(), eventPacketDropped{
				PacketType: pt,
				PacketSize: size,
				Trigger:    reason,
			})
		},
		BufferedPacket: func(_ net.Addr, pt logging.PacketType, size logging.ByteCount) {
			wr.RecordEvent(time.Now(), eventPacketBuffered{PacketType: pt, PacketSize: size})
		},
		SentVersionNegotiationPacket: func(_ net.Addr, dest, src logging.ArbitraryLenConnectionID, vers []logging.Version) {
			wr.RecordEvent(time.Now(), eventVersionNegotiationSent{
				DestConnectionID:  dest,
				SrcConnectionID:   src,
				SupportedVersions: versions(vers),
			})
		},
		SentStatelessReset: func(_ net.Addr, size logging.ByteCount) {
			wr.RecordEvent(time.Now(), eventStatelessResetSent{PacketSize: size})
		},
		Debug: func(name, msg string) {
			wr.RecordEvent(time.Now(), eventGeneric{name: name, msg: msg})
		},
		Close: func() { wr.Close() },
	}
}

// DefaultTracer creates a tracer writing to a file in the directory named by
// the QLOGDIR environment variable. It returns nil if QLOGDIR is not set.
func DefaultTracer() *logging.Tracer {
	qlogDir := os.Getenv("QLOGDIR")
	if qlogDir == "" {
		return nil
	}
	if err := os.MkdirAll(qlogDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create qlog dir %s: %s\n", qlogDir, err)
		return nil
	}
	path := filepath.Join(qlogDir, fmt.Sprintf("qdemux_%s.sqlog", time.Now().Format("2006-01-02T15-04-05")))
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create qlog file %s: %s\n", path, err)
		return nil
	}
	return NewTracer(newBufferedWriteCloser(f))
}

type bufferedWriteCloser struct {
	*bufio.Writer
	io.Closer
}

// newBufferedWriteCloser buffers writes and flushes on Close.
func newBufferedWriteCloser(f *os.File) io.WriteCloser {
	return &bufferedWriteCloser{Writer: bufio.NewWriter(f), Closer: f}
}

func (w *bufferedWriteCloser) Close() error {
	if err := w.Writer.Flush(); err != nil {
		return err
	}
	return w.Closer.Close()
}
