package qlog

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/francoispqt/gojay"
)

const eventChanSize = 50

// NDJSON qlog, one JSON record per line, each preceded by a record separator.
const recordSeparator = 0x1e

type writer struct {
	w io.WriteCloser

	referenceTime time.Time
	tr            *trace

	events     chan event
	encodeErr  error
	runStopped chan struct{}
}

func newWriter(w io.WriteCloser, tr *trace) *writer {
	return &writer{
		w:             w,
		tr:            tr,
		referenceTime: tr.CommonFields.ReferenceTime,
		runStopped:    make(chan struct{}),
		events:        make(chan event, eventChanSize),
	}
}

func (w *writer) RecordEvent(eventTime time.Time, details eventDetails) {
	w.events <- event{
		RelativeTime: eventTime.Sub(w.referenceTime),
		eventDetails: details,
	}
}

// writeTraceHeader encodes the trace record into a buffer first, so an
// encoding bug surfaces as a panic instead of a truncated qlog.
func (w *writer) writeTraceHeader() {
	buf := &bytes.Buffer{}
	buf.WriteByte(recordSeparator)
	if err := gojay.NewEncoder(buf).Encode(&topLevel{trace: *w.tr}); err != nil {
		panic(fmt.Sprintf("qlog encoding into a bytes.Buffer failed: %s", err))
	}
	if _, err := w.w.Write(buf.Bytes()); err != nil {
		w.encodeErr = err
	}
}

func (w *writer) Run() {
	defer close(w.runStopped)
	w.writeTraceHeader()
	enc := gojay.NewEncoder(w.w)
	for ev := range w.events {
		// if encoding failed, just continue draining the event channel
		if w.encodeErr != nil {
			continue
		}
		if _, err := w.w.Write([]byte{recordSeparator}); err != nil {
			w.encodeErr = err
			continue
		}
		if err := enc.Encode(ev); err != nil {
			w.encodeErr = err
		}
	}
}

func (w *writer) Close() {
	if err := w.close(); err != nil {
		log.Printf("exporting qlog failed: %s\n", err)
	}
}

func (w *writer) close() error {
	close(w.events)
	<-w.runStopped
	if w.encodeErr != nil {
		return w.encodeErr
	}
	return w.w.Close()
}
