package qdemux

import (
	"sync"
	"time"
)

// An EventLoop runs all dispatcher work on a single goroutine: packet
// processing, alarm callbacks and session events posted from other
// goroutines. It implements AlarmFactory; alarms created from it fire their
// callbacks on the loop.
type EventLoop struct {
	events chan func()

	closeOnce sync.Once
	closing   chan struct{}
	done      chan struct{}
}

var _ AlarmFactory = &EventLoop{}

// NewEventLoop creates an event loop. It doesn't process anything until Run
// is called.
func NewEventLoop() *EventLoop {
	return &EventLoop{
		events:  make(chan func(), 1024),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Run processes posted events until Close is called. It blocks, so it is
// usually run on its own goroutine.
func (l *EventLoop) Run() {
	defer close(l.done)
	for {
		select {
		case f := <-l.events:
			f()
		case <-l.closing:
			// run everything that was posted before the close
			for {
				select {
				case f := <-l.events:
					f()
				default:
					return
				}
			}
		}
	}
}

// Post schedules f to run on the loop. Events posted after Close may be
// dropped.
func (l *EventLoop) Post(f func()) {
	select {
	case l.events <- f:
	case <-l.closing:
	}
}

// Close stops the loop and waits until it has drained.
func (l *EventLoop) Close() {
	l.closeOnce.Do(func() { close(l.closing) })
	<-l.done
}

// NewAlarm creates a one-shot alarm firing on the loop.
func (l *EventLoop) NewAlarm(callback func()) Alarm {
	return &loopAlarm{loop: l, callback: callback}
}

// loopAlarm posts its callback to the event loop via time.AfterFunc.
// A generation counter neutralizes timer fires that raced with an Update or
// Cancel: by the time the posted closure runs on the loop, the alarm may
// have been rescheduled.
type loopAlarm struct {
	loop     *EventLoop
	callback func()

	mx    sync.Mutex
	timer *time.Timer
	gen   uint64
}

func (a *loopAlarm) Update(t time.Time) {
	a.mx.Lock()
	defer a.mx.Unlock()
	a.gen++
	gen := a.gen
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(max(time.Until(t), 0), func() {
		a.loop.Post(func() {
			a.mx.Lock()
			live := a.gen == gen
			a.mx.Unlock()
			if live {
				a.callback()
			}
		})
	})
}

func (a *loopAlarm) Cancel() {
	a.mx.Lock()
	defer a.mx.Unlock()
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
