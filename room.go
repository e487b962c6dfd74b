package main

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Backoff bounds for a failing Accept.
const (
	acceptDelayMin = 5 * time.Millisecond
	acceptDelayMax = time.Second
)

// Room events, handled one at a time by room.run.
const (
	SUBSCRIBE = iota
	UNSUBSCRIBE
	PUBLISH
)

type event struct {
	kind int
	m    *member
	text []byte
}

// room is one room's broadcast worker. It owns the room's listener and
// member set and shares nothing with the hub or other rooms; the hub only
// ever calls stop and active.
type room struct {
	name     string
	listener net.Listener
	queue    chan event
	members  map[*member]struct{}
	count    atomic.Int32
	ticker   *mTicker
	log      *logrus.Entry

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newRoom(name string, ln net.Listener, t *mTicker, log *logrus.Entry) *room {
	return &room{
		name:     name,
		listener: ln,
		queue:    make(chan event, 16),
		members:  make(map[*member]struct{}),
		ticker:   t,
		log:      log.WithField("room", name),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// startRoom binds addr and launches the room's worker. When it returns
// without error the endpoint is already accepting connections.
func startRoom(name, addr string, t *mTicker, log *logrus.Entry) (*room, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	r := newRoom(name, ln, t, log)
	go r.run()
	go r.accept()
	return r, nil
}

// active reports the number of connected members.
func (r *room) active() int {
	return int(r.count.Load())
}

// stop terminates the worker: the listener and every member connection
// are closed at once. It returns once the worker has exited.
func (r *room) stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
		r.listener.Close()
	})
	<-r.done
}

// post hands an event to the worker. It reports false once the room is
// stopping.
func (r *room) post(ev event) bool {
	select {
	case r.queue <- ev:
		return true
	case <-r.quit:
		return false
	}
}

// accept runs until the listener is closed. Other accept errors are
// retried with a growing delay.
func (r *room) accept() {
	var delay time.Duration
	for {
		conn, err := r.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if delay == 0 {
				delay = acceptDelayMin
			} else {
				delay *= 2
			}
			if delay > acceptDelayMax {
				delay = acceptDelayMax
			}
			mark("room.accept.errors", 1)
			r.log.WithError(err).WithField("retry", delay).Error("accept failed")
			select {
			case <-time.After(delay):
				continue
			case <-r.quit:
				return
			}
		}
		delay = 0
		m := newMember(conn, r)
		if !r.post(event{kind: SUBSCRIBE, m: m}) {
			conn.Close()
			return
		}
		go m.run()
	}
}

func (r *room) run() {
	roomStarted()
	defer r.teardown()

	var tick <-chan time.Time
	if r.ticker != nil {
		sub := r.ticker.subscribe()
		defer r.ticker.unsubscribe(sub)
		tick = sub.tick
	}

	for {
		select {
		case <-r.quit:
			return
		case ev := <-r.queue:
			switch ev.kind {
			case SUBSCRIBE:
				r.subscribe(ev.m)
			case UNSUBSCRIBE:
				r.unsubscribe(ev.m)
			case PUBLISH:
				r.publish(ev.m, ev.text)
			}
		case _, ok := <-tick:
			if !ok {
				tick = nil
				continue
			}
			roomGauge(r.name, len(r.members))
		}
	}
}

func (r *room) teardown() {
	r.listener.Close()
	for m := range r.members {
		r.unsubscribe(m)
		m.conn.Close()
	}
	dropRoomGauge(r.name)
	roomStopped()
	r.log.Info("room stopped")
	close(r.done)
}

func (r *room) subscribe(m *member) {
	r.members[m] = struct{}{}
	r.count.Add(1)
	memberJoined()
	r.log.WithFields(logrus.Fields{"member": m.id, "remote": m.conn.RemoteAddr().String()}).Debug("member connected")
}

func (r *room) unsubscribe(m *member) {
	if _, ok := r.members[m]; ok {
		close(m.send)
		delete(r.members, m)
		r.count.Add(-1)
		memberLeft()
		r.log.WithField("member", m.id).Debug("member left")
	}
}

// publish queues text for every member except the sender. A full send
// buffer blocks the room until that member's writer catches up; a member
// whose writer has exited is dropped.
func (r *room) publish(sender *member, text []byte) {
	if len(text) == 0 {
		return
	}
	for m := range r.members {
		if m == sender {
			continue
		}
		select {
		case m.send <- text:
		case <-m.flushed:
			r.unsubscribe(m)
		case <-r.quit:
			return
		}
	}
}
