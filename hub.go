package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Hub commands.
const (
	DISPATCH = iota
	SNAPSHOT
	SHUTDOWN
)

type command struct {
	cmd  int
	text []byte
	out  replyWriter
	info chan []roomInfo
	done chan struct{}
}

type queue chan command

// replyWriter is where the hub sends the reply to a dispatched command.
type replyWriter interface {
	writeReply(Reply) error
}

type replyFunc func(Reply) error

func (f replyFunc) writeReply(rep Reply) error {
	return f(rep)
}

// hub is the control plane. Its run loop is the only goroutine that
// touches the directory or the port counter, and it handles one command
// to completion before taking the next.
type hub struct {
	queue    queue
	dir      *directory
	host     string
	nextPort int
	ticker   *mTicker
	log      *logrus.Entry
	done     chan struct{}
}

func newHub(cfg *config, log *logrus.Logger) *hub {
	return &hub{
		queue:    make(queue, 16),
		dir:      newDirectory(),
		host:     cfg.RoomHost,
		nextPort: cfg.RoomBasePort,
		ticker:   newMTicker(cfg.StatsTick),
		log:      log.WithField("component", "hub"),
		done:     make(chan struct{}),
	}
}

func (h *hub) run() {
	defer close(h.done)
	for cmd := range h.queue {
		switch cmd.cmd {
		case DISPATCH:
			rep := h.dispatch(cmd.text)
			if err := cmd.out.writeReply(rep); err != nil {
				h.log.WithError(err).Debug("reply not delivered")
			}
			close(cmd.done)
		case SNAPSHOT:
			cmd.info <- h.dir.snapshot()
		case SHUTDOWN:
			h.stopAll()
			close(cmd.done)
			return
		default:
			panic(fmt.Sprintf("unexpected hub cmd: %v\n", cmd))
		}
	}
}

func (h *hub) submit(cmd command) bool {
	select {
	case h.queue <- cmd:
		return true
	case <-h.done:
		return false
	}
}

// dispatchFrom runs one control message through the hub and waits until
// its reply has been handed to out. It reports false if the hub is gone.
func (h *hub) dispatchFrom(out replyWriter, text []byte) bool {
	done := make(chan struct{})
	if !h.submit(command{cmd: DISPATCH, text: text, out: out, done: done}) {
		return false
	}
	select {
	case <-done:
		return true
	case <-h.done:
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}

// request dispatches text and returns the reply instead of writing it to
// a connection.
func (h *hub) request(text []byte) (Reply, bool) {
	var rep Reply
	ok := h.dispatchFrom(replyFunc(func(r Reply) error {
		rep = r
		return nil
	}), text)
	return rep, ok
}

// rooms returns the directory contents in creation order.
func (h *hub) rooms() ([]roomInfo, bool) {
	info := make(chan []roomInfo, 1)
	if !h.submit(command{cmd: SNAPSHOT, info: info}) {
		return nil, false
	}
	select {
	case rooms := <-info:
		return rooms, true
	case <-h.done:
		return nil, false
	}
}

// shutdown stops every room and then the hub itself.
func (h *hub) shutdown() {
	done := make(chan struct{})
	if !h.submit(command{cmd: SHUTDOWN, done: done}) {
		return
	}
	select {
	case <-done:
	case <-h.done:
	}
}

func (h *hub) dispatch(text []byte) Reply {
	req, err := parseRequest(text)
	if err != nil {
		h.log.WithError(err).Info("invalid command")
		rep := replyFor(err)
		observeCommand(0, rep.Status)
		return rep
	}

	var rep Reply
	switch req.op {
	case opCreate:
		rep = h.create(req.name)
	case opDelete:
		rep = h.delete(req.name)
	case opJoin:
		rep = h.join(req.name)
	case opList:
		rep = Reply{Status: StatusSuccess, RoomList: h.dir.list()}
	default:
		rep = Reply{Status: StatusUnknown}
	}
	observeCommand(req.op, rep.Status)
	return rep
}

func (h *hub) create(name string) Reply {
	if h.dir.exists(name) {
		return Reply{Status: StatusAlreadyExists}
	}
	port := h.allocPort()
	r, err := startRoom(name, net.JoinHostPort(h.host, strconv.Itoa(port)), h.ticker, h.log.WithField("component", "room"))
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"room": name, "port": port}).Error("cannot start room")
		return Reply{Status: StatusUnknown}
	}
	if err := h.dir.insert(name, port, r); err != nil {
		r.stop()
		return replyFor(err)
	}
	h.log.WithFields(logrus.Fields{"room": name, "port": port}).Info("new room")
	return Reply{Status: StatusSuccess}
}

func (h *hub) delete(name string) Reply {
	w, err := h.dir.remove(name)
	if err != nil {
		return replyFor(err)
	}
	w.stop()
	h.log.WithField("room", name).Info("deleted room")
	return Reply{Status: StatusSuccess}
}

func (h *hub) join(name string) Reply {
	port, prior, err := h.dir.lookupForJoin(name)
	if err != nil {
		return replyFor(err)
	}
	h.log.WithFields(logrus.Fields{"room": name, "joins": prior + 1}).Info("client joined")
	return Reply{Status: StatusSuccess, Port: port, MemberCount: prior}
}

// allocPort hands out the next room port. Ports are never handed out
// twice, even when a bind fails.
func (h *hub) allocPort() int {
	p := h.nextPort
	h.nextPort++
	return p
}

func (h *hub) stopAll() {
	workers := h.dir.drain()
	for _, w := range workers {
		w.stop()
	}
	h.ticker.stop()
	h.log.WithField("rooms", len(workers)).Info("all rooms stopped")
}

func replyFor(err error) Reply {
	switch {
	case err == nil:
		return Reply{Status: StatusSuccess}
	case errors.Is(err, errAlreadyExists):
		return Reply{Status: StatusAlreadyExists}
	case errors.Is(err, errNotFound):
		return Reply{Status: StatusNotExists}
	case errors.Is(err, errInvalidCommand), errors.Is(err, errNameInvalid):
		return Reply{Status: StatusInvalid}
	}
	return Reply{Status: StatusUnknown}
}
