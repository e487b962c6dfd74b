package main

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/sirupsen/logrus"
)

// controlServer accepts control connections and feeds their commands to
// the hub.
type controlServer struct {
	ln  net.Listener
	h   *hub
	log *logrus.Entry

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func listenControl(addr string, h *hub, log *logrus.Logger) (*controlServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &controlServer{
		ln:    ln,
		h:     h,
		log:   log.WithField("component", "control"),
		conns: make(map[net.Conn]struct{}),
	}, nil
}

func (s *controlServer) addr() net.Addr {
	return s.ln.Addr()
}

// serve accepts until the listener is closed.
func (s *controlServer) serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.track(conn, true)
		go s.handle(conn)
	}
}

// close stops accepting and drops every open control connection.
func (s *controlServer) close() error {
	err := s.ln.Close()
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	return err
}

func (s *controlServer) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

type controlConn struct {
	conn net.Conn
}

func (c controlConn) writeReply(rep Reply) error {
	b, err := rep.MarshalBinary()
	if err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_, err = c.conn.Write(b)
	return err
}

// handle reads one chunk at a time and waits for its reply to be written
// before reading the next one.
func (s *controlServer) handle(conn net.Conn) {
	log := s.log.WithFields(logrus.Fields{
		"conn":   uuid.Must(uuid.NewV4()).String(),
		"remote": conn.RemoteAddr().String(),
	})
	incr("control.conns", 1)
	defer func() {
		decr("control.conns", 1)
		s.track(conn, false)
		conn.Close()
		log.Debug("control connection closed")
	}()
	log.Debug("control connection opened")

	out := controlConn{conn: conn}
	buf := make([]byte, commandBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			text := make([]byte, n)
			copy(text, buf[:n])
			if !s.h.dispatchFrom(out, text) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.WithError(err).Debug("control read failed")
			}
			return
		}
	}
}
