package main

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Time allowed to write a chunk to a member.
const writeWait = 10 * time.Second

// member is one client connection attached to a room.
type member struct {
	id   string
	conn net.Conn
	send chan []byte
	r    *room

	gone    chan struct{} // closed when the reader exits
	flushed chan struct{} // closed when the writer exits
}

func newMember(conn net.Conn, r *room) *member {
	return &member{
		id:      uuid.Must(uuid.NewV4()).String(),
		conn:    conn,
		send:    make(chan []byte, 256),
		r:       r,
		gone:    make(chan struct{}),
		flushed: make(chan struct{}),
	}
}

func (m *member) run() {
	go m.watch()
	go m.writer()
	m.reader()
}

// watch closes the connection as soon as the room stops, whether or not
// the room got to see this member.
func (m *member) watch() {
	select {
	case <-m.r.quit:
		m.conn.Close()
	case <-m.gone:
	}
}

func (m *member) reader() {
	buf := make([]byte, chunkSize)
	for {
		n, err := m.conn.Read(buf)
		if n > 0 {
			text := make([]byte, n)
			copy(text, buf[:n])
			incr("member.recv", 1)
			if !m.r.post(event{kind: PUBLISH, m: m, text: text}) {
				break
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				m.r.log.WithError(err).WithField("member", m.id).Debug("member read failed")
			}
			break
		}
	}
	close(m.gone)
	m.r.post(event{kind: UNSUBSCRIBE, m: m})
	m.conn.Close()
}

// writer relays queued chunks until the member leaves or a write fails.
func (m *member) writer() {
	defer close(m.flushed)
	defer m.conn.Close()
	for {
		select {
		case text, ok := <-m.send:
			if !ok {
				return
			}
			m.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if _, err := m.conn.Write(text); err != nil {
				m.r.log.WithError(err).WithField("member", m.id).Warn("relay to member failed")
				return
			}
			chunkRelayed()
		case <-m.gone:
			return
		case <-m.r.quit:
			return
		}
	}
}
