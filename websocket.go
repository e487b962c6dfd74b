package main

import (
	"net"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to read the next pong message from the peer.
	pongWait = 30 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = chunkSize

	// Time allowed to reach a room's endpoint.
	dialWait = 5 * time.Second
)

// wsReply writes control replies as binary websocket messages.
type wsReply struct {
	ws *websocket.Conn
}

func (w wsReply) writeReply(rep Reply) error {
	b, err := rep.MarshalBinary()
	if err != nil {
		return err
	}
	w.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return w.ws.WriteMessage(websocket.BinaryMessage, b)
}

// serveControl treats every websocket message as one control command.
func serveControl(ws *websocket.Conn, h *hub) {
	incr("websockets.control", 1)
	defer decr("websockets.control", 1)
	defer ws.Close()

	ws.SetReadLimit(commandBufferSize)
	out := wsReply{ws: ws}
	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if !h.dispatchFrom(out, message) {
			return
		}
	}
}

// bridge relays between a websocket client and a room endpoint, so
// browsers can be room members.
type bridge struct {
	ws   *websocket.Conn
	room net.Conn
	log  *logrus.Entry
	quit chan struct{}
}

func dialRoom(addr string) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, dialWait)
}

func (b *bridge) run() {
	incr("websockets.bridge", 1)
	defer decr("websockets.bridge", 1)

	b.quit = make(chan struct{})
	chunks := make(chan []byte, 256)
	go b.roomReader(chunks)
	go b.writer(chunks)
	b.reader()
}

// reader copies websocket messages into the room.
func (b *bridge) reader() {
	defer b.room.Close()
	b.ws.SetReadLimit(maxMessageSize)
	b.ws.SetReadDeadline(time.Now().Add(pongWait))
	b.ws.SetPongHandler(func(string) error {
		b.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := b.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.log.WithError(err).Debug("websocket read failed")
			}
			return
		}
		if len(message) == 0 {
			continue
		}
		b.room.SetWriteDeadline(time.Now().Add(writeWait))
		if _, err := b.room.Write(message); err != nil {
			b.log.WithError(err).Warn("write to room failed")
			return
		}
	}
}

// roomReader forwards chunks from the room until the room side closes.
func (b *bridge) roomReader(chunks chan<- []byte) {
	defer close(chunks)
	buf := make([]byte, chunkSize)
	for {
		n, err := b.room.Read(buf)
		if n > 0 {
			text := make([]byte, n)
			copy(text, buf[:n])
			select {
			case chunks <- text:
			case <-b.quit:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (b *bridge) writer(chunks <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		b.ws.Close()
		close(b.quit)
	}()
	for {
		select {
		case text, ok := <-chunks:
			b.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				b.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "room closed"))
				return
			}
			if err := b.ws.WriteMessage(websocket.BinaryMessage, text); err != nil {
				return
			}
		case <-ticker.C:
			b.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := b.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
