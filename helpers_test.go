package main

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// freePort returns a port that was free a moment ago. Rooms take ports
// upwards from it.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func testConfig(t *testing.T) *config {
	cfg := newConfig()
	cfg.ControlAddr = "127.0.0.1:0"
	cfg.RoomHost = "127.0.0.1"
	cfg.RoomBasePort = freePort(t) + 1
	cfg.StatsTick = 50 * time.Millisecond
	return cfg
}

func newTestHub(t *testing.T) *hub {
	t.Helper()
	h := newHub(testConfig(t), discardLogger())
	go h.run()
	t.Cleanup(h.shutdown)
	return h
}

func mustRequest(t *testing.T, h *hub, text string) Reply {
	t.Helper()
	rep, ok := h.request([]byte(text))
	if !ok {
		t.Fatal("Expectation: hub running, Received: hub stopped")
	}
	return rep
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 3*time.Second)
	if err != nil {
		t.Fatal("dial error:", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitFor polls cond until it holds or a second has passed.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readExactly(t *testing.T, conn net.Conn, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatal("read error:", err)
	}
	conn.SetReadDeadline(time.Time{})
	return buf
}

// expectSilence fails if conn receives anything within a short window.
func expectSilence(t *testing.T, conn net.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	defer conn.SetReadDeadline(time.Time{})
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if n > 0 {
		t.Fatal("Expectation: nothing received, Received:", string(buf[:n]))
	}
	if ne, ok := err.(net.Error); !ok || !ne.Timeout() {
		t.Fatal("Expectation: read timeout, Received:", err)
	}
}
