package main

import (
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

func startTestControl(t *testing.T) (*hub, string) {
	t.Helper()
	h := newTestHub(t)
	ctl, err := listenControl("127.0.0.1:0", h, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	go ctl.serve()
	t.Cleanup(func() { ctl.close() })
	return h, ctl.addr().String()
}

func roundTrip(t *testing.T, conn net.Conn, text string) Reply {
	t.Helper()
	if _, err := conn.Write([]byte(text)); err != nil {
		t.Fatal("write error:", err)
	}
	var rep Reply
	if err := rep.UnmarshalBinary(readExactly(t, conn, replySize)); err != nil {
		t.Fatal(err)
	}
	return rep
}

func TestControlSession(t *testing.T) {
	_, addr := startTestControl(t)
	conn := dial(t, addr)

	if rep := roundTrip(t, conn, "LIST"); rep.Status != StatusSuccess || rep.RoomList != "empty" {
		t.Fatal("Expectation: success empty, Received:", rep)
	}
	if rep := roundTrip(t, conn, "CREATE chat\n"); rep.Status != StatusSuccess {
		t.Fatal("Expectation: success, Received:", rep.Status)
	}
	if rep := roundTrip(t, conn, "CREATE chat"); rep.Status != StatusAlreadyExists {
		t.Fatal("Expectation: already_exists, Received:", rep.Status)
	}
	if rep := roundTrip(t, conn, "FOO bar"); rep.Status != StatusInvalid {
		t.Fatal("Expectation: invalid, Received:", rep.Status)
	}
	if rep := roundTrip(t, conn, "DELETE nope"); rep.Status != StatusNotExists {
		t.Fatal("Expectation: not_exists, Received:", rep.Status)
	}
	if rep := roundTrip(t, conn, "LIST"); rep.RoomList != "chat" {
		t.Fatal("Expectation: chat, Received:", rep.RoomList)
	}
}

// Clients join through the control plane and then talk to each other on
// the room endpoint.
func TestControlJoinAndChat(t *testing.T) {
	h, addr := startTestControl(t)
	ctl := dial(t, addr)
	roundTrip(t, ctl, "CREATE r")

	members := make([]net.Conn, 3)
	for i := range members {
		rep := roundTrip(t, ctl, "JOIN r")
		if rep.Status != StatusSuccess || rep.MemberCount != i {
			t.Fatal("Expectation: success with", i, "prior joins, Received:", rep.Status, rep.MemberCount)
		}
		members[i] = dial(t, net.JoinHostPort("127.0.0.1", strconv.Itoa(rep.Port)))
	}

	waitFor(t, "members to subscribe", func() bool {
		rooms, _ := h.rooms()
		return len(rooms) == 1 && rooms[0].Members == 3
	})

	members[1].Write([]byte("hey all"))
	for _, i := range []int{0, 2} {
		if got := string(readExactly(t, members[i], 7)); got != "hey all" {
			t.Fatal("Expectation: hey all, Received:", got)
		}
	}
	expectSilence(t, members[1])
}

func TestControlLongNames(t *testing.T) {
	_, addr := startTestControl(t)
	conn := dial(t, addr)

	longest := strings.Repeat("n", nameLenMax)
	if rep := roundTrip(t, conn, "CREATE "+longest); rep.Status != StatusSuccess {
		t.Fatal("Expectation: success, Received:", rep.Status)
	}
	if rep := roundTrip(t, conn, "JOIN "+longest); rep.Status != StatusSuccess {
		t.Fatal("Expectation: success, Received:", rep.Status)
	}
	if rep := roundTrip(t, conn, "LIST everything"); rep.Status != StatusSuccess || rep.RoomList != longest {
		t.Fatal("Expectation: success with the long name, Received:", rep.Status, rep.RoomList)
	}
	if rep := roundTrip(t, conn, "DELETE "+longest); rep.Status != StatusSuccess {
		t.Fatal("Expectation: success, Received:", rep.Status)
	}
}

func TestControlManyConnections(t *testing.T) {
	_, addr := startTestControl(t)
	a := dial(t, addr)
	b := dial(t, addr)

	roundTrip(t, a, "CREATE one")
	roundTrip(t, b, "CREATE two")
	if rep := roundTrip(t, a, "LIST"); rep.RoomList != "one,two" {
		t.Fatal("Expectation: one,two, Received:", rep.RoomList)
	}

	// a closed control connection does not disturb the others
	a.Close()
	if rep := roundTrip(t, b, "DELETE one"); rep.Status != StatusSuccess {
		t.Fatal("Expectation: success, Received:", rep.Status)
	}
	if rep := roundTrip(t, b, "LIST"); rep.RoomList != "two" {
		t.Fatal("Expectation: two, Received:", rep.RoomList)
	}
}

func TestControlClose(t *testing.T) {
	h := newTestHub(t)
	ctl, err := listenControl("127.0.0.1:0", h, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	served := make(chan error, 1)
	go func() { served <- ctl.serve() }()
	conn := dial(t, ctl.addr().String())
	roundTrip(t, conn, "LIST")

	ctl.close()
	select {
	case err := <-served:
		if err != nil {
			t.Fatal("Expectation: nil, Received:", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expectation: serve returns after close")
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Read(make([]byte, 1)); err == nil {
		t.Fatal("Expectation: control connection closed")
	}
}
