package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Status is the outcome of one control command.
type Status int32

const (
	StatusSuccess Status = iota
	StatusAlreadyExists
	StatusNotExists
	StatusInvalid
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusAlreadyExists:
		return "already_exists"
	case StatusNotExists:
		return "not_exists"
	case StatusInvalid:
		return "invalid"
	case StatusUnknown:
		return "unknown"
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

const (
	roomListSize = 256
	replySize    = 12 + roomListSize

	emptyRoomList = "empty"
)

// Reply is the record sent back for every control command. Port and
// MemberCount are only meaningful for JOIN, RoomList only for LIST.
type Reply struct {
	Status      Status
	Port        int
	MemberCount int
	RoomList    string
}

// MarshalBinary encodes the reply as a fixed 268 byte little-endian
// record: status, port and member count as int32, then a NUL-padded
// room list buffer.
func (r Reply) MarshalBinary() ([]byte, error) {
	buf := make([]byte, replySize)
	binary.LittleEndian.PutUint32(buf[0:], uint32(r.Status))
	binary.LittleEndian.PutUint32(buf[4:], uint32(int32(r.Port)))
	binary.LittleEndian.PutUint32(buf[8:], uint32(int32(r.MemberCount)))
	copy(buf[12:], truncateList(r.RoomList, roomListSize-1))
	return buf, nil
}

func (r *Reply) UnmarshalBinary(data []byte) error {
	if len(data) != replySize {
		return fmt.Errorf("reply: want %d bytes, got %d", replySize, len(data))
	}
	r.Status = Status(int32(binary.LittleEndian.Uint32(data[0:])))
	r.Port = int(int32(binary.LittleEndian.Uint32(data[4:])))
	r.MemberCount = int(int32(binary.LittleEndian.Uint32(data[8:])))
	list := data[12:]
	if i := bytes.IndexByte(list, 0); i >= 0 {
		list = list[:i]
	}
	r.RoomList = string(list)
	return nil
}

// truncateList cuts a comma separated list to at most max bytes, dropping
// names that would not fit whole.
func truncateList(list string, max int) string {
	if len(list) <= max {
		return list
	}
	list = list[:max+1]
	if i := strings.LastIndexByte(list, ','); i >= 0 {
		return list[:i]
	}
	return list[:max]
}
