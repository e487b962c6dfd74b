package main

import (
	"errors"
	"strings"
)

var (
	errAlreadyExists = errors.New("room already exists")
	errNotFound      = errors.New("room not found")
)

// worker is the handle the directory keeps for a room's broadcast worker.
type worker interface {
	stop()
	active() int
}

type entry struct {
	name    string
	port    int
	worker  worker
	members int // joins ever, never decremented
}

// roomInfo is a point in time view of one directory entry.
type roomInfo struct {
	Name    string `json:"name"`
	Port    int    `json:"port"`
	Joins   int    `json:"joins"`
	Members int    `json:"members"`
}

// directory maps room names to rooms in creation order. It is owned by the
// hub goroutine and is not safe for concurrent use.
type directory struct {
	rooms []*entry
}

func newDirectory() *directory {
	return &directory{}
}

func (d *directory) len() int {
	return len(d.rooms)
}

func (d *directory) index(name string) int {
	for i := range d.rooms {
		if d.rooms[i].name == name {
			return i
		}
	}
	return -1
}

func (d *directory) exists(name string) bool {
	return d.index(name) >= 0
}

func (d *directory) insert(name string, port int, w worker) error {
	if d.exists(name) {
		return errAlreadyExists
	}
	d.rooms = append(d.rooms, &entry{name: name, port: port, worker: w})
	return nil
}

// remove drops the named room and hands back its worker so the caller can
// stop it.
func (d *directory) remove(name string) (worker, error) {
	i := d.index(name)
	if i < 0 {
		return nil, errNotFound
	}
	w := d.rooms[i].worker
	copy(d.rooms[i:], d.rooms[i+1:])
	d.rooms[len(d.rooms)-1] = nil
	d.rooms = d.rooms[:len(d.rooms)-1]
	return w, nil
}

// lookupForJoin counts one more join and returns the room's port along
// with the count before this join.
func (d *directory) lookupForJoin(name string) (port, prior int, err error) {
	i := d.index(name)
	if i < 0 {
		return 0, 0, errNotFound
	}
	e := d.rooms[i]
	prior = e.members
	e.members++
	return e.port, prior, nil
}

func (d *directory) snapshotNames() []string {
	names := make([]string, 0, len(d.rooms))
	for _, e := range d.rooms {
		names = append(names, e.name)
	}
	return names
}

func (d *directory) snapshot() []roomInfo {
	infos := make([]roomInfo, 0, len(d.rooms))
	for _, e := range d.rooms {
		info := roomInfo{Name: e.name, Port: e.port, Joins: e.members}
		if e.worker != nil {
			info.Members = e.worker.active()
		}
		infos = append(infos, info)
	}
	return infos
}

// list renders the LIST reply body.
func (d *directory) list() string {
	if len(d.rooms) == 0 {
		return emptyRoomList
	}
	return strings.Join(d.snapshotNames(), ",")
}

// drain empties the directory and returns every worker it held.
func (d *directory) drain() []worker {
	workers := make([]worker, 0, len(d.rooms))
	for _, e := range d.rooms {
		if e.worker != nil {
			workers = append(workers, e.worker)
		}
	}
	d.rooms = nil
	return workers
}
