// Command chatrelay is a directory-and-relay service for ephemeral chat rooms.
//
//     chatrelay -control=:8080 -room-base-port=1876 -addr=127.0.0.1:8081
//
// Clients open a TCP connection to the control endpoint and send one
// command per message:
//     CREATE <name>
//     DELETE <name>
//     JOIN <name>
//     LIST
//
// Every command is answered with one fixed-size binary reply record
// (see Reply). A successful JOIN carries the port of the room's own
// endpoint; the client then connects there directly. Every chunk a member
// sends to a room is relayed verbatim to every other member of that room,
// never back to the sender.
//
// Everything is as ephemeral as can be. Rooms live until DELETE or service
// shutdown. Messages are relayed and then forgotten.
//
// Each room runs in its own goroutines with its own listener and member
// set. The control plane handles one command at a time, so the room
// directory needs no lock.
//
// An admin HTTP server exposes the room list, metrics and websocket
// gateways for both the control plane and individual rooms:
//     curl localhost:8081/rooms
//     ws://localhost:8081/control
//     ws://localhost:8081/rooms/<name>
package main

const (
	// Largest chunk read from a control connection. Matches the client's
	// command buffer.
	commandBufferSize = 256

	// Largest chunk a member read relays in one write.
	chunkSize = 1024

	// Room names are measured in bytes. The longest CREATE must fit in
	// one control read.
	nameLenMin = 1
	nameLenMax = commandBufferSize - len("CREATE ")
)
