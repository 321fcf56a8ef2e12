// Package server provides the HTTP bootstrap and the WebSocket transport
// layer. It upgrades connections, registers them with the relay core, pumps
// inbound frames into the protocol codec, and owns the per-connection writer
// goroutine. The core never touches sockets; this package is the only place
// that does.
package server
