// Package rtp implements a reliable, connection-oriented, unidirectional
// file-transfer transport over an unreliable datagram substrate: a
// three-way handshake, a two-step teardown, in-order delivery despite
// loss/reorder/duplication, a checksummed wire format, and a
// congestion-controlled cumulative-ACK sliding-window sender.
package rtp

import "net"

// Endpoint binds the connection state machine and the sender/receiver
// engines into the six operations external collaborators (the sender and
// receiver command-line programs) drive (spec.md §4.8).
type Endpoint struct {
	conn packetConn
	c    *Conn
}

// NewEndpoint wraps a bound, connected-less datagram socket. metrics may
// be nil.
func NewEndpoint(conn packetConn, metrics Metrics) *Endpoint {
	return &Endpoint{conn: conn, c: newConn(conn, metrics)}
}

// Connect performs the active-open handshake against peer.
func (e *Endpoint) Connect(peer net.Addr) error {
	return e.c.Connect(peer)
}

// Accept performs the passive-open handshake, discovering its peer from
// the first valid inbound SYN.
func (e *Endpoint) Accept() error {
	return e.c.Accept(e.conn)
}

// SendFile transmits payload in full over an ESTABLISHED connection.
func (e *Endpoint) SendFile(payload []byte) error {
	return e.c.SendFile(payload)
}

// RecvFile receives a file in full over an ESTABLISHED connection,
// returning the reassembled byte stream in order.
func (e *Endpoint) RecvFile() ([]byte, error) {
	return e.c.RecvFile()
}

// Close performs the initiator side of teardown.
func (e *Endpoint) Close() error {
	return e.c.Close()
}

// WaitClose performs the responder side of teardown.
func (e *Endpoint) WaitClose() error {
	return e.c.WaitClose()
}

// ID returns the connection's log/metric identifier.
func (e *Endpoint) ID() string {
	return e.c.id
}
