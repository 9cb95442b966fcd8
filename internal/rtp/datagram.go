package rtp

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrShortWrite is returned when a send to the underlying PacketConn wrote
// fewer bytes than the serialized datagram (spec.md ERROR HANDLING: "any
// sendto error or short write -> surfaced upward as a hard failure").
var ErrShortWrite = errors.New("rtp: short write to datagram socket")

// packetConn is the subset of net.PacketConn the datagram layer needs.
// Satisfied by *net.UDPConn and by internal/simnet's test doubles.
type packetConn interface {
	ReadFrom(p []byte) (n int, addr net.Addr, err error)
	WriteTo(p []byte, addr net.Addr) (n int, err error)
	SetReadDeadline(t time.Time) error
}

// datagramIO owns the single bound socket and the connection's peer
// binding, filtering every inbound read through Decode and the peer match
// (spec.md Datagram I/O).
type datagramIO struct {
	conn packetConn
	peer net.Addr

	seqBase     uint32
	baseSet     bool
	finObserved bool
	finSeq      uint64

	lastValidRxTime time.Time

	recvBuf [HeaderSize + PayloadMax]byte
}

func newDatagramIO(conn packetConn) *datagramIO {
	return &datagramIO{conn: conn, lastValidRxTime: time.Now()}
}

// bindPeer fixes the connection's peer address. Once bound, inbound
// datagrams from any other source are discarded.
func (d *datagramIO) bindPeer(addr net.Addr) {
	d.peer = addr
}

// unbindPeer clears the peer binding, done on close so the connection
// state cannot be reused without a full teardown (spec.md Endpoint facade).
func (d *datagramIO) unbindPeer() {
	d.peer = nil
}

// setSeqBase records the anchor used to lift 30-bit sequences once the
// handshake has fixed it.
func (d *datagramIO) setSeqBase(base uint32) {
	d.seqBase = base
	d.baseSet = true
}

func (d *datagramIO) lift(wire uint32) uint64 {
	if !d.baseSet {
		return uint64(wire)
	}
	return lift64(wire, d.seqBase)
}

// send transmits a pre-encoded datagram to the bound peer. A short write
// is a hard failure, matching spec.md's "partial send is treated as a
// hard failure and reported upward".
func (d *datagramIO) send(data []byte) error {
	if d.peer == nil {
		return fmt.Errorf("rtp: send with no bound peer")
	}
	n, err := d.conn.WriteTo(data, d.peer)
	if err != nil {
		return fmt.Errorf("rtp: sendto failed: %w", err)
	}
	if n != len(data) {
		return ErrShortWrite
	}
	return nil
}

// tryReceive performs one non-blocking-ish read bounded by deadline,
// returning the first valid (checksum-correct, size-correct, on-peer)
// datagram. It returns ok=false on timeout or a dropped/corrupt/off-peer
// datagram; callers loop against their own outer deadline as needed.
func (d *datagramIO) tryReceive(deadline time.Time) (Datagram, net.Addr, bool) {
	if err := d.conn.SetReadDeadline(deadline); err != nil {
		return Datagram{}, nil, false
	}
	n, addr, err := d.conn.ReadFrom(d.recvBuf[:])
	if err != nil {
		return Datagram{}, nil, false
	}

	if d.peer != nil && addr.String() != d.peer.String() {
		return Datagram{}, nil, false // off-peer: silently dropped
	}

	dg, ok := Decode(d.recvBuf[:n])
	if !ok {
		return Datagram{}, nil, false // codec rejection: silently dropped
	}

	if dg.Header.Flags == FlagSYN && d.peer == nil {
		d.bindPeer(addr)
	}

	if dg.Header.Flags&FlagFIN != 0 && !d.finObserved {
		d.finObserved = true
		d.finSeq = d.lift(dg.Header.SeqNum)
	}

	d.lastValidRxTime = time.Now()
	return dg, addr, true
}
