package rtp

import "time"

// waitResult replaces the original's inconsistent "waitfor_ack returns 0
// on timeout" convention, which collides with 0 being a valid sequence
// number. Socket-level errors are folded into waitTimeout rather than a
// distinct outcome: tryReceive cannot distinguish "corrupt datagram",
// "off-peer datagram", and "real socket error" from each other, and a
// connection whose socket has genuinely died is caught by the caller's
// own idle-budget deadline, not by this primitive.
type waitResult int

const (
	waitOK waitResult = iota
	waitTimeout
)

// waitFlags blocks until a datagram whose flags equal mask exactly is
// received before deadline, discarding anything else (corrupt, off-peer,
// or simply a different flag combination) along the way. This is the
// primitive the handshake and teardown retry loops poll on.
func waitFlags(d *datagramIO, mask byte, deadline time.Time) (Datagram, waitResult) {
	for {
		now := time.Now()
		if !now.Before(deadline) {
			return Datagram{}, waitTimeout
		}
		dg, _, ok := d.tryReceive(deadline)
		if !ok {
			if !time.Now().Before(deadline) {
				return Datagram{}, waitTimeout
			}
			continue
		}
		if dg.Header.Flags == mask {
			return dg, waitOK
		}
		// valid but non-matching: consumed and dropped, keep waiting
	}
}

// waitFlagsSeq is waitFlags with an additional exact-sequence filter:
// datagrams matching the flag mask but not seq are discarded and waiting
// continues within the same deadline (spec.md §4.4 "mismatched-seq ACKs/
// FIN+ACKs are ignored").
func waitFlagsSeq(d *datagramIO, mask byte, seq uint32, deadline time.Time) (Datagram, waitResult) {
	for {
		if !time.Now().Before(deadline) {
			return Datagram{}, waitTimeout
		}
		dg, _, ok := d.tryReceive(deadline)
		if !ok {
			continue
		}
		if dg.Header.Flags == mask && dg.Header.SeqNum == seq {
			return dg, waitOK
		}
	}
}

// waitDataInWindow blocks until a DATA datagram (flags==0) whose lifted
// sequence falls in [begin, end) arrives, or the deadline elapses. This
// mirrors the original's windowed waitfor_dat/waitfor_ack overloads
// (spec.md DESIGN NOTES / SUPPLEMENTED FEATURES): datagrams outside the
// window are dropped even though they pass the peer/flag/checksum
// filters, since they belong to a retransmission the caller has already
// resolved.
func waitDataInWindow(d *datagramIO, begin, end uint64, deadline time.Time) (Datagram, uint64, waitResult) {
	for {
		if !time.Now().Before(deadline) {
			return Datagram{}, 0, waitTimeout
		}
		dg, _, ok := d.tryReceive(deadline)
		if !ok {
			if !time.Now().Before(deadline) {
				return Datagram{}, 0, waitTimeout
			}
			continue
		}
		if dg.Header.Flags != 0 {
			continue
		}
		s := d.lift(dg.Header.SeqNum)
		if s < begin || s >= end {
			continue
		}
		return dg, s, waitOK
	}
}
