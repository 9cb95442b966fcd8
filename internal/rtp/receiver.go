package rtp

import (
	"bytes"
	"time"
)

// recvSegment is one buffered, not-yet-delivered data segment, owned by
// the receive buffer for the lifetime of RecvFile (spec.md Connection
// lifecycles / DESIGN NOTES ownership).
type recvSegment struct {
	data []byte
}

// RecvFile drives the receiver's in-order reassembly loop (spec.md §4.6):
// buffer by 64-bit sequence, advance recv_base while contiguous, emit a
// cumulative ACK every time a DATA datagram arrives, and stop once FIN
// has been observed and recv_base has caught up to fin_seq.
func (c *Conn) RecvFile() ([]byte, error) {
	firstExpected := c.seqCurs + 1
	recvBase := firstExpected
	buf := make(map[uint64]recvSegment)

	// The receiver always waits on the hardened 200ms step (spec.md §4.6
	// step 3's "passive-side teardown uses 200 ms in the hardened variant").
	waitStep := dataWaitPassive

	for {
		// 1. idle-timeout guard
		if time.Since(c.io.lastValidRxTime) > receiverIdleBudget {
			if !(c.io.finObserved && c.io.finSeq > recvBase) {
				return nil, ErrReceiveIdle
			}
			break
		}

		// 2. completion guard
		if c.io.finObserved && recvBase >= c.io.finSeq {
			break
		}

		// 3. wait for a DATA datagram. The original's recv_file_sr waits
		// unwindowed (rtp.cpp:1092) and re-acks every arrival, including
		// already-delivered retransmissions below recv_base, so a lost
		// final ACK doesn't stall the sender; only the upper bound (the
		// sender's own in-flight span) is worth filtering on here.
		deadline := time.Now().Add(waitStep)
		dg, s, res := waitDataInWindow(c.io, 0, recvBase+maxInFlightSpan, deadline)
		if res != waitOK {
			continue
		}

		if s >= recvBase {
			if _, exists := buf[s]; !exists {
				cp := append([]byte(nil), dg.Payload...)
				buf[s] = recvSegment{data: cp}
			}
		}

		for {
			if _, ok := buf[recvBase]; !ok {
				break
			}
			recvBase++
		}

		ackWireSeq := project32(recvBase - 1)
		ack := EncodeControl(ackWireSeq, FlagACK)
		if err := c.io.send(ack); err != nil {
			return nil, err
		}
	}

	var out bytes.Buffer
	for seq := firstExpected; seq < recvBase; seq++ {
		seg, ok := buf[seq]
		if !ok {
			continue
		}
		out.Write(seg.data)
	}
	c.seqCurs = recvBase - 1
	c.metrics.AddBytesDelivered(c.id, out.Len())
	c.log.Infof("recv_file complete, %d bytes", out.Len())
	return out.Bytes(), nil
}
