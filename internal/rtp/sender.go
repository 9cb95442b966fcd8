package rtp

import (
	"fmt"
	"time"
)

// segment is one fixed-size (except the last) chunk of the file payload,
// pre-assigned a monotonic 64-bit sequence starting at seq_cursor+1
// (spec.md §4.5).
type segment struct {
	seq  uint64
	data []byte
}

// sender drives the cumulative-ACK sliding window described in spec.md
// §4.5: slow start, congestion avoidance, fast retransmit, fast recovery,
// all decided on a single driver loop.
type sender struct {
	c *Conn

	segments []segment // index i holds sequence c.seqCurs+1+i

	base    uint64 // lowest unacked sequence
	next    uint64 // next sequence to send
	highest uint64 // last segment's sequence

	cwnd           float64
	ssthresh       float64
	dupAckCount    int
	inFastRecovery bool
	lastAckSeq     uint64

	baseSendTime time.Time
}

// SendFile chunks payload into PayloadMax-sized segments and drives them
// to completion over the established connection (spec.md §4.5/§4.8).
func (c *Conn) SendFile(payload []byte) error {
	s := &sender{
		c:        c,
		cwnd:     1.0,
		ssthresh: 65536.0,
	}

	firstSeq := c.seqCurs + 1
	if len(payload) == 0 {
		s.segments = []segment{{seq: firstSeq, data: nil}}
	} else {
		for off := 0; off < len(payload); off += PayloadMax {
			end := off + PayloadMax
			if end > len(payload) {
				end = len(payload)
			}
			s.segments = append(s.segments, segment{
				seq:  firstSeq + uint64(len(s.segments)),
				data: payload[off:end],
			})
		}
	}

	s.base = firstSeq
	s.next = firstSeq
	s.highest = s.segments[len(s.segments)-1].seq
	assertSpan(c.seqBase, s.highest)

	for s.base <= s.highest {
		// 1. idle-timeout guard
		if time.Since(c.io.lastValidRxTime) > senderIdleBudget {
			return ErrPeerGone
		}

		// 2. transmit within the window
		for s.next < s.base+uint64(s.cwnd) && s.next <= s.highest {
			if err := s.transmit(s.next); err != nil {
				return err
			}
			if s.next == s.base {
				s.baseSendTime = time.Now()
			}
			s.next++
		}

		// 3. RTO-based retransmission
		if s.base < s.next && time.Since(s.baseSendTime) > retransmitTimeout {
			s.ssthresh = maxFloat(s.cwnd/2, 2)
			s.cwnd = 1
			s.dupAckCount = 0
			s.inFastRecovery = false
			c.metrics.SetCwnd(c.id, s.cwnd)
			c.metrics.SetSsthresh(c.id, s.ssthresh)
			c.log.Warnf("RTO fired at base=%d, flushing window", s.base)
			for seq := s.base; seq < s.next; seq++ {
				if err := s.transmit(seq); err != nil {
					return err
				}
				c.metrics.IncRetransmit(c.id)
			}
			s.baseSendTime = time.Now()
		}

		// 4. ACK reception
		ackDeadline := time.Now().Add(ackWait)
		dg, res := waitFlags(c.io, FlagACK, ackDeadline)
		if res != waitOK {
			continue
		}
		a := c.io.lift(dg.Header.SeqNum)
		s.handleAck(a)
	}

	// Advance the cursor past every segment just sent, so Close() raises
	// FIN one past the last data sequence instead of one past seq_base
	// (mirrors the original's `this->seq_num += total_packets` after
	// send_file_sr, original_source/src/rtp.cpp:821).
	c.seqCurs = s.highest
	c.log.Infof("send_file complete, %d segments", len(s.segments))
	return nil
}

func (s *sender) transmit(seq uint64) error {
	seg := s.segments[seq-s.segments[0].seq]
	data := Encode(project32(seg.seq), 0, seg.data)
	if err := s.c.io.send(data); err != nil {
		return fmt.Errorf("rtp: send_file: %w: %v", ErrSendFailed, err)
	}
	return nil
}

// handleAck applies one received cumulative-ACK sequence to the window
// state, exactly per spec.md §4.5 step 4.
func (s *sender) handleAck(a uint64) {
	c := s.c
	switch {
	case a+1 > s.base:
		s.base = a + 1
		s.lastAckSeq = a
		if s.base < s.next {
			s.baseSendTime = time.Now()
		}
		if s.inFastRecovery {
			s.cwnd = s.ssthresh
			s.inFastRecovery = false
			s.dupAckCount = 0
		} else {
			if s.cwnd < s.ssthresh {
				s.cwnd++
			} else {
				s.cwnd += 1 / s.cwnd
			}
			s.dupAckCount = 0
		}
		c.metrics.SetCwnd(c.id, s.cwnd)
		c.metrics.SetSsthresh(c.id, s.ssthresh)

	case a+1 == s.base:
		if !s.inFastRecovery {
			s.dupAckCount++
			if s.dupAckCount == 3 {
				if err := s.transmit(s.base); err == nil {
					c.metrics.IncFastRetransmit(c.id)
				}
				s.baseSendTime = time.Now()
				s.inFastRecovery = true
				s.ssthresh = maxFloat(s.cwnd/2, 2)
				s.cwnd = s.ssthresh + 3
				c.metrics.SetCwnd(c.id, s.cwnd)
				c.metrics.SetSsthresh(c.id, s.ssthresh)
				c.log.Debugf("fast retransmit at base=%d", s.base)
			}
		} else {
			s.cwnd++
			c.metrics.SetCwnd(c.id, s.cwnd)
		}

	default:
		// a+1 < base: stale ACK, discard
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
