package rtp

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// discardConn is a packetConn that accepts every write and never yields a
// read, just enough for handleAck's fast-retransmit path to call
// transmit() without a real socket.
type discardConn struct{}

func (discardConn) ReadFrom(p []byte) (int, net.Addr, error) {
	return 0, nil, errTestTimeout{}
}
func (discardConn) WriteTo(p []byte, addr net.Addr) (int, error) { return len(p), nil }
func (discardConn) SetReadDeadline(t time.Time) error            { return nil }

type errTestTimeout struct{}

func (errTestTimeout) Error() string { return "timeout" }

// newTestSender builds a bare sender over a discard socket for exercising
// handleAck's congestion-control arithmetic in isolation.
func newTestSender() *sender {
	c := &Conn{metrics: noopMetrics{}, io: newDatagramIO(discardConn{})}
	c.io.bindPeer(simnetTestAddr{})
	return &sender{
		c:        c,
		cwnd:     1.0,
		ssthresh: 65536.0,
		base:     1,
		next:     1,
	}
}

type simnetTestAddr struct{}

func (simnetTestAddr) Network() string { return "test" }
func (simnetTestAddr) String() string  { return "test-peer" }

func TestSlowStartGrowsCwndByOnePerAck(t *testing.T) {
	s := newTestSender()
	s.next = 2
	s.handleAck(1) // acks seq 1, base advances to 2
	assert.Equal(t, 2.0, s.cwnd)
	assert.Equal(t, uint64(2), s.base)
}

func TestCongestionAvoidanceGrowsSublinear(t *testing.T) {
	s := newTestSender()
	s.cwnd = s.ssthresh // already past slow start
	s.next = 2
	before := s.cwnd
	s.handleAck(1)
	assert.InDelta(t, before+1/before, s.cwnd, 1e-9)
}

func TestThirdDuplicateAckTriggersFastRetransmit(t *testing.T) {
	s := newTestSender()
	s.base = 5
	s.next = 9 // segments 5,6,7,8 outstanding
	s.segments = []segment{{seq: 5}, {seq: 6}, {seq: 7}, {seq: 8}}
	s.cwnd = 8

	s.handleAck(4) // dup 1 (a+1 == base)
	s.handleAck(4) // dup 2
	assert.False(t, s.inFastRecovery)
	s.handleAck(4) // dup 3: fast retransmit
	assert.True(t, s.inFastRecovery)
	assert.Equal(t, s.ssthresh+3, s.cwnd)
}

func TestFastRecoveryInflatesOnEachDuplicate(t *testing.T) {
	s := newTestSender()
	s.base = 5
	s.next = 9
	s.segments = []segment{{seq: 5}, {seq: 6}, {seq: 7}, {seq: 8}}
	s.cwnd = 8
	s.handleAck(4)
	s.handleAck(4)
	s.handleAck(4) // enters fast recovery
	cwndAfterEntry := s.cwnd
	s.handleAck(4) // one more duplicate while in fast recovery
	assert.Equal(t, cwndAfterEntry+1, s.cwnd)
}

func TestNewCumulativeAckExitsFastRecovery(t *testing.T) {
	s := newTestSender()
	s.base = 5
	s.next = 9
	s.segments = []segment{{seq: 5}, {seq: 6}, {seq: 7}, {seq: 8}}
	s.cwnd = 8
	s.handleAck(4)
	s.handleAck(4)
	s.handleAck(4) // fast retransmit, ssthresh = max(8/2,2)=4, cwnd=7
	assert.True(t, s.inFastRecovery)
	s.handleAck(5) // new cumulative ack covering base
	assert.False(t, s.inFastRecovery)
	assert.Equal(t, s.ssthresh, s.cwnd)
	assert.Equal(t, uint64(6), s.base)
}

func TestStaleAckIsDiscarded(t *testing.T) {
	s := newTestSender()
	s.base = 10
	before := s.cwnd
	s.handleAck(5) // a+1 = 6 < base = 10
	assert.Equal(t, before, s.cwnd)
	assert.Equal(t, uint64(10), s.base)
}
