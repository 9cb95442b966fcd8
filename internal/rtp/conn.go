package rtp

import (
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/rs/xid"

	"github.com/vsilenzioso/gortp/internal/logging"
)

// Timing constants from spec.md CONCURRENCY & RESOURCE MODEL / §4.4.
const (
	synRetryInterval   = 100 * time.Millisecond
	synMaxRetries      = 50
	quietPeriod        = 2 * time.Second
	passiveSynBudget   = 5 * time.Second
	passiveAckRetry    = 100 * time.Millisecond
	teardownBudget     = 5 * time.Second
	teardownRetry      = 100 * time.Millisecond
	senderIdleBudget   = 5 * time.Second
	receiverIdleBudget = 10 * time.Second
	retransmitTimeout  = 200 * time.Millisecond
	ackWait            = 5 * time.Millisecond
	dataWaitPassive    = 200 * time.Millisecond
)

// connState is the connection's lifecycle stage (spec.md §4.4).
type connState int

const (
	stateClosed connState = iota
	stateSynSent
	stateSynReceived
	stateEstablished
	stateFinSent
	stateClosedFinal
)

// Conn bundles a connection's peer binding, sequence state, and the
// single datagram socket it owns (spec.md Connection / Endpoint facade).
// It is single-threaded and cooperative (spec.md CONCURRENCY MODEL): all
// of its methods are meant to be driven from one goroutine.
type Conn struct {
	id  string
	io  *datagramIO
	log *logging.Entry

	state    connState
	seqBase  uint32 // 30-bit, chosen at handshake
	seqCurs  uint64 // 64-bit monotonic, next-to-be-assigned boundary

	metrics Metrics
}

// Metrics is the optional observability hook the sender/receiver engines
// report into (see internal/metrics.Collector for the Prometheus-backed
// implementation). A nil-safe no-op is used when not configured.
type Metrics interface {
	SetCwnd(id string, v float64)
	SetSsthresh(id string, v float64)
	IncRetransmit(id string)
	IncFastRetransmit(id string)
	IncHandshakeRetry(id string)
	AddBytesDelivered(id string, n int)
}

type noopMetrics struct{}

func (noopMetrics) SetCwnd(string, float64)         {}
func (noopMetrics) SetSsthresh(string, float64)     {}
func (noopMetrics) IncRetransmit(string)            {}
func (noopMetrics) IncFastRetransmit(string)        {}
func (noopMetrics) IncHandshakeRetry(string)        {}
func (noopMetrics) AddBytesDelivered(string, int)   {}

// newConn creates a connection in the CLOSED state over the given socket.
// metrics may be nil, in which case observations are discarded.
func newConn(conn packetConn, metrics Metrics) *Conn {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	id := xid.New().String()
	return &Conn{
		id:      id,
		io:      newDatagramIO(conn),
		log:     logging.Conn(id),
		state:   stateClosed,
		metrics: metrics,
	}
}

// newSeqBase picks the initiator's 30-bit seq_base. Tests override this to
// force a transfer across the sequence-wrap boundary, since spec.md leaves
// the choice unspecified beyond "drawn at random".
var newSeqBase = func() uint32 { return rand.Uint32() & seqMask }

// Connect performs the active-open three-way handshake against peer
// (spec.md §4.4 Active open). On success the connection is ESTABLISHED
// and seqBase/seqCurs are set exactly once, per DESIGN NOTES' resolution
// of the "seq_base recorded twice" open question.
func (c *Conn) Connect(peer net.Addr) error {
	c.io.bindPeer(peer)
	x := newSeqBase()

	c.state = stateSynSent
	syn := EncodeControl(x, FlagSYN)

	var synAck Datagram
	ok := false
	for attempt := 0; attempt < synMaxRetries; attempt++ {
		if err := c.io.send(syn); err != nil {
			return fmt.Errorf("rtp: connect: %w: %v", ErrSendFailed, err)
		}
		if attempt > 0 {
			c.metrics.IncHandshakeRetry(c.id)
		}
		dg, res := waitFlagsSeq(c.io, FlagSYN|FlagACK, incSeq32(x), time.Now().Add(synRetryInterval))
		if res == waitOK {
			synAck = dg
			ok = true
			break
		}
	}
	if !ok {
		c.state = stateClosed
		return ErrHandshakeFailed
	}
	_ = synAck

	c.seqBase = x
	c.seqCurs = uint64(x)
	c.io.setSeqBase(x)
	c.state = stateEstablished

	ackSeq := incSeq32(x)
	ack := EncodeControl(ackSeq, FlagACK)
	if err := c.io.send(ack); err != nil {
		return fmt.Errorf("rtp: connect: %w: %v", ErrSendFailed, err)
	}

	// Quiet period: retransmit the ACK on any repeated SYN|ACK, reset the
	// window each time, conclude once 2s pass without one (spec.md §4.4).
	quietDeadline := time.Now().Add(quietPeriod)
	for time.Now().Before(quietDeadline) {
		dg, res := waitFlags(c.io, FlagSYN|FlagACK, quietDeadline)
		if res != waitOK {
			break
		}
		if dg.Header.SeqNum != ackSeq {
			continue
		}
		if err := c.io.send(ack); err != nil {
			return fmt.Errorf("rtp: connect: %w: %v", ErrSendFailed, err)
		}
		quietDeadline = time.Now().Add(quietPeriod)
	}

	c.log.Infof("handshake complete (active), seq_base=%d", c.seqBase)
	return nil
}

// Accept performs the passive-open handshake, waiting for an inbound SYN
// and completing the three-way exchange (spec.md §4.4 Passive open).
func (c *Conn) Accept(conn packetConn) error {
	c.state = stateSynReceived
	deadline := time.Now().Add(passiveSynBudget)

	var x uint32
	var peer net.Addr
	for {
		dg, addr, ok := c.io.tryReceive(deadline)
		if ok && dg.Header.Flags == FlagSYN {
			x = dg.Header.SeqNum
			peer = addr
			break
		}
		if !time.Now().Before(deadline) {
			return ErrHandshakeFailed
		}
	}
	c.io.bindPeer(peer)

	c.seqBase = x
	c.seqCurs = uint64(x)
	c.io.setSeqBase(x)

	synAckSeq := incSeq32(x)
	synAck := EncodeControl(synAckSeq, FlagSYN|FlagACK)
	if err := c.io.send(synAck); err != nil {
		return fmt.Errorf("rtp: accept: %w: %v", ErrSendFailed, err)
	}

	overall := time.Now().Add(passiveSynBudget)
	for time.Now().Before(overall) {
		retryDeadline := time.Now().Add(passiveAckRetry)
		if retryDeadline.After(overall) {
			retryDeadline = overall
		}
		dg, res := waitFlags(c.io, FlagACK, retryDeadline)
		if res == waitOK {
			if dg.Header.SeqNum != synAckSeq {
				continue
			}
			c.state = stateEstablished
			c.log.Infof("handshake complete (passive), seq_base=%d", c.seqBase)
			return nil
		}
		if err := c.io.send(synAck); err != nil {
			return fmt.Errorf("rtp: accept: %w: %v", ErrSendFailed, err)
		}
		c.metrics.IncHandshakeRetry(c.id)
	}
	return ErrHandshakeFailed
}

// Close performs the initiator side of teardown (spec.md §4.4 close).
// Incomplete teardown is reported but non-fatal: the transfer already
// succeeded by the time Close is called.
func (c *Conn) Close() error {
	c.seqCurs++
	assertSpan(c.seqBase, c.seqCurs)
	finSeq := project32(c.seqCurs)
	fin := EncodeControl(finSeq, FlagFIN)
	c.state = stateFinSent

	deadline := time.Now().Add(teardownBudget)
	for time.Now().Before(deadline) {
		if err := c.io.send(fin); err != nil {
			return fmt.Errorf("rtp: close: %w: %v", ErrSendFailed, err)
		}
		retryDeadline := time.Now().Add(teardownRetry)
		if retryDeadline.After(deadline) {
			retryDeadline = deadline
		}
		dg, res := waitFlags(c.io, FlagFIN|FlagACK, retryDeadline)
		if res == waitOK && dg.Header.SeqNum == finSeq {
			c.state = stateClosedFinal
			c.io.unbindPeer()
			c.log.Infof("teardown complete (initiator)")
			return nil
		}
	}
	c.io.unbindPeer()
	return ErrTeardownIncomplete
}

// WaitClose performs the responder side of teardown (spec.md §4.4
// wait_close). If a FIN was already observed during data transfer, the
// FIN|ACK is sent immediately; otherwise it waits for one.
func (c *Conn) WaitClose() error {
	c.seqCurs++
	assertSpan(c.seqBase, c.seqCurs)
	ackSeq := project32(c.seqCurs)
	finAck := EncodeControl(ackSeq, FlagFIN|FlagACK)

	if c.io.finObserved {
		if err := c.io.send(finAck); err != nil {
			return fmt.Errorf("rtp: wait_close: %w: %v", ErrSendFailed, err)
		}
		c.state = stateClosedFinal
		c.io.unbindPeer()
		c.log.Infof("teardown complete (responder, fin pre-observed)")
		return nil
	}

	deadline := time.Now().Add(teardownBudget)
	for {
		if !time.Now().Before(deadline) {
			c.io.unbindPeer()
			return ErrTeardownIncomplete
		}
		dg, res := waitFlags(c.io, FlagFIN, deadline)
		if res != waitOK {
			c.io.unbindPeer()
			return ErrTeardownIncomplete
		}
		if dg.Header.SeqNum != ackSeq {
			continue
		}
		if err := c.io.send(finAck); err != nil {
			return fmt.Errorf("rtp: wait_close: %w: %v", ErrSendFailed, err)
		}
		break
	}

	// Quiet period: resend FIN|ACK on any repeated matching FIN.
	quietDeadline := time.Now().Add(quietPeriod)
	for time.Now().Before(quietDeadline) {
		dg, res := waitFlags(c.io, FlagFIN, quietDeadline)
		if res != waitOK {
			break
		}
		if dg.Header.SeqNum != ackSeq {
			continue
		}
		if err := c.io.send(finAck); err != nil {
			return fmt.Errorf("rtp: wait_close: %w: %v", ErrSendFailed, err)
		}
		quietDeadline = time.Now().Add(quietPeriod)
	}

	c.state = stateClosedFinal
	c.io.unbindPeer()
	c.log.Infof("teardown complete (responder)")
	return nil
}
