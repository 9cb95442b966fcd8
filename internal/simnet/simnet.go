// Package simnet provides an in-process, lossy/reordering net.PacketConn
// pair used by the end-to-end transport tests (spec.md §8 scenarios
// S1-S6). It models a single uniform drop rate and a bounded reorder
// window over an otherwise in-memory link, in the spirit of the
// single-shot DropPolicy in iLukSbr's udp-server-and-client client.
package simnet

import (
	"errors"
	"math/rand"
	"net"
	"sync"
	"time"
)

// ErrClosed is returned by reads/writes on a closed endpoint.
var ErrClosed = errors.New("simnet: endpoint closed")

type datagram struct {
	data []byte
	from net.Addr
}

// Addr identifies one simnet endpoint.
type Addr string

func (a Addr) Network() string { return "simnet" }
func (a Addr) String() string  { return string(a) }

// Link is the shared lossy medium two Endpoints exchange datagrams over.
type Link struct {
	mu       sync.Mutex
	dropRate float64
	reorder  int
	rnd      *rand.Rand

	pending map[Addr][]datagram // per-destination reorder holding pen
}

// NewLink builds a link with a uniform per-datagram drop probability
// (dropRate in [0, 1)) and a reorder window measured in datagrams held
// back before being released out of order.
func NewLink(dropRate float64, reorderWindow int, seed int64) *Link {
	return &Link{
		dropRate: dropRate,
		reorder:  reorderWindow,
		rnd:      rand.New(rand.NewSource(seed)),
		pending:  make(map[Addr][]datagram),
	}
}

// Endpoint is one side of the simulated link, implementing the packetConn
// interface the transport's datagram layer depends on (ReadFrom/WriteTo/
// SetReadDeadline), so it can stand in for *net.UDPConn in tests.
type Endpoint struct {
	addr   Addr
	link   *Link
	peer   *Endpoint
	inbox  chan datagram
	closed chan struct{}
	once   sync.Once

	mu       sync.Mutex
	deadline time.Time
}

// NewPair builds two endpoints connected through link, named a and b.
func NewPair(link *Link, a, b Addr) (*Endpoint, *Endpoint) {
	ea := &Endpoint{addr: a, link: link, inbox: make(chan datagram, 256), closed: make(chan struct{})}
	eb := &Endpoint{addr: b, link: link, inbox: make(chan datagram, 256), closed: make(chan struct{})}
	ea.peer = eb
	eb.peer = ea
	return ea, eb
}

// WriteTo sends data to addr, which must be the endpoint's configured
// peer — simnet models a single point-to-point link, matching the
// transport's single-peer-per-connection invariant.
func (e *Endpoint) WriteTo(p []byte, addr net.Addr) (int, error) {
	select {
	case <-e.closed:
		return 0, ErrClosed
	default:
	}

	cp := append([]byte(nil), p...)
	e.link.deliver(e.peer, datagram{data: cp, from: e.addr})
	return len(p), nil
}

// deliver applies the link's drop/reorder policy and eventually pushes
// the datagram into dst's inbox.
func (l *Link) deliver(dst *Endpoint, dg datagram) {
	l.mu.Lock()
	drop := l.dropRate > 0 && l.rnd.Float64() < l.dropRate
	l.mu.Unlock()
	if drop {
		return
	}

	if l.reorder <= 0 {
		select {
		case dst.inbox <- dg:
		case <-dst.closed:
		}
		return
	}

	l.mu.Lock()
	q := l.pending[dst.addr]
	q = append(q, dg)
	var release *datagram
	if len(q) > l.reorder {
		idx := l.rnd.Intn(len(q))
		d := q[idx]
		q = append(q[:idx], q[idx+1:]...)
		release = &d
	}
	l.pending[dst.addr] = q
	l.mu.Unlock()

	if release != nil {
		select {
		case dst.inbox <- *release:
		case <-dst.closed:
		}
	}
}

// ReadFrom blocks for the next inbound datagram, honoring SetReadDeadline.
func (e *Endpoint) ReadFrom(p []byte) (int, net.Addr, error) {
	e.mu.Lock()
	deadline := e.deadline
	e.mu.Unlock()

	var timer <-chan time.Time
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d <= 0 {
			return 0, nil, errTimeout{}
		}
		t := time.NewTimer(d)
		defer t.Stop()
		timer = t.C
	}

	select {
	case dg := <-e.inbox:
		n := copy(p, dg.data)
		return n, dg.from, nil
	case <-timer:
		return 0, nil, errTimeout{}
	case <-e.closed:
		return 0, nil, ErrClosed
	}
}

// SetReadDeadline sets the deadline used by subsequent ReadFrom calls.
func (e *Endpoint) SetReadDeadline(t time.Time) error {
	e.mu.Lock()
	e.deadline = t
	e.mu.Unlock()
	return nil
}

// Close shuts the endpoint down; further reads/writes fail.
func (e *Endpoint) Close() error {
	e.once.Do(func() { close(e.closed) })
	return nil
}

type errTimeout struct{}

func (errTimeout) Error() string   { return "simnet: i/o timeout" }
func (errTimeout) Timeout() bool   { return true }
func (errTimeout) Temporary() bool { return true }
