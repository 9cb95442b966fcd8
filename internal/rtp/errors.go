package rtp

import "errors"

// Sentinel error kinds (spec.md ERROR HANDLING DESIGN), checked with
// errors.Is by callers that need to distinguish abort reasons.
var (
	// ErrHandshakeFailed: active open exhausted its SYN retransmit budget,
	// or passive open never observed a valid SYN, or the completing ACK,
	// within its deadline.
	ErrHandshakeFailed = errors.New("rtp: handshake failed")

	// ErrPeerGone: the sender observed no valid datagram from its peer
	// for the 5s idle budget mid-transfer.
	ErrPeerGone = errors.New("rtp: peer gone")

	// ErrReceiveIdle: the receiver observed no valid datagram for the 10s
	// idle budget without having reached end-of-stream.
	ErrReceiveIdle = errors.New("rtp: receive idle timeout")

	// ErrSendFailed: a sendto error or short write occurred.
	ErrSendFailed = errors.New("rtp: send failed")

	// ErrTeardownIncomplete: the close initiator never observed FIN|ACK,
	// or the responder never observed the matching FIN, within its budget.
	// Non-fatal: the data transfer already succeeded.
	ErrTeardownIncomplete = errors.New("rtp: teardown incomplete")
)
