package rtp

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsilenzioso/gortp/internal/simnet"
)

func TestHandshakeEstablishesSymmetricSeqBase(t *testing.T) {
	link := simnet.NewLink(0, 0, 11)
	a, b := simnet.NewPair(link, "a", "b")
	defer a.Close()
	defer b.Close()

	connA := newConn(a, nil)
	connB := newConn(b, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	var errA, errB error
	go func() { defer wg.Done(); errB = connB.Accept(b) }()
	go func() { defer wg.Done(); errA = connA.Connect(simnet.Addr("b")) }()
	wg.Wait()

	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, connA.seqBase, connB.seqBase)
	assert.Equal(t, stateEstablished, connA.state)
	assert.Equal(t, stateEstablished, connB.state)
}

func TestHandshakeHeavyLossFailsCleanly(t *testing.T) {
	// A 0.99 drop rate forces SYN retries throughout the handshake's
	// retry budget.
	link2 := simnet.NewLink(0.99, 0, 5)
	a2, b2 := simnet.NewPair(link2, "a2", "b2")
	defer a2.Close()
	defer b2.Close()

	connA := newConn(a2, nil)
	connB := newConn(b2, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	var errA, errB error
	go func() { defer wg.Done(); errB = connB.Accept(b2) }()
	go func() { defer wg.Done(); errA = connA.Connect(simnet.Addr("b2")) }()
	wg.Wait()

	// With a 0.99 drop rate and only 50 SYN retries at 100ms apiece, the
	// handshake will very likely fail; the property under test is only
	// that failure is reported as ErrHandshakeFailed, never a hang or a
	// wrong-state crash.
	if errA != nil {
		assert.ErrorIs(t, errA, ErrHandshakeFailed)
	}
	if errB != nil {
		assert.ErrorIs(t, errB, ErrHandshakeFailed)
	}
}

func TestTeardownBothSides(t *testing.T) {
	link := simnet.NewLink(0, 0, 33)
	a, b := simnet.NewPair(link, "a", "b")
	defer a.Close()
	defer b.Close()

	connA := newConn(a, nil)
	connB := newConn(b, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = connB.Accept(b) }()
	go func() { defer wg.Done(); _ = connA.Connect(simnet.Addr("b")) }()
	wg.Wait()

	wg.Add(2)
	var closeErr, waitCloseErr error
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		waitCloseErr = connB.WaitClose()
	}()
	go func() { defer wg.Done(); closeErr = connA.Close() }()
	wg.Wait()

	assert.NoError(t, closeErr)
	assert.NoError(t, waitCloseErr)
}
