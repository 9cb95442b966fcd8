package rtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLift64BelowBaseWraps(t *testing.T) {
	base := uint32(seqMod - 5)
	// a wire value below base is assumed to have wrapped once
	assert.Equal(t, uint64(seqMod)+2, lift64(2, base))
	assert.Equal(t, uint64(base), lift64(base, base))
}

func TestProject32Wraps(t *testing.T) {
	assert.Equal(t, uint32(5), project32(uint64(seqMod)+5))
	assert.Equal(t, uint32(0), project32(uint64(seqMod)))
}

func TestIncDecSeq32Wrap(t *testing.T) {
	assert.Equal(t, uint32(0), incSeq32(seqMask))
	assert.Equal(t, uint32(seqMask), decSeq32(0))
}

func TestAssertSpanPanicsPastLimit(t *testing.T) {
	assert.Panics(t, func() {
		assertSpan(0, maxInFlightSpan)
	})
}

func TestAssertSpanOKWithinLimit(t *testing.T) {
	assert.NotPanics(t, func() {
		assertSpan(0, maxInFlightSpan-1)
	})
}
