package rtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte("hello, reliable world")
	data := Encode(42, FlagACK, payload)

	dg, ok := Decode(data)
	require.True(t, ok)
	assert.Equal(t, uint32(42), dg.Header.SeqNum)
	assert.Equal(t, FlagACK, dg.Header.Flags)
	assert.Equal(t, uint16(len(payload)), dg.Header.Length)
	assert.Equal(t, payload, dg.Payload)
}

func TestEncodeControlHasNoPayload(t *testing.T) {
	data := EncodeControl(7, FlagSYN)
	dg, ok := Decode(data)
	require.True(t, ok)
	assert.Equal(t, uint16(0), dg.Header.Length)
	assert.Empty(t, dg.Payload)
	assert.Len(t, data, HeaderSize)
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	data := Encode(1, FlagSYN, []byte("x"))
	data[len(data)-1] ^= 0xFF // flip a payload bit
	_, ok := Decode(data)
	assert.False(t, ok)
}

func TestDecodeRejectsOversizedLength(t *testing.T) {
	data := Encode(1, 0, make([]byte, 10))
	// Corrupt the declared length to exceed PayloadMax without touching
	// the checksum: decode must still reject on the length check alone.
	data[4] = 0xFF
	data[5] = 0xFF
	_, ok := Decode(data)
	assert.False(t, ok)
}

func TestDecodeRejectsTruncated(t *testing.T) {
	_, ok := Decode(make([]byte, HeaderSize-1))
	assert.False(t, ok)
}

func TestDecodeRejectsOverlong(t *testing.T) {
	_, ok := Decode(make([]byte, HeaderSize+PayloadMax+1))
	assert.False(t, ok)
}

func TestSeqNumMaskedTo30Bits(t *testing.T) {
	data := Encode(0xFFFFFFFF, 0, nil)
	dg, ok := Decode(data)
	require.True(t, ok)
	assert.Equal(t, seqMask, dg.Header.SeqNum)
}

func TestBitFlipMakesChecksumInvalid(t *testing.T) {
	good := Encode(123, FlagFIN, []byte("payload bytes here"))
	for i := range good {
		for bit := 0; bit < 8; bit++ {
			flipped := append([]byte(nil), good...)
			flipped[i] ^= 1 << bit
			_, ok := Decode(flipped)
			if ok {
				t.Fatalf("flipping byte %d bit %d silently produced a valid datagram", i, bit)
			}
		}
	}
}

func BenchmarkEncode(b *testing.B) {
	payload := make([]byte, PayloadMax)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Encode(uint32(i), 0, payload)
	}
}

func BenchmarkDecode(b *testing.B) {
	data := Encode(1, 0, make([]byte, PayloadMax))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Decode(data)
	}
}
