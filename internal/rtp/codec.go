package rtp

import (
	"encoding/binary"
	"hash/crc32"
)

// Flag bits carried in the header's flags byte (spec.md EXTERNAL INTERFACES).
const (
	FlagSYN byte = 0x01
	FlagACK byte = 0x02
	FlagFIN byte = 0x04
)

// PayloadMax is the largest payload a single datagram may carry.
const PayloadMax = 1461

// HeaderSize is the fixed, packed, little-endian header layout's size in
// bytes: seq_num(4) + length(2) + checksum(4) + advertised_window(2) + flags(1).
const HeaderSize = 13

// advertisedWindow is emitted as a constant and never inspected on receive
// (spec.md DATA MODEL / DESIGN NOTES "flow control vacancy"). 65535 matches
// the original implementation's "wide open" placeholder value.
const advertisedWindow = uint16(65535)

// Header is the fixed-layout datagram header.
type Header struct {
	SeqNum            uint32
	Length            uint16
	Checksum          uint32
	AdvertisedWindow  uint16
	Flags             byte
}

// Datagram is a parsed header paired with its payload bytes.
type Datagram struct {
	Header  Header
	Payload []byte
}

// EncodeControl serializes a zero-payload control datagram (SYN, ACK,
// SYN|ACK, FIN, FIN|ACK) with a correct checksum.
func EncodeControl(seq uint32, flags byte) []byte {
	return Encode(seq, flags, nil)
}

// Encode serializes a datagram with the given payload, computing the
// checksum over the full serialization with the checksum field zeroed,
// exactly as the original wrapper does.
func Encode(seq uint32, flags byte, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], seq&seqMask)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(len(payload)))
	// buf[6:10] checksum left zero for the first pass
	binary.LittleEndian.PutUint16(buf[10:12], advertisedWindow)
	buf[12] = flags
	copy(buf[HeaderSize:], payload)

	sum := crc32.ChecksumIEEE(buf)
	binary.LittleEndian.PutUint32(buf[6:10], sum)
	return buf
}

// Decode parses and validates a received byte slice. It returns ok=false
// (a "drop" signal per spec.md Codec) if the size is out of range, the
// declared length exceeds PayloadMax, or the checksum does not match —
// the caller must treat a false return as if nothing was received.
func Decode(data []byte) (Datagram, bool) {
	if len(data) < HeaderSize || len(data) > HeaderSize+PayloadMax {
		return Datagram{}, false
	}

	length := binary.LittleEndian.Uint16(data[4:6])
	if int(length) > PayloadMax {
		return Datagram{}, false
	}
	if len(data) != HeaderSize+int(length) {
		return Datagram{}, false
	}

	storedChecksum := binary.LittleEndian.Uint32(data[6:10])

	verify := make([]byte, len(data))
	copy(verify, data)
	binary.LittleEndian.PutUint32(verify[6:10], 0)
	if crc32.ChecksumIEEE(verify) != storedChecksum {
		return Datagram{}, false
	}

	h := Header{
		SeqNum:           binary.LittleEndian.Uint32(data[0:4]) & seqMask,
		Length:           length,
		Checksum:         storedChecksum,
		AdvertisedWindow: binary.LittleEndian.Uint16(data[10:12]),
		Flags:            data[12],
	}

	var payload []byte
	if length > 0 {
		payload = make([]byte, length)
		copy(payload, data[HeaderSize:HeaderSize+int(length)])
	}

	return Datagram{Header: h, Payload: payload}, true
}
