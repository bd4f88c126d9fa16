// Package checksum implements the Fletcher-64 checksum APFS stores in every
// persistent object's header.
package checksum

import "encoding/binary"

// modulus is the largest value a Fletcher-64 running sum is reduced modulo.
const modulus = 0xFFFFFFFF

// Fletcher64 computes the APFS variant of the Fletcher-64 checksum over
// data, which must be a whole number of 32-bit little-endian words. The
// caller is responsible for zeroing the checksum field before calling this
// on an object's payload; data is never mutated here.
func Fletcher64(data []byte) uint64 {
	var sum1, sum2 uint64

	n := len(data) / 4
	for i := 0; i < n; i++ {
		word := uint64(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
		sum1 += word
		sum2 += sum1
	}

	c1 := modulus - ((sum1 + sum2) % modulus)
	c2 := modulus - ((sum1 + c1) % modulus)
	return (c2 << 32) | c1
}

// Verify reports whether stored equals the Fletcher-64 checksum of an
// object's bytes after its 8-byte checksum field, so payload may be the
// whole object block with the stored checksum still in place.
func Verify(payload []byte, stored uint64) bool {
	if len(payload) < 8 {
		return false
	}
	return Fletcher64(payload[8:]) == stored
}
