package checksum

import (
	"encoding/binary"
	"testing"
)

func withChecksum(payload []byte) []byte {
	out := make([]byte, len(payload))
	copy(out, payload)
	for i := range out[:8] {
		out[i] = 0
	}
	cksum := Fletcher64(out)
	binary.LittleEndian.PutUint64(out[:8], cksum)
	return out
}

func TestFletcher64RoundTrip(t *testing.T) {
	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i * 7)
	}

	stamped := withChecksum(payload)
	stored := binary.LittleEndian.Uint64(stamped[:8])

	if !Verify(stamped, stored) {
		t.Fatal("expected freshly stamped payload to verify")
	}
}

func TestFletcher64DetectsCorruption(t *testing.T) {
	payload := make([]byte, 64)
	for i := range payload {
		payload[i] = byte(i)
	}
	stamped := withChecksum(payload)
	stored := binary.LittleEndian.Uint64(stamped[:8])

	stamped[40] ^= 0xFF

	if Verify(stamped, stored) {
		t.Fatal("expected corrupted payload to fail verification")
	}
}

func TestFletcher64ZeroPayload(t *testing.T) {
	payload := make([]byte, 32)
	got := Fletcher64(payload)
	if got == 0 {
		t.Fatal("checksum of an all-zero payload should still be nonzero (0xFFFFFFFF sentinel math)")
	}
}
