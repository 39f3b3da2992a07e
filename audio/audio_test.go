package audio

import "testing"

func TestEncodePCM16(t *testing.T) {
	dst := make([]byte, 6)
	encodePCM16(dst, []int16{1, -1, 0x1234})

	want := []byte{0x01, 0x00, 0xff, 0xff, 0x34, 0x12}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("byte %d: expected %#x, got %#x", i, want[i], dst[i])
		}
	}
}

func TestDefaultFrameSize(t *testing.T) {
	if got := GetDefaultConfig().FrameBytes(); got != 1024 {
		t.Fatalf("expected 1024-byte frames, got %d", got)
	}
}
