package sound

import "testing"

func TestConvertBytesToSamples(t *testing.T) {
	got := convertBytesToSamples([]byte{0x01, 0x00, 0xff, 0xff, 0x07})
	if len(got) != 2 || got[0] != 1 || got[1] != -1 {
		t.Fatalf("unexpected samples %v", got)
	}
}

func TestDownmixStereo(t *testing.T) {
	got := downmixStereo([]int16{100, 300, -50, 50, 7})
	if len(got) != 2 || got[0] != 200 || got[1] != 0 {
		t.Fatalf("unexpected mono samples %v", got)
	}
}

func TestApplyLevel(t *testing.T) {
	samples := []int16{1000, -1000}
	applyLevel(samples, 50)
	if samples[0] != 500 || samples[1] != -500 {
		t.Fatalf("unexpected scaled samples %v", samples)
	}

	full := []int16{1234}
	applyLevel(full, 100)
	if full[0] != 1234 {
		t.Fatalf("full level must not change samples, got %v", full)
	}
}

func TestSetOutputLevelClamps(t *testing.T) {
	p := NewPortaudioPlayer(GetDefaultConfig(), nil)
	p.SetOutputLevel(250)
	if p.level.Load() != 100 {
		t.Fatalf("expected 100, got %d", p.level.Load())
	}
	p.SetOutputLevel(-4)
	if p.level.Load() != 0 {
		t.Fatalf("expected 0, got %d", p.level.Load())
	}
}

func TestEnqueueRequiresBegin(t *testing.T) {
	p := NewPortaudioPlayer(GetDefaultConfig(), nil)
	if err := p.EnqueuePlayback([]byte{0, 0}); err == nil {
		t.Fatal("expected error before BeginPlayback")
	}
	if err := p.EndPlayback(); err != nil {
		t.Fatalf("EndPlayback without Begin should be a no-op, got %v", err)
	}
}
