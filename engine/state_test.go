package engine

import (
	"context"
	"errors"
	"testing"
)

func TestConversationStateVolume(t *testing.T) {
	s := NewConversationState()
	if s.Volume() != DefaultVolume {
		t.Fatalf("expected default volume, got %d", s.Volume())
	}

	cases := []struct {
		in      int
		applied bool
		want    int
	}{
		{80, true, 80},
		{0, false, 80},
		{-3, false, 80},
		{150, true, 100},
		{1, true, 1},
	}
	for _, tc := range cases {
		if got := s.SetVolume(tc.in); got != tc.applied {
			t.Fatalf("SetVolume(%d): expected applied=%v", tc.in, tc.applied)
		}
		if s.Volume() != tc.want {
			t.Fatalf("after %d: expected %d, got %d", tc.in, tc.want, s.Volume())
		}
	}
}

func TestConversationStateToken(t *testing.T) {
	s := NewConversationState()
	if s.ContinuationToken() != nil {
		t.Fatal("expected no token initially")
	}
	if s.SetContinuationToken(nil) {
		t.Fatal("expected empty token to be ignored")
	}

	tok := []byte("T1")
	s.SetContinuationToken(tok)
	tok[0] = 'X'
	if got := s.ContinuationToken(); string(got) != "T1" {
		t.Fatalf("expected stored copy T1, got %q", got)
	}

	s.SetContinuationToken([]byte("T2"))
	if got := s.ContinuationToken(); string(got) != "T2" {
		t.Fatalf("expected T2, got %q", got)
	}

	s.SetVolume(30)
	s.Reset()
	if s.ContinuationToken() != nil || s.Volume() != DefaultVolume {
		t.Fatal("expected reset state")
	}
}

func TestResponseBuffer(t *testing.T) {
	var b ResponseBuffer
	chunk := []byte{1, 2}
	b.Append(chunk)
	b.Append([]byte{3})
	chunk[0] = 9

	chunks := b.Chunks()
	if len(chunks) != 2 || chunks[0][0] != 1 || b.Size() != 3 {
		t.Fatalf("unexpected buffer contents %v", chunks)
	}

	b.Clear()
	if b.Len() != 0 || b.Size() != 0 {
		t.Fatal("expected empty buffer")
	}
}

func TestPlaybackSequencerSkipsEmptyReply(t *testing.T) {
	out := &fakePlayback{}
	if err := NewPlaybackSequencer(out).Play(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, begins, _ := out.snapshot(); begins != 0 {
		t.Fatal("expected no playback for an empty reply")
	}
}

func TestTransportErrorMatching(t *testing.T) {
	cause := errors.New("boom")
	err := error(&TransportError{Op: "send", Err: cause})
	if !errors.Is(err, ErrTransport) || !errors.Is(err, cause) {
		t.Fatalf("expected error to match both sentinel and cause: %v", err)
	}
	if err.Error() != "assistant send: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestStateString(t *testing.T) {
	if Draining.String() != "draining" || State(42).String() != "unknown" {
		t.Fatal("unexpected state names")
	}
}
