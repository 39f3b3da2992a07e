package tts

import (
	"context"
	"fmt"
)

// Output is the playback side used to speak synthesized audio.
type Output interface {
	BeginPlayback() error
	EnqueuePlayback(chunk []byte) error
	EndPlayback() error
}

// Voice speaks text through an Output.
type Voice struct {
	synth   Synthesizer
	out     Output
	options SynthesisOptions
}

func NewVoice(synth Synthesizer, out Output, options SynthesisOptions) *Voice {
	return &Voice{synth: synth, out: out, options: options}
}

func (v *Voice) Speak(ctx context.Context, text string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	audio := make(chan []byte, 16)
	synthErr := make(chan error, 1)
	go func() {
		synthErr <- v.synth.SynthesizeToStreamWithContext(ctx, text, v.options, audio)
	}()

	if err := v.out.BeginPlayback(); err != nil {
		cancel()
		for range audio {
		}
		<-synthErr
		return fmt.Errorf("failed to begin playback: %w", err)
	}

	var playErr error
	for chunk := range audio {
		if playErr != nil {
			continue
		}
		if err := v.out.EnqueuePlayback(chunk); err != nil {
			playErr = fmt.Errorf("failed to play speech: %w", err)
			cancel()
		}
	}

	endErr := v.out.EndPlayback()
	if err := <-synthErr; err != nil && playErr == nil {
		return fmt.Errorf("failed to synthesize %q: %w", text, err)
	}
	if playErr != nil {
		return playErr
	}
	return endErr
}
