package tts

import "context"

// Synthesizer turns text into a stream of 16-bit little-endian mono PCM
// chunks. Implementations close audioData when they return.
type Synthesizer interface {
	SynthesizeToStreamWithContext(ctx context.Context, text string, options SynthesisOptions, audioData chan<- []byte) error
	Close() error
}

// SynthesisOptions represents the configuration for speech synthesis
type SynthesisOptions struct {
	Voice      string
	Speed      float64
	Volume     float64
	Model      string
	SampleRate int64
}

func GetDefaultSynthesisOptions() SynthesisOptions {
	return SynthesisOptions{
		Voice:      "marina",
		Speed:      1.0,
		Model:      "general",
		SampleRate: 16000,
	}
}
