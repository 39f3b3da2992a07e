package sound

import "encoding/binary"

// Player plays reply audio between BeginPlayback and EndPlayback.
type Player interface {
	Initialize() error
	Terminate()
	Open() error
	Close() error

	BeginPlayback() error
	EnqueuePlayback(chunk []byte) error
	EndPlayback() error
	SetOutputLevel(percent int)
}

type Encoding string

const (
	EncodingLinear16 Encoding = "linear16"
	EncodingMP3      Encoding = "mp3"
)

type PlayerConfig struct {
	SampleRate      float64
	FramesPerBuffer int
	OutputChannels  int
	Encoding        Encoding
}

func GetDefaultConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate:      16000,
		FramesPerBuffer: 1024,
		OutputChannels:  1,
		Encoding:        EncodingLinear16,
	}
}

func convertBytesToSamples(audioBytes []byte) []int16 {
	samples := make([]int16, len(audioBytes)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(audioBytes[i*2 : i*2+2]))
	}
	return samples
}

// downmixStereo averages interleaved stereo samples into mono.
func downmixStereo(samples []int16) []int16 {
	mono := make([]int16, len(samples)/2)
	for i := range mono {
		mono[i] = int16((int32(samples[2*i]) + int32(samples[2*i+1])) / 2)
	}
	return mono
}

// applyLevel scales samples in place by percent of full volume.
func applyLevel(samples []int16, percent int) {
	if percent >= 100 {
		return
	}
	for i, s := range samples {
		samples[i] = int16(int32(s) * int32(percent) / 100)
	}
}
