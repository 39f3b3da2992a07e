package audio

import "encoding/binary"

type Config struct {
	SampleRate      float64
	FramesPerBuffer int
	InputChannels   int
}

func GetDefaultConfig() Config {
	return Config{
		SampleRate:      16000,
		FramesPerBuffer: 512,
		InputChannels:   1,
	}
}

// FrameBytes is the size of one captured frame in bytes.
func (c Config) FrameBytes() int {
	return c.FramesPerBuffer * c.InputChannels * 2
}

// encodePCM16 writes samples as 16-bit little-endian PCM into dst, which
// must hold 2*len(samples) bytes.
func encodePCM16(dst []byte, samples []int16) {
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(sample))
	}
}
