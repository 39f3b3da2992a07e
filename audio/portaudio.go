package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Recorder captures microphone audio as 16-bit little-endian PCM frames.
type Recorder struct {
	mu          sync.Mutex
	stream      *portaudio.Stream
	audioBuffer []int16
	config      Config
	started     bool
}

func NewRecorder(config Config) *Recorder {
	if config.InputChannels == 0 {
		config.InputChannels = 1
	}
	return &Recorder{
		config:      config,
		audioBuffer: make([]int16, config.FramesPerBuffer*config.InputChannels),
	}
}

func (r *Recorder) Initialize() error {
	return portaudio.Initialize()
}

func (r *Recorder) Terminate() {
	portaudio.Terminate()
}

func (r *Recorder) Open() error {
	stream, err := portaudio.OpenDefaultStream(
		r.config.InputChannels,
		0,
		r.config.SampleRate,
		r.config.FramesPerBuffer,
		r.audioBuffer,
	)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	r.stream = stream
	return nil
}

func (r *Recorder) Close() error {
	if r.stream != nil {
		return r.stream.Close()
	}
	return nil
}

func (r *Recorder) StartCapture() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream == nil {
		return errors.New("stream not opened")
	}
	if r.started {
		return nil
	}
	if err := r.stream.Start(); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	r.started = true
	return nil
}

func (r *Recorder) StopCapture() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return nil
	}
	r.started = false
	return r.stream.Stop()
}

// CaptureFrame blocks until one buffer of audio has been read.
func (r *Recorder) CaptureFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return nil, errors.New("capture not started")
	}
	if err := r.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}

	frame := make([]byte, len(r.audioBuffer)*2)
	encodePCM16(frame, r.audioBuffer)
	return frame, nil
}
