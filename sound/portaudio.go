package sound

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/hajimehoshi/go-mp3"
)

// PortaudioPlayer writes 16-bit mono PCM to the default output device.
// MP3 replies are decoded on the fly.
type PortaudioPlayer struct {
	stream      *portaudio.Stream
	audioBuffer []int16
	config      PlayerConfig
	logger      *slog.Logger
	level       atomic.Int32

	mu      sync.Mutex
	playing bool
	pending []int16
	mp3In   *io.PipeWriter
	mp3Done chan error
}

var _ Player = (*PortaudioPlayer)(nil)

func NewPortaudioPlayer(config PlayerConfig, logger *slog.Logger) *PortaudioPlayer {
	if config.OutputChannels == 0 {
		config.OutputChannels = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &PortaudioPlayer{
		config:      config,
		audioBuffer: make([]int16, config.FramesPerBuffer*config.OutputChannels),
		logger:      logger,
	}
	p.level.Store(100)
	return p
}

func (p *PortaudioPlayer) Initialize() error {
	return portaudio.Initialize()
}

func (p *PortaudioPlayer) Terminate() {
	portaudio.Terminate()
}

func (p *PortaudioPlayer) Open() error {
	stream, err := portaudio.OpenDefaultStream(
		0,
		p.config.OutputChannels,
		p.config.SampleRate,
		p.config.FramesPerBuffer,
		p.audioBuffer,
	)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	p.stream = stream
	return nil
}

func (p *PortaudioPlayer) Close() error {
	if p.stream != nil {
		return p.stream.Close()
	}
	return nil
}

func (p *PortaudioPlayer) SetOutputLevel(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	p.level.Store(int32(percent))
}

func (p *PortaudioPlayer) BeginPlayback() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return errors.New("stream not opened")
	}
	if p.playing {
		return errors.New("playback already in progress")
	}
	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	p.playing = true
	p.pending = p.pending[:0]

	if p.config.Encoding == EncodingMP3 {
		pr, pw := io.Pipe()
		p.mp3In = pw
		p.mp3Done = make(chan error, 1)
		go p.decodeMP3(pr)
	}
	return nil
}

func (p *PortaudioPlayer) EnqueuePlayback(chunk []byte) error {
	p.mu.Lock()
	playing, mp3In := p.playing, p.mp3In
	p.mu.Unlock()

	if !playing {
		return errors.New("playback not started")
	}
	if mp3In != nil {
		_, err := mp3In.Write(chunk)
		return err
	}
	return p.writeSamples(convertBytesToSamples(chunk))
}

func (p *PortaudioPlayer) EndPlayback() error {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return nil
	}
	mp3In, mp3Done := p.mp3In, p.mp3Done
	p.mu.Unlock()

	var decodeErr error
	if mp3In != nil {
		_ = mp3In.Close()
		decodeErr = <-mp3Done
	}

	flushErr := p.flush()

	p.mu.Lock()
	p.playing = false
	p.mp3In = nil
	p.mp3Done = nil
	p.mu.Unlock()

	if err := p.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	if decodeErr != nil {
		return decodeErr
	}
	return flushErr
}

func (p *PortaudioPlayer) decodeMP3(r *io.PipeReader) {
	var err error
	defer func() {
		// Unblock writers if decoding stopped early.
		_ = r.CloseWithError(err)
		p.mp3Done <- err
	}()

	dec, err := mp3.NewDecoder(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = nil
			return
		}
		err = fmt.Errorf("failed to decode mp3: %w", err)
		return
	}
	if rate := float64(dec.SampleRate()); rate != p.config.SampleRate {
		p.logger.Warn("mp3 sample rate differs from output rate", "mp3", rate, "output", p.config.SampleRate)
	}

	buf := make([]byte, 4096)
	for {
		n, readErr := io.ReadFull(dec, buf)
		if n > 0 {
			// go-mp3 always produces 16-bit stereo.
			samples := downmixStereo(convertBytesToSamples(buf[:n-n%4]))
			if err = p.writeSamples(samples); err != nil {
				return
			}
		}
		if readErr == io.EOF || errors.Is(readErr, io.ErrUnexpectedEOF) {
			return
		}
		if readErr != nil {
			err = fmt.Errorf("failed to decode mp3: %w", readErr)
			return
		}
	}
}

// writeSamples plays whole buffers and keeps the remainder for the next
// chunk so consecutive chunks play without gaps.
func (p *PortaudioPlayer) writeSamples(samples []int16) error {
	applyLevel(samples, int(p.level.Load()))

	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = append(p.pending, samples...)
	for len(p.pending) >= len(p.audioBuffer) {
		copy(p.audioBuffer, p.pending[:len(p.audioBuffer)])
		p.pending = p.pending[len(p.audioBuffer):]
		if err := p.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			return fmt.Errorf("failed to write audio: %w", err)
		}
	}
	return nil
}

func (p *PortaudioPlayer) flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pending) == 0 {
		return nil
	}
	n := copy(p.audioBuffer, p.pending)
	for i := n; i < len(p.audioBuffer); i++ {
		p.audioBuffer[i] = 0
	}
	p.pending = p.pending[:0]
	if err := p.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
		return fmt.Errorf("failed to write audio: %w", err)
	}
	return nil
}
