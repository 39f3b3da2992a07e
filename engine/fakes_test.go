package engine

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/d1nch8g/pushtalk/actions"
	"github.com/d1nch8g/pushtalk/assistant"
)

type recvResult struct {
	parts []assistant.Inbound
	err   error
}

type fakeStream struct {
	ctx     context.Context
	inbound chan recvResult

	mu      sync.Mutex
	sent    []assistant.Outbound
	closed  bool
	sendErr error
}

func newFakeStream() *fakeStream {
	return &fakeStream{inbound: make(chan recvResult, 16)}
}

func (s *fakeStream) Send(msg assistant.Outbound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("send after close")
	}
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeStream) CloseSend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) Recv() ([]assistant.Inbound, error) {
	select {
	case r, ok := <-s.inbound:
		if !ok {
			return nil, io.EOF
		}
		return r.parts, r.err
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
}

func (s *fakeStream) push(parts ...assistant.Inbound) {
	s.inbound <- recvResult{parts: parts}
}

func (s *fakeStream) fail(err error) {
	s.inbound <- recvResult{err: err}
}

// failSends makes every later Send return err.
func (s *fakeStream) failSends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendErr = err
}

func (s *fakeStream) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *fakeStream) finish() {
	close(s.inbound)
}

func (s *fakeStream) startConfig() (assistant.StartConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return assistant.StartConfig{}, false
	}
	cfg, ok := s.sent[0].(assistant.StartConfig)
	return cfg, ok
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeDialer struct {
	mu      sync.Mutex
	streams []*fakeStream
	err     error
	opens   atomic.Int32
}

func (d *fakeDialer) Open(ctx context.Context) (assistant.Stream, error) {
	d.opens.Add(1)
	if d.err != nil {
		return nil, d.err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streams) == 0 {
		return nil, errors.New("no stream prepared")
	}
	stream := d.streams[0]
	d.streams = d.streams[1:]
	stream.ctx = ctx
	return stream, nil
}

type fakeCapture struct {
	starts atomic.Int32
	stops  atomic.Int32
	frames atomic.Int32
}

func (c *fakeCapture) StartCapture() error {
	c.starts.Add(1)
	return nil
}

func (c *fakeCapture) StopCapture() error {
	c.stops.Add(1)
	return nil
}

func (c *fakeCapture) CaptureFrame(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Millisecond):
		c.frames.Add(1)
		return []byte{0, 1}, nil
	}
}

// gatedCapture behaves like a blocking device read: ctx is only checked
// before the read, and a read that completes after StopCapture fails.
type gatedCapture struct {
	mu        sync.Mutex
	started   bool
	holdNext  bool
	blocked   chan struct{}
	release   chan struct{}
	failures  atomic.Int32
	completed atomic.Int32
}

func newGatedCapture() *gatedCapture {
	return &gatedCapture{
		holdNext: true,
		blocked:  make(chan struct{}, 1),
		release:  make(chan struct{}),
	}
}

func (c *gatedCapture) StartCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	return nil
}

func (c *gatedCapture) StopCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
	return nil
}

func (c *gatedCapture) CaptureFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	hold := c.holdNext
	c.holdNext = false
	c.mu.Unlock()

	if hold {
		c.blocked <- struct{}{}
		<-c.release
	} else {
		time.Sleep(2 * time.Millisecond)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		c.failures.Add(1)
		return nil, errors.New("capture not started")
	}
	c.completed.Add(1)
	return []byte{0, 1}, nil
}

func (c *gatedCapture) isStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

type fakePlayback struct {
	mu     sync.Mutex
	chunks [][]byte
	begins int
	ends   int
	level  atomic.Int32
	gate   chan struct{}
}

func (p *fakePlayback) BeginPlayback() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.begins++
	return nil
}

func (p *fakePlayback) EnqueuePlayback(chunk []byte) error {
	if p.gate != nil {
		<-p.gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = append(p.chunks, chunk)
	return nil
}

func (p *fakePlayback) EndPlayback() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ends++
	return nil
}

func (p *fakePlayback) SetOutputLevel(percent int) {
	p.level.Store(int32(percent))
}

func (p *fakePlayback) snapshot() (chunks [][]byte, begins, ends int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.chunks...), p.begins, p.ends
}

type fakeDispatcher struct {
	mu       sync.Mutex
	commands []actions.Command
}

func (d *fakeDispatcher) Dispatch(cmd actions.Command) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, cmd)
}

func (d *fakeDispatcher) names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.commands))
	for _, cmd := range d.commands {
		names = append(names, cmd.Name)
	}
	return names
}

type fakeIndicator struct {
	sets    atomic.Int32
	toggles atomic.Int32
	on      atomic.Bool
}

func (i *fakeIndicator) SetIndicator(on bool) {
	i.sets.Add(1)
	i.on.Store(on)
}

func (i *fakeIndicator) ToggleIndicator() {
	i.toggles.Add(1)
}

type fakeVoice struct {
	mu     sync.Mutex
	spoken []string
}

func (v *fakeVoice) Speak(_ context.Context, text string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.spoken = append(v.spoken, text)
	return nil
}

func (v *fakeVoice) texts() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.spoken...)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func startController(t *testing.T, c *Controller) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ctx
}
