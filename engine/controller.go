package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/d1nch8g/pushtalk/actions"
	"github.com/d1nch8g/pushtalk/assistant"
)

// Capture is the microphone side of a turn.
type Capture interface {
	StartCapture() error
	StopCapture() error
	CaptureFrame(ctx context.Context) ([]byte, error)
}

// Playback is the speaker side of a turn.
type Playback interface {
	BeginPlayback() error
	EnqueuePlayback(chunk []byte) error
	EndPlayback() error
	SetOutputLevel(percent int)
}

type Dialer interface {
	Open(ctx context.Context) (assistant.Stream, error)
}

type Dispatcher interface {
	Dispatch(cmd actions.Command)
}

// Indicator is the liveness LED.
type Indicator interface {
	SetIndicator(on bool)
	ToggleIndicator()
}

// HistorySink receives request transcripts and display text. Calls must
// not block.
type HistorySink interface {
	AddRequest(text string)
	AddResponse(text string)
}

type Voice interface {
	Speak(ctx context.Context, text string) error
}

// Config holds the settings sent at the start of every turn.
type Config struct {
	Input          assistant.AudioFormat
	Output         assistant.AudioFormat
	DeviceID       string
	DeviceModelID  string
	LanguageCode   string
	MaxHistorySize int
}

// ConversationEntry is one completed turn.
type ConversationEntry struct {
	Request   string
	Response  string
	Timestamp time.Time
}

// Controller owns the turn state machine. Every transition happens on the
// goroutine running Run.
type Controller struct {
	config       Config
	dialer       Dialer
	capture      Capture
	playback     Playback
	sequencer    *PlaybackSequencer
	conversation *ConversationState

	dispatcher Dispatcher
	indicator  Indicator
	history    HistorySink
	voice      Voice
	logger     *slog.Logger
	onError    func(error)
	onState    func(State)

	state   atomic.Int32
	events  chan event
	done    chan struct{}
	running atomic.Bool

	announceMu    sync.Mutex
	announcements []string
	announceReady chan struct{}

	historyMu sync.RWMutex
	entries   []ConversationEntry

	// owned by Run
	session    *Session
	announcing bool
}

type ControllerOption func(*Controller)

func WithDispatcher(dispatcher Dispatcher) ControllerOption {
	return func(c *Controller) {
		c.dispatcher = dispatcher
	}
}

func WithIndicator(indicator Indicator) ControllerOption {
	return func(c *Controller) {
		c.indicator = indicator
	}
}

func WithHistorySink(history HistorySink) ControllerOption {
	return func(c *Controller) {
		c.history = history
	}
}

func WithVoice(voice Voice) ControllerOption {
	return func(c *Controller) {
		c.voice = voice
	}
}

func WithConversationState(state *ConversationState) ControllerOption {
	return func(c *Controller) {
		c.conversation = state
	}
}

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithErrorHandler is called for every session error after it is logged.
func WithErrorHandler(handler func(error)) ControllerOption {
	return func(c *Controller) {
		c.onError = handler
	}
}

// WithStateObserver is called on the Run goroutine after each transition.
func WithStateObserver(observer func(State)) ControllerOption {
	return func(c *Controller) {
		c.onState = observer
	}
}

func NewController(config Config, dialer Dialer, capture Capture, playback Playback, opts ...ControllerOption) *Controller {
	if config.MaxHistorySize == 0 {
		config.MaxHistorySize = 10
	}
	if config.LanguageCode == "" {
		config.LanguageCode = "en-US"
	}

	c := &Controller{
		config:        config,
		dialer:        dialer,
		capture:       capture,
		playback:      playback,
		sequencer:     NewPlaybackSequencer(playback),
		conversation:  NewConversationState(),
		logger:        logger,
		events:        make(chan event, 32),
		done:          make(chan struct{}),
		announceReady: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}

	playback.SetOutputLevel(c.conversation.Volume())
	return c
}

// Run processes triggers and session events until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case ev := <-c.events:
			c.handle(ctx, ev)
		case <-c.announceReady:
			c.nextAnnouncement(ctx)
		}
	}
}

// TriggerDown opens a new turn when the controller is idle and is a no-op
// otherwise. It returns once the stream is open or failed to open.
func (c *Controller) TriggerDown(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case c.events <- triggerDown{reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
}

// TriggerUp stops capturing audio for the current turn. The reply is
// still awaited and played.
func (c *Controller) TriggerUp(ctx context.Context) {
	select {
	case c.events <- triggerUp{}:
	case <-ctx.Done():
	case <-c.done:
	}
}

// Speak queues text to be spoken the next time the controller is idle.
func (c *Controller) Speak(text string) {
	if text == "" {
		return
	}

	c.announceMu.Lock()
	c.announcements = append(c.announcements, text)
	c.announceMu.Unlock()

	select {
	case c.announceReady <- struct{}{}:
	default:
	}
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) Conversation() *ConversationState {
	return c.conversation
}

// GetHistory returns a copy of the completed turns.
func (c *Controller) GetHistory() []ConversationEntry {
	c.historyMu.RLock()
	defer c.historyMu.RUnlock()

	history := make([]ConversationEntry, len(c.entries))
	copy(history, c.entries)
	return history
}

func (c *Controller) ClearHistory() {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()

	c.entries = nil
}

// ResetConversation starts the next turn without a continuation token.
func (c *Controller) ResetConversation() {
	c.conversation.Reset()
	c.playback.SetOutputLevel(c.conversation.Volume())
	c.ClearHistory()
}

type event interface{}

type (
	triggerDown struct {
		reply chan error
	}
	triggerUp    struct{}
	drainRequest struct {
		sessionID string
		reason    string
	}
	streamFinished struct {
		sessionID string
		err       error
	}
	playbackFinished struct {
		sessionID string
		err       error
	}
	streamerExited struct {
		sessionID string
	}
	announcementFinished struct {
		err error
	}
)

func (c *Controller) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case triggerDown:
		ev.reply <- c.startSession(ctx)
	case triggerUp:
		c.drain("trigger released")
	case drainRequest:
		if c.session != nil && c.session.ID == ev.sessionID {
			c.drain(ev.reason)
		}
	case streamFinished:
		c.finishStream(ev)
	case playbackFinished:
		c.finishPlayback(ctx, ev)
	case streamerExited:
		if c.session != nil && c.session.ID == ev.sessionID {
			c.endSession(ctx, c.session)
		}
	case announcementFinished:
		c.announcing = false
		if ev.err != nil {
			c.logger.Error("announcement failed", "error", ev.err)
		}
		c.setState(Idle)
		c.nextAnnouncement(ctx)
	}
}

func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Controller) setState(s State) {
	old := State(c.state.Swap(int32(s)))
	if old == s {
		return
	}
	c.logger.Debug("state changed", "from", old.String(), "to", s.String())
	if c.onState != nil {
		c.onState(s)
	}
}

func (c *Controller) startSession(ctx context.Context) error {
	if s := c.State(); s != Idle {
		c.logger.Debug("trigger ignored", "state", s.String())
		return nil
	}

	sess := newSession(ctx)
	c.setState(Streaming)
	c.logger.Info("starting turn", "session", sess.ID)

	stream, err := c.dialer.Open(sess.ctx)
	if err != nil {
		return c.abortStart(ctx, sess, &TransportError{Op: "open", Err: err})
	}
	sess.stream = stream

	start := assistant.StartConfig{
		Input:             c.config.Input,
		Output:            c.config.Output,
		VolumePercentage:  c.conversation.Volume(),
		DeviceID:          c.config.DeviceID,
		DeviceModelID:     c.config.DeviceModelID,
		LanguageCode:      c.config.LanguageCode,
		ContinuationToken: c.conversation.ContinuationToken(),
	}
	if err := stream.Send(start); err != nil {
		return c.abortStart(ctx, sess, &TransportError{Op: "config", Err: err})
	}

	if err := c.capture.StartCapture(); err != nil {
		_ = stream.CloseSend()
		return c.abortStart(ctx, sess, fmt.Errorf("failed to start capture: %w", err))
	}

	c.session = sess
	if c.indicator != nil {
		c.indicator.SetIndicator(true)
	}

	go c.streamAudio(sess)
	go c.interpret(sess)
	return nil
}

func (c *Controller) abortStart(ctx context.Context, sess *Session, err error) error {
	c.fail(sess.span, err)
	sess.cancel()
	sess.span.End()
	c.setState(Idle)
	c.nextAnnouncement(ctx)
	return err
}

func (c *Controller) drain(reason string) {
	if c.session == nil || c.State() != Streaming {
		return
	}
	c.logger.Debug("draining turn", "session", c.session.ID, "reason", reason)
	c.setState(Draining)
	c.session.stopCapture()
}

func (c *Controller) finishStream(ev streamFinished) {
	sess := c.session
	if sess == nil || sess.ID != ev.sessionID || sess.finished {
		return
	}
	sess.finished = true
	sess.stopCapture()

	if ev.err != nil {
		c.fail(sess.span, ev.err)
		sess.buffer.Clear()
		sess.cancel()
		// The streamer owns the capture device until it exits, so the turn
		// stays out of Idle until then.
		if c.State() == Streaming {
			c.setState(Draining)
		}
		go c.awaitStreamer(sess)
		return
	}

	if c.State() == Streaming {
		c.setState(Draining)
	}
	c.setState(Playing)
	go c.play(sess)
}

func (c *Controller) play(sess *Session) {
	select {
	case <-sess.streamerDone:
	case <-sess.ctx.Done():
	}

	err := c.sequencer.Play(sess.ctx, sess.buffer.Chunks())
	sess.buffer.Clear()
	c.post(playbackFinished{sessionID: sess.ID, err: err})
}

func (c *Controller) awaitStreamer(sess *Session) {
	<-sess.streamerDone
	c.post(streamerExited{sessionID: sess.ID})
}

func (c *Controller) finishPlayback(ctx context.Context, ev playbackFinished) {
	sess := c.session
	if sess == nil || sess.ID != ev.sessionID {
		return
	}
	if ev.err != nil {
		c.fail(sess.span, ev.err)
	}

	c.addToHistory(ConversationEntry{
		Request:   sess.request,
		Response:  sess.response,
		Timestamp: sess.StartedAt,
	})
	c.logger.Info("turn finished", "session", sess.ID, "duration", time.Since(sess.StartedAt))
	c.endSession(ctx, sess)
}

func (c *Controller) endSession(ctx context.Context, sess *Session) {
	sess.cancel()
	sess.span.End()
	if c.indicator != nil {
		c.indicator.SetIndicator(false)
	}
	c.session = nil
	c.setState(Idle)
	c.nextAnnouncement(ctx)
}

func (c *Controller) shutdown() {
	if sess := c.session; sess != nil {
		sess.cancel()
		sess.span.End()
		if c.indicator != nil {
			c.indicator.SetIndicator(false)
		}
		c.session = nil
	}
	c.setState(Idle)
}

func (c *Controller) nextAnnouncement(ctx context.Context) {
	if c.State() != Idle || c.announcing {
		return
	}

	for {
		text, ok := c.popAnnouncement()
		if !ok {
			return
		}
		if c.voice == nil {
			c.logger.Info("announcement", "text", text)
			continue
		}

		c.announcing = true
		c.setState(Playing)
		go func() {
			c.post(announcementFinished{err: c.voice.Speak(ctx, text)})
		}()
		return
	}
}

func (c *Controller) popAnnouncement() (string, bool) {
	c.announceMu.Lock()
	defer c.announceMu.Unlock()

	if len(c.announcements) == 0 {
		return "", false
	}
	text := c.announcements[0]
	c.announcements = c.announcements[1:]
	return text, true
}

func (c *Controller) addToHistory(entry ConversationEntry) {
	if entry.Request == "" && entry.Response == "" {
		return
	}

	c.historyMu.Lock()
	defer c.historyMu.Unlock()

	c.entries = append(c.entries, entry)
	if len(c.entries) > c.config.MaxHistorySize {
		c.entries = c.entries[len(c.entries)-c.config.MaxHistorySize:]
	}
}

func (c *Controller) fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Error("turn failed", "error", err)
	if c.onError != nil {
		c.onError(err)
	}
}
