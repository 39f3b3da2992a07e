package actions

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/d1nch8g/pushtalk/actuator"
)

type fakeTimer struct {
	delay   time.Duration
	fire    func()
	stopped atomic.Bool
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) schedule(d time.Duration, f func()) func() bool {
	timer := &fakeTimer{delay: d, fire: f}
	s.mu.Lock()
	s.timers = append(s.timers, timer)
	s.mu.Unlock()
	return func() bool {
		return !timer.stopped.Swap(true)
	}
}

func (s *fakeScheduler) all() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeTimer(nil), s.timers...)
}

type recordingAnnouncer struct {
	mu    sync.Mutex
	texts []string
}

func (a *recordingAnnouncer) Speak(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.texts = append(a.texts, text)
}

type countingCapture struct {
	requests atomic.Int32
}

func (c *countingCapture) RequestCapture() {
	c.requests.Add(1)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func blink(count int, speed string) Command {
	return Command{
		Name:   "com.example.commands.BlinkLight",
		Params: map[string]any{"number": float64(count), "speed": speed},
	}
}

func TestPulseSchedulesToggles(t *testing.T) {
	sched := &fakeScheduler{}
	d := NewDispatcher(actuator.NewMemory(), WithScheduler(sched.schedule))

	d.Dispatch(blink(3, "slowly"))

	pending := d.Pending()
	if len(pending) != 6 {
		t.Fatalf("expected 6 pending toggles, got %d", len(pending))
	}
	for i, info := range pending {
		if want := time.Duration(i) * SlowPulse; info.Delay != want {
			t.Fatalf("task %d: expected delay %v, got %v", i, want, info.Delay)
		}
	}
	if got := len(sched.all()); got != 5 {
		t.Fatalf("expected 5 timers for delayed toggles, got %d", got)
	}
}

func TestNewCommandCancelsPendingTasks(t *testing.T) {
	sched := &fakeScheduler{}
	port := actuator.NewMemory()
	d := NewDispatcher(port, WithScheduler(sched.schedule))

	d.Dispatch(blink(3, "slowly"))
	d.Dispatch(Command{Name: "action.devices.commands.OnOff", Params: map[string]any{"on": true}})

	for i, timer := range sched.all() {
		if !timer.stopped.Load() {
			t.Fatalf("timer %d was not stopped", i)
		}
	}
	pending := d.Pending()
	if len(pending) != 1 || pending[0].Name != "set light" {
		t.Fatalf("expected only the switch task, got %v", pending)
	}

	// A timer that fires despite being stopped must still be skipped.
	sched.all()[0].fire()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	waitFor(t, func() bool { return len(d.Pending()) == 0 }, "switch task never ran")
	time.Sleep(20 * time.Millisecond)

	writes := port.Writes()
	if len(writes) != 1 || writes[0] != (actuator.Write{ID: DefaultLightID, On: true}) {
		t.Fatalf("expected a single light-on write, got %v", writes)
	}
}

func TestPulseTogglesLight(t *testing.T) {
	port := actuator.NewMemory()
	d := NewDispatcher(port, WithScheduler(func(_ time.Duration, f func()) func() bool {
		go f()
		return func() bool { return false }
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Dispatch(blink(2, "quickly"))

	waitFor(t, func() bool { return len(port.Writes()) == 4 }, "expected 4 toggles")
	if on, _ := port.Value(DefaultLightID); on {
		t.Fatal("expected light to end off after an even number of toggles")
	}
}

func TestUnknownCommandIgnored(t *testing.T) {
	var reported atomic.Int32
	d := NewDispatcher(actuator.NewMemory(), WithErrorHandler(func(error) { reported.Add(1) }))

	d.Dispatch(Command{Name: "com.example.commands.Unknown"})

	if len(d.Pending()) != 0 {
		t.Fatalf("expected no tasks, got %v", d.Pending())
	}
	if reported.Load() != 0 {
		t.Fatal("unknown commands must not be reported as errors")
	}
}

func TestMissingParamReported(t *testing.T) {
	var reported atomic.Int32
	d := NewDispatcher(actuator.NewMemory(), WithErrorHandler(func(err error) {
		var perr *PayloadError
		if errors.As(err, &perr) {
			reported.Add(1)
		}
	}))

	d.Dispatch(Command{Name: "action.devices.traits.OnOff"})
	d.Dispatch(blink(0, ""))

	if reported.Load() != 2 {
		t.Fatalf("expected 2 payload errors, got %d", reported.Load())
	}
}

func TestActuatorErrorIsolated(t *testing.T) {
	port := actuator.NewMemory()
	port.Fail(DefaultLightID, errors.New("pin busy"))

	errs := make(chan error, 4)
	d := NewDispatcher(port, WithErrorHandler(func(err error) { errs <- err }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Dispatch(Command{Name: "action.devices.commands.OnOff", Params: map[string]any{"on": true}})

	select {
	case err := <-errs:
		if !errors.Is(err, ErrActuator) {
			t.Fatalf("expected ErrActuator, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected actuator error to be reported")
	}

	d.SetIndicator(true)
	waitFor(t, func() bool {
		on, _ := port.Value(DefaultIndicatorID)
		return on
	}, "indicator should still work after a light failure")
}

func TestDispatchDoesNotBlockOnFullQueue(t *testing.T) {
	errs := make(chan error, 4)
	d := NewDispatcher(actuator.NewMemory(), WithErrorHandler(func(err error) { errs <- err }))

	// Nothing drains the queue, as if an actuator write were hung.
	for i := 0; i < jobQueueSize; i++ {
		d.ToggleIndicator()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Dispatch(Command{Name: "action.devices.commands.OnOff", Params: map[string]any{"on": true}})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked on a full queue")
	}

	select {
	case err := <-errs:
		if !errors.Is(err, ErrActuator) {
			t.Fatalf("expected ErrActuator, got %v", err)
		}
	default:
		t.Fatal("expected the dropped task to be reported")
	}
	if pending := d.Pending(); len(pending) != 0 {
		t.Fatalf("expected no pending tasks, got %v", pending)
	}
}

func TestCaptureAndLocation(t *testing.T) {
	announcer := &recordingAnnouncer{}
	capture := &countingCapture{}
	d := NewDispatcher(actuator.NewMemory(),
		WithAnnouncer(announcer),
		WithCaptureRequester(capture),
		WithLocationText("Somewhere"),
	)

	d.Dispatch(Command{Name: "com.nagarro.commands.OpenCamera"})
	d.Dispatch(Command{Name: "com.nagarro.commands.GetLocation"})

	if capture.requests.Load() != 1 {
		t.Fatalf("expected 1 capture request, got %d", capture.requests.Load())
	}
	if len(announcer.texts) != 1 || announcer.texts[0] != "Somewhere" {
		t.Fatalf("expected location announcement, got %v", announcer.texts)
	}
}

func TestIndicatorNotCancelled(t *testing.T) {
	port := actuator.NewMemory()
	d := NewDispatcher(port, WithScheduler((&fakeScheduler{}).schedule))

	d.ToggleIndicator()
	d.Dispatch(blink(1, ""))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	waitFor(t, func() bool {
		on, _ := port.Value(DefaultIndicatorID)
		return on
	}, "indicator toggle was dropped")
}

func TestPulseDelay(t *testing.T) {
	cases := map[string]time.Duration{
		"slowly":  SlowPulse,
		"slow":    SlowPulse,
		"quickly": FastPulse,
		"FAST":    FastPulse,
		"":        NormalPulse,
		"normal":  NormalPulse,
	}
	for speed, want := range cases {
		if got := PulseDelay(speed); got != want {
			t.Fatalf("speed %q: expected %v, got %v", speed, want, got)
		}
	}
}
