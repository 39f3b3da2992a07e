package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrActuator     = errors.New("actuator failure")
	errMissingParam = errors.New("missing parameter")
)

const (
	DefaultLightID     = "light"
	DefaultIndicatorID = "indicator"
	DefaultLocation    = "Your current location is Nagarro 371, Gurgaon"

	jobQueueSize = 64
)

// ActuatorPort drives named binary outputs.
type ActuatorPort interface {
	SetValue(id string, on bool) error
	Value(id string) (bool, error)
	Close(id string) error
}

type Announcer interface {
	Speak(text string)
}

// AnnouncerFunc adapts a function to Announcer.
type AnnouncerFunc func(text string)

func (f AnnouncerFunc) Speak(text string) { f(text) }

type CaptureRequester interface {
	RequestCapture()
}

// Scheduler runs f after d and returns a function that stops it. The stop
// function reports whether f was prevented from running.
type Scheduler func(d time.Duration, f func()) (stop func() bool)

func timerScheduler(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// TaskInfo describes a pending task.
type TaskInfo struct {
	ID    uint64
	Name  string
	Delay time.Duration
}

type task struct {
	TaskInfo
	run         func() error
	cancellable bool
	stop        func() bool
}

// Dispatcher turns device commands into actuator tasks. All actuator
// writes happen on the goroutine running Run.
type Dispatcher struct {
	port         ActuatorPort
	commands     map[string]Class
	announcer    Announcer
	capture      CaptureRequester
	locationText string
	lightID      string
	indicatorID  string
	schedule     Scheduler
	logger       *slog.Logger
	onError      func(error)

	jobs    chan *task
	stopped chan struct{}
	once    sync.Once

	mu      sync.Mutex
	pending map[uint64]*task
	nextID  uint64
}

type DispatcherOption func(*Dispatcher)

func WithCommands(commands map[string]Class) DispatcherOption {
	return func(d *Dispatcher) {
		d.commands = commands
	}
}

func WithAnnouncer(announcer Announcer) DispatcherOption {
	return func(d *Dispatcher) {
		d.announcer = announcer
	}
}

func WithCaptureRequester(capture CaptureRequester) DispatcherOption {
	return func(d *Dispatcher) {
		d.capture = capture
	}
}

func WithLocationText(text string) DispatcherOption {
	return func(d *Dispatcher) {
		if text != "" {
			d.locationText = text
		}
	}
}

func WithActuatorIDs(light, indicator string) DispatcherOption {
	return func(d *Dispatcher) {
		if light != "" {
			d.lightID = light
		}
		if indicator != "" {
			d.indicatorID = indicator
		}
	}
}

func WithScheduler(schedule Scheduler) DispatcherOption {
	return func(d *Dispatcher) {
		d.schedule = schedule
	}
}

func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithErrorHandler receives payload and actuator errors after they are logged.
func WithErrorHandler(handler func(error)) DispatcherOption {
	return func(d *Dispatcher) {
		d.onError = handler
	}
}

func NewDispatcher(port ActuatorPort, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		port:         port,
		commands:     DefaultCommands(),
		locationText: DefaultLocation,
		lightID:      DefaultLightID,
		indicatorID:  DefaultIndicatorID,
		schedule:     timerScheduler,
		logger:       logger,
		jobs:         make(chan *task, jobQueueSize),
		stopped:      make(chan struct{}),
		pending:      make(map[uint64]*task),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes queued tasks until ctx is done. Pending timers are stopped
// on return.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.once.Do(func() { close(d.stopped) })
	defer d.CancelPending()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-d.jobs:
			d.execute(t)
		}
	}
}

// Dispatch cancels every pending task and then schedules cmd.
func (d *Dispatcher) Dispatch(cmd Command) {
	_, span := tracer.Start(context.Background(), "dispatch device action",
		trace.WithAttributes(attribute.String("command", cmd.Name)))
	defer span.End()

	if n := d.CancelPending(); n > 0 {
		d.logger.Debug("cancelled pending actuator tasks", "count", n)
	}

	class, ok := d.commands[cmd.Name]
	if !ok {
		d.logger.Debug("ignoring unrecognized device action", "command", cmd.Name)
		return
	}
	span.SetAttributes(attribute.String("command.class", class.String()))

	switch class {
	case ClassSwitch:
		on, ok := cmd.Bool("on")
		if !ok {
			d.fail(span, &PayloadError{Path: cmd.Name + ".params.on", Err: errMissingParam})
			return
		}
		light := d.lightID
		d.enqueueTask(fmt.Sprintf("set %s", light), 0, func() error {
			return d.port.SetValue(light, on)
		})

	case ClassPulse:
		count, ok := cmd.Int("count")
		if !ok {
			count, ok = cmd.Int("number")
		}
		if !ok || count <= 0 {
			d.fail(span, &PayloadError{Path: cmd.Name + ".params.count", Err: errMissingParam})
			return
		}
		speed, _ := cmd.String("speed")
		delay := PulseDelay(speed)
		for i := 0; i < 2*count; i++ {
			d.enqueueTask("toggle "+d.lightID, time.Duration(i)*delay, d.toggle(d.lightID))
		}

	case ClassCapture:
		if d.capture == nil {
			d.logger.Warn("no camera configured, ignoring capture request", "command", cmd.Name)
			return
		}
		d.capture.RequestCapture()

	case ClassLocation:
		if d.announcer == nil {
			d.logger.Warn("no announcer configured, dropping location", "command", cmd.Name)
			return
		}
		d.announcer.Speak(d.locationText)
	}
}

// CancelPending cancels every task that has not run yet and returns how
// many were cancelled.
func (d *Dispatcher) CancelPending() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.pending)
	for _, t := range d.pending {
		if t.stop != nil {
			t.stop()
		}
	}
	d.pending = make(map[uint64]*task)
	return n
}

// Pending lists tasks not yet executed, ordered by delay.
func (d *Dispatcher) Pending() []TaskInfo {
	d.mu.Lock()
	defer d.mu.Unlock()

	infos := make([]TaskInfo, 0, len(d.pending))
	for _, t := range d.pending {
		infos = append(infos, t.TaskInfo)
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Delay == infos[j].Delay {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].Delay < infos[j].Delay
	})
	return infos
}

// SetIndicator switches the indicator output. Indicator writes are never
// cancelled by new commands and are dropped when the queue is full.
func (d *Dispatcher) SetIndicator(on bool) {
	id := d.indicatorID
	d.offer(&task{
		TaskInfo: TaskInfo{Name: "set " + id},
		run:      func() error { return d.port.SetValue(id, on) },
	})
}

func (d *Dispatcher) ToggleIndicator() {
	d.offer(&task{
		TaskInfo: TaskInfo{Name: "toggle " + d.indicatorID},
		run:      d.toggle(d.indicatorID),
	})
}

func (d *Dispatcher) toggle(id string) func() error {
	return func() error {
		on, err := d.port.Value(id)
		if err != nil {
			return err
		}
		return d.port.SetValue(id, !on)
	}
}

func (d *Dispatcher) enqueueTask(name string, delay time.Duration, run func() error) {
	d.mu.Lock()
	d.nextID++
	t := &task{
		TaskInfo:    TaskInfo{ID: d.nextID, Name: name, Delay: delay},
		run:         run,
		cancellable: true,
	}
	d.pending[t.ID] = t
	d.mu.Unlock()

	if delay <= 0 {
		select {
		case d.jobs <- t:
		default:
			d.mu.Lock()
			delete(d.pending, t.ID)
			d.mu.Unlock()
			d.report(fmt.Errorf("%w: queue full, dropped %s", ErrActuator, name))
		}
		return
	}

	stop := d.schedule(delay, func() { d.submit(t) })
	d.mu.Lock()
	t.stop = stop
	d.mu.Unlock()
}

// submit blocks until the task is queued. Only timer callbacks use it.
func (d *Dispatcher) submit(t *task) {
	select {
	case d.jobs <- t:
	case <-d.stopped:
	}
}

func (d *Dispatcher) offer(t *task) {
	select {
	case d.jobs <- t:
	default:
		d.logger.Debug("actuator queue full, dropping task", "task", t.Name)
	}
}

func (d *Dispatcher) execute(t *task) {
	if t.cancellable {
		d.mu.Lock()
		_, live := d.pending[t.ID]
		delete(d.pending, t.ID)
		d.mu.Unlock()
		if !live {
			return
		}
	}

	if err := d.runSafe(t); err != nil {
		d.report(fmt.Errorf("%w: %s: %v", ErrActuator, t.Name, err))
	}
}

func (d *Dispatcher) runSafe(t *task) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("task panicked: %v", recovered)
		}
	}()
	return t.run()
}

func (d *Dispatcher) fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	d.report(err)
}

func (d *Dispatcher) report(err error) {
	d.logger.Error("device action failed", "error", err)
	if d.onError != nil {
		d.onError(err)
	}
}
