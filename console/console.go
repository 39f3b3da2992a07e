package console

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/d1nch8g/pushtalk/engine"
)

// Trigger is the push-to-talk target of the space key.
type Trigger interface {
	TriggerDown(ctx context.Context) error
	TriggerUp(ctx context.Context)
}

type eventKind int

const (
	requestEvent eventKind = iota
	responseEvent
	stateEvent
)

type event struct {
	kind  eventKind
	text  string
	state engine.State
}

// Console is an interactive terminal front end. It records conversation
// history and lets the space key act as the push-to-talk button.
type Console struct {
	trigger Trigger
	reset   func()
	logs    *LogWriter
	events  chan event
}

func New(logs *LogWriter) *Console {
	return &Console{
		logs:   logs,
		events: make(chan event, 64),
	}
}

// Bind sets what the keys control. It must be called before Run.
func (c *Console) Bind(trigger Trigger, reset func()) {
	c.trigger = trigger
	c.reset = reset
}

func (c *Console) AddRequest(text string) {
	c.offer(event{kind: requestEvent, text: text})
}

func (c *Console) AddResponse(text string) {
	c.offer(event{kind: responseEvent, text: text})
}

// StateChanged is suitable for engine.WithStateObserver.
func (c *Console) StateChanged(s engine.State) {
	c.offer(event{kind: stateEvent, state: s})
}

func (c *Console) offer(ev event) {
	select {
	case c.events <- ev:
	default:
	}
}

// Run blocks until the user quits or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	program := tea.NewProgram(newModel(ctx, c), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("console failed: %w", err)
	}
	return nil
}
