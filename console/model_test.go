package console

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/d1nch8g/pushtalk/engine"
)

type countingTrigger struct {
	downs atomic.Int32
	ups   atomic.Int32
}

func (t *countingTrigger) TriggerDown(context.Context) error {
	t.downs.Add(1)
	return nil
}

func (t *countingTrigger) TriggerUp(context.Context) {
	t.ups.Add(1)
}

func TestSpaceTogglesTrigger(t *testing.T) {
	trigger := &countingTrigger{}
	c := New(nil)
	c.Bind(trigger, nil)
	m := newModel(context.Background(), c)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace})
	cmd()
	next, cmd = next.Update(tea.KeyMsg{Type: tea.KeySpace})
	cmd()

	if trigger.downs.Load() != 1 || trigger.ups.Load() != 1 {
		t.Fatalf("expected one down and one up, got %d/%d", trigger.downs.Load(), trigger.ups.Load())
	}
	if next.(model).talking {
		t.Fatal("expected talking to be off")
	}
}

func TestHistoryEventsRendered(t *testing.T) {
	c := New(nil)
	m := newModel(context.Background(), c)

	next, _ := m.Update(eventMsg(event{kind: requestEvent, text: "lights on"}))
	next, _ = next.Update(eventMsg(event{kind: stateEvent, state: engine.Playing}))

	view := next.View()
	if !strings.Contains(view, "lights on") || !strings.Contains(view, "playing") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestResetKey(t *testing.T) {
	var resets atomic.Int32
	c := New(nil)
	c.Bind(&countingTrigger{}, func() { resets.Add(1) })
	m := newModel(context.Background(), c)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if resets.Load() != 1 {
		t.Fatal("expected reset to be called")
	}
}

func TestHistorySinkNeverBlocks(t *testing.T) {
	c := New(nil)
	for i := 0; i < 1000; i++ {
		c.AddRequest("x")
	}
}
