package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const (
	DefaultDebounce = 20 * time.Millisecond
	edgeTimeout     = 100 * time.Millisecond
)

// Handler receives debounced button transitions.
type Handler interface {
	TriggerDown(ctx context.Context) error
	TriggerUp(ctx context.Context)
}

// Pin is the part of a GPIO input the button needs.
type Pin interface {
	WaitForEdge(timeout time.Duration) bool
	Read() gpio.Level
}

// Button is an active-low push button.
type Button struct {
	pin      Pin
	debounce time.Duration
	logger   *slog.Logger
}

type ButtonOption func(*Button)

func WithDebounce(d time.Duration) ButtonOption {
	return func(b *Button) {
		b.debounce = d
	}
}

func WithLogger(logger *slog.Logger) ButtonOption {
	return func(b *Button) {
		b.logger = logger
	}
}

func NewButton(pin Pin, opts ...ButtonOption) *Button {
	b := &Button{
		pin:      pin,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// OpenButton configures the named GPIO as a pulled-up input with edge
// detection.
func OpenButton(name string, opts ...ButtonOption) (*Button, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize gpio host: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	if err := pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("failed to configure %s: %w", name, err)
	}
	return NewButton(pin, opts...), nil
}

// Run reports presses and releases to h until ctx is done.
func (b *Button) Run(ctx context.Context, h Handler) error {
	pressed := false
	for ctx.Err() == nil {
		if !b.pin.WaitForEdge(edgeTimeout) {
			continue
		}
		if b.debounce > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.debounce):
			}
		}

		now := b.pin.Read() == gpio.Low
		if now == pressed {
			continue
		}
		pressed = now

		if pressed {
			if err := h.TriggerDown(ctx); err != nil {
				b.logger.Error("failed to start turn", "error", err)
			}
		} else {
			h.TriggerUp(ctx)
		}
	}
	return ctx.Err()
}
