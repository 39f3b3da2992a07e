package actuator

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIO drives actuators wired to host GPIO pins.
type GPIO struct {
	mu     sync.Mutex
	pins   map[string]gpio.PinIO
	levels map[string]bool
}

// OpenGPIO initializes the host drivers and configures every pin as a low
// output. pins maps actuator ids to GPIO names such as "GPIO6".
func OpenGPIO(pins map[string]string) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize gpio host: %w", err)
	}

	g := &GPIO{
		pins:   make(map[string]gpio.PinIO, len(pins)),
		levels: make(map[string]bool, len(pins)),
	}
	for id, name := range pins {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("gpio pin %q for %q not found", name, id)
		}
		if err := pin.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("failed to configure %s: %w", name, err)
		}
		g.pins[id] = pin
		g.levels[id] = false
	}
	return g, nil
}

func (g *GPIO) SetValue(id string, on bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	pin, ok := g.pins[id]
	if !ok {
		return fmt.Errorf("unknown actuator %q", id)
	}
	if err := pin.Out(gpio.Level(on)); err != nil {
		return fmt.Errorf("failed to write %s: %w", pin.Name(), err)
	}
	g.levels[id] = on
	return nil
}

// Value reports the last level written to id.
func (g *GPIO) Value(id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.pins[id]; !ok {
		return false, fmt.Errorf("unknown actuator %q", id)
	}
	return g.levels[id], nil
}

func (g *GPIO) Close(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	pin, ok := g.pins[id]
	if !ok {
		return nil
	}
	delete(g.pins, id)
	if err := pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("failed to reset %s: %w", pin.Name(), err)
	}
	return pin.Halt()
}

// CloseAll releases every configured pin.
func (g *GPIO) CloseAll() error {
	g.mu.Lock()
	ids := make([]string, 0, len(g.pins))
	for id := range g.pins {
		ids = append(ids, id)
	}
	g.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := g.Close(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
