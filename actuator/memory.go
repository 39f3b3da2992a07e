package actuator

import (
	"fmt"
	"sync"
)

// Memory is an in-process ActuatorPort used when no GPIO pins are
// configured and in tests.
type Memory struct {
	mu       sync.Mutex
	values   map[string]bool
	closed   map[string]bool
	failures map[string]error
	writes   []Write
}

// Write records one SetValue call.
type Write struct {
	ID string
	On bool
}

func NewMemory() *Memory {
	return &Memory{
		values:   make(map[string]bool),
		closed:   make(map[string]bool),
		failures: make(map[string]error),
	}
}

func (m *Memory) SetValue(id string, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(id); err != nil {
		return err
	}
	m.values[id] = on
	m.writes = append(m.writes, Write{ID: id, On: on})
	return nil
}

func (m *Memory) Value(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(id); err != nil {
		return false, err
	}
	return m.values[id], nil
}

func (m *Memory) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed[id] = true
	return nil
}

// Fail makes every access to id return err. A nil err clears the failure.
func (m *Memory) Fail(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.failures, id)
		return
	}
	m.failures[id] = err
}

// Writes returns the SetValue history.
func (m *Memory) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Write(nil), m.writes...)
}

func (m *Memory) check(id string) error {
	if err := m.failures[id]; err != nil {
		return err
	}
	if m.closed[id] {
		return fmt.Errorf("actuator %q is closed", id)
	}
	return nil
}
