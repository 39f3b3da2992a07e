package actions

import (
	"fmt"
	"strings"
	"time"
)

// Class is the kind of behavior a command name maps to.
type Class int

const (
	ClassUnknown Class = iota
	ClassSwitch
	ClassPulse
	ClassCapture
	ClassLocation
)

func (c Class) String() string {
	switch c {
	case ClassSwitch:
		return "switch"
	case ClassPulse:
		return "pulse"
	case ClassCapture:
		return "capture"
	case ClassLocation:
		return "location"
	default:
		return "unknown"
	}
}

// ParseClass maps a configuration name onto a Class.
func ParseClass(name string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "switch":
		return ClassSwitch, nil
	case "pulse":
		return ClassPulse, nil
	case "capture":
		return ClassCapture, nil
	case "location":
		return ClassLocation, nil
	}
	return ClassUnknown, fmt.Errorf("unknown command class %q", name)
}

// DefaultCommands returns the command table of the stock device model.
func DefaultCommands() map[string]Class {
	return map[string]Class{
		"action.devices.commands.OnOff":    ClassSwitch,
		"action.devices.traits.OnOff":      ClassSwitch,
		"com.example.commands.BlinkLight":  ClassPulse,
		"com.nagarro.commands.OpenCamera":  ClassCapture,
		"com.nagarro.commands.GetLocation": ClassLocation,
	}
}

const (
	SlowPulse   = 2000 * time.Millisecond
	NormalPulse = 1000 * time.Millisecond
	FastPulse   = 500 * time.Millisecond
)

// PulseDelay returns the spacing between toggles for a speed parameter.
func PulseDelay(speed string) time.Duration {
	switch strings.ToLower(speed) {
	case "slow", "slowly":
		return SlowPulse
	case "fast", "quickly":
		return FastPulse
	default:
		return NormalPulse
	}
}
