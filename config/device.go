package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/d1nch8g/pushtalk/actions"
)

// DeviceConfig describes the hardware around the assistant.
//
//	pins:
//	  button: GPIO6
//	  light: GPIO5
//	  indicator: GPIO19
//	commands:
//	  com.example.commands.Beep: pulse
//	camera:
//	  command: ["/usr/local/bin/classify"]
//	  min_confidence: 0.6
//	  max_attempts: 3
type DeviceConfig struct {
	Pins     PinConfig         `yaml:"pins"`
	Commands map[string]string `yaml:"commands"`
	Camera   CameraConfig      `yaml:"camera"`
}

type PinConfig struct {
	Button    string `yaml:"button"`
	Light     string `yaml:"light"`
	Indicator string `yaml:"indicator"`
}

type CameraConfig struct {
	Command       []string `yaml:"command"`
	MinConfidence float64  `yaml:"min_confidence"`
	MaxAttempts   int      `yaml:"max_attempts"`
}

func LoadDeviceConfig(path string) (*DeviceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device config: %w", err)
	}
	return ParseDeviceConfig(data)
}

func ParseDeviceConfig(data []byte) (*DeviceConfig, error) {
	var device DeviceConfig
	if err := yaml.Unmarshal(data, &device); err != nil {
		return nil, fmt.Errorf("failed to parse device config: %w", err)
	}
	if _, err := device.CommandTable(); err != nil {
		return nil, err
	}
	// Both outputs share one actuator port, so they are wired together or not at all.
	if (device.Pins.Light == "") != (device.Pins.Indicator == "") {
		return nil, errors.New("pins.light and pins.indicator must be configured together")
	}
	if device.Camera.MinConfidence < 0 || device.Camera.MinConfidence > 1 {
		return nil, fmt.Errorf("camera.min_confidence must be within [0, 1], got %v", device.Camera.MinConfidence)
	}
	if device.Camera.MaxAttempts < 0 {
		return nil, fmt.Errorf("camera.max_attempts must not be negative, got %d", device.Camera.MaxAttempts)
	}
	return &device, nil
}

// CommandTable merges the configured commands over the default table.
func (d DeviceConfig) CommandTable() (map[string]actions.Class, error) {
	table := actions.DefaultCommands()
	for name, className := range d.Commands {
		class, err := actions.ParseClass(className)
		if err != nil {
			return nil, fmt.Errorf("commands.%s: %w", name, err)
		}
		table[name] = class
	}
	return table, nil
}

// ActuatorPins maps actuator ids to GPIO names for the configured outputs.
func (d DeviceConfig) ActuatorPins() map[string]string {
	pins := make(map[string]string)
	if d.Pins.Light != "" {
		pins[actions.DefaultLightID] = d.Pins.Light
	}
	if d.Pins.Indicator != "" {
		pins[actions.DefaultIndicatorID] = d.Pins.Indicator
	}
	return pins
}
