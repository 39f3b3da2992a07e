package actions

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ExecuteIntent is the only intent that carries device commands.
const ExecuteIntent = "action.devices.EXECUTE"

var ErrMalformedPayload = errors.New("malformed device action payload")

// PayloadError points at the part of a device action payload that could
// not be used.
type PayloadError struct {
	Path string
	Err  error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("device action %s: %v", e.Path, e.Err)
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}

func malformed(path, format string, args ...any) error {
	return &PayloadError{Path: path, Err: fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))}
}

// Command is one execution entry of an EXECUTE intent.
type Command struct {
	Name   string
	Params map[string]any
}

// Bool reads a boolean parameter.
func (c Command) Bool(key string) (bool, bool) {
	switch v := c.Params[key].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	}
	return false, false
}

// Int reads an integer parameter. Numeric strings are accepted.
func (c Command) Int(key string) (int, bool) {
	switch v := c.Params[key].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

func (c Command) String(key string) (string, bool) {
	v, ok := c.Params[key].(string)
	return v, ok
}

type rawInput struct {
	Intent  string          `json:"intent"`
	Payload json.RawMessage `json:"payload"`
}

type rawPayload struct {
	Commands []json.RawMessage `json:"commands"`
}

type rawCommand struct {
	Execution []json.RawMessage `json:"execution"`
}

type rawExecution struct {
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params"`
}

func absent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// ParsePayload extracts the commands of every EXECUTE input in order.
// Inputs with other intents are skipped. A malformed entry is reported and
// skipped while its well-formed siblings are still returned.
func ParsePayload(data []byte) ([]Command, []error) {
	var doc struct {
		Inputs []json.RawMessage `json:"inputs"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, []error{malformed("$", "%v", err)}
	}
	if doc.Inputs == nil {
		return nil, []error{malformed("$", "missing inputs")}
	}

	var (
		commands []Command
		errs     []error
	)
	for i, raw := range doc.Inputs {
		path := fmt.Sprintf("inputs[%d]", i)

		var input rawInput
		if err := json.Unmarshal(raw, &input); err != nil {
			errs = append(errs, malformed(path, "%v", err))
			continue
		}
		if input.Intent == "" {
			errs = append(errs, malformed(path, "missing intent"))
			continue
		}
		if input.Intent != ExecuteIntent {
			continue
		}
		if absent(input.Payload) {
			errs = append(errs, malformed(path, "missing payload"))
			continue
		}

		var payload rawPayload
		if err := json.Unmarshal(input.Payload, &payload); err != nil {
			errs = append(errs, malformed(path+".payload", "%v", err))
			continue
		}
		if payload.Commands == nil {
			errs = append(errs, malformed(path+".payload", "missing commands"))
			continue
		}

		for j, rawCmd := range payload.Commands {
			cmdPath := fmt.Sprintf("%s.payload.commands[%d]", path, j)
			parsed, cmdErrs := parseCommand(cmdPath, rawCmd)
			commands = append(commands, parsed...)
			errs = append(errs, cmdErrs...)
		}
	}
	return commands, errs
}

func parseCommand(path string, raw json.RawMessage) ([]Command, []error) {
	var cmd rawCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return nil, []error{malformed(path, "%v", err)}
	}
	if cmd.Execution == nil {
		return nil, []error{malformed(path, "missing execution")}
	}

	var (
		commands []Command
		errs     []error
	)
	for k, rawExec := range cmd.Execution {
		execPath := fmt.Sprintf("%s.execution[%d]", path, k)

		var exec rawExecution
		if err := json.Unmarshal(rawExec, &exec); err != nil {
			errs = append(errs, malformed(execPath, "%v", err))
			continue
		}
		if exec.Command == "" {
			errs = append(errs, malformed(execPath, "missing command"))
			continue
		}

		var params map[string]any
		if !absent(exec.Params) {
			if err := json.Unmarshal(exec.Params, &params); err != nil {
				errs = append(errs, malformed(execPath+".params", "%v", err))
				continue
			}
		}
		commands = append(commands, Command{Name: exec.Command, Params: params})
	}
	return commands, errs
}
