package engine

import (
	"errors"
	"fmt"
)

var (
	ErrTransport      = errors.New("assistant transport failure")
	ErrStopped        = errors.New("controller stopped")
	ErrAlreadyRunning = errors.New("controller already running")
)

// TransportError ends the session it occurs in. Op is one of open,
// config, send or recv.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("assistant %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
