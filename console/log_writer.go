package console

import "strings"

// LogWriter captures log output for display in the console.
type LogWriter struct {
	ch chan string
}

func NewLogWriter() *LogWriter {
	return &LogWriter{ch: make(chan string, 100)}
}

// Write never blocks; lines are dropped when the console falls behind.
func (w *LogWriter) Write(p []byte) (int, error) {
	text := strings.TrimRight(string(p), "\n")
	for _, line := range strings.Split(text, "\n") {
		select {
		case w.ch <- line:
		default:
		}
	}
	return len(p), nil
}

func (w *LogWriter) Lines() <-chan string {
	return w.ch
}
