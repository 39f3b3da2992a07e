package engine

import "sync"

// State is the phase of the controller's current turn.
type State int32

const (
	Idle State = iota
	Streaming
	Draining
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Streaming:
		return "streaming"
	case Draining:
		return "draining"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

const DefaultVolume = 100

// ConversationState carries the continuation token and output volume
// from one turn to the next. Only the response interpreter writes to it.
type ConversationState struct {
	mu     sync.RWMutex
	token  []byte
	volume int
}

func NewConversationState() *ConversationState {
	return &ConversationState{volume: DefaultVolume}
}

// ContinuationToken returns a copy of the token, or nil on the first turn.
func (s *ConversationState) ContinuationToken() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == nil {
		return nil
	}
	return append([]byte(nil), s.token...)
}

func (s *ConversationState) Volume() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.volume
}

// SetContinuationToken replaces the token. Empty tokens are ignored.
func (s *ConversationState) SetContinuationToken(token []byte) bool {
	if len(token) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = append([]byte(nil), token...)
	return true
}

// SetVolume stores a positive volume, clamped to 100. It reports whether
// the value was applied.
func (s *ConversationState) SetVolume(percent int) bool {
	if percent <= 0 {
		return false
	}
	if percent > 100 {
		percent = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.volume = percent
	return true
}

// Reset forgets the conversation and restores the default volume.
func (s *ConversationState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = nil
	s.volume = DefaultVolume
}
