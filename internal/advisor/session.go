package advisor

import (
	"sync"

	"tally/internal/llm"
)

// DefaultWindow is how many messages a session remembers.
const DefaultWindow = 5

// Session is the bounded chat history of one conversation. Appending past
// the window drops the oldest messages.
type Session struct {
	mu     sync.Mutex
	window int
	turns  []llm.Message
}

func NewSession(window int) *Session {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Session{window: window}
}

// History returns a copy of the remembered messages, oldest first.
func (s *Session) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Message, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Session) Append(turns ...llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turns...)
	if over := len(s.turns) - s.window; over > 0 {
		s.turns = append([]llm.Message(nil), s.turns[over:]...)
	}
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

func (s *Session) Reset() {
	s.mu.Lock()
	s.turns = nil
	s.mu.Unlock()
}
