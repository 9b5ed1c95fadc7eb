package conversation

import (
	"sync"

	"github.com/SoulPlaya/Llama-AIAgent/pkg/inference"
)

// History is an append-only list of messages. It is safe for concurrent use.
type History struct {
	mu       sync.Mutex
	messages []inference.Message
}

// Append adds messages to the end of the history.
func (h *History) Append(msgs ...inference.Message) {
	h.mu.Lock()
	h.messages = append(h.messages, msgs...)
	h.mu.Unlock()
}

// Last returns a copy of the most recent n messages, oldest first.
// n <= 0 returns an empty slice.
func (h *History) Last(n int) []inference.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return tail(h.messages, n)
}

// Snapshot returns a copy of the whole history.
func (h *History) Snapshot() []inference.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]inference.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of messages.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// Reset drops every message.
func (h *History) Reset() {
	h.mu.Lock()
	h.messages = nil
	h.mu.Unlock()
}

// tail copies the last n messages, dropping the oldest first.
func tail(msgs []inference.Message, n int) []inference.Message {
	if n <= 0 {
		return []inference.Message{}
	}
	if n > len(msgs) {
		n = len(msgs)
	}
	out := make([]inference.Message, n)
	copy(out, msgs[len(msgs)-n:])
	return out
}
