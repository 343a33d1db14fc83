package ai

import (
	"fmt"
	"strings"
	"sync"
)

// Role identifies who wrote a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation.
type Message struct {
	Role    Role
	Content string
	EmailID string // email in focus when the message was sent
}

const defaultHistoryLimit = 20

// History is a bounded conversation log. Once full, the oldest turns
// fall off.
type History struct {
	mu    sync.Mutex
	turns []Message
	limit int
}

// NewHistory keeps at most limit messages; non-positive selects 20.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &History{limit: limit}
}

// Append records a turn.
func (h *History) Append(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, m)
	if over := len(h.turns) - h.limit; over > 0 {
		h.turns = append(h.turns[:0:0], h.turns[over:]...)
	}
}

// All returns a copy of every retained turn, oldest first.
func (h *History) All() []Message {
	return h.Recent(0)
}

// Recent returns a copy of the last n turns. n <= 0 means all of them.
func (h *History) Recent(n int) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	turns := h.turns
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return append([]Message(nil), turns...)
}

// Clear drops every turn.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}

// Len reports the number of retained turns.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Transcript renders turns as "role: content" lines.
func Transcript(turns []Message) string {
	var sb strings.Builder
	for _, m := range turns {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}
	return sb.String()
}
