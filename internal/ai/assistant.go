// Package ai drives conversations with the backend's email agent. The
// backend chat endpoint is stateless, so the assistant folds recent
// history and the email in focus into every request.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nhle/mailagent/internal/apiclient"
	"github.com/nhle/mailagent/internal/model"
)

const (
	// historyTurns is how many earlier messages are replayed per request.
	historyTurns = 6

	// bodyExcerpt caps how much of the focused email body is sent.
	bodyExcerpt = 1500
)

// StreamChunk represents a piece of the agent response.
type StreamChunk struct {
	Text string
	Done bool
}

// AgentAPI is the part of the agent endpoints the assistant uses.
type AgentAPI interface {
	Chat(ctx context.Context, message string) (*model.ChatReply, error)
	Process(ctx context.Context, req model.AgentRequest) (*model.AgentResult, error)
}

// Assistant keeps a conversation with the agent and the email in focus.
type Assistant struct {
	agent   AgentAPI
	history *History
	logger  *slog.Logger

	mu    sync.Mutex
	focus *model.Email
}

// New creates an assistant backed by agent.
func New(agent AgentAPI, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		agent:   agent,
		history: NewHistory(defaultHistoryLimit),
		logger:  logger,
	}
}

// Reset clears the conversation history.
func (a *Assistant) Reset() {
	a.history.Clear()
}

// Focus sets the email the conversation is about. Nil clears it.
func (a *Assistant) Focus(e *model.Email) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e == nil {
		a.focus = nil
		return
	}
	c := e.Clone()
	a.focus = &c
}

// Focused returns the email in focus, if any.
func (a *Assistant) Focused() (model.Email, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.focus == nil {
		return model.Email{}, false
	}
	return *a.focus, true
}

// History returns a copy of the conversation so far.
func (a *Assistant) History() []Message {
	return a.history.All()
}

// SendMessage sends a user message to the agent and returns a channel
// that receives the response. The channel is closed when the response
// is complete.
func (a *Assistant) SendMessage(ctx context.Context, userMsg string) (<-chan StreamChunk, error) {
	userMsg = strings.TrimSpace(userMsg)
	if userMsg == "" {
		return nil, errors.New("message is required")
	}

	focus, _ := a.Focused()
	prompt := a.buildPrompt(userMsg, focus)
	a.history.Append(Message{Role: RoleUser, Content: userMsg, EmailID: focus.ID})

	ch := make(chan StreamChunk, 1)

	go func() {
		defer close(ch)

		reply, err := a.agent.Chat(ctx, prompt)
		if err != nil {
			a.logger.Warn("agent chat failed", "error", err)
			ch <- StreamChunk{
				Text: "Error: " + apiclient.Message(err, "the agent is unavailable"),
				Done: true,
			}
			return
		}

		a.history.Append(Message{Role: RoleAssistant, Content: reply.Response, EmailID: focus.ID})
		ch <- StreamChunk{Text: reply.Response, Done: true}
	}()

	return ch, nil
}

// Analyze runs the active prompt of promptType against the focused email
// and returns the result as display text.
func (a *Assistant) Analyze(ctx context.Context, promptType string) (string, error) {
	focus, ok := a.Focused()
	if !ok {
		return "", errors.New("open an email first")
	}

	res, err := a.agent.Process(ctx, model.AgentRequest{
		EmailID:    focus.ID,
		PromptType: promptType,
	})
	if err != nil {
		return "", errors.New(apiclient.Message(err, "Processing failed"))
	}

	text := formatResult(res.Result)
	a.history.Append(Message{Role: RoleAssistant, Content: text, EmailID: focus.ID})
	return text, nil
}

// buildPrompt folds the recent conversation and the focused email into
// a single message for the stateless chat endpoint.
func (a *Assistant) buildPrompt(userMsg string, focus model.Email) string {
	var sb strings.Builder

	if focus.ID != "" {
		sb.WriteString("The user is looking at this email:\n")
		fmt.Fprintf(&sb, "From: %s\nSubject: %s\nCategory: %s\n",
			focus.Sender, focus.Subject, focus.Category)
		body := focus.Body
		if r := []rune(body); len(r) > bodyExcerpt {
			body = string(r[:bodyExcerpt]) + "..."
		}
		sb.WriteString("\n" + body + "\n\n")
	}

	if recent := a.history.Recent(historyTurns); len(recent) > 0 {
		sb.WriteString("Conversation so far:\n")
		sb.WriteString(Transcript(recent))
		sb.WriteString("\n")
	}

	if sb.Len() == 0 {
		return userMsg
	}
	sb.WriteString("user: " + userMsg)
	return sb.String()
}

// formatResult renders an agent result, which may be a string, a list of
// action items or an arbitrary object.
func formatResult(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	case []any:
		var lines []string
		for _, item := range r {
			if m, ok := item.(map[string]any); ok {
				if task, ok := m["task"].(string); ok {
					line := "• " + task
					if d, ok := m["deadline"].(string); ok && d != "" {
						line += " (due " + d + ")"
					}
					lines = append(lines, line)
					continue
				}
			}
			lines = append(lines, "• "+formatResult(item))
		}
		return strings.Join(lines, "\n")
	default:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Sprint(r)
		}
		return string(data)
	}
}
