package ai

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aiservice "github.com/nhle/mailagent/internal/ai"
	"github.com/nhle/mailagent/internal/keys"
	"github.com/nhle/mailagent/internal/model"
)

type echoAgent struct {
	processed []string
}

func (e *echoAgent) Chat(_ context.Context, message string) (*model.ChatReply, error) {
	return &model.ChatReply{Response: "echo"}, nil
}

func (e *echoAgent) Process(_ context.Context, req model.AgentRequest) (*model.AgentResult, error) {
	e.processed = append(e.processed, req.PromptType)
	return &model.AgentResult{Result: "A short summary."}, nil
}

func newPanel(a *aiservice.Assistant) Model {
	return New(a, keys.DefaultKeyMap(), 80, 30)
}

func typeText(m Model, s string) Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func submit(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	return typeText(m, text).Update(tea.KeyMsg{Type: tea.KeyEnter})
}

func TestChatRoundTrip(t *testing.T) {
	m, cmd := submit(t, newPanel(aiservice.New(&echoAgent{}, nil)), "hello")
	require.NotNil(t, cmd)
	assert.True(t, m.waiting)
	assert.Contains(t, m.transcript(), "thinking...")

	m, _ = m.Update(cmd())
	assert.False(t, m.waiting)
	assert.Equal(t, []line{{fromUser, "hello"}, {fromAgent, "echo"}}, m.lines)
}

func TestSlashCommandRunsPrompt(t *testing.T) {
	agent := &echoAgent{}
	assistant := aiservice.New(agent, nil)
	assistant.Focus(&model.Email{ID: "e1", Subject: "Budget"})
	m := newPanel(assistant)
	assert.Contains(t, m.View(), "Budget")

	m, cmd := submit(t, m, "/summary")
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())

	assert.Equal(t, []string{"summary"}, agent.processed)
	assert.Equal(t, line{fromAgent, "A short summary."}, m.lines[len(m.lines)-1])
}

func TestSlashCommandWithoutFocusShowsError(t *testing.T) {
	m, cmd := submit(t, newPanel(aiservice.New(&echoAgent{}, nil)), "/actions")
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())

	assert.Equal(t, line{fromError, "open an email first"}, m.lines[len(m.lines)-1])
}

func TestClearDropsConversation(t *testing.T) {
	assistant := aiservice.New(&echoAgent{}, nil)
	m, cmd := submit(t, newPanel(assistant), "hello")
	m, _ = m.Update(cmd())
	require.NotEmpty(t, assistant.History())

	m, cmd = submit(t, m, "/clear")
	assert.Nil(t, cmd)
	assert.Empty(t, m.lines)
	assert.Empty(t, assistant.History())
}

func TestSignedOutIgnoresInput(t *testing.T) {
	m := newPanel(aiservice.New(&echoAgent{}, nil))
	m.SetSignedOut(true)

	_, cmd := submit(t, m, "hello")
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "available once you sign in")
}

func TestEscClosesPanelUnlessWaiting(t *testing.T) {
	m := newPanel(aiservice.New(&echoAgent{}, nil))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CloseMsg{}, cmd())

	m, _ = submit(t, m, "hello")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
}
