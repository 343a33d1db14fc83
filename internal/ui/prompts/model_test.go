package prompts

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailagent/internal/keys"
	"github.com/nhle/mailagent/internal/model"
)

type fakeSource struct {
	prompts []model.Prompt
}

func (f *fakeSource) Prompts() []model.Prompt { return f.prompts }
func (f *fakeSource) Loading() bool           { return false }
func (f *fakeSource) Err() string             { return "" }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newModel() Model {
	src := &fakeSource{prompts: []model.Prompt{
		{ID: "p-1", Name: "Summarize", Template: "Summarize {email_content}", Category: "summary", IsActive: true},
		{ID: "p-2", Name: "Decline", Template: "Decline politely", Category: "reply_draft"},
	}}
	m := New(src, keys.DefaultKeyMap(), 80, 24)
	m.Refresh()
	return m
}

func TestNewOpensEmptyForm(t *testing.T) {
	m := newModel()
	_, cmd := m.Update(runes("n"))
	require.NotNil(t, cmd)
	assert.Equal(t, EditMsg{}, cmd())
}

func TestEditSelectedPrompt(t *testing.T) {
	m := newModel()
	m, _ = m.Update(runes("j"))
	_, cmd := m.Update(runes("e"))
	require.NotNil(t, cmd)

	msg := cmd().(EditMsg)
	require.NotNil(t, msg.Prompt)
	assert.Equal(t, "p-2", msg.Prompt.ID)
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	m := newModel()

	m, cmd := m.Update(runes("d"))
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Delete this prompt?")

	_, cmd = m.Update(runes("y"))
	require.NotNil(t, cmd)
	assert.Equal(t, DeleteMsg{ID: "p-1"}, cmd())
}

func TestDeleteCancelled(t *testing.T) {
	m := newModel()
	m, _ = m.Update(runes("d"))
	m, cmd := m.Update(runes("n"))
	assert.Nil(t, cmd)
	assert.NotContains(t, m.View(), "Delete this prompt?")
}

func TestEmptyState(t *testing.T) {
	m := New(&fakeSource{}, keys.DefaultKeyMap(), 80, 24)
	m.Refresh()
	assert.Contains(t, m.View(), "No prompts yet")
}
