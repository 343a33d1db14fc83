package email

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailagent/internal/keys"
	"github.com/nhle/mailagent/internal/model"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loaded(t *testing.T) Model {
	t.Helper()
	m := New(keys.DefaultKeyMap(), 100, 40)
	m.StartLoading()
	assert.Contains(t, m.View(), "Loading email")

	m, _ = m.Update(LoadedMsg{Email: model.Email{
		ID:       "id-1",
		Subject:  "Contract renewal",
		Sender:   "legal@example.com",
		Body:     "Please review the attached contract.",
		Category: model.CategoryToDo,
		Priority: model.PriorityHigh,
		ActionItems: []model.ActionItem{
			{Task: "Review contract", Deadline: "Friday", Priority: "high"},
		},
	}})
	return m
}

func TestRendersEmail(t *testing.T) {
	m := loaded(t)
	view := m.View()

	assert.Contains(t, view, "Contract renewal")
	assert.Contains(t, view, "legal@example.com")
	assert.Contains(t, view, "Review contract")
}

func TestSetCategoryAdvancesCategory(t *testing.T) {
	m := loaded(t)

	_, cmd := m.Update(runes("C"))
	require.NotNil(t, cmd)
	msg, ok := cmd().(ActionMsg)
	require.True(t, ok)
	assert.Equal(t, ActionSetCategory, msg.Action)
	assert.Equal(t, "id-1", msg.EmailID)
	assert.Equal(t, model.CategoryPersonal, msg.Category)
}

func TestExportRequiresReply(t *testing.T) {
	m := loaded(t)

	m, cmd := m.Update(runes("x"))
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Generate a reply first")

	m, _ = m.Update(ReplyMsg{EmailID: "id-1", Reply: "Thanks, will do."})
	_, cmd = m.Update(runes("x"))
	require.NotNil(t, cmd)
	msg := cmd().(ActionMsg)
	assert.Equal(t, ActionExport, msg.Action)
	assert.Equal(t, "Thanks, will do.", msg.Reply)
}

func TestReplyForOtherEmailIgnored(t *testing.T) {
	m := loaded(t)
	m, _ = m.Update(ReplyMsg{EmailID: "id-2", Reply: "wrong"})
	assert.NotContains(t, m.View(), "wrong")
}

func TestLoadFailureShowsError(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	m.StartLoading()
	m, _ = m.Update(LoadedMsg{Err: errors.New("Email not found")})

	_, ok := m.Email()
	assert.False(t, ok)
	assert.Contains(t, m.View(), "Email not found")
}

func TestBack(t *testing.T) {
	m := loaded(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, BackMsg{}, cmd())
}
