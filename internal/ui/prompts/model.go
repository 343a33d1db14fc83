package prompts

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailagent/internal/keys"
	"github.com/nhle/mailagent/internal/model"
	"github.com/nhle/mailagent/internal/theme"
)

// Source is the part of the prompt store the view reads.
type Source interface {
	Prompts() []model.Prompt
	Loading() bool
	Err() string
}

// ChangedMsg tells the view to re-read the store. Err is the error of the
// operation that caused the change, if any.
type ChangedMsg struct {
	Err error
}

// BackMsg signals the parent to return to the inbox.
type BackMsg struct{}

// EditMsg asks the parent to open the prompt form. Prompt is nil for a
// new prompt.
type EditMsg struct {
	Prompt *model.Prompt
}

// DeleteMsg asks the parent to delete a prompt.
type DeleteMsg struct {
	ID string
}

type promptItem struct {
	prompt model.Prompt
}

func (i promptItem) FilterValue() string { return i.prompt.Name }

type promptDelegate struct{}

func (d promptDelegate) Height() int                             { return 1 }
func (d promptDelegate) Spacing() int                            { return 0 }
func (d promptDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d promptDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	pi, ok := item.(promptItem)
	if !ok {
		return
	}

	active := lipgloss.NewStyle().Foreground(theme.ColorGray).Render("○")
	if pi.prompt.IsActive {
		active = lipgloss.NewStyle().Foreground(theme.ColorGreen).Render("●")
	}
	category := lipgloss.NewStyle().Foreground(theme.ColorMagenta).Render(pi.prompt.Category)

	line := fmt.Sprintf("%s %s  %s", active, pi.prompt.Name, category)
	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}
	fmt.Fprint(w, line)
}

// Model lists the signed-in user's prompt templates.
type Model struct {
	list    list.Model
	source  Source
	keys    *keys.KeyMap
	confirm string
	err     string
	width   int
	height  int
}

// New creates a new prompt list model.
func New(src Source, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, promptDelegate{}, width, height-4)
	l.Title = "Prompts"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		source: src,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Update handles messages for the prompt list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ChangedMsg:
		m.err = ""
		if msg.Err != nil {
			m.err = msg.Err.Error()
		}
		cmd := m.Refresh()
		return m, cmd

	case tea.KeyMsg:
		if m.confirm != "" {
			id := m.confirm
			m.confirm = ""
			if msg.String() == "y" {
				return m, func() tea.Msg { return DeleteMsg{ID: id} }
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.New):
			return m, func() tea.Msg { return EditMsg{} }

		case key.Matches(msg, m.keys.Edit), key.Matches(msg, m.keys.Select):
			if p, ok := m.selected(); ok {
				return m, func() tea.Msg { return EditMsg{Prompt: &p} }
			}
			return m, nil

		case key.Matches(msg, m.keys.Delete):
			if p, ok := m.selected(); ok {
				m.confirm = p.ID
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Refresh rebuilds the list from the store.
func (m *Model) Refresh() tea.Cmd {
	prompts := m.source.Prompts()
	items := make([]list.Item, len(prompts))
	for i, p := range prompts {
		items[i] = promptItem{prompt: p}
	}
	return m.list.SetItems(items)
}

func (m Model) selected() (model.Prompt, bool) {
	it, ok := m.list.SelectedItem().(promptItem)
	if !ok {
		return model.Prompt{}, false
	}
	return it.prompt, true
}

// View renders the prompt list.
func (m Model) View() string {
	var footer string
	switch {
	case m.confirm != "":
		footer = theme.ErrorStyle.Render("Delete this prompt? (y/N)")
	case m.err != "":
		footer = theme.ErrorStyle.Render(m.err)
	case m.source.Err() != "":
		footer = theme.ErrorStyle.Render(m.source.Err())
	}

	body := m.list.View()
	if len(m.list.Items()) == 0 {
		text := "No prompts yet. Press n to create one."
		if m.source.Loading() {
			text = "Loading prompts..."
		}
		body = lipgloss.NewStyle().
			Width(m.width).
			Height(m.height-4).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render(text)
	}

	if p, ok := m.selected(); ok && len(m.list.Items()) > 0 {
		preview := lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Width(max(m.width-4, 20)).
			MaxHeight(3).
			Render(p.Template)
		body = lipgloss.JoinVertical(lipgloss.Left, body, preview)
	}

	if footer == "" {
		return body
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, " "+footer)
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-4)
}
