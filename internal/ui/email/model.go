package email

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailagent/internal/keys"
	"github.com/nhle/mailagent/internal/model"
	"github.com/nhle/mailagent/internal/theme"
)

// Actions requested from the detail view. The parent executes them
// against the email store.
const (
	ActionSetCategory = "category"
	ActionStar        = "star"
	ActionArchive     = "archive"
	ActionReply       = "reply"
	ActionExport      = "export"
)

// BackMsg signals the parent to navigate back to the inbox.
type BackMsg struct{}

// LoadedMsg carries the email to display. Err is set when opening failed.
type LoadedMsg struct {
	Email model.Email
	Err   error
}

// ReplyMsg carries a generated reply for the displayed email.
type ReplyMsg struct {
	EmailID string
	Reply   string
	Err     error
}

// NoticeMsg shows a one-line status under the header.
type NoticeMsg struct {
	Text string
	Err  bool
}

// ActionMsg signals the parent to execute an action on the current email.
type ActionMsg struct {
	Action   string
	EmailID  string
	Category model.Category
	Reply    string
}

// Model is the email detail view component.
type Model struct {
	email    *model.Email
	reply    string
	notice   string
	noticeOK bool
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool
}

// New creates a new detail view model.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// StartLoading clears the current email and shows the loading state.
func (m *Model) StartLoading() {
	m.email = nil
	m.reply = ""
	m.notice = ""
	m.loading = true
}

// Email returns the displayed email, if any.
func (m Model) Email() (model.Email, bool) {
	if m.email == nil {
		return model.Email{}, false
	}
	return *m.email, true
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.setNotice(msg.Err.Error(), false)
			m.viewport.SetContent(m.renderContent())
			return m, nil
		}
		if m.email == nil || m.email.ID != msg.Email.ID {
			m.reply = ""
			m.viewport.GotoTop()
		}
		e := msg.Email
		m.email = &e
		m.viewport.SetContent(m.renderContent())
		return m, nil

	case ReplyMsg:
		if m.email == nil || m.email.ID != msg.EmailID {
			return m, nil
		}
		if msg.Err != nil {
			m.setNotice(msg.Err.Error(), false)
		} else {
			m.reply = msg.Reply
			m.setNotice("Reply generated. Press x to export it.", true)
		}
		m.viewport.SetContent(m.renderContent())
		return m, nil

	case NoticeMsg:
		m.setNotice(msg.Text, !msg.Err)
		m.viewport.SetContent(m.renderContent())
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.SetCategory):
			if m.email != nil {
				return m, m.action(ActionSetCategory, nextCategory(m.email.Category))
			}

		case key.Matches(msg, m.keys.Star):
			if m.email != nil {
				return m, m.action(ActionStar, "")
			}

		case key.Matches(msg, m.keys.Archive):
			if m.email != nil {
				return m, m.action(ActionArchive, "")
			}

		case key.Matches(msg, m.keys.Reply):
			if m.email != nil {
				m.setNotice("Generating reply...", true)
				m.viewport.SetContent(m.renderContent())
				return m, m.action(ActionReply, "")
			}

		case key.Matches(msg, m.keys.Export):
			if m.email == nil {
				break
			}
			if m.reply == "" {
				m.setNotice("Generate a reply first (R).", false)
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
			return m, m.action(ActionExport, "")
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) setNotice(text string, ok bool) {
	m.notice = text
	m.noticeOK = ok
}

func (m Model) action(name string, category model.Category) tea.Cmd {
	msg := ActionMsg{
		Action:   name,
		EmailID:  m.email.ID,
		Category: category,
		Reply:    m.reply,
	}
	return func() tea.Msg { return msg }
}

func nextCategory(c model.Category) model.Category {
	for i, cat := range model.Categories {
		if cat == c {
			return model.Categories[(i+1)%len(model.Categories)]
		}
	}
	return model.Categories[0]
}

// View renders the detail view.
func (m Model) View() string {
	center := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.loading {
		return center.Render("Loading email...")
	}
	if m.email == nil {
		if m.notice != "" {
			return center.Render(theme.ErrorStyle.Render(m.notice))
		}
		return center.Render("No email selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.email == nil {
		return ""
	}

	e := m.email
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(e.Subject))

	badges := []string{theme.CategoryStyle(string(e.Category)).Render(string(e.Category))}
	if e.Priority != model.PriorityNone {
		badges = append(badges, theme.PriorityStyle(e.Priority).Render(e.Priority+" priority"))
	}
	if e.IsStarred {
		badges = append(badges, lipgloss.NewStyle().Foreground(theme.ColorYellow).Render("★ starred"))
	}
	if e.IsArchived {
		badges = append(badges, theme.DimmedStyle.Render("archived"))
	}
	sections = append(sections, strings.Join(badges, "  "))

	if m.notice != "" {
		style := theme.ErrorStyle
		if m.noticeOK {
			style = theme.HelpStyle
		}
		sections = append(sections, style.Render(m.notice))
	}
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	sections = append(sections, fmt.Sprintf("%s  %s",
		metaStyle.Render("From:"), valStyle.Render(e.Sender)))
	if !e.Timestamp.IsZero() {
		sections = append(sections, fmt.Sprintf("%s  %s",
			metaStyle.Render("Date:"),
			valStyle.Render(e.Timestamp.Local().Format("2006-01-02 15:04"))))
	}

	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	separator := lipgloss.NewStyle().
		Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))

	if e.Summary != "" {
		sections = append(sections, "", sectionStyle.Render("Summary"), e.Summary)
	}

	if len(e.ActionItems) > 0 {
		sections = append(sections, "", sectionStyle.Render("Action items"))
		for _, item := range e.ActionItems {
			line := "• " + item.Task
			if item.Deadline != "" {
				line += metaStyle.Render(" (due " + item.Deadline + ")")
			}
			if item.Priority != "" {
				line += " " + theme.PriorityStyle(item.Priority).Render(item.Priority)
			}
			sections = append(sections, line)
		}
	}

	sections = append(sections, "", separator, "")

	body := e.Body
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No content")
	}
	sections = append(sections, lipgloss.NewStyle().Width(max(m.width-4, 20)).Render(body))

	if m.reply != "" {
		sections = append(sections,
			"", separator, "",
			sectionStyle.Render("Suggested reply"),
			lipgloss.NewStyle().Width(max(m.width-4, 20)).Render(m.reply),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.viewport.SetContent(m.renderContent())
}
