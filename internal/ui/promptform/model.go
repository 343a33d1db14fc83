package promptform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailagent/internal/model"
	"github.com/nhle/mailagent/internal/theme"
)

// Prompt categories understood by the agent.
var promptCategories = []string{"categorization", "action_extraction", "summary", "reply_draft", "custom"}

// SubmitMsg is dispatched when the form is completed. ID is empty when
// creating a new prompt.
type SubmitMsg struct {
	ID    string
	Input model.PromptInput
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	name     string
	template string
	category string
	active   bool
}

// Model is the Bubble Tea model for the prompt create/edit form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	editMode bool
	editID   string
	width    int
	height   int
}

// New creates a new prompt form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{category: "custom", active: true},
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for a new prompt.
func (m *Model) StartCreate() tea.Cmd {
	m.editMode = false
	m.editID = ""
	m.fb.name = ""
	m.fb.template = ""
	m.fb.category = "custom"
	m.fb.active = true
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form for editing p.
func (m *Model) StartEdit(p model.Prompt) tea.Cmd {
	m.editMode = true
	m.editID = p.ID
	m.fb.name = p.Name
	m.fb.template = p.Template
	m.fb.category = p.Category
	if m.fb.category == "" {
		m.fb.category = "custom"
	}
	m.fb.active = p.IsActive
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the prompt form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the prompt form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Prompt"
	if m.editMode {
		titleText = "Edit Prompt"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	opts := make([]huh.Option[string], 0, len(promptCategories)+1)
	known := false
	for _, c := range promptCategories {
		opts = append(opts, huh.NewOption(c, c))
		known = known || c == m.fb.category
	}
	if !known {
		opts = append(opts, huh.NewOption(m.fb.category, m.fb.category))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Placeholder("e.g. Polite decline").
				Value(&m.fb.name).
				Validate(validateRequired("Name")),
			huh.NewSelect[string]().
				Title("Category").
				Options(opts...).
				Value(&m.fb.category),
			huh.NewText().
				Title("Template").
				Placeholder("Instructions for the agent. {email_content} is replaced with the email.").
				Value(&m.fb.template).
				Validate(validateRequired("Template")),
			huh.NewConfirm().
				Title("Active").
				Value(&m.fb.active),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) handleSubmit() tea.Cmd {
	msg := SubmitMsg{
		Input: model.PromptInput{
			Name:     strings.TrimSpace(m.fb.name),
			Template: m.fb.template,
			Category: m.fb.category,
			IsActive: m.fb.active,
		},
	}
	if m.editMode {
		msg.ID = m.editID
	}
	return func() tea.Msg { return msg }
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
