package inbox

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailagent/internal/keys"
	"github.com/nhle/mailagent/internal/model"
	"github.com/nhle/mailagent/internal/theme"
)

// Source is the part of the email store the inbox view reads and drives.
type Source interface {
	View() []model.Email
	Filters() model.Filters
	Loading() bool
	Err() string
	UpdateFilters(ctx context.Context, fn func(*model.Filters)) error
	LoadSample(ctx context.Context) error
	ToggleStar(id string) bool
	ToggleArchived(id string) bool
}

// ChangedMsg tells the view to re-read the store. Err is the error of the
// operation that caused the change, if any.
type ChangedMsg struct {
	Err error
}

// OpenMsg is sent when the user opens an email.
type OpenMsg struct {
	ID string
}

// categoryCycle is the order the category filter steps through.
var categoryCycle = append([]model.Category{model.CategoryAll}, model.Categories...)

// Model is the inbox list view component.
type Model struct {
	list        list.Model
	source      Source
	keys        *keys.KeyMap
	searchMode  bool
	searchInput textinput.Model
	err         string
	width       int
	height      int
}

// New creates a new inbox list model.
func New(src Source, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Inbox"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search subject, sender, body..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		source:      src,
		keys:        k,
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Init returns the initial command for the inbox view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// Update handles messages for the inbox view.
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
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Refresh rebuilds the list items from the store's derived view, keeping
// the cursor on the same email when it is still visible.
func (m *Model) Refresh() tea.Cmd {
	var selectedID string
	if it, ok := m.list.SelectedItem().(EmailItem); ok {
		selectedID = it.Email.ID
	}

	emails := m.source.View()
	items := make([]list.Item, len(emails))
	cursor := 0
	for i, e := range emails {
		items[i] = EmailItem{Email: e}
		if e.ID == selectedID {
			cursor = i
		}
	}

	cmd := m.list.SetItems(items)
	m.list.Select(cursor)
	m.list.Title = m.title()
	return cmd
}

func (m Model) title() string {
	f := m.source.Filters()
	title := fmt.Sprintf("Inbox · %s · %s", f.Category, f.SortBy)
	if f.Search != "" {
		title += fmt.Sprintf(" · %q", f.Search)
	}
	return title
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		query := m.searchInput.Value()
		return m, m.updateFilters(func(f *model.Filters) { f.Search = query })

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		return m, m.updateFilters(func(f *model.Filters) { f.Search = "" })
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		id, ok := m.selectedID()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return OpenMsg{ID: id} }

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.source.Filters().Search)
		cmd := m.searchInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.CycleCategory):
		next := nextCategory(m.source.Filters().Category)
		return m, m.updateFilters(func(f *model.Filters) { f.Category = next })

	case key.Matches(msg, m.keys.CycleSort):
		next := nextSort(m.source.Filters().SortBy)
		return m, m.updateFilters(func(f *model.Filters) { f.SortBy = next })

	case key.Matches(msg, m.keys.Star):
		if id, ok := m.selectedID(); ok {
			m.source.ToggleStar(id)
			cmd := m.Refresh()
			return m, cmd
		}

	case key.Matches(msg, m.keys.Archive):
		if id, ok := m.selectedID(); ok {
			m.source.ToggleArchived(id)
			cmd := m.Refresh()
			return m, cmd
		}

	case key.Matches(msg, m.keys.Sample):
		src := m.source
		return m, func() tea.Msg {
			return ChangedMsg{Err: src.LoadSample(context.Background())}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) selectedID() (string, bool) {
	it, ok := m.list.SelectedItem().(EmailItem)
	if !ok {
		return "", false
	}
	return it.Email.ID, true
}

// updateFilters applies fn through the store, which reloads from the
// backend when signed in.
func (m Model) updateFilters(fn func(*model.Filters)) tea.Cmd {
	src := m.source
	return func() tea.Msg {
		return ChangedMsg{Err: src.UpdateFilters(context.Background(), fn)}
	}
}

func nextCategory(c model.Category) model.Category {
	for i, cat := range categoryCycle {
		if cat == c {
			return categoryCycle[(i+1)%len(categoryCycle)]
		}
	}
	return model.CategoryAll
}

func nextSort(s model.SortKey) model.SortKey {
	for i, k := range model.SortKeys {
		if k == s {
			return model.SortKeys[(i+1)%len(model.SortKeys)]
		}
	}
	return model.SortNewest
}

// View renders the inbox view.
func (m Model) View() string {
	var top string
	if m.searchMode {
		top = lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
	} else if m.err != "" {
		top = theme.ErrorStyle.Padding(0, 1).Render(m.err)
	}

	body := m.list.View()
	if len(m.list.Items()) == 0 {
		body = m.renderEmptyState()
	}

	if top == "" {
		return body
	}
	return lipgloss.JoinVertical(lipgloss.Left, top, body)
}

// renderEmptyState shows guidance text when no emails are visible.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height-2).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.source.Loading() {
		return style.Render("Loading emails...")
	}
	if msg := m.source.Err(); msg != "" {
		return style.Render("Could not load emails.\n" + msg)
	}

	f := m.source.Filters()
	if f.Category != model.CategoryAll || f.Search != "" {
		return style.Render("No matching emails.\nTry adjusting your filters.")
	}
	return style.Render("No emails yet.\n\nPress r to sync or m to load the sample inbox.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
