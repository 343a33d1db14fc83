package inbox

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailagent/internal/keys"
	"github.com/nhle/mailagent/internal/model"
)

type fakeSource struct {
	emails  []model.Email
	filters model.Filters
	starred []string
	sampled bool
}

func (f *fakeSource) View() []model.Email    { return f.emails }
func (f *fakeSource) Filters() model.Filters { return f.filters }
func (f *fakeSource) Loading() bool          { return false }
func (f *fakeSource) Err() string            { return "" }

func (f *fakeSource) UpdateFilters(_ context.Context, fn func(*model.Filters)) error {
	fn(&f.filters)
	return nil
}

func (f *fakeSource) LoadSample(context.Context) error {
	f.sampled = true
	return nil
}

func (f *fakeSource) ToggleStar(id string) bool {
	f.starred = append(f.starred, id)
	return true
}

func (f *fakeSource) ToggleArchived(string) bool { return true }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(src *fakeSource) Model {
	m := New(src, keys.DefaultKeyMap(), 100, 30)
	m.Refresh()
	return m
}

func sampleEmails() []model.Email {
	now := time.Now()
	return []model.Email{
		{ID: "a", Subject: "Quarterly report", Sender: "Ann <ann@example.com>", Category: model.CategoryImportant, Timestamp: model.NewTimestamp(now)},
		{ID: "b", Subject: "Weekly digest", Sender: "news@example.com", Category: model.CategoryNewsletter, Timestamp: model.NewTimestamp(now.Add(-time.Hour))},
	}
}

func TestCategoryKeyCyclesFilter(t *testing.T) {
	src := &fakeSource{filters: model.DefaultFilters()}
	m := newTestModel(src)

	m, cmd := m.Update(runes("c"))
	require.NotNil(t, cmd)
	msg := cmd()

	assert.Equal(t, ChangedMsg{}, msg)
	assert.Equal(t, model.CategoryImportant, src.filters.Category)

	src.filters.Category = model.CategoryUncategorized
	_, cmd = m.Update(runes("c"))
	cmd()
	assert.Equal(t, model.CategoryAll, src.filters.Category)
}

func TestSortKeyCyclesFilter(t *testing.T) {
	src := &fakeSource{filters: model.DefaultFilters()}
	m := newTestModel(src)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, model.SortOldest, src.filters.SortBy)
}

func TestSearchSubmitsQuery(t *testing.T) {
	src := &fakeSource{filters: model.DefaultFilters()}
	m := newTestModel(src)

	m, _ = m.Update(runes("/"))
	assert.True(t, m.Searching())

	for _, r := range "invoice" {
		m, _ = m.Update(runes(string(r)))
	}
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	cmd()

	assert.False(t, m.Searching())
	assert.Equal(t, "invoice", src.filters.Search)
}

func TestOpenSelectedEmail(t *testing.T) {
	src := &fakeSource{emails: sampleEmails(), filters: model.DefaultFilters()}
	m := newTestModel(src)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, OpenMsg{ID: "a"}, cmd())
}

func TestStarTogglesSelected(t *testing.T) {
	src := &fakeSource{emails: sampleEmails(), filters: model.DefaultFilters()}
	m := newTestModel(src)

	m, _ = m.Update(runes("j"))
	m.Update(runes("s"))

	assert.Equal(t, []string{"b"}, src.starred)
}

func TestRefreshKeepsCursorOnSameEmail(t *testing.T) {
	src := &fakeSource{emails: sampleEmails(), filters: model.DefaultFilters()}
	m := newTestModel(src)
	m, _ = m.Update(runes("j"))

	src.emails = []model.Email{src.emails[1], src.emails[0]}
	m.Refresh()

	id, ok := m.selectedID()
	require.True(t, ok)
	assert.Equal(t, "b", id)
}

func TestSampleKeyLoadsSample(t *testing.T) {
	src := &fakeSource{filters: model.DefaultFilters()}
	m := newTestModel(src)

	_, cmd := m.Update(runes("m"))
	require.NotNil(t, cmd)
	cmd()
	assert.True(t, src.sampled)
}

func TestEmptyStateMentionsFilters(t *testing.T) {
	src := &fakeSource{filters: model.Filters{Category: model.CategorySpam, SortBy: model.SortNewest}}
	m := newTestModel(src)
	assert.Contains(t, m.View(), "No matching emails")
}

func TestSenderName(t *testing.T) {
	assert.Equal(t, "Ann Lee", senderName(`"Ann Lee" <ann@example.com>`))
	assert.Equal(t, "bob@example.com", senderName("bob@example.com"))
}
