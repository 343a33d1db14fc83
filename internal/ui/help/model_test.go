package help

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/mailagent/internal/keys"
)

func TestViewListsEverySection(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 40)
	v := m.View()

	for _, title := range []string{"Inbox", "Email", "Prompts", "Agent", "Session"} {
		assert.Contains(t, v, title)
	}
	assert.Contains(t, v, "generate reply")
	assert.Contains(t, v, "load sample inbox")
}

func TestSectionsCoverFullHelp(t *testing.T) {
	k := keys.DefaultKeyMap()
	m := New(k, 80, 24)

	shown := map[string]bool{}
	for _, s := range m.sections {
		for _, b := range s.bindings {
			shown[b.Help().Desc] = true
		}
	}
	for _, group := range k.FullHelp() {
		for _, b := range group {
			assert.True(t, shown[b.Help().Desc], b.Help().Desc)
		}
	}
}
