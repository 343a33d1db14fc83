package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultKeyMapHasNoDuplicateKeys(t *testing.T) {
	k := DefaultKeyMap()

	seen := map[string]string{}
	for _, group := range k.FullHelp() {
		for _, b := range group {
			for _, key := range b.Keys() {
				if prev, ok := seen[key]; ok {
					assert.Failf(t, "duplicate key", "%q bound to %q and %q", key, prev, b.Help().Desc)
				}
				seen[key] = b.Help().Desc
			}
		}
	}
}

func TestFullHelpCoversShortHelp(t *testing.T) {
	k := DefaultKeyMap()

	all := map[string]bool{}
	for _, group := range k.FullHelp() {
		for _, b := range group {
			all[b.Help().Desc] = true
		}
	}
	for _, b := range k.ShortHelp() {
		assert.True(t, all[b.Help().Desc], b.Help().Desc)
	}
}
