package inbox

import (
	"sort"
	"strings"

	"github.com/nhle/mailagent/internal/model"
)

// Apply returns the emails matching f, ordered by f.SortBy. It does not
// modify emails; the result is a fresh slice of clones. Equal keys keep
// their input order.
func Apply(emails []model.Email, f model.Filters) []model.Email {
	f = f.Normalized()
	needle := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]model.Email, 0, len(emails))
	for _, e := range emails {
		if f.Category != model.CategoryAll && e.Category != f.Category {
			continue
		}
		if needle != "" && !matches(e, needle) {
			continue
		}
		out = append(out, e.Clone())
	}

	sort.SliceStable(out, less(out, f.SortBy))
	return out
}

func matches(e model.Email, needle string) bool {
	return strings.Contains(strings.ToLower(e.Subject), needle) ||
		strings.Contains(strings.ToLower(e.Sender), needle) ||
		strings.Contains(strings.ToLower(e.Body), needle)
}

func less(emails []model.Email, key model.SortKey) func(i, j int) bool {
	switch key {
	case model.SortOldest:
		return func(i, j int) bool {
			return emails[i].Timestamp.Before(emails[j].Timestamp.Time)
		}
	case model.SortSender:
		return func(i, j int) bool {
			return strings.ToLower(emails[i].Sender) < strings.ToLower(emails[j].Sender)
		}
	default:
		return func(i, j int) bool {
			return emails[i].Timestamp.After(emails[j].Timestamp.Time)
		}
	}
}
