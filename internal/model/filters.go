package model

// CategoryAll disables category filtering.
const CategoryAll Category = "all"

// SortKey selects the ordering of the inbox view.
type SortKey string

const (
	SortNewest SortKey = "newest"
	SortOldest SortKey = "oldest"
	SortSender SortKey = "sender"
)

// SortKeys is the cycle order used by the inbox view.
var SortKeys = []SortKey{SortNewest, SortOldest, SortSender}

// Filters is the inbox filter state.
type Filters struct {
	Category Category
	Search   string
	SortBy   SortKey
}

// DefaultFilters returns the filter state used at startup.
func DefaultFilters() Filters {
	return Filters{
		Category: CategoryAll,
		SortBy:   SortNewest,
	}
}

// Normalized fills empty fields with their defaults.
func (f Filters) Normalized() Filters {
	if f.Category == "" {
		f.Category = CategoryAll
	}
	if f.SortBy == "" {
		f.SortBy = SortNewest
	}
	return f
}
