package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Category is the classification the backend assigns to an email.
// Unknown values are kept verbatim.
type Category string

const (
	CategoryImportant     Category = "Important"
	CategoryNewsletter    Category = "Newsletter"
	CategorySpam          Category = "Spam"
	CategoryToDo          Category = "To-Do"
	CategoryPersonal      Category = "Personal"
	CategoryUncategorized Category = "Uncategorized"
)

// Categories lists the categories offered when re-classifying an email.
var Categories = []Category{
	CategoryImportant,
	CategoryNewsletter,
	CategorySpam,
	CategoryToDo,
	CategoryPersonal,
	CategoryUncategorized,
}

// Priority levels as emitted by the backend. The empty string means none.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
	PriorityNone   = ""
)

// ActionItem is a task extracted from an email body.
type ActionItem struct {
	Task     string `json:"task"`
	Deadline string `json:"deadline,omitempty"`
	Priority string `json:"priority"`
}

// Email is a single inbox message as returned by the backend.
// Two records with the same ID describe the same message.
type Email struct {
	ID          string       `json:"id"`
	Subject     string       `json:"subject"`
	Sender      string       `json:"sender"`
	Body        string       `json:"body"`
	Category    Category     `json:"category"`
	Timestamp   Timestamp    `json:"timestamp"`
	IsRead      bool         `json:"is_read"`
	IsArchived  bool         `json:"is_archived"`
	IsStarred   bool         `json:"is_starred"`
	Priority    string       `json:"priority"`
	ActionItems []ActionItem `json:"action_items"`
	Summary     string       `json:"summary,omitempty"`
}

// Clone returns a copy that shares no slices with e.
func (e Email) Clone() Email {
	if e.ActionItems != nil {
		items := make([]ActionItem, len(e.ActionItems))
		copy(items, e.ActionItems)
		e.ActionItems = items
	}
	return e
}

// timestampLayouts are tried in order when decoding. The backend emits
// both RFC 3339 and naive isoformat() strings.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is a time.Time that tolerates the backend's mixed ISO-8601
// formats. Naive values are interpreted as UTC.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}

	return fmt.Errorf("unrecognized timestamp %q", raw)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}
