package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailDecodesBackendPayload(t *testing.T) {
	payload := `{
		"id": "1",
		"sender": "project.manager@company.com",
		"subject": "Q4 Project Review Meeting",
		"body": "Hi team",
		"timestamp": "2024-01-08T10:30:00Z",
		"category": "Important",
		"priority": "high",
		"is_read": false,
		"is_archived": false,
		"is_starred": true,
		"action_items": [
			{"task": "Review project report", "deadline": "2024-01-12", "priority": "high"}
		],
		"summary": "Meeting request",
		"metadata": {"type": "meeting_request"}
	}`

	var e Email
	require.NoError(t, json.Unmarshal([]byte(payload), &e))

	assert.Equal(t, "1", e.ID)
	assert.Equal(t, CategoryImportant, e.Category)
	assert.True(t, e.IsStarred)
	assert.Equal(t, time.Date(2024, 1, 8, 10, 30, 0, 0, time.UTC), e.Timestamp.Time)
	require.Len(t, e.ActionItems, 1)
	assert.Equal(t, "2024-01-12", e.ActionItems[0].Deadline)
}

func TestTimestampFormats(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339", `"2024-01-08T10:30:00Z"`, time.Date(2024, 1, 8, 10, 30, 0, 0, time.UTC)},
		{"offset", `"2024-01-08T12:30:00+02:00"`, time.Date(2024, 1, 8, 10, 30, 0, 0, time.UTC)},
		{"naive isoformat", `"2024-01-08T10:30:00"`, time.Date(2024, 1, 8, 10, 30, 0, 0, time.UTC)},
		{"naive with micros", `"2024-01-08T10:30:00.123456"`, time.Date(2024, 1, 8, 10, 30, 0, 123456000, time.UTC)},
		{"date only", `"2024-01-08"`, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)},
		{"null", `null`, time.Time{}},
		{"empty", `""`, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.in), &ts))
			assert.True(t, tt.want.Equal(ts.Time), "got %v", ts.Time)
		})
	}

	t.Run("rejects garbage", func(t *testing.T) {
		var ts Timestamp
		assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	})
}

func TestEmailCloneDoesNotShareActionItems(t *testing.T) {
	original := Email{ID: "1", ActionItems: []ActionItem{{Task: "a"}}}
	clone := original.Clone()
	clone.ActionItems[0].Task = "b"

	assert.Equal(t, "a", original.ActionItems[0].Task)
}
