package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"zoned", `"2024-03-01T10:20:30Z"`, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"naive", `"2024-03-01T10:20:30"`, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"naive with micros", `"2024-03-01T10:20:30.123456"`, time.Date(2024, 3, 1, 10, 20, 30, 123456000, time.UTC)},
		{"date only", `"2024-03-01"`, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Time
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.True(t, tt.want.Equal(got.Time), "got %v", got.Time)
		})
	}
}

func TestTimeUnmarshalRejectsGarbage(t *testing.T) {
	var got Time
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &got))
	assert.Error(t, json.Unmarshal([]byte(`12`), &got))
}

func TestBugReportNullableFields(t *testing.T) {
	raw := `{
		"id": 7, "dbms_id": 1, "dbms": "SQLite",
		"category_id": null, "category": null,
		"title": "crash on vacuum", "description": null,
		"url": "https://example.org/7", "priority": "High",
		"issue_created_at": "2024-01-02T03:04:05",
		"issue_updated_at": null, "issue_closed_at": null,
		"is_closed": false
	}`

	var bug BugReport
	require.NoError(t, json.Unmarshal([]byte(raw), &bug))
	assert.Nil(t, bug.CategoryID)
	assert.Equal(t, "", bug.DescriptionText())
	assert.Equal(t, "", bug.CategoryName())
	assert.Nil(t, bug.IssueClosedAt)
	assert.Equal(t, PriorityHigh, bug.Priority)
}
